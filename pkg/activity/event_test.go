package activity

import (
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/activitygraph/pkg/errors"
)

func TestLaneKey(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"trunk with repo", Event{Lane: TrunkLane, Repo: "octo/app"}, "octo/app"},
		{"bare trunk", Event{Lane: TrunkLane}, TrunkLane},
		{"explicit side lane", Event{Lane: RegistryLane}, RegistryLane},
		{"side lane wins over repo", Event{Lane: RegistryLane, Repo: "octo/app"}, RegistryLane},
		{"repo fallback", Event{Repo: "octo/lib"}, "octo/lib"},
		{"misc", Event{}, MiscLane},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.LaneKey(); got != tt.want {
				t.Errorf("LaneKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}

	if got, err := ParseKind("  PUSH "); err != nil || got != KindPush {
		t.Errorf("ParseKind should normalize case and spaces, got %q, %v", got, err)
	}

	_, err := ParseKind("deploy")
	if !errors.Is(err, errors.ErrCodeInvalidKind) {
		t.Errorf("ParseKind(deploy) error = %v, want INVALID_KIND", err)
	}
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds([]string{"push", "", "star-given"})
	if err != nil {
		t.Fatalf("ParseKinds() error: %v", err)
	}
	if !slices.Equal(kinds, []Kind{KindPush, KindStarGiven}) {
		t.Errorf("ParseKinds() = %v", kinds)
	}

	if _, err := ParseKinds([]string{"push", "bogus"}); err == nil {
		t.Error("ParseKinds should reject unknown kinds")
	}
}

func TestCompareOrdering(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{ID: "undated", Source: SourceGitHub},
		{ID: "b", Source: SourceNpm, CreatedAt: base},
		{ID: "old", Source: SourceGitHub, CreatedAt: base.Add(-time.Hour)},
		{ID: "z", Source: SourceGitHub, CreatedAt: base},
		{ID: "a", Source: SourceGitHub, CreatedAt: base},
		{ID: "new", Source: SourceNpm, CreatedAt: base.Add(time.Hour)},
	}

	desc := slices.Clone(events)
	slices.SortFunc(desc, Compare)
	if got, want := ids(desc), []string{"new", "a", "z", "b", "old", "undated"}; !slices.Equal(got, want) {
		t.Errorf("Compare order = %v, want %v", got, want)
	}

	asc := slices.Clone(events)
	slices.SortFunc(asc, CompareAsc)
	if got, want := ids(asc), []string{"old", "a", "z", "b", "new", "undated"}; !slices.Equal(got, want) {
		t.Errorf("CompareAsc order = %v, want %v", got, want)
	}
}

func TestDayKey(t *testing.T) {
	if got := DayKey(time.Time{}); got != "unknown" {
		t.Errorf("DayKey(zero) = %q, want unknown", got)
	}
	ts := time.Date(2024, 1, 2, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	if got := DayKey(ts); got != "2024-01-03" {
		t.Errorf("DayKey() = %q, want 2024-01-03 (UTC day)", got)
	}
}

func ids(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
