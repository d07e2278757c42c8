package activity

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func TestAggregate(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	pub := time.Date(2024, 5, 8, 9, 0, 0, 0, time.UTC)

	gh := []Event{
		{ID: "1", CreatedAt: now.Add(-time.Hour), Kind: KindPush, Repo: "octo/app", Message: "Pushed 1 commit"},
		{ID: "2", CreatedAt: now.Add(-72 * time.Hour), Kind: KindStarGiven, Repo: "octo/lib", Message: "Starred octo/lib"},
	}
	pkgs := []Package{
		{Name: "left-pad", Version: "1.3.0", PublishedAt: pub},
		{Name: "undated-pkg", Version: "0.1.0", URL: "https://example.com/undated"},
	}

	got := Aggregate(gh, pkgs, now)

	if len(got) != 4 {
		t.Fatalf("Aggregate() returned %d events, want 4", len(got))
	}
	want := []string{
		"npm:undated-pkg@0.1.0:undated",
		"github:1",
		"npm:left-pad@1.3.0:2024-05-08T09:00:00Z",
		"github:2",
	}
	if !slices.Equal(ids(got), want) {
		t.Errorf("Aggregate() order = %v, want %v", ids(got), want)
	}

	for _, e := range got {
		switch e.Source {
		case SourceGitHub:
			if e.Lane != TrunkLane {
				t.Errorf("github event %s lane = %q, want %q", e.ID, e.Lane, TrunkLane)
			}
		case SourceNpm:
			if e.Lane != RegistryLane || e.Kind != KindPackagePublished {
				t.Errorf("npm event %s = %+v", e.ID, e)
			}
			if !strings.HasPrefix(e.Message, "Published ") {
				t.Errorf("npm message = %q", e.Message)
			}
		default:
			t.Errorf("unexpected source %q", e.Source)
		}
	}

	if got[0].CreatedAt != now {
		t.Errorf("undated package CreatedAt = %v, want now", got[0].CreatedAt)
	}
	if got[0].URL != "https://example.com/undated" {
		t.Errorf("URL = %q, want registry URL kept", got[0].URL)
	}
	if got[2].URL != "https://www.npmjs.com/package/left-pad" {
		t.Errorf("fallback URL = %q", got[2].URL)
	}

	// Inputs are untouched.
	if gh[0].Lane != "" || gh[0].ID != "1" {
		t.Errorf("Aggregate mutated its input: %+v", gh[0])
	}
}

func TestAggregateIDsStable(t *testing.T) {
	p := Package{Name: "pkg", Version: "2.0.0"}
	a := PublishEvent(p, time.Unix(100, 0))
	b := PublishEvent(p, time.Unix(200, 0))
	if a.ID != b.ID {
		t.Errorf("undated publish IDs differ across runs: %q vs %q", a.ID, b.ID)
	}
}

func TestAggregateKeepsNamespacedIDs(t *testing.T) {
	got := Aggregate([]Event{{ID: "github:42", CreatedAt: time.Unix(1, 0)}}, nil, time.Unix(2, 0))
	if got[0].ID != "github:42" {
		t.Errorf("ID = %q, want github:42", got[0].ID)
	}
}

func TestAggregateEmpty(t *testing.T) {
	if got := Aggregate(nil, nil, time.Now()); len(got) != 0 {
		t.Errorf("Aggregate(nil, nil) = %v, want empty", got)
	}
}

func TestFilterKinds(t *testing.T) {
	events := []Event{
		{ID: "a", Kind: KindPush},
		{ID: "b", Kind: KindStarGiven},
		{ID: "c", Kind: KindPush},
	}

	if got := FilterKinds(events, nil); len(got) != 3 {
		t.Errorf("FilterKinds(nil) kept %d events, want 3", len(got))
	}
	if got := ids(FilterKinds(events, []Kind{KindPush})); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("FilterKinds(push) = %v", got)
	}
}
