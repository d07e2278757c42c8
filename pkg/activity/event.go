package activity

import (
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/activitygraph/pkg/errors"
)

// Lane labels with special meaning in the layout.
const (
	// TrunkLane is the primary source-control lane. Events carrying it
	// together with a repository are grouped into a per-repository sub-lane.
	TrunkLane = "GitHub"

	// RegistryLane is the side lane for package publishes.
	RegistryLane = "npm"

	// MiscLane collects events with neither an explicit lane nor a repository.
	MiscLane = "Misc"
)

// Source identifies the provider an event came from.
type Source string

const (
	SourceGitHub Source = "github"
	SourceNpm    Source = "npm"
)

// precedence orders providers when timestamps tie. Unknown providers sort last.
func (s Source) precedence() int {
	switch s {
	case SourceGitHub:
		return 0
	case SourceNpm:
		return 1
	default:
		return 2
	}
}

// Kind is the semantic type of an event.
type Kind string

const (
	KindPush              Kind = "push"
	KindPullRequestOpened Kind = "pull-request-opened"
	KindPullRequestMerged Kind = "pull-request-merged"
	KindReleasePublished  Kind = "release-published"
	KindForkCreated       Kind = "fork-created"
	KindStarGiven         Kind = "star-given"
	KindIssueOpened       Kind = "issue-opened"
	KindIssueCommented    Kind = "issue-commented"
	KindPackagePublished  Kind = "package-published"
	KindOther             Kind = "other"
)

// Kinds lists every known kind in declaration order.
var Kinds = []Kind{
	KindPush,
	KindPullRequestOpened,
	KindPullRequestMerged,
	KindReleasePublished,
	KindForkCreated,
	KindStarGiven,
	KindIssueOpened,
	KindIssueCommented,
	KindPackagePublished,
	KindOther,
}

// ParseKind converts a string such as "push" into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Kinds, k) {
		return k, nil
	}
	return "", errors.New(errors.ErrCodeInvalidKind, "unknown event kind %q", s)
}

// ParseKinds parses a list of kind names, rejecting the first unknown one.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		k, err := ParseKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Event is the normalized unit of activity shared by all providers.
//
// CreatedAt is the only ordering key. A zero CreatedAt marks a timestamp the
// adapter could not parse; such events sort after every dated event.
type Event struct {
	ID        string    `json:"id"`
	Source    Source    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
	Kind      Kind      `json:"kind"`
	URL       string    `json:"url,omitempty"`
	Repo      string    `json:"repo,omitempty"`
	Lane      string    `json:"lane,omitempty"`
}

// LaneKey resolves the lane an event is drawn in. Precedence:
//
//  1. trunk lane with a repository: the repository sub-lane
//  2. any other explicit lane (including a bare trunk lane)
//  3. the repository
//  4. [MiscLane]
func (e Event) LaneKey() string {
	switch {
	case e.Lane == TrunkLane && e.Repo != "":
		return e.Repo
	case e.Lane != "":
		return e.Lane
	case e.Repo != "":
		return e.Repo
	default:
		return MiscLane
	}
}

// Package is a registry item as produced by the registry adapter.
type Package struct {
	Name            string    `json:"name"`
	Version         string    `json:"version"`
	Description     string    `json:"description,omitempty"`
	PublishedAt     time.Time `json:"published_at,omitzero"`
	URL             string    `json:"url,omitempty"`
	WeeklyDownloads *int64    `json:"weekly_downloads,omitempty"`
}

// Compare orders events newest first with a deterministic tie-break:
// provider precedence, then ID ascending. Undated events sort last.
func Compare(a, b Event) int {
	if c := undatedLast(a, b); c != 0 {
		return c
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return tieBreak(a, b)
}

// CompareAsc orders events oldest first. Ties and undated events are
// handled exactly as in [Compare].
func CompareAsc(a, b Event) int {
	if c := undatedLast(a, b); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return tieBreak(a, b)
}

func undatedLast(a, b Event) int {
	az, bz := a.CreatedAt.IsZero(), b.CreatedAt.IsZero()
	switch {
	case az == bz:
		return 0
	case az:
		return 1
	default:
		return -1
	}
}

func tieBreak(a, b Event) int {
	if pa, pb := a.Source.precedence(), b.Source.precedence(); pa != pb {
		return pa - pb
	}
	return strings.Compare(a.ID, b.ID)
}

// SortNewestFirst sorts events in place with [Compare].
func SortNewestFirst(events []Event) {
	slices.SortStableFunc(events, Compare)
}

// DayKey returns the UTC calendar day of t as YYYY-MM-DD, or "unknown" for
// the zero time.
func DayKey(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(time.DateOnly)
}
