package activity

import (
	"strings"
	"time"
)

// npmPackageURL is the fallback link for packages without a registry URL.
const npmPackageURL = "https://www.npmjs.com/package/"

// Aggregate merges source-control events and registry packages into one
// sequence ordered newest first (see [Compare]).
//
// Source-control events are copied with the trunk lane applied and their IDs
// namespaced with "github:". Each package becomes a package-published event
// on the registry lane; a package without a publish date is dated now.
// The inputs are never modified.
func Aggregate(events []Event, pkgs []Package, now time.Time) []Event {
	out := make([]Event, 0, len(events)+len(pkgs))
	for _, e := range events {
		e.Lane = TrunkLane
		if e.Source == "" {
			e.Source = SourceGitHub
		}
		e.ID = namespaced(e.Source, e.ID)
		out = append(out, e)
	}
	for _, p := range pkgs {
		out = append(out, PublishEvent(p, now))
	}
	SortNewestFirst(out)
	return out
}

// PublishEvent synthesizes the package-published event for p. The ID is
// derived from name, version and publish date so it is stable across fetches.
func PublishEvent(p Package, now time.Time) Event {
	date := "undated"
	created := now
	if !p.PublishedAt.IsZero() {
		date = p.PublishedAt.UTC().Format(time.RFC3339)
		created = p.PublishedAt
	}
	url := p.URL
	if url == "" {
		url = npmPackageURL + p.Name
	}
	return Event{
		ID:        string(SourceNpm) + ":" + p.Name + "@" + p.Version + ":" + date,
		Source:    SourceNpm,
		CreatedAt: created,
		Message:   "Published " + p.Name + "@" + p.Version,
		Kind:      KindPackagePublished,
		URL:       url,
		Lane:      RegistryLane,
	}
}

func namespaced(src Source, id string) string {
	prefix := string(src) + ":"
	if strings.HasPrefix(id, prefix) {
		return id
	}
	return prefix + id
}

// FilterKinds returns the events whose kind is in kinds. An empty kinds list
// keeps everything.
func FilterKinds(events []Event, kinds []Kind) []Event {
	if len(kinds) == 0 {
		return events
	}
	allowed := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	var out []Event
	for _, e := range events {
		if allowed[e.Kind] {
			out = append(out, e)
		}
	}
	return out
}
