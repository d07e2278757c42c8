package feed

import (
	"context"
	"slices"

	"github.com/matzehuels/activitygraph/pkg/activity"
	"github.com/matzehuels/activitygraph/pkg/integrations/github"
	"github.com/matzehuels/activitygraph/pkg/integrations/npm"
)

// GitHubSource fetches a user's public events.
type GitHubSource struct {
	Client *github.Client
}

func (GitHubSource) Name() string { return string(activity.SourceGitHub) }

func (s GitHubSource) Fetch(ctx context.Context, q Query) ([]activity.Event, error) {
	return s.Client.FetchEvents(ctx, q.Identity, q.Limit, q.Force)
}

// NpmSource fetches the packages of an npm maintainer.
type NpmSource struct {
	Client *npm.Client
}

func (NpmSource) Name() string { return string(activity.SourceNpm) }

func (s NpmSource) Fetch(ctx context.Context, q Query) ([]activity.Package, error) {
	return s.Client.SearchMaintainer(ctx, q.Identity, q.Limit, q.Force)
}

// KindFilter returns a filter keeping events of the given kinds, or nil
// (keep everything) when kinds is empty.
func KindFilter(kinds []activity.Kind) func(activity.Event) bool {
	if len(kinds) == 0 {
		return nil
	}
	kinds = slices.Clone(kinds)
	return func(e activity.Event) bool {
		return slices.Contains(kinds, e.Kind)
	}
}
