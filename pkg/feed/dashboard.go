package feed

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/activitygraph/pkg/activity"
)

// Dashboard pairs the source-control and registry feeds of one person.
// Either feed may be nil when its identity is not configured.
type Dashboard struct {
	GitHub *Feed[activity.Event]
	Npm    *Feed[activity.Package]
}

// Status is a snapshot of both feeds.
type Status struct {
	GitHub State[activity.Event]   `json:"github"`
	Npm    State[activity.Package] `json:"npm"`
}

// Loading reports whether either feed is fetching.
func (s Status) Loading() bool { return s.GitHub.Loading || s.Npm.Loading }

// Errors returns the non-empty feed errors keyed by provider.
func (s Status) Errors() map[string]string {
	errs := map[string]string{}
	if s.GitHub.Err != "" {
		errs[string(activity.SourceGitHub)] = s.GitHub.Err
	}
	if s.Npm.Err != "" {
		errs[string(activity.SourceNpm)] = s.Npm.Err
	}
	return errs
}

// Events merges both feeds into the aggregated, newest-first sequence.
func (s Status) Events(now time.Time) []activity.Event {
	return activity.Aggregate(s.GitHub.Items, s.Npm.Items, now)
}

// Start starts both feeds concurrently. See [Feed.Start].
func (d *Dashboard) Start(ctx context.Context) Status {
	return d.each(ctx, (*Feed[activity.Event]).Start, (*Feed[activity.Package]).Start)
}

// Refresh refreshes both feeds concurrently. See [Feed.Refresh].
func (d *Dashboard) Refresh(ctx context.Context) Status {
	return d.each(ctx, (*Feed[activity.Event]).Refresh, (*Feed[activity.Package]).Refresh)
}

// Status returns the current snapshot without fetching.
func (d *Dashboard) Status() Status {
	var s Status
	if d.GitHub != nil {
		s.GitHub = d.GitHub.State()
	}
	if d.Npm != nil {
		s.Npm = d.Npm.State()
	}
	return s
}

// Revalidate revalidates both feeds and reports whether any fetch was
// started. See [Feed.Revalidate].
func (d *Dashboard) Revalidate() bool {
	started := false
	if d.GitHub != nil && d.GitHub.Revalidate() {
		started = true
	}
	if d.Npm != nil && d.Npm.Revalidate() {
		started = true
	}
	return started
}

// Poll revalidates both feeds every interval until ctx is done.
func (d *Dashboard) Poll(ctx context.Context, interval time.Duration) {
	g, ctx := errgroup.WithContext(ctx)
	if d.GitHub != nil {
		g.Go(func() error { d.GitHub.Poll(ctx, interval); return nil })
	}
	if d.Npm != nil {
		g.Go(func() error { d.Npm.Poll(ctx, interval); return nil })
	}
	_ = g.Wait()
}

// Close closes both feeds.
func (d *Dashboard) Close() {
	if d.GitHub != nil {
		d.GitHub.Close()
	}
	if d.Npm != nil {
		d.Npm.Close()
	}
}

// Wait waits for background fetches of both feeds.
func (d *Dashboard) Wait() {
	if d.GitHub != nil {
		d.GitHub.Wait()
	}
	if d.Npm != nil {
		d.Npm.Wait()
	}
}

func (d *Dashboard) each(
	ctx context.Context,
	gh func(*Feed[activity.Event], context.Context) State[activity.Event],
	reg func(*Feed[activity.Package], context.Context) State[activity.Package],
) Status {
	var (
		s Status
		g errgroup.Group
	)
	if d.GitHub != nil {
		g.Go(func() error { s.GitHub = gh(d.GitHub, ctx); return nil })
	}
	if d.Npm != nil {
		g.Go(func() error { s.Npm = reg(d.Npm, ctx); return nil })
	}
	_ = g.Wait()
	return s
}
