// Package feed serves provider data with stale-while-revalidate semantics.
//
// A [Feed] persists the last successful fetch of one provider for one
// identity in a [cache.Cache]. On [Feed.Start] persisted data is shown
// immediately; data older than the TTL is revalidated in the background.
// Network cycles are deduplicated, so a burst of refreshes costs one
// request.
//
//	gh := feed.New[activity.Event](feed.GitHubSource{Client: client}, feed.Options[activity.Event]{
//		Identity: "octocat",
//		Limit:    30,
//		TTL:      5 * time.Minute,
//		Cache:    c,
//	})
//	defer gh.Close()
//	st := gh.Start(ctx)
package feed
