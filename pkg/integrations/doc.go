// Package integrations provides the HTTP layer shared by the provider clients.
//
// Each provider has its own subpackage:
//
//   - [github]: public user events
//   - [npm]: maintainer search and weekly downloads
//
// # Client Pattern
//
// Provider clients embed [*Client] and follow the same shape:
//
//	gh := github.NewClient(c, token, time.Minute)
//	events, err := gh.UserEvents(ctx, "octocat", 30, false) // false = use cache
//
// [Client] handles:
//   - response caching in a [cache.Cache] under "http:<namespace>:" keys
//   - retries with backoff for 5xx and transport failures
//   - rate-limit detection (429, or 403 with an exhausted quota), surfaced
//     as [errors.RateLimitedError]
//   - observability hooks for every request
//
// [github]: github.com/matzehuels/activitygraph/pkg/integrations/github
// [npm]: github.com/matzehuels/activitygraph/pkg/integrations/npm
// [cache.Cache]: github.com/matzehuels/activitygraph/pkg/cache.Cache
// [errors.RateLimitedError]: github.com/matzehuels/activitygraph/pkg/errors.RateLimitedError
package integrations
