// Package pkg holds the libraries behind activitygraph.
//
// Activitygraph merges a GitHub user's public events and an npm
// maintainer's releases into one timeline and draws it as a commit-graph
// style lane diagram.
//
// # Data flow
//
//	GitHub events API      npm search API
//	        ↓                     ↓
//	 [integrations/github]  [integrations/npm]
//	        ↓                     ↓
//	        [feed] (stale-while-revalidate, persisted in [cache])
//	                   ↓
//	        [activity] (aggregate, sort, filter)
//	                   ↓
//	        [lanegraph] (lanes, rows, connectors)
//	                   ↓
//	        [render/sink] (SVG, DOT, JSON, terminal, transcript)
//
// [integrations/github] and [integrations/npm] talk to the providers.
// [feed] keeps their results fresh on top of [cache]. [activity] merges
// them, [lanegraph] lays them out and [render/sink] draws the result.
//
// [pipeline] runs aggregate → layout → render with caching and is shared
// by the CLI and the HTTP server. [config] loads settings,
// [observability] defines the instrumentation hooks and [reltime]
// formats relative timestamps.
//
// # Testing
//
//	go test ./...                     # unit tests
//	go test -tags integration ./...   # live GitHub and MongoDB tests
//
// [integrations/github]: https://pkg.go.dev/github.com/matzehuels/activitygraph/pkg/integrations/github
// [integrations/npm]: https://pkg.go.dev/github.com/matzehuels/activitygraph/pkg/integrations/npm
// [feed]: https://pkg.go.dev/github.com/matzehuels/activitygraph/pkg/feed
// [cache]: https://pkg.go.dev/github.com/matzehuels/activitygraph/pkg/cache
// [activity]: https://pkg.go.dev/github.com/matzehuels/activitygraph/pkg/activity
// [lanegraph]: https://pkg.go.dev/github.com/matzehuels/activitygraph/pkg/lanegraph
// [render/sink]: https://pkg.go.dev/github.com/matzehuels/activitygraph/pkg/render/sink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/activitygraph/pkg/pipeline
// [config]: https://pkg.go.dev/github.com/matzehuels/activitygraph/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/activitygraph/pkg/observability
// [reltime]: https://pkg.go.dev/github.com/matzehuels/activitygraph/pkg/reltime
package pkg
