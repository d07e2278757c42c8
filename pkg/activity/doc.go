// Package activity defines the normalized activity event and the aggregator
// that merges provider feeds into one timeline.
//
// # Events
//
// Every provider adapter produces [Event] values: an ID, a timestamp, a
// pre-rendered message, a [Kind] tag and optional repository, URL and lane.
// Registry adapters produce [Package] values instead, which [Aggregate]
// turns into package-published events.
//
// # Lanes
//
// [Event.LaneKey] resolves the lane an event belongs to. Source-control
// events carry [TrunkLane] and group by repository; registry events carry
// [RegistryLane]; anything else falls back to its repository or [MiscLane].
//
// # Ordering
//
// [Compare] is the single ordering used across the module: newest first,
// ties broken by provider (github before npm) and then ID, undated events
// last. The layout engine uses [CompareAsc] for oldest-first views.
//
//	events := activity.Aggregate(githubEvents, npmPackages, time.Now())
//	for _, e := range events {
//	    fmt.Println(e.CreatedAt, e.LaneKey(), e.Message)
//	}
package activity
