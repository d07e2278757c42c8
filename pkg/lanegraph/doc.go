// Package lanegraph lays out an activity timeline as a lane-based commit graph.
//
// # Overview
//
// [Build] takes the aggregated event list and produces a [Graph]: the lanes
// (trunk, repository sub-lanes, side lanes such as npm), a flat sequence of
// rows (date headers and events), and the geometry a renderer needs to draw
// nodes, horizontal connectors and vertical lane spans.
//
// # Lanes
//
// The trunk lane ([activity.TrunkLane]) is always first. Repository
// sub-lanes follow in order of first appearance in the oriented event list,
// then other explicit lanes. The lane list is capped by Options.MaxLanes;
// events of a dropped lane keep their row and are drawn on the trunk.
//
// Colors come from [Palette] by lane index, so a lane's color depends only
// on its position:
//
//	ColorForLane(i) == ColorForLane(i + len(Palette))
//
// # Rows
//
// With Options.DateHeaders a [RowDate] row is emitted before the first event
// of each UTC calendar day. Every [RowEvent] row references its lane by
// pointer into Graph.Lanes, so all rows of a lane agree on label, color and
// index.
//
// # Transcript
//
// Graph.Transcript holds one plain-text line per event row, in row order,
// for screen readers and text-only consumers:
//
//	2024-05-10T09:00:00Z – octo/app: Pushed 2 commits to main
package lanegraph
