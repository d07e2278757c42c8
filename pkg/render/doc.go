// Package render groups the output backends of a lane graph.
//
// The renderers live in [sink]: SVG, Graphviz DOT (and Graphviz-rendered
// SVG), JSON, a coloured terminal view and a plain-text transcript. They
// all consume a [lanegraph.Graph] and never re-run the layout.
//
// [sink]: github.com/matzehuels/activitygraph/pkg/render/sink
// [lanegraph.Graph]: github.com/matzehuels/activitygraph/pkg/lanegraph
package render
