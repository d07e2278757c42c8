// Package sink renders lane graphs.
//
// Every renderer takes a [lanegraph.Graph] and never recomputes the layout:
//
//   - [RenderSVG]: standalone SVG with lane labels, connectors and captions
//   - [ToDOT] and [RenderGraphviz]: a Graphviz view of the same rows
//   - [RenderText]: a colored terminal graph using lipgloss
//   - [RenderJSON] and [RenderTranscript]: machine and screen-reader output
package sink
