package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/activitygraph/pkg/lanegraph"
	"github.com/matzehuels/activitygraph/pkg/reltime"
)

// DefaultTextWidth is the width of the message column right of the lanes.
const DefaultTextWidth = 480

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	theme     Theme
	now       time.Time
	textWidth float64
	title     string
}

// WithTheme sets the colors of the surrounding chrome. Lane colors always
// come from the graph.
func WithTheme(t Theme) SVGOption { return func(r *svgRenderer) { r.theme = t } }

// WithNow sets the reference time for relative captions. Without it,
// captions show the absolute date.
func WithNow(now time.Time) SVGOption { return func(r *svgRenderer) { r.now = now } }

func WithTextWidth(w float64) SVGOption { return func(r *svgRenderer) { r.textWidth = w } }
func WithTitle(s string) SVGOption      { return func(r *svgRenderer) { r.title = s } }

// RenderSVG draws g as a standalone SVG document: lane labels, lane spans,
// connectors, nodes, date headers and one caption per event. The transcript
// is embedded as the document title and description for screen readers.
func RenderSVG(g *lanegraph.Graph, opts ...SVGOption) []byte {
	r := newSVGRenderer(opts...)
	geo := g.Options.Geometry

	width := g.Width + r.textWidth
	height := g.Height

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f" role="img" aria-labelledby="ag-title ag-desc">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&buf, "  <title id=\"ag-title\">%s</title>\n", escape(r.title))
	fmt.Fprintf(&buf, "  <desc id=\"ag-desc\">%s</desc>\n", escape(strings.Join(g.Transcript, "\n")))
	fmt.Fprintf(&buf, "  <rect width=\"100%%\" height=\"100%%\" fill=\"%s\"/>\n", r.theme.Background)
	renderStyle(&buf, r.theme)

	renderLaneLabels(&buf, g, geo)
	for _, s := range g.Spans {
		fmt.Fprintf(&buf, "  <line class=\"span\" x1=\"%.1f\" y1=\"%.1f\" x2=\"%.1f\" y2=\"%.1f\" stroke=\"%s\"/>\n",
			s.X, s.Y1, s.X, s.Y2, s.Color)
	}
	for _, c := range g.Connectors {
		renderConnector(&buf, c, geo)
	}

	textX := g.Width
	for _, row := range g.Rows {
		switch row.Kind {
		case lanegraph.RowDate:
			fmt.Fprintf(&buf, "  <text class=\"date\" x=\"%.1f\" y=\"%.1f\">%s</text>\n", textX, row.Y+4, escape(row.Day))
		case lanegraph.RowEvent:
			renderEvent(&buf, &r, row, textX, geo)
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	r := svgRenderer{theme: DarkTheme, textWidth: DefaultTextWidth, title: "Activity"}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func renderStyle(buf *bytes.Buffer, t Theme) {
	fmt.Fprintf(buf, `  <style>
    text { font-family: %s; font-size: 12px; fill: %s; }
    .date { font-weight: 600; fill: %s; }
    .lane { font-size: 10px; }
    .caption { fill: %s; font-size: 10px; }
    .span, .connector { stroke-width: 2; fill: none; }
  </style>
`, t.Font, t.Text, t.Muted, t.Muted)
}

func renderLaneLabels(buf *bytes.Buffer, g *lanegraph.Graph, geo lanegraph.Geometry) {
	y := geo.PaddingY + geo.LaneHeader - 6
	for _, l := range g.Lanes {
		fmt.Fprintf(buf, "  <text class=\"lane\" x=\"%.1f\" y=\"%.1f\" transform=\"rotate(-45 %.1f %.1f)\" fill=\"%s\">%s</text>\n",
			l.X, y, l.X, y, l.Color, escape(l.Label))
	}
}

// renderConnector draws a trunk-to-lane stroke that bends into the lane
// just above the node.
func renderConnector(buf *bytes.Buffer, c lanegraph.Connector, geo lanegraph.Geometry) {
	bend := geo.RowHeight / 2
	fmt.Fprintf(buf, "  <path class=\"connector\" d=\"M %.1f %.1f C %.1f %.1f, %.1f %.1f, %.1f %.1f\" stroke=\"%s\"/>\n",
		c.FromX, c.Y-bend, c.FromX, c.Y, c.ToX, c.Y-bend, c.ToX, c.Y, c.Color)
}

func renderEvent(buf *bytes.Buffer, r *svgRenderer, row lanegraph.Row, textX float64, geo lanegraph.Geometry) {
	n := row.Node
	e := row.Event
	if e.URL != "" {
		fmt.Fprintf(buf, "  <a href=\"%s\">\n", escape(e.URL))
	}
	fill := n.Color
	if n.Fallback {
		fill = r.theme.Background
	}
	fmt.Fprintf(buf, "  <circle class=\"node\" cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\" fill=\"%s\" stroke=\"%s\" stroke-width=\"2\"><title>%s</title></circle>\n",
		n.X, n.Y, geo.NodeRadius, fill, n.Color, escape(row.LaneKey))
	fmt.Fprintf(buf, "  <text x=\"%.1f\" y=\"%.1f\">%s <tspan class=\"caption\">%s</tspan></text>\n",
		textX, n.Y+4, escape(e.Message), escape(caption(e.CreatedAt, r.now)))
	if e.URL != "" {
		buf.WriteString("  </a>\n")
	}
}

func caption(t, now time.Time) string {
	if now.IsZero() {
		if t.IsZero() {
			return reltime.Invalid
		}
		return t.UTC().Format("Jan 2, 2006")
	}
	return reltime.Format(t, now)
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
