package sink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/activitygraph/pkg/lanegraph"
)

// ToDOT converts g to Graphviz DOT. Rows are chained top to bottom with
// invisible edges so Graphviz keeps the chronology; each lane's events are
// joined by visible edges in the lane color. Fallback nodes are dashed.
func ToDOT(g *lanegraph.Graph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph activity {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontcolor=white, fontsize=12, margin=\"0.15,0.05\"];\n")
	buf.WriteString("  edge [arrowhead=none, penwidth=2];\n")
	buf.WriteString("  ranksep=0.2;\n\n")

	var chain []string
	last := map[int]string{}
	var laneEdges []string

	for i, row := range g.Rows {
		id := fmt.Sprintf("r%d", i)
		chain = append(chain, id)
		if row.Kind == lanegraph.RowDate {
			fmt.Fprintf(&buf, "  %q [label=%q, shape=plaintext, style=\"\", fontcolor=\"#7d8590\"];\n", id, row.Day)
			continue
		}
		style := "rounded,filled"
		if row.Node.Fallback {
			style = "rounded,filled,dashed"
		}
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=%q, style=%q, tooltip=%q];\n",
			id, row.Event.Message, row.Node.Color, style, row.LaneKey)
		if row.Lane == nil {
			continue
		}
		if prev, ok := last[row.Lane.Index]; ok {
			laneEdges = append(laneEdges, fmt.Sprintf("  %q -> %q [color=%q];\n", prev, id, row.Lane.Color))
		}
		last[row.Lane.Index] = id
	}

	if len(chain) > 1 {
		buf.WriteString("\n")
		for i := 1; i < len(chain); i++ {
			fmt.Fprintf(&buf, "  %q -> %q [style=invis, weight=10];\n", chain[i-1], chain[i])
		}
	}
	if len(laneEdges) > 0 {
		buf.WriteString("\n")
		for _, e := range laneEdges {
			buf.WriteString(e)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

// RenderGraphviz lays out a DOT graph with Graphviz and returns SVG.
func RenderGraphviz(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with a
// pixel-sized one anchored at the origin.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
