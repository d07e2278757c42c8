package sink

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/matzehuels/activitygraph/pkg/lanegraph"
)

// TextOptions configures [RenderText].
type TextOptions struct {
	// Now is the reference time for relative captions. Zero omits them.
	Now time.Time

	// NoColor disables ANSI colors regardless of the terminal.
	NoColor bool

	// ForceColor emits true-color ANSI sequences even when w is not a
	// terminal. NoColor wins if both are set.
	ForceColor bool
}

const (
	glyphNode     = "●"
	glyphFallback = "○"
	glyphSpan     = "│"
	glyphBranch   = "├"
	glyphCross    = "┼"
	glyphRun      = "─"
)

// RenderText writes g to w as a terminal graph, one line per row. Lane
// columns come first, followed by the event message and its caption.
func RenderText(w io.Writer, g *lanegraph.Graph, opts TextOptions) error {
	r := lipgloss.NewRenderer(w)
	switch {
	case opts.NoColor:
		r.SetColorProfile(termenv.Ascii)
	case opts.ForceColor:
		r.SetColorProfile(termenv.TrueColor)
	}
	muted := r.NewStyle().Foreground(lipgloss.Color(DarkTheme.Muted))
	date := r.NewStyle().Bold(true)
	colors := make([]lipgloss.Style, len(g.Lanes))
	for i, l := range g.Lanes {
		colors[i] = r.NewStyle().Foreground(lipgloss.Color(l.Color))
	}

	bw := bufio.NewWriter(w)
	for _, row := range g.Rows {
		var line strings.Builder
		if row.Kind == lanegraph.RowDate {
			line.WriteString(laneCells(g, row, colors))
			line.WriteString(" ")
			line.WriteString(date.Render(row.Day))
		} else {
			line.WriteString(laneCells(g, row, colors))
			line.WriteString(" ")
			line.WriteString(row.Event.Message)
			if !opts.Now.IsZero() {
				line.WriteString(" ")
				line.WriteString(muted.Render(caption(row.Event.CreatedAt, opts.Now)))
			}
		}
		bw.WriteString(strings.TrimRight(line.String(), " "))
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// laneCells renders the lane columns of one row. Columns are separated by
// one character that carries the connector run.
func laneCells(g *lanegraph.Graph, row lanegraph.Row, colors []lipgloss.Style) string {
	target := -1 // lane of the node
	if row.Kind == lanegraph.RowEvent {
		target = 0
		if row.Lane != nil {
			target = row.Lane.Index
		}
	}

	var b strings.Builder
	for i := range g.Lanes {
		covered := spanCovers(g, i, row.Y)
		cell := " "
		switch {
		case i == target && row.Node.Fallback:
			cell = glyphFallback
		case i == target:
			cell = glyphNode
		case target > 0 && i == 0 && covered:
			cell = glyphBranch
		case target > 0 && i < target && covered:
			cell = glyphCross
		case target > 0 && i < target:
			cell = glyphRun
		case covered:
			cell = glyphSpan
		}

		color := colors[i]
		if target > 0 && i < target && !covered {
			color = colors[target]
		}
		b.WriteString(color.Render(cell))

		if i == len(g.Lanes)-1 {
			break
		}
		sep := " "
		if target > 0 && i < target {
			sep = colors[target].Render(glyphRun)
		}
		b.WriteString(sep)
	}
	return b.String()
}

func spanCovers(g *lanegraph.Graph, lane int, y float64) bool {
	for _, s := range g.Spans {
		if s.LaneIndex == lane {
			return s.Y1 <= y && y <= s.Y2
		}
	}
	return false
}

// RenderTranscript returns the plain-text transcript of g, one event per line.
func RenderTranscript(g *lanegraph.Graph) []byte {
	if len(g.Transcript) == 0 {
		return nil
	}
	return []byte(strings.Join(g.Transcript, "\n") + "\n")
}
