package lanegraph

import (
	"fmt"
	"slices"
	"time"

	"github.com/matzehuels/activitygraph/pkg/activity"
)

// Build lays out events as a lane graph.
//
// Events are ordered by [activity.Compare] (or [activity.CompareAsc] for
// [Asc]), lanes are assigned trunk first, then repository sub-lanes, then
// other explicit lanes, each in order of first appearance, and truncated to
// MaxLanes. Events whose lane was truncated still produce rows.
//
// Build is pure: it never mutates events and returns structurally identical
// graphs for identical inputs. An empty input yields a graph without lanes
// or rows.
func Build(events []activity.Event, opts Options) *Graph {
	opts = opts.withDefaults()
	geo := opts.Geometry
	g := &Graph{Options: opts}
	if len(events) == 0 {
		g.Width = 2 * geo.PaddingX
		g.Height = 2 * geo.PaddingY
		return g
	}

	ordered := slices.Clone(events)
	if opts.Orientation == Asc {
		slices.SortStableFunc(ordered, activity.CompareAsc)
	} else {
		slices.SortStableFunc(ordered, activity.Compare)
	}

	labels := laneLabels(ordered)
	if len(labels) > opts.MaxLanes {
		labels = labels[:opts.MaxLanes]
	}
	byLabel := make(map[string]*Lane, len(labels))
	for i, label := range labels {
		l := &Lane{Label: label, Color: ColorForLane(i), Index: i, X: geo.laneX(i)}
		g.Lanes = append(g.Lanes, l)
		byLabel[label] = l
	}
	trunk := g.Lanes[0]

	spans := make([]*Span, len(g.Lanes))
	y := geo.PaddingY + geo.LaneHeader
	prevDay, first := "", true

	for i := range ordered {
		e := &ordered[i]
		if opts.DateHeaders {
			if day := activity.DayKey(e.CreatedAt); first || day != prevDay {
				g.Rows = append(g.Rows, Row{Kind: RowDate, Day: day, Y: y + geo.HeaderHeight/2, LaneIndex: -1})
				y += geo.HeaderHeight
				prevDay = day
			}
		}
		first = false

		key := e.LaneKey()
		lane := byLabel[key]
		node := &Node{X: trunk.X, Y: y + geo.RowHeight/2, Color: trunk.Color, Fallback: lane == nil}
		laneIndex := -1
		if lane != nil {
			node.X, node.Color, laneIndex = lane.X, lane.Color, lane.Index
		}
		y += geo.RowHeight

		g.Rows = append(g.Rows, Row{
			Kind:      RowEvent,
			Day:       activity.DayKey(e.CreatedAt),
			Y:         node.Y,
			Event:     e,
			LaneKey:   key,
			LaneIndex: laneIndex,
			Node:      node,
			Lane:      lane,
		})
		g.Transcript = append(g.Transcript, transcriptLine(*e, key))

		if lane != nil && lane.Index > 0 {
			g.Connectors = append(g.Connectors, Connector{
				Row:       len(g.Rows) - 1,
				LaneIndex: lane.Index,
				FromX:     trunk.X,
				ToX:       lane.X,
				Y:         node.Y,
				Color:     lane.Color,
			})
		}
		extend(spans, trunk, node.Y)
		if lane != nil {
			extend(spans, lane, node.Y)
		}
	}

	for _, s := range spans {
		if s != nil {
			g.Spans = append(g.Spans, *s)
		}
	}
	g.Width = 2*geo.PaddingX + float64(len(g.Lanes)-1)*geo.LaneGap
	g.Height = y + geo.PaddingY
	return g
}

// laneLabels walks the ordered events once and returns the deduplicated
// lane labels: trunk, trunk repositories, other explicit lanes.
func laneLabels(events []activity.Event) []string {
	seen := map[string]bool{activity.TrunkLane: true}
	var repos, others []string
	for _, e := range events {
		key := e.LaneKey()
		if seen[key] {
			continue
		}
		switch {
		case e.Repo != "" && (e.Lane == activity.TrunkLane || e.Lane == ""):
			repos = append(repos, key)
		case e.Lane != "":
			others = append(others, key)
		default:
			continue
		}
		seen[key] = true
	}
	labels := make([]string, 0, 1+len(repos)+len(others))
	labels = append(labels, activity.TrunkLane)
	labels = append(labels, repos...)
	return append(labels, others...)
}

func extend(spans []*Span, l *Lane, y float64) {
	s := spans[l.Index]
	if s == nil {
		spans[l.Index] = &Span{LaneIndex: l.Index, X: l.X, Y1: y, Y2: y, Color: l.Color}
		return
	}
	s.Y1 = min(s.Y1, y)
	s.Y2 = max(s.Y2, y)
}

func transcriptLine(e activity.Event, key string) string {
	stamp := "unknown"
	if !e.CreatedAt.IsZero() {
		stamp = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s – %s: %s", stamp, key, e.Message)
}
