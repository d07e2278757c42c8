package lanegraph

import (
	"encoding/json"
	"strings"

	"github.com/matzehuels/activitygraph/pkg/activity"
	"github.com/matzehuels/activitygraph/pkg/errors"
)

// Orientation selects the chronological direction of the rows.
type Orientation string

const (
	// Desc lists the newest event first. This is the default.
	Desc Orientation = "desc"
	// Asc lists the oldest event first.
	Asc Orientation = "asc"
)

// ParseOrientation converts "asc" or "desc" (case-insensitive) into an
// Orientation. The empty string yields [Desc].
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Desc):
		return Desc, nil
	case string(Asc):
		return Asc, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidOrientation, "orientation must be asc or desc, got %q", s)
	}
}

// DefaultMaxLanes is the lane cap used when Options.MaxLanes is not positive.
const DefaultMaxLanes = 8

// Options configures [Build].
type Options struct {
	MaxLanes    int         `json:"max_lanes"`
	Orientation Orientation `json:"orientation"`
	DateHeaders bool        `json:"date_headers"`
	Geometry    Geometry    `json:"geometry"`
}

// DefaultOptions returns the layout used by the dashboard: eight lanes,
// newest first, with date headers.
func DefaultOptions() Options {
	return Options{
		MaxLanes:    DefaultMaxLanes,
		Orientation: Desc,
		DateHeaders: true,
		Geometry:    DefaultGeometry(),
	}
}

func (o Options) withDefaults() Options {
	if o.MaxLanes <= 0 {
		o.MaxLanes = DefaultMaxLanes
	}
	if o.Orientation != Asc {
		o.Orientation = Desc
	}
	o.Geometry = o.Geometry.withDefaults()
	return o
}

// Lane is a rendering track.
type Lane struct {
	Label string  `json:"label"`
	Color string  `json:"color"`
	Index int     `json:"index"`
	X     float64 `json:"x"`
}

// RowKind distinguishes date headers from event rows.
type RowKind string

const (
	RowDate  RowKind = "date"
	RowEvent RowKind = "event"
)

// Row is one position in the flat row sequence.
//
// Date rows carry only Day and Y. Event rows carry the event, its resolved
// lane key, and the lane it is drawn in. Lane is nil when the lane was cut by
// MaxLanes; the node then sits on the trunk and Node.Fallback is set.
type Row struct {
	Kind      RowKind         `json:"kind"`
	Day       string          `json:"day"`
	Y         float64         `json:"y"`
	Event     *activity.Event `json:"event,omitempty"`
	LaneKey   string          `json:"lane_key,omitempty"`
	LaneIndex int             `json:"lane_index"`
	Node      *Node           `json:"node,omitempty"`

	Lane *Lane `json:"-"`
}

// Node is the drawn dot of an event row.
type Node struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Color    string  `json:"color"`
	Fallback bool    `json:"fallback,omitempty"`
}

// Connector is the horizontal stroke joining the trunk to a node in another lane.
type Connector struct {
	Row       int     `json:"row"`
	LaneIndex int     `json:"lane_index"`
	FromX     float64 `json:"from_x"`
	ToX       float64 `json:"to_x"`
	Y         float64 `json:"y"`
	Color     string  `json:"color"`
}

// Span is the vertical stroke of a lane between its first and last node.
type Span struct {
	LaneIndex int     `json:"lane_index"`
	X         float64 `json:"x"`
	Y1        float64 `json:"y1"`
	Y2        float64 `json:"y2"`
	Color     string  `json:"color"`
}

// Graph is the renderable output of [Build].
type Graph struct {
	Lanes      []*Lane     `json:"lanes"`
	Rows       []Row       `json:"rows"`
	Connectors []Connector `json:"connectors"`
	Spans      []Span      `json:"spans"`
	Transcript []string    `json:"transcript"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Options    Options     `json:"options"`
}

// Trunk returns the trunk lane, or nil for an empty graph.
func (g *Graph) Trunk() *Lane {
	if len(g.Lanes) == 0 {
		return nil
	}
	return g.Lanes[0]
}

// Lane returns the lane with the given label, or nil.
func (g *Graph) Lane(label string) *Lane {
	for _, l := range g.Lanes {
		if l.Label == label {
			return l
		}
	}
	return nil
}

// EventCount returns the number of event rows.
func (g *Graph) EventCount() int {
	n := 0
	for _, r := range g.Rows {
		if r.Kind == RowEvent {
			n++
		}
	}
	return n
}

// DateCount returns the number of date header rows.
func (g *Graph) DateCount() int {
	return len(g.Rows) - g.EventCount()
}

// MarshalGraph serializes g as JSON.
func MarshalGraph(g *Graph) ([]byte, error) {
	return json.Marshal(g)
}

// UnmarshalGraph parses JSON produced by [MarshalGraph] and relinks every
// row to the shared lane it references.
func UnmarshalGraph(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	for i := range g.Rows {
		r := &g.Rows[i]
		if r.Kind == RowEvent && r.LaneIndex >= 0 && r.LaneIndex < len(g.Lanes) {
			r.Lane = g.Lanes[r.LaneIndex]
		}
	}
	return &g, nil
}
