package lanegraph

// Geometry controls the coordinates computed for lanes, rows and nodes.
// All values are in abstract pixels; zero fields take the defaults below.
type Geometry struct {
	LaneGap      float64 `json:"lane_gap"`      // horizontal distance between lanes
	RowHeight    float64 `json:"row_height"`    // height of an event row
	HeaderHeight float64 `json:"header_height"` // height of a date header row
	LaneHeader   float64 `json:"lane_header"`   // band above the first row for lane labels
	PaddingX     float64 `json:"padding_x"`
	PaddingY     float64 `json:"padding_y"`
	NodeRadius   float64 `json:"node_radius"`
}

// DefaultGeometry returns the geometry used when none is configured.
func DefaultGeometry() Geometry {
	return Geometry{
		LaneGap:      24,
		RowHeight:    28,
		HeaderHeight: 24,
		LaneHeader:   32,
		PaddingX:     16,
		PaddingY:     16,
		NodeRadius:   5,
	}
}

func (g Geometry) withDefaults() Geometry {
	d := DefaultGeometry()
	if g.LaneGap <= 0 {
		g.LaneGap = d.LaneGap
	}
	if g.RowHeight <= 0 {
		g.RowHeight = d.RowHeight
	}
	if g.HeaderHeight <= 0 {
		g.HeaderHeight = d.HeaderHeight
	}
	if g.LaneHeader <= 0 {
		g.LaneHeader = d.LaneHeader
	}
	if g.PaddingX <= 0 {
		g.PaddingX = d.PaddingX
	}
	if g.PaddingY <= 0 {
		g.PaddingY = d.PaddingY
	}
	if g.NodeRadius <= 0 {
		g.NodeRadius = d.NodeRadius
	}
	return g
}

func (g Geometry) laneX(index int) float64 {
	return g.PaddingX + float64(index)*g.LaneGap
}
