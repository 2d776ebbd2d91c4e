package domain

// Point is a single coordinate sample on a drawn path.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StrokeFragment is what a client sends while drawing: a slice of points
// belonging to the path identified by PathID. Consecutive fragments with
// the same PathID extend one stroke; a new PathID starts a new stroke.
type StrokeFragment struct {
	ArtifactID string  `json:"artifact"`
	PathID     string  `json:"path"`
	Color      string  `json:"color"`
	Width      float64 `json:"width"`
	Mode       string  `json:"mode"` // "draw" or "erase"
	Points     []Point `json:"points"`
}

// Stroke is an accumulated path in the ephemeral draw cache. Strokes are
// process-memory only and are lost on restart; they are a live overlay,
// not durable content.
type Stroke struct {
	PathID string  `json:"path"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Mode   string  `json:"mode"`
	Points []Point `json:"points"`
}
