package canvas

import (
	"errors"
	"regexp"
	"time"
)

// ErrOutOfBounds is returned when a coordinate falls outside the canvas grid.
var ErrOutOfBounds = errors.New("coordinate out of bounds")

// ErrInvalidColor is returned when a color is not a 6-digit hex string.
var ErrInvalidColor = errors.New("invalid color")

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidColor reports whether s is a "#RRGGBB" hex color.
func ValidColor(s string) bool {
	return colorPattern.MatchString(s)
}

// Placement is one immutable placement fact: an actor set one grid cell to
// one color at one instant. AddedID is assigned by the store on insert and
// is the authoritative secondary order for placements sharing a timestamp.
type Placement struct {
	AddedID   int64     `json:"added_id"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Color     string    `json:"color"`
	ActorID   *string   `json:"userId"` // nil for system/bot placements
	CreatedAt time.Time `json:"createdAt"`
}

// WriteRequest is what the accept pipeline provides to append a placement.
type WriteRequest struct {
	X       int
	Y       int
	Color   string
	ActorID *string
}

// Cell is the derived latest state of one grid position: the placement with
// the maximum (created_at, added_id) among all placements at (x, y).
type Cell struct {
	X             int       `json:"x"`
	Y             int       `json:"y"`
	Color         string    `json:"color"`
	LastWriterID  *string   `json:"userId"`
	LastWriteTime time.Time `json:"createdAt"`
}

// Bounds is the process-wide canvas geometry, fixed at start-up.
// The drawable grid is Cols() x Rows() cells of CellSize pixels each.
type Bounds struct {
	Width    int
	Height   int
	CellSize int
}

func (b Bounds) Cols() int { return b.Width / b.CellSize }

func (b Bounds) Rows() int { return b.Height / b.CellSize }

// Contains reports whether (x, y) addresses a cell inside the grid.
func (b Bounds) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Cols() && y < b.Rows()
}

// Validate checks a write request against the grid and color rules.
func (b Bounds) Validate(req WriteRequest) error {
	if !ValidColor(req.Color) {
		return ErrInvalidColor
	}
	if !b.Contains(req.X, req.Y) {
		return ErrOutOfBounds
	}
	return nil
}
