package battleship

import (
	"math/rand"

	cerr "github.com/saeidalz13/battleship-link/internal/error"
)

// Boat lengths placed in order during setup. Their cells add up to MaxHits.
var BoatLengths = []uint8{3, 3, 2}

// Boat is a vertical run of cells starting at Bow and extending downwards.
type Boat struct {
	Bow    Coordinates
	Length uint8
}

func NewBoat(bow Coordinates, length uint8) Boat {
	return Boat{Bow: bow, Length: length}
}

func (b Boat) Cells() []Coordinates {
	cells := make([]Coordinates, 0, b.Length)
	for i := uint8(0); i < b.Length; i++ {
		cells = append(cells, NewCoordinates(b.Bow.X, b.Bow.Y+i))
	}
	return cells
}

// LayoutFromBoats expands boats into the cell layout recorded on the board.
// Boats must stay on the grid and must not overlap.
func LayoutFromBoats(boats []Boat) ([]Coordinates, error) {
	layout := make([]Coordinates, 0, MaxHits)
	taken := make(map[Coordinates]bool, MaxHits)

	for _, boat := range boats {
		for _, c := range boat.Cells() {
			if !c.InBounds() {
				return nil, cerr.ErrXorYOutOfGridBound(c.X, c.Y)
			}
			if taken[c] {
				return nil, cerr.ErrBoatOverlap(c.X, c.Y)
			}
			taken[c] = true
			layout = append(layout, c)
		}
	}

	if len(layout) > MaxHits {
		return nil, cerr.ErrLayoutTooLarge(len(layout), MaxHits)
	}
	return layout, nil
}

// RandomLayout places BoatLengths at random legal positions.
func RandomLayout(r *rand.Rand) []Coordinates {
	for {
		boats := make([]Boat, 0, len(BoatLengths))
		for _, length := range BoatLengths {
			x := uint8(r.Intn(int(GridColumns)))
			y := uint8(r.Intn(int(GridRows - length + 1)))
			boats = append(boats, NewBoat(NewCoordinates(x, y), length))
		}

		// overlapping draws are simply retried
		if layout, err := LayoutFromBoats(boats); err == nil {
			return layout
		}
	}
}
