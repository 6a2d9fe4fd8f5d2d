package battleship

import "fmt"

const (
	GridColumns uint8 = 5
	GridRows    uint8 = 7

	ValidUpperBoundX uint8 = GridColumns - 1
	ValidUpperBoundY uint8 = GridRows - 1
)

type Coordinates struct {
	X uint8 `json:"x"`
	Y uint8 `json:"y"`
}

func NewCoordinates(x, y uint8) Coordinates {
	return Coordinates{X: x, Y: y}
}

func (c Coordinates) InBounds() bool {
	return c.X <= ValidUpperBoundX && c.Y <= ValidUpperBoundY
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// All returns every cell of the grid, row by row.
func All() []Coordinates {
	cells := make([]Coordinates, 0, int(GridColumns)*int(GridRows))
	for y := uint8(0); y < GridRows; y++ {
		for x := uint8(0); x < GridColumns; x++ {
			cells = append(cells, NewCoordinates(x, y))
		}
	}
	return cells
}
