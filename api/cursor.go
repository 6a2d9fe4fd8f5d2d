package api

import (
	mb "github.com/saeidalz13/battleship-link/models/battleship"
)

type Direction uint8

const (
	North Direction = iota
	East
	South
	West
)

// Cursor is a cell selector driven by a four-way switch. Span is how many
// cells it covers downwards, so a boat being placed never leaves the grid.
type Cursor struct {
	pos  mb.Coordinates
	span uint8
}

func NewCursor(span uint8) *Cursor {
	if span == 0 {
		span = 1
	}
	return &Cursor{span: span}
}

func (c *Cursor) Position() mb.Coordinates {
	return c.pos
}

func (c *Cursor) Move(d Direction) {
	switch d {
	case North:
		if c.pos.Y > 0 {
			c.pos.Y--
		}
	case South:
		if c.pos.Y+c.span < mb.GridRows {
			c.pos.Y++
		}
	case East:
		if c.pos.X < mb.ValidUpperBoundX {
			c.pos.X++
		}
	case West:
		if c.pos.X > 0 {
			c.pos.X--
		}
	}
}

// setSpan changes the covered length and pulls the cursor back on the grid.
func (c *Cursor) setSpan(span uint8) {
	c.span = span
	if c.pos.Y+span > mb.GridRows {
		c.pos.Y = mb.GridRows - span
	}
}

// BoatPlacer places mb.BoatLengths one after the other with a cursor. A push
// on a spot overlapping an earlier boat is ignored.
type BoatPlacer struct {
	cursor *Cursor
	boats  []mb.Boat
}

func NewBoatPlacer() *BoatPlacer {
	return &BoatPlacer{
		cursor: NewCursor(mb.BoatLengths[0]),
		boats:  make([]mb.Boat, 0, len(mb.BoatLengths)),
	}
}

func (bp *BoatPlacer) Move(d Direction) {
	bp.cursor.Move(d)
}

// Push places the boat under the cursor. It reports the full layout once the
// last boat is down.
func (bp *BoatPlacer) Push() ([]mb.Coordinates, bool) {
	if bp.Done() {
		return nil, false
	}

	boat := mb.NewBoat(bp.cursor.Position(), mb.BoatLengths[len(bp.boats)])
	if _, err := mb.LayoutFromBoats(append(bp.Boats(), boat)); err != nil {
		return nil, false
	}
	bp.boats = append(bp.boats, boat)

	if !bp.Done() {
		bp.cursor.setSpan(mb.BoatLengths[len(bp.boats)])
		return nil, false
	}

	layout, err := mb.LayoutFromBoats(bp.boats)
	if err != nil {
		return nil, false
	}
	return layout, true
}

func (bp *BoatPlacer) Done() bool {
	return len(bp.boats) == len(mb.BoatLengths)
}

// Boats returns a copy of the boats placed so far.
func (bp *BoatPlacer) Boats() []mb.Boat {
	boats := make([]mb.Boat, len(bp.boats))
	copy(boats, bp.boats)
	return boats
}

// Pending is the boat that a push would place now.
func (bp *BoatPlacer) Pending() (mb.Boat, bool) {
	if bp.Done() {
		return mb.Boat{}, false
	}
	return mb.NewBoat(bp.cursor.Position(), mb.BoatLengths[len(bp.boats)]), true
}

func (bp *BoatPlacer) Reset() {
	bp.boats = bp.boats[:0]
	bp.cursor = NewCursor(mb.BoatLengths[0])
}
