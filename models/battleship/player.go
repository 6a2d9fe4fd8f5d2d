package battleship

import (
	cerr "github.com/saeidalz13/battleship-link/internal/error"
)

// Both the own layout and the winning hit count are capped by the number of
// boat cells a player places.
const MaxHits = 8

// Board is the local player's occupied cells. It is recorded once per game
// and only read afterwards.
type Board struct {
	occupied []Coordinates
}

func NewBoard() *Board {
	return &Board{occupied: make([]Coordinates, 0, MaxHits)}
}

func (b *Board) RecordOwnLayout(cells []Coordinates) error {
	if len(cells) > MaxHits {
		return cerr.ErrLayoutTooLarge(len(cells), MaxHits)
	}

	seen := make(map[Coordinates]bool, len(cells))
	for _, c := range cells {
		if !c.InBounds() {
			return cerr.ErrXorYOutOfGridBound(c.X, c.Y)
		}
		if seen[c] {
			return cerr.ErrLayoutCellRepeated(c.X, c.Y)
		}
		seen[c] = true
	}

	b.occupied = append(b.occupied[:0], cells...)
	return nil
}

func (b *Board) IsOccupied(c Coordinates) bool {
	return contains(b.occupied, c)
}

// Layout returns a copy of the occupied cells in recorded order.
func (b *Board) Layout() []Coordinates {
	return append([]Coordinates(nil), b.occupied...)
}

func (b *Board) Clear() {
	b.occupied = b.occupied[:0]
}

// Ledger tracks the hits the local player confirmed against the opponent and
// the hits the opponent confirmed against us.
type Ledger struct {
	hits         []Coordinates
	opponentHits []Coordinates
}

func NewLedger() *Ledger {
	return &Ledger{
		hits:         make([]Coordinates, 0, MaxHits),
		opponentHits: make([]Coordinates, 0, MaxHits),
	}
}

func (l *Ledger) HasHit(c Coordinates) bool {
	return contains(l.hits, c)
}

// RecordHit stores a confirmed hit. A coordinate already recorded is ignored.
func (l *Ledger) RecordHit(c Coordinates) {
	if l.HasHit(c) || len(l.hits) == MaxHits {
		return
	}
	l.hits = append(l.hits, c)
}

// RecordOpponentHit counts a hit against our board once per coordinate, so a
// retransmitted request does not score twice. It reports whether the count
// changed.
func (l *Ledger) RecordOpponentHit(c Coordinates) bool {
	if contains(l.opponentHits, c) {
		return false
	}
	l.opponentHits = append(l.opponentHits, c)
	return true
}

func (l *Ledger) HitCount() int {
	return len(l.hits)
}

func (l *Ledger) OpponentHitCount() int {
	return len(l.opponentHits)
}

func (l *Ledger) Hits() []Coordinates {
	return append([]Coordinates(nil), l.hits...)
}

func (l *Ledger) OpponentHits() []Coordinates {
	return append([]Coordinates(nil), l.opponentHits...)
}

func (l *Ledger) IsWinner() bool {
	return len(l.hits) >= MaxHits
}

func (l *Ledger) IsLoser() bool {
	return len(l.opponentHits) >= MaxHits
}

func (l *Ledger) Reset() {
	l.hits = l.hits[:0]
	l.opponentHits = l.opponentHits[:0]
}

func contains(cells []Coordinates, c Coordinates) bool {
	for _, cell := range cells {
		if cell == c {
			return true
		}
	}
	return false
}
