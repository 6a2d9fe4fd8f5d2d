package api

import (
	"math/rand"

	mb "github.com/saeidalz13/battleship-link/models/battleship"
)

// AutoPlayer places a random fleet and fires at random cells it has not
// tried yet, after thinking for a number of ticks each time.
type AutoPlayer struct {
	rng       *rand.Rand
	think     int
	idleTicks int
	untried   []mb.Coordinates
}

func NewAutoPlayer(rng *rand.Rand, thinkTicks int) *AutoPlayer {
	return &AutoPlayer{rng: rng, think: thinkTicks}
}

func (ap *AutoPlayer) thinking() bool {
	ap.idleTicks++
	if ap.idleTicks <= ap.think {
		return true
	}
	ap.idleTicks = 0
	return false
}

// PlacementComplete starts a new game for the player: every cell is
// untried again.
func (ap *AutoPlayer) PlacementComplete() ([]mb.Coordinates, bool) {
	if ap.thinking() {
		return nil, false
	}

	ap.shuffle()
	return mb.RandomLayout(ap.rng), true
}

func (ap *AutoPlayer) shuffle() {
	ap.untried = mb.All()
	ap.rng.Shuffle(len(ap.untried), func(i, j int) {
		ap.untried[i], ap.untried[j] = ap.untried[j], ap.untried[i]
	})
}

// AttackCommitted goes round the grid again if a failed exchange used up
// a cell without an answer.
func (ap *AutoPlayer) AttackCommitted() (mb.Coordinates, bool) {
	if ap.thinking() {
		return mb.Coordinates{}, false
	}
	if len(ap.untried) == 0 {
		ap.shuffle()
	}

	target := ap.untried[0]
	ap.untried = ap.untried[1:]
	return target, true
}
