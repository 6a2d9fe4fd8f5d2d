package api

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	mb "github.com/saeidalz13/battleship-link/models/battleship"
)

const (
	glyphWater    = '.'
	glyphBoat     = '#'
	glyphHit      = 'X'
	glyphUnknown  = '~'
	glyphTarget   = 'o'
	glyphPlanning = '+'
)

func ownGlyph(s Snapshot, c mb.Coordinates) rune {
	switch {
	case containsCell(s.OpponentHits, c):
		return glyphHit
	case containsCell(s.Layout, c):
		return glyphBoat
	}
	return glyphWater
}

func targetGlyph(s Snapshot, c mb.Coordinates) rune {
	switch {
	case containsCell(s.Hits, c):
		return glyphHit
	case s.LastTarget != nil && *s.LastTarget == c:
		return glyphTarget
	}
	return glyphUnknown
}

func containsCell(cells []mb.Coordinates, c mb.Coordinates) bool {
	for _, cell := range cells {
		if cell == c {
			return true
		}
	}
	return false
}

// changed reports whether b differs from a in anything a player can see.
func changed(a, b Snapshot) bool {
	if a.GameUuid != b.GameUuid || a.State != b.State {
		return true
	}
	if len(a.Layout) != len(b.Layout) || len(a.Hits) != len(b.Hits) || len(a.OpponentHits) != len(b.OpponentHits) {
		return true
	}
	if (a.LastTarget == nil) != (b.LastTarget == nil) {
		return true
	}
	return a.LastTarget != nil && *a.LastTarget != *b.LastTarget
}

func DrawBoardsHeader(s Snapshot) string {
	return fmt.Sprintf("game %s  state %s  hits %d/%d  taken %d/%d",
		s.GameUuid, s.State, len(s.Hits), mb.MaxHits, len(s.OpponentHits), mb.MaxHits)
}

// DrawBoards renders the own board and the target board side by side.
func DrawBoards(s Snapshot) string {
	var sb strings.Builder

	sb.WriteString(DrawBoardsHeader(s))
	sb.WriteString("\n  own         target\n")

	for y := uint8(0); y < mb.GridRows; y++ {
		sb.WriteString("  ")
		for x := uint8(0); x < mb.GridColumns; x++ {
			sb.WriteRune(ownGlyph(s, mb.NewCoordinates(x, y)))
			sb.WriteByte(' ')
		}
		sb.WriteString("  ")
		for x := uint8(0); x < mb.GridColumns; x++ {
			sb.WriteRune(targetGlyph(s, mb.NewCoordinates(x, y)))
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// LogRenderer logs every visible change of the game and, when out is set,
// draws the boards there too.
type LogRenderer struct {
	out  io.Writer
	last Snapshot
	seen bool
}

func NewLogRenderer(out io.Writer) *LogRenderer {
	return &LogRenderer{out: out}
}

func (lr *LogRenderer) Render(s Snapshot) {
	if lr.seen && !changed(lr.last, s) {
		return
	}
	lr.last = s
	lr.seen = true

	log.Info().
		Str("game", s.GameUuid).
		Str("state", s.State.String()).
		Int("hits", len(s.Hits)).
		Int("opponent_hits", len(s.OpponentHits)).
		Msg("game updated")

	if lr.out != nil {
		_, _ = io.WriteString(lr.out, DrawBoards(s))
	}
}
