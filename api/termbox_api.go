package api

import (
	"math/rand"

	"github.com/nsf/termbox-go"
	"github.com/rs/zerolog/log"
	mb "github.com/saeidalz13/battleship-link/models/battleship"
)

type keyAction uint8

const (
	actionMove keyAction = iota
	actionPush
	actionRandom
)

type keyEvent struct {
	action    keyAction
	direction Direction
}

const (
	keyQueueSize   int = 32
	targetBoardCol int = 14
	cellWidth      int = 2
)

// TermboxUI plays through the terminal: arrows move the cursor, space or
// enter places a boat or fires, r lays out a random fleet and q or esc
// quits. Input and rendering both run on the game loop; only key polling
// has its own goroutine.
type TermboxUI struct {
	keys   chan keyEvent
	quit   func()
	done   chan struct{}
	placer *BoatPlacer
	target *Cursor
	rng    *rand.Rand

	last  Snapshot
	seen  bool
	dirty bool
}

// NewTermboxUI takes over the terminal. quit is called when the player
// asks to leave.
func NewTermboxUI(quit func(), rng *rand.Rand) (*TermboxUI, error) {
	if err := termbox.Init(); err != nil {
		return nil, err
	}
	termbox.SetInputMode(termbox.InputEsc)

	ui := &TermboxUI{
		keys:   make(chan keyEvent, keyQueueSize),
		quit:   quit,
		done:   make(chan struct{}),
		placer: NewBoatPlacer(),
		target: NewCursor(1),
		rng:    rng,
	}
	go ui.pollKeys()
	return ui, nil
}

func (ui *TermboxUI) Close() {
	select {
	case <-ui.done:
	default:
		termbox.Interrupt()
		<-ui.done
	}
	termbox.Close()
}

func (ui *TermboxUI) pollKeys() {
	defer close(ui.done)

	for {
		ev := termbox.PollEvent()
		switch ev.Type {
		case termbox.EventInterrupt:
			return
		case termbox.EventError:
			log.Error().Err(ev.Err).Msg("terminal input failed")
			return
		case termbox.EventKey:
			if ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC || ev.Ch == 'q' {
				ui.quit()
				continue
			}
			if k, ok := translateKey(ev); ok {
				select {
				case ui.keys <- k:
				default:
					log.Debug().Msg("key dropped; queue full")
				}
			}
		}
	}
}

func translateKey(ev termbox.Event) (keyEvent, bool) {
	switch ev.Key {
	case termbox.KeyArrowUp:
		return keyEvent{action: actionMove, direction: North}, true
	case termbox.KeyArrowDown:
		return keyEvent{action: actionMove, direction: South}, true
	case termbox.KeyArrowRight:
		return keyEvent{action: actionMove, direction: East}, true
	case termbox.KeyArrowLeft:
		return keyEvent{action: actionMove, direction: West}, true
	case termbox.KeySpace, termbox.KeyEnter:
		return keyEvent{action: actionPush}, true
	}
	if ev.Ch == 'r' {
		return keyEvent{action: actionRandom}, true
	}
	return keyEvent{}, false
}

func (ui *TermboxUI) PlacementComplete() ([]mb.Coordinates, bool) {
	// a finished placer belongs to the previous game
	if ui.placer.Done() {
		ui.placer.Reset()
		ui.dirty = true
	}

	for {
		select {
		case k := <-ui.keys:
			ui.dirty = true
			switch k.action {
			case actionMove:
				ui.placer.Move(k.direction)
			case actionPush:
				if layout, ok := ui.placer.Push(); ok {
					return layout, true
				}
			case actionRandom:
				ui.placer.Reset()
				return mb.RandomLayout(ui.rng), true
			}
		default:
			return nil, false
		}
	}
}

func (ui *TermboxUI) AttackCommitted() (mb.Coordinates, bool) {
	for {
		select {
		case k := <-ui.keys:
			ui.dirty = true
			switch k.action {
			case actionMove:
				ui.target.Move(k.direction)
			case actionPush:
				return ui.target.Position(), true
			}
		default:
			return mb.Coordinates{}, false
		}
	}
}

func (ui *TermboxUI) Render(s Snapshot) {
	if ui.seen && !ui.dirty && !changed(ui.last, s) {
		return
	}
	ui.last, ui.seen, ui.dirty = s, true, false

	_ = termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	drawText(0, 0, DrawBoardsHeader(s), termbox.ColorWhite|termbox.AttrBold)

	var pending []mb.Coordinates
	if s.State == mb.StateSetup {
		for _, boat := range ui.placer.Boats() {
			pending = append(pending, boat.Cells()...)
		}
		if boat, ok := ui.placer.Pending(); ok {
			pending = append(pending, boat.Cells()...)
		}
	}

	for y := uint8(0); y < mb.GridRows; y++ {
		for x := uint8(0); x < mb.GridColumns; x++ {
			c := mb.NewCoordinates(x, y)
			row := int(y) + 2

			own, fg := ownGlyph(s, c), termbox.ColorBlue
			switch {
			case own == glyphHit:
				fg = termbox.ColorRed
			case own == glyphBoat:
				fg = termbox.ColorWhite
			case containsCell(pending, c):
				own, fg = glyphPlanning, termbox.ColorYellow
			}
			termbox.SetCell(int(x)*cellWidth, row, own, fg, termbox.ColorDefault)

			bg := termbox.ColorDefault
			if s.State == mb.StateAttack && ui.target.Position() == c {
				bg = termbox.ColorYellow
			}
			fg = termbox.ColorCyan
			if targetGlyph(s, c) == glyphHit {
				fg = termbox.ColorGreen
			}
			termbox.SetCell(targetBoardCol+int(x)*cellWidth, row, targetGlyph(s, c), fg, bg)
		}
	}

	drawText(0, int(mb.GridRows)+3, "arrows move  space fire/place  r random fleet  q quit", termbox.ColorDefault)
	_ = termbox.Flush()
}

func drawText(x, y int, text string, fg termbox.Attribute) {
	for i, ch := range text {
		termbox.SetCell(x+i, y, ch, fg, termbox.ColorDefault)
	}
}
