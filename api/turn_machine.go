package api

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/saeidalz13/battleship-link/db/sqlc"
	"github.com/saeidalz13/battleship-link/internal/observability"
	mb "github.com/saeidalz13/battleship-link/models/battleship"
	mc "github.com/saeidalz13/battleship-link/models/connection"
)

// Input is polled once per tick. Each method reports false when the event
// has not happened since the last call.
type Input interface {
	PlacementComplete() ([]mb.Coordinates, bool)
	AttackCommitted() (mb.Coordinates, bool)
}

type Renderer interface {
	Render(Snapshot)
}

type MatchRecorder interface {
	RecordMatch(ctx context.Context, result mb.MatchResult) error
}

// Snapshot is a read-only view of the machine after a tick.
type Snapshot struct {
	GameUuid     string
	State        mb.GameState
	Layout       []mb.Coordinates
	Hits         []mb.Coordinates
	OpponentHits []mb.Coordinates
	LastTarget   *mb.Coordinates
}

// Durations are in ticks.
type Durations struct {
	Feedback int
	Terminal int
}

// TurnMachine drives one peer through setup, turns and game end. It owns
// the match exclusively; nothing else mutates the board or the ledger.
type TurnMachine struct {
	state      mb.GameState
	stateTicks int
	durations  Durations

	match      *mb.Match
	session    *mc.Session
	input      Input
	renderer   Renderer
	recorder   MatchRecorder
	lastTarget *mb.Coordinates

	// layout recorded but the ready exchange failed; retried every tick
	readyPending bool
}

type MachineOption func(*TurnMachine)

func WithMachineRenderer(renderer Renderer) MachineOption {
	return func(tm *TurnMachine) {
		tm.renderer = renderer
	}
}

func WithMachineRecorder(recorder MatchRecorder) MachineOption {
	return func(tm *TurnMachine) {
		tm.recorder = recorder
	}
}

func WithMachineDurations(durations Durations) MachineOption {
	return func(tm *TurnMachine) {
		tm.durations = durations
	}
}

func NewTurnMachine(match *mb.Match, session *mc.Session, input Input, opts ...MachineOption) *TurnMachine {
	tm := &TurnMachine{
		state:     mb.StateSetup,
		durations: Durations{Feedback: 500, Terminal: 500},
		match:     match,
		session:   session,
		input:     input,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

func (tm *TurnMachine) State() mb.GameState {
	return tm.state
}

func (tm *TurnMachine) Match() *mb.Match {
	return tm.match
}

// Tick runs the handler of the current state once. Only Setup and Attack
// can block, inside the link session. A link error leaves the state as it
// was so the exchange is attempted again.
func (tm *TurnMachine) Tick(ctx context.Context) error {
	next, err := tm.step(ctx)
	if next != tm.state {
		tm.enter(ctx, next)
	}

	if tm.renderer != nil {
		tm.renderer.Render(tm.Snapshot())
	}
	return err
}

func (tm *TurnMachine) Snapshot() Snapshot {
	var target *mb.Coordinates
	if tm.lastTarget != nil {
		c := *tm.lastTarget
		target = &c
	}

	return Snapshot{
		GameUuid:     tm.match.Uuid(),
		State:        tm.state,
		Layout:       tm.match.Board.Layout(),
		Hits:         tm.match.Ledger.Hits(),
		OpponentHits: tm.match.Ledger.OpponentHits(),
		LastTarget:   target,
	}
}

func (tm *TurnMachine) step(ctx context.Context) (mb.GameState, error) {
	switch tm.state {
	case mb.StateAttack, mb.StateWait, mb.StateHit, mb.StateMiss:
		if tm.match.Ledger.IsLoser() {
			return mb.StateLoss, nil
		}
	}

	switch tm.state {
	case mb.StateSetup:
		return tm.setup(ctx)
	case mb.StateAttack:
		return tm.attack(ctx)
	case mb.StateWait:
		return tm.wait()
	case mb.StateHit, mb.StateMiss:
		return tm.display(tm.durations.Feedback, mb.StateWait), nil
	case mb.StateWin, mb.StateLoss:
		// The winner may still be retransmitting its last request if our
		// answer was lost; keep answering until the board is cleared.
		_, err := tm.session.PollOnce(tm.match)
		return tm.display(tm.durations.Terminal, mb.StateSetup), err
	}
	return tm.state, nil
}

func (tm *TurnMachine) setup(ctx context.Context) (mb.GameState, error) {
	if !tm.readyPending {
		layout, ok := tm.input.PlacementComplete()
		if !ok {
			return mb.StateSetup, nil
		}
		if err := tm.match.Board.RecordOwnLayout(layout); err != nil {
			log.Warn().Err(err).Msg("layout rejected")
			return mb.StateSetup, nil
		}
		tm.readyPending = true
	}

	if err := tm.session.SendReady(ctx); err != nil {
		return mb.StateSetup, err
	}
	tm.readyPending = false
	return mb.StateWait, nil
}

func (tm *TurnMachine) attack(ctx context.Context) (mb.GameState, error) {
	// A retransmitted request from the turn that just ended still wants
	// its answer.
	if _, err := tm.session.PollOnce(tm.match); err != nil {
		return mb.StateAttack, err
	}

	target, ok := tm.input.AttackCommitted()
	if !ok {
		return mb.StateAttack, nil
	}
	if !target.InBounds() {
		log.Warn().Str("target", target.String()).Msg("attack outside the grid ignored")
		return mb.StateAttack, nil
	}
	if tm.match.Ledger.HasHit(target) {
		log.Debug().Str("target", target.String()).Msg("target already hit")
		return mb.StateAttack, nil
	}

	outcome, err := tm.session.Attack(ctx, tm.match, target)
	if err != nil {
		return mb.StateAttack, err
	}
	tm.lastTarget = &target

	if outcome == mc.OutcomeMiss {
		return mb.StateMiss, nil
	}

	tm.match.Ledger.RecordHit(target)
	if tm.match.Ledger.IsWinner() {
		return mb.StateWin, nil
	}
	return mb.StateHit, nil
}

func (tm *TurnMachine) wait() (mb.GameState, error) {
	if tm.match.TakeOpeningTurn() {
		return mb.StateAttack, nil
	}

	result, err := tm.session.PollOnce(tm.match)
	if err != nil {
		return mb.StateWait, err
	}
	if result == mc.PollRequest {
		return mb.StateAttack, nil
	}
	return mb.StateWait, nil
}

// display holds the current state for duration ticks, then moves on.
func (tm *TurnMachine) display(duration int, next mb.GameState) mb.GameState {
	tm.stateTicks++
	if tm.stateTicks >= duration {
		return next
	}
	return tm.state
}

func (tm *TurnMachine) enter(ctx context.Context, next mb.GameState) {
	prev := tm.state
	log.Info().Str("game", tm.match.Uuid()).Str("from", prev.String()).Str("to", next.String()).Msg("state transition")
	observability.RecordTransition(prev.String(), next.String())

	if next.IsTerminal() {
		tm.finish(ctx, next)
	}
	if prev.IsTerminal() && next == mb.StateSetup {
		tm.match.Reset()
		tm.lastTarget = nil
	}

	tm.state = next
	tm.stateTicks = 0
}

func (tm *TurnMachine) finish(ctx context.Context, outcome mb.GameState) {
	observability.RecordGameFinished(outcome.String())
	if tm.recorder == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, sqlc.QuerierCtxTimeout)
	defer cancel()
	if err := tm.recorder.RecordMatch(ctx, tm.match.Result(outcome)); err != nil {
		// analytics never hold the game back
		log.Error().Err(err).Str("game", tm.match.Uuid()).Msg("failed to record match")
	}
}
