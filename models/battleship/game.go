package battleship

import (
	"github.com/google/uuid"
	cerr "github.com/saeidalz13/battleship-link/internal/error"
)

type GameState uint8

const (
	StateSetup GameState = iota
	StateAttack
	StateWait
	StateHit
	StateMiss
	StateWin
	StateLoss
)

var gameStateNames = [...]string{
	StateSetup:  "setup",
	StateAttack: "attack",
	StateWait:   "wait",
	StateHit:    "hit",
	StateMiss:   "miss",
	StateWin:    "win",
	StateLoss:   "loss",
}

func (s GameState) String() string {
	if int(s) < len(gameStateNames) {
		return gameStateNames[s]
	}
	return "unknown"
}

func (s GameState) IsTerminal() bool {
	return s == StateWin || s == StateLoss
}

const (
	RoleHost = "host"
	RoleJoin = "join"
)

func IsRoleValid(role string) bool {
	return role == RoleHost || role == RoleJoin
}

// Match is everything one game owns. The turn machine holds the only
// reference and hands it to the link session when serving requests.
type Match struct {
	uuid   string
	role   string
	Board  *Board
	Ledger *Ledger

	// set once the host has taken its opening turn of this game
	openingTaken bool
}

func NewMatch(role string) (*Match, error) {
	if !IsRoleValid(role) {
		return nil, cerr.ErrInvalidRole(role)
	}

	return &Match{
		uuid:   uuid.NewString()[:8],
		role:   role,
		Board:  NewBoard(),
		Ledger: NewLedger(),
	}, nil
}

func (m *Match) Uuid() string {
	return m.uuid
}

func (m *Match) Role() string {
	return m.role
}

func (m *Match) IsHost() bool {
	return m.role == RoleHost
}

// TakeOpeningTurn reports true exactly once per game, for the host only.
func (m *Match) TakeOpeningTurn() bool {
	if !m.IsHost() || m.openingTaken {
		return false
	}
	m.openingTaken = true
	return true
}

// Reset clears the board and the ledger and starts a new game id.
func (m *Match) Reset() {
	m.Board.Clear()
	m.Ledger.Reset()
	m.openingTaken = false
	m.uuid = uuid.NewString()[:8]
}

// MatchResult is the summary of a finished game.
type MatchResult struct {
	GameUuid   string
	Role       string
	Outcome    GameState
	HitsScored int
	HitsTaken  int
}

func (m *Match) Result(outcome GameState) MatchResult {
	return MatchResult{
		GameUuid:   m.uuid,
		Role:       m.role,
		Outcome:    outcome,
		HitsScored: m.Ledger.HitCount(),
		HitsTaken:  m.Ledger.OpponentHitCount(),
	}
}
