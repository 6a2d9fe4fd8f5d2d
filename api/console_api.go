package api

import (
	"bufio"
	"context"
	"io"
	"math/rand"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	cerr "github.com/saeidalz13/battleship-link/internal/error"
	mb "github.com/saeidalz13/battleship-link/models/battleship"
)

type CommandKind uint8

const (
	CommandNone CommandKind = iota
	CommandPlace
	CommandAttack
)

type Command struct {
	Kind   CommandKind
	Layout []mb.Coordinates
	Target mb.Coordinates
}

// ParseCommand understands one console line:
//
//	place auto
//	place 0,0 0,1 ...
//	boats 0,0 1,0 2,0     bows of the 3, 3 and 2 long boats
//	attack 2,3            also "attack 2 3"
//
// Blank lines and lines starting with # are CommandNone.
func ParseCommand(line string, rng *rand.Rand) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return Command{Kind: CommandNone}, nil
	}

	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case "place":
		if len(args) == 1 && args[0] == "auto" {
			return Command{Kind: CommandPlace, Layout: mb.RandomLayout(rng)}, nil
		}
		if len(args) == 0 {
			return Command{}, cerr.ErrInvalidCommand(line)
		}
		layout := make([]mb.Coordinates, 0, len(args))
		for _, arg := range args {
			c, err := parseCell(arg)
			if err != nil {
				return Command{}, cerr.ErrInvalidCommand(line)
			}
			layout = append(layout, c)
		}
		return Command{Kind: CommandPlace, Layout: layout}, nil

	case "boats":
		if len(args) != len(mb.BoatLengths) {
			return Command{}, cerr.ErrInvalidCommand(line)
		}
		boats := make([]mb.Boat, 0, len(args))
		for i, arg := range args {
			bow, err := parseCell(arg)
			if err != nil {
				return Command{}, cerr.ErrInvalidCommand(line)
			}
			boats = append(boats, mb.NewBoat(bow, mb.BoatLengths[i]))
		}
		layout, err := mb.LayoutFromBoats(boats)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CommandPlace, Layout: layout}, nil

	case "attack":
		var target mb.Coordinates
		var err error
		switch len(args) {
		case 1:
			target, err = parseCell(args[0])
		case 2:
			target, err = parseCell(args[0] + "," + args[1])
		default:
			err = cerr.ErrInvalidCommand(line)
		}
		if err != nil {
			return Command{}, cerr.ErrInvalidCommand(line)
		}
		return Command{Kind: CommandAttack, Target: target}, nil
	}

	return Command{}, cerr.ErrInvalidCommand(line)
}

func parseCell(raw string) (mb.Coordinates, error) {
	xs, ys, ok := strings.Cut(raw, ",")
	if !ok {
		return mb.Coordinates{}, cerr.ErrInvalidCommand(raw)
	}
	x, err := strconv.ParseUint(strings.TrimSpace(xs), 10, 8)
	if err != nil {
		return mb.Coordinates{}, err
	}
	y, err := strconv.ParseUint(strings.TrimSpace(ys), 10, 8)
	if err != nil {
		return mb.Coordinates{}, err
	}
	return mb.NewCoordinates(uint8(x), uint8(y)), nil
}

// ConsoleInput reads commands line by line on its own goroutine and hands
// them to the game loop without blocking it.
type ConsoleInput struct {
	placements chan []mb.Coordinates
	attacks    chan mb.Coordinates
}

func NewConsoleInput(ctx context.Context, r io.Reader, rng *rand.Rand) *ConsoleInput {
	ci := &ConsoleInput{
		placements: make(chan []mb.Coordinates, 1),
		attacks:    make(chan mb.Coordinates, 1),
	}
	go ci.readLines(ctx, r, rng)
	return ci
}

func (ci *ConsoleInput) readLines(ctx context.Context, r io.Reader, rng *rand.Rand) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd, err := ParseCommand(scanner.Text(), rng)
		if err != nil {
			log.Warn().Err(err).Msg("command ignored")
			continue
		}

		switch cmd.Kind {
		case CommandPlace:
			select {
			case ci.placements <- cmd.Layout:
			case <-ctx.Done():
				return
			}
		case CommandAttack:
			select {
			case ci.attacks <- cmd.Target:
			case <-ctx.Done():
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("console input closed")
	}
}

func (ci *ConsoleInput) PlacementComplete() ([]mb.Coordinates, bool) {
	select {
	case layout := <-ci.placements:
		return layout, true
	default:
		return nil, false
	}
}

func (ci *ConsoleInput) AttackCommitted() (mb.Coordinates, bool) {
	select {
	case target := <-ci.attacks:
		return target, true
	default:
		return mb.Coordinates{}, false
	}
}
