package connection

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/saeidalz13/battleship-link/internal/observability"
	mb "github.com/saeidalz13/battleship-link/models/battleship"
)

// most bytes drained before one request
const maxDrain = 64

type Outcome uint8

const (
	OutcomeMiss Outcome = iota
	OutcomeHit
)

func (o Outcome) String() string {
	if o == OutcomeHit {
		return "hit"
	}
	return "miss"
}

type PollResult uint8

const (
	PollNothing PollResult = iota
	PollRequest
	PollReadySignal
)

// RetryPolicy bounds the blocking exchanges. Zero values keep the
// unbounded behaviour: retry forever and wait forever for each answer.
type RetryPolicy struct {
	// MaxAttempts caps transmissions of one packet, 0 means no cap.
	MaxAttempts int

	// ResponseTimeout is how many ticks to wait for an answer before the
	// packet is sent again, 0 means wait until a byte arrives.
	ResponseTimeout int
}

// Session runs both halves of the protocol over one transport: the
// blocking requester exchanges and the per-tick responder poll.
type Session struct {
	link   Transport
	pacer  Pacer
	policy RetryPolicy

	// nil unless the link is a ClosingTransport
	closed <-chan struct{}
}

func NewSession(link Transport, pacer Pacer, policy RetryPolicy) *Session {
	if pacer == nil {
		pacer = NopPacer{}
	}
	s := &Session{link: link, pacer: pacer, policy: policy}
	if ct, ok := link.(ClosingTransport); ok {
		s.closed = ct.Done()
	}
	return s
}

// Attack sends a request for c and blocks until the opponent answers hit
// or miss. The caller must not attack a coordinate already recorded as hit.
// Requests the opponent sends meanwhile are answered from match.
func (s *Session) Attack(ctx context.Context, match *mb.Match, c mb.Coordinates) (Outcome, error) {
	packet, err := EncodeRequest(c)
	if err != nil {
		return OutcomeMiss, err
	}
	if err := s.drain(match); err != nil {
		return OutcomeMiss, err
	}

	code, err := s.sendAndWait(ctx, packet, "request", match, func(code FixedCode) bool {
		return code == CodeHit || code == CodeMiss
	})
	if err != nil {
		return OutcomeMiss, err
	}

	log.Debug().Str("target", c.String()).Str("answer", code.String()).Msg("attack answered")
	if code == CodeHit {
		return OutcomeHit, nil
	}
	return OutcomeMiss, nil
}

// SendReady announces that local placement is done and blocks until the
// opponent acknowledges it.
func (s *Session) SendReady(ctx context.Context) error {
	_, err := s.sendAndWait(ctx, byte(CodeReady), CodeReady.String(), nil, func(code FixedCode) bool {
		return code == CodeReadyAck
	})
	return err
}

func (s *Session) sendAndWait(ctx context.Context, packet byte, kind string, match *mb.Match, accept func(FixedCode) bool) (FixedCode, error) {
	var attempts int

	for {
		if s.policy.MaxAttempts > 0 && attempts >= s.policy.MaxAttempts {
			observability.RecordLinkFailure("exhausted")
			return 0, NewLinkErr(LinkExhausted).AddDesc(fmt.Sprintf("no valid answer to %s after %d attempts", kind, attempts))
		}
		if attempts > 0 {
			observability.RecordRetransmission()
		}
		attempts++

		if err := s.transmit(packet, kind); err != nil {
			return 0, err
		}

		code, answered, err := s.await(ctx, match, accept)
		if err != nil {
			return 0, err
		}
		if answered {
			return code, nil
		}
	}
}

// await polls once per tick until an accepted code arrives. It reports
// false when the packet has to be sent again, after noise or a timeout.
// With a non-nil match, requests are served instead of dropped.
func (s *Session) await(ctx context.Context, match *mb.Match, accept func(FixedCode) bool) (FixedCode, bool, error) {
	var ticks int

	for {
		select {
		case <-ctx.Done():
			return 0, false, ctx.Err()
		case <-s.closed:
			observability.RecordLinkFailure("closed")
			return 0, false, NewLinkErr(LinkClosed).AddDesc("peer gone while awaiting an answer")
		default:
		}

		s.pacer.Wait()

		b, ok := s.link.TryReceive()
		if !ok {
			ticks++
			if s.policy.ResponseTimeout > 0 && ticks >= s.policy.ResponseTimeout {
				log.Debug().Int("ticks", ticks).Msg("no answer in time")
				return 0, false, nil
			}
			continue
		}

		code, fixed := ClassifyFixed(b)
		switch {
		case fixed && accept(code):
			observability.RecordPacketReceived(code.String())
			return code, true, nil

		// The opponent is still finishing its own handshake and most likely
		// dropped our packet as noise, so it is sent again after the ack.
		case fixed && code == CodeReady:
			observability.RecordPacketReceived(code.String())
			if err := s.transmit(byte(CodeReadyAck), CodeReadyAck.String()); err != nil {
				return 0, false, err
			}
			return 0, false, nil

		// A late acknowledgement of a ready signal that was already answered.
		case fixed && code == CodeReadyAck:
			log.Trace().Msg("stale ready-ack dropped")

		// The opponent took its turn, so it did answer our packet and the
		// answer was lost on the way.
		case match != nil && IsValidRequest(b):
			if err := s.serveRequest(match, b); err != nil {
				return 0, false, err
			}
			return 0, false, nil

		default:
			log.Debug().Uint8("byte", b).Msg("noise while awaiting answer")
			observability.RecordPacketReceived("noise")
			return 0, false, nil
		}
	}
}

// PollOnce checks the link once without blocking and serves whatever
// arrived: requests are answered from the match board, ready signals are
// acknowledged, anything else is dropped.
func (s *Session) PollOnce(match *mb.Match) (PollResult, error) {
	b, ok := s.link.TryReceive()
	if !ok {
		return PollNothing, nil
	}

	if IsValidRequest(b) {
		return PollRequest, s.serveRequest(match, b)
	}

	if code, fixed := ClassifyFixed(b); fixed && code == CodeReady {
		observability.RecordPacketReceived(code.String())
		return PollReadySignal, s.transmit(byte(CodeReadyAck), CodeReadyAck.String())
	}

	log.Trace().Uint8("byte", b).Msg("dropped out-of-turn byte")
	observability.RecordPacketReceived("noise")
	return PollNothing, nil
}

// drain empties the inbox before a new request goes out. Hits and misses
// still queued there answer resent copies of an older request, not this one.
func (s *Session) drain(match *mb.Match) error {
	for i := 0; i < maxDrain; i++ {
		b, ok := s.link.TryReceive()
		if !ok {
			return nil
		}

		if IsValidRequest(b) {
			if err := s.serveRequest(match, b); err != nil {
				return err
			}
			continue
		}
		if code, fixed := ClassifyFixed(b); fixed && code == CodeReady {
			observability.RecordPacketReceived(code.String())
			if err := s.transmit(byte(CodeReadyAck), CodeReadyAck.String()); err != nil {
				return err
			}
			continue
		}

		log.Debug().Uint8("byte", b).Msg("stale byte drained")
		observability.RecordPacketReceived("stale")
	}
	return nil
}

// serveRequest answers one request byte from the board. A repeated request
// for the same cell gets the same answer and is counted once.
func (s *Session) serveRequest(match *mb.Match, b byte) error {
	observability.RecordPacketReceived("request")
	c := DecodeRequest(b)

	if !match.Board.IsOccupied(c) {
		return s.transmit(byte(CodeMiss), CodeMiss.String())
	}

	if err := s.transmit(byte(CodeHit), CodeHit.String()); err != nil {
		return err
	}
	if match.Ledger.RecordOpponentHit(c) {
		log.Info().Str("game", match.Uuid()).Str("cell", c.String()).Int("opponent_hits", match.Ledger.OpponentHitCount()).Msg("opponent hit")
	}
	return nil
}

func (s *Session) transmit(packet byte, kind string) error {
	if err := s.link.Transmit(packet); err != nil {
		observability.RecordLinkFailure("write")
		return err
	}
	log.Trace().Uint8("byte", packet).Str("kind", kind).Msg("sent")
	observability.RecordPacketSent(kind)
	return nil
}
