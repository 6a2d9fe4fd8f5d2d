package connection

import (
	"context"
	"errors"
	"testing"

	mb "github.com/saeidalz13/battleship-link/models/battleship"
)

// stubLink hands out queued bytes one per poll and records what was sent.
type stubLink struct {
	incoming []byte
	sent     []byte

	// answers are queued once the first request goes out
	answers []byte

	// onTransmit, when set, may queue an answer for the byte just sent
	onTransmit func(b byte) []byte
}

func (sl *stubLink) Transmit(b byte) error {
	sl.sent = append(sl.sent, b)
	if IsValidRequest(b) {
		sl.incoming = append(sl.incoming, sl.answers...)
		sl.answers = nil
	}
	if sl.onTransmit != nil {
		sl.incoming = append(sl.incoming, sl.onTransmit(b)...)
	}
	return nil
}

func (sl *stubLink) TryReceive() (byte, bool) {
	if len(sl.incoming) == 0 {
		return 0, false
	}
	b := sl.incoming[0]
	sl.incoming = sl.incoming[1:]
	return b, true
}

type failingLink struct{}

func (failingLink) Transmit(byte) error {
	return NewLinkErr(LinkWriteFailed).AddDesc("wire cut")
}

func (failingLink) TryReceive() (byte, bool) { return 0, false }

func newTestMatch(t *testing.T, layout ...mb.Coordinates) *mb.Match {
	t.Helper()
	match, err := mb.NewMatch(mb.RoleJoin)
	if err != nil {
		t.Fatal(err)
	}
	if err := match.Board.RecordOwnLayout(layout); err != nil {
		t.Fatal(err)
	}
	return match
}

func TestAttackRetransmitsAfterNoise(t *testing.T) {
	link := &stubLink{answers: []byte{0x55, byte(CodeMiss)}}
	session := NewSession(link, NopPacer{}, RetryPolicy{})

	outcome, err := session.Attack(context.Background(), newTestMatch(t), mb.NewCoordinates(2, 3))
	if err != nil {
		t.Fatal(err)
	}
	if outcome != OutcomeMiss {
		t.Fatalf("expected: %s\tgot: %s", OutcomeMiss, outcome)
	}

	expected, _ := EncodeRequest(mb.NewCoordinates(2, 3))
	if len(link.sent) != 2 || link.sent[0] != expected || link.sent[1] != expected {
		t.Fatalf("expected the request twice\tgot: %#v", link.sent)
	}
}

func TestAttackOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		incoming []byte
		expected Outcome
		sent     int
	}{
		{name: "hit", incoming: []byte{byte(CodeHit)}, expected: OutcomeHit, sent: 1},
		{name: "miss", incoming: []byte{byte(CodeMiss)}, expected: OutcomeMiss, sent: 1},
		{name: "stale ack then hit", incoming: []byte{byte(CodeReadyAck), byte(CodeHit)}, expected: OutcomeHit, sent: 1},
		{name: "opponent request served", incoming: []byte{0x00, byte(CodeHit)}, expected: OutcomeHit, sent: 3},
		{name: "two noise bytes", incoming: []byte{0x41, 0x3F, byte(CodeMiss)}, expected: OutcomeMiss, sent: 3},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			link := &stubLink{answers: test.incoming}
			outcome, err := NewSession(link, nil, RetryPolicy{}).Attack(context.Background(), newTestMatch(t), mb.NewCoordinates(4, 6))
			if err != nil {
				t.Fatal(err)
			}
			if outcome != test.expected {
				t.Fatalf("expected: %s\tgot: %s", test.expected, outcome)
			}
			if len(link.sent) != test.sent {
				t.Fatalf("expected %d transmissions\tgot: %d", test.sent, len(link.sent))
			}
		})
	}
}

func TestAttackAnswersPeerReadySignal(t *testing.T) {
	link := &stubLink{answers: []byte{byte(CodeReady), byte(CodeHit)}}

	outcome, err := NewSession(link, NopPacer{}, RetryPolicy{}).Attack(context.Background(), newTestMatch(t), mb.NewCoordinates(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if outcome != OutcomeHit {
		t.Fatalf("expected: %s\tgot: %s", OutcomeHit, outcome)
	}
	request, _ := EncodeRequest(mb.NewCoordinates(0, 0))
	if string(link.sent) != string([]byte{request, byte(CodeReadyAck), request}) {
		t.Fatalf("expected request, ready-ack, request\tgot: %#v", link.sent)
	}
}

func TestAttackServesOpponentRequest(t *testing.T) {
	theirs, _ := EncodeRequest(mb.NewCoordinates(3, 2))
	link := &stubLink{answers: []byte{theirs, byte(CodeMiss)}}
	match := newTestMatch(t, mb.NewCoordinates(3, 2))

	outcome, err := NewSession(link, NopPacer{}, RetryPolicy{}).Attack(context.Background(), match, mb.NewCoordinates(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if outcome != OutcomeMiss {
		t.Fatalf("expected: %s\tgot: %s", OutcomeMiss, outcome)
	}
	ours, _ := EncodeRequest(mb.NewCoordinates(0, 0))
	if string(link.sent) != string([]byte{ours, byte(CodeHit), ours}) {
		t.Fatalf("expected request, hit, request\tgot: %#v", link.sent)
	}
	if match.Ledger.OpponentHitCount() != 1 {
		t.Fatalf("expected one opponent hit\tgot: %d", match.Ledger.OpponentHitCount())
	}
}

func TestAttackDrainsInboxFirst(t *testing.T) {
	theirs, _ := EncodeRequest(mb.NewCoordinates(3, 2))
	link := &stubLink{
		// a hit and a miss left over from copies of an older request
		incoming: []byte{byte(CodeHit), theirs, byte(CodeMiss), byte(CodeReady)},
		answers:  []byte{byte(CodeMiss)},
	}
	match := newTestMatch(t, mb.NewCoordinates(3, 2))

	outcome, err := NewSession(link, NopPacer{}, RetryPolicy{}).Attack(context.Background(), match, mb.NewCoordinates(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if outcome != OutcomeMiss {
		t.Fatalf("stale hit taken as the answer\tgot: %s", outcome)
	}
	ours, _ := EncodeRequest(mb.NewCoordinates(0, 0))
	if string(link.sent) != string([]byte{byte(CodeHit), byte(CodeReadyAck), ours}) {
		t.Fatalf("expected hit, ready-ack, request\tgot: %#v", link.sent)
	}
	if match.Ledger.OpponentHitCount() != 1 {
		t.Fatalf("expected one opponent hit\tgot: %d", match.Ledger.OpponentHitCount())
	}
}

type closingLink struct {
	*stubLink
	done chan struct{}
}

func (cl *closingLink) Done() <-chan struct{} {
	return cl.done
}

func TestBlockingExchangesStopWhenLinkCloses(t *testing.T) {
	tests := []struct {
		name     string
		exchange func(*Session) error
	}{
		{
			name: "attack",
			exchange: func(s *Session) error {
				_, err := s.Attack(context.Background(), newTestMatch(t), mb.NewCoordinates(1, 1))
				return err
			},
		},
		{
			name: "ready",
			exchange: func(s *Session) error {
				return s.SendReady(context.Background())
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			link := &closingLink{stubLink: &stubLink{}, done: make(chan struct{})}
			close(link.done)

			err := test.exchange(NewSession(link, NopPacer{}, RetryPolicy{}))
			var linkErr LinkErr
			if !errors.As(err, &linkErr) || linkErr.Code() != LinkClosed {
				t.Fatalf("expected closed link\tgot: %v", err)
			}
			if len(link.sent) != 1 {
				t.Fatalf("expected one transmission\tgot: %#v", link.sent)
			}
		})
	}
}

func TestSendReadyDropsRequests(t *testing.T) {
	request, _ := EncodeRequest(mb.NewCoordinates(1, 1))
	link := &stubLink{incoming: []byte{request, byte(CodeReadyAck)}}

	if err := NewSession(link, NopPacer{}, RetryPolicy{}).SendReady(context.Background()); err != nil {
		t.Fatal(err)
	}
	if string(link.sent) != string([]byte{byte(CodeReady), byte(CodeReady)}) {
		t.Fatalf("expected the ready signal twice\tgot: %#v", link.sent)
	}
}

func TestAttackOutOfField(t *testing.T) {
	link := &stubLink{}
	if _, err := NewSession(link, NopPacer{}, RetryPolicy{}).Attack(context.Background(), newTestMatch(t), mb.NewCoordinates(9, 0)); err == nil {
		t.Fatal("expected codec error")
	}
	if len(link.sent) != 0 {
		t.Fatalf("nothing may be sent for an invalid coordinate\tgot: %#v", link.sent)
	}
}

func TestAttackTimeoutRetransmits(t *testing.T) {
	var transmissions int
	link := &stubLink{}
	link.onTransmit = func(b byte) []byte {
		transmissions++
		// the first two requests are lost on the way
		if transmissions < 3 {
			return nil
		}
		return []byte{byte(CodeHit)}
	}

	outcome, err := NewSession(link, NopPacer{}, RetryPolicy{ResponseTimeout: 5}).Attack(context.Background(), newTestMatch(t), mb.NewCoordinates(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if outcome != OutcomeHit || transmissions != 3 {
		t.Fatalf("expected hit after 3 transmissions\tgot: %s after %d", outcome, transmissions)
	}
}

func TestAttackExhaustion(t *testing.T) {
	link := &stubLink{answers: []byte{0x41, 0x41, 0x41, 0x41}}
	session := NewSession(link, NopPacer{}, RetryPolicy{MaxAttempts: 3})

	_, err := session.Attack(context.Background(), newTestMatch(t), mb.NewCoordinates(1, 1))
	var linkErr LinkErr
	if !errors.As(err, &linkErr) || linkErr.Code() != LinkExhausted {
		t.Fatalf("expected exhausted link error\tgot: %v", err)
	}
	if len(link.sent) != 3 {
		t.Fatalf("expected 3 transmissions\tgot: %d", len(link.sent))
	}
}

func TestAttackCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSession(&stubLink{}, NopPacer{}, RetryPolicy{}).Attack(ctx, newTestMatch(t), mb.NewCoordinates(1, 1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation\tgot: %v", err)
	}
}

func TestAttackWriteFailure(t *testing.T) {
	_, err := NewSession(failingLink{}, NopPacer{}, RetryPolicy{}).Attack(context.Background(), newTestMatch(t), mb.NewCoordinates(1, 1))
	var linkErr LinkErr
	if !errors.As(err, &linkErr) || linkErr.Code() != LinkWriteFailed {
		t.Fatalf("expected write failure\tgot: %v", err)
	}
}

func TestSendReady(t *testing.T) {
	tests := []struct {
		name     string
		incoming []byte
		sent     []byte
	}{
		{
			name:     "immediate ack",
			incoming: []byte{byte(CodeReadyAck)},
			sent:     []byte{byte(CodeReady)},
		},
		{
			name:     "hit is not an ack",
			incoming: []byte{byte(CodeHit), byte(CodeReadyAck)},
			sent:     []byte{byte(CodeReady), byte(CodeReady)},
		},
		{
			name:     "peer ready at the same time",
			incoming: []byte{byte(CodeReady), byte(CodeReadyAck)},
			sent:     []byte{byte(CodeReady), byte(CodeReadyAck), byte(CodeReady)},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			link := &stubLink{incoming: test.incoming}
			if err := NewSession(link, NopPacer{}, RetryPolicy{}).SendReady(context.Background()); err != nil {
				t.Fatal(err)
			}
			if string(link.sent) != string(test.sent) {
				t.Fatalf("expected sent: %#v\tgot: %#v", test.sent, link.sent)
			}
		})
	}
}

func TestPollOnce(t *testing.T) {
	hitRequest, _ := EncodeRequest(mb.NewCoordinates(2, 3))
	missRequest, _ := EncodeRequest(mb.NewCoordinates(0, 0))

	tests := []struct {
		name         string
		incoming     []byte
		expected     PollResult
		sent         []byte
		opponentHits int
	}{
		{name: "nothing", expected: PollNothing},
		{name: "hit request", incoming: []byte{hitRequest}, expected: PollRequest, sent: []byte{byte(CodeHit)}, opponentHits: 1},
		{name: "miss request", incoming: []byte{missRequest}, expected: PollRequest, sent: []byte{byte(CodeMiss)}},
		{name: "ready signal", incoming: []byte{byte(CodeReady)}, expected: PollReadySignal, sent: []byte{byte(CodeReadyAck)}},
		{name: "response out of turn", incoming: []byte{byte(CodeHit)}, expected: PollNothing},
		{name: "off-grid request", incoming: []byte{0x3F}, expected: PollNothing},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			match := newTestMatch(t, mb.NewCoordinates(2, 3))
			link := &stubLink{incoming: test.incoming}

			result, err := NewSession(link, NopPacer{}, RetryPolicy{}).PollOnce(match)
			if err != nil {
				t.Fatal(err)
			}
			if result != test.expected {
				t.Fatalf("expected result: %d\tgot: %d", test.expected, result)
			}
			if string(link.sent) != string(test.sent) {
				t.Fatalf("expected sent: %#v\tgot: %#v", test.sent, link.sent)
			}
			if match.Ledger.OpponentHitCount() != test.opponentHits {
				t.Fatalf("expected opponent hits: %d\tgot: %d", test.opponentHits, match.Ledger.OpponentHitCount())
			}
		})
	}
}

func TestPollOnceDuplicateRequestIsIdempotent(t *testing.T) {
	request, _ := EncodeRequest(mb.NewCoordinates(2, 3))
	match := newTestMatch(t, mb.NewCoordinates(2, 3))
	link := &stubLink{incoming: []byte{request, request}}
	session := NewSession(link, NopPacer{}, RetryPolicy{})

	for i := 0; i < 2; i++ {
		if result, err := session.PollOnce(match); err != nil || result != PollRequest {
			t.Fatalf("poll %d: result %d err %v", i, result, err)
		}
	}

	if string(link.sent) != string([]byte{byte(CodeHit), byte(CodeHit)}) {
		t.Fatalf("expected the same answer twice\tgot: %#v", link.sent)
	}
	if match.Ledger.OpponentHitCount() != 1 {
		t.Fatalf("expected opponent hits: %d\tgot: %d", 1, match.Ledger.OpponentHitCount())
	}
}

func TestPollOnceEmptyBoardAlwaysMisses(t *testing.T) {
	match := newTestMatch(t)
	request, _ := EncodeRequest(mb.NewCoordinates(2, 3))
	link := &stubLink{incoming: []byte{request}}

	if _, err := NewSession(link, NopPacer{}, RetryPolicy{}).PollOnce(match); err != nil {
		t.Fatal(err)
	}
	if len(link.sent) != 1 || link.sent[0] != byte(CodeMiss) {
		t.Fatalf("expected miss\tgot: %#v", link.sent)
	}
}

func TestPeersOverPipe(t *testing.T) {
	attackerEnd, defenderEnd := NewPipe(Noise{})
	attacker := NewSession(attackerEnd, NopPacer{}, RetryPolicy{ResponseTimeout: 3})
	defender := NewSession(defenderEnd, NopPacer{}, RetryPolicy{})
	match := newTestMatch(t, mb.NewCoordinates(1, 4))

	// The defender has no loop of its own here, so it is polled from the
	// attacker's pacer.
	attacker.pacer = pacerFunc(func() { _, _ = defender.PollOnce(match) })

	outcome, err := attacker.Attack(context.Background(), newTestMatch(t), mb.NewCoordinates(1, 4))
	if err != nil {
		t.Fatal(err)
	}
	if outcome != OutcomeHit || match.Ledger.OpponentHitCount() != 1 {
		t.Fatalf("expected hit recorded once\tgot: %s, %d", outcome, match.Ledger.OpponentHitCount())
	}
}

type pacerFunc func()

func (pf pacerFunc) Wait() { pf() }
