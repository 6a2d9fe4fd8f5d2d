package connection

import "time"

// Transport moves single bytes across the link. Delivery is not guaranteed
// and a delivered byte may be corrupted.
type Transport interface {
	Transmit(b byte) error

	// TryReceive never blocks. It reports false when nothing has arrived.
	TryReceive() (byte, bool)
}

// ClosingTransport reports through Done when the remote end is gone.
type ClosingTransport interface {
	Transport
	Done() <-chan struct{}
}

// Pacer paces the main loop. The link session calls Wait between polls
// while it blocks for an answer.
type Pacer interface {
	Wait()
}

type TickerPacer struct {
	ticker *time.Ticker
}

func NewTickerPacer(rate int) *TickerPacer {
	return &TickerPacer{ticker: time.NewTicker(time.Second / time.Duration(rate))}
}

func (tp *TickerPacer) Wait() {
	<-tp.ticker.C
}

func (tp *TickerPacer) Stop() {
	tp.ticker.Stop()
}

type NopPacer struct{}

func (NopPacer) Wait() {}
