package connection

import (
	"math/rand"
	"sync"
)

const pipeBufferSize = 64

// Noise describes how a PipeLink mistreats bytes on their way to the
// other end. Rates are probabilities in [0, 1].
type Noise struct {
	DropRate    float64
	CorruptRate float64
	Seed        int64
}

// PipeLink is one end of an in-memory link. Bytes queue in order up to
// pipeBufferSize; further bytes are lost like an overrun receiver.
type PipeLink struct {
	in    chan byte
	out   chan byte
	noise Noise

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPipe returns the two ends of a link.
func NewPipe(noise Noise) (*PipeLink, *PipeLink) {
	aToB := make(chan byte, pipeBufferSize)
	bToA := make(chan byte, pipeBufferSize)

	a := &PipeLink{in: bToA, out: aToB, noise: noise, rnd: rand.New(rand.NewSource(noise.Seed))}
	b := &PipeLink{in: aToB, out: bToA, noise: noise, rnd: rand.New(rand.NewSource(noise.Seed + 1))}
	return a, b
}

func (pl *PipeLink) Transmit(b byte) error {
	pl.mu.Lock()
	drop := pl.rnd.Float64() < pl.noise.DropRate
	if pl.rnd.Float64() < pl.noise.CorruptRate {
		b ^= byte(1 << pl.rnd.Intn(8))
	}
	pl.mu.Unlock()

	if drop {
		return nil
	}

	select {
	case pl.out <- b:
	default:
	}
	return nil
}

func (pl *PipeLink) TryReceive() (byte, bool) {
	select {
	case b := <-pl.in:
		return b, true
	default:
		return 0, false
	}
}
