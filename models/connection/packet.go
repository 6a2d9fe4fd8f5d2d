package connection

import (
	cerr "github.com/saeidalz13/battleship-link/internal/error"
	mb "github.com/saeidalz13/battleship-link/models/battleship"
)

/*
Every message is one byte.

	|  7  |  6  |  5  |  4  |  3  |  2  |  1  |  0  |
	|   class   |        X        |        Y        |

Class 0 is an attack request carrying X and Y. The other classes are only
used by the fixed codes below, which are sent whole and never decomposed.
*/
const (
	classShift uint8 = 6
	xShift     uint8 = 3
	yShift     uint8 = 0
	fieldMask  uint8 = 0x07
	classMask  uint8 = 0x03

	ClassRequest uint8 = 0x00
)

type FixedCode uint8

const (
	CodeHit      FixedCode = 0xFF
	CodeMiss     FixedCode = 0x80
	CodeReady    FixedCode = 0x7F
	CodeReadyAck FixedCode = 0xBF
)

func (c FixedCode) String() string {
	switch c {
	case CodeHit:
		return "hit"
	case CodeMiss:
		return "miss"
	case CodeReady:
		return "ready"
	case CodeReadyAck:
		return "ready-ack"
	default:
		return "invalid"
	}
}

func packetClass(b byte) uint8 {
	return (b >> classShift) & classMask
}

func EncodeRequest(c mb.Coordinates) (byte, error) {
	if c.X > fieldMask || c.Y > fieldMask {
		return 0, cerr.ErrCoordinateOutOfField(c.X, c.Y)
	}
	return ClassRequest<<classShift | c.X<<xShift | c.Y<<yShift, nil
}

func DecodeRequest(b byte) mb.Coordinates {
	return mb.NewCoordinates((b>>xShift)&fieldMask, (b>>yShift)&fieldMask)
}

// IsValidRequest reports whether b is a request for a cell on the grid.
func IsValidRequest(b byte) bool {
	return packetClass(b) == ClassRequest && DecodeRequest(b).InBounds()
}

func ClassifyFixed(b byte) (FixedCode, bool) {
	switch code := FixedCode(b); code {
	case CodeHit, CodeMiss, CodeReady, CodeReadyAck:
		return code, true
	}
	return 0, false
}
