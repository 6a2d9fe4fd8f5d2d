package connection

import "fmt"

const (
	LinkExhausted uint8 = iota
	LinkWriteFailed
	LinkClosed
)

// LinkErr is the only failure the link session surfaces. Noise on the
// line never produces one.
type LinkErr struct {
	code uint8
	desc string
}

func NewLinkErr(code uint8) LinkErr {
	return LinkErr{code: code}
}

func (l LinkErr) AddDesc(desc string) LinkErr {
	l.desc = desc
	return l
}

func (l LinkErr) Error() string {
	return fmt.Sprintf("link error - code: %d\tdesc: %s", l.code, l.desc)
}

func (l LinkErr) Code() uint8 {
	return l.code
}
