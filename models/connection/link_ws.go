package connection

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	maxWriteWsRetries uint8         = 2
	backOffFactor     uint8         = 2
	writeWait         time.Duration = time.Second * 2
	handshakeTimeout  time.Duration = time.Second * 5
	wsInboxSize       int           = 64
)

const (
	connLoopBreak uint8 = iota
	connLoopRetry
)

// WsLink carries the one-byte protocol over a websocket, one binary
// message per byte. A reader goroutine queues incoming bytes so that
// TryReceive never blocks the paced loop.
type WsLink struct {
	conn  *websocket.Conn
	inbox chan byte
	done  chan struct{}

	closeOnce sync.Once
}

func NewWsLink(conn *websocket.Conn) *WsLink {
	wl := &WsLink{
		conn:  conn,
		inbox: make(chan byte, wsInboxSize),
		done:  make(chan struct{}),
	}
	go wl.readLoop()
	return wl
}

func DialLink(ctx context.Context, url string) (*WsLink, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("link dialed")
	return NewWsLink(conn), nil
}

func (wl *WsLink) RemoteAddr() net.Addr {
	return wl.conn.RemoteAddr()
}

// Done is closed once the peer connection is gone.
func (wl *WsLink) Done() <-chan struct{} {
	return wl.done
}

func (wl *WsLink) Close() error {
	var err error
	wl.closeOnce.Do(func() {
		_ = wl.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		err = wl.conn.Close()
	})
	return err
}

func (wl *WsLink) readLoop() {
	defer close(wl.done)

	for {
		messageType, payload, err := wl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Msg("link read failed")
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			log.Debug().Int("type", messageType).Msg("non-binary frame dropped")
			continue
		}

		for _, b := range payload {
			select {
			case wl.inbox <- b:
			default:
				// the receiver is overrun; the sender retransmits
				log.Debug().Uint8("byte", b).Msg("link inbox full, byte lost")
			}
		}
	}
}

func (wl *WsLink) TryReceive() (byte, bool) {
	select {
	case b := <-wl.inbox:
		return b, true
	default:
		return 0, false
	}
}

// Transmit writes one byte, retrying with backoff while the error is
// transient.
func (wl *WsLink) Transmit(b byte) error {
	var retries uint8

	for {
		_ = wl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := wl.conn.WriteMessage(websocket.BinaryMessage, []byte{b})
		if err == nil {
			return nil
		}

		if onConnErr(err) == connLoopRetry && retries < maxWriteWsRetries {
			retries++
			log.Warn().Err(err).Uint8("retry", retries).Msg("link write failed; retrying")
			time.Sleep(time.Duration(retries*backOffFactor) * 100 * time.Millisecond)
			continue
		}

		return NewLinkErr(LinkWriteFailed).AddDesc(err.Error())
	}
}

func onConnErr(err error) uint8 {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return connLoopRetry
	}

	if websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		return connLoopRetry
	}

	return connLoopBreak
}
