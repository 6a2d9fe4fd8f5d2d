package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/saeidalz13/battleship-link/db/sqlc"
	"github.com/saeidalz13/battleship-link/internal/config"
	cerr "github.com/saeidalz13/battleship-link/internal/error"
	"github.com/saeidalz13/battleship-link/internal/observability"
	mb "github.com/saeidalz13/battleship-link/models/battleship"
	mc "github.com/saeidalz13/battleship-link/models/connection"
)

const (
	LinkRoute = "/link"

	defaultTickRate int = 500

	// one byte per frame
	linkBufferSize int = 64
)

// PeerLink is a transport to exactly one remote peer.
type PeerLink interface {
	mc.ClosingTransport
	RemoteAddr() net.Addr
}

var _ PeerLink = (*mc.WsLink)(nil)

type Server struct {
	stage     string
	role      string
	tickRate  int
	policy    mc.RetryPolicy
	durations Durations
	queries   sqlc.Querier
	input     Input
	renderer  Renderer
	upgrader  websocket.Upgrader

	links  chan *mc.WsLink
	mu     sync.Mutex
	linked bool
}

type Option func(*Server) error

func NewServer(optFuncs ...Option) *Server {
	server := Server{
		stage:     config.StageDev,
		role:      mb.RoleHost,
		tickRate:  defaultTickRate,
		durations: Durations{Feedback: 500, Terminal: 500},
		links:     make(chan *mc.WsLink, 1),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: time.Second * 5,
			ReadBufferSize:   linkBufferSize,
			WriteBufferSize:  linkBufferSize,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range optFuncs {
		if err := opt(&server); err != nil {
			panic(err)
		}
	}
	return &server
}

// WithStage in prod only accepts peers that are not browsers, which never
// send an Origin header.
func WithStage(stage string) Option {
	return func(s *Server) error {
		if stage != config.StageProd && stage != config.StageDev {
			return cerr.ErrInvalidStage(stage)
		}
		s.stage = stage
		if stage == config.StageProd {
			s.upgrader.CheckOrigin = func(r *http.Request) bool {
				return r.Header.Get("Origin") == ""
			}
		}
		return nil
	}
}

func WithRole(role string) Option {
	return func(s *Server) error {
		if !mb.IsRoleValid(role) {
			return cerr.ErrInvalidRole(role)
		}
		s.role = role
		return nil
	}
}

func WithTickRate(rate int) Option {
	return func(s *Server) error {
		if rate <= 0 {
			return fmt.Errorf("tick rate must be positive: %d", rate)
		}
		s.tickRate = rate
		return nil
	}
}

func WithRetryPolicy(policy mc.RetryPolicy) Option {
	return func(s *Server) error {
		s.policy = policy
		return nil
	}
}

func WithDurations(durations Durations) Option {
	return func(s *Server) error {
		s.durations = durations
		return nil
	}
}

// WithQueries enables match analytics; results are stored per peer.
func WithQueries(queries sqlc.Querier) Option {
	return func(s *Server) error {
		s.queries = queries
		return nil
	}
}

func WithInput(input Input) Option {
	return func(s *Server) error {
		s.input = input
		return nil
	}
}

func WithRenderer(renderer Renderer) Option {
	return func(s *Server) error {
		s.renderer = renderer
		return nil
	}
}

func getPeerIpNet(remoteAddr string) (net.IPNet, error) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return net.IPNet{}, err
	}

	parsedIP := net.ParseIP(host)
	if parsedIP == nil {
		return net.IPNet{}, fmt.Errorf("invalid peer ip: %s", host)
	}
	if parsedIP.To4() != nil {
		return net.IPNet{IP: parsedIP.To4(), Mask: net.CIDRMask(32, 32)}, nil
	}
	return net.IPNet{IP: parsedIP, Mask: net.CIDRMask(128, 128)}, nil
}

// HandleLink upgrades the request into the peer link. The link is one to
// one, so a second peer is turned away while the first is connected.
func (s *Server) HandleLink(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.linked {
		s.mu.Unlock()
		log.Warn().Str("remote", r.RemoteAddr).Msg("link busy; peer rejected")
		http.Error(w, "a peer is already linked", http.StatusConflict)
		return
	}
	s.linked = true
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to open link")
		s.release()
		return
	}

	link := mc.NewWsLink(conn)
	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("a new peer linked")
	go func() {
		<-link.Done()
		s.release()
	}()
	s.links <- link
}

// Router serves the link route next to /metrics and /health; /peer tells
// whether the link slot is taken.
func (s *Server) Router() *gin.Engine {
	router := observability.NewRouter("battleship-link")
	router.GET(LinkRoute, gin.WrapF(s.HandleLink))
	router.GET("/peer", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"role":   s.role,
			"linked": s.isLinked(),
		})
	})
	return router
}

func (s *Server) isLinked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linked
}

func (s *Server) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linked = false
}

// AwaitLink blocks until a peer has connected through HandleLink.
func (s *Server) AwaitLink(ctx context.Context) (*mc.WsLink, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case link := <-s.links:
		return link, nil
	}
}

// Play runs the paced game loop over link until ctx is cancelled or the
// peer goes away. Games follow one another on the same link.
func (s *Server) Play(ctx context.Context, link PeerLink) error {
	if s.input == nil {
		return errors.New("server has no input source")
	}

	match, err := mb.NewMatch(s.role)
	if err != nil {
		return err
	}

	pacer := mc.NewTickerPacer(s.tickRate)
	defer pacer.Stop()

	opts := []MachineOption{WithMachineDurations(s.durations)}
	if s.renderer != nil {
		opts = append(opts, WithMachineRenderer(s.renderer))
	}
	if s.queries != nil {
		peerIpNet, err := getPeerIpNet(link.RemoteAddr().String())
		if err != nil {
			log.Warn().Err(err).Msg("peer ip unknown; results stored without it")
		}
		opts = append(opts, WithMachineRecorder(sqlc.NewDbManager(s.queries, peerIpNet).Analytics))
	}

	tm := NewTurnMachine(match, mc.NewSession(link, pacer, s.policy), s.input, opts...)
	log.Info().Str("game", match.Uuid()).Str("role", s.role).Str("stage", s.stage).Int("tick_rate", s.tickRate).Msg("game loop started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-link.Done():
			return mc.NewLinkErr(mc.LinkClosed).AddDesc("peer connection closed")
		default:
		}

		pacer.Wait()
		if err := tm.Tick(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("state", tm.State().String()).Msg("tick failed")
		}
	}
}
