package main

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/saeidalz13/battleship-link/api"
	"github.com/saeidalz13/battleship-link/db"
	"github.com/saeidalz13/battleship-link/db/sqlc"
	"github.com/saeidalz13/battleship-link/internal/config"
	"github.com/saeidalz13/battleship-link/internal/observability"
	mc "github.com/saeidalz13/battleship-link/models/connection"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("battleship link stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// the terminal belongs to the board when termbox draws it
	var logOut io.Writer = os.Stdout
	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	case cfg.Interface == config.InterfaceTermbox:
		logOut = io.Discard
	}
	observability.InitLogger("battleship-link", cfg.LogLevel, cfg.Stage, logOut)
	gin.DefaultWriter, gin.DefaultErrorWriter = logOut, logOut
	if cfg.Stage == config.StageProd {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	opts := []api.Option{
		api.WithStage(cfg.Stage),
		api.WithRole(cfg.Role),
		api.WithTickRate(cfg.TickRate),
		api.WithRetryPolicy(mc.RetryPolicy{MaxAttempts: cfg.MaxAttempts, ResponseTimeout: cfg.ResponseTimeoutTicks}),
		api.WithDurations(api.Durations{Feedback: cfg.FeedbackTicks, Terminal: cfg.TerminalTicks}),
	}

	if cfg.DatabaseURL != "" {
		dbConn := db.MustConnectToDb(cfg.DatabaseURL, db.DefaultMigrationDir)
		defer dbConn.Close()
		opts = append(opts, api.WithQueries(sqlc.New(dbConn)))
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var input api.Input
	switch cfg.Interface {
	case config.InterfaceTermbox:
		ui, err := api.NewTermboxUI(stop, rng)
		if err != nil {
			return err
		}
		defer ui.Close()
		input = ui
		opts = append(opts, api.WithRenderer(ui))
	default:
		input = api.NewConsoleInput(ctx, os.Stdin, rng)
		opts = append(opts, api.WithRenderer(api.NewLogRenderer(os.Stdout)))
	}
	if cfg.Autoplay {
		// about half a second of thinking per move
		input = api.NewAutoPlayer(rand.New(rand.NewSource(time.Now().UnixNano())), cfg.TickRate/2)
	}
	opts = append(opts, api.WithInput(input))

	server := api.NewServer(opts...)
	if cfg.LinkMode == config.LinkModeDial {
		link, err := mc.DialLink(ctx, cfg.PeerURL)
		if err != nil {
			return err
		}
		defer link.Close()
		return server.Play(ctx, link)
	}
	return listen(ctx, server, cfg.LinkAddr)
}

// listen serves one peer at a time and waits for the next when a peer leaves.
func listen(ctx context.Context, server *api.Server, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: server.Router()}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("link listener failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", addr).Str("route", api.LinkRoute).Msg("waiting for a peer")

	for {
		link, err := server.AwaitLink(ctx)
		if err != nil {
			return err
		}

		err = server.Play(ctx, link)
		_ = link.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("peer left; waiting for the next one")
	}
}

func serveMetrics(addr string) {
	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := observability.NewRouter("battleship-link").Run(addr); err != nil {
		log.Error().Err(err).Msg("metrics server failed")
	}
}
