package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cohortlabs/cohort-hub/internal/auth"
	"github.com/cohortlabs/cohort-hub/internal/config"
	"github.com/cohortlabs/cohort-hub/internal/core"
	"github.com/cohortlabs/cohort-hub/internal/mint"
	"github.com/cohortlabs/cohort-hub/internal/store"
	"github.com/cohortlabs/cohort-hub/internal/store/sqlite"
	transporthttp "github.com/cohortlabs/cohort-hub/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      24 * time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	hub := core.NewHub(core.Options{
		ChatMaxLen:      cfg.ChatMaxLen,
		ChatLogCapacity: cfg.ChatLogCapacity,
		GraceWindow:     cfg.RoomGraceWindow,
		Weights: core.ScoreWeights{
			Chat:       cfg.ScoreChat,
			Vote:       cfg.ScoreVote,
			Attendance: cfg.ScoreAttendance,
		},
	}, st, logger)

	var minter mint.Minter = mint.Nop{}
	if cfg.MintEndpoint != "" {
		minter = mint.NewHTTPMinter(cfg.MintEndpoint)
	}

	server := transporthttp.NewServer(hub, authService, st, minter, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.cleanup()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
