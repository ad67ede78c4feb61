package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/config"
	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/store"
	"github.com/vovakirdan/wirechat-presence/internal/store/memory"
	"github.com/vovakirdan/wirechat-presence/internal/store/redisstore"
	"github.com/vovakirdan/wirechat-presence/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-presence/internal/transport/http"
)

const storeOpenTimeout = 5 * time.Second

// App wires together store, core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.ChatterStore
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := openStore(cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	registry := core.NewRegistry(st)
	router := core.NewRouter()
	sessions := core.NewSessionManager(st, registry, router, logger)
	hub := core.NewHub(sessions, router, logger)
	if cfg.LeaveTimeout > 0 {
		hub.LeaveTimeout = cfg.LeaveTimeout
	}

	server := transporthttp.NewServer(hub, registry, *cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

func openStore(cfg config.StoreConfig, logger *zerolog.Logger) (store.ChatterStore, error) {
	switch cfg.Driver {
	case config.StoreMemory, "":
		logger.Info().Str("driver", config.StoreMemory).Msg("roster store initialized")
		return memory.New(), nil
	case config.StoreSQLite:
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("driver", cfg.Driver).Str("db_path", cfg.SQLitePath).Msg("roster store initialized")
		return st, nil
	case config.StoreRedis:
		ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
		defer cancel()
		st, err := redisstore.New(ctx, redisstore.Config{Addr: cfg.RedisAddr, Prefix: cfg.RedisPrefix})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("driver", cfg.Driver).Str("addr", cfg.RedisAddr).Msg("roster store initialized")
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		a.hub.Run(hubCtx)
		close(hubDone)
	}()

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.stop(stopHub, hubDone)
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.stop(stopHub, hubDone)
			return err
		}

		a.stop(stopHub, hubDone)
		return <-serverErr
	}
}

// stop closes every client, waits for their chatters to be removed, then
// closes the store.
func (a *App) stop(stopHub context.CancelFunc, hubDone <-chan struct{}) {
	stopHub()
	<-hubDone
	a.cleanup()
}

// cleanup closes the store and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
