package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"memory-pairs/internal/config"
	"memory-pairs/internal/events"
	"memory-pairs/internal/store"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host games over WebSocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	pub := openPublisher(cfg)
	defer pub.Close()

	srv := NewServer(cfg, st, pub)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		srv.Run(ctx)
		return nil
	})

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore picks the results backend: SQLite, then Redis, then memory
func openStore(cfg config.Config) (store.Store, error) {
	if cfg.SQLitePath != "" {
		st, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("results in sqlite")
		return st, nil
	}

	if cfg.RedisAddr != "" {
		st, err := store.NewRedisStore(cfg.RedisAddr, "", 0)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, using memory store")
			return store.NewMemoryStore(), nil
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("results in redis")
		return st, nil
	}

	log.Info().Msg("results in memory")
	return store.NewMemoryStore(), nil
}

func openPublisher(cfg config.Config) events.Publisher {
	if cfg.NATSURL == "" {
		return events.Nop{}
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		log.Warn().Err(err).Str("url", cfg.NATSURL).Msg("nats unavailable, events disabled")
		return events.Nop{}
	}
	log.Info().Str("url", cfg.NATSURL).Msg("publishing game events")
	return pub
}
