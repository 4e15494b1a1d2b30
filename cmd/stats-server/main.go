package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blockedby/tgstats/internal/api"
	"github.com/blockedby/tgstats/internal/config"
	"github.com/blockedby/tgstats/internal/database"
	"github.com/blockedby/tgstats/internal/directory"
	"github.com/blockedby/tgstats/internal/logger"
	"github.com/blockedby/tgstats/internal/migrator"
	"github.com/blockedby/tgstats/internal/nats"
	"github.com/blockedby/tgstats/internal/publisher"
	"github.com/blockedby/tgstats/internal/repository"
	"github.com/blockedby/tgstats/internal/stats"
	"github.com/blockedby/tgstats/internal/telegram"
	"github.com/blockedby/tgstats/internal/web"
	"github.com/blockedby/tgstats/migrations"
)

var version = "dev"

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile, cfg.LogFormat); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	defer log.Close()
	log.Info().Str("version", version).Msg("starting statistics service")

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Connect to database
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m, err := migrator.NewWithFS(migrations.FS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load migrations")
	}
	if err := m.Up(ctx, cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	var broker api.BrokerStatus

	history := repository.NewEventsRepository(db.Pool)
	publishers := []stats.Publisher{history}
	go pruneEvents(ctx, history, cfg.StatsEventRetention)

	// 5. Connect to NATS (optional)
	nc, err := nats.New(ctx, cfg.NatsURL)
	if err != nil {
		log.Warn().Err(err).Msg("failed to connect to nats, event stream disabled")
	} else {
		defer nc.Close()
		if err := nc.EnsureStream(ctx, nats.StatsStream, nats.StatsSubjects); err != nil {
			log.Warn().Err(err).Msg("failed to ensure stats stream")
		}
		publishers = append(publishers, publisher.NewNATSPublisher(nc))
		broker = nc
	}

	// 6. Initialize telegram manager
	if cfg.TGApiID == 0 || cfg.TGApiHash == "" {
		log.Fatal().Msg("TG_API_ID and TG_API_HASH are required")
	}

	tgManager, err := telegram.NewManager(cfg, db.GORM)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create telegram manager")
	}
	if err := tgManager.Init(ctx); err != nil {
		log.Error().Err(err).Msg("telegram manager init failed")
	}
	defer tgManager.Stop()

	// 7. Peer and message directory
	dir, err := directory.New(db.GORM)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open directory")
	}
	defer dir.Close()
	if err := dir.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to preload directory")
	}

	// 8. Transport and statistics loop
	limiter := telegram.NewRateLimiter(cfg.TGRateLimitRPS, 1)
	transport := telegram.NewTransport(tgManager, limiter)

	// the loop outlives ctx so the service can still tear its fetchers down
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loop := stats.NewLoop()
	go func() {
		if err := loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("stats loop stopped")
		}
	}()

	// 9. Live feed
	hub := web.NewHub()
	publishers = append(publishers, hub)

	svc := stats.NewService(loop, transport, dir, publisher.NewFanout(publishers...), stats.Options{
		SweepInterval:    cfg.StatsSweepInterval,
		ForwardsLimit:    cfg.StatsForwardsLimit,
		BoostsFirstSlice: cfg.StatsBoostsFirstSlice,
		BoostsLimit:      cfg.StatsBoostsLimit,
		LinkDomain:       cfg.TGLinkDomain,
	})

	tgClient := telegram.NewClient(tgManager, limiter, dir)

	// 10. Initialize API server
	server := api.NewServer(&api.Config{
		Port:           cfg.HTTPPort,
		Title:          "Telegram Statistics API",
		Description:    "Channel, supergroup, post and boost statistics",
		Version:        version,
		RequestTimeout: cfg.StatsRequestTimeout,
	}, &api.Dependencies{
		Stats:    svc,
		Resolver: tgClient,
		Telegram: tgManager,
		Database: db,
		Broker:   broker,
		Feed:     hub,
		History:  history,
	})

	// 11. Start server
	log.Info().Int("port", cfg.HTTPPort).Msg("starting api server")
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	// 12. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("api server shutdown")
	}
	if err := svc.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("stats service shutdown")
	}
	stopLoop()
	transport.Wait()
	dir.Flush()

	log.Info().Msg("shutdown complete")
}

// pruneEvents drops recorded events older than retention, hourly.
func pruneEvents(ctx context.Context, history *repository.EventsRepository, retention time.Duration) {
	if retention <= 0 {
		return
	}
	log := logger.Get().Component("history")
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		n, err := history.Prune(ctx, time.Now().Add(-retention))
		if err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("failed to prune events")
		} else if n > 0 {
			log.Info().Int64("pruned", n).Msg("pruned old events")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
