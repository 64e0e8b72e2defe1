package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/timeclock-server/timeclock-server-pro/internal/api"
	"github.com/timeclock-server/timeclock-server-pro/internal/attachment"
	"github.com/timeclock-server/timeclock-server-pro/internal/breaks"
	"github.com/timeclock-server/timeclock-server-pro/internal/clock"
	"github.com/timeclock-server/timeclock-server-pro/internal/config"
	"github.com/timeclock-server/timeclock-server-pro/internal/integration"
	"github.com/timeclock-server/timeclock-server-pro/internal/leave"
	"github.com/timeclock-server/timeclock-server-pro/internal/notify"
	"github.com/timeclock-server/timeclock-server-pro/internal/overtime"
	"github.com/timeclock-server/timeclock-server-pro/internal/seal"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/timeclock-server.yml", "Configuration file path")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Connect to database
	store, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	log.Info().Msg("Connected to database")

	// Punch seal signing
	sealer, err := seal.New(cfg.Signing)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load signing keys")
	}

	// Optional event bus. A nil connection yields a no-op publisher.
	nc, err := integration.Connect(cfg.NATS)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without events")
	}
	if nc != nil {
		defer nc.Close()
		log.Info().Str("url", cfg.NATS.URL).Msg("Connected to NATS")
	}
	events := integration.NewPublisher(nc)

	loc := cfg.Location()
	files := attachment.NewClient(cfg.Storage)
	engine := clock.NewEngine(store, sealer, events, loc)

	services := api.Services{
		Clock:    engine,
		Breaks:   breaks.NewTracker(store, files),
		Leave:    leave.NewService(store, events, loc),
		Overtime: overtime.NewAggregator(store, loc),
		Sealer:   sealer,
		Files:    files,
	}

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start REST API server
	apiServer := api.NewRESTServer(cfg, store, services)

	// WaitGroup for services
	var wg sync.WaitGroup

	// Start API server
	wg.Add(1)
	go func() {
		defer wg.Done()
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		if err := apiServer.ListenAndServe(addr); err != nil {
			log.Error().Err(err).Msg("REST API server stopped")
		}
	}()

	// Background jobs run on the scheduler host only. The advisory locks
	// inside the job bodies cover accidental double hosting.
	if cfg.Scheduler.Host {
		scheduler := notify.NewScheduler(store, notify.NewSMTPMailer(cfg.Mail), cfg.Scheduler.ReminderInterval, loc)

		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Run(ctx)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			runAutoClose(ctx, engine, loc)
		}()
	} else {
		log.Info().Msg("Scheduler not hosted on this worker")
	}

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	// Cancel context
	cancel()

	// Shutdown API server
	if err := apiServer.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown API server gracefully")
	}

	// Wait for all services
	wg.Wait()

	log.Info().Msg("Timeclock server stopped")
}

// runAutoClose fires shortly after each local midnight and closes the
// previous day's open punches at that day's 23:59:59.
func runAutoClose(ctx context.Context, engine *clock.Engine, loc *time.Location) {
	for {
		now := time.Now().In(loc)
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 5, 0, 0, loc).AddDate(0, 0, 1)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			yesterday := time.Now().In(loc).AddDate(0, 0, -1)
			if _, err := engine.AutoClose(ctx, yesterday); err != nil {
				log.Error().Err(err).Msg("Auto-close pass failed")
			}
		}
	}
}
