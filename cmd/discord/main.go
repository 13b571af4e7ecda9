package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/keshon/cmdguard/internal/command/core"
	"github.com/keshon/cmdguard/internal/config"
	"github.com/keshon/cmdguard/internal/cooldown"
	"github.com/keshon/cmdguard/internal/discord"
	"github.com/keshon/cmdguard/internal/logging"
	"github.com/keshon/cmdguard/internal/metrics"
	"github.com/keshon/cmdguard/internal/status"
	"github.com/keshon/cmdguard/internal/storage"
	"github.com/keshon/cmdguard/pkg/cmd"
	"github.com/keshon/cmdguard/pkg/jobmgr"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("Failed to load config")
	}
	log := logging.New(cfg.Log)
	if err := cfg.RequireDiscord(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("Discord bot error")
		stop()
		os.Exit(1)
	}
	log.Info().Msg("Discord bot exited cleanly")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	log.Info().Msg("Starting bot")

	store, err := storage.Open(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close cooldown store")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	m, err := cooldown.New(ctx, store, cfg.ManagerConfig(),
		cooldown.WithLogger(log.With().Str("component", "cooldown").Logger()),
		cooldown.WithRecorder(rec),
	)
	if err != nil {
		return err
	}
	metrics.RegisterActive(reg, m)
	log.Info().Int("windows", m.Len()).Str("driver", store.Driver()).Msg("Cooldowns loaded")

	jobs := jobmgr.NewManager(func(ev jobmgr.Event) {
		e := log.Debug()
		if ev.Err != nil {
			e = log.Error().Err(ev.Err)
		}
		e.Str("job", ev.Name).Str("state", string(ev.State)).Msg("Job status")
	})
	defer jobs.StopAll()

	if err := jobs.StartAsync(ctx, "cooldown-sweeper", func(ctx context.Context) error {
		return cooldown.RunSweeper(ctx, m, cfg.Cooldown.SweepInterval)
	}); err != nil {
		return err
	}
	if cfg.StatusAddr != "" {
		var stats func() any
		if ds, ok := store.(*storage.DatastoreStore); ok {
			stats = func() any { return ds.Stats() }
		}
		srv := status.New(cfg.StatusAddr, m, reg, log.With().Str("component", "status").Logger(),
			status.WithStore(store.Driver(), stats))
		if err := jobs.StartAsync(ctx, "status-server", srv.Run); err != nil {
			return err
		}
	}

	commands := cmd.NewRegistry()
	if err := core.Register(core.Deps{Registry: commands, Manager: m, Log: log}); err != nil {
		return err
	}

	return discord.New(cfg, commands, log).Run(ctx)
}
