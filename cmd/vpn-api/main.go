package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edvin/vpn/internal/agent"
	"github.com/edvin/vpn/internal/api"
	"github.com/edvin/vpn/internal/config"
	"github.com/edvin/vpn/internal/core"
	"github.com/edvin/vpn/internal/db"
	"github.com/edvin/vpn/internal/logging"
	"github.com/edvin/vpn/internal/metrics"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations/core", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("vpn-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	metrics.RegisterPgxPoolMetrics(pool)

	agentClient := agent.NewClient(logger, cfg.AgentRetryAttempts)

	services := core.NewServices(pool, agentClient, logger, core.Options{
		RegionCode:        cfg.RegionCode,
		SessionLifetime:   time.Duration(cfg.SessionMinutes) * time.Minute,
		AddressPrefix:     cfg.AddressPrefix,
		AddressRangeStart: cfg.AddressRangeStart,
		AddressRangeEnd:   cfg.AddressRangeEnd,
		WGListenPort:      cfg.WGListenPort,
		Bootstrap: core.BootstrapParams{
			RegionCode:    cfg.RegionCode,
			PublicIP:      cfg.ServerPublicIP,
			PublicKeyFile: cfg.ServerPublicKeyFile,
			WGInterface:   cfg.WGInterface,
			AgentBaseURL:  cfg.AgentBaseURL,
			AgentSecret:   cfg.AgentSecret,
			InitialOctet:  cfg.AddressRangeStart,
		},
	})

	srv := api.NewServer(logger, pool, services)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	metricsServer := metrics.NewServer(cfg.MetricsListenAddr)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
		metricsServer.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
