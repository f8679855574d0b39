package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dsyorkd/emr-controller/internal/api"
	"github.com/dsyorkd/emr-controller/internal/config"
	"github.com/dsyorkd/emr-controller/internal/logger"
	"github.com/dsyorkd/emr-controller/internal/models"
	"github.com/dsyorkd/emr-controller/internal/provisioner"
	"github.com/dsyorkd/emr-controller/internal/services"
	"github.com/dsyorkd/emr-controller/internal/storage"
	"github.com/dsyorkd/emr-controller/internal/websocket"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	configFile string
	logLevel   string
	logFormat  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "emr-controller",
	Short: "EMR Controller - ephemeral analysis cluster management service",
	Long: `EMR Controller provisions and manages ephemeral AWS EMR clusters on
behalf of interactive analysis users. It keeps local cluster records in
sync with the remote backend, enforces time-based expiration, and
exposes a REST API for cluster creation, extension and termination.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("EMR Controller %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one expiration sweep and exit",
	Long: `Sync all pollable cluster records against the backend, terminate
expired clusters, and dispatch pre-expiration notices, then exit.`,
	RunE: runSweep,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, text)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(sweepCmd)
}

type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *storage.Database
	clusters *services.ClusterService
	releases *services.ReleaseService
}

// setup loads configuration and wires storage, the provisioner client
// and the lifecycle services.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	db, err := storage.New(&cfg.Database, log)
	if err != nil {
		return nil, err
	}

	prov, err := provisioner.NewEMR(ctx, provisioner.EMRConfig{
		Region:             cfg.AWS.Region,
		Profile:            cfg.AWS.Profile,
		AccessKeyID:        cfg.AWS.AccessKeyID,
		SecretAccessKey:    cfg.AWS.SecretAccessKey,
		MasterInstanceType: cfg.AWS.MasterInstanceType,
		WorkerInstanceType: cfg.AWS.WorkerInstanceType,
		ServiceRole:        cfg.AWS.ServiceRole,
		JobFlowRole:        cfg.AWS.JobFlowRole,
	}, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	metrics := services.NewStoreSink(db, log)
	notifier := services.NewLogNotifier(log)
	clusters := services.NewClusterService(db, prov, metrics, notifier, services.ClusterServiceConfig{
		MaxLifetime:      cfg.Sweep.MaxLifetime,
		LookaheadWindow:  config.Duration(cfg.Sweep.LookaheadWindow, time.Hour),
		SweepConcurrency: cfg.Sweep.Concurrency,
		DescribeRate:     cfg.Sweep.DescribeRate,
		DescribeBurst:    cfg.Sweep.DescribeBurst,
		StartTimeout:     config.Duration(cfg.AWS.StartTimeout, 60*time.Second),
		DescribeTimeout:  config.Duration(cfg.AWS.DescribeTimeout, 15*time.Second),
		StopTimeout:      config.Duration(cfg.AWS.StopTimeout, 30*time.Second),
	}, log)

	releases := services.NewReleaseService(db, log)
	if len(cfg.Releases) > 0 {
		seed := make([]models.EMRRelease, 0, len(cfg.Releases))
		for _, r := range cfg.Releases {
			seed = append(seed, models.EMRRelease{
				Version:        r.Version,
				ChangelogURL:   r.ChangelogURL,
				HelpText:       r.HelpText,
				IsActive:       r.IsActive,
				IsExperimental: r.IsExperimental,
				IsDeprecated:   r.IsDeprecated,
			})
		}
		if err := releases.Seed(seed); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		clusters: clusters,
		releases: releases,
	}, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.db.Close()

	hub := websocket.NewHub(a.log)
	a.clusters.SetEventPublisher(hub)

	server := api.New(&a.cfg.API, a.log, a.db, a.clusters, a.releases, hub, a.cfg.App.Debug)

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runSweepLoop(ctx, a)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.log.WithField("signal", sig.String()).Info("Shutting down")
	case err := <-errCh:
		a.log.WithError(err).Error("API server failed")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("API server shutdown was not clean")
	}

	wg.Wait()
	return nil
}

// runSweepLoop drives the periodic expiration sweep until the context
// is cancelled.
func runSweepLoop(ctx context.Context, a *app) {
	interval := config.Duration(a.cfg.Sweep.Interval, 5*time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.log.WithField("interval", interval.String()).Info("Expiration sweep scheduled")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := a.clusters.RunExpirationSweep(ctx)
			if err != nil {
				a.log.WithError(err).Error("Expiration sweep failed")
				continue
			}
			a.log.WithFields(map[string]interface{}{
				"synced":     stats.Synced,
				"terminated": stats.Terminated,
				"notified":   stats.Notified,
				"errors":     stats.Errors,
			}).Info("Expiration sweep completed")
		}
	}
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.db.Close()

	stats, err := a.clusters.RunExpirationSweep(ctx)
	if err != nil {
		return err
	}

	a.log.WithFields(map[string]interface{}{
		"synced":     stats.Synced,
		"terminated": stats.Terminated,
		"notified":   stats.Notified,
		"errors":     stats.Errors,
	}).Info("Expiration sweep completed")
	return nil
}
