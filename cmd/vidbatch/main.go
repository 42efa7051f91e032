package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/vidbatch/internal/batchstore"
	"github.com/timmy/vidbatch/internal/config"
	"github.com/timmy/vidbatch/internal/logger"
	"github.com/timmy/vidbatch/internal/repository"
	"github.com/timmy/vidbatch/internal/runway"
	"github.com/timmy/vidbatch/internal/service"
	"github.com/timmy/vidbatch/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "vidbatch",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	maxVideos := flag.Int("max-videos", 0, "Maximum number of videos to process (0 = all)")
	platform := flag.String("platform", "", "Target platform tag (ig, tt, tw)")
	timeout := flag.Int("timeout", 0, "Polling timeout in seconds (0 = config default)")
	dryRun := flag.Bool("dry-run", false, "Plan the batch without submitting tasks")
	resume := flag.Bool("resume", false, "Resume the latest saved batch instead of submitting")
	upload := flag.Bool("upload", false, "Archive results to object storage after reporting")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if cfg.Log.Level != "" || cfg.Log.File != "" {
		appLogger = logger.New(&logger.Config{
			Level:       cfg.Log.Level,
			Format:      cfg.Log.Format,
			ServiceName: "vidbatch",
			LogFile:     cfg.Log.File,
		})
		logger.SetDefaultLogger(appLogger)
	}
	defer logger.Sync()

	if cfg.Runway.APIKey == "" && !*dryRun {
		appLogger.Fatal("RUNWAY_API_KEY environment variable not set")
	}
	if *timeout > 0 {
		cfg.Poll.TimeoutSeconds = *timeout
	}

	appLogger.WithFields(logger.Fields{
		"max_videos": *maxVideos,
		"platform":   *platform,
		"resume":     *resume,
		"dry_run":    *dryRun,
	}).Info("Starting video generation pipeline")

	store, err := batchstore.New(cfg.Batch.QueueDir)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize batch store")
	}

	client := runway.NewClient(&runway.ClientConfig{
		APIKey:  cfg.Runway.APIKey,
		BaseURL: cfg.Runway.BaseURL,
		Model:   cfg.Runway.Model,
	})

	// Report ledger is optional.
	var ledger service.ReportLedger
	if cfg.Database.Enabled {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize database")
		}
		ledger = repository.NewReportRepository(db)
	}

	// Object storage is optional.
	var archiver *service.Archiver
	if cfg.Storage.Enabled {
		objectStorage, err := storage.NewStorage(&cfg.Storage)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize storage")
		}
		archiver = service.NewArchiver(objectStorage, cfg.Batch.OutputDir, appLogger)
	}

	namer := service.NewNamer(cfg.Naming.DraftMarkers, cfg.Naming.OutputSuffix)
	submitter := service.NewSubmitter(client, store, namer, appLogger, service.SubmitterConfig{
		Ratio:       cfg.Runway.Ratio,
		Duration:    cfg.Runway.Duration,
		SubmitDelay: cfg.Batch.SubmitDelay(),
		DryRun:      *dryRun,
	})
	poller := service.NewPoller(client, store, appLogger, service.PollerConfig{
		Interval:       cfg.Poll.Interval(),
		Timeout:        cfg.Poll.Timeout(),
		MaxEntryErrors: cfg.Poll.MaxEntryErrors,
	})
	downloader := service.NewDownloader(client, cfg.Batch.OutputDir, appLogger)
	reporter := service.NewReporter(cfg.Batch.OutputDir, ledger, appLogger)

	pipeline := service.NewPipeline(store, cfg.Batch.QueueDir,
		submitter, poller, downloader, reporter, archiver, appLogger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	report, err := pipeline.Run(ctx, service.PipelineOptions{
		MaxVideos: *maxVideos,
		Platform:  *platform,
		Resume:    *resume,
		Upload:    *upload,
		DryRun:    *dryRun,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Pipeline failed")
	}

	if report != nil {
		fmt.Println(reporter.Render(report))
		appLogger.WithFields(logger.Fields{
			"succeeded":    report.Summary.Succeeded,
			"failed":       report.Summary.Failed,
			"success_rate": report.Performance.SuccessRatePercent,
		}).Info("Pipeline completed")
	}
}
