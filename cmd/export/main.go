package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ilagnev/barnes-tms-extract/pkg/config"
	"github.com/ilagnev/barnes-tms-extract/pkg/exporter"
	"github.com/ilagnev/barnes-tms-extract/pkg/logger"
	"github.com/ilagnev/barnes-tms-extract/pkg/oss"
	"github.com/ilagnev/barnes-tms-extract/pkg/progress"
	"github.com/ilagnev/barnes-tms-extract/pkg/status"
	"github.com/ilagnev/barnes-tms-extract/pkg/tms"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
	limit      = flag.Int("limit", 0, "Override debug limit: export at most N objects")
	quiet      = flag.Bool("quiet", false, "Disable the terminal progress bar")
	version    = "1.0.0"
)

func main() {
	flag.Parse()

	// Credentials usually live in .env rather than the config file
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *limit > 0 {
		cfg.Debug.Limit = *limit
	}

	log, err := logger.New(
		cfg.Logging.Level,
		cfg.Logging.Format,
		cfg.Logging.Output,
		cfg.Logging.EnableTracing,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info(fmt.Sprintf("Starting TMS export v%s", version))
	log.Info("Configuration loaded", logger.Fields{
		"api_url":    cfg.API.URL,
		"output_dir": cfg.Export.OutputDirectory,
		"format":     cfg.Export.Format,
		"fields":     len(cfg.Export.Fields),
		"limit":      cfg.Debug.Limit,
	})

	notifiers := progress.Multi{}
	if !*quiet {
		notifiers = append(notifiers, progress.NewBar())
	}

	source := tms.NewClient(cfg.API, cfg.Fetch, log)
	controller := exporter.NewController(cfg, source, notifiers, log)

	// SIGINT/SIGTERM request cooperative cancellation; the run finalizes
	// with CANCELLED at the next loop boundary
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Shutdown signal received, cancelling export...")
		controller.Cancel()
	}()

	snapshot, err := controller.Run(context.Background())
	if err != nil {
		log.Fatal("Export failed to start", logger.Fields{"error": err.Error()})
	}

	log.Info("Export finished", logger.Fields{
		"status":    string(snapshot.Status),
		"processed": snapshot.Processed,
		"total":     snapshot.Total,
		"csv":       snapshot.CSV,
	})

	if snapshot.Status == status.StatusCompleted && cfg.OSS.Enabled() {
		uploader, err := oss.NewUploader(&cfg.OSS, log)
		if err != nil {
			log.Fatal("Failed to initialize OSS uploader", logger.Fields{"error": err.Error()})
		}
		result, err := uploader.UploadRun(context.Background(), snapshot.RunID, filepath.Dir(snapshot.CSV))
		if err != nil {
			log.Fatal("Failed to upload run", logger.Fields{"error": err.Error()})
		}
		log.Info("Run uploaded", logger.Fields{
			"objects":    len(result.ObjectKeys),
			"signed_url": result.SignedURL,
		})
	}

	if snapshot.Status != status.StatusCompleted {
		os.Exit(1)
	}
}
