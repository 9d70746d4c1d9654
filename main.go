package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cotflow/config"
	"cotflow/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	dataDir := flag.String("data-dir", "", "Override directory holding the contract archives")
	downloadDir := flag.String("download-dir", "", "Override directory for downloaded report workbooks")
	reportsDir := flag.String("reports-dir", "", "Override output directory for HTML reports")
	weeks := flag.Int("weeks", 0, "Override number of weeks covered by report tables")
	force := flag.Bool("force", false, "Redownload report files even when already present")
	updateOnly := flag.Bool("update-only", false, "Update the archives without generating reports")

	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolveConfigPath(*configPath, "config/config.yml"))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if *downloadDir != "" {
		cfg.Source.DownloadDir = *downloadDir
	}
	if *reportsDir != "" {
		cfg.Report.OutputDir = *reportsDir
	}
	if *weeks > 0 {
		cfg.Report.Weeks = *weeks
	}

	contracts := make([]string, 0, len(flag.Args()))
	for _, arg := range flag.Args() {
		code := strings.ToUpper(strings.TrimSpace(arg))
		if code != "" {
			contracts = append(contracts, code)
		}
	}
	if len(contracts) == 0 {
		contracts = cfg.Contracts
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	env := config.AppEnvironment()
	log.WithFields(logger.Fields{
		"service":     cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": env,
	}).Info("starting cotflow")

	if config.IsProductionLike(env) && !cfg.Storage.S3.Enabled {
		log.Warn("s3 mirroring disabled in a production-like environment")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		if cfg.Storage.S3.Enabled {
			logger.InitCloudWatch(cfg.Storage.S3.Region, "", cfg.Logging.DashboardName)
		}
		logger.StartReport(ctx, log, 30*time.Second)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
		cancel()
	}()

	wf, err := newWorkflow(cfg)
	if err != nil {
		log.WithError(err).Error("Failed to initialize workflow")
		os.Exit(1)
	}

	if updated := wf.Run(ctx, contracts, *force, *updateOnly); updated == 0 {
		log.Error("cotflow finished without updating any contract")
		os.Exit(1)
	}

	log.Info("cotflow finished")
}
