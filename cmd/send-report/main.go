package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/brandmonitor/ai-mentions-bot/internal/archive"
	"github.com/brandmonitor/ai-mentions-bot/internal/config"
	"github.com/brandmonitor/ai-mentions-bot/internal/detect"
	"github.com/brandmonitor/ai-mentions-bot/internal/monitoring"
	"github.com/brandmonitor/ai-mentions-bot/internal/notifications"
	"github.com/brandmonitor/ai-mentions-bot/internal/storage"
)

// One-shot report generation and delivery. Usage:
//
//	send-report [daily|weekly]
//
// The period defaults to REPORT_SCHEDULE.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logrus.SetLevel(logrus.WarnLevel)

	period := cfg.ReportSchedule
	if len(os.Args) > 1 {
		period = os.Args[1]
	}
	if period != "daily" && period != "weekly" {
		log.Fatalf("Unknown report period %q (want daily or weekly)", period)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	reportArchive, err := archive.NewFilesystemArchive(cfg.ArchiveDir)
	if err != nil {
		log.Fatalf("Failed to open report archive: %v", err)
	}

	detector := detect.New(detect.Brands(cfg.BrandKeywords, cfg.BrandAliases), detect.NewLexiconClassifier())
	notifier := notifications.NewService(cfg)
	service := monitoring.NewService(cfg, store, detector, nil, notifier, reportArchive)

	report, err := service.GenerateReport(ctx, period)
	if err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}

	data, _ := json.MarshalIndent(report, "", "  ")
	fmt.Printf("Generated %s report:\n%s\n", period, data)

	if err := service.PublishReport(ctx, period); err != nil {
		log.Fatalf("Failed to publish report: %v", err)
	}

	fmt.Println("Report archived and delivered.")
}
