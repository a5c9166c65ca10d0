package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/brandmonitor/ai-mentions-bot/internal/alerts"
	"github.com/brandmonitor/ai-mentions-bot/internal/config"
	"github.com/brandmonitor/ai-mentions-bot/internal/monitoring"
)

// Service drives the recurring jobs: monitoring cycles, hourly alert
// checks, the daily backfill pass, and the periodic report.
type Service struct {
	config            *config.Config
	monitoringService *monitoring.Service
	alertService      *alerts.Service
	cron              *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, monitoringService *monitoring.Service, alertService *alerts.Service) *Service {
	return &Service{
		config:            cfg,
		monitoringService: monitoringService,
		alertService:      alertService,
		cron:              cron.New(cron.WithSeconds()),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Service) Start() error {
	// Monitoring cycle every N hours.
	cycleExpression := fmt.Sprintf("0 0 */%d * * *", s.config.MonitoringIntervalHours)
	if _, err := s.cron.AddFunc(cycleExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		if err := s.monitoringService.RunMonitoringCycle(ctx); err != nil {
			logrus.Errorf("Scheduled monitoring cycle failed: %v", err)
			return
		}
		s.alertService.CheckRules(ctx)
	}); err != nil {
		return fmt.Errorf("scheduling monitoring cycle: %w", err)
	}

	// Alert rules every hour, offset from the cycle.
	if _, err := s.cron.AddFunc("0 30 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.alertService.CheckRules(ctx)
	}); err != nil {
		return fmt.Errorf("scheduling alert checks: %w", err)
	}

	// Mention backfill nightly at 02:00 UTC.
	if _, err := s.cron.AddFunc("0 0 2 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()

		if _, err := s.monitoringService.BackfillMentions(ctx); err != nil {
			logrus.Errorf("Scheduled backfill failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("scheduling backfill: %w", err)
	}

	// Report daily at 09:00 UTC, or weekly on Monday.
	reportExpression := "0 0 9 * * *"
	if s.config.ReportSchedule == "weekly" {
		reportExpression = "0 0 9 * * MON"
	}
	if _, err := s.cron.AddFunc(reportExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := s.monitoringService.PublishReport(ctx, s.config.ReportSchedule); err != nil {
			logrus.Errorf("Scheduled %s report failed: %v", s.config.ReportSchedule, err)
		}
	}); err != nil {
		return fmt.Errorf("scheduling report: %w", err)
	}

	s.cron.Start()
	logrus.Infof("Scheduler started: cycles every %dh, %s reports at 09:00 UTC",
		s.config.MonitoringIntervalHours, s.config.ReportSchedule)
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
