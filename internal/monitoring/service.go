package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brandmonitor/ai-mentions-bot/internal/archive"
	"github.com/brandmonitor/ai-mentions-bot/internal/assistants"
	"github.com/brandmonitor/ai-mentions-bot/internal/config"
	"github.com/brandmonitor/ai-mentions-bot/internal/detect"
	"github.com/brandmonitor/ai-mentions-bot/internal/models"
	"github.com/brandmonitor/ai-mentions-bot/internal/notifications"
	"github.com/brandmonitor/ai-mentions-bot/internal/storage"
)

// Service is the producer pipeline: it generates monitoring queries,
// collects answers from the configured assistants, and records the
// responses and their detected brand mentions through the store.
type Service struct {
	config     *config.Config
	store      storage.Store
	detector   *detect.Detector
	assistants []assistants.Assistant
	notifier   notifications.Interface
	archive    archive.Interface
	queries    *QueryGenerator

	metrics *Metrics
	mu      sync.RWMutex
}

// Metrics holds the counters of the most recent monitoring cycle.
type Metrics struct {
	LastCycleID        string           `json:"last_cycle_id"`
	LastRun            time.Time        `json:"last_run"`
	LastRunDuration    string           `json:"last_run_duration"`
	ResponsesRecorded  int              `json:"responses_recorded"`
	MentionsRecorded   int              `json:"mentions_recorded"`
	AssistantResponses map[string]int   `json:"assistant_responses"`
	SentimentBreakdown map[string]int   `json:"sentiment_breakdown"`
	ErrorCount         int              `json:"error_count"`
}

// NewService wires the pipeline. The store, notifier, and archive are
// owned by the caller.
func NewService(cfg *config.Config, store storage.Store, detector *detect.Detector,
	asst []assistants.Assistant, notifier notifications.Interface, arch archive.Interface) *Service {
	return &Service{
		config:     cfg,
		store:      store,
		detector:   detector,
		assistants: asst,
		notifier:   notifier,
		archive:    arch,
		queries:    NewQueryGenerator(cfg.BrandKeywords),
		metrics: &Metrics{
			AssistantResponses: make(map[string]int),
			SentimentBreakdown: make(map[string]int),
		},
	}
}

// answer is one collected assistant reply before it is recorded.
type answer struct {
	assistant string
	query     string
	text      string
}

// RunMonitoringCycle performs one collection cycle: fan out the
// generated queries to every enabled assistant, then record each reply
// and its detected mentions. Per-item failures are logged and skipped;
// the cycle itself fails only when no assistant is usable.
func (s *Service) RunMonitoringCycle(ctx context.Context) error {
	return s.runCycle(ctx, uuid.NewString())
}

// TriggerCycle starts a cycle in the background and returns its
// correlation id immediately. Used by the manual HTTP trigger.
func (s *Service) TriggerCycle() string {
	cycleID := uuid.NewString()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := s.runCycle(ctx, cycleID); err != nil {
			logrus.Errorf("Triggered monitoring cycle %s failed: %v", cycleID, err)
		}
	}()
	return cycleID
}

func (s *Service) runCycle(ctx context.Context, cycleID string) error {
	start := time.Now()
	logrus.Infof("Starting monitoring cycle %s", cycleID)

	enabled := enabledAssistants(s.assistants)
	if len(enabled) == 0 {
		return fmt.Errorf("monitoring cycle %s: no assistant has credentials configured", cycleID)
	}

	queries := s.queries.GenerateCapped(s.config.QueriesPerCycle)
	logrus.Infof("Asking %d assistants %d queries each", len(enabled), len(queries))

	answers := make(chan answer, len(enabled)*len(queries))
	askErrors := make(chan error, len(enabled)*len(queries))

	var wg sync.WaitGroup
	for _, a := range enabled {
		wg.Add(1)
		go func(a assistants.Assistant) {
			defer wg.Done()
			for _, query := range queries {
				text, err := a.Ask(ctx, query)
				if err != nil {
					logrus.Errorf("Asking %s failed: %v", a.GetName(), err)
					askErrors <- err
					continue
				}
				answers <- answer{assistant: a.GetName(), query: query, text: text}
			}
		}(a)
	}

	go func() {
		wg.Wait()
		close(answers)
		close(askErrors)
	}()

	var responses, mentions, errorCount int
	perAssistant := make(map[string]int)
	sentiments := make(map[string]int)

	for ans := range answers {
		sentiment, links := s.detector.Analyze(ans.text)

		resp := &models.Response{
			AIName:       ans.assistant,
			QueryText:    ans.query,
			ResponseText: ans.text,
			Sentiment:    string(sentiment),
			Links:        links,
		}
		if err := s.store.RecordResponse(ctx, resp); err != nil {
			logrus.Errorf("Recording response from %s failed: %v", ans.assistant, err)
			errorCount++
			continue
		}

		responses++
		perAssistant[ans.assistant]++
		sentiments[string(sentiment)]++

		for _, detected := range s.detector.Detect(ans.text) {
			m := &models.Mention{
				ResponseID: resp.ID,
				BrandName:  detected.BrandName,
				Type:       detected.Type,
				Sentiment:  detected.Sentiment,
				Context:    detected.Context,
			}
			if err := s.store.RecordMention(ctx, m); err != nil {
				logrus.Errorf("Recording mention of %s failed: %v", detected.BrandName, err)
				errorCount++
				continue
			}
			mentions++
		}
	}

	for range askErrors {
		errorCount++
	}

	s.updateMetrics(cycleID, responses, mentions, perAssistant, sentiments, time.Since(start), errorCount)

	logrus.Infof("Monitoring cycle %s completed in %v: %d responses, %d mentions, %d errors",
		cycleID, time.Since(start), responses, mentions, errorCount)
	return nil
}

// BackfillMentions records mentions missing for past responses: for
// each configured brand it rescans the stored response text and appends
// the mentions the detector finds. Responses are never updated; the
// recorded mentions inherit the parent response timestamp, so the pass
// is safe to repeat.
func (s *Service) BackfillMentions(ctx context.Context) (int, error) {
	total := 0

	for _, brand := range s.config.BrandKeywords {
		responses, err := s.store.ListResponsesMissingBrand(ctx, brand, int32(s.config.BackfillBatchSize))
		if err != nil {
			return total, fmt.Errorf("listing responses missing %s: %w", brand, err)
		}

		for _, resp := range responses {
			for _, detected := range s.detector.Detect(resp.ResponseText) {
				if detected.BrandName != brand {
					continue
				}

				m := &models.Mention{
					ResponseID: resp.ID,
					BrandName:  detected.BrandName,
					Type:       detected.Type,
					Sentiment:  detected.Sentiment,
					Context:    detected.Context,
				}
				if err := s.store.RecordMention(ctx, m); err != nil {
					if storage.IsNotFound(err) || storage.IsIntegrity(err) {
						// Parent deleted since the listing; nothing to backfill.
						logrus.Debugf("Response %d vanished during backfill: %v", resp.ID, err)
						continue
					}
					logrus.Errorf("Backfilling mention of %s for response %d failed: %v", brand, resp.ID, err)
					continue
				}
				total++
			}
		}
	}

	if total > 0 {
		logrus.Infof("Backfilled %d mentions", total)
	}
	return total, nil
}

// GenerateReport composes the aggregate read path into one report over
// the period's trailing window ("daily" is 24 hours, "weekly" 7 days).
func (s *Service) GenerateReport(ctx context.Context, period string) (*models.Report, error) {
	span := 24 * time.Hour
	if period == "weekly" {
		span = 7 * 24 * time.Hour
	}
	w := models.PastWindow(span)

	brandCounts, err := s.store.BrandMentionCounts(ctx, w, "")
	if err != nil {
		return nil, fmt.Errorf("counting brand mentions: %w", err)
	}

	sentimentCounts, err := s.store.SentimentDistribution(ctx, w, "")
	if err != nil {
		return nil, fmt.Errorf("computing sentiment distribution: %w", err)
	}

	rates, err := s.store.MentionRate(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("computing mention rates: %w", err)
	}

	breakdown, err := s.store.BrandSentimentBreakdown(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("computing brand breakdown: %w", err)
	}

	trends, err := s.store.ResponseTrends(ctx, w.Start)
	if err != nil {
		return nil, fmt.Errorf("computing response trends: %w", err)
	}

	report := &models.Report{
		Period:          period,
		WindowStart:     w.Start,
		WindowEnd:       w.End,
		BrandCounts:     brandCounts,
		SentimentCounts: sentimentCounts,
		MentionRates:    rates,
		Breakdown:       breakdown,
		GeneratedAt:     time.Now().UTC(),
	}
	for _, count := range brandCounts {
		report.TotalMentions += count
	}
	for _, point := range trends {
		report.TotalResponses += point.Count
	}

	return report, nil
}

// PublishReport generates the period report, archives it as JSON, and
// sends it to the notification recipients. Archival is best-effort;
// delivery failure is the caller's error.
func (s *Service) PublishReport(ctx context.Context, period string) error {
	report, err := s.GenerateReport(ctx, period)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	name := fmt.Sprintf("report-%s-%s.json", period, report.GeneratedAt.Format("2006-01-02-15-04-05"))
	if err := s.archive.Store(name, data); err != nil {
		logrus.Errorf("Archiving report %s failed: %v", name, err)
	}

	if err := s.notifier.SendReport(report); err != nil {
		return fmt.Errorf("sending report: %w", err)
	}

	logrus.Infof("Published %s report: %d responses, %d mentions", period, report.TotalResponses, report.TotalMentions)
	return nil
}

func (s *Service) updateMetrics(cycleID string, responses, mentions int,
	perAssistant, sentiments map[string]int, duration time.Duration, errorCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LastCycleID = cycleID
	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.ResponsesRecorded = responses
	s.metrics.MentionsRecorded = mentions
	s.metrics.AssistantResponses = perAssistant
	s.metrics.SentimentBreakdown = sentiments
	s.metrics.ErrorCount = errorCount
}

// GetMetrics returns the current metrics as indented JSON.
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}

func enabledAssistants(all []assistants.Assistant) []assistants.Assistant {
	var enabled []assistants.Assistant
	for _, a := range all {
		if a.IsEnabled() {
			enabled = append(enabled, a)
		}
	}
	return enabled
}
