package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandmonitor/ai-mentions-bot/internal/config"
	"github.com/brandmonitor/ai-mentions-bot/internal/models"
	"github.com/brandmonitor/ai-mentions-bot/internal/notifications"
)

// Rule names, also used as the cooldown key in the alert log.
const (
	RuleNegativeSpike = "negative_sentiment_spike"
	RuleMentionSpike  = "brand_mention_spike"
	RuleWatchlist     = "watchlist_keywords"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// checkWindow is how far back each rule evaluation looks.
const checkWindow = time.Hour

// Store is the slice of the storage contract the rule engine reads and
// writes.
type Store interface {
	NegativeSentimentRatios(ctx context.Context, w models.Window) ([]models.SentimentRatio, error)
	MentionCountsByAssistant(ctx context.Context, w models.Window) ([]models.BrandAssistantCount, error)
	SearchResponses(ctx context.Context, keywords []string, w models.Window, limit int32) ([]models.Response, error)
	InsertAlert(ctx context.Context, a *models.Alert) error
	RecentAlertExists(ctx context.Context, ruleName string, since time.Time) (bool, error)
}

// Service evaluates the alert rules over the trailing hour, persists
// fired alerts to the alert log, and dispatches them. A rule that
// already fired inside the window stays silent (cooldown).
type Service struct {
	config   *config.Config
	store    Store
	notifier notifications.Interface
}

// NewService creates the rule engine.
func NewService(cfg *config.Config, store Store, notifier notifications.Interface) *Service {
	return &Service{config: cfg, store: store, notifier: notifier}
}

// CheckRules runs every rule once. Rule failures are logged, never
// propagated, so one broken rule cannot silence the others. It returns
// the number of alerts fired.
func (s *Service) CheckRules(ctx context.Context) int {
	w := models.PastWindow(checkWindow)
	fired := 0

	for _, check := range []func(context.Context, models.Window) (int, error){
		s.checkNegativeSentiment,
		s.checkMentionSpike,
		s.checkWatchlist,
	} {
		n, err := check(ctx, w)
		if err != nil {
			logrus.Errorf("Alert rule evaluation failed: %v", err)
			continue
		}
		fired += n
	}

	if fired > 0 {
		logrus.Infof("Fired %d alerts", fired)
	}
	return fired
}

// checkNegativeSentiment fires when an assistant's share of negative
// response sentiment inside the window reaches the threshold.
func (s *Service) checkNegativeSentiment(ctx context.Context, w models.Window) (int, error) {
	ratios, err := s.store.NegativeSentimentRatios(ctx, w)
	if err != nil {
		return 0, fmt.Errorf("rule %s: %w", RuleNegativeSpike, err)
	}

	fired := 0
	for _, r := range ratios {
		if r.Total == 0 {
			continue
		}

		ratio := float64(r.Negative) / float64(r.Total)
		if ratio < s.config.NegativeRatioThreshold {
			continue
		}

		severity := SeverityMedium
		if ratio >= 0.8 {
			severity = SeverityHigh
		}

		ok, err := s.fire(ctx, w, &models.Alert{
			RuleName: RuleNegativeSpike,
			Message: fmt.Sprintf("%.0f%% of %s responses in the past hour carry negative sentiment (%d of %d)",
				ratio*100, r.AIName, r.Negative, r.Total),
			Severity: severity,
			Data: map[string]interface{}{
				"ai_name":        r.AIName,
				"negative_ratio": ratio,
				"responses":      r.Total,
			},
		})
		if err != nil {
			return fired, err
		}
		if ok {
			fired++
		}
	}

	return fired, nil
}

// checkMentionSpike fires when one brand is mentioned unusually often
// by one assistant inside the window.
func (s *Service) checkMentionSpike(ctx context.Context, w models.Window) (int, error) {
	counts, err := s.store.MentionCountsByAssistant(ctx, w)
	if err != nil {
		return 0, fmt.Errorf("rule %s: %w", RuleMentionSpike, err)
	}

	threshold := int64(s.config.MentionSpikeThreshold)
	fired := 0
	for _, c := range counts {
		if c.Count < threshold {
			continue
		}

		severity := SeverityMedium
		if c.Count >= 2*threshold {
			severity = SeverityHigh
		}

		ok, err := s.fire(ctx, w, &models.Alert{
			RuleName: RuleMentionSpike,
			Message: fmt.Sprintf("%s mentioned %s %d times in the past hour (threshold %d)",
				c.AIName, c.BrandName, c.Count, threshold),
			Severity: severity,
			Data: map[string]interface{}{
				"brand_name": c.BrandName,
				"ai_name":    c.AIName,
				"mentions":   c.Count,
			},
		})
		if err != nil {
			return fired, err
		}
		if ok {
			fired++
		}
	}

	return fired, nil
}

// checkWatchlist fires when a watchlist keyword shows up in any
// response text or query inside the window.
func (s *Service) checkWatchlist(ctx context.Context, w models.Window) (int, error) {
	if len(s.config.WatchKeywords) == 0 {
		return 0, nil
	}

	matches, err := s.store.SearchResponses(ctx, s.config.WatchKeywords, w, 5)
	if err != nil {
		return 0, fmt.Errorf("rule %s: %w", RuleWatchlist, err)
	}
	if len(matches) == 0 {
		return 0, nil
	}

	newest := matches[0]
	excerpt := newest.ResponseText
	if runes := []rune(excerpt); len(runes) > 200 {
		excerpt = string(runes[:200])
	}

	ok, err := s.fire(ctx, w, &models.Alert{
		RuleName: RuleWatchlist,
		Message: fmt.Sprintf("Watchlist keywords matched %d responses in the past hour; newest from %s",
			len(matches), newest.AIName),
		Severity: SeverityLow,
		Data: map[string]interface{}{
			"matches":     len(matches),
			"ai_name":     newest.AIName,
			"response_id": newest.ID,
			"excerpt":     excerpt,
		},
	})
	if err != nil {
		return 0, err
	}
	if ok {
		return 1, nil
	}
	return 0, nil
}

// fire persists and dispatches the alert unless the rule is cooling
// down. Dispatch failure is logged; the alert log row is the source of
// truth.
func (s *Service) fire(ctx context.Context, w models.Window, alert *models.Alert) (bool, error) {
	recent, err := s.store.RecentAlertExists(ctx, alert.RuleName, w.Start)
	if err != nil {
		return false, fmt.Errorf("checking cooldown for %s: %w", alert.RuleName, err)
	}
	if recent {
		logrus.Debugf("Rule %s is cooling down, skipping", alert.RuleName)
		return false, nil
	}

	if err := s.store.InsertAlert(ctx, alert); err != nil {
		return false, fmt.Errorf("persisting alert %s: %w", alert.RuleName, err)
	}

	if err := s.notifier.SendAlert(alert); err != nil {
		logrus.Errorf("Dispatching alert %s failed: %v", alert.RuleName, err)
	}

	logrus.Warnf("Alert fired: %s [%s] %s", alert.RuleName, alert.Severity, alert.Message)
	return true, nil
}
