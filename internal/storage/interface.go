package storage

import (
	"context"
	"time"

	"github.com/brandmonitor/ai-mentions-bot/internal/models"
)

// ResponseStore is the durable record of query/response exchanges.
// Responses are write-once; the only removal path is the explicit
// administrative cascade delete.
type ResponseStore interface {
	// RecordResponse persists a new response and writes the assigned id
	// and effective timestamp back into resp. A zero resp.Timestamp is
	// replaced with the insertion time.
	RecordResponse(ctx context.Context, resp *models.Response) error

	// GetResponse returns the response with the given id or a
	// NotFoundError.
	GetResponse(ctx context.Context, id int64) (*models.Response, error)

	// DeleteResponse removes the response and all its mentions in one
	// transaction, returning the number of mentions removed. It returns
	// a NotFoundError, removing nothing, when the id does not exist.
	DeleteResponse(ctx context.Context, id int64) (int64, error)
}

// MentionIndex is the append-only set of brand mentions derived from
// stored responses.
type MentionIndex interface {
	// RecordMention persists a new mention and writes the assigned id
	// and effective timestamp back into m. The parent existence check
	// and the insert commit atomically; a zero m.Timestamp inherits the
	// parent response timestamp.
	RecordMention(ctx context.Context, m *models.Mention) error

	// ListMentionsForResponse returns the response's mentions in
	// timestamp order. A response without mentions (or an unknown id)
	// yields an empty slice, not an error.
	ListMentionsForResponse(ctx context.Context, responseID int64) ([]models.Mention, error)

	// ListResponsesMissingBrand returns up to limit responses, newest
	// first, that have no recorded mention of the given brand. Used by
	// the backfill pass.
	ListResponsesMissingBrand(ctx context.Context, brandName string, limit int32) ([]models.Response, error)
}

// Aggregator is the consumer-facing read path. All windows are
// half-open [start, end).
type Aggregator interface {
	// BrandMentionCounts counts mentions per brand inside the window.
	// An empty brandName counts all brands.
	BrandMentionCounts(ctx context.Context, w models.Window, brandName string) (map[string]int64, error)

	// SentimentDistribution counts mentions per sentiment inside the
	// window, optionally restricted to one brand. Only observed
	// sentiments appear as keys.
	SentimentDistribution(ctx context.Context, w models.Window, brandName string) (map[models.Sentiment]int64, error)

	// MentionRate returns mentions-per-response ratios keyed by
	// assistant for responses inside the window. Assistants with no
	// responses in the window are absent.
	MentionRate(ctx context.Context, w models.Window) (map[string]float64, error)

	// SummaryStats returns the dashboard headline counters.
	SummaryStats(ctx context.Context) (*models.SummaryStats, error)

	// ResponseTrends returns per-day, per-assistant response counts
	// from since onward.
	ResponseTrends(ctx context.Context, since time.Time) ([]models.TrendPoint, error)

	// BrandSentimentBreakdown returns brand x sentiment mention counts
	// inside the window.
	BrandSentimentBreakdown(ctx context.Context, w models.Window) ([]models.BrandSentimentCount, error)

	// RecentResponses returns the newest responses with their mention
	// counts.
	RecentResponses(ctx context.Context, limit int32) ([]models.ResponseDigest, error)

	// NegativeSentimentRatios returns per-assistant response sentiment
	// tallies inside the window.
	NegativeSentimentRatios(ctx context.Context, w models.Window) ([]models.SentimentRatio, error)

	// MentionCountsByAssistant returns brand x assistant mention counts
	// inside the window.
	MentionCountsByAssistant(ctx context.Context, w models.Window) ([]models.BrandAssistantCount, error)

	// SearchResponses returns up to limit responses inside the window,
	// newest first, whose query or response text matches any of the
	// given keywords.
	SearchResponses(ctx context.Context, keywords []string, w models.Window, limit int32) ([]models.Response, error)
}

// AlertLog persists fired alerts.
type AlertLog interface {
	// InsertAlert persists a fired alert and writes the assigned id
	// back into a.
	InsertAlert(ctx context.Context, a *models.Alert) error

	// RecentAlertExists reports whether the rule already fired since
	// the given time. Used for alert cooldown.
	RecentAlertExists(ctx context.Context, ruleName string, since time.Time) (bool, error)
}

// Store is the full storage contract the service is wired against.
type Store interface {
	ResponseStore
	MentionIndex
	Aggregator
	AlertLog

	// Close releases the underlying pool.
	Close()
}
