package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/brandmonitor/ai-mentions-bot/internal/models"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to the database and verifies the
// connection. The caller owns the store and must Close it.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, &ValidationError{Field: "database_url", Reason: "must not be empty"}
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &StorageError{Op: "connect", Err: err}
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// RecordResponse persists a new response. The assigned id and the
// effective timestamp are written back into resp.
func (s *PostgresStore) RecordResponse(ctx context.Context, resp *models.Response) error {
	if resp.AIName == "" {
		return &ValidationError{Field: "ai_name", Reason: "must not be empty"}
	}
	if resp.QueryText == "" {
		return &ValidationError{Field: "query_text", Reason: "must not be empty"}
	}
	if resp.ResponseText == "" {
		return &ValidationError{Field: "response_text", Reason: "must not be empty"}
	}

	var ts *time.Time
	if !resp.Timestamp.IsZero() {
		ts = &resp.Timestamp
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO ai_responses (ai_name, query_text, response_text, response_sentiment, response_topics, response_links, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
		RETURNING id, timestamp`,
		resp.AIName, resp.QueryText, resp.ResponseText, nullableString(resp.Sentiment),
		resp.Topics, resp.Links, ts,
	).Scan(&resp.ID, &resp.Timestamp)
	if err != nil {
		return wrapPgError("recording response", err)
	}

	return nil
}

// GetResponse returns the response with the given id.
func (s *PostgresStore) GetResponse(ctx context.Context, id int64) (*models.Response, error) {
	var resp models.Response

	err := s.pool.QueryRow(ctx, `
		SELECT id, ai_name, query_text, response_text, COALESCE(response_sentiment, ''), response_topics, response_links, timestamp
		FROM ai_responses
		WHERE id = $1`, id,
	).Scan(&resp.ID, &resp.AIName, &resp.QueryText, &resp.ResponseText,
		&resp.Sentiment, &resp.Topics, &resp.Links, &resp.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "response", ID: id}
		}
		return nil, wrapPgError("getting response", err)
	}

	return &resp, nil
}

// DeleteResponse removes a response and every mention referencing it in
// a single transaction, so either all N+1 rows go or none do.
func (s *PostgresStore) DeleteResponse(ctx context.Context, id int64) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, &StorageError{Op: "deleting response", Err: err}
	}
	defer tx.Rollback(ctx)

	mentions, err := tx.Exec(ctx, `DELETE FROM brand_mentions WHERE ai_response_id = $1`, id)
	if err != nil {
		return 0, wrapPgError("deleting mentions", err)
	}

	responses, err := tx.Exec(ctx, `DELETE FROM ai_responses WHERE id = $1`, id)
	if err != nil {
		return 0, wrapPgError("deleting response", err)
	}
	if responses.RowsAffected() == 0 {
		return 0, &NotFoundError{Entity: "response", ID: id}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &StorageError{Op: "deleting response", Err: err}
	}

	deleted := mentions.RowsAffected()
	logrus.Infof("Deleted response %d and %d dependent mentions", id, deleted)
	return deleted, nil
}

// RecordMention persists a new mention. The parent lookup, the
// timestamp inheritance, and the insert happen in one statement, so no
// orphan row can be observed even when a cascade delete races the call.
func (s *PostgresStore) RecordMention(ctx context.Context, m *models.Mention) error {
	if m.BrandName == "" {
		return &ValidationError{Field: "brand_name", Reason: "must not be empty"}
	}
	if !m.Type.Valid() {
		return &ValidationError{Field: "mention_type", Reason: fmt.Sprintf("%q is not one of direct, implied, link", m.Type)}
	}
	if !m.Sentiment.Valid() {
		return &ValidationError{Field: "sentiment", Reason: fmt.Sprintf("%q is not one of positive, negative, neutral", m.Sentiment)}
	}

	var ts *time.Time
	if !m.Timestamp.IsZero() {
		ts = &m.Timestamp
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO brand_mentions (ai_response_id, brand_name, mention_type, sentiment, context, timestamp)
		SELECT r.id, $2, $3, $4, $5, COALESCE($6, r.timestamp)
		FROM ai_responses r
		WHERE r.id = $1
		RETURNING id, timestamp`,
		m.ResponseID, m.BrandName, string(m.Type), string(m.Sentiment), nullableString(m.Context), ts,
	).Scan(&m.ID, &m.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Entity: "response", ID: m.ResponseID}
		}
		return wrapPgError("recording mention", err)
	}

	return nil
}

// ListMentionsForResponse returns the response's mentions ordered by
// timestamp, using id only to stabilize equal timestamps.
func (s *PostgresStore) ListMentionsForResponse(ctx context.Context, responseID int64) ([]models.Mention, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, ai_response_id, brand_name, mention_type, sentiment, COALESCE(context, ''), timestamp
		FROM brand_mentions
		WHERE ai_response_id = $1
		ORDER BY timestamp, id`, responseID)
	if err != nil {
		return nil, wrapPgError("listing mentions", err)
	}
	defer rows.Close()

	var mentions []models.Mention
	for rows.Next() {
		var m models.Mention
		if err := rows.Scan(&m.ID, &m.ResponseID, &m.BrandName, &m.Type, &m.Sentiment, &m.Context, &m.Timestamp); err != nil {
			return nil, wrapPgError("scanning mention", err)
		}
		mentions = append(mentions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError("listing mentions", err)
	}

	return mentions, nil
}

// ListResponsesMissingBrand returns up to limit responses, newest
// first, with no recorded mention of the given brand.
func (s *PostgresStore) ListResponsesMissingBrand(ctx context.Context, brandName string, limit int32) ([]models.Response, error) {
	if brandName == "" {
		return nil, &ValidationError{Field: "brand_name", Reason: "must not be empty"}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.ai_name, r.query_text, r.response_text, COALESCE(r.response_sentiment, ''), r.response_topics, r.response_links, r.timestamp
		FROM ai_responses r
		WHERE NOT EXISTS (
			SELECT 1 FROM brand_mentions m
			WHERE m.ai_response_id = r.id AND m.brand_name = $1
		)
		ORDER BY r.timestamp DESC
		LIMIT $2`, brandName, limit)
	if err != nil {
		return nil, wrapPgError("listing unprocessed responses", err)
	}
	defer rows.Close()

	return scanResponses(rows)
}

// BrandMentionCounts counts mentions per brand inside the window.
func (s *PostgresStore) BrandMentionCounts(ctx context.Context, w models.Window, brandName string) (map[string]int64, error) {
	if err := validateWindow(w); err != nil {
		return nil, err
	}

	query := `
		SELECT brand_name, COUNT(*)
		FROM brand_mentions
		WHERE timestamp >= $1 AND timestamp < $2`
	args := []interface{}{w.Start, w.End}

	if brandName != "" {
		query += ` AND brand_name = $3`
		args = append(args, brandName)
	}
	query += ` GROUP BY brand_name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapPgError("counting brand mentions", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var brand string
		var count int64
		if err := rows.Scan(&brand, &count); err != nil {
			return nil, wrapPgError("scanning brand count", err)
		}
		counts[brand] = count
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError("counting brand mentions", err)
	}

	return counts, nil
}

// SentimentDistribution counts mentions per sentiment inside the
// window, optionally restricted to one brand.
func (s *PostgresStore) SentimentDistribution(ctx context.Context, w models.Window, brandName string) (map[models.Sentiment]int64, error) {
	if err := validateWindow(w); err != nil {
		return nil, err
	}

	query := `
		SELECT sentiment, COUNT(*)
		FROM brand_mentions
		WHERE timestamp >= $1 AND timestamp < $2`
	args := []interface{}{w.Start, w.End}

	if brandName != "" {
		query += ` AND brand_name = $3`
		args = append(args, brandName)
	}
	query += ` GROUP BY sentiment`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapPgError("computing sentiment distribution", err)
	}
	defer rows.Close()

	dist := make(map[models.Sentiment]int64)
	for rows.Next() {
		var sentiment models.Sentiment
		var count int64
		if err := rows.Scan(&sentiment, &count); err != nil {
			return nil, wrapPgError("scanning sentiment count", err)
		}
		dist[sentiment] = count
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError("computing sentiment distribution", err)
	}

	return dist, nil
}

// MentionRate returns mentions-per-response ratios keyed by assistant.
// The window bounds the response timestamp; zero-mention responses
// count toward the denominator, and assistants without responses in
// the window are absent from the result.
func (s *PostgresStore) MentionRate(ctx context.Context, w models.Window) (map[string]float64, error) {
	if err := validateWindow(w); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT r.ai_name, COUNT(DISTINCT r.id), COUNT(m.id)
		FROM ai_responses r
		LEFT JOIN brand_mentions m ON m.ai_response_id = r.id
		WHERE r.timestamp >= $1 AND r.timestamp < $2
		GROUP BY r.ai_name`, w.Start, w.End)
	if err != nil {
		return nil, wrapPgError("computing mention rate", err)
	}
	defer rows.Close()

	rates := make(map[string]float64)
	for rows.Next() {
		var aiName string
		var responses, mentions int64
		if err := rows.Scan(&aiName, &responses, &mentions); err != nil {
			return nil, wrapPgError("scanning mention rate", err)
		}
		rates[aiName] = float64(mentions) / float64(responses)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError("computing mention rate", err)
	}

	return rates, nil
}

// SummaryStats returns the dashboard headline counters.
func (s *PostgresStore) SummaryStats(ctx context.Context) (*models.SummaryStats, error) {
	stats := &models.SummaryStats{ResponseSentiment: make(map[string]int64)}

	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM ai_responses),
			(SELECT COUNT(*) FROM ai_responses WHERE timestamp >= date_trunc('day', NOW())),
			(SELECT COUNT(*) FROM brand_mentions),
			(SELECT COUNT(*) FROM alert_logs)`,
	).Scan(&stats.TotalResponses, &stats.ResponsesToday, &stats.TotalMentions, &stats.TotalAlerts)
	if err != nil {
		return nil, wrapPgError("computing summary stats", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT response_sentiment, COUNT(*)
		FROM ai_responses
		WHERE response_sentiment IS NOT NULL
		GROUP BY response_sentiment`)
	if err != nil {
		return nil, wrapPgError("computing summary stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sentiment string
		var count int64
		if err := rows.Scan(&sentiment, &count); err != nil {
			return nil, wrapPgError("scanning summary stats", err)
		}
		stats.ResponseSentiment[sentiment] = count
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError("computing summary stats", err)
	}

	return stats, nil
}

// ResponseTrends returns per-day, per-assistant response counts from
// since onward.
func (s *PostgresStore) ResponseTrends(ctx context.Context, since time.Time) ([]models.TrendPoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date_trunc('day', timestamp) AS day, ai_name, COUNT(*)
		FROM ai_responses
		WHERE timestamp >= $1
		GROUP BY day, ai_name
		ORDER BY day, ai_name`, since)
	if err != nil {
		return nil, wrapPgError("computing response trends", err)
	}
	defer rows.Close()

	var trends []models.TrendPoint
	for rows.Next() {
		var p models.TrendPoint
		if err := rows.Scan(&p.Day, &p.AIName, &p.Count); err != nil {
			return nil, wrapPgError("scanning response trend", err)
		}
		trends = append(trends, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError("computing response trends", err)
	}

	return trends, nil
}

// BrandSentimentBreakdown returns brand x sentiment mention counts
// inside the window.
func (s *PostgresStore) BrandSentimentBreakdown(ctx context.Context, w models.Window) ([]models.BrandSentimentCount, error) {
	if err := validateWindow(w); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT brand_name, sentiment, COUNT(*)
		FROM brand_mentions
		WHERE timestamp >= $1 AND timestamp < $2
		GROUP BY brand_name, sentiment
		ORDER BY brand_name, sentiment`, w.Start, w.End)
	if err != nil {
		return nil, wrapPgError("computing brand breakdown", err)
	}
	defer rows.Close()

	var breakdown []models.BrandSentimentCount
	for rows.Next() {
		var row models.BrandSentimentCount
		if err := rows.Scan(&row.BrandName, &row.Sentiment, &row.Count); err != nil {
			return nil, wrapPgError("scanning brand breakdown", err)
		}
		breakdown = append(breakdown, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError("computing brand breakdown", err)
	}

	return breakdown, nil
}

// RecentResponses returns the newest responses with their mention
// counts.
func (s *PostgresStore) RecentResponses(ctx context.Context, limit int32) ([]models.ResponseDigest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.ai_name, r.query_text, COALESCE(r.response_sentiment, ''), COUNT(m.id), r.timestamp
		FROM ai_responses r
		LEFT JOIN brand_mentions m ON m.ai_response_id = r.id
		GROUP BY r.id
		ORDER BY r.timestamp DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, wrapPgError("listing recent responses", err)
	}
	defer rows.Close()

	var digests []models.ResponseDigest
	for rows.Next() {
		var d models.ResponseDigest
		if err := rows.Scan(&d.ID, &d.AIName, &d.QueryText, &d.Sentiment, &d.MentionCount, &d.Timestamp); err != nil {
			return nil, wrapPgError("scanning recent response", err)
		}
		digests = append(digests, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError("listing recent responses", err)
	}

	return digests, nil
}

// NegativeSentimentRatios returns per-assistant response sentiment
// tallies inside the window.
func (s *PostgresStore) NegativeSentimentRatios(ctx context.Context, w models.Window) ([]models.SentimentRatio, error) {
	if err := validateWindow(w); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT ai_name,
		       COUNT(*),
		       SUM(CASE WHEN response_sentiment = 'negative' THEN 1 ELSE 0 END)
		FROM ai_responses
		WHERE timestamp >= $1 AND timestamp < $2
		GROUP BY ai_name`, w.Start, w.End)
	if err != nil {
		return nil, wrapPgError("computing sentiment ratios", err)
	}
	defer rows.Close()

	var ratios []models.SentimentRatio
	for rows.Next() {
		var r models.SentimentRatio
		if err := rows.Scan(&r.AIName, &r.Total, &r.Negative); err != nil {
			return nil, wrapPgError("scanning sentiment ratio", err)
		}
		ratios = append(ratios, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError("computing sentiment ratios", err)
	}

	return ratios, nil
}

// MentionCountsByAssistant returns brand x assistant mention counts
// inside the window.
func (s *PostgresStore) MentionCountsByAssistant(ctx context.Context, w models.Window) ([]models.BrandAssistantCount, error) {
	if err := validateWindow(w); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT m.brand_name, r.ai_name, COUNT(*)
		FROM brand_mentions m
		JOIN ai_responses r ON r.id = m.ai_response_id
		WHERE m.timestamp >= $1 AND m.timestamp < $2
		GROUP BY m.brand_name, r.ai_name
		ORDER BY m.brand_name, r.ai_name`, w.Start, w.End)
	if err != nil {
		return nil, wrapPgError("counting mentions by assistant", err)
	}
	defer rows.Close()

	var counts []models.BrandAssistantCount
	for rows.Next() {
		var row models.BrandAssistantCount
		if err := rows.Scan(&row.BrandName, &row.AIName, &row.Count); err != nil {
			return nil, wrapPgError("scanning mention count", err)
		}
		counts = append(counts, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError("counting mentions by assistant", err)
	}

	return counts, nil
}

// SearchResponses returns up to limit responses inside the window,
// newest first, whose query or response text matches any keyword.
func (s *PostgresStore) SearchResponses(ctx context.Context, keywords []string, w models.Window, limit int32) ([]models.Response, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	if err := validateWindow(w); err != nil {
		return nil, err
	}

	escaped := make([]string, len(keywords))
	for i, kw := range keywords {
		escaped[i] = regexp.QuoteMeta(kw)
	}
	pattern := strings.Join(escaped, "|")

	rows, err := s.pool.Query(ctx, `
		SELECT id, ai_name, query_text, response_text, COALESCE(response_sentiment, ''), response_topics, response_links, timestamp
		FROM ai_responses
		WHERE timestamp >= $1 AND timestamp < $2
		  AND (response_text ~* $3 OR query_text ~* $3)
		ORDER BY timestamp DESC
		LIMIT $4`, w.Start, w.End, pattern, limit)
	if err != nil {
		return nil, wrapPgError("searching responses", err)
	}
	defer rows.Close()

	return scanResponses(rows)
}

// InsertAlert persists a fired alert to the alert log.
func (s *PostgresStore) InsertAlert(ctx context.Context, a *models.Alert) error {
	if a.RuleName == "" {
		return &ValidationError{Field: "rule_name", Reason: "must not be empty"}
	}

	var data interface{}
	if a.Data != nil {
		b, err := json.Marshal(a.Data)
		if err != nil {
			return fmt.Errorf("encoding alert data: %w", err)
		}
		data = string(b)
	}

	var ts *time.Time
	if !a.Timestamp.IsZero() {
		ts = &a.Timestamp
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO alert_logs (rule_name, message, severity, data, timestamp)
		VALUES ($1, $2, $3, $4::jsonb, COALESCE($5, NOW()))
		RETURNING id, timestamp`,
		a.RuleName, a.Message, a.Severity, data, ts,
	).Scan(&a.ID, &a.Timestamp)
	if err != nil {
		return wrapPgError("inserting alert", err)
	}

	return nil
}

// RecentAlertExists reports whether the rule already fired since the
// given time.
func (s *PostgresStore) RecentAlertExists(ctx context.Context, ruleName string, since time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM alert_logs
			WHERE rule_name = $1 AND timestamp >= $2
		)`, ruleName, since,
	).Scan(&exists)
	if err != nil {
		return false, wrapPgError("checking recent alerts", err)
	}

	return exists, nil
}

func scanResponses(rows pgx.Rows) ([]models.Response, error) {
	var responses []models.Response
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(&r.ID, &r.AIName, &r.QueryText, &r.ResponseText,
			&r.Sentiment, &r.Topics, &r.Links, &r.Timestamp); err != nil {
			return nil, wrapPgError("scanning response", err)
		}
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError("scanning responses", err)
	}

	return responses, nil
}

func validateWindow(w models.Window) error {
	if !w.Valid() {
		return &ValidationError{Field: "window", Reason: "end must not be before start"}
	}
	return nil
}

// nullableString maps the empty string to NULL.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
