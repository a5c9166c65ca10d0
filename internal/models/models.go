package models

import "time"

// Sentiment is the categorical sentiment label attached to mentions
// and, as free text, to responses.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Valid reports whether s is one of the defined sentiment values.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// MentionType classifies how a brand appears inside a response.
type MentionType string

const (
	MentionDirect  MentionType = "direct"  // the brand name itself occurs
	MentionImplied MentionType = "implied" // only an alias or indirect reference occurs
	MentionLink    MentionType = "link"    // the brand occurs next to an embedded URL
)

// Valid reports whether t is one of the defined mention types.
func (t MentionType) Valid() bool {
	switch t {
	case MentionDirect, MentionImplied, MentionLink:
		return true
	}
	return false
}

// Response is one recorded query/answer exchange with an AI assistant.
// Responses are immutable once recorded; they are removed only through
// the administrative cascade delete.
type Response struct {
	ID           int64     `json:"id"`
	AIName       string    `json:"ai_name"` // "ChatGPT", "Gemini", "Claude"
	QueryText    string    `json:"query_text"`
	ResponseText string    `json:"response_text"`
	Sentiment    string    `json:"response_sentiment,omitempty"` // free text in storage, sentiment values in practice
	Topics       []string  `json:"response_topics,omitempty"`
	Links        []string  `json:"response_links,omitempty"`
	Timestamp    time.Time `json:"timestamp"` // zero value means "assign insertion time"
}

// Mention is one detected occurrence of a tracked brand inside a
// Response. Mentions are append-only: corrections are written as new
// records, never as updates.
type Mention struct {
	ID         int64       `json:"id"`
	ResponseID int64       `json:"ai_response_id"`
	BrandName  string      `json:"brand_name"`
	Type       MentionType `json:"mention_type"`
	Sentiment  Sentiment   `json:"sentiment"` // scoped to the mention, may differ from the response label
	Context    string      `json:"context"`   // short excerpt around the match
	Timestamp  time.Time   `json:"timestamp"` // zero value means "inherit the parent response timestamp"
}

// Window is a half-open time interval [Start, End) bounding aggregate
// queries. Consecutive windows tile without double counting.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the window is well formed (End not before Start).
func (w Window) Valid() bool {
	return !w.End.Before(w.Start)
}

// Contains reports whether t falls inside the half-open interval.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// PastWindow returns the window covering the last d up to now.
func PastWindow(d time.Duration) Window {
	now := time.Now().UTC()
	return Window{Start: now.Add(-d), End: now}
}

// Alert is one fired alert rule occurrence, persisted to the alert log
// and dispatched to notification recipients.
type Alert struct {
	ID        int64                  `json:"id"`
	RuleName  string                 `json:"rule_name"`
	Message   string                 `json:"message"`
	Severity  string                 `json:"severity"` // "low", "medium", "high"
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Report is a periodic aggregate over one window.
type Report struct {
	Period          string                `json:"period"` // "daily" or "weekly"
	WindowStart     time.Time             `json:"window_start"`
	WindowEnd       time.Time             `json:"window_end"`
	TotalResponses  int64                 `json:"total_responses"`
	TotalMentions   int64                 `json:"total_mentions"`
	BrandCounts     map[string]int64      `json:"brand_counts"`
	SentimentCounts map[Sentiment]int64   `json:"sentiment_counts"`
	MentionRates    map[string]float64    `json:"mention_rates"` // per assistant: mentions / responses
	Breakdown       []BrandSentimentCount `json:"breakdown,omitempty"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

// BrandSentimentCount is one row of the brand x sentiment breakdown.
type BrandSentimentCount struct {
	BrandName string    `json:"brand_name"`
	Sentiment Sentiment `json:"sentiment"`
	Count     int64     `json:"count"`
}

// BrandAssistantCount is one row of the brand x assistant mention
// tally used by the mention-spike alert rule.
type BrandAssistantCount struct {
	BrandName string `json:"brand_name"`
	AIName    string `json:"ai_name"`
	Count     int64  `json:"count"`
}

// SentimentRatio is the per-assistant response sentiment tally used by
// the negative-sentiment alert rule.
type SentimentRatio struct {
	AIName   string `json:"ai_name"`
	Total    int64  `json:"total"`
	Negative int64  `json:"negative"`
}

// SummaryStats is the dashboard headline view.
type SummaryStats struct {
	TotalResponses    int64            `json:"total_responses"`
	ResponsesToday    int64            `json:"responses_today"`
	TotalMentions     int64            `json:"total_mentions"`
	TotalAlerts       int64            `json:"total_alerts"`
	ResponseSentiment map[string]int64 `json:"response_sentiment"`
}

// TrendPoint is one day's response count for one assistant.
type TrendPoint struct {
	Day    time.Time `json:"day"`
	AIName string    `json:"ai_name"`
	Count  int64     `json:"count"`
}

// ResponseDigest is a recent-responses row with its mention count,
// served to the reporting consumer.
type ResponseDigest struct {
	ID           int64     `json:"id"`
	AIName       string    `json:"ai_name"`
	QueryText    string    `json:"query_text"`
	Sentiment    string    `json:"response_sentiment,omitempty"`
	MentionCount int64     `json:"mention_count"`
	Timestamp    time.Time `json:"timestamp"`
}
