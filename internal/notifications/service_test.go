package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandmonitor/ai-mentions-bot/internal/config"
	"github.com/brandmonitor/ai-mentions-bot/internal/models"
)

func sampleReport() *models.Report {
	start := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	return &models.Report{
		Period:         "daily",
		WindowStart:    start,
		WindowEnd:      start.Add(24 * time.Hour),
		TotalResponses: 12,
		TotalMentions:  7,
		BrandCounts:    map[string]int64{"Python": 5, "みずほ銀行": 2},
		SentimentCounts: map[models.Sentiment]int64{
			models.SentimentPositive: 4,
			models.SentimentNegative: 3,
		},
		MentionRates: map[string]float64{"ChatGPT": 0.5, "Gemini": 0.25},
		Breakdown: []models.BrandSentimentCount{
			{BrandName: "Python", Sentiment: models.SentimentPositive, Count: 4},
		},
		GeneratedAt: start.Add(24*time.Hour + time.Minute),
	}
}

func sampleAlert() *models.Alert {
	return &models.Alert{
		RuleName: "brand_mention_spike",
		Message:  "ChatGPT mentioned Python 15 times in the past hour (threshold 10)",
		Severity: "medium",
		Data: map[string]interface{}{
			"brand_name": "Python",
			"ai_name":    "ChatGPT",
			"mentions":   int64(15),
		},
		Timestamp: time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC),
	}
}

func TestSendReport_NoRecipientConfigured(t *testing.T) {
	service := NewService(&config.Config{})

	assert.NoError(t, service.SendReport(sampleReport()))
	assert.NoError(t, service.SendAlert(sampleAlert()))
}

func TestBuildReportHTML(t *testing.T) {
	service := NewService(&config.Config{})

	html, err := service.buildReportHTML(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, html, "Daily report")
	assert.Contains(t, html, "<strong>Responses collected:</strong> 12")
	assert.Contains(t, html, "<strong>Brand mentions:</strong> 7")
	assert.Contains(t, html, "<td>Python</td><td>5</td>")
	assert.Contains(t, html, "みずほ銀行")
	assert.Contains(t, html, "<td>ChatGPT</td><td>0.50</td>")
	assert.Contains(t, html, "Brand Sentiment Breakdown")
}

func TestBuildReportHTML_OmitsEmptySections(t *testing.T) {
	service := NewService(&config.Config{})
	report := sampleReport()
	report.BrandCounts = nil
	report.MentionRates = nil
	report.Breakdown = nil

	html, err := service.buildReportHTML(report)
	require.NoError(t, err)

	assert.NotContains(t, html, "Mentions by Brand")
	assert.NotContains(t, html, "Mention Rate by Assistant")
	assert.NotContains(t, html, "Brand Sentiment Breakdown")
}

func TestBuildReportText(t *testing.T) {
	service := NewService(&config.Config{})

	text := service.buildReportText(sampleReport())

	assert.Contains(t, text, "AI Brand Monitor Report - Daily")
	assert.Contains(t, text, "Responses collected: 12")
	assert.Contains(t, text, "Brand mentions: 7")
	assert.Contains(t, text, "Negative mentions: 3")
	assert.Contains(t, text, "Python: 5")
	assert.Contains(t, text, "ChatGPT: 0.50 mentions per response")

	// map iteration must not reorder output between runs
	assert.Equal(t, text, service.buildReportText(sampleReport()))
}

func TestBuildAlertHTML(t *testing.T) {
	service := NewService(&config.Config{})

	tests := []struct {
		severity  string
		wantColor string
	}{
		{"low", "#28a745"},
		{"medium", "#ffc107"},
		{"high", "#fd7e14"},
		{"unknown", "#6c757d"},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			alert := sampleAlert()
			alert.Severity = tt.severity

			html, err := service.buildAlertHTML(alert)
			require.NoError(t, err)
			assert.Contains(t, html, tt.wantColor)
			assert.Contains(t, html, "brand_mention_spike")
			assert.Contains(t, html, alert.Message)
		})
	}
}

func TestBuildAlertText(t *testing.T) {
	service := NewService(&config.Config{})

	text := service.buildAlertText(sampleAlert())

	assert.Contains(t, text, "AI Monitor Alert: brand_mention_spike")
	assert.Contains(t, text, "Severity: MEDIUM")
	assert.Contains(t, text, "ChatGPT mentioned Python 15 times")
	assert.Contains(t, text, "ai_name: ChatGPT")
	assert.Contains(t, text, "mentions: 15")
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Daily", titleCase("daily"))
	assert.Equal(t, "Weekly", titleCase("weekly"))
	assert.Equal(t, "", titleCase(""))
	assert.Equal(t, "銀行", titleCase("銀行"))
}
