package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSentiment_Valid(t *testing.T) {
	tests := []struct {
		name      string
		sentiment Sentiment
		expected  bool
	}{
		{name: "positive", sentiment: SentimentPositive, expected: true},
		{name: "negative", sentiment: SentimentNegative, expected: true},
		{name: "neutral", sentiment: SentimentNeutral, expected: true},
		{name: "empty", sentiment: Sentiment(""), expected: false},
		{name: "unknown label", sentiment: Sentiment("mixed"), expected: false},
		{name: "wrong casing", sentiment: Sentiment("Positive"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.sentiment.Valid())
		})
	}
}

func TestMentionType_Valid(t *testing.T) {
	tests := []struct {
		name        string
		mentionType MentionType
		expected    bool
	}{
		{name: "direct", mentionType: MentionDirect, expected: true},
		{name: "implied", mentionType: MentionImplied, expected: true},
		{name: "link", mentionType: MentionLink, expected: true},
		{name: "empty", mentionType: MentionType(""), expected: false},
		{name: "unknown", mentionType: MentionType("indirect"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.mentionType.Valid())
		})
	}
}

func TestWindow_Contains(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	w := Window{Start: start, End: end}

	assert.True(t, w.Contains(start), "start is inclusive")
	assert.True(t, w.Contains(end.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(end), "end is exclusive")
	assert.False(t, w.Contains(start.Add(-time.Nanosecond)))
}

func TestWindow_TilesWithoutOverlap(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	boundary := start.Add(time.Hour)
	first := Window{Start: start, End: boundary}
	second := Window{Start: boundary, End: boundary.Add(time.Hour)}

	// A timestamp on the shared boundary belongs to exactly one window.
	assert.False(t, first.Contains(boundary))
	assert.True(t, second.Contains(boundary))
}

func TestWindow_Valid(t *testing.T) {
	now := time.Now()

	assert.True(t, Window{Start: now, End: now.Add(time.Hour)}.Valid())
	assert.True(t, Window{Start: now, End: now}.Valid(), "empty windows are allowed")
	assert.False(t, Window{Start: now, End: now.Add(-time.Hour)}.Valid())
}

func TestPastWindow(t *testing.T) {
	w := PastWindow(time.Hour)

	assert.True(t, w.Valid())
	assert.Equal(t, time.Hour, w.End.Sub(w.Start))
	assert.WithinDuration(t, time.Now().UTC(), w.End, time.Second)
}
