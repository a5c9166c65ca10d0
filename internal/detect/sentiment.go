package detect

import (
	"strings"

	"github.com/brandmonitor/ai-mentions-bot/internal/models"
)

// SentimentClassifier maps a text to a sentiment label. Real
// classification is expected to live outside this repo; implementations
// plug in here.
type SentimentClassifier interface {
	Classify(text string) models.Sentiment
}

// LexiconClassifier is the default classifier: it counts word-list
// hits and picks the side with more, neutral on a tie. Deliberately
// mechanical; it carries no language understanding.
type LexiconClassifier struct {
	positive []string
	negative []string
}

// Ensure LexiconClassifier implements SentimentClassifier
var _ SentimentClassifier = (*LexiconClassifier)(nil)

// NewLexiconClassifier returns a classifier with the default English
// and Japanese word lists.
func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{
		positive: []string{
			"good", "great", "excellent", "love", "awesome", "fantastic",
			"helpful", "works", "solved", "success",
			"おすすめ", "人気", "便利", "安心", "高評価",
		},
		negative: []string{
			"bad", "terrible", "awful", "hate", "broken", "error",
			"fail", "problem", "issue", "bug",
			"不満", "問題", "悪い", "不便", "残念",
		},
	}
}

// NewLexiconClassifierWithWords returns a classifier with custom word
// lists. Words are matched case-insensitively as substrings.
func NewLexiconClassifierWithWords(positive, negative []string) *LexiconClassifier {
	return &LexiconClassifier{positive: positive, negative: negative}
}

// Classify counts positive and negative word hits in the text.
func (c *LexiconClassifier) Classify(text string) models.Sentiment {
	content := strings.ToLower(text)

	positiveCount := 0
	negativeCount := 0

	for _, word := range c.positive {
		if strings.Contains(content, strings.ToLower(word)) {
			positiveCount++
		}
	}
	for _, word := range c.negative {
		if strings.Contains(content, strings.ToLower(word)) {
			negativeCount++
		}
	}

	if positiveCount > negativeCount {
		return models.SentimentPositive
	}
	if negativeCount > positiveCount {
		return models.SentimentNegative
	}

	return models.SentimentNeutral
}
