package detect

import (
	"regexp"
	"strings"

	"github.com/brandmonitor/ai-mentions-bot/internal/models"
)

// contextWindow is the number of runes kept on each side of a match.
const contextWindow = 100

var linkPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// Brand is one tracked brand: the canonical name plus optional aliases
// that count as indirect references.
type Brand struct {
	Name    string
	Aliases []string
}

// Brands pairs configured brand keywords with their aliases.
func Brands(keywords []string, aliases map[string][]string) []Brand {
	brands := make([]Brand, 0, len(keywords))
	for _, kw := range keywords {
		brands = append(brands, Brand{Name: kw, Aliases: aliases[kw]})
	}
	return brands
}

// DetectedMention is one brand occurrence found in a text, before it is
// bound to a stored response.
type DetectedMention struct {
	BrandName string
	Type      models.MentionType
	Sentiment models.Sentiment
	Context   string
}

// Detector scans response text for tracked brands. Matching is
// case-insensitive; the stored brand name keeps the configured casing.
type Detector struct {
	brands     []Brand
	classifier SentimentClassifier
	patterns   map[string]*regexp.Regexp
}

// New builds a detector for the given brands. The classifier assigns
// each mention its own sentiment from the surrounding context.
func New(brands []Brand, classifier SentimentClassifier) *Detector {
	d := &Detector{
		brands:     brands,
		classifier: classifier,
		patterns:   make(map[string]*regexp.Regexp),
	}

	for _, b := range brands {
		d.patterns[b.Name] = compileTerm(b.Name)
		for _, alias := range b.Aliases {
			d.patterns[alias] = compileTerm(alias)
		}
	}

	return d
}

// Detect returns at most one mention per configured brand: the first
// occurrence of the brand name (type direct, or link when the context
// carries a URL), falling back to the first alias occurrence (type
// implied).
func (d *Detector) Detect(text string) []DetectedMention {
	var mentions []DetectedMention

	for _, brand := range d.brands {
		if m, ok := d.detectBrand(text, brand); ok {
			mentions = append(mentions, m)
		}
	}

	return mentions
}

// Analyze returns the text-level sentiment label and the URLs embedded
// in the text. It feeds the response record before insertion.
func (d *Detector) Analyze(text string) (models.Sentiment, []string) {
	return d.classifier.Classify(text), ExtractLinks(text)
}

func (d *Detector) detectBrand(text string, brand Brand) (DetectedMention, bool) {
	if loc := d.patterns[brand.Name].FindStringIndex(text); loc != nil {
		context := excerpt(text, loc[0], loc[1])

		mentionType := models.MentionDirect
		if linkPattern.MatchString(context) {
			mentionType = models.MentionLink
		}

		return DetectedMention{
			BrandName: brand.Name,
			Type:      mentionType,
			Sentiment: d.classifier.Classify(context),
			Context:   context,
		}, true
	}

	for _, alias := range brand.Aliases {
		if loc := d.patterns[alias].FindStringIndex(text); loc != nil {
			context := excerpt(text, loc[0], loc[1])

			return DetectedMention{
				BrandName: brand.Name,
				Type:      models.MentionImplied,
				Sentiment: d.classifier.Classify(context),
				Context:   context,
			}, true
		}
	}

	return DetectedMention{}, false
}

// ExtractLinks returns the URLs found in text, de-duplicated in order
// of first occurrence.
func ExtractLinks(text string) []string {
	matches := linkPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	for _, link := range matches {
		link = strings.TrimRight(link, `.,;:)!?"'`)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}

	return links
}

// excerpt returns the match plus up to contextWindow runes on each
// side. start and end are byte offsets into text.
func excerpt(text string, start, end int) string {
	before := []rune(text[:start])
	after := []rune(text[end:])

	if len(before) > contextWindow {
		before = before[len(before)-contextWindow:]
	}
	if len(after) > contextWindow {
		after = after[:contextWindow]
	}

	return strings.TrimSpace(string(before) + text[start:end] + string(after))
}

func compileTerm(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
}
