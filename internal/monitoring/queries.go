package monitoring

import "fmt"

// queryTemplates are the question shapes sent to every assistant, one
// per configured brand. They deliberately mirror how end users ask
// about a product in Japanese-market monitoring.
var queryTemplates = []string{
	"おすすめの%sは何ですか？",
	"%sについて教えてください",
	"%sの評判はどうですか？",
	"%sの競合他社を教えてください",
	"%sを使うメリットは何ですか？",
}

// QueryGenerator produces the monitoring queries for a set of brand
// keywords.
type QueryGenerator struct {
	keywords []string
}

// NewQueryGenerator creates a generator for the given brand keywords.
func NewQueryGenerator(keywords []string) *QueryGenerator {
	return &QueryGenerator{keywords: keywords}
}

// Generate returns every template crossed with every keyword, keyword
// order first so a capped cycle still covers each brand evenly.
func (g *QueryGenerator) Generate() []string {
	queries := make([]string, 0, len(g.keywords)*len(queryTemplates))
	for _, tmpl := range queryTemplates {
		for _, keyword := range g.keywords {
			queries = append(queries, fmt.Sprintf(tmpl, keyword))
		}
	}
	return queries
}

// GenerateCapped returns at most limit queries.
func (g *QueryGenerator) GenerateCapped(limit int) []string {
	queries := g.Generate()
	if limit > 0 && len(queries) > limit {
		queries = queries[:limit]
	}
	return queries
}
