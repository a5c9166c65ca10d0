package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/brandmonitor/ai-mentions-bot/internal/config"
	"github.com/brandmonitor/ai-mentions-bot/internal/detect"
	"github.com/brandmonitor/ai-mentions-bot/internal/models"
	"github.com/brandmonitor/ai-mentions-bot/internal/storage"
)

const demoResponses = 50

// answerShapes are filled with the brand name. Each shape leans toward
// one sentiment so the seeded data exercises the full distribution.
var answerShapes = []string{
	"%sはとても人気があり、多くのユーザーにおすすめです。サポートも充実していて安心して使えます。",
	"%sについては不満の声もあります。手数料の問題や、アプリの不便な点が指摘されています。",
	"%sは国内の主要なサービスのひとつです。詳細は公式サイトをご確認ください。",
	"%sの評判は良好です。特にオンラインサービスが便利で高評価を得ています。詳しくは https://example.com/reviews をご覧ください。",
	"%sと他社を比較すると、それぞれに特徴があります。用途に応じて選ぶのがよいでしょう。",
}

var assistantNames = []string{"ChatGPT", "Gemini", "Claude"}

func main() {
	fmt.Println("AI Brand Monitor - Demo Data Seeder")
	fmt.Println("===================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logrus.SetLevel(logrus.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	detector := detect.New(detect.Brands(cfg.BrandKeywords, cfg.BrandAliases), detect.NewLexiconClassifier())
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	queries := buildQueries(cfg.BrandKeywords)
	responses, mentions := 0, 0

	for i := 0; i < demoResponses; i++ {
		brand := cfg.BrandKeywords[rng.Intn(len(cfg.BrandKeywords))]
		text := fmt.Sprintf(answerShapes[rng.Intn(len(answerShapes))], brand)
		sentiment, links := detector.Analyze(text)

		// Spread observations over the past week so the windowed
		// aggregates have something to chew on.
		observed := time.Now().UTC().Add(-time.Duration(rng.Intn(7*24)) * time.Hour)

		resp := &models.Response{
			AIName:       assistantNames[rng.Intn(len(assistantNames))],
			QueryText:    queries[rng.Intn(len(queries))],
			ResponseText: text,
			Sentiment:    string(sentiment),
			Links:        links,
			Timestamp:    observed,
		}
		if err := store.RecordResponse(ctx, resp); err != nil {
			log.Fatalf("Failed to record demo response: %v", err)
		}
		responses++

		for _, detected := range detector.Detect(text) {
			m := &models.Mention{
				ResponseID: resp.ID,
				BrandName:  detected.BrandName,
				Type:       detected.Type,
				Sentiment:  detected.Sentiment,
				Context:    detected.Context,
			}
			if err := store.RecordMention(ctx, m); err != nil {
				log.Fatalf("Failed to record demo mention: %v", err)
			}
			mentions++
		}
	}

	fmt.Printf("\nSeeded %d responses and %d mentions for %d brands.\n",
		responses, mentions, len(cfg.BrandKeywords))
	fmt.Println("Run the bot and open /api/summary to inspect the aggregates.")
}

func buildQueries(keywords []string) []string {
	shapes := []string{
		"おすすめの%sは何ですか？",
		"%sについて教えてください",
		"%sの評判はどうですか？",
	}

	var queries []string
	for _, kw := range keywords {
		for _, shape := range shapes {
			queries = append(queries, fmt.Sprintf(shape, kw))
		}
	}
	return queries
}
