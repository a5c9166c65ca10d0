package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/brandmonitor/ai-mentions-bot/internal/assistants"
	"github.com/brandmonitor/ai-mentions-bot/internal/config"
)

// Connectivity check for the configured assistant APIs: sends one
// throwaway query to each enabled assistant and prints the outcome.
func main() {
	fmt.Println("AI Brand Monitor - Assistant API Check")
	fmt.Println("======================================")

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

	feeds := []assistants.Assistant{
		assistants.NewOpenAIAssistant(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.MaxTokens),
		assistants.NewGeminiAssistant(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxTokens),
		assistants.NewAnthropicAssistant(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.MaxTokens),
	}

	query := fmt.Sprintf("%sについて一言で教えてください", cfg.BrandKeywords[0])
	failures := 0

	for _, a := range feeds {
		fmt.Printf("%-8s ... ", a.GetName())

		if !a.IsEnabled() {
			fmt.Println("DISABLED (missing API key)")
			continue
		}

		start := time.Now()
		text, err := a.Ask(ctx, query)
		if err != nil {
			fmt.Printf("FAILED: %v\n", err)
			failures++
			continue
		}

		preview := []rune(text)
		if len(preview) > 60 {
			preview = preview[:60]
		}
		fmt.Printf("OK (%v): %s\n", time.Since(start).Round(time.Millisecond), string(preview))
	}

	if failures > 0 {
		log.Fatalf("%d assistants failed the connectivity check", failures)
	}
	fmt.Println("\nAll enabled assistants responded.")
}
