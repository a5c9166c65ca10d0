package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/brandmonitor/ai-mentions-bot/internal/alerts"
	"github.com/brandmonitor/ai-mentions-bot/internal/archive"
	"github.com/brandmonitor/ai-mentions-bot/internal/assistants"
	"github.com/brandmonitor/ai-mentions-bot/internal/config"
	"github.com/brandmonitor/ai-mentions-bot/internal/detect"
	"github.com/brandmonitor/ai-mentions-bot/internal/monitoring"
	"github.com/brandmonitor/ai-mentions-bot/internal/notifications"
	"github.com/brandmonitor/ai-mentions-bot/internal/scheduler"
	"github.com/brandmonitor/ai-mentions-bot/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting AI Brand Monitor")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		cancel()
		logrus.Fatalf("Failed to ensure schema: %v", err)
	}
	cancel()
	defer store.Close()

	reportArchive, err := newArchive(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize report archive: %v", err)
	}

	detector := detect.New(detect.Brands(cfg.BrandKeywords, cfg.BrandAliases), detect.NewLexiconClassifier())
	notifier := notifications.NewService(cfg)

	feeds := []assistants.Assistant{
		assistants.NewOpenAIAssistant(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.MaxTokens),
		assistants.NewGeminiAssistant(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxTokens),
		assistants.NewAnthropicAssistant(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.MaxTokens),
	}

	monitoringService := monitoring.NewService(cfg, store, detector, feeds, notifier, reportArchive)
	alertService := alerts.NewService(cfg, store, notifier)

	schedulerService := scheduler.NewService(cfg, monitoringService, alertService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(monitoringService)).Methods("GET")
	router.HandleFunc("/trigger", triggerHandler(monitoringService)).Methods("POST")
	router.HandleFunc("/api/summary", summaryHandler(store)).Methods("GET")
	router.HandleFunc("/api/trends", trendsHandler(store)).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// newArchive picks Azure Blob Storage when a storage account is
// configured, the local directory otherwise.
func newArchive(cfg *config.Config) (archive.Interface, error) {
	if cfg.StorageAccount != "" {
		return archive.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
	}
	return archive.NewFilesystemArchive(cfg.ArchiveDir)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(monitoringService *monitoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(monitoringService.GetMetrics()))
	}
}

func triggerHandler(monitoringService *monitoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cycleID := monitoringService.TriggerCycle()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"message":  "Monitoring cycle triggered",
			"cycle_id": cycleID,
		})
	}
}

func summaryHandler(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.SummaryStats(r.Context())
		if err != nil {
			logrus.Errorf("Summary query failed: %v", err)
			http.Error(w, "summary unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}

func trendsHandler(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 7
		if v := r.URL.Query().Get("days"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 1 || parsed > 365 {
				http.Error(w, "days must be between 1 and 365", http.StatusBadRequest)
				return
			}
			days = parsed
		}

		since := time.Now().UTC().AddDate(0, 0, -days)
		trends, err := store.ResponseTrends(r.Context(), since)
		if err != nil {
			logrus.Errorf("Trends query failed: %v", err)
			http.Error(w, "trends unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(trends)
	}
}
