package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brandmonitor/ai-mentions-bot/internal/assistants"
	"github.com/brandmonitor/ai-mentions-bot/internal/config"
	"github.com/brandmonitor/ai-mentions-bot/internal/detect"
	"github.com/brandmonitor/ai-mentions-bot/internal/models"
	"github.com/brandmonitor/ai-mentions-bot/internal/storage"
)

// MockStore is a mock implementation of the storage contract.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) RecordResponse(ctx context.Context, resp *models.Response) error {
	args := m.Called(ctx, resp)
	return args.Error(0)
}

func (m *MockStore) GetResponse(ctx context.Context, id int64) (*models.Response, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Response), args.Error(1)
}

func (m *MockStore) DeleteResponse(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) RecordMention(ctx context.Context, mention *models.Mention) error {
	args := m.Called(ctx, mention)
	return args.Error(0)
}

func (m *MockStore) ListMentionsForResponse(ctx context.Context, responseID int64) ([]models.Mention, error) {
	args := m.Called(ctx, responseID)
	return args.Get(0).([]models.Mention), args.Error(1)
}

func (m *MockStore) ListResponsesMissingBrand(ctx context.Context, brandName string, limit int32) ([]models.Response, error) {
	args := m.Called(ctx, brandName, limit)
	return args.Get(0).([]models.Response), args.Error(1)
}

func (m *MockStore) BrandMentionCounts(ctx context.Context, w models.Window, brandName string) (map[string]int64, error) {
	args := m.Called(ctx, w, brandName)
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockStore) SentimentDistribution(ctx context.Context, w models.Window, brandName string) (map[models.Sentiment]int64, error) {
	args := m.Called(ctx, w, brandName)
	return args.Get(0).(map[models.Sentiment]int64), args.Error(1)
}

func (m *MockStore) MentionRate(ctx context.Context, w models.Window) (map[string]float64, error) {
	args := m.Called(ctx, w)
	return args.Get(0).(map[string]float64), args.Error(1)
}

func (m *MockStore) SummaryStats(ctx context.Context) (*models.SummaryStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(*models.SummaryStats), args.Error(1)
}

func (m *MockStore) ResponseTrends(ctx context.Context, since time.Time) ([]models.TrendPoint, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]models.TrendPoint), args.Error(1)
}

func (m *MockStore) BrandSentimentBreakdown(ctx context.Context, w models.Window) ([]models.BrandSentimentCount, error) {
	args := m.Called(ctx, w)
	return args.Get(0).([]models.BrandSentimentCount), args.Error(1)
}

func (m *MockStore) RecentResponses(ctx context.Context, limit int32) ([]models.ResponseDigest, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.ResponseDigest), args.Error(1)
}

func (m *MockStore) NegativeSentimentRatios(ctx context.Context, w models.Window) ([]models.SentimentRatio, error) {
	args := m.Called(ctx, w)
	return args.Get(0).([]models.SentimentRatio), args.Error(1)
}

func (m *MockStore) MentionCountsByAssistant(ctx context.Context, w models.Window) ([]models.BrandAssistantCount, error) {
	args := m.Called(ctx, w)
	return args.Get(0).([]models.BrandAssistantCount), args.Error(1)
}

func (m *MockStore) SearchResponses(ctx context.Context, keywords []string, w models.Window, limit int32) ([]models.Response, error) {
	args := m.Called(ctx, keywords, w, limit)
	return args.Get(0).([]models.Response), args.Error(1)
}

func (m *MockStore) InsertAlert(ctx context.Context, a *models.Alert) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockStore) RecentAlertExists(ctx context.Context, ruleName string, since time.Time) (bool, error) {
	args := m.Called(ctx, ruleName, since)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Close() {
	m.Called()
}

// MockNotifier is a mock implementation of the notification interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendReport(report *models.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *MockNotifier) SendAlert(alert *models.Alert) error {
	args := m.Called(alert)
	return args.Error(0)
}

// MockArchive is a mock implementation of the report archive.
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Store(name string, data []byte) error {
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockArchive) Retrieve(name string) ([]byte, error) {
	args := m.Called(name)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockArchive) List(prefix string) ([]string, error) {
	args := m.Called(prefix)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockArchive) Delete(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

// stubAssistant returns a canned answer.
type stubAssistant struct {
	name    string
	enabled bool
	answer  string
	err     error
}

func (s *stubAssistant) GetName() string  { return s.name }
func (s *stubAssistant) IsEnabled() bool  { return s.enabled }
func (s *stubAssistant) Ask(ctx context.Context, query string) (string, error) {
	return s.answer, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		BrandKeywords:     []string{"Python"},
		QueriesPerCycle:   2,
		BackfillBatchSize: 10,
		ReportSchedule:    "daily",
	}
}

func testDetector(cfg *config.Config) *detect.Detector {
	return detect.New(detect.Brands(cfg.BrandKeywords, cfg.BrandAliases), detect.NewLexiconClassifier())
}

func TestQueryGenerator_Generate(t *testing.T) {
	g := NewQueryGenerator([]string{"Python", "Go"})

	queries := g.Generate()

	assert.Len(t, queries, 10, "five templates per keyword")
	assert.Equal(t, "おすすめのPythonは何ですか？", queries[0])
	assert.Equal(t, "おすすめのGoは何ですか？", queries[1], "keywords rotate before templates")
}

func TestQueryGenerator_GenerateCapped(t *testing.T) {
	g := NewQueryGenerator([]string{"Python", "Go"})

	assert.Len(t, g.GenerateCapped(3), 3)
	assert.Len(t, g.GenerateCapped(0), 10, "zero means uncapped")
	assert.Len(t, g.GenerateCapped(100), 10)
}

func TestRunMonitoringCycle(t *testing.T) {
	cfg := testConfig()
	store := &MockStore{}
	notifier := &MockNotifier{}
	archive := &MockArchive{}

	answer := "Pythonはとても人気があり、おすすめです。"
	feed := &stubAssistant{name: "TestAI", enabled: true, answer: answer}

	var nextID int64
	store.On("RecordResponse", mock.Anything, mock.AnythingOfType("*models.Response")).
		Run(func(args mock.Arguments) {
			resp := args.Get(1).(*models.Response)
			nextID++
			resp.ID = nextID

			assert.Equal(t, "TestAI", resp.AIName)
			assert.Equal(t, answer, resp.ResponseText)
			assert.Equal(t, string(models.SentimentPositive), resp.Sentiment)
		}).Return(nil)

	store.On("RecordMention", mock.Anything, mock.AnythingOfType("*models.Mention")).
		Run(func(args mock.Arguments) {
			m := args.Get(1).(*models.Mention)
			assert.Equal(t, "Python", m.BrandName)
			assert.Equal(t, models.MentionDirect, m.Type)
			assert.NotZero(t, m.ResponseID)
		}).Return(nil)

	service := NewService(cfg, store, testDetector(cfg), []assistants.Assistant{feed}, notifier, archive)
	err := service.RunMonitoringCycle(context.Background())
	require.NoError(t, err)

	store.AssertNumberOfCalls(t, "RecordResponse", 2)
	store.AssertNumberOfCalls(t, "RecordMention", 2)
	notifier.AssertNotCalled(t, "SendReport", mock.Anything)

	var metrics Metrics
	require.NoError(t, json.Unmarshal([]byte(service.GetMetrics()), &metrics))
	assert.Equal(t, 2, metrics.ResponsesRecorded)
	assert.Equal(t, 2, metrics.MentionsRecorded)
	assert.Equal(t, 2, metrics.AssistantResponses["TestAI"])
	assert.NotEmpty(t, metrics.LastCycleID)
	assert.Zero(t, metrics.ErrorCount)
}

func TestRunMonitoringCycle_NoEnabledAssistants(t *testing.T) {
	cfg := testConfig()
	service := NewService(cfg, &MockStore{}, testDetector(cfg), nil, &MockNotifier{}, &MockArchive{})

	err := service.RunMonitoringCycle(context.Background())
	assert.Error(t, err)
}

func TestRunMonitoringCycle_SkipsDisabledAndCountsErrors(t *testing.T) {
	cfg := testConfig()
	cfg.QueriesPerCycle = 1
	store := &MockStore{}

	disabled := &stubAssistant{name: "Disabled", enabled: false}
	failing := &stubAssistant{name: "Failing", enabled: true, err: errors.New("api down")}
	working := &stubAssistant{name: "Working", enabled: true, answer: "特にブランドの言及はありません。"}

	store.On("RecordResponse", mock.Anything, mock.AnythingOfType("*models.Response")).Return(nil)

	service := NewService(cfg, store, testDetector(cfg),
		[]assistants.Assistant{disabled, failing, working}, &MockNotifier{}, &MockArchive{})
	err := service.RunMonitoringCycle(context.Background())
	require.NoError(t, err, "per-assistant failures never abort the cycle")

	store.AssertNumberOfCalls(t, "RecordResponse", 1)
	store.AssertNotCalled(t, "RecordMention", mock.Anything, mock.Anything)

	var metrics Metrics
	require.NoError(t, json.Unmarshal([]byte(service.GetMetrics()), &metrics))
	assert.Equal(t, 1, metrics.ErrorCount)
}

func TestBackfillMentions(t *testing.T) {
	cfg := testConfig()
	store := &MockStore{}

	past := []models.Response{
		{ID: 7, AIName: "ChatGPT", ResponseText: "Pythonは便利でおすすめです。"},
		{ID: 8, AIName: "Gemini", ResponseText: "関係のない話です。"},
	}
	store.On("ListResponsesMissingBrand", mock.Anything, "Python", int32(10)).Return(past, nil)
	store.On("RecordMention", mock.Anything, mock.AnythingOfType("*models.Mention")).
		Run(func(args mock.Arguments) {
			m := args.Get(1).(*models.Mention)
			assert.Equal(t, int64(7), m.ResponseID)
			assert.True(t, m.Timestamp.IsZero(), "backfilled mentions inherit the parent timestamp")
		}).Return(nil)

	service := NewService(cfg, store, testDetector(cfg), nil, &MockNotifier{}, &MockArchive{})
	total, err := service.BackfillMentions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, total)
	store.AssertNumberOfCalls(t, "RecordMention", 1)
}

func TestBackfillMentions_ToleratesVanishedParent(t *testing.T) {
	cfg := testConfig()
	store := &MockStore{}

	past := []models.Response{{ID: 7, ResponseText: "Pythonの話。"}}
	store.On("ListResponsesMissingBrand", mock.Anything, "Python", int32(10)).Return(past, nil)
	store.On("RecordMention", mock.Anything, mock.Anything).
		Return(&storage.NotFoundError{Entity: "response", ID: 7})

	service := NewService(cfg, store, testDetector(cfg), nil, &MockNotifier{}, &MockArchive{})
	total, err := service.BackfillMentions(context.Background())

	require.NoError(t, err, "a parent deleted mid-backfill is not an error")
	assert.Zero(t, total)
}

func TestGenerateReport(t *testing.T) {
	cfg := testConfig()
	store := &MockStore{}

	store.On("BrandMentionCounts", mock.Anything, mock.AnythingOfType("models.Window"), "").
		Return(map[string]int64{"Python": 3, "Go": 1}, nil)
	store.On("SentimentDistribution", mock.Anything, mock.AnythingOfType("models.Window"), "").
		Return(map[models.Sentiment]int64{models.SentimentPositive: 4}, nil)
	store.On("MentionRate", mock.Anything, mock.AnythingOfType("models.Window")).
		Return(map[string]float64{"ChatGPT": 0.8}, nil)
	store.On("BrandSentimentBreakdown", mock.Anything, mock.AnythingOfType("models.Window")).
		Return([]models.BrandSentimentCount{{BrandName: "Python", Sentiment: models.SentimentPositive, Count: 3}}, nil)
	store.On("ResponseTrends", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]models.TrendPoint{{AIName: "ChatGPT", Count: 5}, {AIName: "Gemini", Count: 2}}, nil)

	service := NewService(cfg, store, testDetector(cfg), nil, &MockNotifier{}, &MockArchive{})
	report, err := service.GenerateReport(context.Background(), "weekly")
	require.NoError(t, err)

	assert.Equal(t, "weekly", report.Period)
	assert.Equal(t, 7*24*time.Hour, report.WindowEnd.Sub(report.WindowStart))
	assert.Equal(t, int64(4), report.TotalMentions)
	assert.Equal(t, int64(7), report.TotalResponses)
	assert.Equal(t, map[string]float64{"ChatGPT": 0.8}, report.MentionRates)
}

func TestPublishReport(t *testing.T) {
	cfg := testConfig()
	store := &MockStore{}
	notifier := &MockNotifier{}
	archive := &MockArchive{}

	store.On("BrandMentionCounts", mock.Anything, mock.Anything, "").Return(map[string]int64{}, nil)
	store.On("SentimentDistribution", mock.Anything, mock.Anything, "").Return(map[models.Sentiment]int64{}, nil)
	store.On("MentionRate", mock.Anything, mock.Anything).Return(map[string]float64{}, nil)
	store.On("BrandSentimentBreakdown", mock.Anything, mock.Anything).Return([]models.BrandSentimentCount{}, nil)
	store.On("ResponseTrends", mock.Anything, mock.Anything).Return([]models.TrendPoint{}, nil)

	// Archival failure is tolerated; delivery failure is not.
	archive.On("Store", mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, "report-daily-")
	}), mock.Anything).Return(errors.New("blob unavailable"))
	notifier.On("SendReport", mock.AnythingOfType("*models.Report")).Return(nil)

	service := NewService(cfg, store, testDetector(cfg), nil, notifier, archive)
	err := service.PublishReport(context.Background(), "daily")
	require.NoError(t, err)

	archive.AssertExpectations(t)
	notifier.AssertExpectations(t)
}
