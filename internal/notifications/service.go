package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/brandmonitor/ai-mentions-bot/internal/config"
	"github.com/brandmonitor/ai-mentions-bot/internal/models"
)

// Service delivers reports and alerts by email. When no recipient is
// configured it logs the payload instead; notification is best-effort
// and never blocks the pipeline.
type Service struct {
	config *config.Config
}

// Ensure Service implements Interface
var _ Interface = (*Service)(nil)

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{config: cfg}
}

// SendReport sends the periodic report to the configured recipient.
func (s *Service) SendReport(report *models.Report) error {
	if s.config.NotificationEmail == "" {
		logrus.Infof("No notification email configured; %s report: %d responses, %d mentions",
			report.Period, report.TotalResponses, report.TotalMentions)
		return nil
	}

	subject := fmt.Sprintf("AI Brand Monitor - %s Report (%d mentions)",
		titleCase(report.Period), report.TotalMentions)

	htmlBody, err := s.buildReportHTML(report)
	if err != nil {
		return fmt.Errorf("building report HTML: %w", err)
	}

	if err := s.send(subject, s.buildReportText(report), htmlBody); err != nil {
		return fmt.Errorf("sending report email: %w", err)
	}

	logrus.Infof("Sent %s report to %s", report.Period, s.config.NotificationEmail)
	return nil
}

// SendAlert sends a fired alert to the configured recipient.
func (s *Service) SendAlert(alert *models.Alert) error {
	if s.config.NotificationEmail == "" {
		logrus.Infof("No notification email configured; alert %s [%s]: %s",
			alert.RuleName, alert.Severity, alert.Message)
		return nil
	}

	subject := fmt.Sprintf("[AI Monitor Alert] %s - %s", alert.RuleName, strings.ToUpper(alert.Severity))

	htmlBody, err := s.buildAlertHTML(alert)
	if err != nil {
		return fmt.Errorf("building alert HTML: %w", err)
	}

	if err := s.send(subject, s.buildAlertText(alert), htmlBody); err != nil {
		return fmt.Errorf("sending alert email: %w", err)
	}

	logrus.Infof("Sent alert %s to %s", alert.RuleName, s.config.NotificationEmail)
	return nil
}

func (s *Service) send(subject, textBody, htmlBody string) error {
	from := s.config.EmailFrom
	if from == "" {
		from = s.config.SMTPUsername
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	return d.DialAndSend(m)
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"title": titleCase,
	"truncate": func(s string, length int) string {
		runes := []rune(s)
		if len(runes) <= length {
			return s
		}
		return string(runes[:length]) + "..."
	},
	"rate": func(r float64) string { return fmt.Sprintf("%.2f", r) },
}).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>AI Brand Monitor Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        table { border-collapse: collapse; margin: 10px 0; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        .positive { color: #107c10; }
        .negative { color: #d13438; }
        .neutral { color: #605e5c; }
    </style>
</head>
<body>
    <div class="header">
        <h1>AI Brand Monitor Report</h1>
        <p>{{.Period | title}} report for {{.WindowStart.Format "Jan 2 15:04"}} – {{.WindowEnd.Format "Jan 2 15:04 MST"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Responses collected:</strong> {{.TotalResponses}}</p>
        <p><strong>Brand mentions:</strong> {{.TotalMentions}}</p>
        {{range $sentiment, $count := .SentimentCounts}}
        <p class="{{$sentiment}}"><strong>{{$sentiment | title}} mentions:</strong> {{$count}}</p>
        {{end}}
    </div>

    {{if .BrandCounts}}
    <h2>Mentions by Brand</h2>
    <table>
        <tr><th>Brand</th><th>Mentions</th></tr>
        {{range $brand, $count := .BrandCounts}}
        <tr><td>{{$brand}}</td><td>{{$count}}</td></tr>
        {{end}}
    </table>
    {{end}}

    {{if .MentionRates}}
    <h2>Mention Rate by Assistant</h2>
    <table>
        <tr><th>Assistant</th><th>Mentions per response</th></tr>
        {{range $name, $r := .MentionRates}}
        <tr><td>{{$name}}</td><td>{{$r | rate}}</td></tr>
        {{end}}
    </table>
    {{end}}

    {{if .Breakdown}}
    <h2>Brand Sentiment Breakdown</h2>
    <table>
        <tr><th>Brand</th><th>Sentiment</th><th>Count</th></tr>
        {{range .Breakdown}}
        <tr><td>{{.BrandName}}</td><td class="{{.Sentiment}}">{{.Sentiment}}</td><td>{{.Count}}</td></tr>
        {{end}}
    </table>
    {{end}}

    <hr>
    <p><small>Generated automatically at {{.GeneratedAt.Format "2006-01-02 15:04:05 UTC"}}.</small></p>
</body>
</html>
`))

func (s *Service) buildReportHTML(report *models.Report) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) buildReportText(report *models.Report) string {
	var text strings.Builder

	fmt.Fprintf(&text, "AI Brand Monitor Report - %s\n", titleCase(report.Period))
	fmt.Fprintf(&text, "Window: %s - %s\n\n",
		report.WindowStart.Format("2006-01-02 15:04"), report.WindowEnd.Format("2006-01-02 15:04 MST"))

	text.WriteString("SUMMARY\n=======\n")
	fmt.Fprintf(&text, "Responses collected: %d\n", report.TotalResponses)
	fmt.Fprintf(&text, "Brand mentions: %d\n", report.TotalMentions)
	for _, sentiment := range sortedSentiments(report.SentimentCounts) {
		fmt.Fprintf(&text, "%s mentions: %d\n", titleCase(string(sentiment)), report.SentimentCounts[sentiment])
	}

	if len(report.BrandCounts) > 0 {
		text.WriteString("\nMENTIONS BY BRAND\n=================\n")
		for _, brand := range sortedKeys(report.BrandCounts) {
			fmt.Fprintf(&text, "%s: %d\n", brand, report.BrandCounts[brand])
		}
	}

	if len(report.MentionRates) > 0 {
		text.WriteString("\nMENTION RATE BY ASSISTANT\n=========================\n")
		for _, name := range sortedRateKeys(report.MentionRates) {
			fmt.Fprintf(&text, "%s: %.2f mentions per response\n", name, report.MentionRates[name])
		}
	}

	fmt.Fprintf(&text, "\n---\nGenerated automatically at %s.\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	return text.String()
}

var alertTemplate = template.Must(template.New("alert").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: {{.Color}}; color: white; padding: 15px; border-radius: 5px; }
        .content { padding: 20px; border: 1px solid #ddd; border-radius: 5px; margin-top: 10px; }
        table { width: 100%; border-collapse: collapse; margin-top: 15px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
    </style>
</head>
<body>
    <div class="header">
        <h2>AI Monitor Alert</h2>
        <h3>{{.Alert.RuleName}}</h3>
        <p>{{.Alert.Timestamp.Format "2006-01-02 15:04:05 UTC"}}</p>
    </div>
    <div class="content">
        <h4>Message</h4>
        <p>{{.Alert.Message}}</p>
        <h4>Severity</h4>
        <p style="color: {{.Color}}; font-weight: bold;">{{.Severity}}</p>
        {{if .Alert.Data}}
        <h4>Details</h4>
        <table>
            <tr><th>Key</th><th>Value</th></tr>
            {{range $k, $v := .Alert.Data}}
            <tr><td>{{$k}}</td><td>{{$v}}</td></tr>
            {{end}}
        </table>
        {{end}}
    </div>
</body>
</html>
`))

var severityColors = map[string]string{
	"low":    "#28a745",
	"medium": "#ffc107",
	"high":   "#fd7e14",
}

func (s *Service) buildAlertHTML(alert *models.Alert) (string, error) {
	color, ok := severityColors[alert.Severity]
	if !ok {
		color = "#6c757d"
	}

	var buf bytes.Buffer
	err := alertTemplate.Execute(&buf, struct {
		Alert    *models.Alert
		Color    string
		Severity string
	}{alert, color, strings.ToUpper(alert.Severity)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) buildAlertText(alert *models.Alert) string {
	var text strings.Builder

	fmt.Fprintf(&text, "AI Monitor Alert: %s\n", alert.RuleName)
	fmt.Fprintf(&text, "Severity: %s\n", strings.ToUpper(alert.Severity))
	fmt.Fprintf(&text, "Time: %s\n\n", alert.Timestamp.Format("2006-01-02 15:04:05 UTC"))
	text.WriteString(alert.Message)
	text.WriteString("\n")

	if len(alert.Data) > 0 {
		text.WriteString("\nDetails:\n")
		for _, key := range sortedDataKeys(alert.Data) {
			fmt.Fprintf(&text, "  %s: %v\n", key, alert.Data[key])
		}
	}

	return text.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedRateKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedDataKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSentiments(m map[models.Sentiment]int64) []models.Sentiment {
	keys := make([]models.Sentiment, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
