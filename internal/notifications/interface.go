package notifications

import "github.com/brandmonitor/ai-mentions-bot/internal/models"

// Interface is the contract for delivering reports and alerts to the
// configured recipients.
type Interface interface {
	SendReport(report *models.Report) error
	SendAlert(alert *models.Alert) error
}
