package assistants

import "context"

// userAgent identifies outbound API requests.
const userAgent = "AI-Brand-Monitor/1.0"

// Assistant defines the interface for AI assistant feeds the collector
// polls for responses.
type Assistant interface {
	// GetName returns the assistant identifier recorded as ai_name.
	GetName() string

	// IsEnabled reports whether the assistant has credentials
	// configured.
	IsEnabled() bool

	// Ask submits one query and returns the assistant's text answer.
	Ask(ctx context.Context, query string) (string, error)
}
