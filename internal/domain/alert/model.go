package alert

import (
	"context"
	"time"
)

// Alert is a single notification-worthy finding produced by a detector.
// DedupKey suppresses repeated notification of the same underlying condition.
type Alert struct {
	ID             string                   `json:"id"`
	SourceKind     string                   `json:"source_kind"`
	Severity       string                   `json:"severity"`
	Title          string                   `json:"title"`
	Message        string                   `json:"message"`
	DedupKey       string                   `json:"dedup_key"`
	Payload        map[string]interface{}   `json:"payload,omitempty"`
	ChannelResults map[string]ChannelResult `json:"channel_results,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}

// ChannelResult records one channel's delivery outcome.
type ChannelResult struct {
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// Alert source kinds
const (
	SourceActivity = "activity"
	SourceCost     = "cost"
)

// Alert severity levels
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Notification channels
const (
	ChannelSlack = "slack"
	ChannelSNS   = "sns"
	ChannelEmail = "email"
)

// Delivered reports whether at least one channel accepted the alert.
func (a *Alert) Delivered() bool {
	for _, r := range a.ChannelResults {
		if r.Delivered {
			return true
		}
	}
	return false
}

// Notifier delivers alerts on one configured channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, a *Alert) error
}

// Repository persists dispatched alerts for the history API.
type Repository interface {
	Save(ctx context.Context, a *Alert) error
	ListRecent(ctx context.Context, limit int) ([]*Alert, error)
}
