package activity

import (
	"context"
	"strings"
	"time"
)

// Identity describes the actor behind a recorded API call.
type Identity struct {
	UserName  string `json:"user_name,omitempty"`
	ARN       string `json:"arn,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	Type      string `json:"type,omitempty"`
}

// Resource is a resource referenced by an event.
type Resource struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
	ARN  string `json:"arn,omitempty"`
}

// Event is a single recorded action performed by an actor against a
// monitored resource. Immutable once ingested; ID is the dedup key.
type Event struct {
	ID           string     `json:"id"`
	Timestamp    time.Time  `json:"timestamp"`
	EventName    string     `json:"event_name"`
	EventSource  string     `json:"event_source,omitempty"`
	Region       string     `json:"region,omitempty"`
	Actor        Identity   `json:"actor"`
	SourceIP     string     `json:"source_ip,omitempty"`
	UserAgent    string     `json:"user_agent,omitempty"`
	ReadOnly     bool       `json:"read_only"`
	ErrorCode    string     `json:"error_code,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Resources    []Resource `json:"resources,omitempty"`
}

// Service derives the short service name from the event source,
// e.g. "s3.amazonaws.com" -> "s3".
func (e *Event) Service() string {
	if e.EventSource == "" {
		return ""
	}
	if i := strings.IndexByte(e.EventSource, '.'); i > 0 {
		return e.EventSource[:i]
	}
	return e.EventSource
}

// ActorID resolves the user identifier used for per-actor aggregation.
// User name when present, ARN otherwise.
func (e *Event) ActorID() string {
	if e.Actor.UserName != "" {
		return e.Actor.UserName
	}
	return e.Actor.ARN
}

// HasError reports whether the recorded call failed.
func (e *Event) HasError() bool {
	return e.ErrorCode != "" || e.ErrorMessage != ""
}

// Source fetches new activity events from an external activity log.
type Source interface {
	FetchSince(ctx context.Context, since time.Time) ([]Event, error)
}
