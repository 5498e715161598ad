package detector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/awstrack/awstrack/internal/domain/activity"
	"github.com/awstrack/awstrack/internal/domain/alert"
	"github.com/awstrack/awstrack/internal/pkg/errors"
	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/pkg/metrics"
	"github.com/google/uuid"
)

// AlertSink receives alerts produced by detectors.
type AlertSink interface {
	Dispatch(ctx context.Context, a *alert.Alert) error
}

// ActivitySink receives every fetched event, flagged or not.
type ActivitySink interface {
	IngestActivity(ctx context.Context, e *activity.Event, highRisk bool) error
}

// CloudTrail classifies fetched activity records as suspicious using the
// configured rule set, emits one alert per flagged event and forwards every
// event to the analytics sink.
type CloudTrail struct {
	source    activity.Source
	rules     *ActivityRuleSet
	alerts    AlertSink
	analytics ActivitySink
	lookback  time.Duration
	logger    *logger.Logger

	// mu guards the fetch window and the recent flagged buffer. The buffer
	// has a single writer (the owning agent's cycle); API readers take
	// snapshots.
	mu         sync.Mutex
	lastFetch  time.Time
	recent     []*activity.Event
	recentSize int
	flagged    int64
}

// NewCloudTrail creates the CloudTrail detector. lookback bounds the first
// cycle's fetch window; recentSize bounds the flagged-event buffer.
func NewCloudTrail(
	source activity.Source,
	rules *ActivityRuleSet,
	alerts AlertSink,
	analytics ActivitySink,
	lookback time.Duration,
	recentSize int,
	log *logger.Logger,
) *CloudTrail {
	return &CloudTrail{
		source:     source,
		rules:      rules,
		alerts:     alerts,
		analytics:  analytics,
		lookback:   lookback,
		recentSize: recentSize,
		logger:     log.WithComponent("cloudtrail-detector"),
	}
}

// CheckOnce fetches new events since the last check and processes them.
// A fetch failure is transient: the window is not advanced and the same
// range is retried next cycle.
func (d *CloudTrail) CheckOnce(ctx context.Context) error {
	d.mu.Lock()
	since := d.lastFetch
	d.mu.Unlock()
	if since.IsZero() {
		since = time.Now().Add(-d.lookback)
	}

	events, err := d.source.FetchSince(ctx, since)
	if err != nil {
		return errors.TransientFetch("cloudtrail", err)
	}

	now := time.Now()
	flagged := 0
	for i := range events {
		e := &events[i]
		if e.ActorID() == "" {
			// Records without a resolvable actor cannot be classified
			// or attributed; skip them and keep the cycle going.
			d.logger.WithFields(map[string]interface{}{
				"event_id": e.ID,
			}).Warn("Skipping event without actor identity")
			continue
		}

		highRisk, reason := d.rules.Evaluate(e)
		if highRisk {
			flagged++
			metrics.RecordFlaggedEvent(reason)
			d.remember(e)
			d.emitAlert(ctx, e, reason)
		}

		if err := d.analytics.IngestActivity(ctx, e, highRisk); err != nil {
			d.logger.WithFields(map[string]interface{}{
				"event_id": e.ID,
			}).ErrorWithErr(err, "Failed to ingest event")
		}
	}

	d.mu.Lock()
	d.lastFetch = now
	d.flagged += int64(flagged)
	d.mu.Unlock()

	if len(events) > 0 {
		d.logger.WithFields(map[string]interface{}{
			"events":  len(events),
			"flagged": flagged,
		}).Info("Activity check complete")
	}
	return nil
}

func (d *CloudTrail) emitAlert(ctx context.Context, e *activity.Event, reason string) {
	a := &alert.Alert{
		ID:         uuid.New().String(),
		SourceKind: alert.SourceActivity,
		Severity:   alert.SeverityWarning,
		Title:      fmt.Sprintf("Suspicious AWS Activity: %s", e.EventName),
		Message:    formatActivityAlert(e, reason),
		DedupKey:   e.ID,
		Payload: map[string]interface{}{
			"event_id":   e.ID,
			"event_name": e.EventName,
			"actor":      e.ActorID(),
			"source_ip":  e.SourceIP,
			"region":     e.Region,
			"reason":     reason,
		},
		CreatedAt: time.Now(),
	}

	if err := d.alerts.Dispatch(ctx, a); err != nil {
		d.logger.WithFields(map[string]interface{}{
			"event_id": e.ID,
		}).ErrorWithErr(err, "Failed to dispatch activity alert")
	}
}

func (d *CloudTrail) remember(e *activity.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recent = append(d.recent, e)
	if len(d.recent) > d.recentSize {
		d.recent = d.recent[len(d.recent)-d.recentSize:]
	}
}

// RecentFlagged returns up to limit most recently flagged events,
// newest first.
func (d *CloudTrail) RecentFlagged(limit int) []*activity.Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.recent)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*activity.Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, d.recent[i])
	}
	return out
}

// StatusFields reports detector counters for the agent state snapshot.
func (d *CloudTrail) StatusFields() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]interface{}{
		"suspicious_events_count": d.flagged,
		"buffered_events":         len(d.recent),
	}
}

func formatActivityAlert(e *activity.Event, reason string) string {
	return fmt.Sprintf(
		"Suspicious CloudTrail event detected\n\nEvent: %s\nTime: %s\nUser: %s\nSource IP: %s\nRegion: %s\nReason: %s\n\nPlease review this event immediately.",
		e.EventName,
		e.Timestamp.Format(time.RFC3339),
		e.ActorID(),
		e.SourceIP,
		e.Region,
		reason,
	)
}
