package detector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/awstrack/awstrack/internal/domain/activity"
	apperrors "github.com/awstrack/awstrack/internal/pkg/errors"
	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/testutil"
)

func testLog() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func actor(name string) activity.Identity {
	return activity.Identity{UserName: name, ARN: "arn:aws:iam::123456789012:user/" + name}
}

func TestCloudTrail_CheckOnce(t *testing.T) {
	now := time.Now()
	source := &testutil.MockActivitySource{
		Batches: [][]activity.Event{{
			{ID: "ev-1", Timestamp: now, EventName: "DescribeInstances", Actor: actor("alice"), ReadOnly: true},
			{ID: "ev-2", Timestamp: now, EventName: "DeleteBucket", Actor: actor("bob"), SourceIP: "198.51.100.7", Region: "us-east-1"},
			{ID: "ev-3", Timestamp: now, EventName: "ListBuckets"}, // no actor
		}},
	}
	alerts := &testutil.MockAlertSink{}
	analytics := &testutil.MockActivitySink{}
	d := NewCloudTrail(source, testRules(), alerts, analytics, time.Hour, 10, testLog())

	if err := d.CheckOnce(context.Background()); err != nil {
		t.Fatalf("CheckOnce() error = %v", err)
	}

	// The actorless event is skipped, the rest are ingested.
	if len(analytics.Events) != 2 {
		t.Fatalf("ingested %d events, want 2", len(analytics.Events))
	}
	if analytics.HighRisk[0] || !analytics.HighRisk[1] {
		t.Errorf("high-risk flags = %v, want [false true]", analytics.HighRisk)
	}

	// Exactly one alert, for the flagged event.
	if alerts.Count() != 1 {
		t.Fatalf("dispatched %d alerts, want 1", alerts.Count())
	}
	a := alerts.Alerts[0]
	if a.DedupKey != "ev-2" {
		t.Errorf("alert DedupKey = %q, want ev-2", a.DedupKey)
	}
	if a.SourceKind != "activity" || a.Severity != "warning" {
		t.Errorf("alert kind/severity = %s/%s, want activity/warning", a.SourceKind, a.Severity)
	}
	if a.Payload["reason"] != ReasonHighRiskOperation {
		t.Errorf("alert reason = %v, want %s", a.Payload["reason"], ReasonHighRiskOperation)
	}
}

func TestCloudTrail_TransientFetchKeepsWindow(t *testing.T) {
	source := &testutil.MockActivitySource{FetchError: errors.New("throttled")}
	d := NewCloudTrail(source, testRules(), &testutil.MockAlertSink{}, &testutil.MockActivitySink{}, time.Hour, 10, testLog())

	err := d.CheckOnce(context.Background())
	if !apperrors.IsTransientFetch(err) {
		t.Fatalf("CheckOnce() error = %v, want transient fetch", err)
	}

	// The window did not advance; the retry covers the same range.
	source.FetchError = nil
	if err := d.CheckOnce(context.Background()); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if len(source.Sinces) != 2 {
		t.Fatalf("fetch calls = %d, want 2", len(source.Sinces))
	}
	if gap := source.Sinces[1].Sub(source.Sinces[0]); gap < 0 || gap > time.Minute {
		t.Errorf("retry window moved by %v, want roughly the failed window", gap)
	}
}

func TestCloudTrail_WindowAdvancesAfterSuccess(t *testing.T) {
	source := &testutil.MockActivitySource{}
	d := NewCloudTrail(source, testRules(), &testutil.MockAlertSink{}, &testutil.MockActivitySink{}, 24*time.Hour, 10, testLog())

	if err := d.CheckOnce(context.Background()); err != nil {
		t.Fatalf("first CheckOnce() error = %v", err)
	}
	if err := d.CheckOnce(context.Background()); err != nil {
		t.Fatalf("second CheckOnce() error = %v", err)
	}

	// First fetch reaches back the full lookback, the second only to the
	// previous cycle.
	if len(source.Sinces) != 2 {
		t.Fatalf("fetch calls = %d, want 2", len(source.Sinces))
	}
	if source.Sinces[1].Sub(source.Sinces[0]) < 23*time.Hour {
		t.Error("second fetch window did not advance past the lookback")
	}
}

func TestCloudTrail_IngestErrorDoesNotFailCycle(t *testing.T) {
	source := &testutil.MockActivitySource{
		Batches: [][]activity.Event{{
			{ID: "ev-1", Timestamp: time.Now(), EventName: "GetObject", Actor: actor("alice"), ReadOnly: true},
		}},
	}
	analytics := &testutil.MockActivitySink{IngestError: errors.New("store closed")}
	d := NewCloudTrail(source, testRules(), &testutil.MockAlertSink{}, analytics, time.Hour, 10, testLog())

	if err := d.CheckOnce(context.Background()); err != nil {
		t.Errorf("CheckOnce() error = %v, want nil despite ingest failure", err)
	}
}

func TestCloudTrail_RecentFlagged(t *testing.T) {
	now := time.Now()
	var batch []activity.Event
	names := []string{"DeleteBucket", "StopLogging", "PutUserPolicy"}
	for i, n := range names {
		batch = append(batch, activity.Event{
			ID: "ev-" + n, Timestamp: now.Add(time.Duration(i) * time.Second),
			EventName: n, Actor: actor("mallory"),
		})
	}
	source := &testutil.MockActivitySource{Batches: [][]activity.Event{batch}}
	d := NewCloudTrail(source, testRules(), &testutil.MockAlertSink{}, &testutil.MockActivitySink{}, time.Hour, 2, testLog())

	if err := d.CheckOnce(context.Background()); err != nil {
		t.Fatalf("CheckOnce() error = %v", err)
	}

	// Buffer is bounded at 2, newest first.
	recent := d.RecentFlagged(10)
	if len(recent) != 2 {
		t.Fatalf("RecentFlagged returned %d events, want 2", len(recent))
	}
	if recent[0].EventName != "PutUserPolicy" || recent[1].EventName != "StopLogging" {
		t.Errorf("RecentFlagged order = [%s %s], want newest first", recent[0].EventName, recent[1].EventName)
	}

	if got := d.RecentFlagged(1); len(got) != 1 || got[0].EventName != "PutUserPolicy" {
		t.Errorf("RecentFlagged(1) = %v, want newest only", got)
	}

	status := d.StatusFields()
	if status["suspicious_events_count"] != int64(3) {
		t.Errorf("suspicious_events_count = %v, want 3", status["suspicious_events_count"])
	}
}
