package detector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/awstrack/awstrack/internal/domain/alert"
	"github.com/awstrack/awstrack/internal/domain/anomaly"
	apperrors "github.com/awstrack/awstrack/internal/pkg/errors"
	"github.com/awstrack/awstrack/internal/testutil"
)

func testThresholds() SeverityThresholds {
	return SeverityThresholds{Warning: 1000, Critical: 10000}
}

func TestSeverityThresholds_Severity(t *testing.T) {
	th := testThresholds()

	tests := []struct {
		name   string
		impact float64
		want   string
	}{
		{"small impact", 42.50, alert.SeverityInfo},
		{"just below warning", 999.99, alert.SeverityInfo},
		{"at warning threshold", 1000, alert.SeverityWarning},
		{"between thresholds", 5000, alert.SeverityWarning},
		{"at critical threshold", 10000, alert.SeverityCritical},
		{"way above critical", 250000, alert.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := th.Severity(tt.impact); got != tt.want {
				t.Errorf("Severity(%v) = %q, want %q", tt.impact, got, tt.want)
			}
		})
	}
}

func TestCost_CheckOnce(t *testing.T) {
	now := time.Now()
	source := &testutil.MockAnomalySource{
		Batches: [][]anomaly.Record{{
			{ID: "an-1", ImpactAmount: 15000, Status: anomaly.StatusOpen, Service: "ec2", DetectedAt: now},
			{ID: "an-2", ImpactAmount: 2500, Status: anomaly.StatusOpen, Service: "s3", DetectedAt: now},
			{ID: "an-3", ImpactAmount: 50000, Status: anomaly.StatusClosed, Service: "rds", DetectedAt: now},
			{ID: "", ImpactAmount: 100, Status: anomaly.StatusOpen},
		}},
	}
	alerts := &testutil.MockAlertSink{}
	costs := &testutil.MockCostSink{}
	d := NewCost(source, testThresholds(), alerts, costs, time.Hour, 10, testLog())

	if err := d.CheckOnce(context.Background()); err != nil {
		t.Fatalf("CheckOnce() error = %v", err)
	}

	// Attribution runs for open and closed records, not the id-less one.
	if len(costs.Records) != 3 {
		t.Fatalf("ingested %d records, want 3", len(costs.Records))
	}

	// Only open records alert.
	if alerts.Count() != 2 {
		t.Fatalf("dispatched %d alerts, want 2", alerts.Count())
	}
	bySeverity := map[string]string{}
	for _, a := range alerts.Alerts {
		bySeverity[a.DedupKey] = a.Severity
		if a.SourceKind != alert.SourceCost {
			t.Errorf("alert %s SourceKind = %q, want cost", a.DedupKey, a.SourceKind)
		}
	}
	if bySeverity["an-1"] != alert.SeverityCritical {
		t.Errorf("an-1 severity = %q, want critical", bySeverity["an-1"])
	}
	if bySeverity["an-2"] != alert.SeverityWarning {
		t.Errorf("an-2 severity = %q, want warning", bySeverity["an-2"])
	}
}

func TestCost_ClosedRecordNotReAlerted(t *testing.T) {
	record := anomaly.Record{ID: "an-9", ImpactAmount: 20000, Status: anomaly.StatusOpen, DetectedAt: time.Now()}
	closed := record
	closed.Status = anomaly.StatusClosed

	source := &testutil.MockAnomalySource{
		Batches: [][]anomaly.Record{{record}, {closed}},
	}
	alerts := &testutil.MockAlertSink{}
	costs := &testutil.MockCostSink{}
	d := NewCost(source, testThresholds(), alerts, costs, time.Hour, 10, testLog())

	if err := d.CheckOnce(context.Background()); err != nil {
		t.Fatalf("first CheckOnce() error = %v", err)
	}
	if err := d.CheckOnce(context.Background()); err != nil {
		t.Fatalf("second CheckOnce() error = %v", err)
	}

	if alerts.Count() != 1 {
		t.Errorf("dispatched %d alerts, want 1 (closed record must not re-alert)", alerts.Count())
	}
	if len(costs.Records) != 2 {
		t.Errorf("ingested %d records, want 2 (closed record still updates attribution)", len(costs.Records))
	}
}

func TestCost_TransientFetch(t *testing.T) {
	source := &testutil.MockAnomalySource{FetchError: errors.New("rate exceeded")}
	d := NewCost(source, testThresholds(), &testutil.MockAlertSink{}, &testutil.MockCostSink{}, time.Hour, 10, testLog())

	err := d.CheckOnce(context.Background())
	if !apperrors.IsTransientFetch(err) {
		t.Fatalf("CheckOnce() error = %v, want transient fetch", err)
	}
}

func TestCost_RecentAnomalies(t *testing.T) {
	now := time.Now()
	source := &testutil.MockAnomalySource{
		Batches: [][]anomaly.Record{{
			{ID: "an-1", ImpactAmount: 100, Status: anomaly.StatusOpen, DetectedAt: now},
			{ID: "an-2", ImpactAmount: 200, Status: anomaly.StatusClosed, DetectedAt: now},
			{ID: "an-3", ImpactAmount: 300, Status: anomaly.StatusOpen, DetectedAt: now},
		}},
	}
	d := NewCost(source, testThresholds(), &testutil.MockAlertSink{}, &testutil.MockCostSink{}, time.Hour, 2, testLog())

	if err := d.CheckOnce(context.Background()); err != nil {
		t.Fatalf("CheckOnce() error = %v", err)
	}

	recent := d.RecentAnomalies(10)
	if len(recent) != 2 {
		t.Fatalf("RecentAnomalies returned %d, want 2 (bounded buffer)", len(recent))
	}
	if recent[0].ID != "an-3" || recent[1].ID != "an-2" {
		t.Errorf("RecentAnomalies order = [%s %s], want newest first", recent[0].ID, recent[1].ID)
	}
}
