package detector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/awstrack/awstrack/internal/domain/alert"
	"github.com/awstrack/awstrack/internal/domain/anomaly"
	"github.com/awstrack/awstrack/internal/pkg/errors"
	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/pkg/metrics"
	"github.com/google/uuid"
)

// CostSink receives every fetched anomaly record for attribution.
type CostSink interface {
	IngestCost(ctx context.Context, r *anomaly.Record) error
}

// SeverityThresholds classify an anomaly's impact amount:
// impact < Warning => info, impact < Critical => warning, else critical.
type SeverityThresholds struct {
	Warning  float64
	Critical float64
}

// Severity maps an impact amount to exactly one severity.
func (t SeverityThresholds) Severity(impact float64) string {
	switch {
	case impact >= t.Critical:
		return alert.SeverityCritical
	case impact >= t.Warning:
		return alert.SeverityWarning
	default:
		return alert.SeverityInfo
	}
}

// Cost classifies fetched cost anomaly records by severity. Open records
// produce alerts; closed records only update attribution.
type Cost struct {
	source     anomaly.Source
	thresholds SeverityThresholds
	alerts     AlertSink
	analytics  CostSink
	lookback   time.Duration
	logger     *logger.Logger

	mu         sync.Mutex
	lastFetch  time.Time
	recent     []*anomaly.Record
	recentSize int
	alerted    int64
}

// NewCost creates the cost anomaly detector.
func NewCost(
	source anomaly.Source,
	thresholds SeverityThresholds,
	alerts AlertSink,
	analytics CostSink,
	lookback time.Duration,
	recentSize int,
	log *logger.Logger,
) *Cost {
	return &Cost{
		source:     source,
		thresholds: thresholds,
		alerts:     alerts,
		analytics:  analytics,
		lookback:   lookback,
		recentSize: recentSize,
		logger:     log.WithComponent("cost-detector"),
	}
}

// CheckOnce fetches new anomaly records and processes them. A fetch failure
// is transient; the window is retried next cycle.
func (d *Cost) CheckOnce(ctx context.Context) error {
	d.mu.Lock()
	since := d.lastFetch
	d.mu.Unlock()
	if since.IsZero() {
		since = time.Now().Add(-d.lookback)
	}

	records, err := d.source.FetchSince(ctx, since)
	if err != nil {
		return errors.TransientFetch("costexplorer", err)
	}

	now := time.Now()
	alerted := 0
	for i := range records {
		r := &records[i]
		if r.ID == "" {
			d.logger.Warn("Skipping anomaly record without id")
			continue
		}

		severity := d.thresholds.Severity(r.ImpactAmount)
		metrics.RecordCostAnomaly(severity)
		d.remember(r)

		// Attribution happens for every record, open or closed.
		if err := d.analytics.IngestCost(ctx, r); err != nil {
			d.logger.WithFields(map[string]interface{}{
				"anomaly_id": r.ID,
			}).ErrorWithErr(err, "Failed to ingest cost record")
		}

		if !r.IsOpen() {
			continue
		}

		alerted++
		d.emitAlert(ctx, r, severity)
	}

	d.mu.Lock()
	d.lastFetch = now
	d.alerted += int64(alerted)
	d.mu.Unlock()

	if len(records) > 0 {
		d.logger.WithFields(map[string]interface{}{
			"records": len(records),
			"alerted": alerted,
		}).Info("Cost anomaly check complete")
	}
	return nil
}

func (d *Cost) emitAlert(ctx context.Context, r *anomaly.Record, severity string) {
	a := &alert.Alert{
		ID:         uuid.New().String(),
		SourceKind: alert.SourceCost,
		Severity:   severity,
		Title:      fmt.Sprintf("Cost Anomaly Alert: $%.2f Impact", r.ImpactAmount),
		Message:    formatCostAlert(r),
		DedupKey:   r.ID,
		Payload: map[string]interface{}{
			"anomaly_id":      r.ID,
			"impact_amount":   r.ImpactAmount,
			"dimension_value": r.DimensionValue,
			"status":          r.Status,
		},
		CreatedAt: time.Now(),
	}

	if err := d.alerts.Dispatch(ctx, a); err != nil {
		d.logger.WithFields(map[string]interface{}{
			"anomaly_id": r.ID,
		}).ErrorWithErr(err, "Failed to dispatch cost alert")
	}
}

func (d *Cost) remember(r *anomaly.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recent = append(d.recent, r)
	if len(d.recent) > d.recentSize {
		d.recent = d.recent[len(d.recent)-d.recentSize:]
	}
}

// RecentAnomalies returns up to limit most recently seen anomaly records,
// newest first.
func (d *Cost) RecentAnomalies(limit int) []*anomaly.Record {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.recent)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*anomaly.Record, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, d.recent[i])
	}
	return out
}

// StatusFields reports detector counters for the agent state snapshot.
func (d *Cost) StatusFields() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]interface{}{
		"anomalies_alerted_count": d.alerted,
		"buffered_anomalies":      len(d.recent),
	}
}

func formatCostAlert(r *anomaly.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cost anomaly detected\n\nAnomaly ID: %s\nDimension: %s\nTotal Impact: $%.2f\nStatus: %s\n",
		r.ID, r.DimensionValue, r.ImpactAmount, r.Status)
	if len(r.RootCauses) > 0 {
		b.WriteString("\nRoot causes:\n")
		causes := r.RootCauses
		if len(causes) > 3 {
			causes = causes[:3]
		}
		for _, c := range causes {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	b.WriteString("\nPlease review and take appropriate action.")
	return b.String()
}
