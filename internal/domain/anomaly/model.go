package anomaly

import (
	"context"
	"time"
)

// Record is a flagged deviation in spend for a dimension versus the expected
// baseline. Immutable once ingested; ID is the dedup key.
type Record struct {
	ID             string    `json:"id"`
	ImpactAmount   float64   `json:"impact_amount"`
	DimensionValue string    `json:"dimension_value,omitempty"`
	Service        string    `json:"service,omitempty"`
	Region         string    `json:"region,omitempty"`
	RootCauses     []string  `json:"root_causes,omitempty"`
	Status         string    `json:"status"`
	DetectedAt     time.Time `json:"detected_at"`
	// Resource the spend is attributed to, when the source provides one
	ResourceID string `json:"resource_id,omitempty"`
}

// Record status
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// IsOpen reports whether the anomaly is still open. Only open records
// produce alerts; closed ones still update cost attribution.
func (r *Record) IsOpen() bool {
	return r.Status == StatusOpen
}

// Source fetches new cost anomaly records from an external cost monitor.
type Source interface {
	FetchSince(ctx context.Context, since time.Time) ([]Record, error)
}
