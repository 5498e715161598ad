package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/awstrack/awstrack/internal/domain/anomaly"
	"github.com/awstrack/awstrack/internal/pkg/errors"
	"github.com/awstrack/awstrack/internal/pkg/logger"
)

// CostExplorerAPI is the subset of the Cost Explorer client the source needs.
// Cost Explorer is only served from us-east-1.
type CostExplorerAPI interface {
	GetAnomalies(ctx context.Context, params *costexplorer.GetAnomaliesInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetAnomaliesOutput, error)
}

// CostAnomalySource reads spend anomalies from the Cost Explorer anomaly
// detection API. It implements anomaly.Source.
type CostAnomalySource struct {
	client CostExplorerAPI
	log    *logger.Logger
}

func NewCostAnomalySource(client CostExplorerAPI, log *logger.Logger) *CostAnomalySource {
	return &CostAnomalySource{client: client, log: log.WithComponent("cost_anomaly_source")}
}

// FetchSince returns anomalies detected after since. The API filters by
// calendar date, so the detector's own idempotent ingestion absorbs any
// same-day overlap.
func (s *CostAnomalySource) FetchSince(ctx context.Context, since time.Time) ([]anomaly.Record, error) {
	var records []anomaly.Record
	input := &costexplorer.GetAnomaliesInput{
		DateInterval: &cetypes.AnomalyDateInterval{
			StartDate: aws.String(since.UTC().Format("2006-01-02")),
		},
		MaxResults: aws.Int32(100),
	}
	for {
		out, err := s.client.GetAnomalies(ctx, input)
		if err != nil {
			return nil, errors.TransientFetch("cost_explorer", err)
		}
		for _, an := range out.Anomalies {
			records = append(records, anomalyToRecord(an))
		}
		if out.NextPageToken == nil || *out.NextPageToken == "" {
			break
		}
		input.NextPageToken = out.NextPageToken
	}
	return records, nil
}

func anomalyToRecord(an cetypes.Anomaly) anomaly.Record {
	rec := anomaly.Record{
		ID:             aws.ToString(an.AnomalyId),
		DimensionValue: aws.ToString(an.DimensionValue),
		Status:         anomaly.StatusClosed,
		DetectedAt:     parseAnomalyDate(aws.ToString(an.AnomalyStartDate)),
	}
	// An anomaly without an end date is still accruing impact.
	if aws.ToString(an.AnomalyEndDate) == "" {
		rec.Status = anomaly.StatusOpen
	}
	if an.Impact != nil {
		rec.ImpactAmount = an.Impact.TotalImpact
	}
	for _, rc := range an.RootCauses {
		if rec.Service == "" {
			rec.Service = aws.ToString(rc.Service)
		}
		if rec.Region == "" {
			rec.Region = aws.ToString(rc.Region)
		}
		rec.RootCauses = append(rec.RootCauses, formatRootCause(rc))
	}
	return rec
}

func formatRootCause(rc cetypes.RootCause) string {
	parts := make([]string, 0, 4)
	if v := aws.ToString(rc.Service); v != "" {
		parts = append(parts, fmt.Sprintf("service=%s", v))
	}
	if v := aws.ToString(rc.Region); v != "" {
		parts = append(parts, fmt.Sprintf("region=%s", v))
	}
	if v := aws.ToString(rc.UsageType); v != "" {
		parts = append(parts, fmt.Sprintf("usage=%s", v))
	}
	if v := aws.ToString(rc.LinkedAccount); v != "" {
		parts = append(parts, fmt.Sprintf("account=%s", v))
	}
	return strings.Join(parts, " ")
}

func parseAnomalyDate(v string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
