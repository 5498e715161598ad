package client

import (
	"context"
	"fmt"
)

// AnomalyService reads the cost detector's recent findings
type AnomalyService struct {
	client *Client
}

// Recent returns the most recently ingested cost anomalies, newest first
func (s *AnomalyService) Recent(ctx context.Context, limit int) ([]Anomaly, error) {
	var anomalies []Anomaly
	path := "/api/v1/anomalies"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	if err := s.client.doRequest(ctx, "GET", path, nil, &anomalies); err != nil {
		return nil, err
	}
	return anomalies, nil
}
