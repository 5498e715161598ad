package client

import (
	"context"
	"fmt"
)

// AlertService reads the dispatched-alert history
type AlertService struct {
	client *Client
}

// ListRecent returns recently dispatched alerts, newest first
func (s *AlertService) ListRecent(ctx context.Context, limit int) ([]Alert, error) {
	var alerts []Alert
	path := "/api/v1/alerts"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	if err := s.client.doRequest(ctx, "GET", path, nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}
