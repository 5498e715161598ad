package client

import (
	"context"
	"fmt"
	"net/url"
)

// AnalyticsService reads per-user usage and cost profiles
type AnalyticsService struct {
	client *Client
}

// Summary returns aggregate analytics counters
func (s *AnalyticsService) Summary(ctx context.Context) (map[string]interface{}, error) {
	var summary map[string]interface{}
	if err := s.client.doRequest(ctx, "GET", "/api/v1/analytics/summary", nil, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// TopByUsage returns users ranked by activity score
func (s *AnalyticsService) TopByUsage(ctx context.Context, limit int) ([]UserMetrics, error) {
	var users []UserMetrics
	path := "/api/v1/analytics/users/top-usage"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	if err := s.client.doRequest(ctx, "GET", path, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// TopByCost returns users ranked by attributed spend
func (s *AnalyticsService) TopByCost(ctx context.Context, limit int) ([]CostAttribution, error) {
	var costs []CostAttribution
	path := "/api/v1/analytics/users/top-cost"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	if err := s.client.doRequest(ctx, "GET", path, nil, &costs); err != nil {
		return nil, err
	}
	return costs, nil
}

// Inactive returns users with no recorded activity in the last days days
func (s *AnalyticsService) Inactive(ctx context.Context, days int) ([]UserMetrics, error) {
	var users []UserMetrics
	path := "/api/v1/analytics/users/inactive"
	if days > 0 {
		path = fmt.Sprintf("%s?days=%d", path, days)
	}
	if err := s.client.doRequest(ctx, "GET", path, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// User returns the combined usage and cost profile for one user
func (s *AnalyticsService) User(ctx context.Context, userID string) (*UserDetail, error) {
	var detail UserDetail
	path := "/api/v1/analytics/users/" + url.PathEscape(userID)
	if err := s.client.doRequest(ctx, "GET", path, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}
