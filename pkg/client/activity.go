package client

import (
	"context"
	"fmt"
)

// ActivityService reads the activity detector's recent findings
type ActivityService struct {
	client *Client
}

// RecentFlagged returns the most recently flagged events, newest first
func (s *ActivityService) RecentFlagged(ctx context.Context, limit int) ([]ActivityEvent, error) {
	var events []ActivityEvent
	path := "/api/v1/activity/flagged"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	if err := s.client.doRequest(ctx, "GET", path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}
