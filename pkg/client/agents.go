package client

import (
	"context"
	"fmt"
)

// AgentService controls the monitoring agents
type AgentService struct {
	client *Client
}

// List returns the state of every registered agent, keyed by name
func (s *AgentService) List(ctx context.Context) (map[string]AgentState, error) {
	var states map[string]AgentState
	if err := s.client.doRequest(ctx, "GET", "/api/v1/agents/", nil, &states); err != nil {
		return nil, err
	}
	return states, nil
}

// Get returns one agent's state
func (s *AgentService) Get(ctx context.Context, name string) (*AgentState, error) {
	var state AgentState
	if err := s.client.doRequest(ctx, "GET", fmt.Sprintf("/api/v1/agents/%s", name), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Start starts a stopped agent
func (s *AgentService) Start(ctx context.Context, name string) (*AgentState, error) {
	var state AgentState
	if err := s.client.doRequest(ctx, "POST", fmt.Sprintf("/api/v1/agents/%s/start", name), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Stop stops a running agent
func (s *AgentService) Stop(ctx context.Context, name string) (*AgentState, error) {
	var state AgentState
	if err := s.client.doRequest(ctx, "POST", fmt.Sprintf("/api/v1/agents/%s/stop", name), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// RunOnce triggers a single out-of-schedule cycle
func (s *AgentService) RunOnce(ctx context.Context, name string) (*AgentState, error) {
	var state AgentState
	if err := s.client.doRequest(ctx, "POST", fmt.Sprintf("/api/v1/agents/%s/run", name), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}
