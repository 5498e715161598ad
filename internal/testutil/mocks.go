package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/awstrack/awstrack/internal/domain/activity"
	"github.com/awstrack/awstrack/internal/domain/alert"
	"github.com/awstrack/awstrack/internal/domain/anomaly"
)

// MockActivitySource is a mock implementation of activity.Source. Each call
// to FetchSince pops the next batch; when the batches are exhausted it
// returns an empty slice.
type MockActivitySource struct {
	Batches    [][]activity.Event
	FetchError error

	mu     sync.Mutex
	calls  int
	Sinces []time.Time
}

func (m *MockActivitySource) FetchSince(_ context.Context, since time.Time) ([]activity.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sinces = append(m.Sinces, since)
	if m.FetchError != nil {
		return nil, m.FetchError
	}
	if m.calls >= len(m.Batches) {
		return nil, nil
	}
	batch := m.Batches[m.calls]
	m.calls++
	return batch, nil
}

func (m *MockActivitySource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockAnomalySource is a mock implementation of anomaly.Source.
type MockAnomalySource struct {
	Batches    [][]anomaly.Record
	FetchError error

	mu    sync.Mutex
	calls int
}

func (m *MockAnomalySource) FetchSince(_ context.Context, _ time.Time) ([]anomaly.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchError != nil {
		return nil, m.FetchError
	}
	if m.calls >= len(m.Batches) {
		return nil, nil
	}
	batch := m.Batches[m.calls]
	m.calls++
	return batch, nil
}

// MockNotifier is a mock implementation of alert.Notifier.
type MockNotifier struct {
	ChannelName string
	SendError   error

	mu   sync.Mutex
	Sent []*alert.Alert
}

func (m *MockNotifier) Name() string {
	return m.ChannelName
}

func (m *MockNotifier) Send(_ context.Context, a *alert.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendError != nil {
		return m.SendError
	}
	m.Sent = append(m.Sent, a)
	return nil
}

func (m *MockNotifier) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// MockAlertRepository is a mock implementation of alert.Repository.
type MockAlertRepository struct {
	SaveError error

	mu     sync.Mutex
	Alerts []*alert.Alert
}

func (m *MockAlertRepository) Save(_ context.Context, a *alert.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Alerts = append(m.Alerts, a)
	return nil
}

func (m *MockAlertRepository) ListRecent(_ context.Context, limit int) ([]*alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.Alerts)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*alert.Alert, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.Alerts[i])
	}
	return out, nil
}

// MockAlertSink collects dispatched alerts for detector tests.
type MockAlertSink struct {
	DispatchError error

	mu     sync.Mutex
	Alerts []*alert.Alert
}

func (m *MockAlertSink) Dispatch(_ context.Context, a *alert.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DispatchError != nil {
		return m.DispatchError
	}
	m.Alerts = append(m.Alerts, a)
	return nil
}

func (m *MockAlertSink) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Alerts)
}

// MockActivitySink records ingested events for detector tests.
type MockActivitySink struct {
	IngestError error

	mu       sync.Mutex
	Events   []*activity.Event
	HighRisk []bool
}

func (m *MockActivitySink) IngestActivity(_ context.Context, e *activity.Event, highRisk bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IngestError != nil {
		return m.IngestError
	}
	m.Events = append(m.Events, e)
	m.HighRisk = append(m.HighRisk, highRisk)
	return nil
}

// MockCostSink records ingested cost records for detector tests.
type MockCostSink struct {
	IngestError error

	mu      sync.Mutex
	Records []*anomaly.Record
}

func (m *MockCostSink) IngestCost(_ context.Context, r *anomaly.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IngestError != nil {
		return m.IngestError
	}
	m.Records = append(m.Records, r)
	return nil
}

// MockOwnerResolver maps resource IDs to owners from a fixed table.
type MockOwnerResolver struct {
	Owners       map[string]string
	ResolveError error

	mu    sync.Mutex
	Calls []string
}

func (m *MockOwnerResolver) ResolveOwner(_ context.Context, resourceID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, resourceID)
	if m.ResolveError != nil {
		return "", m.ResolveError
	}
	return m.Owners[resourceID], nil
}

// MockDedup is a mock implementation of cache.Dedup backed by a plain map.
type MockDedup struct {
	SeenError error

	mu   sync.Mutex
	keys map[string]struct{}
}

func (m *MockDedup) Seen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SeenError != nil {
		return false, m.SeenError
	}
	if m.keys == nil {
		m.keys = make(map[string]struct{})
	}
	if _, ok := m.keys[key]; ok {
		return true, nil
	}
	m.keys[key] = struct{}{}
	return false, nil
}
