package agent

import (
	"context"
	"sync"
	"time"

	"github.com/awstrack/awstrack/internal/pkg/errors"
	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/pkg/metrics"
)

// CheckFunc is one monitoring cycle. It fetches new records from the agent's
// external source, classifies them and forwards the results. A failed cycle
// never terminates the loop.
type CheckFunc func(ctx context.Context) error

// StatusFunc supplies agent-specific status fields for the state snapshot.
type StatusFunc func() map[string]interface{}

// State is a point-in-time snapshot of an agent.
type State struct {
	Name          string                 `json:"name"`
	Running       bool                   `json:"running"`
	Interval      time.Duration          `json:"interval"`
	LastCheckTime time.Time              `json:"last_check_time"`
	LastError     string                 `json:"last_error,omitempty"`
	Status        map[string]interface{} `json:"status,omitempty"`
}

// Agent runs a single monitor as an independently scheduled periodic task.
// The loop sleeps between cycles and observes cancellation only at the cycle
// boundary, so a cycle is never aborted mid-execution.
type Agent struct {
	name     string
	interval time.Duration
	check    CheckFunc
	status   StatusFunc
	logger   *logger.Logger

	// stateMu guards the snapshot fields below. It is never held across a
	// cycle, so Status() does not block the running loop.
	stateMu   sync.Mutex
	running   bool
	lastCheck time.Time
	lastErr   error
	cancel    context.CancelFunc
	done      chan struct{}

	// cycleMu enforces the no-overlap invariant: at most one in-flight
	// execution of the loop body, whether driven by the ticker or RunOnce.
	cycleMu sync.Mutex
}

// Option configures an Agent.
type Option func(*Agent)

// WithStatusFunc attaches agent-specific status fields to snapshots.
func WithStatusFunc(fn StatusFunc) Option {
	return func(a *Agent) { a.status = fn }
}

// New creates an agent that invokes check every interval once started.
func New(name string, interval time.Duration, check CheckFunc, log *logger.Logger, opts ...Option) *Agent {
	a := &Agent{
		name:     name,
		interval: interval,
		check:    check,
		logger:   log.WithComponent(name),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the agent name.
func (a *Agent) Name() string {
	return a.name
}

// Start transitions Stopped -> Running and spawns the periodic loop.
// It fails if the agent is misconfigured or already running.
func (a *Agent) Start(ctx context.Context) error {
	if a.interval <= 0 {
		return errors.Configuration("agent " + a.name + ": interval must be positive")
	}
	if a.check == nil {
		return errors.Configuration("agent " + a.name + ": no check function registered")
	}

	a.stateMu.Lock()
	if a.running {
		a.stateMu.Unlock()
		return errors.Configuration("agent " + a.name + ": already running")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	a.running = true
	a.cancel = cancel
	a.done = make(chan struct{})
	done := a.done
	a.stateMu.Unlock()

	a.logger.WithFields(map[string]interface{}{
		"interval": a.interval.String(),
	}).Info("Agent started")

	go a.loop(loopCtx, done)
	return nil
}

// Stop signals cancellation and waits for the loop to finish its current
// cycle. Safe to call on a stopped agent.
func (a *Agent) Stop() {
	a.stateMu.Lock()
	if !a.running {
		a.stateMu.Unlock()
		return
	}
	cancel, done := a.cancel, a.done
	a.stateMu.Unlock()

	cancel()
	<-done

	a.logger.Info("Agent stopped")
}

// Status returns a snapshot of the agent state without blocking the loop.
func (a *Agent) Status() State {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	s := State{
		Name:          a.name,
		Running:       a.running,
		Interval:      a.interval,
		LastCheckTime: a.lastCheck,
	}
	if a.lastErr != nil {
		s.LastError = a.lastErr.Error()
	}
	if a.status != nil {
		s.Status = a.status()
	}
	return s
}

// RunOnce executes a single cycle outside the timer, honoring the no-overlap
// guard: if a cycle is already in flight this is a no-op.
func (a *Agent) RunOnce(ctx context.Context) {
	if !a.cycleMu.TryLock() {
		return
	}
	defer a.cycleMu.Unlock()
	a.runCycle(ctx)
}

func (a *Agent) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		a.stateMu.Lock()
		a.running = false
		a.stateMu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	// Initial cycle on start, then every interval.
	a.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			a.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *Agent) runCycle(ctx context.Context) {
	start := time.Now()
	err := a.check(ctx)
	metrics.RecordCycle(a.name, err, time.Since(start))

	a.stateMu.Lock()
	a.lastCheck = time.Now()
	a.lastErr = err
	a.stateMu.Unlock()

	if err != nil {
		if errors.IsTransientFetch(err) {
			a.logger.ErrorWithErr(err, "Source unavailable, retrying next cycle")
		} else {
			a.logger.ErrorWithErr(err, "Check cycle failed")
		}
	}
}
