package agent

import (
	"context"
	"sync"

	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/pkg/metrics"
)

// Orchestrator owns the registry of agents and starts/stops them as a unit.
// It is purely a composition root; detection and aggregation live in the
// agents' check functions.
type Orchestrator struct {
	logger *logger.Logger

	mu     sync.Mutex
	agents []*Agent
	byName map[string]*Agent
	// start errors recorded per agent from the last StartAll
	startErrs map[string]error
}

// NewOrchestrator creates an empty orchestrator.
func NewOrchestrator(log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		logger:    log.WithComponent("orchestrator"),
		byName:    make(map[string]*Agent),
		startErrs: make(map[string]error),
	}
}

// Register adds an agent to the registry. Registration order is preserved
// for StartAll/StopAll.
func (o *Orchestrator) Register(a *Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.byName[a.Name()]; exists {
		o.logger.WithFields(map[string]interface{}{
			"agent": a.Name(),
		}).Warn("Agent already registered, ignoring")
		return
	}
	o.agents = append(o.agents, a)
	o.byName[a.Name()] = a
}

// Get returns a registered agent by name.
func (o *Orchestrator) Get(name string) (*Agent, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.byName[name]
	return a, ok
}

// StartAll starts every registered agent. Individual start failures are
// recorded and returned but do not abort the remaining agents.
func (o *Orchestrator) StartAll(ctx context.Context) map[string]error {
	o.mu.Lock()
	agents := make([]*Agent, len(o.agents))
	copy(agents, o.agents)
	o.mu.Unlock()

	failed := make(map[string]error)
	started := 0
	for _, a := range agents {
		if err := a.Start(ctx); err != nil {
			failed[a.Name()] = err
			o.logger.WithFields(map[string]interface{}{
				"agent": a.Name(),
			}).ErrorWithErr(err, "Failed to start agent")
			continue
		}
		started++
	}

	o.mu.Lock()
	o.startErrs = failed
	o.mu.Unlock()

	metrics.SetAgentsRunning(started)
	o.logger.WithFields(map[string]interface{}{
		"started": started,
		"failed":  len(failed),
	}).Info("Agents started")

	return failed
}

// StopAll stops every registered agent, waiting for in-flight cycles.
func (o *Orchestrator) StopAll() {
	o.mu.Lock()
	agents := make([]*Agent, len(o.agents))
	copy(agents, o.agents)
	o.mu.Unlock()

	for _, a := range agents {
		a.Stop()
	}

	metrics.SetAgentsRunning(0)
	o.logger.Info("All agents stopped")
}

// StatusAll returns a snapshot of every registered agent keyed by name.
// Agents that failed their last start carry the failure as LastError.
func (o *Orchestrator) StatusAll() map[string]State {
	o.mu.Lock()
	agents := make([]*Agent, len(o.agents))
	copy(agents, o.agents)
	startErrs := make(map[string]error, len(o.startErrs))
	for k, v := range o.startErrs {
		startErrs[k] = v
	}
	o.mu.Unlock()

	out := make(map[string]State, len(agents))
	for _, a := range agents {
		s := a.Status()
		if err, ok := startErrs[a.Name()]; ok && !s.Running && s.LastError == "" {
			s.LastError = err.Error()
		}
		out[a.Name()] = s
	}
	return out
}
