package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/awstrack/awstrack/internal/agent"
	"github.com/awstrack/awstrack/internal/pkg/errors"
	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/pkg/utils"
)

// AgentHandler exposes the monitoring agents over HTTP.
type AgentHandler struct {
	orchestrator *agent.Orchestrator
	// runCtx is the process-lifetime context agents restarted over HTTP
	// attach to, so an API-triggered start outlives the request.
	runCtx context.Context
	logger *logger.Logger
}

func NewAgentHandler(orchestrator *agent.Orchestrator, runCtx context.Context, log *logger.Logger) *AgentHandler {
	return &AgentHandler{
		orchestrator: orchestrator,
		runCtx:       runCtx,
		logger:       log,
	}
}

// List returns the state of every registered agent.
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, h.orchestrator.StatusAll())
}

// Get returns one agent's state.
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a, ok := h.orchestrator.Get(name)
	if !ok {
		utils.WriteError(w, errors.NotFound("Agent"))
		return
	}
	utils.WriteSuccess(w, http.StatusOK, a.Status())
}

// Start starts a stopped agent.
func (h *AgentHandler) Start(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a, ok := h.orchestrator.Get(name)
	if !ok {
		utils.WriteError(w, errors.NotFound("Agent"))
		return
	}
	if err := a.Start(h.runCtx); err != nil {
		h.logger.WithError(err).With("agent", name).Warn("agent start rejected")
		utils.WriteError(w, errors.New(errors.ErrCodeConfiguration, err.Error(), http.StatusConflict))
		return
	}
	utils.WriteSuccess(w, http.StatusOK, a.Status())
}

// Stop stops a running agent and waits for the in-flight cycle.
func (h *AgentHandler) Stop(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a, ok := h.orchestrator.Get(name)
	if !ok {
		utils.WriteError(w, errors.NotFound("Agent"))
		return
	}
	a.Stop()
	utils.WriteSuccess(w, http.StatusOK, a.Status())
}

// RunOnce triggers a single out-of-schedule cycle.
func (h *AgentHandler) RunOnce(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a, ok := h.orchestrator.Get(name)
	if !ok {
		utils.WriteError(w, errors.NotFound("Agent"))
		return
	}
	a.RunOnce(r.Context())
	utils.WriteSuccess(w, http.StatusOK, a.Status())
}
