package handlers

import (
	"net/http"

	"github.com/awstrack/awstrack/internal/domain/alert"
	"github.com/awstrack/awstrack/internal/pkg/errors"
	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/pkg/utils"
)

// AlertHandler serves the dispatched-alert history.
type AlertHandler struct {
	repo   alert.Repository
	logger *logger.Logger
}

func NewAlertHandler(repo alert.Repository, log *logger.Logger) *AlertHandler {
	return &AlertHandler{repo: repo, logger: log}
}

// List returns recently dispatched alerts, newest first.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		utils.WriteErrorMessage(w, http.StatusNotImplemented, "NO_HISTORY", "Alert history is not enabled")
		return
	}
	limit := queryInt(r, "limit", 50)
	alerts, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to list alerts")
		utils.WriteError(w, errors.Internal("Failed to list alerts", err))
		return
	}
	utils.WriteSuccess(w, http.StatusOK, alerts)
}
