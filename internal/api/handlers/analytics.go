package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/awstrack/awstrack/internal/pkg/errors"
	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/pkg/utils"
	"github.com/awstrack/awstrack/internal/services"
)

// AnalyticsHandler serves per-user usage and cost profiles.
type AnalyticsHandler struct {
	aggregator *services.Aggregator
	logger     *logger.Logger
}

func NewAnalyticsHandler(aggregator *services.Aggregator, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{aggregator: aggregator, logger: log}
}

// TopByUsage returns users ranked by activity score.
func (h *AnalyticsHandler) TopByUsage(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	utils.WriteSuccess(w, http.StatusOK, h.aggregator.TopUsersByUsage(limit))
}

// TopByCost returns users ranked by attributed spend.
func (h *AnalyticsHandler) TopByCost(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	utils.WriteSuccess(w, http.StatusOK, h.aggregator.TopUsersByCost(limit))
}

// Inactive returns users with no recorded activity in the given window.
func (h *AnalyticsHandler) Inactive(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	utils.WriteSuccess(w, http.StatusOK, h.aggregator.InactiveUsers(days))
}

// User returns the combined usage and cost profile for one user.
func (h *AnalyticsHandler) User(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	detail, err := h.aggregator.UserDetail(userID)
	if err != nil {
		var appErr *errors.AppError
		if errors.AsAppError(err, &appErr) {
			utils.WriteError(w, appErr)
			return
		}
		h.logger.ErrorWithErr(err, "Failed to load user profile")
		utils.WriteError(w, errors.Internal("Failed to load user profile", err))
		return
	}
	utils.WriteSuccess(w, http.StatusOK, detail)
}

// Summary returns aggregate analytics counters.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, h.aggregator.StatusFields())
}
