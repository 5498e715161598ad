package handlers

import (
	"net/http"

	"github.com/awstrack/awstrack/internal/detector"
	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/pkg/utils"
)

// ActivityHandler serves the activity detector's recent findings.
type ActivityHandler struct {
	detector *detector.CloudTrail
	logger   *logger.Logger
}

func NewActivityHandler(d *detector.CloudTrail, log *logger.Logger) *ActivityHandler {
	return &ActivityHandler{detector: d, logger: log}
}

// RecentFlagged returns the most recently flagged events, newest first.
func (h *ActivityHandler) RecentFlagged(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	utils.WriteSuccess(w, http.StatusOK, h.detector.RecentFlagged(limit))
}
