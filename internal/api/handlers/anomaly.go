package handlers

import (
	"net/http"

	"github.com/awstrack/awstrack/internal/detector"
	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/pkg/utils"
)

// AnomalyHandler serves the cost detector's recent findings.
type AnomalyHandler struct {
	detector *detector.Cost
	logger   *logger.Logger
}

func NewAnomalyHandler(d *detector.Cost, log *logger.Logger) *AnomalyHandler {
	return &AnomalyHandler{detector: d, logger: log}
}

// Recent returns the most recently ingested cost anomalies, newest first.
func (h *AnomalyHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	utils.WriteSuccess(w, http.StatusOK, h.detector.RecentAnomalies(limit))
}
