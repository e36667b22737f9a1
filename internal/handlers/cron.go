package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"remindmail/internal/models"

	"github.com/gin-gonic/gin"
)

const sweepTimeout = 5 * time.Minute

type sweepResponse struct {
	Success       bool                 `json:"success"`
	Message       string               `json:"message"`
	Results       []models.SweepResult `json:"results"`
	Confirmations []models.SweepResult `json:"confirmations,omitempty"`
	Timestamp     string               `json:"timestamp"`
}

// RunCron sends every due reminder. It is called by the external scheduler
// and answers GET and POST alike.
func (h *Handler) RunCron(c *gin.Context) {
	// a scheduler that hangs up early must not cut a sweep in half
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), sweepTimeout)
	defer cancel()

	report := h.sweeper.Run(ctx)

	message := "No pending reminders"
	if n := len(report.Results); n > 0 {
		message = fmt.Sprintf("Processed %d reminders", n)
	}
	results := report.Results
	if results == nil {
		results = []models.SweepResult{}
	}

	c.JSON(http.StatusOK, sweepResponse{
		Success:       true,
		Message:       message,
		Results:       results,
		Confirmations: report.Confirmations,
		Timestamp:     report.StartedAt.UTC().Format(time.RFC3339),
	})
}

// ListSweepRuns returns recent sweeps, newest first
func (h *Handler) ListSweepRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			handleError(c, http.StatusBadRequest, "limit must be a positive integer", fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	runs, err := h.store.ListSweepRuns(c.Request.Context(), limit)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve sweep runs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "runs": runs})
}
