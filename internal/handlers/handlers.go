package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"remindmail/internal/models"
	"remindmail/internal/services"

	"github.com/gin-gonic/gin"
)

// ReminderStore is the part of the reminder store the HTTP layer uses
type ReminderStore interface {
	AddReminder(ctx context.Context, in models.NewReminder) (*models.Reminder, error)
	UpdateReminder(ctx context.Context, id string, update models.ReminderUpdate) (*models.Reminder, error)
	GetAllReminders(ctx context.Context) []models.Reminder
	ListSweepRuns(ctx context.Context, limit int) ([]models.SweepRun, error)
	Ping(ctx context.Context) error
}

// Handler serves the reminder API
type Handler struct {
	store       ReminderStore
	mailer      services.Mailer
	sweeper     services.SweepRunner
	defaultZone *time.Location
}

// New wires the handler. Submissions without a time zone are read in defaultZone.
func New(store ReminderStore, mailer services.Mailer, sweeper services.SweepRunner, defaultZone *time.Location) *Handler {
	if defaultZone == nil {
		defaultZone = time.UTC
	}
	return &Handler{
		store:       store,
		mailer:      mailer,
		sweeper:     sweeper,
		defaultZone: defaultZone,
	}
}

// handleError provides a consistent way to handle and log errors
func handleError(c *gin.Context, status int, message string, err error) {
	log.Printf("Error: %v", err)
	c.JSON(status, gin.H{"success": false, "message": message})
}

// HomeHandler handles requests to the root path "/"
func HomeHandler(c *gin.Context) {
	c.String(http.StatusOK, "Reminder service is running")
}

// HealthHandler reports whether the database answers
func (h *Handler) HealthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		handleError(c, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	c.String(http.StatusOK, "OK")
}
