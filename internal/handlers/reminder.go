package handlers

import (
	"errors"
	"log"
	"net/http"

	"remindmail/internal/database"
	"remindmail/internal/models"
	"remindmail/internal/services"
	"remindmail/internal/utils"

	"github.com/gin-gonic/gin"
)

// CreateReminder schedules a reminder. Date and time arrive in the submitter's zone
// and are stored as UTC; the confirmation email repeats them as submitted.
func (h *Handler) CreateReminder(c *gin.Context) {
	var req models.CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		verr := bindingError(err)
		handleError(c, http.StatusBadRequest, verr.Message, err)
		return
	}
	if verr := validateReminderRequest(&req); verr != nil {
		handleError(c, http.StatusBadRequest, verr.Message, verr)
		return
	}

	loc, err := utils.ResolveLocation(req.TimeZone, h.defaultZone)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid time zone", err)
		return
	}
	utcDate, utcTime, err := utils.LocalToUTC(req.Date, req.Time, loc)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid date or time", err)
		return
	}
	log.Printf("Converting reminder time: Local %s %s (%s) -> UTC %s %s", req.Date, req.Time, loc, utcDate, utcTime)

	ctx := c.Request.Context()
	reminder, err := h.store.AddReminder(ctx, models.NewReminder{
		Email:    req.Email,
		Date:     utcDate,
		Time:     utcTime,
		TimeZone: loc.String(),
	})
	if err != nil {
		var storageErr *database.StorageError
		if errors.As(err, &storageErr) && storageErr.Kind == database.StorageConnection {
			message := "Database connection error. Please try again later."
			if storageErr.Timeout() {
				message = "Database connection timed out. Please try again later."
			}
			handleError(c, http.StatusServiceUnavailable, message, err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Server error", err)
		return
	}

	message := "Reminder set successfully. Confirmation email sent."
	confirmation := services.ReminderEmail{
		Email:    req.Email,
		Date:     req.Date,
		Time:     req.Time,
		TimeZone: loc.String(),
	}
	if err := h.mailer.SendConfirmationEmail(ctx, confirmation); err != nil {
		// the reminder stays; the sweep retries the confirmation
		log.Printf("Failed to send confirmation email for reminder %s: %v", reminder.ID, err)
		message = "Reminder set successfully, but the confirmation email could not be sent."
	} else if _, err := h.store.UpdateReminder(ctx, reminder.ID, models.MarkConfirmed()); err != nil {
		log.Printf("Error updating reminder %s confirmation status: %v", reminder.ID, err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    message,
		"reminderId": reminder.ID,
	})
}

// ListReminders returns every stored reminder
func (h *Handler) ListReminders(c *gin.Context) {
	reminders := h.store.GetAllReminders(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"count":     len(reminders),
		"reminders": reminders,
	})
}
