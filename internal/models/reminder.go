package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReminderStatus tracks where a reminder is in its delivery lifecycle
type ReminderStatus string

const (
	ReminderPending  ReminderStatus = "pending"
	ReminderInFlight ReminderStatus = "in_flight"
	ReminderSent     ReminderStatus = "sent"
)

// Layouts used for the stored UTC date and time-of-day columns
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Reminder is a request to email someone at a given instant.
// Date and Time always hold the UTC calendar date and time-of-day.
type Reminder struct {
	ID                   string         `gorm:"primaryKey;size:36" json:"id"`
	Email                string         `gorm:"size:255;not null;index" json:"email"`
	Date                 string         `gorm:"column:date;size:10;not null" json:"date"`
	Time                 string         `gorm:"column:time;size:5;not null" json:"time"`
	TimeZone             string         `gorm:"size:64;not null;default:UTC" json:"timeZone"`
	SentConfirmation     bool           `gorm:"not null;default:false;index" json:"sentConfirmation"`
	ConfirmationAttempts int            `gorm:"not null;default:0" json:"confirmationAttempts"`
	SentReminder         bool           `gorm:"not null;default:false;index" json:"sentReminder"`
	ReminderStatus       ReminderStatus `gorm:"size:16;not null;default:pending;index" json:"reminderStatus"`
	ClaimedAt            *time.Time     `json:"claimedAt,omitempty"`
	CreatedAt            time.Time      `gorm:"not null" json:"createdAt"`
}

// BeforeCreate assigns the identifier and initial delivery state
func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.ReminderStatus == "" {
		r.ReminderStatus = ReminderPending
	}
	r.SentConfirmation = false
	r.ConfirmationAttempts = 0
	r.SentReminder = false
	return nil
}

// At returns the instant the reminder is due, in UTC
func (r *Reminder) At() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.Time, time.UTC)
}

// TableName specifies the table name for the Reminder model
func (Reminder) TableName() string {
	return "reminders"
}

// NewReminder holds the fields the store needs to create a reminder
type NewReminder struct {
	Email    string
	Date     string // UTC, YYYY-MM-DD
	Time     string // UTC, HH:MM
	TimeZone string
}

// ReminderUpdate is a partial update of the delivery flags.
// Nil fields are left untouched.
type ReminderUpdate struct {
	SentConfirmation *bool
	SentReminder     *bool
}

// Empty reports whether the update carries no fields
func (u ReminderUpdate) Empty() bool {
	return u.SentConfirmation == nil && u.SentReminder == nil
}

// MarkConfirmed is the update applied after a confirmation email goes out
func MarkConfirmed() ReminderUpdate {
	sent := true
	return ReminderUpdate{SentConfirmation: &sent}
}

// MarkReminded is the update applied after a reminder email goes out
func MarkReminded() ReminderUpdate {
	sent := true
	return ReminderUpdate{SentReminder: &sent}
}

// ReleaseClaim returns an in-flight reminder to the pending state
func ReleaseClaim() ReminderUpdate {
	sent := false
	return ReminderUpdate{SentReminder: &sent}
}

// CreateReminderRequest represents the data submitted to schedule a reminder.
// Date and Time are in the submitter's local zone.
type CreateReminderRequest struct {
	Email    string `json:"email" binding:"required"`
	Date     string `json:"date" binding:"required"`
	Time     string `json:"time" binding:"required"`
	TimeZone string `json:"timeZone"`
}
