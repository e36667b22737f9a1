package services

import (
	"context"
	"log"
	"time"

	"remindmail/internal/metrics"
	"remindmail/internal/models"
	"remindmail/internal/utils"

	"gorm.io/datatypes"
)

// confirmationGrace keeps the sweep from racing a submission that is still sending its confirmation
const confirmationGrace = time.Minute

// maxConfirmationAttempts caps the resends a sweep makes for one reminder
const maxConfirmationAttempts = 5

// ReminderRepository is the part of the reminder store the sweep needs
type ReminderRepository interface {
	GetPendingReminders(ctx context.Context) []models.Reminder
	GetUnconfirmedReminders(ctx context.Context) []models.Reminder
	ClaimReminder(ctx context.Context, id string) (bool, error)
	ClaimConfirmation(ctx context.Context, id string, seenAttempts, maxAttempts int) (bool, error)
	UpdateReminder(ctx context.Context, id string, update models.ReminderUpdate) (*models.Reminder, error)
	RecordSweepRun(ctx context.Context, run *models.SweepRun) error
}

// Mailer sends the two kinds of reminder email
type Mailer interface {
	SendConfirmationEmail(ctx context.Context, email ReminderEmail) error
	SendReminderEmail(ctx context.Context, email ReminderEmail) error
}

// SweepReport is what one sweep did
type SweepReport struct {
	StartedAt     time.Time
	Results       []models.SweepResult
	Confirmations []models.SweepResult
}

// Sent counts the reminders delivered in this sweep
func (r SweepReport) Sent() int {
	sent := 0
	for _, result := range r.Results {
		if result.Success {
			sent++
		}
	}
	return sent
}

// Sweeper sends every due reminder once
type Sweeper struct {
	store              ReminderRepository
	mailer             Mailer
	retryConfirmations bool
	now                func() time.Time
}

func NewSweeper(store ReminderRepository, mailer Mailer, retryConfirmations bool) *Sweeper {
	return &Sweeper{
		store:              store,
		mailer:             mailer,
		retryConfirmations: retryConfirmations,
		now:                time.Now,
	}
}

// Run processes the due reminders one by one. A failure on one reminder is
// recorded in its result and never stops the others.
func (s *Sweeper) Run(ctx context.Context) SweepReport {
	report := SweepReport{StartedAt: s.now().UTC()}
	metrics.SweepRuns.Inc()
	log.Printf("Reminder sweep running at %s", report.StartedAt.Format(time.RFC3339))

	pending := s.store.GetPendingReminders(ctx)
	metrics.SweepDue.Set(float64(len(pending)))

	report.Results = make([]models.SweepResult, 0, len(pending))
	for _, reminder := range pending {
		result, claimed := s.deliverReminder(ctx, reminder)
		if !claimed {
			continue
		}
		report.Results = append(report.Results, result)
	}

	if s.retryConfirmations {
		report.Confirmations = s.resendConfirmations(ctx)
	}

	s.record(ctx, report)
	return report
}

// deliverReminder claims, sends and marks a single reminder.
// It reports false when another sweep already owns the reminder.
func (s *Sweeper) deliverReminder(ctx context.Context, reminder models.Reminder) (models.SweepResult, bool) {
	result := models.SweepResult{ID: reminder.ID, Email: reminder.Email}

	claimed, err := s.store.ClaimReminder(ctx, reminder.ID)
	if err != nil {
		log.Printf("Error claiming reminder %s: %v", reminder.ID, err)
		result.Error = err.Error()
		return result, true
	}
	if !claimed {
		log.Printf("Reminder %s is being handled by another sweep, skipping", reminder.ID)
		return result, false
	}

	if err := s.mailer.SendReminderEmail(ctx, localEmail(reminder)); err != nil {
		log.Printf("Failed to send reminder email to %s: %v", reminder.Email, err)
		result.Error = err.Error()
		if _, releaseErr := s.store.UpdateReminder(ctx, reminder.ID, models.ReleaseClaim()); releaseErr != nil {
			log.Printf("Error releasing claim on reminder %s: %v", reminder.ID, releaseErr)
		}
		return result, true
	}

	result.Success = true
	if _, err := s.store.UpdateReminder(ctx, reminder.ID, models.MarkReminded()); err != nil {
		// the claim lease runs out and a later sweep sends it again
		log.Printf("Reminder %s was sent but could not be marked: %v", reminder.ID, err)
		result.Error = err.Error()
		return result, true
	}

	log.Printf("Sent reminder email to %s for %s %s UTC", reminder.Email, reminder.Date, reminder.Time)
	return result, true
}

// resendConfirmations retries confirmation emails that failed at submission time.
// A reminder gets at most maxConfirmationAttempts resends and none once it is due.
func (s *Sweeper) resendConfirmations(ctx context.Context) []models.SweepResult {
	results := []models.SweepResult{}
	now := s.now()
	cutoff := now.Add(-confirmationGrace)

	for _, reminder := range s.store.GetUnconfirmedReminders(ctx) {
		if reminder.SentReminder || reminder.CreatedAt.After(cutoff) {
			continue
		}
		if reminder.ConfirmationAttempts >= maxConfirmationAttempts {
			continue
		}
		if at, err := reminder.At(); err != nil || !at.After(now) {
			continue
		}

		claimed, err := s.store.ClaimConfirmation(ctx, reminder.ID, reminder.ConfirmationAttempts, maxConfirmationAttempts)
		if err != nil {
			log.Printf("Error claiming confirmation for reminder %s: %v", reminder.ID, err)
			continue
		}
		if !claimed {
			continue
		}

		result := models.SweepResult{ID: reminder.ID, Email: reminder.Email}
		if err := s.mailer.SendConfirmationEmail(ctx, localEmail(reminder)); err != nil {
			log.Printf("Failed to resend confirmation email to %s (attempt %d of %d): %v",
				reminder.Email, reminder.ConfirmationAttempts+1, maxConfirmationAttempts, err)
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		result.Success = true
		if _, err := s.store.UpdateReminder(ctx, reminder.ID, models.MarkConfirmed()); err != nil {
			log.Printf("Error updating reminder %s confirmation status: %v", reminder.ID, err)
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// record stores the sweep when it processed a reminder or delivered a confirmation.
// Failed confirmation resends alone are only logged.
func (s *Sweeper) record(ctx context.Context, report SweepReport) {
	confirmations := 0
	for _, result := range report.Confirmations {
		if result.Success {
			confirmations++
		}
	}
	if len(report.Results) == 0 && confirmations == 0 {
		return
	}
	sent := report.Sent()

	run := &models.SweepRun{
		StartedAt:     report.StartedAt,
		FinishedAt:    s.now().UTC(),
		Processed:     len(report.Results),
		Sent:          sent,
		Failed:        len(report.Results) - sent,
		Confirmations: confirmations,
		Results:       datatypes.JSONSlice[models.SweepResult](report.Results),
	}
	if err := s.store.RecordSweepRun(ctx, run); err != nil {
		log.Printf("Error recording sweep run: %v", err)
	}
}

// localEmail renders a stored reminder in the zone it was submitted from
func localEmail(reminder models.Reminder) ReminderEmail {
	email := ReminderEmail{
		Email:    reminder.Email,
		Date:     reminder.Date,
		Time:     reminder.Time,
		TimeZone: "UTC",
	}

	loc, err := utils.ResolveLocation(reminder.TimeZone, time.UTC)
	if err != nil {
		log.Printf("Reminder %s has unusable time zone %q, showing UTC: %v", reminder.ID, reminder.TimeZone, err)
		return email
	}
	date, clock, err := utils.UTCToLocal(reminder.Date, reminder.Time, loc)
	if err != nil {
		log.Printf("Reminder %s has malformed date/time %s %s: %v", reminder.ID, reminder.Date, reminder.Time, err)
		return email
	}

	email.Date = date
	email.Time = clock
	email.TimeZone = loc.String()
	return email
}
