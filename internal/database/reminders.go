package database

import (
	"context"
	"log"
	"time"

	"remindmail/internal/models"

	"gorm.io/gorm"
)

// DefaultClaimLease is how long a sweep may hold a reminder before another sweep can take it over
const DefaultClaimLease = 10 * time.Minute

// ReminderStore persists reminders and sweep runs.
// Write paths return a *StorageError; bulk reads log and degrade to an empty result.
type ReminderStore struct {
	db         *gorm.DB
	retrier    *Retrier
	claimLease time.Duration
	now        func() time.Time
}

// NewReminderStore creates a store on top of an open connection
func NewReminderStore(db *gorm.DB, claimLease time.Duration) *ReminderStore {
	if claimLease <= 0 {
		claimLease = DefaultClaimLease
	}
	return &ReminderStore{
		db:         db,
		retrier:    DefaultRetrier,
		claimLease: claimLease,
		now:        time.Now,
	}
}

// AddReminder inserts a reminder with both delivery flags cleared
func (s *ReminderStore) AddReminder(ctx context.Context, in models.NewReminder) (*models.Reminder, error) {
	reminder := &models.Reminder{
		Email:          in.Email,
		Date:           in.Date,
		Time:           in.Time,
		TimeZone:       in.TimeZone,
		ReminderStatus: models.ReminderPending,
	}
	if reminder.TimeZone == "" {
		reminder.TimeZone = "UTC"
	}

	_, err := Retry(ctx, s.retrier, "add reminder", WritePolicy, func(ctx context.Context) (*models.Reminder, error) {
		return reminder, s.db.WithContext(ctx).Create(reminder).Error
	})
	if err != nil {
		log.Printf("Error adding reminder to database: %v", err)
		return nil, newStorageError("adding reminder", err)
	}
	return reminder, nil
}

// UpdateReminder applies the fields present in update and returns the updated record.
// It returns nil without error when update is empty or no record matches id.
// Clearing SentReminder only applies to reminders that have not been sent, so the flag never reverts.
func (s *ReminderStore) UpdateReminder(ctx context.Context, id string, update models.ReminderUpdate) (*models.Reminder, error) {
	if update.Empty() {
		return nil, nil
	}

	fields := map[string]any{}
	if update.SentConfirmation != nil {
		fields["sent_confirmation"] = *update.SentConfirmation
	}
	releasing := false
	if update.SentReminder != nil {
		if *update.SentReminder {
			fields["sent_reminder"] = true
			fields["reminder_status"] = models.ReminderSent
		} else {
			releasing = true
			fields["reminder_status"] = models.ReminderPending
			fields["claimed_at"] = nil
		}
	}

	reminder, err := Retry(ctx, s.retrier, "update reminder", ReadPolicy, func(ctx context.Context) (*models.Reminder, error) {
		var updated *models.Reminder
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			query := tx.Model(&models.Reminder{}).Where("id = ?", id)
			if releasing {
				query = query.Where("sent_reminder = ?", false)
			}
			result := query.Updates(fields)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return nil
			}

			var r models.Reminder
			if err := tx.Where("id = ?", id).First(&r).Error; err != nil {
				return err
			}
			updated = &r
			return nil
		})
		return updated, err
	})
	if err != nil {
		log.Printf("Error updating reminder %s in database: %v", id, err)
		return nil, newStorageError("updating reminder", err)
	}
	return reminder, nil
}

// ClaimReminder moves a pending reminder to in-flight. Only one caller can win a claim;
// an in-flight claim older than the lease can be taken over.
func (s *ReminderStore) ClaimReminder(ctx context.Context, id string) (bool, error) {
	now := s.now().UTC()
	staleBefore := now.Add(-s.claimLease)

	claimed, err := Retry(ctx, s.retrier, "claim reminder", ReadPolicy, func(ctx context.Context) (bool, error) {
		result := s.db.WithContext(ctx).Model(&models.Reminder{}).
			Where("id = ? AND sent_reminder = ?", id, false).
			Where("(reminder_status = ? OR (reminder_status = ? AND claimed_at < ?))",
				models.ReminderPending, models.ReminderInFlight, staleBefore).
			Updates(map[string]any{
				"reminder_status": models.ReminderInFlight,
				"claimed_at":      now,
			})
		return result.RowsAffected == 1, result.Error
	})
	if err != nil {
		log.Printf("Error claiming reminder %s: %v", id, err)
		return false, newStorageError("claiming reminder", err)
	}
	return claimed, nil
}

// ClaimConfirmation reserves one confirmation resend by moving confirmation_attempts
// from seenAttempts to seenAttempts+1. It fails when the reminder is already confirmed,
// has used maxAttempts, or another sweep counted the same attempt first.
func (s *ReminderStore) ClaimConfirmation(ctx context.Context, id string, seenAttempts, maxAttempts int) (bool, error) {
	if seenAttempts >= maxAttempts {
		return false, nil
	}

	claimed, err := Retry(ctx, s.retrier, "claim confirmation", ReadPolicy, func(ctx context.Context) (bool, error) {
		result := s.db.WithContext(ctx).Model(&models.Reminder{}).
			Where("id = ? AND sent_confirmation = ? AND confirmation_attempts = ?", id, false, seenAttempts).
			Update("confirmation_attempts", seenAttempts+1)
		return result.RowsAffected == 1, result.Error
	})
	if err != nil {
		log.Printf("Error claiming confirmation for reminder %s: %v", id, err)
		return false, newStorageError("claiming confirmation", err)
	}
	return claimed, nil
}

// GetAllReminders returns every reminder, oldest first
func (s *ReminderStore) GetAllReminders(ctx context.Context) []models.Reminder {
	reminders, err := s.find(ctx, "get all reminders", func(q *gorm.DB) *gorm.DB {
		return q.Order("created_at")
	})
	if err != nil {
		log.Printf("Error getting reminders from database: %v", err)
		return []models.Reminder{}
	}
	return reminders
}

// GetPendingReminders returns unsent reminders whose instant has passed.
// The comparison runs on the database clock in UTC.
func (s *ReminderStore) GetPendingReminders(ctx context.Context) []models.Reminder {
	staleBefore := s.now().UTC().Add(-s.claimLease)
	reminders, err := s.find(ctx, "get pending reminders", func(q *gorm.DB) *gorm.DB {
		return q.Where("sent_reminder = ?", false).
			Where("(reminder_status = ? OR (reminder_status = ? AND claimed_at < ?))",
				models.ReminderPending, models.ReminderInFlight, staleBefore).
			Where(s.dueCondition()).
			Order(`"date", "time"`)
	})
	if err != nil {
		log.Printf("Error getting pending reminders from database: %v", err)
		return []models.Reminder{}
	}
	log.Printf("Pending reminders to send: %d", len(reminders))
	return reminders
}

// GetUnconfirmedReminders returns reminders whose confirmation email has not gone out
func (s *ReminderStore) GetUnconfirmedReminders(ctx context.Context) []models.Reminder {
	reminders, err := s.find(ctx, "get unconfirmed reminders", func(q *gorm.DB) *gorm.DB {
		return q.Where("sent_confirmation = ?", false).Order("created_at")
	})
	if err != nil {
		log.Printf("Error getting unconfirmed reminders from database: %v", err)
		return []models.Reminder{}
	}
	return reminders
}

// RecordSweepRun stores the outcome of a sweep
func (s *ReminderStore) RecordSweepRun(ctx context.Context, run *models.SweepRun) error {
	_, err := Retry(ctx, s.retrier, "record sweep run", WritePolicy, func(ctx context.Context) (*models.SweepRun, error) {
		return run, s.db.WithContext(ctx).Create(run).Error
	})
	if err != nil {
		return newStorageError("recording sweep run", err)
	}
	return nil
}

// ListSweepRuns returns the most recent sweeps, newest first
func (s *ReminderStore) ListSweepRuns(ctx context.Context, limit int) ([]models.SweepRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs, err := Retry(ctx, s.retrier, "list sweep runs", ReadPolicy, func(ctx context.Context) ([]models.SweepRun, error) {
		var out []models.SweepRun
		err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&out).Error
		return out, err
	})
	if err != nil {
		return nil, newStorageError("listing sweep runs", err)
	}
	if runs == nil {
		runs = []models.SweepRun{}
	}
	return runs, nil
}

// Ping checks that the database answers
func (s *ReminderStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *ReminderStore) find(ctx context.Context, op string, scope func(*gorm.DB) *gorm.DB) ([]models.Reminder, error) {
	reminders, err := Retry(ctx, s.retrier, op, ReadPolicy, func(ctx context.Context) ([]models.Reminder, error) {
		var out []models.Reminder
		err := s.db.WithContext(ctx).Scopes(scope).Find(&out).Error
		return out, err
	})
	if reminders == nil {
		reminders = []models.Reminder{}
	}
	return reminders, err
}

// dueCondition compares the stored UTC date and time with the database's own clock
func (s *ReminderStore) dueCondition() string {
	if s.db.Dialector.Name() == "sqlite" {
		return `datetime("date" || ' ' || "time") <= datetime('now')`
	}
	return `("date" || ' ' || "time")::timestamp <= (NOW() AT TIME ZONE 'UTC')`
}
