package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"remindmail/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupStore(t *testing.T) *ReminderStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "reminders-test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := NewReminderStore(db, time.Minute)
	store.retrier = &Retrier{Sleep: func(context.Context, time.Duration) error { return nil }}
	return store
}

// utcParts splits an instant into the stored date and time-of-day columns
func utcParts(t time.Time) (string, string) {
	u := t.UTC()
	return u.Format(models.DateLayout), u.Format(models.TimeLayout)
}

func addAt(t *testing.T, store *ReminderStore, email string, at time.Time) *models.Reminder {
	t.Helper()
	date, clock := utcParts(at)
	reminder, err := store.AddReminder(context.Background(), models.NewReminder{
		Email:    email,
		Date:     date,
		Time:     clock,
		TimeZone: "UTC",
	})
	if err != nil {
		t.Fatalf("add reminder: %v", err)
	}
	return reminder
}

func ids(reminders []models.Reminder) map[string]bool {
	out := make(map[string]bool, len(reminders))
	for _, r := range reminders {
		out[r.ID] = true
	}
	return out
}

func TestAddReminderAssignsIdentityAndClearsFlags(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	reminder, err := store.AddReminder(ctx, models.NewReminder{
		Email:    "a@b.com",
		Date:     "2025-10-24",
		Time:     "15:10",
		TimeZone: "UTC-05:00",
	})
	if err != nil {
		t.Fatalf("add reminder: %v", err)
	}
	if reminder.ID == "" || reminder.CreatedAt.IsZero() {
		t.Fatalf("expected store-assigned id and createdAt, got %#v", reminder)
	}
	if reminder.SentConfirmation || reminder.SentReminder || reminder.ReminderStatus != models.ReminderPending {
		t.Fatalf("expected fresh delivery state, got %#v", reminder)
	}

	second := addAt(t, store, "c@d.com", time.Now().Add(time.Hour))
	if second.ID == reminder.ID {
		t.Fatal("expected unique ids")
	}

	all := store.GetAllReminders(ctx)
	if len(all) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(all))
	}
	got := all[0]
	if got.Email != "a@b.com" || got.Date != "2025-10-24" || got.Time != "15:10" || got.TimeZone != "UTC-05:00" {
		t.Fatalf("unexpected stored reminder: %#v", got)
	}
}

func TestUpdateReminder(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	reminder := addAt(t, store, "a@b.com", time.Now().Add(-time.Minute))

	got, err := store.UpdateReminder(ctx, reminder.ID, models.ReminderUpdate{})
	if err != nil || got != nil {
		t.Fatalf("empty update: expected nil, nil; got %#v, %v", got, err)
	}

	got, err = store.UpdateReminder(ctx, "does-not-exist", models.MarkReminded())
	if err != nil || got != nil {
		t.Fatalf("missing id: expected nil, nil; got %#v, %v", got, err)
	}

	got, err = store.UpdateReminder(ctx, reminder.ID, models.MarkConfirmed())
	if err != nil {
		t.Fatalf("mark confirmed: %v", err)
	}
	if got == nil || !got.SentConfirmation || got.SentReminder {
		t.Fatalf("unexpected confirmed reminder: %#v", got)
	}
	if got.Email != reminder.Email || got.Date != reminder.Date || got.Time != reminder.Time {
		t.Fatalf("update must not touch email/date/time: %#v", got)
	}

	got, err = store.UpdateReminder(ctx, reminder.ID, models.MarkReminded())
	if err != nil {
		t.Fatalf("mark reminded: %v", err)
	}
	if got == nil || !got.SentReminder || got.ReminderStatus != models.ReminderSent {
		t.Fatalf("unexpected reminded reminder: %#v", got)
	}

	// a sent reminder never reverts
	got, err = store.UpdateReminder(ctx, reminder.ID, models.ReleaseClaim())
	if err != nil || got != nil {
		t.Fatalf("release after send: expected nil, nil; got %#v, %v", got, err)
	}
	all := store.GetAllReminders(ctx)
	if len(all) != 1 || !all[0].SentReminder {
		t.Fatalf("expected reminder to stay sent, got %#v", all)
	}
}

func TestGetPendingReminders(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now()

	due := addAt(t, store, "due@b.com", now.Add(-2*time.Hour))
	dueRecently := addAt(t, store, "recent@b.com", now.Add(-2*time.Minute))
	future := addAt(t, store, "future@b.com", now.Add(2*time.Hour))
	sent := addAt(t, store, "sent@b.com", now.Add(-3*time.Hour))
	if _, err := store.UpdateReminder(ctx, sent.ID, models.MarkReminded()); err != nil {
		t.Fatalf("mark reminded: %v", err)
	}

	pending := ids(store.GetPendingReminders(ctx))
	if len(pending) != 2 || !pending[due.ID] || !pending[dueRecently.ID] {
		t.Fatalf("expected exactly the two due reminders, got %v", pending)
	}
	if pending[future.ID] || pending[sent.ID] {
		t.Fatalf("future or sent reminder returned: %v", pending)
	}
}

func TestClaimReminderIsExclusive(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	reminder := addAt(t, store, "a@b.com", time.Now().Add(-time.Minute))

	first, err := store.ClaimReminder(ctx, reminder.ID)
	if err != nil || !first {
		t.Fatalf("first claim: expected true, got %v, %v", first, err)
	}
	second, err := store.ClaimReminder(ctx, reminder.ID)
	if err != nil || second {
		t.Fatalf("second claim: expected false, got %v, %v", second, err)
	}
	if pending := store.GetPendingReminders(ctx); len(pending) != 0 {
		t.Fatalf("claimed reminder must not be pending, got %d", len(pending))
	}

	// released claims become pending again
	if _, err := store.UpdateReminder(ctx, reminder.ID, models.ReleaseClaim()); err != nil {
		t.Fatalf("release claim: %v", err)
	}
	if pending := store.GetPendingReminders(ctx); len(pending) != 1 {
		t.Fatalf("expected released reminder to be pending, got %d", len(pending))
	}
}

func TestClaimReminderTakesOverExpiredLease(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	reminder := addAt(t, store, "a@b.com", time.Now().Add(-time.Hour))

	start := time.Now()
	store.now = func() time.Time { return start }
	if ok, err := store.ClaimReminder(ctx, reminder.ID); err != nil || !ok {
		t.Fatalf("claim: %v, %v", ok, err)
	}

	store.now = func() time.Time { return start.Add(30 * time.Second) }
	if ok, _ := store.ClaimReminder(ctx, reminder.ID); ok {
		t.Fatal("claim within the lease must fail")
	}

	store.now = func() time.Time { return start.Add(2 * time.Minute) }
	if pending := store.GetPendingReminders(ctx); len(pending) != 1 {
		t.Fatalf("expected expired claim to be pending again, got %d", len(pending))
	}
	if ok, err := store.ClaimReminder(ctx, reminder.ID); err != nil || !ok {
		t.Fatalf("claim after lease: %v, %v", ok, err)
	}
}

func TestGetUnconfirmedReminders(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	confirmed := addAt(t, store, "confirmed@b.com", time.Now().Add(time.Hour))
	unconfirmed := addAt(t, store, "unconfirmed@b.com", time.Now().Add(time.Hour))
	if _, err := store.UpdateReminder(ctx, confirmed.ID, models.MarkConfirmed()); err != nil {
		t.Fatalf("mark confirmed: %v", err)
	}

	got := store.GetUnconfirmedReminders(ctx)
	if len(got) != 1 || got[0].ID != unconfirmed.ID {
		t.Fatalf("expected only the unconfirmed reminder, got %#v", got)
	}
}

func TestReadsDegradeToEmptyOnFailure(t *testing.T) {
	store := setupStore(t)
	sqlDB, err := store.db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	_ = sqlDB.Close()

	ctx := context.Background()
	if got := store.GetAllReminders(ctx); got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
	if got := store.GetPendingReminders(ctx); got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
	if got := store.GetUnconfirmedReminders(ctx); got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}

	if _, err := store.AddReminder(ctx, models.NewReminder{Email: "a@b.com", Date: "2025-10-24", Time: "10:00"}); err == nil {
		t.Fatal("expected write on a closed database to fail")
	} else if _, ok := err.(*StorageError); !ok {
		t.Fatalf("expected *StorageError, got %T", err)
	}
}

func TestSweepRunsRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	older := &models.SweepRun{
		StartedAt:  time.Now().Add(-time.Hour).UTC(),
		FinishedAt: time.Now().Add(-time.Hour).UTC(),
		Processed:  1,
		Failed:     1,
		Results:    []models.SweepResult{{ID: "r-1", Email: "a@b.com", Error: "smtp down"}},
	}
	newer := &models.SweepRun{
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
		Processed:  1,
		Sent:       1,
		Results:    []models.SweepResult{{ID: "r-2", Email: "c@d.com", Success: true}},
	}
	for _, run := range []*models.SweepRun{older, newer} {
		if err := store.RecordSweepRun(ctx, run); err != nil {
			t.Fatalf("record sweep run: %v", err)
		}
	}

	runs, err := store.ListSweepRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list sweep runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %#v", runs)
	}
	if len(runs[1].Results) != 1 || runs[1].Results[0].Error != "smtp down" {
		t.Fatalf("unexpected results payload: %#v", runs[1].Results)
	}
}

func TestClaimConfirmationCountsEachAttemptOnce(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	reminder := addAt(t, store, "a@b.com", time.Now().Add(time.Hour))

	first, err := store.ClaimConfirmation(ctx, reminder.ID, 0, 2)
	if err != nil || !first {
		t.Fatalf("first claim: expected true, got %v, %v", first, err)
	}
	// an overlapping sweep that read the same attempt count loses
	stale, err := store.ClaimConfirmation(ctx, reminder.ID, 0, 2)
	if err != nil || stale {
		t.Fatalf("stale claim: expected false, got %v, %v", stale, err)
	}

	if ok, err := store.ClaimConfirmation(ctx, reminder.ID, 1, 2); err != nil || !ok {
		t.Fatalf("second attempt: %v, %v", ok, err)
	}
	if ok, _ := store.ClaimConfirmation(ctx, reminder.ID, 2, 2); ok {
		t.Fatal("claim past the attempt cap must fail")
	}

	unconfirmed := store.GetUnconfirmedReminders(ctx)
	if len(unconfirmed) != 1 || unconfirmed[0].ConfirmationAttempts != 2 {
		t.Fatalf("expected 2 recorded attempts, got %#v", unconfirmed)
	}

	if _, err := store.UpdateReminder(ctx, reminder.ID, models.MarkConfirmed()); err != nil {
		t.Fatalf("mark confirmed: %v", err)
	}
	if ok, _ := store.ClaimConfirmation(ctx, reminder.ID, 2, 5); ok {
		t.Fatal("a confirmed reminder cannot be claimed")
	}
}
