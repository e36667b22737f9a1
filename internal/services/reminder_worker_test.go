package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct {
	runs atomic.Int32
}

func (s *countingSweeper) Run(ctx context.Context) SweepReport {
	s.runs.Add(1)
	return SweepReport{StartedAt: time.Now().UTC()}
}

func TestReminderWorkerRejectsBadSchedule(t *testing.T) {
	worker := NewReminderWorker(&countingSweeper{}, "every now and then")
	if err := worker.Start(); err == nil {
		t.Fatal("expected an invalid schedule to be rejected")
	}
}

func TestReminderWorkerRunOnce(t *testing.T) {
	sweeper := &countingSweeper{}
	worker := NewReminderWorker(sweeper, "@every 1m")
	worker.runOnce()
	if got := sweeper.runs.Load(); got != 1 {
		t.Fatalf("expected one sweep, got %d", got)
	}

	if err := worker.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	worker.Stop()
}

func TestEmailServiceWithoutKeyLogsInstead(t *testing.T) {
	svc := NewEmailService("", "reminders@example.com", "Reminders")
	email := ReminderEmail{Email: "a@b.com", Date: "2025-10-24", Time: "10:10", TimeZone: "UTC-05:00"}

	if err := svc.SendConfirmationEmail(context.Background(), email); err != nil {
		t.Fatalf("confirmation: %v", err)
	}
	if err := svc.SendReminderEmail(context.Background(), email); err != nil {
		t.Fatalf("reminder: %v", err)
	}
}
