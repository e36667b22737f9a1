package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepRunner runs one sweep
type SweepRunner interface {
	Run(ctx context.Context) SweepReport
}

// ReminderWorker triggers sweeps in-process on a cron schedule, for deployments
// without an external scheduler calling /cron/run
type ReminderWorker struct {
	sweeper  SweepRunner
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
}

func NewReminderWorker(sweeper SweepRunner, schedule string) *ReminderWorker {
	return &ReminderWorker{
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  5 * time.Minute,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
	}
}

// Start registers the sweep and starts the scheduler in its own goroutine
func (w *ReminderWorker) Start() error {
	if _, err := w.cron.AddFunc(w.schedule, w.runOnce); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", w.schedule, err)
	}
	w.cron.Start()
	log.Printf("Reminder scheduler started (%s)", w.schedule)
	return nil
}

// Stop waits for a running sweep to finish
func (w *ReminderWorker) Stop() {
	<-w.cron.Stop().Done()
	log.Println("Reminder scheduler stopped")
}

func (w *ReminderWorker) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	report := w.sweeper.Run(ctx)
	if len(report.Results) > 0 {
		log.Printf("Scheduled sweep sent %d of %d due reminders", report.Sent(), len(report.Results))
	}
}
