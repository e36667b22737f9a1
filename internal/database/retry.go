package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log"
	"net"
	"strings"
	"syscall"
	"time"

	"remindmail/internal/metrics"

	"github.com/jackc/pgx/v5/pgconn"
)

// Outcome classifies the result of a single attempt
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRetryable
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// Policy bounds how often and how patiently an operation is retried
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

var (
	// WritePolicy is used for inserts, where the user is waiting on the response
	WritePolicy = Policy{MaxRetries: 3, InitialDelay: time.Second}
	// ReadPolicy is used for reads and flag updates
	ReadPolicy = Policy{MaxRetries: 5, InitialDelay: 2 * time.Second}
)

// Delay returns the wait before retry number attempt (1-based)
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.InitialDelay << (attempt - 1)
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		d = p.MaxDelay
	}
	return d
}

// Retrier drives the retry loop. The zero value uses Classify and a context-aware sleep.
type Retrier struct {
	Classify func(error) Outcome
	Sleep    func(ctx context.Context, d time.Duration) error
}

// DefaultRetrier is shared by the stores
var DefaultRetrier = &Retrier{}

func (r *Retrier) classify(err error) Outcome {
	if r != nil && r.Classify != nil {
		return r.Classify(err)
	}
	return Classify(err)
}

func (r *Retrier) sleep(ctx context.Context, d time.Duration) error {
	if r != nil && r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry runs fn until it succeeds, fails fatally or exhausts p.MaxRetries retries.
// fn is invoked at most p.MaxRetries+1 times and the last error is returned as-is.
func Retry[T any](ctx context.Context, r *Retrier, op string, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		value, err := fn(ctx)

		switch r.classify(err) {
		case OutcomeOK:
			return value, nil
		case OutcomeFatal:
			return zero, err
		}

		if attempt > p.MaxRetries {
			log.Printf("%s: giving up after %d attempts: %v", op, attempt, err)
			return zero, err
		}

		delay := p.Delay(attempt)
		log.Printf("%s: attempt %d/%d failed, retrying in %v: %v", op, attempt, p.MaxRetries+1, delay, err)
		metrics.QueryRetries.WithLabelValues(op).Inc()

		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return zero, errors.Join(sleepErr, err)
		}
	}
}

// Classify maps an error to the retry state machine's next step
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled):
		return OutcomeFatal
	case IsTransient(err):
		return OutcomeRetryable
	default:
		return OutcomeFatal
	}
}

// IsTransient reports whether err is a connection-level failure worth retrying.
// Server errors are judged by SQLSTATE; everything else by the network error it wraps.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "53300", // too_many_connections
			"57P01", // admin_shutdown
			"57P02", // crash_shutdown
			"57P03": // cannot_connect_now
			return true
		}
		return strings.HasPrefix(pgErr.Code, "08") // connection_exception
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE):
		return true
	}

	return pgconn.SafeToRetry(err) || isTimeout(err)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
