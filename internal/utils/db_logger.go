package utils

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"gorm.io/gorm/logger"
)

// QuietGormLogger keeps routine polling queries out of the SQL log.
// Matching queries are still reported when they fail or run slowly.
type QuietGormLogger struct {
	logger.Interface
	quietPatterns []string
	slowThreshold time.Duration
}

// NewQuietGormLogger wraps l and silences successful queries that contain any of patterns
func NewQuietGormLogger(l logger.Interface, patterns ...string) *QuietGormLogger {
	return &QuietGormLogger{
		Interface:     l,
		quietPatterns: patterns,
		slowThreshold: time.Second,
	}
}

// LogMode implements logger.Interface
func (l *QuietGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &QuietGormLogger{
		Interface:     l.Interface.LogMode(level),
		quietPatterns: l.quietPatterns,
		slowThreshold: l.slowThreshold,
	}
}

// Trace implements logger.Interface
func (l *QuietGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	sql, rows := fc()

	if err == nil && time.Since(begin) < l.slowThreshold && l.isQuiet(sql) {
		return
	}

	caller := findCaller()
	l.Interface.Trace(ctx, begin, func() (string, int64) {
		if caller != "" {
			return fmt.Sprintf("[Caller: %s] %s", caller, sql), rows
		}
		return sql, rows
	}, err)
}

func (l *QuietGormLogger) isQuiet(sql string) bool {
	for _, pattern := range l.quietPatterns {
		if strings.Contains(sql, pattern) {
			return true
		}
	}
	return false
}

// findCaller returns the first frame outside gorm and the database package
func findCaller() string {
	for i := 2; i < 12; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "gorm.io") ||
			strings.Contains(file, "internal/database/retry.go") ||
			strings.Contains(file, "internal/utils/db_logger.go") {
			continue
		}

		if fn := runtime.FuncForPC(pc); fn != nil {
			name := fn.Name()
			if idx := strings.LastIndexByte(name, '/'); idx != -1 {
				name = name[idx+1:]
			}
			return fmt.Sprintf("%s() at %s:%d", name, file, line)
		}
		return fmt.Sprintf("%s:%d", file, line)
	}
	return ""
}
