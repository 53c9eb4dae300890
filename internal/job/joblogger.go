package job

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/incidentwatch/internal/logger"
)

// LogStore persists job audit log lines.
type LogStore interface {
	Add(ctx context.Context, jobID, level, message string) error
}

// JobLogger fans one job's log lines out to the process logger, the audit
// log table, and the job's live stream. Persistence failures are reported on
// the process logger and never interrupt the run.
type JobLogger struct {
	jobID   string
	log     logger.Interface
	store   LogStore
	streams *StreamRegistry
}

// NewJobLogger creates a logger bound to one job.
func NewJobLogger(jobID string, log logger.Interface, store LogStore, streams *StreamRegistry) *JobLogger {
	return &JobLogger{
		jobID:   jobID,
		log:     log.With("job_id", jobID),
		streams: streams,
		store:   store,
	}
}

// Info records an info-level line.
func (l *JobLogger) Info(ctx context.Context, msg string, fields ...any) {
	l.log.Info(msg, fields...)
	l.record(ctx, "info", msg, fields)
}

// Warn records a warn-level line.
func (l *JobLogger) Warn(ctx context.Context, msg string, fields ...any) {
	l.log.Warn(msg, fields...)
	l.record(ctx, "warn", msg, fields)
}

// Error records an error-level line.
func (l *JobLogger) Error(ctx context.Context, msg string, fields ...any) {
	l.log.Error(msg, fields...)
	l.record(ctx, "error", msg, fields)
}

// Progress publishes a counter snapshot to the job's stream.
func (l *JobLogger) Progress(p Progress) {
	l.streams.Publish(l.jobID, Event{Progress: &p})
}

func (l *JobLogger) record(ctx context.Context, level, msg string, fields []any) {
	line := formatLine(msg, fields)

	if err := l.store.Add(ctx, l.jobID, level, line); err != nil {
		l.log.Warn("failed to persist job log line", "error", err.Error())
	}

	l.streams.Publish(l.jobID, Event{
		Timestamp: time.Now(),
		Level:     level,
		Message:   line,
	})
}

// formatLine flattens key-value pairs into the stored message so the audit
// table keeps the structured context without a schema for it.
func formatLine(msg string, fields []any) string {
	if len(fields) == 0 {
		return msg
	}

	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	return b.String()
}
