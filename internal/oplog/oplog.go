// Package oplog writes pipeline run entries to zap.
package oplog

import (
	"context"

	"github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	messageRunSucceeded = "pipeline run succeeded"
	messageRunFailed    = "pipeline run failed"
	statusError         = "error"
)

// Logger implements workflow.OperationLogger on top of zap.
type Logger struct {
	logger *zap.Logger
}

// New wraps logger. A nil logger discards entries.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger}
}

// LogOperation emits one structured line per run. Guard failures log at info,
// other failures at error.
func (logger *Logger) LogOperation(_ context.Context, entry workflow.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("flow", entry.Flow),
		zap.String("run_id", entry.RunID),
		zap.String("status", entry.Status),
		zap.Int("steps", entry.StepsRun),
		zap.Int("commits", len(entry.Commits)),
		zap.Duration("duration", entry.Duration),
	}
	if entry.Status != statusError {
		logger.logger.Info(messageRunSucceeded, fields...)
		return
	}
	fields = append(fields,
		zap.String("failed_step", entry.FailedStep),
		zap.Bool("compensated", entry.Compensated),
		zap.Error(entry.Error),
	)
	level := zapcore.ErrorLevel
	if entry.Kind != "" {
		fields = append(fields, zap.String("error_kind", entry.Kind.String()))
		level = zapcore.InfoLevel
	}
	if checked := logger.logger.Check(level, messageRunFailed); checked != nil {
		checked.Write(fields...)
	}
}
