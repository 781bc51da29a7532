package errors

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mowind/dapputil-go/internal/config"
	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus logger from the log section of the config.
//
// Parameters:
//   - cfg: level (debug, info, warn, error, fatal), format (json, text) and
//     output (stdout, stderr or a file path, default stderr)
//
// Returns:
//   - *logrus.Logger: configured logger
//   - error: invalid level or format, or an output file that cannot be opened
func NewLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(defaultString(cfg.Level, config.DefaultLogLevel)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)

	formatter, err := createFormatter(defaultString(cfg.Format, config.DefaultLogFormat))
	if err != nil {
		return nil, err
	}
	logger.SetFormatter(formatter)

	out, err := createOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(out)
	return logger, nil
}

func createFormatter(format string) (logrus.Formatter, error) {
	switch strings.ToLower(format) {
	case config.LogFormatJSON:
		return &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		}, nil
	case config.LogFormatText:
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

func createOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", output, err)
		}
		return f, nil
	}
}

// WithContext 返回带 request_id 和 operation 字段的日志条目
func WithContext(logger logrus.FieldLogger, ctx context.Context) *logrus.Entry {
	t, _ := TraceFromContext(ctx)
	return logger.WithFields(t.Fields())
}

// LogTrace logs the outcome of the traced operation on ctx, timed from the
// trace's start.
func LogTrace(logger logrus.FieldLogger, ctx context.Context, err error) {
	t, _ := TraceFromContext(ctx)
	start := t.Start
	if start.IsZero() {
		start = time.Now()
	}
	LogOperation(WithContext(logger, ctx), t.Operation, start, err)
}

// LogOperation logs the outcome and duration of an operation. Client errors
// are logged at warn level, everything else at error level.
func LogOperation(entry *logrus.Entry, operation string, startTime time.Time, err error) {
	entry = entry.WithFields(logrus.Fields{
		"operation":   operation,
		"duration_ms": time.Since(startTime).Milliseconds(),
	})
	if err == nil {
		entry.Debug("Operation completed")
		return
	}
	LogAppError(entry, err)
}

// LogAppError 以结构化字段记录错误
func LogAppError(entry *logrus.Entry, err error) {
	appErr := ConvertError(err)
	if appErr == nil {
		return
	}
	fields := logrus.Fields{
		"error_type": string(appErr.Type),
		"error_code": appErr.Code,
	}
	if appErr.Op != "" {
		fields["error_op"] = appErr.Op
	}
	for k, v := range appErr.Context {
		fields["ctx_"+k] = v
	}

	entry = entry.WithFields(fields).WithError(err)
	if IsClientError(appErr) {
		entry.Warn(appErr.Message)
		return
	}
	entry.Error(appErr.Message)
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
