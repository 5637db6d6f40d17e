// Package logging provides structured logging with trace ID support.
package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys.
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID.
	TraceIDKey ContextKey = "trace_id"
	// ServiceKey is the context key for the tracked service's ID.
	ServiceKey ContextKey = "service_id"
)

// Logger wraps logrus.Logger with analytics-domain helpers.
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a new Logger instance.
func New(component, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, component: component}
}

// NewFromEnv constructs a logger using LOG_LEVEL and LOG_FORMAT environment
// variables, defaulting to "info" and "json" when unset.
func NewFromEnv(component string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(component, level, format)
}

// WithContext creates a logger entry populated with trace/service IDs found
// in ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component)
	if traceID := ctx.Value(TraceIDKey); traceID != nil {
		entry = entry.WithField("trace_id", traceID)
	}
	if serviceID := ctx.Value(ServiceKey); serviceID != nil {
		entry = entry.WithField("service_id", serviceID)
	}
	return entry
}

// NewTraceID generates a new trace ID.
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID attaches a trace ID to ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithServiceID attaches a service ID to ctx.
func WithServiceID(ctx context.Context, serviceID string) context.Context {
	return context.WithValue(ctx, ServiceKey, serviceID)
}

// LogIngress logs the outcome of processing a single beacon.
func (l *Logger) LogIngress(ctx context.Context, serviceID, tracker, outcome string, duration time.Duration) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"service_id":  serviceID,
		"tracker":     tracker,
		"outcome":     outcome,
		"duration_ms": duration.Milliseconds(),
	}).Info("ingress processed")
}

// LogQuery logs the execution of an analytics query.
func (l *Logger) LogQuery(ctx context.Context, serviceID, mode string, duration time.Duration, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"service_id":  serviceID,
		"mode":        mode,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("query failed")
		return
	}
	entry.Debug("query executed")
}

// LogCacheEviction logs a cache reaching its capacity bound.
func (l *Logger) LogCacheEviction(ctx context.Context, cacheName string, evicted int) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"cache":   cacheName,
		"evicted": evicted,
	}).Warn("cache capacity eviction")
}

// LogMigration logs a schema migration step.
func (l *Logger) LogMigration(ctx context.Context, version uint, dirty bool, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	})
	if err != nil {
		entry.WithError(err).Error("migration failed")
		return
	}
	entry.Info("migration applied")
}

// Global logger instance, initialized once at startup.
var defaultLogger *Logger

// InitDefault initializes the default logger.
func InitDefault(component, level, format string) {
	defaultLogger = New(component, level, format)
}

// Default returns the default logger, lazily falling back to an unconfigured
// one if InitDefault was never called.
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New("unknown", "info", "json")
	}
	return defaultLogger
}
