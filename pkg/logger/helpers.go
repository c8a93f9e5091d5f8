package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogThrottle records a throttled response and the wait chosen for it
func LogThrottle(l Logger, endpoint string, attempt int, delay time.Duration, fromServer bool) {
	l.WarnWithFields("request throttled, backing off", map[string]interface{}{
		"endpoint":    endpoint,
		"attempt":     attempt,
		"delay":       delay,
		"server_hint": fromServer,
	})
}

// LogPage records progress of a paginated collection
func LogPage(l Logger, page, items, total int, cursor string) {
	l.DebugWithFields("page collected", map[string]interface{}{
		"page":       page,
		"items":      items,
		"total":      total,
		"has_cursor": cursor != "",
	})
}

// LogSkipped records a record dropped by an aggregator
func LogSkipped(l Logger, aggregation string, index int, reason string) {
	l.DebugWithFields("record skipped", map[string]interface{}{
		"aggregation": aggregation,
		"index":       index,
		"reason":      reason,
	})
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
