package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request/operation-scoped logging context.
type LogContext struct {
	TraceID        string    // OpenTelemetry trace ID
	SpanID         string    // OpenTelemetry span ID
	Component      string    // Subsystem emitting the log: scanner, monitor, health, notify
	Path           string    // Filesystem path under scan/watch
	ScanID         string    // Correlates one ACL scan across scanner -> store -> notify
	SubscriptionID string    // Notification subscription id
	RequestID      string    // HTTP request id (control-plane API)
	StartTime      time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a scan/monitor operation.
func NewLogContext(component string) *LogContext {
	return &LogContext{
		Component: component,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:        lc.TraceID,
		SpanID:         lc.SpanID,
		Component:      lc.Component,
		Path:           lc.Path,
		ScanID:         lc.ScanID,
		SubscriptionID: lc.SubscriptionID,
		RequestID:      lc.RequestID,
		StartTime:      lc.StartTime,
	}
}

// WithPath returns a copy with the scanned path set
func (lc *LogContext) WithPath(path string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Path = path
	}
	return clone
}

// WithScan returns a copy with the scan id set
func (lc *LogContext) WithScan(scanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ScanID = scanID
	}
	return clone
}

// WithSubscription returns a copy with the subscription id set
func (lc *LogContext) WithSubscription(subscriptionID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.SubscriptionID = subscriptionID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
