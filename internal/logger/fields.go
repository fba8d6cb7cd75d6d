package logger

import "log/slog"

// Standard field keys for structured logging across the scanner, store,
// change detector, health analyzer, monitor loop, and notification service.
// Use these keys consistently so log aggregation queries stay stable.
const (
	// Distributed tracing.
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Request/operation correlation.
	KeyRequestID = "request_id"
	KeyScanID    = "scan_id"
	KeyComponent = "component"

	// ACL scanning.
	KeyPath          = "path"
	KeyDepth         = "depth"
	KeyErrorCount    = "error_count"
	KeyTotalFolders  = "total_folders"
	KeyChecksum      = "checksum"
	KeyACECount      = "ace_count"

	// Principals and groups.
	KeyPrincipalSID  = "principal_sid"
	KeyPrincipalName = "principal_full_name"
	KeyPrincipalKind = "principal_kind"

	// Change detection and notification.
	KeyChangeType      = "change_type"
	KeySeverity        = "severity"
	KeySubscriptionID  = "subscription_id"
	KeyNotificationID  = "notification_id"
	KeyQueueDepth      = "queue_depth"

	// Health analyzer.
	KeyIssueType  = "issue_type"
	KeyRiskScore  = "risk_score"
	KeyHealthScan = "health_scan_id"

	// Generic operation metadata.
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// Path returns a slog.Attr for a filesystem path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// ScanID returns a slog.Attr correlating one scan cycle.
func ScanID(id string) slog.Attr { return slog.String(KeyScanID, id) }

// Component returns a slog.Attr naming the emitting subsystem.
func Component(name string) slog.Attr { return slog.String(KeyComponent, name) }

// PrincipalSID returns a slog.Attr for a resolved SID string.
func PrincipalSID(sid string) slog.Attr { return slog.String(KeyPrincipalSID, sid) }

// ChangeType returns a slog.Attr for a change record's category.
func ChangeType(t string) slog.Attr { return slog.String(KeyChangeType, t) }

// Severity returns a slog.Attr for a change/issue severity.
func Severity(s string) slog.Attr { return slog.String(KeySeverity, s) }

// Err returns a slog.Attr for an error value's message. A nil error yields
// the empty slog.Attr, which handlers omit.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
