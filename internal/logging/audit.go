// Package logging also provides audit logging: structured, append-only
// records of dispatcher, transaction, and breaker events, independent of the
// free-text category logs.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType identifies the kind of audited event.
type AuditEventType string

const (
	AuditToolInvoke   AuditEventType = "tool_invoke"
	AuditToolComplete AuditEventType = "tool_complete"
	AuditToolError    AuditEventType = "tool_error"

	AuditTxnBegin      AuditEventType = "txn_begin"
	AuditTxnCommit     AuditEventType = "txn_commit"
	AuditTxnRollback   AuditEventType = "txn_rollback"
	AuditTxnFailed     AuditEventType = "txn_failed"

	AuditBreakerOpened AuditEventType = "breaker_opened"
	AuditBreakerClosed AuditEventType = "breaker_closed"
	AuditBreakerProbe  AuditEventType = "breaker_probe"

	AuditCASEvicted  AuditEventType = "cas_evicted"
	AuditTrashPurged AuditEventType = "trash_purged"

	AuditVerifyRun AuditEventType = "verify_run"
)

// AuditEvent is a single structured audit record, written as one JSON line.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`
	EventType  AuditEventType         `json:"event"`
	Category   string                 `json:"cat"`
	RequestID  string                 `json:"req,omitempty"`
	Target     string                 `json:"target,omitempty"`
	Action     string                 `json:"action,omitempty"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Message    string                 `json:"msg,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// InitAudit opens the audit log for this run. No-op if debug mode is off.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// AuditLogger scopes audit entries to a request.
type AuditLogger struct {
	requestID string
	category  Category
}

// Audit returns an unscoped audit logger.
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// AuditWithRequest scopes an audit logger to a request id and category.
func AuditWithRequest(requestID string, category Category) *AuditLogger {
	return &AuditLogger{requestID: requestID, category: category}
}

// Log writes an audit event, filling in defaults from the logger's scope.
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() || auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.RequestID == "" {
		event.RequestID = a.requestID
	}
	if event.Category == "" && a.category != "" {
		event.Category = string(a.category)
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.WriteString(string(data) + "\n")
	}
}

// ToolInvoked records that a tool was dispatched.
func (a *AuditLogger) ToolInvoked(toolName string, args map[string]interface{}) {
	a.Log(AuditEvent{EventType: AuditToolInvoke, Target: toolName, Success: true, Fields: args})
}

// ToolCompleted records a tool's successful completion.
func (a *AuditLogger) ToolCompleted(toolName string, durationMs int64) {
	a.Log(AuditEvent{EventType: AuditToolComplete, Target: toolName, Success: true, DurationMs: durationMs})
}

// ToolErrored records a tool's failure.
func (a *AuditLogger) ToolErrored(toolName string, durationMs int64, err error) {
	a.Log(AuditEvent{EventType: AuditToolError, Target: toolName, Success: false, DurationMs: durationMs, Error: err.Error()})
}

// TxnCommitted records a transaction commit, including the files it touched.
func (a *AuditLogger) TxnCommitted(txnID string, filesChanged []string) {
	a.Log(AuditEvent{EventType: AuditTxnCommit, Target: txnID, Success: true, Fields: map[string]interface{}{"files_changed": filesChanged}})
}

// TxnRolledBack records a transaction rollback and the reason.
func (a *AuditLogger) TxnRolledBack(txnID, reason string) {
	a.Log(AuditEvent{EventType: AuditTxnRollback, Target: txnID, Success: false, Message: reason})
}

// BreakerOpened records a circuit breaker tripping open.
func (a *AuditLogger) BreakerOpened(name string, failureCount int) {
	a.Log(AuditEvent{EventType: AuditBreakerOpened, Target: name, Success: false, Fields: map[string]interface{}{"failures": failureCount}})
}

// BreakerClosed records a circuit breaker resetting to closed.
func (a *AuditLogger) BreakerClosed(name string) {
	a.Log(AuditEvent{EventType: AuditBreakerClosed, Target: name, Success: true})
}
