package auditlog

import (
	"time"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// AuditLogEntry is the compliance system of record: append-only, immutable
// once written. The autoincrement ID doubles as the insertion sequence and
// breaks ties between entries carrying identical timestamps.
type AuditLogEntry struct {
	ID            uint64    `gorm:"primaryKey;column:id" json:"seq"`
	EntryID       string    `gorm:"size:36;uniqueIndex:ux_audit_entries_entry_id" json:"id"`
	ApplicationID string    `gorm:"size:32;index:idx_audit_entries_app" json:"application_id"`
	AgentType     string    `gorm:"size:16;index:idx_audit_entries_agent" json:"agent_type"`
	Action        string    `gorm:"size:64" json:"action"`
	Decision      string    `gorm:"size:16" json:"decision,omitempty"`
	Reason        string    `gorm:"type:text" json:"reason"`
	Level         Level     `gorm:"size:16" json:"level"`
	Metadata      string    `gorm:"type:text" json:"metadata,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (AuditLogEntry) TableName() string { return "audit_log_entries" }

// WorkflowLogEntry narrates orchestrator progress for the front-ends.
type WorkflowLogEntry struct {
	ID            uint64    `gorm:"primaryKey;column:id" json:"seq"`
	EntryID       string    `gorm:"size:36;uniqueIndex:ux_workflow_entries_entry_id" json:"id"`
	ApplicationID string    `gorm:"size:32;index:idx_workflow_entries_app" json:"application_id"`
	AgentType     string    `gorm:"size:16" json:"agent_type"`
	Action        string    `gorm:"size:64" json:"action"`
	Details       string    `gorm:"type:text" json:"details"`
	Level         Level     `gorm:"size:16" json:"level"`
	Timestamp     time.Time `json:"timestamp"`
}

func (WorkflowLogEntry) TableName() string { return "workflow_log_entries" }

type MessageRole string

const (
	RoleUser   MessageRole = "user"
	RoleAgent  MessageRole = "agent"
	RoleSystem MessageRole = "system"
)

// AgentMessage is the human-readable narration stream, append-only,
// ordered by timestamp with insertion order as tie-breaker.
type AgentMessage struct {
	ID            uint64      `gorm:"primaryKey;column:id" json:"seq"`
	MessageID     string      `gorm:"size:36;uniqueIndex:ux_agent_messages_msg_id" json:"id"`
	ApplicationID string      `gorm:"size:32;index:idx_agent_messages_app" json:"application_id"`
	AgentType     string      `gorm:"size:16" json:"agent_type"`
	Role          MessageRole `gorm:"size:16" json:"role"`
	Content       string      `gorm:"type:text" json:"content"`
	Metadata      string      `gorm:"type:text" json:"metadata,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

func (AgentMessage) TableName() string { return "agent_messages" }
