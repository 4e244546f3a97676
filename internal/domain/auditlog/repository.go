package auditlog

import "context"

// Filter narrows queries without mutating the underlying log.
type Filter struct {
	AgentType string
	Level     Level
}

type Repository interface {
	// Append* never overwrite or reorder prior entries.
	AppendAudit(ctx context.Context, e *AuditLogEntry) error
	AppendWorkflow(ctx context.Context, e *WorkflowLogEntry) error
	AppendMessage(ctx context.Context, m *AgentMessage) error

	// Queries return entries in insertion order.
	QueryAudit(ctx context.Context, applicationID string, f Filter) ([]AuditLogEntry, error)
	QueryWorkflow(ctx context.Context, applicationID string) ([]WorkflowLogEntry, error)
	ListMessages(ctx context.Context, applicationID string) ([]AgentMessage, error)
	CountAudit(ctx context.Context, applicationID string) (int64, error)
}
