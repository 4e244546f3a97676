package mysql

import (
	"context"

	"loanflow/internal/domain/auditlog"

	"gorm.io/gorm"
)

// LogRepository only ever inserts and selects; there is no update or delete
// path, which is what keeps the logs append-only at this layer.
type LogRepository struct{ db *gorm.DB }

func NewLogRepository(db *gorm.DB) *LogRepository { return &LogRepository{db: db} }

func (r *LogRepository) AppendAudit(ctx context.Context, e *auditlog.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *LogRepository) AppendWorkflow(ctx context.Context, e *auditlog.WorkflowLogEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *LogRepository) AppendMessage(ctx context.Context, m *auditlog.AgentMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// QueryAudit returns entries in insertion order; the autoincrement id breaks
// ties between identical timestamps.
func (r *LogRepository) QueryAudit(ctx context.Context, applicationID string, f auditlog.Filter) ([]auditlog.AuditLogEntry, error) {
	q := r.db.WithContext(ctx).Where("application_id = ?", applicationID)
	if f.AgentType != "" {
		q = q.Where("agent_type = ?", f.AgentType)
	}
	if f.Level != "" {
		q = q.Where("level = ?", f.Level)
	}
	var out []auditlog.AuditLogEntry
	res := q.Order("id ASC").Find(&out)
	return out, res.Error
}

func (r *LogRepository) QueryWorkflow(ctx context.Context, applicationID string) ([]auditlog.WorkflowLogEntry, error) {
	var out []auditlog.WorkflowLogEntry
	res := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}

func (r *LogRepository) ListMessages(ctx context.Context, applicationID string) ([]auditlog.AgentMessage, error) {
	var out []auditlog.AgentMessage
	res := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}

func (r *LogRepository) CountAudit(ctx context.Context, applicationID string) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&auditlog.AuditLogEntry{}).
		Where("application_id = ?", applicationID).
		Count(&n)
	return n, res.Error
}
