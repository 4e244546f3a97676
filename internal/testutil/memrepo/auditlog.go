package memrepo

import (
	"context"
	"sync"

	"loanflow/internal/domain/auditlog"
)

type LogRepo struct {
	mu       sync.Mutex
	seq      uint64
	audits   map[string][]auditlog.AuditLogEntry
	workflow map[string][]auditlog.WorkflowLogEntry
	messages map[string][]auditlog.AgentMessage
}

func NewLogRepo() *LogRepo {
	return &LogRepo{
		audits:   map[string][]auditlog.AuditLogEntry{},
		workflow: map[string][]auditlog.WorkflowLogEntry{},
		messages: map[string][]auditlog.AgentMessage{},
	}
}

func (r *LogRepo) AppendAudit(ctx context.Context, e *auditlog.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e.ID = r.seq
	r.audits[e.ApplicationID] = append(r.audits[e.ApplicationID], *e)
	return nil
}

func (r *LogRepo) AppendWorkflow(ctx context.Context, e *auditlog.WorkflowLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e.ID = r.seq
	r.workflow[e.ApplicationID] = append(r.workflow[e.ApplicationID], *e)
	return nil
}

func (r *LogRepo) AppendMessage(ctx context.Context, m *auditlog.AgentMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	m.ID = r.seq
	r.messages[m.ApplicationID] = append(r.messages[m.ApplicationID], *m)
	return nil
}

func (r *LogRepo) QueryAudit(ctx context.Context, applicationID string, f auditlog.Filter) ([]auditlog.AuditLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []auditlog.AuditLogEntry
	for _, e := range r.audits[applicationID] {
		if f.AgentType != "" && e.AgentType != f.AgentType {
			continue
		}
		if f.Level != "" && e.Level != f.Level {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *LogRepo) QueryWorkflow(ctx context.Context, applicationID string) ([]auditlog.WorkflowLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]auditlog.WorkflowLogEntry(nil), r.workflow[applicationID]...), nil
}

func (r *LogRepo) ListMessages(ctx context.Context, applicationID string) ([]auditlog.AgentMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]auditlog.AgentMessage(nil), r.messages[applicationID]...), nil
}

func (r *LogRepo) CountAudit(ctx context.Context, applicationID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.audits[applicationID])), nil
}
