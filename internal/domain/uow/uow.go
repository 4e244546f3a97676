package uow

import (
	"context"

	"loanflow/internal/domain/application"
	"loanflow/internal/domain/auditlog"
)

type Repos struct {
	Applications application.Repository
	Logs         auditlog.Repository
}

// UnitOfWork scopes a set of repository writes to one transaction so an
// AgentState update is never visible without its audit entry.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// WithinApplicationTx locks the application row first, then passes it in.
	WithinApplicationTx(ctx context.Context, applicationID string, fn func(r Repos, a *application.Application) error) error
}
