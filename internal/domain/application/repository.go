package application

import "context"

type Repository interface {
	Create(ctx context.Context, a *Application) error
	GetByApplicationID(ctx context.Context, applicationID string) (*Application, error)
	GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*Application, error)
	Save(ctx context.Context, a *Application) error

	UpsertAgentState(ctx context.Context, s *AgentState) error
	ListAgentStates(ctx context.Context, applicationID string) ([]AgentState, error)

	CreateResult(ctx context.Context, r *UnderwritingResult) error
	LatestResult(ctx context.Context, applicationID string) (*UnderwritingResult, error)

	CreateSanctionLetter(ctx context.Context, l *SanctionLetter) error
	GetSanctionLetter(ctx context.Context, applicationID string) (*SanctionLetter, error)
}
