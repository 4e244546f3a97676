package mysql

import (
	"context"
	"errors"

	appDomain "loanflow/internal/domain/application"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationRepository struct{ db *gorm.DB }

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository { return &ApplicationRepository{db: db} }

func (r *ApplicationRepository) Create(ctx context.Context, a *appDomain.Application) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ApplicationRepository) Save(ctx context.Context, a *appDomain.Application) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *ApplicationRepository) GetByApplicationID(ctx context.Context, applicationID string) (*appDomain.Application, error) {
	var out appDomain.Application
	res := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&out)
	if res.Error != nil {
		return nil, mapNotFound(res.Error)
	}
	return &out, nil
}

// GetByApplicationIDForUpdate locks the row for the current transaction.
// SQLite (used in tests) has no FOR UPDATE; its writes serialize anyway.
func (r *ApplicationRepository) GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*appDomain.Application, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out appDomain.Application
	res := q.Where("application_id = ?", applicationID).First(&out)
	if res.Error != nil {
		return nil, mapNotFound(res.Error)
	}
	return &out, nil
}

// UpsertAgentState overwrites the one row per (application, agent type).
func (r *ApplicationRepository) UpsertAgentState(ctx context.Context, s *appDomain.AgentState) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "application_id"}, {Name: "agent_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "last_action", "progress", "updated_at"}),
		}).
		Create(s).Error
}

func (r *ApplicationRepository) ListAgentStates(ctx context.Context, applicationID string) ([]appDomain.AgentState, error) {
	var out []appDomain.AgentState
	res := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}

func (r *ApplicationRepository) CreateResult(ctx context.Context, res *appDomain.UnderwritingResult) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *ApplicationRepository) LatestResult(ctx context.Context, applicationID string) (*appDomain.UnderwritingResult, error) {
	var out appDomain.UnderwritingResult
	res := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("attempt DESC, id DESC").
		First(&out)
	if res.Error != nil {
		return nil, mapNotFound(res.Error)
	}
	return &out, nil
}

func (r *ApplicationRepository) CreateSanctionLetter(ctx context.Context, l *appDomain.SanctionLetter) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *ApplicationRepository) GetSanctionLetter(ctx context.Context, applicationID string) (*appDomain.SanctionLetter, error) {
	var out appDomain.SanctionLetter
	res := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&out)
	if res.Error != nil {
		return nil, mapNotFound(res.Error)
	}
	return &out, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return appDomain.ErrNotFound
	}
	return err
}
