package mysql

import (
	"context"

	"loanflow/internal/domain/application"
	"loanflow/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(uow.Repos{
			Applications: &ApplicationRepository{db: tx},
			Logs:         &LogRepository{db: tx},
		})
	})
}

func (u *GormUoW) WithinApplicationTx(ctx context.Context, applicationID string, fn func(r uow.Repos, a *application.Application) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := uow.Repos{
			Applications: &ApplicationRepository{db: tx},
			Logs:         &LogRepository{db: tx},
		}
		// lock the application row up-front to prevent races
		a, err := r.Applications.GetByApplicationIDForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		return fn(r, a)
	})
}
