package memrepo

import (
	"context"

	"loanflow/internal/domain/application"
	"loanflow/internal/domain/uow"
)

// UoW passes the shared in-memory repos straight through; there is no
// transaction to speak of, which matches how usecase tests exercise flows.
type UoW struct {
	Apps *ApplicationRepo
	Logs *LogRepo

	// WithinTxFn, when set, intercepts WithinTx for fault injection.
	WithinTxFn func(ctx context.Context, fn func(r uow.Repos) error) error
	// WithinApplicationTxFn, when set, intercepts WithinApplicationTx;
	// tests use it to interleave a competing write before the row loads.
	WithinApplicationTxFn func(ctx context.Context, applicationID string, fn func(r uow.Repos, a *application.Application) error) error
}

func NewUoW(apps *ApplicationRepo, logs *LogRepo) *UoW {
	return &UoW{Apps: apps, Logs: logs}
}

func (u *UoW) repos() uow.Repos {
	return uow.Repos{Applications: u.Apps, Logs: u.Logs}
}

func (u *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if u.WithinTxFn != nil {
		return u.WithinTxFn(ctx, fn)
	}
	return fn(u.repos())
}

func (u *UoW) WithinApplicationTx(ctx context.Context, applicationID string, fn func(r uow.Repos, a *application.Application) error) error {
	if u.WithinApplicationTxFn != nil {
		return u.WithinApplicationTxFn(ctx, applicationID, fn)
	}
	a, err := u.Apps.GetByApplicationIDForUpdate(ctx, applicationID)
	if err != nil {
		return err
	}
	return fn(u.repos(), a)
}
