// Package memrepo holds in-memory repository implementations used by
// usecase and handler tests. Behavior mirrors the mysql adapters, including
// domain-error mapping, minus the database.
package memrepo

import (
	"context"
	"sync"

	"loanflow/internal/domain/application"
)

type ApplicationRepo struct {
	mu      sync.Mutex
	nextID  uint64
	apps    map[string]application.Application
	states  map[string]map[application.AgentType]application.AgentState
	results map[string][]application.UnderwritingResult
	letters map[string]application.SanctionLetter

	// CreateFn, when set, intercepts Create for fault injection.
	CreateFn func(ctx context.Context, a *application.Application) error
}

func NewApplicationRepo() *ApplicationRepo {
	return &ApplicationRepo{
		apps:    map[string]application.Application{},
		states:  map[string]map[application.AgentType]application.AgentState{},
		results: map[string][]application.UnderwritingResult{},
		letters: map[string]application.SanctionLetter{},
	}
}

func (r *ApplicationRepo) Create(ctx context.Context, a *application.Application) error {
	if r.CreateFn != nil {
		return r.CreateFn(ctx, a)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	r.apps[a.ApplicationID] = *a
	return nil
}

func (r *ApplicationRepo) GetByApplicationID(ctx context.Context, applicationID string) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apps[applicationID]
	if !ok {
		return nil, application.ErrNotFound
	}
	out := a
	return &out, nil
}

func (r *ApplicationRepo) GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*application.Application, error) {
	return r.GetByApplicationID(ctx, applicationID)
}

func (r *ApplicationRepo) Save(ctx context.Context, a *application.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apps[a.ApplicationID]; !ok {
		return application.ErrNotFound
	}
	r.apps[a.ApplicationID] = *a
	return nil
}

func (r *ApplicationRepo) UpsertAgentState(ctx context.Context, s *application.AgentState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byAgent, ok := r.states[s.ApplicationID]
	if !ok {
		byAgent = map[application.AgentType]application.AgentState{}
		r.states[s.ApplicationID] = byAgent
	}
	byAgent[s.AgentType] = *s
	return nil
}

func (r *ApplicationRepo) ListAgentStates(ctx context.Context, applicationID string) ([]application.AgentState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]application.AgentState, 0, len(r.states[applicationID]))
	for _, s := range r.states[applicationID] {
		out = append(out, s)
	}
	return out, nil
}

func (r *ApplicationRepo) CreateResult(ctx context.Context, res *application.UnderwritingResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	res.ID = r.nextID
	r.results[res.ApplicationID] = append(r.results[res.ApplicationID], *res)
	return nil
}

func (r *ApplicationRepo) LatestResult(ctx context.Context, applicationID string) (*application.UnderwritingResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.results[applicationID]
	if len(list) == 0 {
		return nil, application.ErrNotFound
	}
	out := list[len(list)-1]
	return &out, nil
}

func (r *ApplicationRepo) CreateSanctionLetter(ctx context.Context, l *application.SanctionLetter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	l.ID = r.nextID
	r.letters[l.ApplicationID] = *l
	return nil
}

func (r *ApplicationRepo) GetSanctionLetter(ctx context.Context, applicationID string) (*application.SanctionLetter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.letters[applicationID]
	if !ok {
		return nil, application.ErrNotFound
	}
	out := l
	return &out, nil
}
