package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"loanflow/internal/domain/application"
	"loanflow/internal/domain/auditlog"
	"loanflow/internal/domain/customer"
	"loanflow/internal/domain/uow"
	"loanflow/internal/domain/verification"
	"loanflow/internal/usecase/kyc"
	"loanflow/internal/usecase/sanction"
	"loanflow/internal/usecase/underwriting"
	"loanflow/pkg/id"

	"github.com/google/uuid"
)

// Verifier is the verification-stage collaborator (KYC + bureau lookups).
type Verifier interface {
	Verify(ctx context.Context, in verification.Identity) (*kyc.Outcome, error)
}

type Deps struct {
	Applications application.Repository
	Customers    customer.Repository
	Logs         auditlog.Repository
	UoW          uow.UnitOfWork

	Verifier     Verifier
	SalaryParser verification.SalaryParser
	Engine       *underwriting.Engine
	Issuer       *sanction.Issuer

	// Clock defaults to time.Now; injectable for tests.
	Clock func() time.Time
	// DefaultAnnualRate is applied when a request carries no negotiated rate.
	DefaultAnnualRate float64
}

// Usecase owns the canonical per-application workflow state and enforces
// strict stage ordering: sales -> verification -> underwriting -> sanction.
type Usecase struct {
	apps      application.Repository
	customers customer.Repository
	logs      auditlog.Repository
	uow       uow.UnitOfWork

	verifier Verifier
	parser   verification.SalaryParser
	engine   *underwriting.Engine
	issuer   *sanction.Issuer

	now         func() time.Time
	defaultRate float64
}

func NewUsecase(d Deps) *Usecase {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.DefaultAnnualRate <= 0 {
		d.DefaultAnnualRate = 10.5
	}
	return &Usecase{
		apps:        d.Applications,
		customers:   d.Customers,
		logs:        d.Logs,
		uow:         d.UoW,
		verifier:    d.Verifier,
		parser:      d.SalaryParser,
		engine:      d.Engine,
		issuer:      d.Issuer,
		now:         d.Clock,
		defaultRate: d.DefaultAnnualRate,
	}
}

// Start validates the loan request, snapshots the customer and opens the
// pipeline with sales active and every other stage idle.
func (u *Usecase) Start(ctx context.Context, in StartInput) (*StatusDTO, error) {
	if err := application.ValidateRequest(in.Amount, in.TenureMonths); err != nil {
		return nil, fmt.Errorf("%w: amount must be >= %.0f and tenure within [%d,%d] months",
			application.ErrInvalidRequest, application.MinAmount, application.MinTenure, application.MaxTenure)
	}
	cust, err := u.customers.GetByCustomerID(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	rate := in.AnnualRate
	if rate <= 0 {
		rate = u.defaultRate
	}
	now := u.now().UTC()
	app := &application.Application{
		ApplicationID:  id.NewID32(),
		CustomerID:     cust.CustomerID,
		Amount:         in.Amount,
		TenureMonths:   in.TenureMonths,
		AnnualRate:     rate,
		Purpose:        in.Purpose,
		CurrentStage:   application.AgentSales,
		StageUpdatedAt: now,
	}

	var t transition
	u.setState(&t, app.ApplicationID, application.AgentSales, application.StatusActive, "Reviewing loan request", 10)
	for _, stage := range []application.AgentType{application.AgentVerification, application.AgentUnderwriting, application.AgentSanction} {
		u.setState(&t, app.ApplicationID, stage, application.StatusIdle, "", 0)
	}
	u.setMaster(&t, app.ApplicationID, application.StatusActive, "Application received", 5)

	u.narrate(&t, app.ApplicationID, application.AgentMaster, auditlog.RoleSystem,
		fmt.Sprintf("Application received for %s: amount %.2f over %d months at %.2f%%.", cust.Name, in.Amount, in.TenureMonths, rate))
	u.workflow(&t, app.ApplicationID, application.AgentMaster, "start", "Application created; sales stage active", auditlog.LevelInfo)
	u.audit(&t, app.ApplicationID, application.AgentMaster, "APPLICATION_STARTED", "",
		fmt.Sprintf("Loan request accepted for customer %s.", cust.CustomerID), auditlog.LevelInfo, map[string]any{
			"amount": in.Amount, "tenure_months": in.TenureMonths, "annual_rate": rate, "purpose": in.Purpose,
		})

	var dto *StatusDTO
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.appendLogs(ctx, r, &t); err != nil {
			return err
		}
		if err := r.Applications.Create(ctx, app); err != nil {
			return err
		}
		if err := u.applyStates(ctx, r, &t); err != nil {
			return err
		}
		dto, err = u.snapshot(ctx, r.Applications, app)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Status is a read-only snapshot: full agent-state set plus the latest
// underwriting result and sanction letter when present.
func (u *Usecase) Status(ctx context.Context, applicationID string) (*StatusDTO, error) {
	app, err := u.apps.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return u.snapshot(ctx, u.apps, app)
}

// snapshot assembles the status DTO against the given repository. Mutating
// flows call it with the transaction's repos so the returned view matches
// exactly what the transaction committed.
func (u *Usecase) snapshot(ctx context.Context, apps application.Repository, app *application.Application) (*StatusDTO, error) {
	applicationID := app.ApplicationID
	states, err := apps.ListAgentStates(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	dto := &StatusDTO{
		ApplicationID: app.ApplicationID,
		CustomerID:    app.CustomerID,
		Amount:        app.Amount,
		TenureMonths:  app.TenureMonths,
		AnnualRate:    app.AnnualRate,
		CurrentStage:  string(app.CurrentStage),
		Terminal:      app.Terminal,
		KycStatus:     app.KycStatus,
		AgentStates:   orderStates(states),
	}

	if res, err := apps.LatestResult(ctx, applicationID); err == nil {
		dto.LatestResult = &ResultDTO{
			Decision:        string(res.Decision),
			Reason:          res.Reason,
			RequiredAction:  res.RequiredAction,
			EMI:             res.EMI,
			TotalAmount:     res.TotalAmount,
			ReferenceNumber: res.ReferenceNumber,
		}
	} else if !isNotFound(err) {
		return nil, err
	}

	if letter, err := apps.GetSanctionLetter(ctx, applicationID); err == nil {
		dto.Sanction = &SanctionDTO{
			ReferenceNumber: letter.ReferenceNumber,
			DocumentURL:     letter.DocumentURL,
			GeneratedAt:     letter.GeneratedAt,
		}
	} else if !isNotFound(err) {
		return nil, err
	}
	return dto, nil
}

// Cancel halts forward progress without rolling back completed stages.
// Cancelling an already-terminal application is a no-op. The application row
// is locked for the duration so a concurrent advance cannot slip a stage
// completion in between the terminal check and the cancel writes.
func (u *Usecase) Cancel(ctx context.Context, applicationID string) (*StatusDTO, error) {
	var dto *StatusDTO
	err := u.uow.WithinApplicationTx(ctx, applicationID, func(r uow.Repos, app *application.Application) error {
		if app.Terminal {
			var err error
			dto, err = u.snapshot(ctx, r.Applications, app)
			return err
		}

		states, err := r.Applications.ListAgentStates(ctx, applicationID)
		if err != nil {
			return err
		}

		var t transition
		for _, s := range states {
			if s.AgentType == application.AgentMaster {
				continue
			}
			if s.Status == application.StatusCompleted || s.Status == application.StatusError {
				continue
			}
			u.setState(&t, applicationID, s.AgentType, application.StatusError, "cancelled", s.Progress)
		}
		u.setMaster(&t, applicationID, application.StatusError, "cancelled", masterProgress(app))
		u.workflow(&t, applicationID, application.AgentMaster, "cancel", "Application cancelled by caller", auditlog.LevelWarning)
		u.audit(&t, applicationID, application.AgentMaster, "APPLICATION_CANCELLED", "", "cancelled", auditlog.LevelWarning, nil)

		app.Terminal = true
		app.StageUpdatedAt = u.now().UTC()

		if err := u.appendLogs(ctx, r, &t); err != nil {
			return err
		}
		if err := u.applyStates(ctx, r, &t); err != nil {
			return err
		}
		if err := r.Applications.Save(ctx, app); err != nil {
			return err
		}
		dto, err = u.snapshot(ctx, r.Applications, app)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// AuditTrail returns audit entries in insertion order, optionally filtered
// by agent type and level. Repeated queries never mutate the log.
func (u *Usecase) AuditTrail(ctx context.Context, applicationID, agentType, level string) ([]auditlog.AuditLogEntry, error) {
	return u.logs.QueryAudit(ctx, applicationID, auditlog.Filter{AgentType: agentType, Level: auditlog.Level(level)})
}

func (u *Usecase) WorkflowTrail(ctx context.Context, applicationID string) ([]auditlog.WorkflowLogEntry, error) {
	return u.logs.QueryWorkflow(ctx, applicationID)
}

func (u *Usecase) Messages(ctx context.Context, applicationID string) ([]auditlog.AgentMessage, error) {
	return u.logs.ListMessages(ctx, applicationID)
}

// ----- transition assembly -----

// transition batches every write of one advance so audit entries and state
// updates land atomically: a reader never observes a completed stage without
// its audit entry.
type transition struct {
	states   []application.AgentState
	result   *application.UnderwritingResult
	letter   *application.SanctionLetter
	workflw  []auditlog.WorkflowLogEntry
	audits   []auditlog.AuditLogEntry
	messages []auditlog.AgentMessage
}

func (u *Usecase) setState(t *transition, appID string, agent application.AgentType, status application.AgentStatus, action string, progress int) {
	t.states = append(t.states, application.AgentState{
		ApplicationID: appID,
		AgentType:     agent,
		Status:        status,
		LastAction:    action,
		Progress:      progress,
	})
}

func (u *Usecase) setMaster(t *transition, appID string, status application.AgentStatus, action string, progress int) {
	u.setState(t, appID, application.AgentMaster, status, action, progress)
}

func (u *Usecase) workflow(t *transition, appID string, agent application.AgentType, action, details string, level auditlog.Level) {
	t.workflw = append(t.workflw, auditlog.WorkflowLogEntry{
		EntryID:       uuid.NewString(),
		ApplicationID: appID,
		AgentType:     string(agent),
		Action:        action,
		Details:       details,
		Level:         level,
		Timestamp:     u.now().UTC(),
	})
}

func (u *Usecase) audit(t *transition, appID string, agent application.AgentType, action, decision, reason string, level auditlog.Level, meta map[string]any) {
	t.audits = append(t.audits, auditlog.AuditLogEntry{
		EntryID:       uuid.NewString(),
		ApplicationID: appID,
		AgentType:     string(agent),
		Action:        action,
		Decision:      decision,
		Reason:        reason,
		Level:         level,
		Metadata:      metaJSON(meta),
		Timestamp:     u.now().UTC(),
	})
}

func (u *Usecase) narrate(t *transition, appID string, agent application.AgentType, role auditlog.MessageRole, content string) {
	t.messages = append(t.messages, auditlog.AgentMessage{
		MessageID:     uuid.NewString(),
		ApplicationID: appID,
		AgentType:     string(agent),
		Role:          role,
		Content:       content,
		Timestamp:     u.now().UTC(),
	})
}

// appendLogs writes audit entries before anything else inside the
// transaction, per the ordering guarantee.
func (u *Usecase) appendLogs(ctx context.Context, r uow.Repos, t *transition) error {
	for i := range t.audits {
		if err := r.Logs.AppendAudit(ctx, &t.audits[i]); err != nil {
			return err
		}
	}
	for i := range t.workflw {
		if err := r.Logs.AppendWorkflow(ctx, &t.workflw[i]); err != nil {
			return err
		}
	}
	for i := range t.messages {
		if err := r.Logs.AppendMessage(ctx, &t.messages[i]); err != nil {
			return err
		}
	}
	return nil
}

func (u *Usecase) applyStates(ctx context.Context, r uow.Repos, t *transition) error {
	for i := range t.states {
		if err := r.Applications.UpsertAgentState(ctx, &t.states[i]); err != nil {
			return err
		}
	}
	return nil
}

// ----- helpers -----

func metaJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}

func isNotFound(err error) bool {
	return errors.Is(err, application.ErrNotFound)
}

// masterProgress reflects the furthest-completed stage: 25 points apiece.
func masterProgress(app *application.Application) int {
	idx := application.StageIndex(app.CurrentStage)
	if idx < 0 {
		return 0
	}
	if app.Terminal && app.CurrentStage == application.AgentSanction {
		return 100
	}
	return idx * 25
}

func orderStates(states []application.AgentState) []AgentStateDTO {
	canonical := append([]application.AgentType{application.AgentMaster}, application.Pipeline()...)
	out := make([]AgentStateDTO, 0, len(states))
	for _, want := range canonical {
		for _, s := range states {
			if s.AgentType == want {
				out = append(out, AgentStateDTO{
					AgentType:  string(s.AgentType),
					Status:     string(s.Status),
					LastAction: s.LastAction,
					Progress:   s.Progress,
				})
			}
		}
	}
	return out
}
