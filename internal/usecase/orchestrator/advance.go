package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"loanflow/internal/domain/application"
	"loanflow/internal/domain/auditlog"
	"loanflow/internal/domain/customer"
	"loanflow/internal/domain/uow"
	"loanflow/internal/domain/verification"
	"loanflow/internal/usecase/underwriting"
)

// Advance runs the currently active stage to completion. Stage work that
// touches external collaborators happens before the transaction; the state
// transition and its audit entries commit atomically afterwards, against the
// locked application row, with terminal/stage guards re-checked under the
// lock so two concurrent advances cannot both complete the same stage.
func (u *Usecase) Advance(ctx context.Context, in AdvanceInput) (*StatusDTO, error) {
	stage := application.AgentType(in.AgentType)
	if !application.IsStage(stage) {
		return nil, fmt.Errorf("%w: %q is not an advanceable pipeline stage", application.ErrOutOfOrderTransition, in.AgentType)
	}

	app, err := u.apps.GetByApplicationID(ctx, in.ApplicationID)
	if err != nil {
		return nil, err
	}
	if app.Terminal {
		return nil, fmt.Errorf("%w: application %s accepts no further transitions", application.ErrStaleApplication, app.ApplicationID)
	}
	if stage != app.CurrentStage {
		return nil, fmt.Errorf("%w: current stage is %s, caller asked for %s", application.ErrOutOfOrderTransition, app.CurrentStage, stage)
	}

	switch in.Outcome {
	case OutcomeSuccess, "":
	case OutcomeFailure:
		return u.failStage(ctx, app, stage, in.Reason)
	default:
		return nil, fmt.Errorf("%w: unknown outcome %q", application.ErrInvalidRequest, in.Outcome)
	}

	cust, err := u.customers.GetByCustomerID(ctx, app.CustomerID)
	if err != nil {
		return nil, err
	}

	var t transition
	var stageErr error
	switch stage {
	case application.AgentSales:
		u.advanceSales(&t, app, cust)
	case application.AgentVerification:
		stageErr = u.advanceVerification(ctx, &t, app, cust, in)
	case application.AgentUnderwriting:
		stageErr = u.advanceUnderwriting(ctx, &t, app, cust, in)
	case application.AgentSanction:
		stageErr = u.advanceSanction(ctx, &t, app)
	}
	if stageErr != nil && !errors.Is(stageErr, application.ErrVerificationUnavailable) {
		return nil, stageErr
	}

	dto, err := u.commit(ctx, app, stage, &t)
	if err != nil {
		return nil, err
	}
	if stageErr != nil {
		// Stage marked error and audited; caller may retry the same stage.
		return nil, stageErr
	}
	return dto, nil
}

// commit persists one stage transition inside a row-locked transaction. The
// terminal and current-stage guards run again on the locked row: the earlier
// unlocked read may have raced a competing transition, and only the first
// committer for a stage may win. The returned snapshot is assembled inside
// the same transaction, so it reflects exactly what was committed.
func (u *Usecase) commit(ctx context.Context, app *application.Application, stage application.AgentType, t *transition) (*StatusDTO, error) {
	var dto *StatusDTO
	err := u.uow.WithinApplicationTx(ctx, app.ApplicationID, func(r uow.Repos, locked *application.Application) error {
		if locked.Terminal {
			return fmt.Errorf("%w: application %s accepts no further transitions", application.ErrStaleApplication, locked.ApplicationID)
		}
		if stage != locked.CurrentStage {
			return fmt.Errorf("%w: current stage is %s, caller asked for %s", application.ErrOutOfOrderTransition, locked.CurrentStage, stage)
		}
		if err := u.appendLogs(ctx, r, t); err != nil {
			return err
		}
		if t.result != nil {
			if err := r.Applications.CreateResult(ctx, t.result); err != nil {
				return err
			}
		}
		if t.letter != nil {
			if err := r.Applications.CreateSanctionLetter(ctx, t.letter); err != nil {
				return err
			}
		}
		if err := u.applyStates(ctx, r, t); err != nil {
			return err
		}
		if err := r.Applications.Save(ctx, app); err != nil {
			return err
		}
		var err error
		dto, err = u.snapshot(ctx, r.Applications, app)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// failStage applies a caller-reported failure: the stage goes to error and
// the pipeline halts.
func (u *Usecase) failStage(ctx context.Context, app *application.Application, stage application.AgentType, reason string) (*StatusDTO, error) {
	if reason == "" {
		reason = "stage reported failure"
	}
	var t transition
	u.setState(&t, app.ApplicationID, stage, application.StatusError, reason, 0)
	u.setMaster(&t, app.ApplicationID, application.StatusError, fmt.Sprintf("Halted at %s stage", stage), masterProgress(app))
	u.workflow(&t, app.ApplicationID, stage, "fail", reason, auditlog.LevelError)
	u.audit(&t, app.ApplicationID, stage, "STAGE_FAILED", "", reason, auditlog.LevelError, nil)

	app.Terminal = true
	app.StageUpdatedAt = u.now().UTC()

	return u.commit(ctx, app, stage, &t)
}

// completeStage marks the stage done and activates its successor, or flags
// the application terminal after the final stage.
func (u *Usecase) completeStage(t *transition, app *application.Application, stage application.AgentType, action string) {
	u.setState(t, app.ApplicationID, stage, application.StatusCompleted, action, 100)
	if next, ok := application.NextStage(stage); ok {
		app.CurrentStage = next
		u.setState(t, app.ApplicationID, next, application.StatusActive, pendingAction(next), 10)
		u.setMaster(t, app.ApplicationID, application.StatusActive, fmt.Sprintf("%s completed; %s active", stage, next), masterProgress(app))
	} else {
		app.Terminal = true
		u.setMaster(t, app.ApplicationID, application.StatusCompleted, "Workflow completed", 100)
	}
	app.StageUpdatedAt = u.now().UTC()
}

func pendingAction(stage application.AgentType) string {
	switch stage {
	case application.AgentVerification:
		return "Awaiting KYC verification"
	case application.AgentUnderwriting:
		return "Awaiting underwriting decision"
	case application.AgentSanction:
		return "Preparing sanction letter"
	}
	return ""
}

func (u *Usecase) advanceSales(t *transition, app *application.Application, cust *customer.Customer) {
	action := fmt.Sprintf("Offer prepared: %.2f over %d months at %.2f%%", app.Amount, app.TenureMonths, app.AnnualRate)
	u.completeStage(t, app, application.AgentSales, action)
	u.narrate(t, app.ApplicationID, application.AgentSales, auditlog.RoleAgent,
		fmt.Sprintf("%s, your request for %.2f over %d months is in. Next we verify your identity.", cust.Name, app.Amount, app.TenureMonths))
	u.workflow(t, app.ApplicationID, application.AgentSales, "complete", action, auditlog.LevelSuccess)
	u.audit(t, app.ApplicationID, application.AgentSales, "STAGE_COMPLETED", "", action, auditlog.LevelSuccess, nil)
}

func (u *Usecase) advanceVerification(ctx context.Context, t *transition, app *application.Application, cust *customer.Customer, in AdvanceInput) error {
	identity := verification.Identity{
		CustomerID: app.CustomerID,
		Name:       firstNonEmpty(in.StatedName, cust.Name),
		Phone:      firstNonEmpty(in.StatedPhone, cust.Phone),
		Address:    firstNonEmpty(in.StatedAddress, cust.City),
	}

	out, err := u.verifier.Verify(ctx, identity)
	if err != nil {
		// Retryable: the stage errors but the application stays live.
		reason := fmt.Sprintf("verification unavailable: %v", err)
		u.setState(t, app.ApplicationID, application.AgentVerification, application.StatusError, reason, 0)
		u.workflow(t, app.ApplicationID, application.AgentVerification, "error", reason, auditlog.LevelError)
		u.audit(t, app.ApplicationID, application.AgentVerification, "KYC_VERIFICATION", "", reason, auditlog.LevelError, nil)
		return fmt.Errorf("%w: %v", application.ErrVerificationUnavailable, err)
	}

	app.KycStatus = string(out.Kyc.Status)
	app.KycMismatches = mismatchJSON(out.Kyc.Mismatches)
	if out.Bureau != nil {
		score, limit := out.Bureau.Score, out.Bureau.PreApprovedLimit
		app.BureauScore = &score
		app.BureauLimit = &limit
	}

	meta := map[string]any{"mismatches": out.Kyc.Mismatches, "stated_name": identity.Name}
	switch out.Kyc.Status {
	case verification.StatusVerified:
		action := "KYC verified against CRM record"
		u.completeStage(t, app, application.AgentVerification, action)
		u.narrate(t, app.ApplicationID, application.AgentVerification, auditlog.RoleAgent, "Your identity checks out. Moving on to underwriting.")
		u.workflow(t, app.ApplicationID, application.AgentVerification, "complete", action, auditlog.LevelSuccess)
		u.audit(t, app.ApplicationID, application.AgentVerification, "KYC_VERIFICATION", "", "All details verified", auditlog.LevelSuccess, meta)
	case verification.StatusPending:
		reason := fmt.Sprintf("Manual review required: %d field mismatch", len(out.Kyc.Mismatches))
		u.setState(t, app.ApplicationID, application.AgentVerification, application.StatusWaiting, reason, 50)
		u.workflow(t, app.ApplicationID, application.AgentVerification, "hold", reason, auditlog.LevelWarning)
		u.audit(t, app.ApplicationID, application.AgentVerification, "KYC_VERIFICATION", "", reason, auditlog.LevelWarning, meta)
		app.StageUpdatedAt = u.now().UTC()
	case verification.StatusFailed:
		reason := fmt.Sprintf("KYC failed with %d mismatches", len(out.Kyc.Mismatches))
		u.setState(t, app.ApplicationID, application.AgentVerification, application.StatusError, reason, 0)
		u.setMaster(t, app.ApplicationID, application.StatusError, "Halted at verification stage", masterProgress(app))
		u.workflow(t, app.ApplicationID, application.AgentVerification, "fail", reason, auditlog.LevelError)
		u.audit(t, app.ApplicationID, application.AgentVerification, "KYC_VERIFICATION", "", reason, auditlog.LevelError, meta)
		app.Terminal = true
		app.StageUpdatedAt = u.now().UTC()
	}
	return nil
}

func (u *Usecase) advanceUnderwriting(ctx context.Context, t *transition, app *application.Application, cust *customer.Customer, in AdvanceInput) error {
	if app.KycStatus != string(verification.StatusVerified) || app.BureauScore == nil {
		return fmt.Errorf("%w: underwriting requires verified KYC and credit bureau data", application.ErrOutOfOrderTransition)
	}

	var salary *verification.SalaryStatement
	if in.SalaryFileRef != "" && u.parser != nil {
		parsed, err := u.parser.Parse(ctx, in.SalaryFileRef)
		if err != nil {
			// Unparsed documents fall back to the customer record.
			log.Printf("salary parse %s: %v", in.SalaryFileRef, err)
		} else {
			salary = parsed
		}
	}

	res := u.engine.Decide(underwriting.Input{
		CustomerID:        app.CustomerID,
		Amount:            app.Amount,
		TenureMonths:      app.TenureMonths,
		AnnualRate:        app.AnnualRate,
		KycStatus:         verification.KYCStatus(app.KycStatus),
		CreditScore:       *app.BureauScore,
		PreApprovedLimit:  derefOr(app.BureauLimit, cust.PreApprovedLimit),
		CustomerNetSalary: cust.MonthlyNetSalary,
		Salary:            salary,
	})

	attempt := 1
	if prev, err := u.apps.LatestResult(ctx, app.ApplicationID); err == nil {
		attempt = prev.Attempt + 1
	} else if !isNotFound(err) {
		return err
	}
	var emiPtr, totalPtr *float64
	if res.EMI > 0 {
		v := res.EMI
		emiPtr = &v
	}
	if res.TotalAmount > 0 {
		v := res.TotalAmount
		totalPtr = &v
	}
	t.result = &application.UnderwritingResult{
		ApplicationID:   app.ApplicationID,
		Attempt:         attempt,
		Decision:        res.Decision,
		Reason:          res.Reason,
		RequiredAction:  res.RequiredAction,
		EMI:             emiPtr,
		TotalAmount:     totalPtr,
		ReferenceNumber: res.ReferenceNumber,
	}

	meta := map[string]any{"band": string(res.Band), "emi": res.EMI, "total_amount": res.TotalAmount, "attempt": attempt}
	switch res.Decision {
	case application.DecisionApprove:
		u.completeStage(t, app, application.AgentUnderwriting, res.Reason)
		u.narrate(t, app.ApplicationID, application.AgentUnderwriting, auditlog.RoleAgent,
			fmt.Sprintf("Approved. Your EMI works out to %.2f per month.", res.EMI))
		u.workflow(t, app.ApplicationID, application.AgentUnderwriting, "approve", res.Reason, auditlog.LevelSuccess)
	case application.DecisionReject:
		// Decision made, stage done, but nothing further can run.
		u.setState(t, app.ApplicationID, application.AgentUnderwriting, application.StatusCompleted, res.Reason, 100)
		u.setState(t, app.ApplicationID, application.AgentSanction, application.StatusIdle, "Not applicable: application rejected", 0)
		u.setMaster(t, app.ApplicationID, application.StatusError, "Application rejected at underwriting", masterProgress(app))
		u.narrate(t, app.ApplicationID, application.AgentUnderwriting, auditlog.RoleAgent, res.Reason)
		u.workflow(t, app.ApplicationID, application.AgentUnderwriting, "reject", res.Reason, auditlog.LevelWarning)
		app.Terminal = true
		app.StageUpdatedAt = u.now().UTC()
	case application.DecisionPending:
		u.setState(t, app.ApplicationID, application.AgentUnderwriting, application.StatusWaiting, res.Reason, 50)
		u.workflow(t, app.ApplicationID, application.AgentUnderwriting, "hold", res.Reason, auditlog.LevelWarning)
		app.StageUpdatedAt = u.now().UTC()
	}
	u.audit(t, app.ApplicationID, application.AgentUnderwriting, "UNDERWRITING_DECISION", string(res.Decision), res.Reason, decisionLevel(res.Decision), meta)
	return nil
}

func (u *Usecase) advanceSanction(ctx context.Context, t *transition, app *application.Application) error {
	res, err := u.apps.LatestResult(ctx, app.ApplicationID)
	if err != nil || res.Decision != application.DecisionApprove {
		return fmt.Errorf("%w: sanction requires an APPROVE decision", application.ErrOutOfOrderTransition)
	}

	terms := underwriting.LoanTerms{
		Amount:       app.Amount,
		AnnualRate:   app.AnnualRate,
		TenureMonths: app.TenureMonths,
		EMI:          derefOr(res.EMI, 0),
	}
	letter := u.issuer.Issue(app.ApplicationID, res.ReferenceNumber, terms, u.now())
	t.letter = &letter.Record

	action := fmt.Sprintf("Sanction letter %s issued", letter.Record.ReferenceNumber)
	u.completeStage(t, app, application.AgentSanction, action)
	u.narrate(t, app.ApplicationID, application.AgentSanction, auditlog.RoleAgent,
		fmt.Sprintf("Your sanction letter is ready: %s", letter.Record.DocumentURL))
	u.workflow(t, app.ApplicationID, application.AgentSanction, "complete", action, auditlog.LevelSuccess)
	u.audit(t, app.ApplicationID, application.AgentSanction, "SANCTION_LETTER_GENERATED", string(application.DecisionApprove), action, auditlog.LevelSuccess, map[string]any{
		"reference_number": letter.Record.ReferenceNumber,
		"document_url":     letter.Record.DocumentURL,
		"schedule_preview": letter.SchedulePreview,
	})
	return nil
}

// ----- small helpers -----

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func derefOr[T any](p *T, fallback T) T {
	if p != nil {
		return *p
	}
	return fallback
}

func mismatchJSON(mismatches []string) string {
	if len(mismatches) == 0 {
		return "[]"
	}
	b, err := json.Marshal(mismatches)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decisionLevel(d application.Decision) auditlog.Level {
	switch d {
	case application.DecisionApprove:
		return auditlog.LevelSuccess
	case application.DecisionReject:
		return auditlog.LevelWarning
	default:
		return auditlog.LevelInfo
	}
}
