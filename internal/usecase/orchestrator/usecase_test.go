package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"loanflow/internal/domain/application"
	"loanflow/internal/domain/customer"
	"loanflow/internal/domain/uow"
	"loanflow/internal/domain/verification"
	"loanflow/internal/testutil/memrepo"
	"loanflow/internal/usecase/kyc"
	"loanflow/internal/usecase/sanction"
	"loanflow/internal/usecase/underwriting"
)

const custID = "cccccccccccccccccccccccccccccccc"

// ----- test doubles -----

type stubVerifier struct {
	out *kyc.Outcome
	err error
}

func (s *stubVerifier) Verify(ctx context.Context, in verification.Identity) (*kyc.Outcome, error) {
	return s.out, s.err
}

type stubParser struct {
	stmt *verification.SalaryStatement
}

func (s *stubParser) Parse(ctx context.Context, fileRef string) (*verification.SalaryStatement, error) {
	if s.stmt == nil {
		return &verification.SalaryStatement{Parsed: false}, nil
	}
	return s.stmt, nil
}

type fixture struct {
	uc       *Usecase
	apps     *memrepo.ApplicationRepo
	logs     *memrepo.LogRepo
	uow      *memrepo.UoW
	verifier *stubVerifier
	parser   *stubParser
}

func verifiedOutcome(score int, limit float64) *kyc.Outcome {
	return &kyc.Outcome{
		Kyc:    verification.Result{Status: verification.StatusVerified},
		Bureau: &verification.BureauReport{CustomerID: custID, Score: score, PreApprovedLimit: limit},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	apps := memrepo.NewApplicationRepo()
	logs := memrepo.NewLogRepo()
	customers := memrepo.NewCustomerRepo()
	_ = customers.CreateCustomer(context.Background(), &customer.Customer{
		CustomerID:       custID,
		Name:             "Anita Verma",
		Phone:            "+91-9810000001",
		City:             "Delhi",
		CreditScore:      800,
		PreApprovedLimit: 600_000,
		MonthlyNetSalary: 80_000,
	})

	v := &stubVerifier{out: verifiedOutcome(800, 600_000)}
	p := &stubParser{}
	txs := memrepo.NewUoW(apps, logs)
	uc := NewUsecase(Deps{
		Applications: apps,
		Customers:    customers,
		Logs:         logs,
		UoW:          txs,
		Verifier:     v,
		SalaryParser: p,
		Engine:       underwriting.NewEngine(underwriting.DefaultConfig()),
		Issuer:       sanction.NewIssuer(),
	})
	return &fixture{uc: uc, apps: apps, logs: logs, uow: txs, verifier: v, parser: p}
}

func (f *fixture) start(t *testing.T) *StatusDTO {
	t.Helper()
	dto, err := f.uc.Start(context.Background(), StartInput{
		CustomerID: custID, Amount: 500_000, TenureMonths: 24, AnnualRate: 10, Purpose: "education",
	})
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}
	return dto
}

func (f *fixture) advance(t *testing.T, appID, stage string) *StatusDTO {
	t.Helper()
	dto, err := f.uc.Advance(context.Background(), AdvanceInput{ApplicationID: appID, AgentType: stage, Outcome: OutcomeSuccess})
	if err != nil {
		t.Fatalf("Advance(%s) err: %v", stage, err)
	}
	return dto
}

func stateOf(dto *StatusDTO, agent string) AgentStateDTO {
	for _, s := range dto.AgentStates {
		if s.AgentType == agent {
			return s
		}
	}
	return AgentStateDTO{}
}

// ----- tests -----

func TestStart_RejectsOutOfBoundsRequests(t *testing.T) {
	f := newFixture(t)
	cases := []StartInput{
		{CustomerID: custID, Amount: 9_999, TenureMonths: 24},
		{CustomerID: custID, Amount: 50_000, TenureMonths: 5},
		{CustomerID: custID, Amount: 50_000, TenureMonths: 85},
	}
	for _, in := range cases {
		if _, err := f.uc.Start(context.Background(), in); !errors.Is(err, application.ErrInvalidRequest) {
			t.Fatalf("Start(%+v) err=%v, want ErrInvalidRequest", in, err)
		}
	}
}

func TestStart_SalesActiveOthersIdle(t *testing.T) {
	f := newFixture(t)
	dto := f.start(t)

	if got := stateOf(dto, "sales").Status; got != "active" {
		t.Fatalf("sales status=%s", got)
	}
	for _, stage := range []string{"verification", "underwriting", "sanction"} {
		if got := stateOf(dto, stage).Status; got != "idle" {
			t.Fatalf("%s status=%s, want idle", stage, got)
		}
	}
	n, _ := f.logs.CountAudit(context.Background(), dto.ApplicationID)
	if n == 0 {
		t.Fatal("start must append at least one audit entry")
	}
}

func TestAdvance_OutOfOrderStage(t *testing.T) {
	f := newFixture(t)
	dto := f.start(t)

	for _, stage := range []string{"verification", "underwriting", "sanction", "master", "bogus"} {
		_, err := f.uc.Advance(context.Background(), AdvanceInput{ApplicationID: dto.ApplicationID, AgentType: stage})
		if !errors.Is(err, application.ErrOutOfOrderTransition) {
			t.Fatalf("Advance(%s) err=%v, want ErrOutOfOrderTransition", stage, err)
		}
	}
}

func TestAdvance_HappyPathToSanction(t *testing.T) {
	f := newFixture(t)
	dto := f.start(t)
	appID := dto.ApplicationID

	dto = f.advance(t, appID, "sales")
	if dto.CurrentStage != "verification" {
		t.Fatalf("stage=%s", dto.CurrentStage)
	}
	dto = f.advance(t, appID, "verification")
	if dto.KycStatus != "VERIFIED" || dto.CurrentStage != "underwriting" {
		t.Fatalf("kyc=%s stage=%s", dto.KycStatus, dto.CurrentStage)
	}
	dto = f.advance(t, appID, "underwriting")
	if dto.LatestResult == nil || dto.LatestResult.Decision != "APPROVE" {
		t.Fatalf("result=%+v", dto.LatestResult)
	}
	if dto.LatestResult.EMI == nil || *dto.LatestResult.EMI < 23_072 || *dto.LatestResult.EMI > 23_074 {
		t.Fatalf("emi=%v", dto.LatestResult.EMI)
	}
	dto = f.advance(t, appID, "sanction")

	if !dto.Terminal {
		t.Fatal("application should be terminal after sanction")
	}
	if dto.Sanction == nil || dto.Sanction.ReferenceNumber != dto.LatestResult.ReferenceNumber {
		t.Fatalf("sanction=%+v result=%+v", dto.Sanction, dto.LatestResult)
	}
	if !strings.HasSuffix(dto.Sanction.DocumentURL, ".pdf") {
		t.Fatalf("document url=%s", dto.Sanction.DocumentURL)
	}
	if got := stateOf(dto, "master").Status; got != "completed" {
		t.Fatalf("master status=%s", got)
	}

	// Terminal application accepts no further transitions.
	_, err := f.uc.Advance(context.Background(), AdvanceInput{ApplicationID: appID, AgentType: "sanction"})
	if !errors.Is(err, application.ErrStaleApplication) {
		t.Fatalf("err=%v, want ErrStaleApplication", err)
	}
}

func TestAdvance_AuditCountMonotonic(t *testing.T) {
	f := newFixture(t)
	dto := f.start(t)
	appID := dto.ApplicationID

	var prev int64
	for _, stage := range []string{"sales", "verification", "underwriting", "sanction"} {
		f.advance(t, appID, stage)
		n, _ := f.logs.CountAudit(context.Background(), appID)
		if n <= prev {
			t.Fatalf("audit count after %s = %d, not greater than %d", stage, n, prev)
		}
		prev = n
	}

	// Repeated queries return identical entries.
	a, _ := f.uc.AuditTrail(context.Background(), appID, "", "")
	b, _ := f.uc.AuditTrail(context.Background(), appID, "", "")
	if len(a) != len(b) {
		t.Fatalf("audit query not stable: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("audit entry %d changed between queries", i)
		}
	}
}

func TestAdvance_VerificationPendingHoldsStage(t *testing.T) {
	f := newFixture(t)
	f.verifier.out = &kyc.Outcome{
		Kyc:    verification.Result{Status: verification.StatusPending, Mismatches: []string{"name"}},
		Bureau: &verification.BureauReport{CustomerID: custID, Score: 800, PreApprovedLimit: 600_000},
	}
	dto := f.start(t)
	appID := dto.ApplicationID
	f.advance(t, appID, "sales")

	dto = f.advance(t, appID, "verification")
	if dto.CurrentStage != "verification" {
		t.Fatalf("stage=%s, pending KYC must not advance", dto.CurrentStage)
	}
	if got := stateOf(dto, "verification").Status; got != "waiting" {
		t.Fatalf("verification status=%s, want waiting", got)
	}

	// Manual review resolves; the same stage advances this time.
	f.verifier.out = verifiedOutcome(800, 600_000)
	dto = f.advance(t, appID, "verification")
	if dto.CurrentStage != "underwriting" {
		t.Fatalf("stage=%s after resolved KYC", dto.CurrentStage)
	}
}

func TestAdvance_VerificationFailureIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.verifier.out = &kyc.Outcome{
		Kyc: verification.Result{Status: verification.StatusFailed, Mismatches: []string{"name", "phone"}},
	}
	dto := f.start(t)
	f.advance(t, dto.ApplicationID, "sales")

	got := f.advance(t, dto.ApplicationID, "verification")
	if !got.Terminal {
		t.Fatal("failed KYC must halt the pipeline")
	}
	if s := stateOf(got, "verification").Status; s != "error" {
		t.Fatalf("verification status=%s", s)
	}
}

func TestAdvance_VerificationUnavailableIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.verifier.err = errors.New("kyc gateway timeout")
	dto := f.start(t)
	appID := dto.ApplicationID
	f.advance(t, appID, "sales")

	_, err := f.uc.Advance(context.Background(), AdvanceInput{ApplicationID: appID, AgentType: "verification"})
	if !errors.Is(err, application.ErrVerificationUnavailable) {
		t.Fatalf("err=%v, want ErrVerificationUnavailable", err)
	}
	status, _ := f.uc.Status(context.Background(), appID)
	if s := stateOf(status, "verification").Status; s != "error" {
		t.Fatalf("verification status=%s, want error", s)
	}
	if status.Terminal {
		t.Fatal("unavailable verification must stay retryable, not terminal")
	}

	// The outage clears; re-invoking the same stage succeeds.
	f.verifier.err = nil
	got := f.advance(t, appID, "verification")
	if got.CurrentStage != "underwriting" {
		t.Fatalf("stage=%s after retry", got.CurrentStage)
	}
}

func TestAdvance_RejectLeavesNoSanctionLetter(t *testing.T) {
	f := newFixture(t)
	f.verifier.out = verifiedOutcome(500, 600_000) // poor band
	dto := f.start(t)
	appID := dto.ApplicationID
	f.advance(t, appID, "sales")
	f.advance(t, appID, "verification")

	got := f.advance(t, appID, "underwriting")
	if got.LatestResult == nil || got.LatestResult.Decision != "REJECT" {
		t.Fatalf("result=%+v", got.LatestResult)
	}
	if !strings.Contains(got.LatestResult.Reason, "poor") {
		t.Fatalf("reason must reference the credit band: %q", got.LatestResult.Reason)
	}
	if !got.Terminal || got.Sanction != nil {
		t.Fatalf("terminal=%v sanction=%+v", got.Terminal, got.Sanction)
	}
}

func TestAdvance_FailureOutcomeHaltsPipeline(t *testing.T) {
	f := newFixture(t)
	dto := f.start(t)

	got, err := f.uc.Advance(context.Background(), AdvanceInput{
		ApplicationID: dto.ApplicationID, AgentType: "sales", Outcome: OutcomeFailure, Reason: "customer withdrew",
	})
	if err != nil {
		t.Fatalf("Advance err: %v", err)
	}
	if !got.Terminal {
		t.Fatal("failure outcome must halt the pipeline")
	}
	if s := stateOf(got, "sales"); s.Status != "error" || s.LastAction != "customer withdrew" {
		t.Fatalf("sales state=%+v", s)
	}
}

func TestAdvance_ConcurrentSameStageSingleWinner(t *testing.T) {
	f := newFixture(t)
	dto := f.start(t)
	appID := dto.ApplicationID
	ctx := context.Background()

	// Interleave a competing advance between the caller's unlocked stage
	// check and its commit. The competitor takes the row lock and completes
	// sales first; the caller must then lose at the in-transaction re-check.
	f.uow.WithinApplicationTxFn = func(ctx context.Context, applicationID string, fn func(r uow.Repos, a *application.Application) error) error {
		f.uow.WithinApplicationTxFn = nil
		if _, err := f.uc.Advance(ctx, AdvanceInput{ApplicationID: applicationID, AgentType: "sales", Outcome: OutcomeSuccess}); err != nil {
			t.Fatalf("competing Advance err: %v", err)
		}
		a, err := f.apps.GetByApplicationIDForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		return fn(uow.Repos{Applications: f.apps, Logs: f.logs}, a)
	}

	_, err := f.uc.Advance(ctx, AdvanceInput{ApplicationID: appID, AgentType: "sales", Outcome: OutcomeSuccess})
	if !errors.Is(err, application.ErrOutOfOrderTransition) {
		t.Fatalf("err=%v, want ErrOutOfOrderTransition", err)
	}

	entries, err := f.uc.AuditTrail(ctx, appID, "sales", "")
	if err != nil {
		t.Fatalf("AuditTrail err: %v", err)
	}
	completed := 0
	for _, e := range entries {
		if e.Action == "STAGE_COMPLETED" {
			completed++
		}
	}
	if completed != 1 {
		t.Fatalf("sales STAGE_COMPLETED audited %d times, want exactly 1", completed)
	}
	status, _ := f.uc.Status(ctx, appID)
	if status.CurrentStage != "verification" {
		t.Fatalf("stage=%s after single completion", status.CurrentStage)
	}
}

func TestAdvance_CancelledBeforeCommitIsStale(t *testing.T) {
	f := newFixture(t)
	dto := f.start(t)
	appID := dto.ApplicationID
	ctx := context.Background()

	// A cancel lands after the caller's unlocked terminal check but before
	// its commit; the locked re-check must refuse the transition.
	f.uow.WithinApplicationTxFn = func(ctx context.Context, applicationID string, fn func(r uow.Repos, a *application.Application) error) error {
		f.uow.WithinApplicationTxFn = nil
		if _, err := f.uc.Cancel(ctx, applicationID); err != nil {
			t.Fatalf("competing Cancel err: %v", err)
		}
		a, err := f.apps.GetByApplicationIDForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		return fn(uow.Repos{Applications: f.apps, Logs: f.logs}, a)
	}

	_, err := f.uc.Advance(ctx, AdvanceInput{ApplicationID: appID, AgentType: "sales", Outcome: OutcomeSuccess})
	if !errors.Is(err, application.ErrStaleApplication) {
		t.Fatalf("err=%v, want ErrStaleApplication", err)
	}
	entries, _ := f.uc.AuditTrail(ctx, appID, "sales", "")
	for _, e := range entries {
		if e.Action == "STAGE_COMPLETED" {
			t.Fatal("losing advance must not audit a stage completion")
		}
	}
}

func TestCancel_IdempotentAndPreservesCompletedStages(t *testing.T) {
	f := newFixture(t)
	dto := f.start(t)
	appID := dto.ApplicationID
	f.advance(t, appID, "sales")

	got, err := f.uc.Cancel(context.Background(), appID)
	if err != nil {
		t.Fatalf("Cancel err: %v", err)
	}
	if !got.Terminal {
		t.Fatal("cancel must mark the application terminal")
	}
	if s := stateOf(got, "sales").Status; s != "completed" {
		t.Fatalf("completed sales must not be rolled back, got %s", s)
	}
	if s := stateOf(got, "verification"); s.Status != "error" || s.LastAction != "cancelled" {
		t.Fatalf("verification state=%+v", s)
	}

	before, _ := f.logs.CountAudit(context.Background(), appID)
	if _, err := f.uc.Cancel(context.Background(), appID); err != nil {
		t.Fatalf("second Cancel err: %v", err)
	}
	after, _ := f.logs.CountAudit(context.Background(), appID)
	if after != before {
		t.Fatalf("second cancel appended audit entries: %d -> %d", before, after)
	}
}

func TestStatus_UnknownApplication(t *testing.T) {
	f := newFixture(t)
	if _, err := f.uc.Status(context.Background(), "ffffffffffffffffffffffffffffffff"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}
