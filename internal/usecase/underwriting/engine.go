package underwriting

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"loanflow/internal/domain/application"
	"loanflow/internal/domain/verification"
	"loanflow/pkg/id"
)

// Band is the coarse risk category derived from a credit score.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandFair      Band = "fair"
	BandPoor      Band = "poor"
)

// BandFor maps a credit score to its band: excellent >=750, good 650-749,
// fair 550-649, poor below 550.
func BandFor(score int) Band {
	switch {
	case score >= 750:
		return BandExcellent
	case score >= 650:
		return BandGood
	case score >= 550:
		return BandFair
	default:
		return BandPoor
	}
}

type Config struct {
	// DTIRatio is the EMI-to-net-salary ceiling.
	DTIRatio float64
	// ExcellentLimitMultiplier lets the excellent band exceed the
	// pre-approved limit up to limit*multiplier.
	ExcellentLimitMultiplier float64
}

func DefaultConfig() Config {
	return Config{DTIRatio: 0.5, ExcellentLimitMultiplier: 1.2}
}

// Engine is a pure decision function: no I/O, no clock, no randomness.
// Identical inputs always produce an identical Result, reference number
// included.
type Engine struct{ cfg Config }

func NewEngine(cfg Config) *Engine {
	if cfg.DTIRatio <= 0 {
		cfg.DTIRatio = 0.5
	}
	if cfg.ExcellentLimitMultiplier <= 0 {
		cfg.ExcellentLimitMultiplier = 1.2
	}
	return &Engine{cfg: cfg}
}

type Input struct {
	CustomerID   string
	Amount       float64
	TenureMonths int
	AnnualRate   float64

	KycStatus        verification.KYCStatus
	CreditScore      int
	PreApprovedLimit float64

	// CustomerNetSalary is the fallback when no parsed salary statement
	// is available.
	CustomerNetSalary float64
	Salary            *verification.SalaryStatement
}

type Result struct {
	Decision        application.Decision
	Reason          string
	RequiredAction  string
	Band            Band
	EMI             float64
	TotalAmount     float64
	ReferenceNumber string
}

var errNonPositiveRate = errors.New("non-positive interest rate")

// EMI computes the reducing-balance installment:
// P*r*(1+r)^n / ((1+r)^n - 1) with r = annualRate/12/100.
func EMI(principal, annualRate float64, tenureMonths int) (float64, error) {
	if tenureMonths <= 0 {
		return 0, fmt.Errorf("invalid tenure %d", tenureMonths)
	}
	if annualRate <= 0 {
		return 0, errNonPositiveRate
	}
	r := annualRate / 12 / 100
	pow := math.Pow(1+r, float64(tenureMonths))
	emi := principal * r * pow / (pow - 1)
	if math.IsNaN(emi) || math.IsInf(emi, 0) {
		return 0, fmt.Errorf("non-finite EMI for rate %.4f tenure %d", annualRate, tenureMonths)
	}
	return emi, nil
}

// Decide applies the underwriting rules. Computation edge cases resolve to
// PENDING with a diagnostic reason, never to a silent APPROVE.
func (e *Engine) Decide(in Input) Result {
	ref := e.referenceFor(in)

	if in.KycStatus != verification.StatusVerified {
		return Result{
			Decision:        application.DecisionPending,
			Reason:          fmt.Sprintf("KYC status is %s; underwriting requires a verified identity.", in.KycStatus),
			RequiredAction:  "complete KYC",
			ReferenceNumber: ref,
		}
	}

	if in.CreditScore < 0 || in.CreditScore > 900 {
		return Result{
			Decision:        application.DecisionPending,
			Reason:          fmt.Sprintf("Credit score %d is outside the valid range [0,900].", in.CreditScore),
			RequiredAction:  "obtain a valid credit bureau report",
			ReferenceNumber: ref,
		}
	}
	band := BandFor(in.CreditScore)

	rawEMI, err := EMI(in.Amount, in.AnnualRate, in.TenureMonths)
	if err != nil {
		return Result{
			Decision:        application.DecisionPending,
			Reason:          fmt.Sprintf("EMI could not be computed: %v.", err),
			RequiredAction:  "review loan terms",
			Band:            band,
			ReferenceNumber: ref,
		}
	}
	emi := round2(rawEMI)
	total := round2(emi * float64(in.TenureMonths))

	salary := e.resolveSalary(in)
	if salary <= 0 {
		return Result{
			Decision:        application.DecisionPending,
			Reason:          "Salary data unavailable: no parsed statement and no customer net salary on record.",
			RequiredAction:  "upload a salary statement",
			Band:            band,
			EMI:             emi,
			TotalAmount:     total,
			ReferenceNumber: ref,
		}
	}

	if band == BandPoor {
		return Result{
			Decision:        application.DecisionReject,
			Reason:          fmt.Sprintf("Credit band %q (score %d) does not qualify for unsecured lending.", band, in.CreditScore),
			RequiredAction:  "improve credit score and reapply",
			Band:            band,
			EMI:             emi,
			TotalAmount:     total,
			ReferenceNumber: ref,
		}
	}

	if emi > e.cfg.DTIRatio*salary {
		pct := emi / salary * 100
		return Result{
			Decision:        application.DecisionReject,
			Reason:          fmt.Sprintf("EMI %.2f would be %.1f%% of monthly net salary, exceeding the %.0f%% ceiling.", emi, pct, e.cfg.DTIRatio*100),
			RequiredAction:  "lower the amount or extend the tenure",
			Band:            band,
			EMI:             emi,
			TotalAmount:     total,
			ReferenceNumber: ref,
		}
	}

	if in.Amount > in.PreApprovedLimit {
		ceiling := in.PreApprovedLimit
		if band == BandExcellent {
			ceiling = in.PreApprovedLimit * e.cfg.ExcellentLimitMultiplier
		}
		if in.Amount > ceiling {
			return Result{
				Decision:        application.DecisionReject,
				Reason:          fmt.Sprintf("Amount %.2f exceeds the eligible ceiling %.2f for credit band %q.", in.Amount, ceiling, band),
				RequiredAction:  "request an amount within the pre-approved limit",
				Band:            band,
				EMI:             emi,
				TotalAmount:     total,
				ReferenceNumber: ref,
			}
		}
	}

	return Result{
		Decision:        application.DecisionApprove,
		Reason:          fmt.Sprintf("Approved in credit band %q: EMI %.2f is within affordability and limit checks.", band, emi),
		RequiredAction:  "proceed to sanction letter generation",
		Band:            band,
		EMI:             emi,
		TotalAmount:     total,
		ReferenceNumber: ref,
	}
}

func (e *Engine) resolveSalary(in Input) float64 {
	if in.Salary != nil && in.Salary.Parsed && in.Salary.NetIncome > 0 {
		return in.Salary.NetIncome
	}
	return in.CustomerNetSalary
}

// referenceFor is content-addressed over the canonical decision inputs so a
// re-decision with identical inputs keeps its reference number.
func (e *Engine) referenceFor(in Input) string {
	salary := strconv.FormatFloat(e.resolveSalary(in), 'f', 2, 64)
	return id.DecisionRef(
		in.CustomerID,
		strconv.FormatFloat(in.Amount, 'f', 2, 64),
		strconv.Itoa(in.TenureMonths),
		strconv.FormatFloat(in.AnnualRate, 'f', 3, 64),
		string(in.KycStatus),
		strconv.Itoa(in.CreditScore),
		strconv.FormatFloat(in.PreApprovedLimit, 'f', 2, 64),
		salary,
	)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
