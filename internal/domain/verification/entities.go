package verification

import (
	"context"
	"errors"

	"loanflow/internal/domain/customer"
)

type KYCStatus string

const (
	StatusVerified KYCStatus = "VERIFIED"
	StatusPending  KYCStatus = "PENDING"
	StatusFailed   KYCStatus = "FAILED"
)

// ErrUnavailable signals an external lookup failure (timeout, service
// error). The stage is retryable; the orchestrator does not auto-retry.
var ErrUnavailable = errors.New("external verification lookup unavailable")

// Identity is what the applicant stated, compared against the CRM record.
type Identity struct {
	CustomerID string
	Name       string
	Phone      string
	Address    string
}

// Result is the normalized KYC outcome. Status is VERIFIED only when the
// mismatch list is empty, FAILED at two or more mismatches, PENDING
// otherwise (manual review).
type Result struct {
	Status     KYCStatus
	Mismatches []string
}

// BureauReport carries the credit bureau response. Score is valid in
// [0,900]; anything else fails the underwriting precondition.
type BureauReport struct {
	CustomerID       string
	Score            int
	PreApprovedLimit float64
}

// SalaryStatement is the parsed salary document. Parsed=false means the
// engine must fall back to the customer record's net salary.
type SalaryStatement struct {
	GrossIncome float64
	NetIncome   float64
	Employer    string
	Parsed      bool
}

// KycProvider resolves the CRM identity record for a customer.
type KycProvider interface {
	Lookup(ctx context.Context, customerID string) (*customer.CrmRecord, error)
}

// CreditBureau resolves score and pre-approved limit for a customer.
type CreditBureau interface {
	Report(ctx context.Context, customerID string) (*BureauReport, error)
}

// SalaryParser extracts income data from an uploaded document reference.
type SalaryParser interface {
	Parse(ctx context.Context, fileRef string) (*SalaryStatement, error)
}
