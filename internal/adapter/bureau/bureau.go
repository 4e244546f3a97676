package bureau

import (
	"context"
	"math"
	"strings"
	"sync"

	"loanflow/internal/domain/customer"
	"loanflow/internal/domain/verification"
	"loanflow/pkg/id"
)

// CrmKycProvider serves identity lookups straight from the CRM store. A
// production deployment would swap this for an HTTP client against the
// KYC vendor; the interface hides which one is wired.
type CrmKycProvider struct {
	customers customer.Repository
}

func NewCrmKycProvider(customers customer.Repository) *CrmKycProvider {
	return &CrmKycProvider{customers: customers}
}

func (p *CrmKycProvider) Lookup(ctx context.Context, customerID string) (*customer.CrmRecord, error) {
	return p.customers.GetCrmRecord(ctx, customerID)
}

// StoreCreditBureau derives bureau reports from the customer snapshot.
type StoreCreditBureau struct {
	customers customer.Repository
}

func NewStoreCreditBureau(customers customer.Repository) *StoreCreditBureau {
	return &StoreCreditBureau{customers: customers}
}

func (b *StoreCreditBureau) Report(ctx context.Context, customerID string) (*verification.BureauReport, error) {
	c, err := b.customers.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &verification.BureauReport{
		CustomerID:       c.CustomerID,
		Score:            c.CreditScore,
		PreApprovedLimit: c.PreApprovedLimit,
	}, nil
}

// StatementParser resolves salary statements by document reference from a
// registry populated at upload time. An unknown reference is not an error;
// it yields an unparsed statement and the engine falls back to the
// customer record.
type StatementParser struct {
	mu         sync.RWMutex
	statements map[string]verification.SalaryStatement
}

func NewStatementParser() *StatementParser {
	return &StatementParser{statements: make(map[string]verification.SalaryStatement)}
}

// Register stores the parsed content for a document reference, replacing
// any previous registration.
func (p *StatementParser) Register(fileRef string, s verification.SalaryStatement) {
	s.Parsed = true
	p.mu.Lock()
	p.statements[strings.TrimSpace(fileRef)] = s
	p.mu.Unlock()
}

func (p *StatementParser) Parse(ctx context.Context, fileRef string) (*verification.SalaryStatement, error) {
	p.mu.RLock()
	s, ok := p.statements[strings.TrimSpace(fileRef)]
	p.mu.RUnlock()
	if !ok {
		return &verification.SalaryStatement{Parsed: false}, nil
	}
	return &s, nil
}

// SalaryExtractor stands in for the document-OCR vendor: it derives a
// statement from the customer snapshot and registers it with the parser
// registry, so a later underwriting pass resolves the same reference.
type SalaryExtractor struct {
	customers customer.Repository
	parser    *StatementParser
}

func NewSalaryExtractor(customers customer.Repository, parser *StatementParser) *SalaryExtractor {
	return &SalaryExtractor{customers: customers, parser: parser}
}

// Extract returns the document reference the statement was registered
// under; a fresh reference is minted when the caller supplies none.
// Gross income is estimated at 1.3x net, rounded to the rupee.
func (e *SalaryExtractor) Extract(ctx context.Context, customerID, fileRef string) (string, *verification.SalaryStatement, error) {
	c, err := e.customers.GetByCustomerID(ctx, customerID)
	if err != nil {
		return "", nil, err
	}

	net := c.MonthlyNetSalary
	if net <= 0 {
		net = 50_000
	}
	employer := "Agentic Technologies Pvt. Ltd."
	if c.EmploymentType == "Self-Employed" {
		employer = "Self-Employed"
	}

	fileRef = strings.TrimSpace(fileRef)
	if fileRef == "" {
		fileRef = id.NewID32()
	}
	stmt := verification.SalaryStatement{
		GrossIncome: math.Round(net * 1.3),
		NetIncome:   net,
		Employer:    employer,
		Parsed:      true,
	}
	e.parser.Register(fileRef, stmt)
	return fileRef, &stmt, nil
}
