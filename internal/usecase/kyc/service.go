package kyc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"loanflow/internal/domain/customer"
	"loanflow/internal/domain/verification"
)

// Service normalizes the two external lookups (CRM identity record, credit
// bureau report) into a single verification outcome.
type Service struct {
	provider verification.KycProvider
	bureau   verification.CreditBureau
}

func NewService(provider verification.KycProvider, bureau verification.CreditBureau) *Service {
	return &Service{provider: provider, bureau: bureau}
}

type Outcome struct {
	Kyc    verification.Result
	Bureau *verification.BureauReport
}

// Verify fetches the CRM record and bureau report concurrently, then applies
// the field-matching policy. Lookup failures surface as ErrUnavailable; a
// customer missing from the CRM is a FAILED verification, not an error.
func (s *Service) Verify(ctx context.Context, in verification.Identity) (*Outcome, error) {
	var (
		rec      *customer.CrmRecord
		rep      *verification.BureauReport
		notFound bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.provider.Lookup(gctx, in.CustomerID)
		switch {
		case err == nil:
			rec = r
			return nil
		case errors.Is(err, customer.ErrNotFound):
			notFound = true
			return nil
		default:
			return fmt.Errorf("kyc lookup: %w: %v", verification.ErrUnavailable, err)
		}
	})
	g.Go(func() error {
		r, err := s.bureau.Report(gctx, in.CustomerID)
		if err != nil {
			return fmt.Errorf("bureau lookup: %w: %v", verification.ErrUnavailable, err)
		}
		rep = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if notFound {
		return &Outcome{
			Kyc:    verification.Result{Status: verification.StatusFailed, Mismatches: []string{"customer not found in CRM"}},
			Bureau: rep,
		}, nil
	}

	return &Outcome{Kyc: match(in, rec), Bureau: rep}, nil
}

// match compares stated identity against the CRM record. Zero mismatches is
// VERIFIED, two or more is FAILED, one lands in PENDING for manual review so
// minor data-entry differences don't reject outright.
func match(in verification.Identity, rec *customer.CrmRecord) verification.Result {
	var mismatches []string
	if normalize(in.Name) != normalize(rec.Name) {
		mismatches = append(mismatches, "name")
	}
	if normalizePhone(in.Phone) != normalizePhone(rec.Phone) {
		mismatches = append(mismatches, "phone")
	}
	if !addressMatches(in.Address, rec) {
		mismatches = append(mismatches, "address")
	}

	status := verification.StatusVerified
	switch {
	case len(mismatches) >= 2:
		status = verification.StatusFailed
	case len(mismatches) == 1:
		status = verification.StatusPending
	}
	return verification.Result{Status: status, Mismatches: mismatches}
}

// normalize lowercases and collapses internal whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func normalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, s)
}

// addressMatches accepts the full normalized address, or an address carrying
// the CRM city or pincode (abbreviated addresses are common in the wizard).
func addressMatches(stated string, rec *customer.CrmRecord) bool {
	got := normalize(stated)
	if got == normalize(rec.Address) {
		return true
	}
	if rec.City != "" && strings.Contains(got, normalize(rec.City)) {
		return true
	}
	if rec.Pincode != "" && strings.Contains(got, rec.Pincode) {
		return true
	}
	return false
}
