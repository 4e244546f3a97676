package kyc

import (
	"context"
	"errors"
	"testing"

	"loanflow/internal/domain/customer"
	"loanflow/internal/domain/verification"
)

// ----- test doubles -----

type mockProvider struct {
	LookupFn func(ctx context.Context, customerID string) (*customer.CrmRecord, error)
}

func (m *mockProvider) Lookup(ctx context.Context, customerID string) (*customer.CrmRecord, error) {
	return m.LookupFn(ctx, customerID)
}

type mockBureau struct {
	ReportFn func(ctx context.Context, customerID string) (*verification.BureauReport, error)
}

func (m *mockBureau) Report(ctx context.Context, customerID string) (*verification.BureauReport, error) {
	if m.ReportFn != nil {
		return m.ReportFn(ctx, customerID)
	}
	return &verification.BureauReport{CustomerID: customerID, Score: 720, PreApprovedLimit: 150_000}, nil
}

func crmFixture() *customer.CrmRecord {
	return &customer.CrmRecord{
		CustomerID: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Name:       "Anita Verma",
		Phone:      "+91-9810000001",
		Address:    "14 Lodhi Road, Delhi 110003",
		Pincode:    "110003",
		City:       "Delhi",
	}
}

func service(rec *customer.CrmRecord) *Service {
	return NewService(&mockProvider{
		LookupFn: func(ctx context.Context, id string) (*customer.CrmRecord, error) { return rec, nil },
	}, &mockBureau{})
}

// ----- tests -----

func TestVerify_AllFieldsMatch(t *testing.T) {
	s := service(crmFixture())
	out, err := s.Verify(context.Background(), verification.Identity{
		CustomerID: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Name:       "  anita   VERMA ", // case + whitespace must not matter
		Phone:      "+91 98100 00001",
		Address:    "14 Lodhi Road, Delhi 110003",
	})
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if out.Kyc.Status != verification.StatusVerified {
		t.Fatalf("status=%s mismatches=%v", out.Kyc.Status, out.Kyc.Mismatches)
	}
	if out.Bureau == nil || out.Bureau.Score != 720 {
		t.Fatalf("bureau report missing or wrong: %+v", out.Bureau)
	}
}

func TestVerify_SingleMismatchIsPending(t *testing.T) {
	s := service(crmFixture())
	out, err := s.Verify(context.Background(), verification.Identity{
		CustomerID: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Name:       "Anita Sharma", // wrong
		Phone:      "+91-9810000001",
		Address:    "Delhi",
	})
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if out.Kyc.Status != verification.StatusPending {
		t.Fatalf("status=%s, want PENDING", out.Kyc.Status)
	}
	if len(out.Kyc.Mismatches) != 1 || out.Kyc.Mismatches[0] != "name" {
		t.Fatalf("mismatches=%v", out.Kyc.Mismatches)
	}
}

func TestVerify_TwoMismatchesFail(t *testing.T) {
	s := service(crmFixture())
	out, err := s.Verify(context.Background(), verification.Identity{
		CustomerID: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Name:       "Someone Else",
		Phone:      "+91-9999999999",
		Address:    "Delhi",
	})
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if out.Kyc.Status != verification.StatusFailed {
		t.Fatalf("status=%s, want FAILED", out.Kyc.Status)
	}
	if len(out.Kyc.Mismatches) != 2 {
		t.Fatalf("mismatches=%v", out.Kyc.Mismatches)
	}
}

func TestVerify_AddressAcceptsCityOrPincode(t *testing.T) {
	s := service(crmFixture())
	for _, addr := range []string{"flat 3, somewhere in DELHI", "house 9, 110003"} {
		out, err := s.Verify(context.Background(), verification.Identity{
			CustomerID: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			Name:       "Anita Verma",
			Phone:      "+91-9810000001",
			Address:    addr,
		})
		if err != nil {
			t.Fatalf("Verify err: %v", err)
		}
		if out.Kyc.Status != verification.StatusVerified {
			t.Fatalf("addr %q: status=%s mismatches=%v", addr, out.Kyc.Status, out.Kyc.Mismatches)
		}
	}
}

func TestVerify_CustomerMissingFromCrmFails(t *testing.T) {
	s := NewService(&mockProvider{
		LookupFn: func(ctx context.Context, id string) (*customer.CrmRecord, error) {
			return nil, customer.ErrNotFound
		},
	}, &mockBureau{})

	out, err := s.Verify(context.Background(), verification.Identity{CustomerID: "x"})
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if out.Kyc.Status != verification.StatusFailed {
		t.Fatalf("status=%s, want FAILED", out.Kyc.Status)
	}
}

func TestVerify_LookupOutageSurfacesUnavailable(t *testing.T) {
	s := NewService(&mockProvider{
		LookupFn: func(ctx context.Context, id string) (*customer.CrmRecord, error) {
			return nil, errors.New("dial tcp: timeout")
		},
	}, &mockBureau{})

	_, err := s.Verify(context.Background(), verification.Identity{CustomerID: "x"})
	if !errors.Is(err, verification.ErrUnavailable) {
		t.Fatalf("err=%v, want ErrUnavailable", err)
	}
}

func TestVerify_BureauOutageSurfacesUnavailable(t *testing.T) {
	s := NewService(&mockProvider{
		LookupFn: func(ctx context.Context, id string) (*customer.CrmRecord, error) { return crmFixture(), nil },
	}, &mockBureau{
		ReportFn: func(ctx context.Context, id string) (*verification.BureauReport, error) {
			return nil, errors.New("bureau 503")
		},
	})

	_, err := s.Verify(context.Background(), verification.Identity{CustomerID: "x"})
	if !errors.Is(err, verification.ErrUnavailable) {
		t.Fatalf("err=%v, want ErrUnavailable", err)
	}
}
