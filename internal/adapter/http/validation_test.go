package http

import (
	"errors"
	"strings"
	"testing"
)

func TestHex32Validation(t *testing.T) {
	type P struct {
		CustomerID string `validate:"hex32"`
	}
	cv := NewValidator()

	// valid: 32-char lowercase hex
	ok := P{CustomerID: strings.Repeat("a", 32)}
	if err := cv.Validate(ok); err != nil {
		t.Fatalf("expected valid hex32, got err: %v", err)
	}

	// invalid samples
	for _, s := range []string{
		"",                                  // empty
		strings.Repeat("A", 32),             // uppercase
		"deadbeef",                          // too short
		strings.Repeat("g", 32),             // non-hex char
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c8",   // 31 chars
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c88x", // 33 with extra
	} {
		bad := P{CustomerID: s}
		err := cv.Validate(bad)
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		fe := ToFieldErrors(err)
		found := false
		for _, e := range fe {
			if e.Field == "CustomerID" && strings.Contains(e.Message, "32-char lowercase hex") {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected hex32 message for %q, got: %+v", s, fe)
		}
	}
}

func TestDec2Validation(t *testing.T) {
	type P struct {
		Rate float64 `validate:"dec2"`
	}
	cv := NewValidator()

	for _, v := range []float64{10.25, 2.00, 0.9, 1.2} {
		if err := cv.Validate(P{Rate: v}); err != nil {
			t.Fatalf("expected dec2 OK for %v, got %v", v, err)
		}
	}
	for _, v := range []float64{1.234, 2.9999} {
		err := cv.Validate(P{Rate: v})
		if err == nil {
			t.Fatalf("expected dec2 error for %v", v)
		}
		fe := ToFieldErrors(err)
		if !containsFieldMsg(fe, "Rate", "at most 2 decimal places") {
			t.Fatalf("expected 'at most 2 decimal places' for %v, got %+v", v, fe)
		}
	}
}

func TestRequiredAndBoundsMapping(t *testing.T) {
	type P struct {
		Name   string  `validate:"required"`
		Tenure int     `validate:"gte=6"`
		Max    int     `validate:"lte=84"`
		Rate   float64 `validate:"dec2,gte=0,lte=100"`
	}
	cv := NewValidator()

	// Intentionally violate all
	err := cv.Validate(P{
		Name:   "",      // required
		Tenure: 5,       // gte=6
		Max:    90,      // lte=84
		Rate:   10.333,  // dec2 + lte could both fail, dec2 triggers first
	})
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	fe := ToFieldErrors(err)

	// required
	if !containsFieldMsg(fe, "Name", "is required") {
		t.Fatalf("missing 'is required' for Name: %+v", fe)
	}
	// gte
	if !containsFieldMsg(fe, "Tenure", "greater than or equal to 6") {
		t.Fatalf("missing gte message for Tenure: %+v", fe)
	}
	// lte
	if !containsFieldMsg(fe, "Max", "less than or equal to 84") {
		t.Fatalf("missing lte message for Max: %+v", fe)
	}
	// dec2 mapping should show for Rate
	if !containsFieldMsg(fe, "Rate", "at most 2 decimal places") {
		t.Fatalf("missing dec2 message for Rate: %+v", fe)
	}
}

func TestToFieldErrors_NonValidation(t *testing.T) {
	err := errors.New("boom")
	fe := ToFieldErrors(err)
	if len(fe) != 1 {
		t.Fatalf("expected 1 field error, got %d", len(fe))
	}
	if fe[0].Field != "_" || fe[0].Message != "boom" {
		t.Fatalf("unexpected mapping: %+v", fe[0])
	}
}
