package id

import (
	"encoding/hex"
	"regexp"
	"testing"
)

var reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

func TestNewID32_FormatAndDecode(t *testing.T) {
	got := NewID32()

	// length
	if len(got) != 32 {
		t.Fatalf("length = %d, want 32 (got=%q)", len(got), got)
	}
	// lowercase hex only (no separators/prefixes)
	if !reHex32.MatchString(got) {
		t.Fatalf("not 32-char lowercase hex: %q", got)
	}
	// decodes to exactly 16 bytes
	b, err := hex.DecodeString(got)
	if err != nil {
		t.Fatalf("hex.DecodeString error: %v", err)
	}
	if len(b) != 16 {
		t.Fatalf("decoded bytes = %d, want 16", len(b))
	}
}

func TestNewID32_Uniqueness(t *testing.T) {
	const n = 200
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := NewID32()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id after %d iterations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewID32_NoUppercaseOrHyphen(t *testing.T) {
	id := NewID32()
	for _, r := range id {
		if r >= 'A' && r <= 'Z' {
			t.Fatalf("found uppercase letter in id: %q", id)
		}
		if r == '-' {
			t.Fatalf("found hyphen in id: %q", id)
		}
	}
}

func TestDecisionRef_Deterministic(t *testing.T) {
	a := DecisionRef("c1", "500000", "24", "10.00", "VERIFIED")
	b := DecisionRef("c1", "500000", "24", "10.00", "VERIFIED")
	if a != b {
		t.Fatalf("same inputs produced different refs: %q vs %q", a, b)
	}
	if len(a) != 14 || a[:2] != "UW" {
		t.Fatalf("unexpected ref format: %q", a)
	}
}

func TestDecisionRef_DistinctInputs(t *testing.T) {
	a := DecisionRef("c1", "500000", "24", "10.00", "VERIFIED")
	b := DecisionRef("c1", "500000", "36", "10.00", "VERIFIED")
	if a == b {
		t.Fatalf("different inputs produced identical ref %q", a)
	}
}
