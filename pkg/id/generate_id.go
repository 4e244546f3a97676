package id

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// DecisionRef derives an underwriting reference number from the decision
// inputs. The same inputs always yield the same reference, so re-running a
// decision never mints a second number for the same application.
// Format: "UW" + 12 uppercase hex chars.
func DecisionRef(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "UW" + strings.ToUpper(hex.EncodeToString(sum[:6]))
}
