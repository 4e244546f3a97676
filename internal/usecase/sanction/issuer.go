package sanction

import (
	"fmt"
	"time"

	"loanflow/internal/domain/application"
	"loanflow/internal/usecase/underwriting"
)

// previewMonths is how much of the schedule rides along in the sanction
// audit metadata; the full schedule stays lazy.
const previewMonths = 6

// Issuer produces the sanction letter for an approved decision. The letter
// reuses the decision's reference number, so issuance is stable across
// identical re-decisions.
type Issuer struct{}

func NewIssuer() *Issuer { return &Issuer{} }

type Letter struct {
	Record          application.SanctionLetter
	SchedulePreview []underwriting.Row
}

func (i *Issuer) Issue(applicationID, referenceNumber string, terms underwriting.LoanTerms, now time.Time) *Letter {
	return &Letter{
		Record: application.SanctionLetter{
			ApplicationID:   applicationID,
			ReferenceNumber: referenceNumber,
			DocumentURL:     fmt.Sprintf("/api/sanction/%s.pdf", referenceNumber),
			GeneratedAt:     now.UTC(),
		},
		SchedulePreview: terms.Take(previewMonths),
	}
}
