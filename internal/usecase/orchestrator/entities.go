package orchestrator

import "time"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type StartInput struct {
	CustomerID   string  `json:"customer_id"`
	Amount       float64 `json:"amount"`
	TenureMonths int     `json:"tenure_months"`
	AnnualRate   float64 `json:"annual_rate"`
	Purpose      string  `json:"purpose"`
}

type AdvanceInput struct {
	ApplicationID string `json:"application_id"`
	AgentType     string `json:"agent_type"`
	Outcome       string `json:"outcome"`
	Reason        string `json:"reason,omitempty"`

	// Stated identity for the verification stage; empty fields fall back
	// to the customer snapshot.
	StatedName    string `json:"stated_name,omitempty"`
	StatedPhone   string `json:"stated_phone,omitempty"`
	StatedAddress string `json:"stated_address,omitempty"`

	// Optional uploaded salary document reference for underwriting.
	SalaryFileRef string `json:"salary_file_ref,omitempty"`
}

type AgentStateDTO struct {
	AgentType  string `json:"agent_type"`
	Status     string `json:"status"`
	LastAction string `json:"last_action,omitempty"`
	Progress   int    `json:"progress"`
}

type ResultDTO struct {
	Decision        string   `json:"decision"`
	Reason          string   `json:"reason"`
	RequiredAction  string   `json:"required_action,omitempty"`
	EMI             *float64 `json:"emi,omitempty"`
	TotalAmount     *float64 `json:"total_amount,omitempty"`
	ReferenceNumber string   `json:"reference_number,omitempty"`
}

type SanctionDTO struct {
	ReferenceNumber string    `json:"reference_number"`
	DocumentURL     string    `json:"document_url"`
	GeneratedAt     time.Time `json:"generated_at"`
}

type StatusDTO struct {
	ApplicationID string          `json:"application_id"`
	CustomerID    string          `json:"customer_id"`
	Amount        float64         `json:"amount"`
	TenureMonths  int             `json:"tenure_months"`
	AnnualRate    float64         `json:"annual_rate"`
	CurrentStage  string          `json:"current_stage"`
	Terminal      bool            `json:"terminal"`
	KycStatus     string          `json:"kyc_status,omitempty"`
	AgentStates   []AgentStateDTO `json:"agent_states"`
	LatestResult  *ResultDTO      `json:"latest_result,omitempty"`
	Sanction      *SanctionDTO    `json:"sanction,omitempty"`
}
