package application

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// AgentType identifies a workflow stage. The master agent is an overlay
// status mirroring overall progress, never a pipeline stage itself.
type AgentType string

const (
	AgentMaster       AgentType = "master"
	AgentSales        AgentType = "sales"
	AgentVerification AgentType = "verification"
	AgentUnderwriting AgentType = "underwriting"
	AgentSanction     AgentType = "sanction"
)

type AgentStatus string

const (
	StatusIdle      AgentStatus = "idle"
	StatusActive    AgentStatus = "active"
	StatusWaiting   AgentStatus = "waiting" // active but blocked on an external input
	StatusCompleted AgentStatus = "completed"
	StatusError     AgentStatus = "error"
)

type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
	DecisionPending Decision = "PENDING"
)

// LoanRequest bounds, enforced before any stage starts.
const (
	MinAmount = 10_000.0
	MinTenure = 6
	MaxTenure = 84
)

var (
	ErrNotFound                = errors.New("application not found")
	ErrInvalidRequest          = errors.New("invalid loan request")
	ErrOutOfOrderTransition    = errors.New("stage is not currently active")
	ErrVerificationUnavailable = errors.New("verification service unavailable")
	ErrStaleApplication        = errors.New("application already terminal")
)

type Application struct {
	ID            uint64 `gorm:"primaryKey;column:id" json:"-"`
	ApplicationID string `gorm:"size:32;uniqueIndex:ux_applications_app_id_active" json:"application_id"`
	CustomerID    string `gorm:"size:32;index:idx_applications_customer" json:"customer_id"`

	// Loan request, immutable once underwriting begins.
	Amount       float64 `gorm:"type:decimal(18,2)" json:"amount"`
	TenureMonths int     `json:"tenure_months"`
	AnnualRate   float64 `gorm:"type:decimal(6,3)" json:"annual_rate"`
	Purpose      string  `gorm:"type:text" json:"purpose"`

	// Stage cursor. Terminal means the pipeline can make no further progress.
	CurrentStage AgentType `gorm:"size:16" json:"current_stage"`
	Terminal     bool      `json:"terminal"`

	// Verified data captured at the verification stage.
	KycStatus     string   `gorm:"size:16" json:"kyc_status,omitempty"`
	KycMismatches string   `gorm:"type:text" json:"-"`
	BureauScore   *int     `json:"bureau_score,omitempty"`
	BureauLimit   *float64 `gorm:"type:decimal(18,2)" json:"bureau_limit,omitempty"`

	StageUpdatedAt time.Time      `gorm:"autoCreateTime" json:"stage_updated_at"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Application) TableName() string { return "applications" }

// AgentState is overwritten in place as a stage progresses; one row per
// (application, agent type), never deleted.
type AgentState struct {
	ID            uint64      `gorm:"primaryKey;column:id" json:"-"`
	ApplicationID string      `gorm:"size:32;uniqueIndex:ux_agent_states_app_agent,priority:1" json:"application_id"`
	AgentType     AgentType   `gorm:"size:16;uniqueIndex:ux_agent_states_app_agent,priority:2" json:"agent_type"`
	Status        AgentStatus `gorm:"size:16" json:"status"`
	LastAction    string      `gorm:"type:text" json:"last_action,omitempty"`
	Progress      int         `json:"progress"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AgentState) TableName() string { return "agent_states" }

// UnderwritingResult rows are append-only; Attempt increments per decision.
type UnderwritingResult struct {
	ID              uint64    `gorm:"primaryKey;column:id" json:"-"`
	ApplicationID   string    `gorm:"size:32;index:idx_uw_results_app" json:"application_id"`
	Attempt         int       `json:"attempt"`
	Decision        Decision  `gorm:"size:16" json:"decision"`
	Reason          string    `gorm:"type:text" json:"reason"`
	RequiredAction  string    `gorm:"type:text" json:"required_action,omitempty"`
	EMI             *float64  `gorm:"type:decimal(18,2)" json:"emi,omitempty"`
	TotalAmount     *float64  `gorm:"type:decimal(18,2)" json:"total_amount,omitempty"`
	ReferenceNumber string    `gorm:"size:32" json:"reference_number,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (UnderwritingResult) TableName() string { return "underwriting_results" }

// SanctionLetter exists if and only if the latest decision is APPROVE.
type SanctionLetter struct {
	ID              uint64    `gorm:"primaryKey;column:id" json:"-"`
	ApplicationID   string    `gorm:"size:32;uniqueIndex:ux_sanction_letters_app" json:"application_id"`
	ReferenceNumber string    `gorm:"size:32;uniqueIndex:ux_sanction_letters_ref" json:"reference_number"`
	DocumentURL     string    `gorm:"type:text" json:"document_url"`
	GeneratedAt     time.Time `json:"generated_at"`
}

func (SanctionLetter) TableName() string { return "sanction_letters" }
