package customer

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("customer not found")

// Customer is a financial snapshot fetched once per application and never
// mutated by the orchestrator.
type Customer struct {
	ID                 uint64    `gorm:"primaryKey;column:id" json:"-"`
	CustomerID         string    `gorm:"size:32;uniqueIndex:ux_customers_customer_id" json:"customer_id"`
	Name               string    `gorm:"size:128" json:"name"`
	Age                int       `json:"age"`
	City               string    `gorm:"size:64" json:"city"`
	Phone              string    `gorm:"size:32" json:"phone"`
	Email              string    `gorm:"size:128" json:"email"`
	EmploymentType     string    `gorm:"size:32" json:"employment_type"`
	ExistingLoan       bool      `json:"existing_loan"`
	ExistingLoanAmount float64   `gorm:"type:decimal(18,2)" json:"existing_loan_amount"`
	CreditScore        int       `json:"credit_score"`
	PreApprovedLimit   float64   `gorm:"type:decimal(18,2)" json:"pre_approved_limit"`
	MonthlyNetSalary   float64   `gorm:"type:decimal(18,2)" json:"monthly_net_salary"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (Customer) TableName() string { return "customers" }

// CrmRecord is the identity record the KYC lookup matches against.
type CrmRecord struct {
	ID         uint64    `gorm:"primaryKey;column:id" json:"-"`
	CustomerID string    `gorm:"size:32;uniqueIndex:ux_crm_records_customer_id" json:"customer_id"`
	Name       string    `gorm:"size:128" json:"name"`
	Phone      string    `gorm:"size:32" json:"phone"`
	Address    string    `gorm:"type:text" json:"address"`
	Pincode    string    `gorm:"size:16" json:"pincode"`
	City       string    `gorm:"size:64" json:"city"`
	DOB        string    `gorm:"size:16" json:"dob"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"-"`
}

func (CrmRecord) TableName() string { return "crm_records" }
