package seed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"loanflow/internal/domain/customer"
)

// Demo loads the synthetic customer book with matching CRM records. Safe to
// run repeatedly: customers already present are left untouched.
func Demo(ctx context.Context, repo customer.Repository) error {
	for i := range customers {
		c := customers[i]
		if _, err := repo.GetByCustomerID(ctx, c.CustomerID); err == nil {
			continue
		} else if !errors.Is(err, customer.ErrNotFound) {
			return fmt.Errorf("seed lookup %s: %w", c.CustomerID, err)
		}
		if err := repo.CreateCustomer(ctx, &c); err != nil {
			return fmt.Errorf("seed customer %s: %w", c.CustomerID, err)
		}
		rec := crmRecords[i]
		if err := repo.CreateCrmRecord(ctx, &rec); err != nil {
			return fmt.Errorf("seed crm record %s: %w", rec.CustomerID, err)
		}
	}
	return nil
}

// CustomerID derives the stable 32-hex id for a seed tag such as "CUST001".
// Demo clients use these to exercise the API without a registration flow.
func CustomerID(tag string) string {
	sum := sha256.Sum256([]byte(tag))
	return hex.EncodeToString(sum[:])[:32]
}

var customers = []customer.Customer{
	{CustomerID: CustomerID("CUST001"), Name: "Anita Verma", Age: 29, City: "Delhi", Phone: "+91-9810000001", Email: "anita.verma@example.com", EmploymentType: "Salaried", CreditScore: 720, PreApprovedLimit: 150000, MonthlyNetSalary: 65000},
	{CustomerID: CustomerID("CUST002"), Name: "Rahul Mehra", Age: 35, City: "Mumbai", Phone: "+91-9810000002", Email: "rahul.mehra@example.com", EmploymentType: "Salaried", ExistingLoan: true, ExistingLoanAmount: 250000, CreditScore: 680, PreApprovedLimit: 100000, MonthlyNetSalary: 85000},
	{CustomerID: CustomerID("CUST003"), Name: "Sneha Kapoor", Age: 42, City: "Bengaluru", Phone: "+91-9810000003", Email: "sneha.kapoor@example.com", EmploymentType: "Self-Employed", CreditScore: 790, PreApprovedLimit: 200000, MonthlyNetSalary: 120000},
	{CustomerID: CustomerID("CUST004"), Name: "Prakash Singh", Age: 31, City: "Chandigarh", Phone: "+91-9810000004", Email: "prakash.singh@example.com", EmploymentType: "Salaried", CreditScore: 695, PreApprovedLimit: 90000, MonthlyNetSalary: 40000},
	{CustomerID: CustomerID("CUST005"), Name: "Meera Nair", Age: 27, City: "Hyderabad", Phone: "+91-9810000005", Email: "meera.nair@example.com", EmploymentType: "Salaried", ExistingLoan: true, ExistingLoanAmount: 120000, CreditScore: 710, PreApprovedLimit: 110000, MonthlyNetSalary: 50000},
	{CustomerID: CustomerID("CUST006"), Name: "Aditya Rao", Age: 38, City: "Pune", Phone: "+91-9810000006", Email: "aditya.rao@example.com", EmploymentType: "Self-Employed", CreditScore: 650, PreApprovedLimit: 80000, MonthlyNetSalary: 95000},
	{CustomerID: CustomerID("CUST007"), Name: "Sunita Ghosh", Age: 45, City: "Kolkata", Phone: "+91-9810000007", Email: "sunita.ghosh@example.com", EmploymentType: "Salaried", ExistingLoan: true, ExistingLoanAmount: 500000, CreditScore: 730, PreApprovedLimit: 250000, MonthlyNetSalary: 180000},
	{CustomerID: CustomerID("CUST008"), Name: "Dev Patel", Age: 30, City: "Ahmedabad", Phone: "+91-9810000008", Email: "dev.patel@example.com", EmploymentType: "Salaried", CreditScore: 770, PreApprovedLimit: 160000, MonthlyNetSalary: 70000},
	{CustomerID: CustomerID("CUST009"), Name: "Ritika Sharma", Age: 33, City: "Jaipur", Phone: "+91-9810000009", Email: "ritika.sharma@example.com", EmploymentType: "Self-Employed", CreditScore: 640, PreApprovedLimit: 60000, MonthlyNetSalary: 55000},
	{CustomerID: CustomerID("CUST010"), Name: "Karan Verma", Age: 28, City: "Noida", Phone: "+91-9810000010", Email: "karan.verma@example.com", EmploymentType: "Salaried", CreditScore: 705, PreApprovedLimit: 95000, MonthlyNetSalary: 48000},
}

var crmRecords = []customer.CrmRecord{
	{CustomerID: CustomerID("CUST001"), Name: "Anita Verma", Phone: "+91-9810000001", Address: "123 Green Park, South Delhi", Pincode: "110016", City: "Delhi", DOB: "1995-03-15"},
	{CustomerID: CustomerID("CUST002"), Name: "Rahul Mehra", Phone: "+91-9810000002", Address: "456 Bandra West, Mumbai", Pincode: "400050", City: "Mumbai", DOB: "1989-07-22"},
	{CustomerID: CustomerID("CUST003"), Name: "Sneha Kapoor", Phone: "+91-9810000003", Address: "789 Indiranagar, Bangalore", Pincode: "560038", City: "Bengaluru", DOB: "1982-11-08"},
	{CustomerID: CustomerID("CUST004"), Name: "Prakash Singh", Phone: "+91-9810000004", Address: "101 Sector 17, Chandigarh", Pincode: "160017", City: "Chandigarh", DOB: "1993-05-30"},
	{CustomerID: CustomerID("CUST005"), Name: "Meera Nair", Phone: "+91-9810000005", Address: "202 Banjara Hills, Hyderabad", Pincode: "500034", City: "Hyderabad", DOB: "1997-09-12"},
	{CustomerID: CustomerID("CUST006"), Name: "Aditya Rao", Phone: "+91-9810000006", Address: "303 Koregaon Park, Pune", Pincode: "411001", City: "Pune", DOB: "1986-01-25"},
	{CustomerID: CustomerID("CUST007"), Name: "Sunita Ghosh", Phone: "+91-9810000007", Address: "404 Salt Lake, Kolkata", Pincode: "700091", City: "Kolkata", DOB: "1979-04-18"},
	{CustomerID: CustomerID("CUST008"), Name: "Dev Patel", Phone: "+91-9810000008", Address: "505 SG Highway, Ahmedabad", Pincode: "380054", City: "Ahmedabad", DOB: "1994-12-03"},
	{CustomerID: CustomerID("CUST009"), Name: "Ritika Sharma", Phone: "+91-9810000009", Address: "606 C-Scheme, Jaipur", Pincode: "302001", City: "Jaipur", DOB: "1991-08-20"},
	{CustomerID: CustomerID("CUST010"), Name: "Karan Verma", Phone: "+91-9810000010", Address: "707 Sector 62, Noida", Pincode: "201301", City: "Noida", DOB: "1996-06-14"},
}
