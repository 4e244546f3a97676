package underwriting

import "iter"

// LoanTerms describes an approved loan for amortization purposes.
type LoanTerms struct {
	Amount       float64
	AnnualRate   float64
	TenureMonths int
	EMI          float64
}

// Row is one month of the amortization schedule.
type Row struct {
	Month     int     `json:"month"`
	EMI       float64 `json:"emi"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

// Rows returns a lazy, restartable sequence of exactly TenureMonths rows.
// Principal and interest are rounded per row; the final month absorbs the
// accumulated rounding so the balance lands on zero and never goes negative.
func (t LoanTerms) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		r := t.AnnualRate / 12 / 100
		balance := round2(t.Amount)
		for m := 1; m <= t.TenureMonths; m++ {
			interest := round2(balance * r)
			principal := round2(t.EMI - interest)
			if m == t.TenureMonths || principal > balance {
				principal = balance
			}
			balance = round2(balance - principal)
			if balance < 0 {
				balance = 0
			}
			row := Row{
				Month:     m,
				EMI:       round2(principal + interest),
				Principal: principal,
				Interest:  interest,
				Balance:   balance,
			}
			if !yield(row) {
				return
			}
		}
	}
}

// Take materializes at most n leading rows without walking the full schedule.
func (t LoanTerms) Take(n int) []Row {
	if n <= 0 {
		return nil
	}
	out := make([]Row, 0, n)
	for row := range t.Rows() {
		out = append(out, row)
		if len(out) == n {
			break
		}
	}
	return out
}
