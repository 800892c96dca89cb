// Package metrics derives the standardized serviceability figures (LVR, DTI)
// that the proposal prompt pre-computes for the model.
//
// All computation here is pure and total: absent or malformed form fields
// degrade to zero, ratios guard their denominators, and no input can produce
// an error. A proposal with missing figures still goes out, flagged as
// "Not provided" downstream, rather than failing the request.
package metrics

import (
	"math"
	"strings"

	"github.com/brokerlane/proposal-engine/internal/form"
)

// Liability field names enumerated on non-refinance forms. These stay additive
// because the liabilities remain separate from the new loan.
var liabilityKeys = []string{
	"personal_loans_balance",
	"car_loan_balance",
	"other_loan_balance",
	"help_debt_balance",
}

// Credit card exposure is assessed on the limit, not the drawn balance.
var creditCardKeys = []string{"credit_card_limit_total", "credit_card_limit"}

// Result holds the derived figures for one application.
type Result struct {
	LVR           float64 // percentage, 2dp
	DTI           float64 // multiple, 2dp
	LoanAmount    float64 // effective loan amount after any consolidation
	PropertyValue float64 // resolved value base for LVR
	AnnualIncome  float64
	TotalDebt     float64
}

// LVR computes the loan-to-value ratio as a percentage rounded to two
// decimals. A non-positive value base yields zero rather than dividing.
func LVR(loanAmount, valueBase float64) float64 {
	if valueBase <= 0 {
		return 0
	}
	return round2(loanAmount / valueBase * 100)
}

// DTI computes the debt-to-income ratio as a multiple rounded to two
// decimals (Australian convention: $450k debt on $170k income is 2.65x).
// Non-positive income yields zero.
func DTI(totalDebt, annualIncome float64) float64 {
	if annualIncome <= 0 {
		return 0
	}
	return round2(totalDebt / annualIncome)
}

// Compute resolves the application's effective loan amount, value base,
// income and total debt, then derives LVR and DTI.
//
// Refinance forms whose stated reason mentions debt consolidation fold the
// consolidated liabilities (credit card limits, personal loans, any cash-out)
// into the new loan amount; those liabilities are then excluded from total
// debt to avoid double counting, leaving only non-consolidated residuals such
// as HELP balances.
func Compute(rec form.Record, t form.Type) Result {
	loanAmount := rec.FirstNumber(t.LoanAmountKeys()...)
	valueBase := rec.FirstNumber(t.ValueBaseKeys()...)
	income := rec.FirstNumber(t.IncomeKeys()...)

	creditCards := rec.FirstNumber(creditCardKeys...)
	helpDebt := rec.Number("help_debt_balance")

	var totalDebt float64
	if t.IsRefinance() && consolidating(rec) {
		loanAmount = rec.Number("current_loan_balance") +
			creditCards +
			rec.Number("personal_loans_balance") +
			rec.Number("cash_out_amount")
		totalDebt = loanAmount + helpDebt
	} else {
		totalDebt = loanAmount + creditCards
		for _, key := range liabilityKeys {
			totalDebt += rec.Number(key)
		}
	}

	return Result{
		LVR:           LVR(loanAmount, valueBase),
		DTI:           DTI(totalDebt, income),
		LoanAmount:    loanAmount,
		PropertyValue: valueBase,
		AnnualIncome:  income,
		TotalDebt:     round2(totalDebt),
	}
}

// consolidating reports whether the stated refinance reason indicates debt
// consolidation. Substring match keeps faith with free-text reasons like
// "Debt Consolidation" or "consolidating cards".
func consolidating(rec form.Record) bool {
	reason := strings.ToLower(rec.Text("reason_for_refinance"))
	return strings.Contains(reason, "debt") || strings.Contains(reason, "consolidat")
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
