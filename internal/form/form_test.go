package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in     string
		want   Type
		wantOK bool
	}{
		{"purchase", TypePurchase, true},
		{"Purchase Application", TypePurchase, true},
		{"refinance", TypeRefinance, true},
		{"cashout_refinance", TypeCashout, true},
		{"Cashout-Refinance", TypeCashout, true},
		{"smsf_purchase", TypeSMSF, true},
		{"SMSF Loan Purchase", TypeSMSF, true},
		{"construction loan", TypeConstruction, true},
		{"Commercial Property Loan", TypeCommercial, true},
		{"reverse_mortgage", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseType(tt.in)
		assert.Equal(t, tt.wantOK, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestTypeIsRefinance(t *testing.T) {
	assert.True(t, TypeRefinance.IsRefinance())
	assert.True(t, TypeCashout.IsRefinance())
	assert.False(t, TypePurchase.IsRefinance())
	assert.False(t, TypeCommercial.IsRefinance())
}

func TestCandidateKeys_PerType(t *testing.T) {
	// Construction is assessed against completion value only.
	assert.Equal(t, []string{"estimated_completion_value"}, TypeConstruction.ValueBaseKeys())

	// Refinance resolves the current balance before any stated refinance amount.
	assert.Equal(t, "current_loan_balance", TypeRefinance.LoanAmountKeys()[0])
	assert.Equal(t, "estimated_property_value", TypeCashout.ValueBaseKeys()[0])

	// Commercial income falls back through business figures.
	assert.Equal(t,
		[]string{"total_income_annual", "annual_business_revenue", "net_profit_before_tax"},
		TypeCommercial.IncomeKeys())
}

func TestRecordNumber_Coercion(t *testing.T) {
	rec := Record{
		"float":     550000.0,
		"int":       550000,
		"string":    "550000",
		"currency":  "$1,250,000.50",
		"garbage":   "eight hundred",
		"empty":     "",
		"boolean":   true,
		"nil_value": nil,
	}

	assert.Equal(t, 550000.0, rec.Number("float"))
	assert.Equal(t, 550000.0, rec.Number("int"))
	assert.Equal(t, 550000.0, rec.Number("string"))
	assert.Equal(t, 1250000.50, rec.Number("currency"))
	assert.Zero(t, rec.Number("garbage"))
	assert.Zero(t, rec.Number("empty"))
	assert.Zero(t, rec.Number("boolean"))
	assert.Zero(t, rec.Number("nil_value"))
	assert.Zero(t, rec.Number("missing"))
}

func TestRecordFirstNumber(t *testing.T) {
	rec := Record{
		"refinance_amount":     420000.0,
		"current_loan_balance": "not a number",
	}

	// Coercion failure on the first candidate falls through to the next.
	got := rec.FirstNumber("current_loan_balance", "refinance_amount")
	assert.Equal(t, 420000.0, got)

	// Zero values are treated as absent, matching upstream form behavior
	// where unfilled numeric inputs arrive as 0.
	rec = Record{"loan_amount": 0.0, "refinance_amount": 300000.0}
	assert.Equal(t, 300000.0, rec.FirstNumber("loan_amount", "refinance_amount"))

	// Exhaustion yields zero, never an error.
	assert.Zero(t, Record{}.FirstNumber("a", "b", "c"))
}

func TestRecordPresent(t *testing.T) {
	rec := Record{
		"filled":     "x",
		"blank":      "   ",
		"zero":       0.0,
		"empty_list": []any{},
		"list":       []any{"a"},
		"nil_value":  nil,
	}

	assert.True(t, rec.Present("filled"))
	assert.False(t, rec.Present("blank"))
	assert.True(t, rec.Present("zero")) // present, though FirstNumber skips it
	assert.False(t, rec.Present("empty_list"))
	assert.True(t, rec.Present("list"))
	assert.False(t, rec.Present("nil_value"))
	assert.False(t, rec.Present("missing"))
}

func TestDescribe_SkipsEmptyAndFormats(t *testing.T) {
	rec := Record{
		"loan_amount":    550000.0,
		"first_home":     true,
		"notes":          "",
		"loan_features":  []any{"offset", "redraw"},
		"interest_rates": 5.89,
	}

	out := rec.Describe()
	assert.Contains(t, out, "- Loan Amount: 550000")
	assert.Contains(t, out, "- First Home: Yes")
	assert.Contains(t, out, "- Loan Features: offset, redraw")
	assert.Contains(t, out, "- Interest Rates: 5.89")
	assert.NotContains(t, out, "Notes")
}

func TestDescribe_ExpandsSubRecords(t *testing.T) {
	rec := Record{
		"existing_loans": []any{
			map[string]any{"lender": "ANZ", "balance": 120000.0},
			map[string]any{"lender": "NAB", "balance": 80000.0, "fixed": false},
		},
	}

	out := rec.Describe()
	assert.Contains(t, out, "- Existing Loans [1]: Balance: 120000, Lender: ANZ")
	assert.Contains(t, out, "- Existing Loans [2]: Balance: 80000, Fixed: No, Lender: NAB")
}

func TestDescribe_Empty(t *testing.T) {
	assert.Equal(t, "Not provided.", Record{}.Describe())
	assert.Equal(t, "Not provided.", Record{"a": ""}.Describe())
}

func TestDescribeApplicants(t *testing.T) {
	assert.Equal(t, "Not provided.", DescribeApplicants(nil))

	out := DescribeApplicants([]Applicant{
		{Name: "Alex Chen", Role: "Primary", IncomeDetails: "PAYG $120,000"},
		{Name: "Sam Chen"},
	})
	assert.Contains(t, out, "Name: Alex Chen")
	assert.Contains(t, out, "Role: Primary")
	assert.Contains(t, out, "Income: PAYG $120,000")
	assert.Contains(t, out, "Name: Sam Chen")
}
