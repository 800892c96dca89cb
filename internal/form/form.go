// Package form defines the loan application data model shared by the metrics,
// query generation and proposal layers.
//
// Application records arrive as loosely typed JSON maps whose field names vary
// by application type (a purchase form says "loan_amount", a refinance form
// says "current_loan_balance"). Each application type therefore declares an
// ordered list of candidate keys for the three figures the engine cares about:
// loan amount, property value base and annual income. The first present,
// non-zero candidate wins; coercion failures fall through to the next
// candidate and ultimately to zero, never to an error.
package form

import (
	"strconv"
	"strings"
)

// Type identifies the application form variant.
type Type string

// Known application types.
const (
	TypePurchase     Type = "purchase"
	TypeRefinance    Type = "refinance"
	TypeSMSF         Type = "smsf"
	TypeConstruction Type = "construction"
	TypeCashout      Type = "cashout"
	TypeCommercial   Type = "commercial"
)

// ParseType normalizes a form type string ("Cashout-Refinance", "smsf_purchase")
// to a known Type. The second return value reports whether the input matched.
func ParseType(s string) (Type, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "", "_", "", " ", "").Replace(normalized)

	switch normalized {
	case "purchase", "purchaseapplication":
		return TypePurchase, true
	case "refinance", "refinanceapplication":
		return TypeRefinance, true
	case "smsf", "smsfpurchase", "smsfloanpurchase":
		return TypeSMSF, true
	case "construction", "constructionloan":
		return TypeConstruction, true
	case "cashout", "cashoutrefinance":
		return TypeCashout, true
	case "commercial", "commercialproperty", "commercialpropertyloan":
		return TypeCommercial, true
	}
	return "", false
}

// Types lists all known application types in a stable order.
func Types() []Type {
	return []Type{
		TypePurchase, TypeRefinance, TypeSMSF,
		TypeConstruction, TypeCashout, TypeCommercial,
	}
}

// Label returns the human-readable form label used in prompts and API output.
func (t Type) Label() string {
	switch t {
	case TypePurchase:
		return "Purchase Application"
	case TypeRefinance:
		return "Refinance Application"
	case TypeSMSF:
		return "SMSF Loan Purchase"
	case TypeConstruction:
		return "Construction Loan"
	case TypeCashout:
		return "Cashout Refinance"
	case TypeCommercial:
		return "Commercial Property Loan"
	}
	return string(t)
}

// IsRefinance reports whether t is one of the refinance variants, which share
// the debt consolidation accounting rules.
func (t Type) IsRefinance() bool {
	return t == TypeRefinance || t == TypeCashout
}

// LoanAmountKeys returns the ordered candidate field names for the requested
// loan amount.
func (t Type) LoanAmountKeys() []string {
	switch t {
	case TypeRefinance, TypeCashout:
		return []string{"current_loan_balance", "refinance_amount"}
	case TypeConstruction:
		return []string{"construction_loan_amount", "loan_amount"}
	case TypeCommercial:
		return []string{"loan_amount_requested", "loan_amount"}
	default: // purchase, smsf
		return []string{"loan_amount"}
	}
}

// ValueBaseKeys returns the ordered candidate field names for the property
// value base used in LVR. Construction loans are assessed against the
// estimated completion value, not the land price.
func (t Type) ValueBaseKeys() []string {
	switch t {
	case TypeRefinance, TypeCashout:
		return []string{"estimated_property_value", "property_value"}
	case TypeConstruction:
		return []string{"estimated_completion_value"}
	case TypeCommercial:
		return []string{"security_property_value", "property_value"}
	default: // purchase, smsf
		return []string{"property_value", "purchase_price"}
	}
}

// IncomeKeys returns the ordered candidate field names for gross annual
// income. The first present field wins; concurrently present income streams
// are not summed here because upstream forms aggregate them into
// total_income_annual before submission.
func (t Type) IncomeKeys() []string {
	switch t {
	case TypeSMSF:
		return []string{"total_income_annual", "annual_rental_income"}
	case TypeCommercial:
		return []string{"total_income_annual", "annual_business_revenue", "net_profit_before_tax"}
	default:
		return []string{"total_income_annual", "total_income", "combined_income_annual"}
	}
}

// Record is a raw application form payload: field name to string, number,
// bool, or list of sub-records. Records are built once per request and never
// mutated during processing.
type Record map[string]any

// Number coerces the value at key to a float64. Strings may carry currency
// formatting ("$1,250,000"). Missing keys and malformed values yield zero.
func (r Record) Number(key string) float64 {
	v, ok := r[key]
	if !ok {
		return 0
	}
	return coerceNumber(v)
}

// Text returns the value at key as a trimmed string, or "" when absent or not
// a string.
func (r Record) Text(key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// Present reports whether key holds a usable value: not missing, not nil, not
// an empty string or empty list.
func (r Record) Present(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val) != ""
	case []any:
		return len(val) > 0
	}
	return true
}

// FirstNumber resolves the first candidate key carrying a usable non-zero
// numeric value. A present field whose value does not coerce (or coerces to
// zero) falls through to the next candidate; exhaustion yields zero.
func (r Record) FirstNumber(keys ...string) float64 {
	for _, key := range keys {
		if !r.Present(key) {
			continue
		}
		if n := r.Number(key); n != 0 {
			return n
		}
	}
	return 0
}

func coerceNumber(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(val)
		if cleaned == "" {
			return 0
		}
		n, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
