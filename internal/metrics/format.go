package metrics

import (
	"fmt"
	"strings"
)

// LVRString formats the LVR for prompt injection, e.g. "56.40%".
func (r Result) LVRString() string {
	return fmt.Sprintf("%.2f%%", r.LVR)
}

// DTIString formats the DTI as a multiple, e.g. "2.74x". DTI is never a
// percentage.
func (r Result) DTIString() string {
	return fmt.Sprintf("%.2fx", r.DTI)
}

// LoanAmountString formats the effective loan amount as currency.
func (r Result) LoanAmountString() string {
	return Money(r.LoanAmount)
}

// PropertyValueString formats the resolved value base as currency.
func (r Result) PropertyValueString() string {
	return Money(r.PropertyValue)
}

// Money renders an AUD amount with thousands separators and two decimals,
// e.g. "$1,250,000.00". Negative amounts keep the sign ahead of the symbol.
func Money(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	s := fmt.Sprintf("%.2f", amount)
	dot := strings.IndexByte(s, '.')
	whole, frac := s[:dot], s[dot:]

	var b strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	out := "$" + b.String() + frac
	if negative {
		out = "-" + out
	}
	return out
}
