// Package querygen synthesizes diversified search queries from a loan
// application so the retrieval engine can cover lender policy documents from
// several angles instead of one blended query.
//
// The synthesizer asks the generation model for six targeted queries and
// always appends deterministic fallback queries, so a total generation outage
// still yields a usable query set.
package querygen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brokerlane/proposal-engine/internal/form"
)

const (
	// MaxQueries caps the synthesized query set.
	MaxQueries = 10

	// minQueryLength filters boilerplate lines ("1.", "Queries:", blanks)
	// out of the model response without demanding strict format compliance.
	minQueryLength = 10
)

// Property value tiers used to steer queries toward high-value lending
// policy. Thresholds in AUD.
const (
	premiumThreshold = 3_000_000
	luxuryThreshold  = 5_000_000
)

// Generator is the narrow generation contract the synthesizer consumes.
// Implementations may fail with any error; the synthesizer recovers locally.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Synthesizer derives search queries from application records.
type Synthesizer struct {
	gen    Generator
	logger *slog.Logger
}

// New creates a Synthesizer. logger may be nil.
func New(gen Generator, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{gen: gen, logger: logger}
}

// Synthesize returns an ordered query set for the application: generated
// queries first, deterministic fallbacks appended, truncated to MaxQueries.
// Generation failure is recovered locally and never propagated; the fallbacks
// guarantee a non-empty result.
func (s *Synthesizer) Synthesize(ctx context.Context, rec form.Record, t form.Type) []string {
	loanAmount := rec.FirstNumber(t.LoanAmountKeys()...)
	propertyValue := rec.FirstNumber(t.ValueBaseKeys()...)

	prompt := buildPrompt(rec, t, loanAmount, propertyValue)

	var queries []string
	response, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("query generation failed, using fallback queries only",
			"form_type", t, "error", err)
	} else {
		queries = ParseQueries(response)
		s.logger.Debug("generated targeted queries", "count", len(queries))
	}

	queries = append(queries, FallbackQueries(t, loanAmount)...)
	if len(queries) > MaxQueries {
		queries = queries[:MaxQueries]
	}
	return queries
}

// ParseQueries extracts query lines from a free-text model response: split on
// newlines, trim, drop short lines. Kept separate from the network call so the
// heuristic is testable and swappable on its own.
func ParseQueries(response string) []string {
	var queries []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > minQueryLength {
			queries = append(queries, line)
		}
	}
	return queries
}

// FallbackQueries returns the deterministic queries templated from the form
// type and loan amount. These ship on every request regardless of generation
// outcome.
func FallbackQueries(t form.Type, loanAmount float64) []string {
	return []string{
		fmt.Sprintf("minimum loan amount requirements %s", t),
		fmt.Sprintf("lending criteria %.0f loan", loanAmount),
		fmt.Sprintf("lender comparison %s", t),
	}
}

// buildPrompt constructs the query generation instruction. The model is asked
// for exactly six queries, one per line, unnumbered; ParseQueries tolerates
// deviations.
func buildPrompt(rec form.Record, t form.Type, loanAmount, propertyValue float64) string {
	repayment := rec.Text("loan_repayment_type")
	if repayment == "" {
		repayment = rec.Text("repayment_type")
	}
	if repayment == "" {
		repayment = "not specified"
	}

	return fmt.Sprintf(`Generate 6 targeted search queries for Australian mortgage lending policies.

Application Context:
- Loan Type: %s
- Loan Amount Requested: $%.0f
- Property Value: $%.0f (%s)
- Income Types: %s
- Repayment Type: %s

Generate queries that will retrieve:
1. Lender minimum and maximum loan amount policies
2. Property value tier and luxury property requirements
3. Income verification and assessment policies
4. LVR limits and serviceability criteria
5. Loan product features and eligibility
6. Lender comparison and suitability factors

Output ONLY the search queries, one per line, no numbering or explanations:`,
		t, loanAmount, propertyValue, PropertyTier(propertyValue), IncomeProfile(rec), repayment)
}

// PropertyTier classifies the property value for query targeting.
func PropertyTier(value float64) string {
	switch {
	case value > luxuryThreshold:
		return "luxury/high-value property over $5M"
	case value > premiumThreshold:
		return "premium property over $3M"
	default:
		return "standard residential property"
	}
}

// IncomeProfile describes the income composition from the presence of income
// category fields, e.g. "PAYG + rental income".
func IncomeProfile(rec form.Record) string {
	var kinds []string
	if rec.FirstNumber("base_income_annual") > 0 {
		kinds = append(kinds, "PAYG")
	}
	if rec.FirstNumber("bonus_income_annual") > 0 {
		kinds = append(kinds, "bonus/commission")
	}
	if rec.FirstNumber("self_employment_income_annual") > 0 {
		kinds = append(kinds, "self-employed")
	}
	if rec.FirstNumber("rental_income_annual") > 0 {
		kinds = append(kinds, "rental income")
	}
	if len(kinds) == 0 {
		return "standard income"
	}
	return strings.Join(kinds, " + ")
}
