package proposal

import (
	"fmt"
	"strings"

	"github.com/brokerlane/proposal-engine/internal/form"
	"github.com/brokerlane/proposal-engine/internal/metrics"
	"github.com/brokerlane/proposal-engine/internal/retrieval"
)

// defaultQuestions supplies the instruction when a request carries none.
var defaultQuestions = map[form.Type]string{
	form.TypePurchase:     "Provide the best lender recommendation and product structure for the above purchase scenario.",
	form.TypeRefinance:    "Provide the best lender recommendation and product structure for the above refinance scenario.",
	form.TypeSMSF:         "Recommend the most suitable SMSF lender and structure for the scenario.",
	form.TypeConstruction: "Recommend the best construction loan lender and structure for the project.",
	form.TypeCashout:      "Recommend the most suitable lender for the cash-out refinance request.",
	form.TypeCommercial:   "Recommend the best commercial property lender and structure for the scenario.",
}

// DefaultQuestion returns the standing instruction for the form type.
func DefaultQuestion(t form.Type) string {
	if q, ok := defaultQuestions[t]; ok {
		return q
	}
	return "Recommend the best lender and structure for the scenario provided."
}

// noDocumentsContext stands in for the policy context when retrieval returned
// nothing, so the model states the evidence gap instead of inventing sources.
const noDocumentsContext = "No relevant documents retrieved."

// FormatChunks renders retrieved chunks as a numbered context block:
//
//	[Document 1] (Source: cba_policy.pdf)
//	<content>
//
// Returns "" for an empty set.
func FormatChunks(chunks []retrieval.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	formatted := make([]string, 0, len(chunks))
	for i, c := range chunks {
		header := fmt.Sprintf("[Document %d]", i+1)
		if c.Source != "" {
			header += fmt.Sprintf(" (Source: %s)", c.Source)
		}
		formatted = append(formatted, header+"\n"+strings.TrimSpace(c.Content))
	}
	return strings.Join(formatted, "\n\n")
}

// buildPrompt assembles the generation prompt from the application details,
// computed metrics and retrieved policy context.
func buildPrompt(req Request, question string, m metrics.Result, policyContext string) string {
	if policyContext == "" {
		policyContext = noDocumentsContext
	}
	notes := req.AdditionalNotes
	if notes == "" {
		notes = "None."
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are an experienced Australian mortgage broker preparing a formal credit proposal.

Form: %s
Question: %s

Pre-calculated metrics (use these figures, do not recompute):
- Loan Amount: %s
- Property Value: %s
- LVR: %s
- DTI: %s

Applicants:
%s

Application Details:
%s

Additional Notes: %s

Lender Policy Context:
%s

Assess lender eligibility strictly against the policy context above and cite the source document for every policy claim. Where the context lacks evidence, state "Not provided". Respond with a valid HTML fragment only, using semantic tags (<h1>, <h2>, <table>, <ul>, <li>, <p>, <strong>).`,
		req.FormType.Label(), question,
		m.LoanAmountString(), m.PropertyValueString(), m.LVRString(), m.DTIString(),
		form.DescribeApplicants(req.Applicants),
		req.FormData.Describe(),
		notes,
		policyContext)
	return b.String()
}
