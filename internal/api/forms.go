package api

import (
	"net/http"

	"github.com/brokerlane/proposal-engine/internal/form"
	"github.com/brokerlane/proposal-engine/internal/proposal"
)

type formInfo struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	DefaultQuestion string `json:"default_question"`
}

// listForms handles GET /api/v1/forms, describing the supported application
// form types for frontend form selection.
func listForms(w http.ResponseWriter, _ *http.Request) {
	types := form.Types()
	forms := make([]formInfo, 0, len(types))
	for _, t := range types {
		forms = append(forms, formInfo{
			ID:              string(t),
			Label:           t.Label(),
			DefaultQuestion: proposal.DefaultQuestion(t),
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"forms": forms})
}
