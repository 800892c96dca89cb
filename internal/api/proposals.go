package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/brokerlane/proposal-engine/internal/form"
	"github.com/brokerlane/proposal-engine/internal/proposal"
)

// maxRequestBody caps proposal request bodies at 1 MiB; form payloads are
// small and anything larger is abuse.
const maxRequestBody = 1 << 20

// Proposer is the pipeline contract the handler consumes.
type Proposer interface {
	Propose(ctx context.Context, req proposal.Request) (*proposal.Proposal, error)
}

type proposalHandler struct {
	service Proposer
	logger  *slog.Logger
}

// create handles POST /api/v1/proposals.
func (h *proposalHandler) create(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		WriteError(w, http.StatusUnsupportedMediaType, "unsupported_media_type",
			"Content-Type must be application/json", h.logger)
		return
	}

	var req proposal.Request
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "request_too_large",
				"request body exceeds 1MB", h.logger)
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_json",
			"request body is not valid JSON", h.logger)
		return
	}
	t, ok := form.ParseType(string(req.FormType))
	if !ok {
		WriteError(w, http.StatusBadRequest, "unknown_form_type",
			"form_type must be one of the supported application forms", h.logger)
		return
	}
	req.FormType = t

	if len(req.FormData) == 0 {
		WriteError(w, http.StatusBadRequest, "missing_form_data",
			"form_data must not be empty", h.logger)
		return
	}

	p, err := h.service.Propose(r.Context(), req)
	if err != nil {
		h.logger.Error("proposal pipeline failed",
			"form_type", req.FormType,
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		WriteError(w, http.StatusBadGateway, "generation_failed",
			"proposal generation failed, try again later", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, p)
}
