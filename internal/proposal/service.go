// Package proposal orchestrates the credit proposal pipeline: metric
// calculation, query synthesis, multi-query retrieval and document
// generation.
package proposal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brokerlane/proposal-engine/internal/form"
	"github.com/brokerlane/proposal-engine/internal/metrics"
	"github.com/brokerlane/proposal-engine/internal/querygen"
	"github.com/brokerlane/proposal-engine/internal/retrieval"
)

// snippetLength bounds the per-document preview returned with a proposal.
const snippetLength = 500

// Request is one proposal job.
type Request struct {
	FormType        form.Type        `json:"form_type"`
	FormData        form.Record      `json:"form_data"`
	Applicants      []form.Applicant `json:"applicants"`
	AdditionalNotes string           `json:"additional_notes"`

	// Question overrides the form type's default instruction when set.
	Question string `json:"question"`
}

// DocumentRef is lightweight provenance for one retrieved document.
type DocumentRef struct {
	Index    int            `json:"index"`
	Source   string         `json:"source"`
	Page     int            `json:"page,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Snippet  string         `json:"snippet"`
}

// Proposal is the pipeline output.
type Proposal struct {
	FormType      form.Type      `json:"form_type"`
	Question      string         `json:"query"`
	HTML          string         `json:"response_html"`
	Metrics       metrics.Result `json:"metrics"`
	Queries       []string       `json:"queries"`
	DocumentsUsed int            `json:"documents_used"`
	Documents     []DocumentRef  `json:"documents"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// Retriever is the retrieval contract the service consumes.
type Retriever interface {
	Retrieve(ctx context.Context, queries []string) []retrieval.Chunk
}

// Service runs the proposal pipeline.
type Service struct {
	synthesizer *querygen.Synthesizer
	retriever   Retriever
	generator   querygen.Generator
	logger      *slog.Logger
}

// NewService wires the pipeline stages. logger may be nil.
func NewService(synthesizer *querygen.Synthesizer, retriever Retriever, generator querygen.Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		synthesizer: synthesizer,
		retriever:   retriever,
		generator:   generator,
		logger:      logger,
	}
}

// Propose runs the full pipeline for one application. Retrieval and query
// synthesis degrade gracefully; only generation failure aborts the proposal.
func (s *Service) Propose(ctx context.Context, req Request) (*Proposal, error) {
	t, ok := form.ParseType(string(req.FormType))
	if !ok {
		return nil, fmt.Errorf("unknown form type %q", req.FormType)
	}
	req.FormType = t

	m := metrics.Compute(req.FormData, req.FormType)
	s.logger.Info("computed application metrics",
		"form_type", req.FormType,
		"loan_amount", m.LoanAmount,
		"property_value", m.PropertyValue,
		"lvr", m.LVR,
		"dti", m.DTI,
	)

	queries := s.synthesizer.Synthesize(ctx, req.FormData, req.FormType)
	s.logger.Info("synthesized retrieval queries", "count", len(queries))

	chunks := s.retriever.Retrieve(ctx, queries)
	s.logger.Info("retrieved policy documents", "count", len(chunks))

	question := req.Question
	if question == "" {
		question = DefaultQuestion(req.FormType)
	}

	prompt := buildPrompt(req, question, m, FormatChunks(chunks))
	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("proposal generation failed: %w", err)
	}

	return &Proposal{
		FormType:      req.FormType,
		Question:      question,
		HTML:          EnsureHTMLDocument(raw),
		Metrics:       m,
		Queries:       queries,
		DocumentsUsed: len(chunks),
		Documents:     SerialiseDocuments(chunks),
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

// EnsureHTMLDocument wraps a model-produced fragment in a minimal HTML
// document unless it already is one.
func EnsureHTMLDocument(fragment string) string {
	trimmed := strings.TrimSpace(fragment)
	if trimmed == "" {
		return "<html><body></body></html>"
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "<html") {
		return trimmed
	}
	return "<html>\n<body>\n" + trimmed + "\n</body>\n</html>"
}

// SerialiseDocuments returns 1-indexed provenance entries with bounded
// snippets for the retrieved chunks.
func SerialiseDocuments(chunks []retrieval.Chunk) []DocumentRef {
	refs := make([]DocumentRef, 0, len(chunks))
	for i, c := range chunks {
		snippet := c.Content
		if len(snippet) > snippetLength {
			snippet = snippet[:snippetLength]
		}
		refs = append(refs, DocumentRef{
			Index:    i + 1,
			Source:   c.Source,
			Page:     c.Page,
			Metadata: c.Metadata,
			Snippet:  snippet,
		})
	}
	return refs
}
