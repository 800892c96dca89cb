package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokerlane/proposal-engine/internal/form"
	"github.com/brokerlane/proposal-engine/internal/log"
	"github.com/brokerlane/proposal-engine/internal/metrics"
	"github.com/brokerlane/proposal-engine/internal/proposal"
)

// stubProposer returns a canned proposal or error.
type stubProposer struct {
	proposal *proposal.Proposal
	err      error
	lastReq  proposal.Request
	panics   bool
}

func (s *stubProposer) Propose(_ context.Context, req proposal.Request) (*proposal.Proposal, error) {
	if s.panics {
		panic("boom")
	}
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.proposal, nil
}

func testProposal() *proposal.Proposal {
	return &proposal.Proposal{
		HTML:    "<html><body><h1>Proposal</h1></body></html>",
		Metrics: metrics.Result{LVR: 73.33, DTI: 4.58},
		Queries: []string{"maximum LVR owner occupied"},
	}
}

func newTestServer(t *testing.T, p Proposer) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Logger:      log.NewNop(),
		Proposer:    p,
		CORSOrigins: []string{"http://localhost:5173"},
		RateBurst:   1000,
	})
	require.NoError(t, err)
	return srv
}

func TestNewServer_RequiresProposer(t *testing.T) {
	_, err := NewServer(ServerConfig{Logger: log.NewNop()})
	assert.Error(t, err)
}

func TestCreateProposal(t *testing.T) {
	stub := &stubProposer{proposal: testProposal()}
	srv := newTestServer(t, stub)

	body := `{
		"form_type": "purchase",
		"form_data": {"loan_amount": 550000, "property_value": 750000}
	}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/proposals", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"response_html"`)
	assert.Equal(t, form.TypePurchase, stub.lastReq.FormType)
	assert.Equal(t, 550000.0, stub.lastReq.FormData.Number("loan_amount"))
}

func TestCreateProposal_BadRequests(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		wantStatus  int
		wantCode    string
	}{
		{
			name:        "invalid JSON",
			body:        "{not json",
			contentType: "application/json",
			wantStatus:  http.StatusBadRequest,
			wantCode:    "invalid_json",
		},
		{
			name:        "unknown form type",
			body:        `{"form_type":"margin_lending","form_data":{"x":1}}`,
			contentType: "application/json",
			wantStatus:  http.StatusBadRequest,
			wantCode:    "unknown_form_type",
		},
		{
			name:        "empty form data",
			body:        `{"form_type":"purchase","form_data":{}}`,
			contentType: "application/json",
			wantStatus:  http.StatusBadRequest,
			wantCode:    "missing_form_data",
		},
		{
			name:        "wrong content type",
			body:        `{"form_type":"purchase","form_data":{"x":1}}`,
			contentType: "text/plain",
			wantStatus:  http.StatusUnsupportedMediaType,
			wantCode:    "unsupported_media_type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubProposer{proposal: testProposal()})
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/v1/proposals", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)
			srv.Handler().ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}

func TestCreateProposal_PipelineFailure(t *testing.T) {
	srv := newTestServer(t, &stubProposer{err: errors.New("model unavailable")})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/proposals",
		strings.NewReader(`{"form_type":"purchase","form_data":{"loan_amount":1}}`))
	r.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "generation_failed")
}

func TestListForms(t *testing.T) {
	srv := newTestServer(t, &stubProposer{proposal: testProposal()})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/forms", nil)
	srv.Handler().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"purchase"`)
	assert.Contains(t, body, "Purchase Application")
	assert.Contains(t, body, `"default_question"`)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubProposer{proposal: testProposal()})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ready"`)
}

func TestRecoveryMiddleware_HandlesPanic(t *testing.T) {
	srv := newTestServer(t, &stubProposer{panics: true})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/proposals",
		strings.NewReader(`{"form_type":"purchase","form_data":{"loan_amount":1}}`))
	r.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := requestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generates when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
		assert.NoError(t, err)
	})

	t.Run("reuses valid incoming ID", func(t *testing.T) {
		want := uuid.New().String()
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", want)
		handler.ServeHTTP(w, r)
		assert.Equal(t, want, w.Header().Get("X-Request-ID"))
	})

	t.Run("replaces invalid incoming ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "not-a-uuid")
		handler.ServeHTTP(w, r)
		got := w.Header().Get("X-Request-ID")
		assert.NotEqual(t, "not-a-uuid", got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
	})
}

func TestCORSMiddleware(t *testing.T) {
	srv := newTestServer(t, &stubProposer{proposal: testProposal()})

	t.Run("allowed origin gets headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/forms", nil)
		r.Header.Set("Origin", "http://localhost:5173")
		srv.Handler().ServeHTTP(w, r)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin gets no headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/forms", nil)
		r.Header.Set("Origin", "http://evil.example")
		srv.Handler().ServeHTTP(w, r)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight returns 204", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodOptions, "/api/v1/proposals", nil)
		r.Header.Set("Origin", "http://localhost:5173")
		srv.Handler().ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(0.0001, 2)

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.allow("10.0.0.2"), "per-IP isolation")
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:54321"
	r.Header.Set("X-Real-IP", "203.0.113.7")
	r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")

	assert.Equal(t, "192.0.2.1", clientIP(r, false), "headers ignored without trustProxy")
	assert.Equal(t, "203.0.113.7", clientIP(r, true), "X-Real-IP preferred")

	r.Header.Del("X-Real-IP")
	assert.Equal(t, "198.51.100.9", clientIP(r, true), "first X-Forwarded-For entry")

	r.Header.Set("X-Forwarded-For", "not-an-ip")
	assert.Equal(t, "192.0.2.1", clientIP(r, true), "invalid header falls back to RemoteAddr")
}
