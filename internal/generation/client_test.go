package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokerlane/proposal-engine/internal/log"
	"github.com/brokerlane/proposal-engine/internal/testutil"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func newTestClient(t *testing.T, mock *testutil.MockLLM) *Client {
	t.Helper()
	g := genkit.Init(context.Background())
	mock.Register(g)
	return NewClient(g, "mock/test-model", log.NewNop(), WithRetryConfig(fastRetry()))
}

func TestGenerate(t *testing.T) {
	mock := testutil.NewMockLLM("fallback response")
	mock.AddResponse("credit proposal", "PROPOSED CREDIT ASSESSMENT")
	client := newTestClient(t, mock)

	text, err := client.Generate(context.Background(), "Write a credit proposal for this applicant.")
	require.NoError(t, err)
	assert.Equal(t, "PROPOSED CREDIT ASSESSMENT", text)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "credit proposal")
}

func TestGenerate_RetriesTransientErrors(t *testing.T) {
	mock := testutil.NewMockLLM("recovered response")
	mock.FailNext(errors.New("429 rate limit exceeded"), errors.New("503 service unavailable"))
	client := newTestClient(t, mock)

	text, err := client.Generate(context.Background(), "any prompt")
	require.NoError(t, err)
	assert.Equal(t, "recovered response", text)
}

func TestGenerate_DoesNotRetryPermanentErrors(t *testing.T) {
	mock := testutil.NewMockLLM("never returned")
	mock.FailNext(errors.New("invalid api key"))
	client := newTestClient(t, mock)

	_, err := client.Generate(context.Background(), "any prompt")
	require.Error(t, err)
	assert.Empty(t, mock.Calls(), "no successful call should be recorded")
}

func TestGenerate_ExhaustsRetries(t *testing.T) {
	mock := testutil.NewMockLLM("never returned")
	mock.FailNext(
		errors.New("timeout"),
		errors.New("timeout"),
		errors.New("timeout"),
	)
	client := newTestClient(t, mock)

	_, err := client.Generate(context.Background(), "any prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
}

func TestRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("Rate Limit hit"), true},
		{errors.New("HTTP 429"), true},
		{errors.New("server returned 503"), true},
		{errors.New("connection reset by peer"), true},
		{errors.New("request timeout"), true},
		{errors.New("invalid api key"), false},
		{errors.New("model not found"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryableError(tt.err), "err=%v", tt.err)
	}
}
