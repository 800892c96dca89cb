package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/brokerlane/proposal-engine/internal/log"
)

// The engine fans out one goroutine per query; verify none outlive a retrieval.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mapSearcher serves canned results keyed by query, optionally failing some.
type mapSearcher struct {
	mu      sync.Mutex
	results map[string][]Chunk
	fail    map[string]error
	calls   []string
}

func (m *mapSearcher) Search(_ context.Context, query string, k int) ([]Chunk, error) {
	m.mu.Lock()
	m.calls = append(m.calls, query)
	m.mu.Unlock()
	if err, ok := m.fail[query]; ok {
		return nil, err
	}
	chunks := m.results[query]
	if len(chunks) > k {
		chunks = chunks[:k]
	}
	return chunks, nil
}

func chunk(content, source string) Chunk {
	return Chunk{Content: content, Source: source}
}

func TestRetrieve_MergesInQueryOrder(t *testing.T) {
	s := &mapSearcher{results: map[string][]Chunk{
		"first query about lending":  {chunk("alpha policy text", "a.pdf"), chunk("beta policy text", "a.pdf")},
		"second query about lending": {chunk("gamma policy text", "b.pdf")},
	}}
	e := NewEngine(s, log.NewNop())

	got := e.Retrieve(context.Background(), []string{
		"first query about lending",
		"second query about lending",
	})

	require.Len(t, got, 3)
	assert.Equal(t, "alpha policy text", got[0].Content)
	assert.Equal(t, 0, got[0].QueryIndex)
	assert.Equal(t, 0, got[0].Rank)
	assert.Equal(t, "beta policy text", got[1].Content)
	assert.Equal(t, 1, got[1].Rank)
	assert.Equal(t, "gamma policy text", got[2].Content)
	assert.Equal(t, 1, got[2].QueryIndex)
	assert.Equal(t, 0, got[2].Rank)
}

func TestRetrieve_DeduplicatesFirstSeenWins(t *testing.T) {
	shared := chunk("identical chunk returned by both queries", "policy.pdf")
	s := &mapSearcher{results: map[string][]Chunk{
		"query one": {shared, chunk("unique to query one", "policy.pdf")},
		"query two": {shared, chunk("unique to query two", "policy.pdf")},
	}}
	e := NewEngine(s, log.NewNop())

	got := e.Retrieve(context.Background(), []string{"query one", "query two"})

	require.Len(t, got, 3)
	assert.Equal(t, shared.Content, got[0].Content)
	assert.Equal(t, 0, got[0].QueryIndex, "duplicate keeps the first query's provenance")
	assert.Equal(t, "unique to query one", got[1].Content)
	assert.Equal(t, "unique to query two", got[2].Content)
}

func TestRetrieve_DedupKeyUsesContentPrefixAndSource(t *testing.T) {
	long := strings.Repeat("x", fingerprintLength)
	s := &mapSearcher{results: map[string][]Chunk{
		"query one": {chunk(long+" tail one", "doc.pdf")},
		"query two": {chunk(long+" tail two", "doc.pdf"), chunk(long+" tail one", "other.pdf")},
	}}
	e := NewEngine(s, log.NewNop())

	got := e.Retrieve(context.Background(), []string{"query one", "query two"})

	// Same 300-char prefix and same source collapse even though the tails
	// differ; the same prefix from a different source survives.
	require.Len(t, got, 2)
	assert.Equal(t, "doc.pdf", got[0].Source)
	assert.Equal(t, "other.pdf", got[1].Source)
}

func TestRetrieve_DedupKeyCountsRunesNotBytes(t *testing.T) {
	// With two-byte runes a byte-counted prefix would stop at rune 150 and
	// wrongly collapse chunks that only differ later in the 300-rune prefix.
	accented := strings.Repeat("é", 200)
	s := &mapSearcher{results: map[string][]Chunk{
		"query one": {chunk(accented+" clause alpha", "doc.pdf")},
		"query two": {chunk(accented+" clause omega", "doc.pdf")},
	}}
	e := NewEngine(s, log.NewNop())

	got := e.Retrieve(context.Background(), []string{"query one", "query two"})

	require.Len(t, got, 2)
}

func TestRetrieve_CapsMergedResults(t *testing.T) {
	results := make(map[string][]Chunk)
	queries := make([]string, 10)
	for i := range queries {
		q := fmt.Sprintf("query number %d", i)
		queries[i] = q
		for j := 0; j < 4; j++ {
			results[q] = append(results[q], chunk(fmt.Sprintf("chunk %d-%d", i, j), "doc.pdf"))
		}
	}
	e := NewEngine(&mapSearcher{results: results}, log.NewNop())

	got := e.Retrieve(context.Background(), queries)

	assert.Len(t, got, MaxDocuments)
	// The cap keeps the query-order head and drops everything after the
	// 30th merged chunk.
	assert.Equal(t, "chunk 7-1", got[29].Content)
}

func TestRetrieve_FailedQueryIsIsolated(t *testing.T) {
	s := &mapSearcher{
		results: map[string][]Chunk{
			"healthy query one": {chunk("first result", "a.pdf")},
			"healthy query two": {chunk("second result", "b.pdf")},
		},
		fail: map[string]error{
			"broken query": errors.New("connection refused"),
		},
	}
	e := NewEngine(s, log.NewNop())

	got := e.Retrieve(context.Background(), []string{
		"healthy query one", "broken query", "healthy query two",
	})

	require.Len(t, got, 2)
	assert.Equal(t, "first result", got[0].Content)
	assert.Equal(t, 2, got[1].QueryIndex)
}

func TestRetrieve_AcceptsOverReturningSearcher(t *testing.T) {
	// k is a hint to the searcher, not a clamp: a searcher returning six
	// chunks for k=4 has all six enter the dedup merge.
	over := make([]Chunk, 6)
	for i := range over {
		over[i] = chunk(fmt.Sprintf("result number %d", i), "doc.pdf")
	}
	over = append(over, over[0])
	s := &overSearcher{chunks: over}
	e := NewEngine(s, log.NewNop())

	got := e.Retrieve(context.Background(), []string{"greedy query"})

	require.Len(t, got, 6, "every over-returned chunk survives, minus duplicates")
	for i, c := range got {
		assert.Equal(t, fmt.Sprintf("result number %d", i), c.Content)
		assert.Equal(t, i, c.Rank)
	}
}

// overSearcher ignores k and returns everything it has.
type overSearcher struct {
	chunks []Chunk
	err    error
}

func (o *overSearcher) Search(context.Context, string, int) ([]Chunk, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.chunks, nil
}

func TestRetrieve_EmptyAndBlankQueries(t *testing.T) {
	s := &mapSearcher{results: map[string][]Chunk{}}
	e := NewEngine(s, log.NewNop())

	assert.Empty(t, e.Retrieve(context.Background(), nil))
	assert.Empty(t, e.Retrieve(context.Background(), []string{"", ""}))
	assert.Empty(t, s.calls, "blank queries never reach the searcher")
}

func TestRetrieveSingle(t *testing.T) {
	s := &mapSearcher{results: map[string][]Chunk{
		"serviceability policy": {chunk("buffer rate detail", "rates.pdf")},
	}}
	e := NewEngine(s, log.NewNop())

	got := e.RetrieveSingle(context.Background(), "serviceability policy")
	require.Len(t, got, 1)
	assert.Equal(t, "buffer rate detail", got[0].Content)

	assert.Empty(t, e.RetrieveSingle(context.Background(), ""))

	failing := NewEngine(&overSearcher{err: errors.New("down")}, log.NewNop())
	assert.Empty(t, failing.RetrieveSingle(context.Background(), "anything"))
}
