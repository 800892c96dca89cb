package retrieval

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultKPerQuery is the per-query result depth for multi-query retrieval.
	DefaultKPerQuery = 4

	// MaxDocuments caps the merged, deduplicated result set.
	MaxDocuments = 30

	// DefaultSingleK is the result depth for single-query retrieval.
	DefaultSingleK = 25

	// defaultQueryTimeout bounds each individual search call so one stuck
	// query cannot stall the whole fan-out.
	defaultQueryTimeout = 10 * time.Second
)

// Searcher performs a single similarity search. Implementations must be safe
// for concurrent use.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Chunk, error)
}

// Engine runs multi-query retrieval against a Searcher.
type Engine struct {
	searcher     Searcher
	logger       *slog.Logger
	kPerQuery    int
	maxDocuments int
	queryTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithKPerQuery overrides the per-query result depth.
func WithKPerQuery(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.kPerQuery = k
		}
	}
}

// WithMaxDocuments overrides the merged result cap.
func WithMaxDocuments(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDocuments = n
		}
	}
}

// WithQueryTimeout overrides the per-query search timeout.
func WithQueryTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.queryTimeout = d
		}
	}
}

// NewEngine creates an Engine. logger may be nil.
func NewEngine(searcher Searcher, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		searcher:     searcher,
		logger:       logger,
		kPerQuery:    DefaultKPerQuery,
		maxDocuments: MaxDocuments,
		queryTimeout: defaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve runs every query concurrently and merges the results in query
// order, then rank order, deduplicating on content prefix plus source with
// first occurrence winning. Failed queries are logged and skipped; Retrieve
// itself never fails, an empty slice is a valid outcome.
func (e *Engine) Retrieve(ctx context.Context, queries []string) []Chunk {
	if len(queries) == 0 {
		return []Chunk{}
	}

	perQuery := make([][]Chunk, len(queries))
	var wg sync.WaitGroup
	for i, query := range queries {
		if query == "" {
			continue
		}
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			qctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
			defer cancel()

			chunks, err := e.searcher.Search(qctx, query, e.kPerQuery)
			if err != nil {
				e.logger.Warn("retrieval query failed",
					"query_index", i, "query", query, "error", err)
				return
			}
			// k is a request hint only: a searcher returning more than
			// asked still has every chunk enter the dedup merge. The
			// merged cap bounds the final size.
			for j := range chunks {
				chunks[j].QueryIndex = i
				chunks[j].Rank = j
			}
			perQuery[i] = chunks
		}(i, query)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	merged := make([]Chunk, 0, e.maxDocuments)
	for _, chunks := range perQuery {
		for _, c := range chunks {
			fp := c.fingerprint()
			if _, dup := seen[fp]; dup {
				continue
			}
			seen[fp] = struct{}{}
			merged = append(merged, c)
			if len(merged) == e.maxDocuments {
				e.logger.Debug("retrieval result cap reached",
					"max_documents", e.maxDocuments)
				return merged
			}
		}
	}

	e.logger.Debug("multi-query retrieval complete",
		"queries", len(queries), "documents", len(merged))
	return merged
}

// RetrieveSingle runs one query at single-query depth. It shares the engine's
// failure posture: errors and blank queries yield an empty slice.
func (e *Engine) RetrieveSingle(ctx context.Context, query string) []Chunk {
	if query == "" {
		return []Chunk{}
	}
	qctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	chunks, err := e.searcher.Search(qctx, query, DefaultSingleK)
	if err != nil {
		e.logger.Warn("single-query retrieval failed", "query", query, "error", err)
		return []Chunk{}
	}
	for j := range chunks {
		chunks[j].Rank = j
	}
	return chunks
}
