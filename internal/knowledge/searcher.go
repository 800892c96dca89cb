package knowledge

import (
	"context"

	"github.com/brokerlane/proposal-engine/internal/retrieval"
)

// PolicySearcher adapts the Store to the retrieval engine's Searcher
// interface. The optional filter restricts every search, e.g. to one lender's
// documents.
type PolicySearcher struct {
	store  *Store
	filter map[string]string
}

// NewPolicySearcher wraps the store. filter may be nil.
func NewPolicySearcher(store *Store, filter map[string]string) *PolicySearcher {
	return &PolicySearcher{store: store, filter: filter}
}

// Search implements retrieval.Searcher.
func (p *PolicySearcher) Search(ctx context.Context, query string, k int) ([]retrieval.Chunk, error) {
	results, err := p.store.Search(ctx, query, k, p.filter)
	if err != nil {
		return nil, err
	}

	chunks := make([]retrieval.Chunk, 0, len(results))
	for _, r := range results {
		metadata := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			metadata[k] = v
		}
		chunks = append(chunks, retrieval.Chunk{
			Content:  r.Content,
			Source:   r.Source,
			Page:     r.Page,
			Metadata: metadata,
		})
	}
	return chunks, nil
}
