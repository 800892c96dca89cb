// Package knowledge stores lender policy document chunks in PostgreSQL with
// pgvector embeddings and serves similarity search over them.
package knowledge

import "time"

// Document is one stored policy chunk.
type Document struct {
	// ID uniquely identifies the chunk. Indexers derive it from the source
	// and chunk position so re-indexing the same file upserts in place.
	ID string

	// Content is the chunk text that gets embedded.
	Content string

	// Source names the originating policy document, e.g. "cba_lending_policy.pdf".
	Source string

	// Page is the 1-based page number within the source, 0 when unknown.
	Page int

	// Metadata carries free-form attributes stored as JSONB.
	Metadata map[string]string

	CreatedAt time.Time
}

// Result is a search hit with its cosine similarity to the query.
type Result struct {
	Document
	Similarity float64
}
