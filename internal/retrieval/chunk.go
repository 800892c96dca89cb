// Package retrieval fans a synthesized query set out to a vector searcher and
// merges the per-query results into one deterministic, deduplicated document
// set for prompt assembly.
package retrieval

// Chunk is one retrieved document fragment with its retrieval provenance.
type Chunk struct {
	// Content is the chunk text.
	Content string `json:"content"`

	// Source identifies the originating document, e.g. a file name.
	Source string `json:"source"`

	// Page is the 1-based page number within the source, 0 when unknown.
	Page int `json:"page,omitempty"`

	// Metadata carries any further attributes stored with the chunk.
	Metadata map[string]any `json:"metadata,omitempty"`

	// QueryIndex is the position of the originating query in the query set.
	QueryIndex int `json:"query_index"`

	// Rank is the chunk's similarity rank within its own query's results,
	// 0 being the closest match.
	Rank int `json:"rank"`
}

// fingerprintLength bounds the content prefix used for duplicate detection.
// Chunks from overlapping splits share long prefixes, so a bounded prefix
// plus the source identifies a chunk reliably without hashing full texts.
const fingerprintLength = 300

// fingerprint returns the dedup identity of the chunk. The prefix is counted
// in runes so a multi-byte character at the boundary is never split.
func (c Chunk) fingerprint() string {
	content := c.Content
	if len(content) > fingerprintLength {
		runes := []rune(content)
		if len(runes) > fingerprintLength {
			content = string(runes[:fingerprintLength])
		}
	}
	return content + "\x00" + c.Source
}
