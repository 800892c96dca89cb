package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// DB is the subset of pgxpool.Pool the store uses. Defined here, by the
// consumer, so tests can substitute a fake without a running database.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store manages policy chunks with vector search over PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db       DB
	embedder ai.Embedder
	logger   *slog.Logger
}

// searchTimeout bounds embedding plus vector search for one query.
const searchTimeout = 10 * time.Second

// New creates a Store. logger may be nil.
func New(db DB, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, embedder: embedder, logger: logger}
}

// Add embeds and upserts a policy chunk. Re-adding an existing ID replaces
// its content, metadata and embedding.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return errors.New("document ID must not be empty")
	}

	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("failed to embed document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata for %q: %w", doc.ID, err)
	}

	createdAt := pgtype.Timestamptz{Time: doc.CreatedAt, Valid: !doc.CreatedAt.IsZero()}

	_, err = s.db.Exec(ctx, `
		INSERT INTO policy_chunks (id, content, source, page, metadata, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			source = EXCLUDED.source,
			page = EXCLUDED.page,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`,
		doc.ID, doc.Content, doc.Source, doc.Page, metadataJSON, embedding, createdAt)
	if err != nil {
		return fmt.Errorf("failed to upsert document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added policy chunk",
		"id", doc.ID, "source", doc.Source, "content_length", len(doc.Content))
	return nil
}

// Search returns the topK chunks most similar to the query, ordered by
// descending cosine similarity. An optional metadata filter restricts the
// candidate set with JSONB containment; the filter is always marshalled, never
// interpolated, so it cannot inject into the query text.
func (s *Store) Search(ctx context.Context, query string, topK int, filter map[string]string) ([]Result, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var rows pgx.Rows
	if len(filter) > 0 {
		filterJSON, marshalErr := json.Marshal(filter)
		if marshalErr != nil {
			return nil, fmt.Errorf("failed to marshal filter: %w", marshalErr)
		}
		rows, err = s.db.Query(queryCtx, `
			SELECT id, content, source, page, metadata, created_at,
			       1 - (embedding <=> $1) AS similarity
			FROM policy_chunks
			WHERE metadata @> $2
			ORDER BY embedding <=> $1
			LIMIT $3`,
			embedding, filterJSON, topK)
	} else {
		rows, err = s.db.Query(queryCtx, `
			SELECT id, content, source, page, metadata, created_at,
			       1 - (embedding <=> $1) AS similarity
			FROM policy_chunks
			ORDER BY embedding <=> $1
			LIMIT $2`,
			embedding, topK)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timeout: %w", err)
		}
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	return s.scanResults(rows)
}

// Count returns the total number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM policy_chunks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return count, nil
}

// DeleteBySource removes every chunk indexed from the given source document
// and reports how many were deleted.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM policy_chunks WHERE source = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks for source %q: %w", source, err)
	}

	deleted := int(tag.RowsAffected())
	s.logger.Debug("deleted policy chunks", "source", source, "count", deleted)
	return deleted, nil
}

func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("embedder returned an empty embedding")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

func (s *Store) scanResults(rows pgx.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var (
			r            Result
			metadataJSON []byte
			createdAt    pgtype.Timestamptz
		)
		if err := rows.Scan(&r.ID, &r.Content, &r.Source, &r.Page,
			&metadataJSON, &createdAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
				s.logger.Warn("failed to parse chunk metadata", "id", r.ID, "error", err)
				r.Metadata = map[string]string{}
			}
		}
		if createdAt.Valid {
			r.CreatedAt = createdAt.Time
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search row iteration failed: %w", err)
	}
	return results, nil
}
