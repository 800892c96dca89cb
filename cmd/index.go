package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brokerlane/proposal-engine/internal/app"
	"github.com/brokerlane/proposal-engine/internal/config"
	"github.com/brokerlane/proposal-engine/internal/knowledge"
	"github.com/brokerlane/proposal-engine/internal/log"
)

// chunkRecord is one line of an index input file. PDF extraction and chunking
// happen upstream; this command only embeds and stores the results.
type chunkRecord struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Source   string            `json:"source"`
	Page     int               `json:"page"`
	Metadata map[string]string `json:"metadata"`
}

var indexReplace bool

var indexCmd = &cobra.Command{
	Use:   "index <chunks.jsonl>",
	Short: "Index policy document chunks into the knowledge base",
	Long: `Index reads newline-delimited JSON chunk records, embeds each chunk and
upserts it into the policy knowledge base.

Each line must be an object with "content" and "source" fields; "id", "page"
and "metadata" are optional. Missing IDs are derived from the source and the
line position so re-indexing a file updates in place.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd.Context(), args[0])
	},
}

var deleteSourceCmd = &cobra.Command{
	Use:   "delete-source <source>",
	Short: "Remove every indexed chunk from one source document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDeleteSource(cmd.Context(), args[0])
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexReplace, "replace", false,
		"delete existing chunks for each source before indexing")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(deleteSourceCmd)
}

func runIndex(parent context.Context, path string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := log.New(log.Config{Level: log.ParseLevel("info")})

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()

	var (
		indexed int
		cleared = make(map[string]bool)
		scanner = bufio.NewScanner(f)
	)
	// Policy chunks can exceed the default 64KB token limit.
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for line := 1; scanner.Scan(); line++ {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec chunkRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("line %d: invalid JSON: %w", line, err)
		}
		if rec.Content == "" {
			return fmt.Errorf("line %d: content is required", line)
		}
		if rec.Source == "" {
			return fmt.Errorf("line %d: source is required", line)
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("%s:%d", rec.Source, line)
		}

		if indexReplace && !cleared[rec.Source] {
			deleted, err := a.Store.DeleteBySource(ctx, rec.Source)
			if err != nil {
				return err
			}
			cleared[rec.Source] = true
			logger.Info("cleared existing chunks", "source", rec.Source, "deleted", deleted)
		}

		err := a.Store.Add(ctx, knowledge.Document{
			ID:       rec.ID,
			Content:  rec.Content,
			Source:   rec.Source,
			Page:     rec.Page,
			Metadata: rec.Metadata,
		})
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		indexed++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}

	total, err := a.Store.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info("indexing complete", "indexed", indexed, "total_chunks", total)
	return nil
}

func runDeleteSource(parent context.Context, source string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := log.New(log.Config{Level: log.ParseLevel("info")})

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	deleted, err := a.Store.DeleteBySource(ctx, source)
	if err != nil {
		return err
	}
	logger.Info("deleted chunks", "source", source, "count", deleted)
	return nil
}
