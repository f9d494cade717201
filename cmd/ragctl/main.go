package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/laurentvv/haproxy-docs-rag/internal/bootstrap"
	"github.com/laurentvv/haproxy-docs-rag/internal/config"
	"github.com/laurentvv/haproxy-docs-rag/internal/infrastructure/corpus"
	"github.com/laurentvv/haproxy-docs-rag/internal/observability/logging"
)

var (
	topK        int
	jsonOutput  bool
	loadReindex bool
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "Operate the HAProxy documentation retrieval service",
	Long: `ragctl manages the retrieval corpus and indexes.

Typical flow:
  ragctl load sections_enriched.jsonl   # ingest scraped chunks into postgres
  ragctl reindex                        # ask the worker to rebuild the indexes
  ragctl query "health check backend"   # one-shot retrieval for debugging`,
	SilenceUsage: true,
}

var loadCmd = &cobra.Command{
	Use:   "load <file.jsonl>",
	Short: "Load a JSONL corpus file into the chunk store",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Request a full index rebuild via the message queue",
	Args:  cobra.NoArgs,
	RunE:  runReindex,
}

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run one retrieval against the live indexes",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	loadCmd.Flags().BoolVar(&loadReindex, "reindex", false, "Request an index rebuild after loading")
	queryCmd.Flags().IntVarP(&topK, "top-k", "n", 0, "Number of passages to return (0 uses server default)")
	queryCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(queryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newApp(ctx context.Context) (*bootstrap.App, error) {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "ragctl", cfg.LogLevel)
	return bootstrap.New(ctx, cfg, logger)
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	chunks, err := corpus.LoadJSONLFile(args[0])
	if err != nil {
		return fmt.Errorf("load corpus file: %w", err)
	}

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Store.InsertChunks(ctx, chunks); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}
	total, err := app.Store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}
	fmt.Printf("loaded %d chunks, store now holds %d\n", len(chunks), total)

	if loadReindex {
		if err := app.Queue.PublishRebuildRequested(ctx, "corpus-load"); err != nil {
			return fmt.Errorf("request rebuild: %w", err)
		}
		fmt.Println("index rebuild requested")
	}
	return nil
}

func runReindex(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Queue.PublishRebuildRequested(ctx, "ragctl"); err != nil {
		return fmt.Errorf("request rebuild: %w", err)
	}
	fmt.Println("index rebuild requested")
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Retriever.Retrieve(ctx, args[0], topK)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	if result.LowConfidence {
		fmt.Println("low confidence: the documentation may not cover this")
	}
	for _, p := range result.Passages {
		fmt.Printf("%2d. [%.4f] %s (%s §%s)\n", p.Rank, p.Score, p.Title, p.Category, p.SourceSection)
	}
	for _, s := range result.Sources {
		fmt.Printf("    source: %s %s\n", s.URL, s.SourceSection)
	}
	return nil
}
