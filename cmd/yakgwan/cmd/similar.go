package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yakgwan-ai/yakgwan/internal/store"
)

// similarOptions holds CLI flags for similar.
type similarOptions struct {
	limit  int
	format string
}

func newSimilarCmd() *cobra.Command {
	var opts similarOptions

	cmd := &cobra.Command{
		Use:   "similar <chunk-id>",
		Short: "Find chunks similar to a given chunk",
		Long: `Find the chunks whose embeddings are nearest to the given chunk,
useful for exploring how the policy text clusters.

Examples:
  yakgwan similar 1042
  yakgwan similar 1042 --limit 10 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunkID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chunk id %q: %w", args[0], err)
			}
			return runSimilar(cmd.Context(), cmd, chunkID, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 5, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSimilar(ctx context.Context, cmd *cobra.Command, chunkID int64, opts similarOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, cleanup := setupLogging(cfg)
	defer cleanup()

	st, err := store.NewPostgresStore(ctx, cfg.Database.DSN, cfg.Database.MaxConns, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := st.SimilarChunks(ctx, chunkID, opts.limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "유사한 청크가 없습니다.")
		return nil
	}

	for i, r := range results {
		fmt.Fprintf(out, "%d. 청크 %d (유사도 %.3f)\n", i+1, r.ID, r.Similarity)
		if r.ClauseNumber != "" {
			fmt.Fprintf(out, "   조항: %s\n", r.ClauseNumber)
		}
		fmt.Fprintf(out, "   문서: %s\n", r.Document.Filename)
		fmt.Fprintf(out, "   %s\n", snippet(r.Content, 100))
	}

	return nil
}

func snippet(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "..."
}
