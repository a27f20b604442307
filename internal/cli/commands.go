package cli

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/pkg/validator"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (a *app) ingestCommand() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Ingest files, or every supported file under a directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := collectFiles(args)
			if err != nil {
				return err
			}

			var (
				mu     sync.Mutex
				failed int
			)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(concurrency, 1))

			for _, path := range paths {
				path := path
				g.Go(func() error {
					doc, err := a.services.Ingestion.IngestFile(ctx, path)

					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						failed++
						fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %v\n", path, err)
						return nil
					}
					fmt.Fprintf(cmd.OutOrStdout(), "indexed %s -> %s (%d chunks)\n", path, doc.ID, doc.ChunkCount)
					return nil
				})
			}
			_ = g.Wait()

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(paths))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "files ingested in parallel")

	return cmd
}

// collectFiles expands directories into the supported files they contain
func collectFiles(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && validator.AllowedExtensions[strings.ToLower(filepath.Ext(path))] {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func (a *app) queryCommand() *cobra.Command {
	var (
		topK     int
		strategy string
		minScore float64
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question from the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := entity.ParseSearchStrategy(strategy, "")
			if err != nil {
				return fmt.Errorf("invalid strategy %q", strategy)
			}

			answer, err := a.services.Rag.Query(cmd.Context(), entity.QueryRequest{
				Query:    strings.Join(args, " "),
				TopK:     topK,
				Strategy: st,
				MinScore: minScore,
			})
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			if asJSON {
				data, err := json.MarshalIndent(answer, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal answer: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), answer.Answer)
			if len(answer.Sources) > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), "Sources:")
				for _, s := range answer.Sources {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", s)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d chunks, %s, %dms\n", answer.RetrievedChunks, answer.Strategy, answer.Timings.TotalMs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "chunks to retrieve (server default when 0)")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "VECTOR_ONLY, HYBRID or BM25_ONLY")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "drop chunks scoring below this")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full answer as JSON")

	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Remove every chunk of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.services.Ingestion.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func (a *app) countCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of indexed chunks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.services.Index.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}
