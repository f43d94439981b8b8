package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JasonAskew/knowledge-sub001/internal/backup"
)

func newExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the corpus to a JSON-lines snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			log := slog.Default()

			s, err := openStore(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}

			stats, err := backup.Export(ctx, s, out, log)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d documents, %d chunks, %d entities, %d edges\n",
				stats.Documents, stats.Chunks, stats.Entities, stats.Edges)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "output file (defaults to stdout)")
	return cmd
}

func newImportCmd() *cobra.Command {
	var inPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Restore a corpus from a JSON-lines snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			log := slog.Default()

			s, err := openStore(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			in := cmd.InOrStdin()
			if inPath != "" {
				f, err := os.Open(inPath)
				if err != nil {
					return fmt.Errorf("open %s: %w", inPath, err)
				}
				defer f.Close()
				in = f
			}

			stats, err := backup.Import(ctx, s, in, log)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			if err := s.BuildRelatedTo(ctx, cfg.Ingest.MinRelatedStrength); err != nil {
				return fmt.Errorf("rebuild related_to after import: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "imported %d documents, %d chunks, %d entities, %d edges\n",
				stats.Documents, stats.Chunks, stats.Entities, stats.Edges)
			return nil
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "", "input file (defaults to stdin)")
	return cmd
}
