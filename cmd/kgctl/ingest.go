package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"

	"github.com/JasonAskew/knowledge-sub001/ingest/orchestrator"
)

func newIngestCmd() *cobra.Command {
	var inventoryPath string
	var hierarchyPath string
	var abbreviationPath string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run the six-phase ingestion pipeline over an inventory of PDFs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			entries, err := loadInventory(inventoryPath)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "inventory is empty, nothing to do")
				return nil
			}

			hierarchyTable, err := loadHierarchyTable(hierarchyPath)
			if err != nil {
				return err
			}
			abbreviations, err := loadAbbreviationTable(abbreviationPath)
			if err != nil {
				return err
			}

			log := slog.Default()
			ctx := context.Background()

			s, err := openStore(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			embedFn, closeEmbed, err := openEmbedder(cfg)
			if err != nil {
				return fmt.Errorf("open embedder: %w", err)
			}
			defer closeEmbed()

			orchCfg := orchestrator.DefaultConfig()
			orchCfg.ExtractWorkers = cfg.Ingest.ExtractWorkers
			orchCfg.ChunkWorkers = cfg.Ingest.ChunkWorkers
			orchCfg.EntityWorkers = cfg.Ingest.EntityWorkers
			orchCfg.GraphWriters = cfg.Ingest.GraphWriters
			orchCfg.EmbedBatchSize = cfg.Ingest.EmbedBatchSize
			orchCfg.RetryBudget = cfg.Ingest.RetryBudget
			orchCfg.RetryBaseDelay = cfg.Ingest.RetryBaseDelay
			orchCfg.MinRelatedStrength = cfg.Ingest.MinRelatedStrength
			orchCfg.HierarchyTable = hierarchyTable
			orchCfg.AbbreviationTable = abbreviations

			bar := progressbar.New(len(entries))
			orch := orchestrator.New(s, embedFn, orchCfg, log)

			fmt.Fprintf(cmd.OutOrStdout(), "ingesting %d documents\n", len(entries))
			summary, err := orch.Run(ctx, entries)
			_ = bar.Add(len(entries))
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nprocessed: %d, failed: %d\n", summary.Processed, len(summary.Failed))
			for _, f := range summary.Failed {
				fmt.Fprintf(cmd.OutOrStdout(), "  failed %s at phase %s: %s\n", f.DocumentID, f.Phase, f.Err)
			}
			for phase, d := range summary.Timings {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", phase, d)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&inventoryPath, "inventory", "", "path to a YAML/JSON inventory file ([]model.InventoryEntry)")
	cmd.Flags().StringVar(&hierarchyPath, "hierarchy-table", "", "path to a YAML hierarchy table")
	cmd.Flags().StringVar(&abbreviationPath, "abbreviations", "", "path to a YAML abbreviation table")
	_ = cmd.MarkFlagRequired("inventory")

	return cmd
}
