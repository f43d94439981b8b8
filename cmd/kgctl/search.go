package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/query"
)

func newSearchCmd() *cobra.Command {
	var strategy string
	var division string
	var category string
	var topK int
	var noRerank bool
	var crossEncoderPath string

	cmd := &cobra.Command{
		Use:   "search [query text]",
		Short: "Run a single search against the configured store",
		Args:  cobra.ExactArgs(1),
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

			embedFn, closeEmbed, err := openEmbedder(cfg)
			if err != nil {
				return fmt.Errorf("open embedder: %w", err)
			}
			defer closeEmbed()

			crossEncode, closeCrossEncoder, err := openCrossEncoder(crossEncoderPath)
			if err != nil {
				return fmt.Errorf("open cross encoder: %w", err)
			}
			defer closeCrossEncoder()

			weights := model.FusionWeights{
				Rerank: cfg.Fusion.Rerank, Base: cfg.Fusion.Base,
				KeywordBoost: cfg.Fusion.KeywordBoost, MetadataType: cfg.Fusion.MetadataType,
			}
			engine := query.New(s, singleEmbed(embedFn), crossEncode, weights, log)

			req := model.SearchRequest{
				Text:     args[0],
				Strategy: model.StrategyName(strategy),
				TopK:     topK,
				Rerank:   !noRerank,
				Filters:  model.Filter{Division: division, Category: category},
			}
			results, err := engine.Search(ctx, req)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "retrieval strategy (vector, keyword, graph, hybrid, community, nl_to_graph); defaults to hybrid")
	cmd.Flags().StringVar(&division, "division", "", "restrict to a division")
	cmd.Flags().StringVar(&category, "category", "", "restrict to a category")
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of results to return")
	cmd.Flags().BoolVar(&noRerank, "no-rerank", false, "skip the rerank pipeline")
	cmd.Flags().StringVar(&crossEncoderPath, "cross-encoder-model", "", "path to a hugot cross-encoder model (rerank falls back to 0.5 when unset)")

	return cmd
}
