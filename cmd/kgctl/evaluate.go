package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JasonAskew/knowledge-sub001/eval"
	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/query"
)

func newEvaluateCmd() *cobra.Command {
	var casesPath string
	var strategy string
	var noRerank bool
	var crossEncoderPath string
	var name string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the accuracy/latency harness against a set of labeled cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			cases, err := loadCases(casesPath)
			if err != nil {
				return err
			}
			if len(cases) == 0 {
				return fmt.Errorf("no evaluation cases found in %s", casesPath)
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

			evalCfg := eval.Config{
				Name:     name,
				Strategy: model.StrategyName(strategy),
				Rerank:   !noRerank,
				TopK:     cfg.Query.DefaultTopK,
			}
			report := eval.Run(ctx, engine, evalCfg, cases)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "hit rate: %.2f%% (mean %s, p95 %s)\n",
				report.HitRate*100, report.MeanLatency, report.P95Latency)
			return nil
		},
	}

	cmd.Flags().StringVar(&casesPath, "cases", "", "path to a YAML/JSON list of eval.Case")
	cmd.Flags().StringVar(&strategy, "strategy", "", "retrieval strategy under test")
	cmd.Flags().BoolVar(&noRerank, "no-rerank", false, "evaluate without the rerank pipeline")
	cmd.Flags().StringVar(&crossEncoderPath, "cross-encoder-model", "", "path to a hugot cross-encoder model")
	cmd.Flags().StringVar(&name, "name", "default", "label recorded on the report for this configuration")
	_ = cmd.MarkFlagRequired("cases")

	return cmd
}

func loadCases(path string) ([]eval.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases %s: %w", path, err)
	}
	var cases []eval.Case
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse cases %s: %w", path, err)
	}
	return cases, nil
}
