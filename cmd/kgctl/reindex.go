package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JasonAskew/knowledge-sub001/community"
)

func newReindexCmd() *cobra.Command {
	var minStrength int
	var resolution float64

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild entity RELATED_TO edges and recompute communities",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if minStrength <= 0 {
				minStrength = cfg.Ingest.MinRelatedStrength
			}
			if resolution <= 0 {
				resolution = community.DefaultResolution
			}

			ctx := context.Background()
			log := slog.Default()

			s, err := openStore(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			if err := s.BuildRelatedTo(ctx, minStrength); err != nil {
				return fmt.Errorf("build related_to: %w", err)
			}

			assignment, err := community.Detect(ctx, s, resolution)
			if err != nil {
				return fmt.Errorf("community detection: %w", err)
			}
			for entityID, communityID := range assignment.CommunityOf {
				if err := s.SetEntityCommunity(ctx, entityID, communityID, assignment.Centrality[entityID], assignment.IsBridge[entityID]); err != nil {
					return fmt.Errorf("set entity community: %w", err)
				}
			}

			distinct := make(map[int]struct{}, len(assignment.CommunityOf))
			for _, communityID := range assignment.CommunityOf {
				distinct[communityID] = struct{}{}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reindexed: %d communities detected across %d entities\n", len(distinct), len(assignment.CommunityOf))
			return nil
		},
	}

	cmd.Flags().IntVar(&minStrength, "min-related-strength", 0, "minimum co-occurrence count to create RELATED_TO")
	cmd.Flags().Float64Var(&resolution, "resolution", 0, "Louvain resolution parameter")

	return cmd
}
