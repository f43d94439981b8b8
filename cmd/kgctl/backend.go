package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JasonAskew/knowledge-sub001/ingest/embed"
	"github.com/JasonAskew/knowledge-sub001/ingest/entity"
	"github.com/JasonAskew/knowledge-sub001/internal/config"
	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/rerank"
	"github.com/JasonAskew/knowledge-sub001/retrieval"
	"github.com/JasonAskew/knowledge-sub001/store"
	neo4jstore "github.com/JasonAskew/knowledge-sub001/store/neo4j"
	"github.com/JasonAskew/knowledge-sub001/store/postgres"
)

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

// openStore builds the configured store.Store backend (spec.md §6:
// "an alternative implementation may use ... any graph store").
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case "neo4j":
		neoCfg := neo4jstore.Config{
			URI:      cfg.Store.DSN,
			Username: envOr("KG_NEO4J_USERNAME", "neo4j"),
			Password: os.Getenv("KG_NEO4J_PASSWORD"),
			Database: envOr("KG_NEO4J_DATABASE", "neo4j"),
		}
		return neo4jstore.Connect(ctx, neoCfg, cfg.Embed.Dimension)
	case "postgres", "":
		return postgres.Connect(cfg.Store.DSN, cfg.Embed.Dimension, log, false)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func openEmbedder(cfg config.Config) (embed.Func, func() error, error) {
	return embed.New(embed.Config{
		Model:     cfg.Embed.Model,
		Dimension: cfg.Embed.Dimension,
	})
}

// singleEmbed adapts the orchestrator's batched embed.Func to the
// single-text retrieval.EmbedFunc the query engine expects at request time.
func singleEmbed(batched embed.Func) retrieval.EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := batched([]string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) == 0 {
			return nil, fmt.Errorf("embed: no vector returned for query text")
		}
		return vectors[0], nil
	}
}

func openCrossEncoder(modelPath string) (rerank.CrossEncodeFunc, func() error, error) {
	if modelPath == "" {
		return nil, func() error { return nil }, nil
	}
	return rerank.NewCrossEncoder(modelPath)
}

func loadHierarchyTable(path string) (model.HierarchyTable, error) {
	var table model.HierarchyTable
	if path == "" {
		return table, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("read hierarchy table %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &table); err != nil {
		return table, fmt.Errorf("parse hierarchy table %s: %w", path, err)
	}
	return table, nil
}

func loadAbbreviationTable(path string) (entity.AbbreviationTable, error) {
	table := entity.AbbreviationTable{}
	if path == "" {
		return table, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("read abbreviation table %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &table); err != nil {
		return table, fmt.Errorf("parse abbreviation table %s: %w", path, err)
	}
	return table, nil
}

func loadInventory(path string) ([]model.InventoryEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory %s: %w", path, err)
	}
	var entries []model.InventoryEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}
	return entries, nil
}
