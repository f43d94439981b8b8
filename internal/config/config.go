// Package config loads the engine's layered configuration: built-in
// defaults, then a YAML file, then environment overrides of the keys that
// file sets (see Load), via
// github.com/spf13/viper (as in RedClaus-cortex), with optional local
// .env loading via github.com/joho/godotenv (existing dependency).
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the engine's full runtime configuration.
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Embed    EmbedConfig    `mapstructure:"embed"`
	Chunk    ChunkConfig    `mapstructure:"chunk"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Fusion   FusionConfig   `mapstructure:"fusion"`
	Query    QueryConfig    `mapstructure:"query"`
	Hierarchy string        `mapstructure:"hierarchy_table_path"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"` // "postgres" or "neo4j"
	DSN     string `mapstructure:"dsn"`
}

type EmbedConfig struct {
	Dimension int    `mapstructure:"dimension"`
	Model     string `mapstructure:"model"`
}

type ChunkConfig struct {
	TargetTokens  int `mapstructure:"target_tokens"`
	OverlapTokens int `mapstructure:"overlap_tokens"`
}

type IngestConfig struct {
	ExtractWorkers  int           `mapstructure:"extract_workers"`
	ChunkWorkers    int           `mapstructure:"chunk_workers"`
	EmbedBatchSize  int           `mapstructure:"embed_batch_size"`
	EntityWorkers   int           `mapstructure:"entity_workers"`
	GraphWriters    int           `mapstructure:"graph_writers"`
	RetryBudget     int           `mapstructure:"retry_budget"`
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay"`
	PageTimeout     time.Duration `mapstructure:"page_timeout"`
	MinRelatedStrength int        `mapstructure:"min_related_strength"`
}

type FusionConfig struct {
	Rerank       float64 `mapstructure:"rerank"`
	Base         float64 `mapstructure:"base"`
	KeywordBoost float64 `mapstructure:"keyword_boost"`
	MetadataType float64 `mapstructure:"metadata_type"`
}

type QueryConfig struct {
	DefaultTopK     int           `mapstructure:"default_top_k"`
	RequestDeadline time.Duration `mapstructure:"request_deadline"`
}

// Default returns the spec's default configuration values.
func Default() Config {
	return Config{
		Store: StoreConfig{Backend: "postgres", DSN: "postgres://localhost:5432/knowledge?sslmode=disable"},
		Embed: EmbedConfig{Dimension: 384, Model: "sentence-transformers/all-MiniLM-L6-v2"},
		Chunk: ChunkConfig{TargetTokens: 512, OverlapTokens: 128},
		Ingest: IngestConfig{
			ExtractWorkers:     4,
			ChunkWorkers:       4,
			EmbedBatchSize:     32,
			EntityWorkers:      4,
			GraphWriters:       4,
			RetryBudget:        3,
			RetryBaseDelay:     200 * time.Millisecond,
			PageTimeout:        30 * time.Second,
			MinRelatedStrength: 1,
		},
		Fusion: FusionConfig{Rerank: 0.4, Base: 0.25, KeywordBoost: 0.15, MetadataType: 0.20},
		Query:  QueryConfig{DefaultTopK: 5, RequestDeadline: 30 * time.Second},
	}
}

// Load reads an optional .env file, then layers a YAML config file over
// the defaults. Environment variables (prefix KG_, named after the dotted
// key, e.g. KG_STORE.DSN) override only keys that the YAML file sets; when
// path is empty the defaults are returned and the environment is not read.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("KG")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	return cfg, nil
}
