// Package store defines the single typed interface to persistent
// property-graph state (spec.md §4.1). The core never talks to a
// database directly; every component depends on this interface so a
// Postgres+pgvector backend, a Neo4j backend, or an in-process index
// are interchangeable (spec.md §6: "an alternative implementation may
// use an in-process index plus any graph store").
package store

import (
	"context"

	"github.com/JasonAskew/knowledge-sub001/model"
)

// VectorMatch is one row of a vector_topk result.
type VectorMatch struct {
	ChunkID string
	Cosine  float64
}

// VectorFilter restricts vector_topk / keyword_chunks candidates
// (spec.md §4.1).
type VectorFilter struct {
	Division     string
	Category     string
	CommunityIDs []int
	Keyword      string
}

// KeywordMode selects how keyword_chunks combines its keyword list.
type KeywordMode string

const (
	KeywordModeAny KeywordMode = "any"
	KeywordModeAll KeywordMode = "all"
)

// SchemaSnapshot reports the store's structural shape (spec.md §4.1
// schema_snapshot).
type SchemaSnapshot struct {
	Labels     []string
	EdgeTypes  []string
	Properties map[string][]string
	Constraints []string
	Indexes     []string
}

// Stats reports corpus-wide counts, used by the CLI and the empty-corpus
// scenario of spec.md §8.
type Stats struct {
	Documents int
	Chunks    int
	Entities  int
}

// Store is the graph store contract of spec.md §4.1.
type Store interface {
	// Documents & chunks.
	UpsertDocument(ctx context.Context, doc *model.Document) error
	ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []*model.Chunk) error
	GetDocument(ctx context.Context, documentID string) (*model.Document, error)
	GetChunk(ctx context.Context, chunkID string) (*model.Chunk, error)
	ChunksByDocument(ctx context.Context, documentID string) ([]*model.Chunk, error)
	AllDocuments(ctx context.Context) ([]*model.Document, error)
	AllChunks(ctx context.Context) ([]*model.Chunk, error)

	// Entities.
	UpsertEntity(ctx context.Context, canonicalText string, entityType model.EntityType) (string, error)
	LinkChunkEntity(ctx context.Context, chunkID, entityID string) error
	GetEntity(ctx context.Context, entityID string) (*model.Entity, error)
	FindEntitiesByText(ctx context.Context, substrings []string) ([]*model.Entity, error)
	ChunksByEntities(ctx context.Context, entityIDs []string) ([]string, error)
	EntitiesInChunks(ctx context.Context, chunkIDs []string) ([]string, error)
	EntitiesInChunk(ctx context.Context, chunkID string) ([]*model.Entity, error)
	AllEntities(ctx context.Context) ([]*model.Entity, error)
	BridgeNodeChunks(ctx context.Context) ([]string, error)

	// Relationship building & community detection (spec.md §4.6).
	BuildRelatedTo(ctx context.Context, minStrength int) error
	SetEntityCommunity(ctx context.Context, entityID string, communityID int, centrality float64, isBridge bool) error
	Neighbors(ctx context.Context, entityID string) ([]model.Neighbor, error)
	CommunitiesOf(ctx context.Context, entityIDs []string) ([]int, error)
	AllEntitiesWithEdges(ctx context.Context) ([]*model.Entity, error)
	RelatedToEdges(ctx context.Context) ([]*model.Edge, error)

	// Search primitives (spec.md §4.7).
	VectorTopK(ctx context.Context, vec []float32, k int, filter VectorFilter) ([]VectorMatch, error)
	KeywordChunks(ctx context.Context, keywords []string, mode KeywordMode, limit int) ([]string, error)

	// Hierarchy.
	UpsertHierarchy(ctx context.Context, documentID string, result model.HierarchyResult) error

	// Housekeeping.
	SchemaSnapshot(ctx context.Context) (SchemaSnapshot, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
