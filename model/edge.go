package model

import "time"

// NodeKind tags which node table an edge endpoint resolves against. The
// store keeps one generalized edge table rather than per-relationship
// nullable foreign-key columns, so any (kind, id) pair can be an endpoint.
type NodeKind string

const (
	NodeKindDocument    NodeKind = "document"
	NodeKindChunk       NodeKind = "chunk"
	NodeKindEntity      NodeKind = "entity"
	NodeKindInstitution NodeKind = "institution"
	NodeKindDivision    NodeKind = "division"
	NodeKindCategory    NodeKind = "category"
	NodeKindProduct     NodeKind = "product"
)

// EdgeType is the closed set of typed relationships in spec.md §3.
type EdgeType string

const (
	EdgeHasChunk          EdgeType = "HAS_CHUNK"
	EdgeContainsEntity    EdgeType = "CONTAINS_ENTITY"
	EdgeRelatedTo         EdgeType = "RELATED_TO"
	EdgeBelongsToDivision EdgeType = "BELONGS_TO_DIVISION"
	EdgeCoversCategory    EdgeType = "COVERS_CATEGORY"
	EdgeCoversProduct     EdgeType = "COVERS_PRODUCT"
	EdgeNextChunk         EdgeType = "NEXT_CHUNK"
)

// Edge represents one typed relationship between two nodes of the
// property graph (spec.md §3 "Edges").
type Edge struct {
	ID   string   `json:"id"`
	Type EdgeType `json:"edge_type"`

	SourceKind NodeKind `json:"source_kind"`
	SourceID   string   `json:"source_id"`
	TargetKind NodeKind `json:"target_kind"`
	TargetID   string   `json:"target_id"`

	// Weight carries RELATED_TO's co-occurrence strength; unused edge
	// types leave it at zero.
	Weight        float64 `json:"weight,omitempty"`
	Bidirectional bool    `json:"bidirectional"`

	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Neighbor is one entry of the RELATED_TO adjacency of an Entity.
type Neighbor struct {
	EntityID string  `json:"entity_id"`
	Strength float64 `json:"strength"`
}
