package model

import "time"

// EntityType is the closed tag set for surface mentions (spec.md §3).
type EntityType string

const (
	EntityTypeProduct     EntityType = "product"
	EntityTypeInstitution EntityType = "institution"
	EntityTypeAmount      EntityType = "amount"
	EntityTypeTerm        EntityType = "term"
	EntityTypeOther       EntityType = "other"
)

// Entity is a surface mention normalized across occurrences, enriched
// in place by the community detector (spec.md §3, §4.6).
type Entity struct {
	ID              string     `json:"id"`
	CanonicalText   string     `json:"canonical_text"`
	Type            EntityType `json:"entity_type"`
	OccurrenceCount int        `json:"occurrence_count"`

	CommunityID      *int     `json:"community_id,omitempty"`
	DegreeCentrality *float64 `json:"degree_centrality,omitempty"`
	IsBridgeNode     bool     `json:"is_bridge_node"`

	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
