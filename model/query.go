package model

// StrategyName enumerates the retrieval strategies of spec.md §4.7.
type StrategyName string

const (
	StrategyVector         StrategyName = "vector"
	StrategyKeyword        StrategyName = "keyword"
	StrategyGraph          StrategyName = "graph"
	StrategyHybrid         StrategyName = "hybrid"
	StrategyCommunity      StrategyName = "community"
	StrategyNLToGraph      StrategyName = "nl_to_graph"
)

// Filter restricts candidate chunks by division/category/community
// (spec.md §4.1 vector_topk filter, §6 "Query input").
type Filter struct {
	Division     string
	Category     string
	CommunityIDs []int
	Keyword      string
}

// Query is the shared input to every retrieval strategy (spec.md §4.7).
type Query struct {
	Text            string
	DivisionFilter  string
	CategoryFilter  string
	TopK            int
	Rerank          bool
	FusionWeights   *FusionWeights
}

// SearchRequest is the query engine facade's public input (spec.md §4.9).
type SearchRequest struct {
	Text     string
	Strategy StrategyName
	TopK     int
	Rerank   bool
	Filters  Filter
}

// FusionWeights are the configurable weights of spec.md §4.8 step 4;
// the four weights must sum to 1.0.
type FusionWeights struct {
	Rerank       float64
	Base         float64
	KeywordBoost float64
	MetadataType float64
}

// DefaultFusionWeights returns the spec's default fusion weights.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Rerank: 0.4, Base: 0.25, KeywordBoost: 0.15, MetadataType: 0.20}
}

// DefaultQueryConfig returns sensible defaults for a Query.
func DefaultQueryConfig() Query {
	return Query{TopK: 5, Rerank: true}
}
