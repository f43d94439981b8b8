package model

// Signals is the closed set of per-strategy and fusion fields carried
// alongside a Candidate/Result (spec.md §9: "closed tagged variant per
// strategy with explicit fields ... fusion reads fields, not map keys").
type Signals struct {
	Cosine          *float64 `json:"cosine,omitempty"`
	KeywordMatches  *int     `json:"keyword_matches,omitempty"`
	EntityMatches   *int     `json:"entity_matches,omitempty"`
	MatchedEntities []string `json:"matched_entities,omitempty"`

	CommunityCoverage *int     `json:"community_coverage,omitempty"`
	AvgCentrality     *float64 `json:"avg_centrality,omitempty"`
	BridgeNode        *bool    `json:"bridge_node,omitempty"`

	QueryType       string `json:"query_type,omitempty"`
	MatchedTemplate string `json:"matched_template,omitempty"`

	RerankSkipped bool `json:"rerank_skipped,omitempty"`
}

// merge combines two Signals, taking the union of set fields; on
// numeric conflicts it keeps the larger value (spec.md §4.8 step 1).
func (s Signals) merge(o Signals) Signals {
	out := s
	out.Cosine = mergeFloatPtrMax(out.Cosine, o.Cosine)
	out.KeywordMatches = mergeIntPtrMax(out.KeywordMatches, o.KeywordMatches)
	out.EntityMatches = mergeIntPtrMax(out.EntityMatches, o.EntityMatches)
	out.CommunityCoverage = mergeIntPtrMax(out.CommunityCoverage, o.CommunityCoverage)
	out.AvgCentrality = mergeFloatPtrMax(out.AvgCentrality, o.AvgCentrality)
	if o.BridgeNode != nil && (out.BridgeNode == nil || *o.BridgeNode) {
		out.BridgeNode = o.BridgeNode
	}
	if len(o.MatchedEntities) > 0 {
		out.MatchedEntities = unionStrings(out.MatchedEntities, o.MatchedEntities)
	}
	if o.QueryType != "" {
		out.QueryType = o.QueryType
	}
	if o.MatchedTemplate != "" {
		out.MatchedTemplate = o.MatchedTemplate
	}
	out.RerankSkipped = out.RerankSkipped || o.RerankSkipped
	return out
}

func mergeFloatPtrMax(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *b > *a {
		return b
	}
	return a
}

func mergeIntPtrMax(a, b *int) *int {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *b > *a {
		return b
	}
	return a
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Merge exposes signal merging for the fusion package (spec.md §4.8 step 1).
func (s Signals) Merge(o Signals) Signals { return s.merge(o) }

// Candidate is one chunk proposed by a retrieval strategy, before fusion
// (spec.md §4.7).
type Candidate struct {
	ChunkID     string
	Chunk       *Chunk
	BaseScore   float64
	Provenance  StrategyName
	Signals     Signals
}

// Result is the query engine facade's public output shape (spec.md §4.9).
type Result struct {
	ChunkID     string       `json:"chunk_id"`
	Text        string       `json:"text"`
	Score       float64      `json:"score"`
	RerankScore *float64     `json:"rerank_score,omitempty"`
	DocumentID  string       `json:"document_id"`
	PageNum     int          `json:"page_num"`
	Entities    []string     `json:"entities,omitempty"`
	Strategy    StrategyName `json:"strategy"`
	Signals     Signals      `json:"signals"`
}
