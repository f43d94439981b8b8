// Package retrieval implements the six retrieval strategies of spec.md
// §4.7 over the store.Store interface, sharing the Query input and
// Candidate output types of model/query.go and model/result.go.
package retrieval

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/store"
)

// EmbedFunc embeds a single query string to a D-dim vector.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Engine runs one or more strategies against a Store.
type Engine struct {
	Store store.Store
	Embed EmbedFunc
}

func New(s store.Store, embed EmbedFunc) *Engine {
	return &Engine{Store: s, Embed: embed}
}

func toVectorFilter(f model.Filter) store.VectorFilter {
	return store.VectorFilter{
		Division:     f.Division,
		Category:     f.Category,
		CommunityIDs: f.CommunityIDs,
		Keyword:      f.Keyword,
	}
}

// --- 4.7.1 Vector strategy ---

func (e *Engine) Vector(ctx context.Context, q model.Query) ([]model.Candidate, error) {
	vec, err := e.Embed(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	k := q.TopK
	if q.Rerank {
		k = 2 * q.TopK
	}
	matches, err := e.Store.VectorTopK(ctx, vec, k, toVectorFilter(queryFilter(q)))
	if err != nil {
		return nil, err
	}

	out := make([]model.Candidate, 0, len(matches))
	for _, m := range matches {
		cosine := m.Cosine
		out = append(out, model.Candidate{
			ChunkID:    m.ChunkID,
			BaseScore:  cosine,
			Provenance: model.StrategyVector,
			Signals:    model.Signals{Cosine: &cosine},
		})
	}
	return out, nil
}

func queryFilter(q model.Query) model.Filter {
	return model.Filter{Division: q.DivisionFilter, Category: q.CategoryFilter}
}

// --- 4.7.2 Keyword strategy ---

var stopTokens = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "to": {}, "in": {}, "on": {}, "is": {}, "for": {}, "and": {},
}

func queryKeywords(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	var out []string
	for _, t := range raw {
		t = strings.Trim(t, ".,;:!?()[]{}\"'")
		if len(t) <= 2 {
			continue
		}
		if _, stop := stopTokens[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

var tokenPattern = regexp.MustCompile(`\S+`)

func (e *Engine) Keyword(ctx context.Context, q model.Query) ([]model.Candidate, error) {
	keywords := queryKeywords(q.Text)
	if len(keywords) == 0 {
		return nil, nil
	}
	chunkIDs, err := e.Store.KeywordChunks(ctx, keywords, store.KeywordModeAny, q.TopK*4)
	if err != nil {
		return nil, err
	}

	var out []model.Candidate
	for _, id := range chunkIDs {
		chunk, err := e.Store.GetChunk(ctx, id)
		if err != nil {
			continue
		}
		matches := countKeywordMatches(chunk.Text, keywords)
		if matches == 0 {
			continue
		}
		score := float64(matches) / float64(len(keywords))
		out = append(out, model.Candidate{
			ChunkID:    id,
			Chunk:      chunk,
			BaseScore:  score,
			Provenance: model.StrategyKeyword,
			Signals:    model.Signals{KeywordMatches: &matches},
		})
	}
	sortByScoreDesc(out)
	return truncate(out, q.TopK), nil
}

func countKeywordMatches(text string, keywords []string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

// --- 4.7.3 Graph strategy ---

func (e *Engine) Graph(ctx context.Context, q model.Query) ([]model.Candidate, error) {
	keywords := queryKeywords(q.Text)
	entities, err := e.Store.FindEntitiesByText(ctx, keywords)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, nil
	}
	entityIDs := make([]string, len(entities))
	entityByID := make(map[string]*model.Entity, len(entities))
	for i, ent := range entities {
		entityIDs[i] = ent.ID
		entityByID[ent.ID] = ent
	}

	chunkIDs, err := e.Store.ChunksByEntities(ctx, entityIDs)
	if err != nil {
		return nil, err
	}

	var out []model.Candidate
	for _, chunkID := range chunkIDs {
		inChunk, err := e.Store.EntitiesInChunk(ctx, chunkID)
		if err != nil {
			continue
		}
		var matched []string
		for _, ent := range inChunk {
			if _, ok := entityByID[ent.ID]; ok {
				matched = append(matched, ent.CanonicalText)
			}
		}
		if len(matched) == 0 {
			continue
		}
		chunk, err := e.Store.GetChunk(ctx, chunkID)
		if err != nil {
			continue
		}
		count := len(matched)
		out = append(out, model.Candidate{
			ChunkID:    chunkID,
			Chunk:      chunk,
			BaseScore:  float64(count),
			Provenance: model.StrategyGraph,
			Signals:    model.Signals{EntityMatches: &count, MatchedEntities: matched},
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BaseScore != out[j].BaseScore {
			return out[i].BaseScore > out[j].BaseScore
		}
		return out[i].Chunk.PageNum < out[j].Chunk.PageNum
	})
	return truncate(out, q.TopK), nil
}

// --- 4.7.4 Hybrid strategy ---

const (
	hybridVectorWeight  = 0.7
	hybridKeywordWeight = 0.3
)

func (e *Engine) Hybrid(ctx context.Context, q model.Query) ([]model.Candidate, error) {
	vectorCandidates, err := e.Vector(ctx, q)
	if err != nil {
		return nil, err
	}
	keywordCandidates, err := e.Keyword(ctx, q)
	if err != nil {
		return nil, err
	}

	byChunk := make(map[string]*model.Candidate)
	for _, c := range vectorCandidates {
		cc := c
		byChunk[c.ChunkID] = &cc
	}
	for _, c := range keywordCandidates {
		if existing, ok := byChunk[c.ChunkID]; ok {
			existing.Signals = existing.Signals.Merge(c.Signals)
		} else {
			cc := c
			byChunk[c.ChunkID] = &cc
		}
	}

	queryKeywordCount := len(queryKeywords(q.Text))
	var out []model.Candidate
	for chunkID, c := range byChunk {
		cosine := 0.0
		if c.Signals.Cosine != nil {
			cosine = *c.Signals.Cosine
		}
		keywordScore := 0.0
		matches := 0
		if c.Signals.KeywordMatches != nil {
			matches = *c.Signals.KeywordMatches
			if queryKeywordCount > 0 {
				keywordScore = float64(matches) / float64(queryKeywordCount)
			}
		}
		if cosine < 0.5 && matches < 1 {
			continue
		}
		base := hybridVectorWeight*cosine + hybridKeywordWeight*keywordScore
		out = append(out, model.Candidate{
			ChunkID:    chunkID,
			Chunk:      c.Chunk,
			BaseScore:  base,
			Provenance: model.StrategyHybrid,
			Signals:    c.Signals,
		})
	}
	sortByScoreDesc(out)
	return truncate(out, q.TopK), nil
}

// --- 4.7.5 Community-aware strategy ---

func (e *Engine) Community(ctx context.Context, q model.Query) ([]model.Candidate, error) {
	keywords := queryKeywords(q.Text)
	entities, err := e.Store.FindEntitiesByText(ctx, keywords)
	if err != nil {
		return nil, err
	}
	entityIDs := make([]string, len(entities))
	for i, ent := range entities {
		entityIDs[i] = ent.ID
	}
	communities, err := e.Store.CommunitiesOf(ctx, entityIDs)
	if err != nil {
		return nil, err
	}

	vec, err := e.Embed(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	var candidates []model.Candidate
	if len(communities) > 0 {
		filter := toVectorFilter(queryFilter(q))
		filter.CommunityIDs = communities
		matches, err := e.Store.VectorTopK(ctx, vec, q.TopK, filter)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			inChunk, err := e.Store.EntitiesInChunk(ctx, m.ChunkID)
			if err != nil {
				continue
			}
			coverage, avgCentrality := communityCoverage(inChunk, communities)
			cosine := m.Cosine
			candidates = append(candidates, model.Candidate{
				ChunkID:    m.ChunkID,
				BaseScore:  cosine,
				Provenance: model.StrategyCommunity,
				Signals: model.Signals{
					Cosine:            &cosine,
					CommunityCoverage: &coverage,
					AvgCentrality:     &avgCentrality,
				},
			})
		}
	}

	if need := q.TopK - len(candidates); need > 0 {
		// Overfetch so the bridge-node bias below has real candidates to
		// prefer instead of just whatever plain cosine rank hands back.
		pool := need * 3
		topUp, err := e.Store.VectorTopK(ctx, vec, pool, toVectorFilter(queryFilter(q)))
		if err != nil {
			return nil, err
		}
		bridgeChunks, err := e.Store.BridgeNodeChunks(ctx)
		if err != nil {
			return nil, err
		}
		isBridge := make(map[string]struct{}, len(bridgeChunks))
		for _, cid := range bridgeChunks {
			isBridge[cid] = struct{}{}
		}

		seen := make(map[string]struct{}, len(candidates))
		for _, c := range candidates {
			seen[c.ChunkID] = struct{}{}
		}
		var fresh []model.Candidate
		for _, m := range topUp {
			if _, dup := seen[m.ChunkID]; dup {
				continue
			}
			seen[m.ChunkID] = struct{}{}
			cosine := m.Cosine
			_, bridge := isBridge[m.ChunkID]
			fresh = append(fresh, model.Candidate{
				ChunkID:    m.ChunkID,
				BaseScore:  cosine,
				Provenance: model.StrategyCommunity,
				Signals:    model.Signals{Cosine: &cosine, BridgeNode: &bridge},
			})
		}
		// Stable-sort bridge-linked chunks ahead of non-bridge ones so
		// top-up preferentially surfaces entities that connect communities,
		// keeping each group's cosine order intact.
		sort.SliceStable(fresh, func(i, j int) bool {
			bi, bj := *fresh[i].Signals.BridgeNode, *fresh[j].Signals.BridgeNode
			return bi && !bj
		})
		if len(fresh) > need {
			fresh = fresh[:need]
		}
		candidates = append(candidates, fresh...)
	}

	sortByScoreDesc(candidates)
	return truncate(candidates, q.TopK), nil
}

func communityCoverage(entities []*model.Entity, queryCommunities []int) (int, float64) {
	want := make(map[int]struct{}, len(queryCommunities))
	for _, c := range queryCommunities {
		want[c] = struct{}{}
	}
	seen := make(map[int]struct{})
	var sum float64
	var n int
	for _, e := range entities {
		if e.CommunityID == nil {
			continue
		}
		if _, ok := want[*e.CommunityID]; !ok {
			continue
		}
		seen[*e.CommunityID] = struct{}{}
		if e.DegreeCentrality != nil {
			sum += *e.DegreeCentrality
			n++
		}
	}
	avg := 0.0
	if n > 0 {
		avg = sum / float64(n)
	}
	return len(seen), avg
}

func sortByScoreDesc(candidates []model.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].BaseScore > candidates[j].BaseScore })
}

func truncate(candidates []model.Candidate, topK int) []model.Candidate {
	if topK > 0 && len(candidates) > topK {
		return candidates[:topK]
	}
	return candidates
}
