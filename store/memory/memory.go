// Package memory is an in-process Store implementation (spec.md §6:
// "an alternative implementation may use an in-process index"). It backs
// fast unit tests for the retrieval/rerank/query/community packages
// without a running Postgres or Neo4j instance.
package memory

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/JasonAskew/knowledge-sub001/internal/errs"
	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/store"
)

// Store is a mutex-guarded in-memory graph store.
type Store struct {
	mu sync.RWMutex

	documents map[string]*model.Document
	chunks    map[string]*model.Chunk
	chunksByDoc map[string][]string

	entities      map[string]*model.Entity
	entityByText  map[string]string
	chunkEntities map[string]map[string]struct{} // chunkID -> set(entityID)
	entityChunks  map[string]map[string]struct{} // entityID -> set(chunkID)

	related map[string]map[string]float64 // entityID -> entityID -> strength

	nextEntityID int
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		documents:     map[string]*model.Document{},
		chunks:        map[string]*model.Chunk{},
		chunksByDoc:   map[string][]string{},
		entities:      map[string]*model.Entity{},
		entityByText:  map[string]string{},
		chunkEntities: map[string]map[string]struct{}{},
		entityChunks:  map[string]map[string]struct{}{},
		related:       map[string]map[string]float64{},
	}
}

func (s *Store) UpsertDocument(_ context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = doc
	return nil
}

func (s *Store) ReplaceDocumentChunks(_ context.Context, documentID string, chunks []*model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, old := range s.chunksByDoc[documentID] {
		delete(s.chunks, old)
		delete(s.chunkEntities, old)
	}
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		s.chunks[c.ID] = c
		ids = append(ids, c.ID)
	}
	s.chunksByDoc[documentID] = ids
	return nil
}

func (s *Store) GetDocument(_ context.Context, documentID string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[documentID]
	if !ok {
		return nil, errs.New("get document", errNotFound(documentID))
	}
	return d, nil
}

func (s *Store) GetChunk(_ context.Context, chunkID string) (*model.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[chunkID]
	if !ok {
		return nil, errs.New("get chunk", errNotFound(chunkID))
	}
	return c, nil
}

func (s *Store) ChunksByDocument(_ context.Context, documentID string) ([]*model.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Chunk
	for _, id := range s.chunksByDoc[documentID] {
		out = append(out, s.chunks[id])
	}
	return out, nil
}

func (s *Store) AllDocuments(_ context.Context) ([]*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Document, 0, len(s.documents))
	for _, d := range s.documents {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AllChunks(_ context.Context) ([]*model.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	return out, nil
}

func (s *Store) UpsertEntity(_ context.Context, canonicalText string, entityType model.EntityType) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(canonicalText))
	if id, ok := s.entityByText[key]; ok {
		s.entities[id].OccurrenceCount++
		return id, nil
	}
	s.nextEntityID++
	id := "e" + strconv.Itoa(s.nextEntityID)
	s.entities[id] = &model.Entity{ID: id, CanonicalText: key, Type: entityType, OccurrenceCount: 1}
	s.entityByText[key] = id
	return id, nil
}

func (s *Store) LinkChunkEntity(_ context.Context, chunkID, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chunkEntities[chunkID] == nil {
		s.chunkEntities[chunkID] = map[string]struct{}{}
	}
	s.chunkEntities[chunkID][entityID] = struct{}{}
	if s.entityChunks[entityID] == nil {
		s.entityChunks[entityID] = map[string]struct{}{}
	}
	s.entityChunks[entityID][chunkID] = struct{}{}
	return nil
}

func (s *Store) GetEntity(_ context.Context, entityID string) (*model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[entityID]
	if !ok {
		return nil, errs.New("get entity", errNotFound(entityID))
	}
	return e, nil
}

func (s *Store) FindEntitiesByText(_ context.Context, substrings []string) ([]*model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Entity
	for _, e := range s.entities {
		for _, sub := range substrings {
			if sub == "" {
				continue
			}
			if strings.Contains(e.CanonicalText, strings.ToLower(sub)) {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

func (s *Store) ChunksByEntities(_ context.Context, entityIDs []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	var out []string
	for _, eid := range entityIDs {
		for cid := range s.entityChunks[eid] {
			if _, ok := seen[cid]; ok {
				continue
			}
			seen[cid] = struct{}{}
			out = append(out, cid)
		}
	}
	return out, nil
}

func (s *Store) EntitiesInChunks(_ context.Context, chunkIDs []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	var out []string
	for _, cid := range chunkIDs {
		for eid := range s.chunkEntities[cid] {
			if _, ok := seen[eid]; ok {
				continue
			}
			seen[eid] = struct{}{}
			out = append(out, eid)
		}
	}
	return out, nil
}

func (s *Store) EntitiesInChunk(_ context.Context, chunkID string) ([]*model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Entity
	for eid := range s.chunkEntities[chunkID] {
		out = append(out, s.entities[eid])
	}
	return out, nil
}

func (s *Store) BuildRelatedTo(_ context.Context, minStrength int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]map[string]float64{}
	for _, entitySet := range s.chunkEntities {
		ids := make([]string, 0, len(entitySet))
		for id := range entitySet {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				a, b := ids[i], ids[j]
				if counts[a] == nil {
					counts[a] = map[string]float64{}
				}
				if counts[b] == nil {
					counts[b] = map[string]float64{}
				}
				counts[a][b]++
				counts[b][a]++
			}
		}
	}
	related := map[string]map[string]float64{}
	for a, m := range counts {
		for b, strength := range m {
			if int(strength) <= minStrength {
				continue
			}
			if related[a] == nil {
				related[a] = map[string]float64{}
			}
			related[a][b] = strength
		}
	}
	s.related = related
	return nil
}

func (s *Store) SetEntityCommunity(_ context.Context, entityID string, communityID int, centrality float64, isBridge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[entityID]
	if !ok {
		return errs.New("set entity community", errNotFound(entityID))
	}
	e.CommunityID = &communityID
	e.DegreeCentrality = &centrality
	e.IsBridgeNode = isBridge
	return nil
}

func (s *Store) Neighbors(_ context.Context, entityID string) ([]model.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Neighbor
	for id, strength := range s.related[entityID] {
		out = append(out, model.Neighbor{EntityID: id, Strength: strength})
	}
	return out, nil
}

func (s *Store) CommunitiesOf(_ context.Context, entityIDs []string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[int]struct{}{}
	var out []int
	for _, id := range entityIDs {
		e, ok := s.entities[id]
		if !ok || e.CommunityID == nil {
			continue
		}
		if _, ok := seen[*e.CommunityID]; ok {
			continue
		}
		seen[*e.CommunityID] = struct{}{}
		out = append(out, *e.CommunityID)
	}
	return out, nil
}

func (s *Store) AllEntities(_ context.Context) ([]*model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// BridgeNodeChunks returns the IDs of chunks linked to at least one
// entity flagged is_bridge_node (spec.md §4.7.5 Phase B bias).
func (s *Store) BridgeNodeChunks(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	var out []string
	for eid, e := range s.entities {
		if !e.IsBridgeNode {
			continue
		}
		for cid := range s.entityChunks[eid] {
			if _, ok := seen[cid]; ok {
				continue
			}
			seen[cid] = struct{}{}
			out = append(out, cid)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) AllEntitiesWithEdges(_ context.Context) ([]*model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Entity
	for id, e := range s.entities {
		if len(s.related[id]) > 0 {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) RelatedToEdges(_ context.Context) ([]*model.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[[2]string]struct{}{}
	var out []*model.Edge
	for a, m := range s.related {
		for b, strength := range m {
			key := [2]string{a, b}
			rev := [2]string{b, a}
			if _, ok := seen[key]; ok {
				continue
			}
			if _, ok := seen[rev]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, &model.Edge{
				Type: model.EdgeRelatedTo, SourceKind: model.NodeKindEntity, SourceID: a,
				TargetKind: model.NodeKindEntity, TargetID: b, Weight: strength, Bidirectional: true,
			})
		}
	}
	return out, nil
}

func (s *Store) VectorTopK(_ context.Context, vec []float32, k int, filter store.VectorFilter) ([]store.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []store.VectorMatch
	for _, c := range s.chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		if len(c.Embedding) != len(vec) {
			return nil, errs.New("vector_topk", &dimErr{expected: len(vec), actual: len(c.Embedding)})
		}
		if !chunkMatchesFilter(s, c, filter) {
			continue
		}
		matches = append(matches, store.VectorMatch{ChunkID: c.ID, Cosine: cosine(vec, c.Embedding)})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Cosine > matches[j].Cosine })
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func chunkMatchesFilter(s *Store, c *model.Chunk, filter store.VectorFilter) bool {
	if filter.Division != "" && !strings.EqualFold(c.Division, filter.Division) {
		return false
	}
	if filter.Category != "" && !strings.EqualFold(c.Category, filter.Category) {
		return false
	}
	if filter.Keyword != "" && !strings.Contains(strings.ToLower(c.Text), strings.ToLower(filter.Keyword)) {
		return false
	}
	if len(filter.CommunityIDs) > 0 {
		want := map[int]struct{}{}
		for _, id := range filter.CommunityIDs {
			want[id] = struct{}{}
		}
		match := false
		for eid := range s.chunkEntities[c.ID] {
			e := s.entities[eid]
			if e != nil && e.CommunityID != nil {
				if _, ok := want[*e.CommunityID]; ok {
					match = true
					break
				}
			}
		}
		if !match {
			return false
		}
	}
	return true
}

func (s *Store) KeywordChunks(_ context.Context, keywords []string, mode store.KeywordMode, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for id, c := range s.chunks {
		lower := strings.ToLower(c.Text)
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				hits++
			}
		}
		ok := false
		switch mode {
		case store.KeywordModeAll:
			ok = hits == len(keywords) && len(keywords) > 0
		default:
			ok = hits > 0
		}
		if ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpsertHierarchy(_ context.Context, documentID string, result model.HierarchyResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[documentID]
	if !ok {
		return errs.New("upsert hierarchy", errNotFound(documentID))
	}
	d.Division = result.Division
	d.Category = result.Category
	d.Products = result.Products
	return nil
}

func (s *Store) SchemaSnapshot(_ context.Context) (store.SchemaSnapshot, error) {
	return store.SchemaSnapshot{
		Labels:    []string{"Document", "Chunk", "Entity", "Institution", "Division", "Category", "Product"},
		EdgeTypes: []string{"HAS_CHUNK", "CONTAINS_ENTITY", "RELATED_TO", "BELONGS_TO_DIVISION", "COVERS_CATEGORY", "COVERS_PRODUCT", "NEXT_CHUNK"},
	}, nil
}

func (s *Store) Stats(_ context.Context) (store.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.Stats{Documents: len(s.documents), Chunks: len(s.chunks), Entities: len(s.entities)}, nil
}

func (s *Store) Close() error { return nil }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type notFoundErr struct{ id string }

func (e *notFoundErr) Error() string { return "not found: " + e.id }
func errNotFound(id string) error    { return &notFoundErr{id: id} }

type dimErr struct{ expected, actual int }

func (e *dimErr) Error() string {
	return "dimension mismatch: expected " + strconv.Itoa(e.expected) + " got " + strconv.Itoa(e.actual)
}

var _ store.Store = (*Store)(nil)
