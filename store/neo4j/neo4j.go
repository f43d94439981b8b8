// Package neo4j implements store.Store against a Neo4j graph database,
// the alternative backend spec.md §6 explicitly allows ("an alternative
// implementation may use an in-process index plus any graph store").
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/JasonAskew/knowledge-sub001/internal/errs"
	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/store"
)

// Store wraps a Neo4j driver and database name, following the
// lex00-wetwire-neo4j-go importer's driver/database field shape.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

// Config names the connection parameters.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Connect opens a driver, verifies connectivity, and ensures the vector
// index and uniqueness constraints exist.
func Connect(ctx context.Context, cfg Config, embeddingDim int) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, &errs.PermanentStoreError{Op: "create driver", Err: err}
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, &errs.TransientStoreError{Op: "verify connectivity", Err: err}
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	s := &Store{driver: driver, database: database}
	if err := s.ensureSchema(ctx, embeddingDim); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

func (s *Store) ensureSchema(ctx context.Context, embeddingDim int) error {
	session := s.session(ctx)
	defer func() { _ = session.Close(ctx) }()

	statements := []string{
		"CREATE CONSTRAINT document_id IF NOT EXISTS FOR (d:Document) REQUIRE d.id IS UNIQUE",
		"CREATE CONSTRAINT chunk_id IF NOT EXISTS FOR (c:Chunk) REQUIRE c.id IS UNIQUE",
		"CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE",
		fmt.Sprintf(`CREATE VECTOR INDEX chunk_embedding_index IF NOT EXISTS
			FOR (c:Chunk) ON (c.embedding)
			OPTIONS {indexConfig: {`+"`vector.dimensions`"+`: %d, `+"`vector.similarity_function`"+`: 'cosine'}}`, embeddingDim),
	}
	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return classifyErr("ensure schema", err)
		}
	}
	return nil
}

func classifyErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		if neoErr.Classification() == "TransientError" {
			return &errs.TransientStoreError{Op: op, Err: err}
		}
	}
	return &errs.PermanentStoreError{Op: op, Err: err}
}

func (s *Store) run(ctx context.Context, op, cypher string, params map[string]any) (neo4j.ResultWithContext, neo4j.SessionWithContext, error) {
	session := s.session(ctx)
	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		_ = session.Close(ctx)
		return nil, nil, classifyErr(op, err)
	}
	return result, session, nil
}

// --- Documents & chunks ---

func (s *Store) UpsertDocument(ctx context.Context, doc *model.Document) error {
	metaJSON, _ := doc.Metadata.Marshal()
	now := time.Now().UTC()
	cypher := `
		MERGE (d:Document {id: $id})
		ON CREATE SET d.created_at = $now
		SET d.filename = $filename, d.page_count = $page_count, d.title = $title,
		    d.surface_category = $surface_category, d.division = $division,
		    d.category = $category, d.products = $products, d.metadata_json = $metadata_json,
		    d.updated_at = $now`
	params := map[string]any{
		"id": doc.ID, "filename": doc.Filename, "page_count": doc.PageCount, "title": doc.Title,
		"surface_category": doc.SurfaceCategory, "division": doc.Division, "category": doc.Category,
		"products": doc.Products, "metadata_json": string(metaJSON), "now": now.Format(time.RFC3339),
	}
	result, session, err := s.run(ctx, "upsert document", cypher, params)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close(ctx) }()
	_, err = result.Consume(ctx)
	return classifyErr("upsert document", err)
}

func (s *Store) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	result, session, err := s.run(ctx, "get document", `MATCH (d:Document {id: $id}) RETURN d`, map[string]any{"id": documentID})
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()

	record, err := result.Single(ctx)
	if err != nil {
		return nil, fmt.Errorf("document %q not found: %w", documentID, err)
	}
	node, _ := record.Values[0].(neo4j.Node)
	return scanDocument(node), nil
}

func scanDocument(n neo4j.Node) *model.Document {
	doc := &model.Document{
		ID:              stringProp(n.Props, "id"),
		Filename:        stringProp(n.Props, "filename"),
		Title:           stringProp(n.Props, "title"),
		SurfaceCategory: stringProp(n.Props, "surface_category"),
		Division:        stringProp(n.Props, "division"),
		Category:        stringProp(n.Props, "category"),
		Products:        stringSliceProp(n.Props, "products"),
	}
	if v, ok := n.Props["page_count"].(int64); ok {
		doc.PageCount = int(v)
	}
	doc.Metadata = model.Metadata{}
	_ = doc.Metadata.Unmarshal([]byte(stringProp(n.Props, "metadata_json")))
	return doc
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func stringSliceProp(props map[string]any, key string) []string {
	raw, ok := props[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ReplaceDocumentChunks deletes the document's existing chunks and
// re-inserts the given set inside one write transaction, so a partial
// failure leaves the prior version intact (spec.md §4.5 phase 5).
func (s *Store) ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []*model.Chunk) error {
	session := s.session(ctx)
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MATCH (d:Document {id: $id})-[:HAS_CHUNK]->(c:Chunk)
			DETACH DELETE c`, map[string]any{"id": documentID}); err != nil {
			return nil, err
		}

		for _, c := range chunks {
			if err := insertChunkTx(ctx, tx, documentID, c); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return classifyErr("replace document chunks", err)
}

func insertChunkTx(ctx context.Context, tx neo4j.ManagedTransaction, documentID string, c *model.Chunk) error {
	metaJSON, _ := c.Metadata.Marshal()
	embedding := make([]float64, len(c.Embedding))
	for i, f := range c.Embedding {
		embedding[i] = float64(f)
	}
	cypher := `
		MATCH (d:Document {id: $document_id})
		CREATE (c:Chunk {
			id: $id, document_id: $document_id, page_num: $page_num, chunk_index: $chunk_index,
			text: $text, token_count: $token_count, embedding: $embedding,
			semantic_density: $semantic_density, chunk_type: $chunk_type,
			has_definitions: $has_definitions, has_examples: $has_examples, has_lists: $has_lists,
			keywords: $keywords, division: $division, category: $category,
			metadata_json: $metadata_json, created_at: $created_at
		})
		CREATE (d)-[:HAS_CHUNK]->(c)`
	_, err := tx.Run(ctx, cypher, map[string]any{
		"document_id": documentID, "id": c.ID, "page_num": c.PageNum, "chunk_index": c.ChunkIndex,
		"text": c.Text, "token_count": c.TokenCount, "embedding": embedding,
		"semantic_density": c.SemanticDensity, "chunk_type": string(c.ChunkType),
		"has_definitions": c.HasDefinitions, "has_examples": c.HasExamples, "has_lists": c.HasLists,
		"keywords": c.Keywords, "division": c.Division, "category": c.Category,
		"metadata_json": string(metaJSON), "created_at": time.Now().UTC().Format(time.RFC3339),
	})
	return err
}

func (s *Store) GetChunk(ctx context.Context, chunkID string) (*model.Chunk, error) {
	result, session, err := s.run(ctx, "get chunk", `MATCH (c:Chunk {id: $id}) RETURN c`, map[string]any{"id": chunkID})
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()
	record, err := result.Single(ctx)
	if err != nil {
		return nil, fmt.Errorf("chunk %q not found: %w", chunkID, err)
	}
	node, _ := record.Values[0].(neo4j.Node)
	return scanChunk(node), nil
}

func (s *Store) ChunksByDocument(ctx context.Context, documentID string) ([]*model.Chunk, error) {
	result, session, err := s.run(ctx, "chunks by document", `
		MATCH (d:Document {id: $id})-[:HAS_CHUNK]->(c:Chunk)
		RETURN c ORDER BY c.page_num, c.chunk_index`, map[string]any{"id": documentID})
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()

	var out []*model.Chunk
	for result.Next(ctx) {
		node, _ := result.Record().Values[0].(neo4j.Node)
		out = append(out, scanChunk(node))
	}
	return out, classifyErr("chunks by document", result.Err())
}

func (s *Store) AllDocuments(ctx context.Context) ([]*model.Document, error) {
	result, session, err := s.run(ctx, "all documents", `MATCH (d:Document) RETURN d ORDER BY d.id`, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()

	var out []*model.Document
	for result.Next(ctx) {
		node, _ := result.Record().Values[0].(neo4j.Node)
		out = append(out, scanDocument(node))
	}
	return out, classifyErr("all documents", result.Err())
}

func (s *Store) AllChunks(ctx context.Context) ([]*model.Chunk, error) {
	result, session, err := s.run(ctx, "all chunks", `
		MATCH (c:Chunk) RETURN c ORDER BY c.document_id, c.chunk_index`, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()

	var out []*model.Chunk
	for result.Next(ctx) {
		node, _ := result.Record().Values[0].(neo4j.Node)
		out = append(out, scanChunk(node))
	}
	return out, classifyErr("all chunks", result.Err())
}

func scanChunk(n neo4j.Node) *model.Chunk {
	c := &model.Chunk{
		ID:         stringProp(n.Props, "id"),
		DocumentID: stringProp(n.Props, "document_id"),
		Text:       stringProp(n.Props, "text"),
		ChunkType:  model.ChunkType(stringProp(n.Props, "chunk_type")),
		Division:   stringProp(n.Props, "division"),
		Category:   stringProp(n.Props, "category"),
		Keywords:   stringSliceProp(n.Props, "keywords"),
	}
	if v, ok := n.Props["page_num"].(int64); ok {
		c.PageNum = int(v)
	}
	if v, ok := n.Props["chunk_index"].(int64); ok {
		c.ChunkIndex = int(v)
	}
	if v, ok := n.Props["token_count"].(int64); ok {
		c.TokenCount = int(v)
	}
	if v, ok := n.Props["semantic_density"].(float64); ok {
		c.SemanticDensity = v
	}
	if v, ok := n.Props["has_definitions"].(bool); ok {
		c.HasDefinitions = v
	}
	if v, ok := n.Props["has_examples"].(bool); ok {
		c.HasExamples = v
	}
	if v, ok := n.Props["has_lists"].(bool); ok {
		c.HasLists = v
	}
	if raw, ok := n.Props["embedding"].([]any); ok {
		c.Embedding = make([]float32, len(raw))
		for i, v := range raw {
			if f, ok := v.(float64); ok {
				c.Embedding[i] = float32(f)
			}
		}
	}
	c.Metadata = model.Metadata{}
	_ = c.Metadata.Unmarshal([]byte(stringProp(n.Props, "metadata_json")))
	return c
}

// --- Entities ---

func (s *Store) UpsertEntity(ctx context.Context, canonicalText string, entityType model.EntityType) (string, error) {
	id := entityID(canonicalText, entityType)
	cypher := `
		MERGE (e:Entity {id: $id})
		ON CREATE SET e.canonical_text = $text, e.entity_type = $type, e.occurrence_count = 1,
		              e.created_at = $now, e.is_bridge_node = false
		ON MATCH SET e.occurrence_count = e.occurrence_count + 1`
	result, session, err := s.run(ctx, "upsert entity", cypher, map[string]any{
		"id": id, "text": canonicalText, "type": string(entityType), "now": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = session.Close(ctx) }()
	if _, err := result.Consume(ctx); err != nil {
		return "", classifyErr("upsert entity", err)
	}
	return id, nil
}

func entityID(canonicalText string, entityType model.EntityType) string {
	return fmt.Sprintf("%s:%s", entityType, canonicalText)
}

func (s *Store) LinkChunkEntity(ctx context.Context, chunkID, entityID string) error {
	cypher := `
		MATCH (c:Chunk {id: $chunk_id}), (e:Entity {id: $entity_id})
		MERGE (c)-[:CONTAINS_ENTITY]->(e)`
	result, session, err := s.run(ctx, "link chunk entity", cypher, map[string]any{"chunk_id": chunkID, "entity_id": entityID})
	if err != nil {
		return err
	}
	defer func() { _ = session.Close(ctx) }()
	_, err = result.Consume(ctx)
	return classifyErr("link chunk entity", err)
}

func (s *Store) GetEntity(ctx context.Context, entityID string) (*model.Entity, error) {
	result, session, err := s.run(ctx, "get entity", `MATCH (e:Entity {id: $id}) RETURN e`, map[string]any{"id": entityID})
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()
	record, err := result.Single(ctx)
	if err != nil {
		return nil, fmt.Errorf("entity %q not found: %w", entityID, err)
	}
	node, _ := record.Values[0].(neo4j.Node)
	return scanEntity(node), nil
}

func scanEntity(n neo4j.Node) *model.Entity {
	e := &model.Entity{
		ID:            stringProp(n.Props, "id"),
		CanonicalText: stringProp(n.Props, "canonical_text"),
		Type:          model.EntityType(stringProp(n.Props, "entity_type")),
	}
	if v, ok := n.Props["occurrence_count"].(int64); ok {
		e.OccurrenceCount = int(v)
	}
	if v, ok := n.Props["community_id"].(int64); ok {
		cv := int(v)
		e.CommunityID = &cv
	}
	if v, ok := n.Props["degree_centrality"].(float64); ok {
		e.DegreeCentrality = &v
	}
	if v, ok := n.Props["is_bridge_node"].(bool); ok {
		e.IsBridgeNode = v
	}
	return e
}

func (s *Store) FindEntitiesByText(ctx context.Context, substrings []string) ([]*model.Entity, error) {
	if len(substrings) == 0 {
		return nil, nil
	}
	cypher := `
		MATCH (e:Entity)
		WHERE any(term IN $terms WHERE toLower(e.canonical_text) CONTAINS toLower(term))
		RETURN e`
	result, session, err := s.run(ctx, "find entities by text", cypher, map[string]any{"terms": substrings})
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()

	var out []*model.Entity
	for result.Next(ctx) {
		node, _ := result.Record().Values[0].(neo4j.Node)
		out = append(out, scanEntity(node))
	}
	return out, classifyErr("find entities by text", result.Err())
}

func (s *Store) ChunksByEntities(ctx context.Context, entityIDs []string) ([]string, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	cypher := `
		MATCH (c:Chunk)-[:CONTAINS_ENTITY]->(e:Entity)
		WHERE e.id IN $ids
		RETURN DISTINCT c.id`
	return s.queryStrings(ctx, "chunks by entities", cypher, map[string]any{"ids": entityIDs})
}

func (s *Store) EntitiesInChunks(ctx context.Context, chunkIDs []string) ([]string, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	cypher := `
		MATCH (c:Chunk)-[:CONTAINS_ENTITY]->(e:Entity)
		WHERE c.id IN $ids
		RETURN DISTINCT e.id`
	return s.queryStrings(ctx, "entities in chunks", cypher, map[string]any{"ids": chunkIDs})
}

func (s *Store) EntitiesInChunk(ctx context.Context, chunkID string) ([]*model.Entity, error) {
	cypher := `
		MATCH (c:Chunk {id: $id})-[:CONTAINS_ENTITY]->(e:Entity)
		RETURN e`
	result, session, err := s.run(ctx, "entities in chunk", cypher, map[string]any{"id": chunkID})
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()

	var out []*model.Entity
	for result.Next(ctx) {
		node, _ := result.Record().Values[0].(neo4j.Node)
		out = append(out, scanEntity(node))
	}
	return out, classifyErr("entities in chunk", result.Err())
}

func (s *Store) AllEntities(ctx context.Context) ([]*model.Entity, error) {
	result, session, err := s.run(ctx, "all entities", `MATCH (e:Entity) RETURN e ORDER BY e.id`, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()

	var out []*model.Entity
	for result.Next(ctx) {
		node, _ := result.Record().Values[0].(neo4j.Node)
		out = append(out, scanEntity(node))
	}
	return out, classifyErr("all entities", result.Err())
}

func (s *Store) BridgeNodeChunks(ctx context.Context) ([]string, error) {
	cypher := `
		MATCH (c:Chunk)-[:CONTAINS_ENTITY]->(e:Entity)
		WHERE e.is_bridge_node = true
		RETURN DISTINCT c.id ORDER BY c.id`
	return s.queryStrings(ctx, "bridge node chunks", cypher, nil)
}

func (s *Store) queryStrings(ctx context.Context, op, cypher string, params map[string]any) ([]string, error) {
	result, session, err := s.run(ctx, op, cypher, params)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()

	var out []string
	for result.Next(ctx) {
		if s, ok := result.Record().Values[0].(string); ok {
			out = append(out, s)
		}
	}
	return out, classifyErr(op, result.Err())
}

// --- Relationship building & community detection ---

func (s *Store) BuildRelatedTo(ctx context.Context, minStrength int) error {
	cypher := `
		MATCH (e1:Entity)<-[:CONTAINS_ENTITY]-(c:Chunk)-[:CONTAINS_ENTITY]->(e2:Entity)
		WHERE e1.id < e2.id
		WITH e1, e2, count(DISTINCT c) AS strength
		WHERE strength > $min_strength
		MERGE (e1)-[r:RELATED_TO]-(e2)
		SET r.weight = strength`
	result, session, err := s.run(ctx, "build related_to", cypher, map[string]any{"min_strength": minStrength})
	if err != nil {
		return err
	}
	defer func() { _ = session.Close(ctx) }()
	_, err = result.Consume(ctx)
	return classifyErr("build related_to", err)
}

func (s *Store) SetEntityCommunity(ctx context.Context, entityID string, communityID int, centrality float64, isBridge bool) error {
	cypher := `
		MATCH (e:Entity {id: $id})
		SET e.community_id = $community_id, e.degree_centrality = $centrality, e.is_bridge_node = $is_bridge`
	result, session, err := s.run(ctx, "set entity community", cypher, map[string]any{
		"id": entityID, "community_id": communityID, "centrality": centrality, "is_bridge": isBridge,
	})
	if err != nil {
		return err
	}
	defer func() { _ = session.Close(ctx) }()
	_, err = result.Consume(ctx)
	return classifyErr("set entity community", err)
}

func (s *Store) Neighbors(ctx context.Context, entityID string) ([]model.Neighbor, error) {
	cypher := `
		MATCH (e:Entity {id: $id})-[r:RELATED_TO]-(n:Entity)
		RETURN n.id AS id, r.weight AS weight`
	result, session, err := s.run(ctx, "neighbors", cypher, map[string]any{"id": entityID})
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()

	var out []model.Neighbor
	for result.Next(ctx) {
		rec := result.Record()
		id, _ := rec.Get("id")
		weight, _ := rec.Get("weight")
		idStr, _ := id.(string)
		w, _ := weight.(float64)
		out = append(out, model.Neighbor{EntityID: idStr, Strength: w})
	}
	return out, classifyErr("neighbors", result.Err())
}

func (s *Store) CommunitiesOf(ctx context.Context, entityIDs []string) ([]int, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	cypher := `
		MATCH (e:Entity)
		WHERE e.id IN $ids AND e.community_id IS NOT NULL
		RETURN DISTINCT e.community_id`
	result, session, err := s.run(ctx, "communities of", cypher, map[string]any{"ids": entityIDs})
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()

	var out []int
	for result.Next(ctx) {
		if v, ok := result.Record().Values[0].(int64); ok {
			out = append(out, int(v))
		}
	}
	return out, classifyErr("communities of", result.Err())
}

func (s *Store) AllEntitiesWithEdges(ctx context.Context) ([]*model.Entity, error) {
	result, session, err := s.run(ctx, "all entities", `MATCH (e:Entity) WHERE (e)-[:RELATED_TO]-() RETURN e`, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()

	var out []*model.Entity
	for result.Next(ctx) {
		node, _ := result.Record().Values[0].(neo4j.Node)
		out = append(out, scanEntity(node))
	}
	return out, classifyErr("all entities", result.Err())
}

func (s *Store) RelatedToEdges(ctx context.Context) ([]*model.Edge, error) {
	cypher := `
		MATCH (e1:Entity)-[r:RELATED_TO]-(e2:Entity)
		WHERE e1.id < e2.id
		RETURN e1.id AS source, e2.id AS target, r.weight AS weight`
	result, session, err := s.run(ctx, "related_to edges", cypher, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()

	var out []*model.Edge
	for result.Next(ctx) {
		rec := result.Record()
		source, _ := rec.Get("source")
		target, _ := rec.Get("target")
		weight, _ := rec.Get("weight")
		sourceID, _ := source.(string)
		targetID, _ := target.(string)
		w, _ := weight.(float64)
		out = append(out, &model.Edge{
			Type: model.EdgeRelatedTo, SourceKind: model.NodeKindEntity, SourceID: sourceID,
			TargetKind: model.NodeKindEntity, TargetID: targetID, Weight: w, Bidirectional: true,
		})
	}
	return out, classifyErr("related_to edges", result.Err())
}

// --- Search primitives ---

func (s *Store) VectorTopK(ctx context.Context, vec []float32, k int, filter store.VectorFilter) ([]store.VectorMatch, error) {
	vector := make([]float64, len(vec))
	for i, f := range vec {
		vector[i] = float64(f)
	}

	cypher := `
		CALL db.index.vector.queryNodes('chunk_embedding_index', $k, $vector)
		YIELD node, score
		WHERE ($division = '' OR node.division = $division)
		  AND ($category = '' OR node.category = $category)
		RETURN node.id AS id, score`
	result, session, err := s.run(ctx, "vector topk", cypher, map[string]any{
		"k": k, "vector": vector, "division": filter.Division, "category": filter.Category,
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()

	var out []store.VectorMatch
	for result.Next(ctx) {
		rec := result.Record()
		id, _ := rec.Get("id")
		score, _ := rec.Get("score")
		idStr, _ := id.(string)
		sc, _ := score.(float64)
		out = append(out, store.VectorMatch{ChunkID: idStr, Cosine: sc})
	}
	return out, classifyErr("vector topk", result.Err())
}

func (s *Store) KeywordChunks(ctx context.Context, keywords []string, mode store.KeywordMode, limit int) ([]string, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	predicate := "any(term IN $terms WHERE toLower(c.text) CONTAINS toLower(term))"
	if mode == store.KeywordModeAll {
		predicate = "all(term IN $terms WHERE toLower(c.text) CONTAINS toLower(term))"
	}
	cypher := fmt.Sprintf(`
		MATCH (c:Chunk)
		WHERE %s
		RETURN c.id AS id LIMIT $limit`, predicate)
	return s.queryStrings(ctx, "keyword chunks", cypher, map[string]any{"terms": keywords, "limit": limit})
}

// --- Hierarchy ---

func (s *Store) UpsertHierarchy(ctx context.Context, documentID string, result model.HierarchyResult) error {
	if result.Division == "" {
		return nil
	}
	cypher := `
		MATCH (d:Document {id: $id})
		SET d.division = $division, d.category = $category, d.products = $products`
	res, session, err := s.run(ctx, "upsert hierarchy", cypher, map[string]any{
		"id": documentID, "division": result.Division, "category": result.Category, "products": result.Products,
	})
	if err != nil {
		return err
	}
	defer func() { _ = session.Close(ctx) }()
	_, err = res.Consume(ctx)
	return classifyErr("upsert hierarchy", err)
}

// --- Housekeeping ---

func (s *Store) SchemaSnapshot(ctx context.Context) (store.SchemaSnapshot, error) {
	labels, err := s.queryStrings(ctx, "schema labels", "CALL db.labels()", nil)
	if err != nil {
		return store.SchemaSnapshot{}, err
	}
	edgeTypes, err := s.queryStrings(ctx, "schema relationship types", "CALL db.relationshipTypes()", nil)
	if err != nil {
		return store.SchemaSnapshot{}, err
	}
	constraints, err := s.queryNamedColumn(ctx, "schema constraints", "SHOW CONSTRAINTS", "name")
	if err != nil {
		return store.SchemaSnapshot{}, err
	}
	indexes, err := s.queryNamedColumn(ctx, "schema indexes", "SHOW INDEXES", "name")
	if err != nil {
		return store.SchemaSnapshot{}, err
	}
	return store.SchemaSnapshot{
		Labels:      labels,
		EdgeTypes:   edgeTypes,
		Constraints: constraints,
		Indexes:     indexes,
	}, nil
}

func (s *Store) queryNamedColumn(ctx context.Context, op, cypher, column string) ([]string, error) {
	result, session, err := s.run(ctx, op, cypher, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()

	var out []string
	for result.Next(ctx) {
		if v, ok := result.Record().Get(column); ok {
			if name, ok := v.(string); ok {
				out = append(out, name)
			}
		}
	}
	return out, classifyErr(op, result.Err())
}

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	cypher := `
		CALL { MATCH (d:Document) RETURN count(d) AS documents }
		CALL { MATCH (c:Chunk) RETURN count(c) AS chunks }
		CALL { MATCH (e:Entity) RETURN count(e) AS entities }
		RETURN documents, chunks, entities`
	result, session, err := s.run(ctx, "stats", cypher, nil)
	if err != nil {
		return store.Stats{}, err
	}
	defer func() { _ = session.Close(ctx) }()

	record, err := result.Single(ctx)
	if err != nil {
		return store.Stats{}, classifyErr("stats", err)
	}
	documents, _ := record.Get("documents")
	chunks, _ := record.Get("chunks")
	entities, _ := record.Get("entities")
	d, _ := documents.(int64)
	c, _ := chunks.(int64)
	e, _ := entities.(int64)
	return store.Stats{Documents: int(d), Chunks: int(c), Entities: int(e)}, nil
}

var _ store.Store = (*Store)(nil)
