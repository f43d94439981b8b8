package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/JasonAskew/knowledge-sub001/internal/errs"
	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/store"
)

// Store is the Postgres+pgvector backed store.Store implementation.
type Store struct {
	db  *sql.DB
	log *slog.Logger
	dim int
}

// Connect opens the database, idempotently loads the stored procedures
// (force reloads them even if present), and creates tables sized for
// embeddingDim-wide vectors.
func Connect(dsn string, embeddingDim int, log *slog.Logger, force bool) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errs.New("open database", err)
	}
	if err := db.Ping(); err != nil {
		return nil, &errs.TransientStoreError{Op: "ping database", Err: err}
	}

	if err := loadAll(db, force); err != nil {
		return nil, errs.New("load sql functions", err)
	}

	s := &Store{db: db, log: log, dim: embeddingDim}
	if err := s.createTables(embeddingDim); err != nil {
		return nil, err
	}
	if log != nil {
		log.Info("connected to postgres store", "dimension", embeddingDim)
	}
	return s, nil
}

func (s *Store) createTables(dim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, stmt := range []string{
		"SELECT init_documents()",
		fmt.Sprintf("SELECT init_chunks(%d)", dim),
		"SELECT init_entities()",
		"SELECT init_edges()",
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errs.New("create tables", err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// --- Documents ---

func (s *Store) UpsertDocument(ctx context.Context, doc *model.Document) error {
	row := s.db.QueryRowContext(ctx,
		`SELECT * FROM upsert_document($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		doc.ID, doc.Filename, doc.PageCount, doc.Title, doc.SurfaceCategory,
		doc.Division, doc.Category, pq.Array(doc.Products), metadataOrEmpty(doc.Metadata),
	)
	return scanDocument(row, doc)
}

func (s *Store) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	doc := &model.Document{}
	row := s.db.QueryRowContext(ctx, `SELECT * FROM select_document($1)`, documentID)
	if err := scanDocument(row, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) AllDocuments(ctx context.Context) ([]*model.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM select_all_documents()`)
	if err != nil {
		return nil, classifyExecErr("query all documents", err)
	}
	defer rows.Close()

	var out []*model.Document
	for rows.Next() {
		doc := &model.Document{}
		var products pq.StringArray
		var metadata model.Metadata
		err := rows.Scan(
			&doc.ID, &doc.Filename, &doc.PageCount, &doc.Title, &doc.SurfaceCategory,
			&doc.Division, &doc.Category, &products, &metadata,
			&doc.ProcessedAt, &doc.CreatedAt, &doc.UpdatedAt,
		)
		if err != nil {
			return nil, classifyScanErr("scan document", err)
		}
		doc.Products = []string(products)
		doc.Metadata = metadata
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanDocument(row *sql.Row, doc *model.Document) error {
	var products pq.StringArray
	var metadata model.Metadata
	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.PageCount, &doc.Title, &doc.SurfaceCategory,
		&doc.Division, &doc.Category, &products, &metadata,
		&doc.ProcessedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return classifyScanErr("scan document", err)
	}
	doc.Products = []string(products)
	doc.Metadata = metadata
	return nil
}

func (s *Store) UpsertHierarchy(ctx context.Context, documentID string, result model.HierarchyResult) error {
	_, err := s.db.ExecContext(ctx,
		`SELECT * FROM set_document_hierarchy($1,$2,$3,$4)`,
		documentID, result.Division, result.Category, pq.Array(result.Products),
	)
	if err != nil {
		return classifyExecErr("set document hierarchy", err)
	}
	return nil
}

// --- Chunks ---

func (s *Store) ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []*model.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyExecErr("begin replace chunks tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT delete_document_chunks($1)`, documentID); err != nil {
		return classifyExecErr("delete document chunks", err)
	}

	for _, c := range chunks {
		var vec *pgvector.Vector
		if len(c.Embedding) > 0 {
			if len(c.Embedding) != s.dim {
				return &errs.DimensionMismatch{Op: "insert chunk", Expected: s.dim, Actual: len(c.Embedding)}
			}
			v := pgvector.NewVector(c.Embedding)
			vec = &v
		}
		row := tx.QueryRowContext(ctx,
			`SELECT * FROM insert_chunk($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			c.ID, c.DocumentID, c.PageNum, c.ChunkIndex, c.Text, c.TokenCount, vec,
			c.SemanticDensity, string(c.ChunkType), c.HasDefinitions, c.HasExamples, c.HasLists,
			pq.Array(c.Keywords), c.Division, c.Category, metadataOrEmpty(c.Metadata),
		)
		if err := scanChunkRow(row, &model.Chunk{}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return classifyExecErr("commit replace chunks", err)
	}
	return nil
}

func (s *Store) GetChunk(ctx context.Context, chunkID string) (*model.Chunk, error) {
	c := &model.Chunk{}
	row := s.db.QueryRowContext(ctx, `SELECT * FROM select_chunk($1)`, chunkID)
	if err := scanChunkRow(row, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) ChunksByDocument(ctx context.Context, documentID string) ([]*model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM select_chunks_by_document($1)`, documentID)
	if err != nil {
		return nil, classifyExecErr("query chunks by document", err)
	}
	defer rows.Close()

	var out []*model.Chunk
	for rows.Next() {
		c := &model.Chunk{}
		if err := scanChunkRows(rows, c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AllChunks(ctx context.Context) ([]*model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM select_all_chunks()`)
	if err != nil {
		return nil, classifyExecErr("query all chunks", err)
	}
	defer rows.Close()

	var out []*model.Chunk
	for rows.Next() {
		c := &model.Chunk{}
		if err := scanChunkRows(rows, c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChunkRow(row *sql.Row, c *model.Chunk) error {
	var embedding *pgvector.Vector
	var keywords pq.StringArray
	var metadata model.Metadata
	err := row.Scan(
		&c.ID, &c.DocumentID, &c.PageNum, &c.ChunkIndex, &c.Text, &c.TokenCount, &embedding,
		&c.SemanticDensity, &c.ChunkType, &c.HasDefinitions, &c.HasExamples, &c.HasLists,
		&keywords, &c.Division, &c.Category, &metadata, &c.CreatedAt,
	)
	if err != nil {
		return classifyScanErr("scan chunk", err)
	}
	if embedding != nil {
		c.Embedding = embedding.Slice()
	}
	c.Keywords = []string(keywords)
	c.Metadata = metadata
	return nil
}

func scanChunkRows(rows *sql.Rows, c *model.Chunk) error {
	var embedding *pgvector.Vector
	var keywords pq.StringArray
	var metadata model.Metadata
	err := rows.Scan(
		&c.ID, &c.DocumentID, &c.PageNum, &c.ChunkIndex, &c.Text, &c.TokenCount, &embedding,
		&c.SemanticDensity, &c.ChunkType, &c.HasDefinitions, &c.HasExamples, &c.HasLists,
		&keywords, &c.Division, &c.Category, &metadata, &c.CreatedAt,
	)
	if err != nil {
		return classifyScanErr("scan chunk", err)
	}
	if embedding != nil {
		c.Embedding = embedding.Slice()
	}
	c.Keywords = []string(keywords)
	c.Metadata = metadata
	return nil
}

// --- Entities ---

func (s *Store) UpsertEntity(ctx context.Context, canonicalText string, entityType model.EntityType) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT upsert_entity($1,$2)`, canonicalText, string(entityType)).Scan(&id)
	if err != nil {
		return "", classifyExecErr("upsert entity", err)
	}
	return id, nil
}

func (s *Store) LinkChunkEntity(ctx context.Context, chunkID, entityID string) error {
	_, err := s.db.ExecContext(ctx, `SELECT link_chunk_entity($1,$2)`, chunkID, entityID)
	if err != nil {
		return classifyExecErr("link chunk entity", err)
	}
	return nil
}

func (s *Store) GetEntity(ctx context.Context, entityID string) (*model.Entity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT * FROM select_entity($1)`, entityID)
	return scanEntity(row)
}

func scanEntity(row *sql.Row) (*model.Entity, error) {
	e := &model.Entity{}
	var metadata model.Metadata
	err := row.Scan(&e.ID, &e.CanonicalText, &e.Type, &e.OccurrenceCount, &e.CommunityID, &e.DegreeCentrality, &e.IsBridgeNode, &metadata, &e.CreatedAt)
	if err != nil {
		return nil, classifyScanErr("scan entity", err)
	}
	e.Metadata = metadata
	return e, nil
}

func (s *Store) AllEntities(ctx context.Context) ([]*model.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM select_all_entities()`)
	if err != nil {
		return nil, classifyExecErr("query all entities", err)
	}
	defer rows.Close()

	var out []*model.Entity
	for rows.Next() {
		e := &model.Entity{}
		var metadata model.Metadata
		if err := rows.Scan(&e.ID, &e.CanonicalText, &e.Type, &e.OccurrenceCount, &e.CommunityID, &e.DegreeCentrality, &e.IsBridgeNode, &metadata, &e.CreatedAt); err != nil {
			return nil, classifyScanErr("scan entity", err)
		}
		e.Metadata = metadata
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) BridgeNodeChunks(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM select_bridge_node_chunks()`)
	if err != nil {
		return nil, classifyExecErr("select bridge node chunks", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var chunkID string
		if err := rows.Scan(&chunkID); err != nil {
			return nil, classifyScanErr("scan bridge node chunk", err)
		}
		out = append(out, chunkID)
	}
	return out, rows.Err()
}

func (s *Store) FindEntitiesByText(ctx context.Context, substrings []string) ([]*model.Entity, error) {
	if len(substrings) == 0 {
		return nil, nil
	}
	clauses := make([]string, 0, len(substrings))
	args := make([]interface{}, 0, len(substrings))
	for i, sub := range substrings {
		clauses = append(clauses, fmt.Sprintf("canonical_text ILIKE '%%' || $%d || '%%'", i+1))
		args = append(args, sub)
	}
	q := `SELECT id, canonical_text, entity_type, occurrence_count, community_id, degree_centrality, is_bridge_node, metadata, created_at FROM entities WHERE ` + strings.Join(clauses, " OR ")
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classifyExecErr("find entities by text", err)
	}
	defer rows.Close()

	var out []*model.Entity
	for rows.Next() {
		e := &model.Entity{}
		var metadata model.Metadata
		if err := rows.Scan(&e.ID, &e.CanonicalText, &e.Type, &e.OccurrenceCount, &e.CommunityID, &e.DegreeCentrality, &e.IsBridgeNode, &metadata, &e.CreatedAt); err != nil {
			return nil, classifyScanErr("scan entity", err)
		}
		e.Metadata = metadata
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ChunksByEntities(ctx context.Context, entityIDs []string) ([]string, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT chunk_id FROM chunk_entities WHERE entity_id = ANY($1)`, pq.Array(entityIDs))
	if err != nil {
		return nil, classifyExecErr("chunks by entities", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, classifyScanErr("scan chunk id", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) EntitiesInChunks(ctx context.Context, chunkIDs []string) ([]string, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT entity_id FROM chunk_entities WHERE chunk_id = ANY($1)`, pq.Array(chunkIDs))
	if err != nil {
		return nil, classifyExecErr("entities in chunks", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, classifyScanErr("scan entity id", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) EntitiesInChunk(ctx context.Context, chunkID string) ([]*model.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.canonical_text, e.entity_type, e.occurrence_count, e.community_id, e.degree_centrality, e.is_bridge_node, e.metadata, e.created_at
		FROM entities e JOIN chunk_entities ce ON ce.entity_id = e.id WHERE ce.chunk_id = $1`, chunkID)
	if err != nil {
		return nil, classifyExecErr("entities in chunk", err)
	}
	defer rows.Close()
	var out []*model.Entity
	for rows.Next() {
		e := &model.Entity{}
		var metadata model.Metadata
		if err := rows.Scan(&e.ID, &e.CanonicalText, &e.Type, &e.OccurrenceCount, &e.CommunityID, &e.DegreeCentrality, &e.IsBridgeNode, &metadata, &e.CreatedAt); err != nil {
			return nil, classifyScanErr("scan entity", err)
		}
		e.Metadata = metadata
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Relationships & communities ---

func (s *Store) BuildRelatedTo(ctx context.Context, minStrength int) error {
	_, err := s.db.ExecContext(ctx, `SELECT build_related_to($1)`, minStrength)
	if err != nil {
		return classifyExecErr("build related_to", err)
	}
	return nil
}

func (s *Store) SetEntityCommunity(ctx context.Context, entityID string, communityID int, centrality float64, isBridge bool) error {
	_, err := s.db.ExecContext(ctx, `SELECT set_entity_community($1,$2,$3,$4)`, entityID, communityID, centrality, isBridge)
	if err != nil {
		return classifyExecErr("set entity community", err)
	}
	return nil
}

func (s *Store) Neighbors(ctx context.Context, entityID string) ([]model.Neighbor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM select_neighbors($1)`, entityID)
	if err != nil {
		return nil, classifyExecErr("select neighbors", err)
	}
	defer rows.Close()
	var out []model.Neighbor
	for rows.Next() {
		var n model.Neighbor
		if err := rows.Scan(&n.EntityID, &n.Strength); err != nil {
			return nil, classifyScanErr("scan neighbor", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CommunitiesOf(ctx context.Context, entityIDs []string) ([]int, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT community_id FROM entities WHERE id = ANY($1) AND community_id IS NOT NULL`, pq.Array(entityIDs))
	if err != nil {
		return nil, classifyExecErr("communities of", err)
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, classifyScanErr("scan community id", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) AllEntitiesWithEdges(ctx context.Context) ([]*model.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT e.id, e.canonical_text, e.entity_type, e.occurrence_count, e.community_id, e.degree_centrality, e.is_bridge_node, e.metadata, e.created_at
		FROM entities e
		JOIN edges ed ON ed.edge_type = 'RELATED_TO' AND (ed.source_id = e.id OR ed.target_id = e.id)`)
	if err != nil {
		return nil, classifyExecErr("all entities with edges", err)
	}
	defer rows.Close()
	var out []*model.Entity
	for rows.Next() {
		e := &model.Entity{}
		var metadata model.Metadata
		if err := rows.Scan(&e.ID, &e.CanonicalText, &e.Type, &e.OccurrenceCount, &e.CommunityID, &e.DegreeCentrality, &e.IsBridgeNode, &metadata, &e.CreatedAt); err != nil {
			return nil, classifyScanErr("scan entity", err)
		}
		e.Metadata = metadata
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) RelatedToEdges(ctx context.Context) ([]*model.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM select_related_to()`)
	if err != nil {
		return nil, classifyExecErr("select related_to", err)
	}
	defer rows.Close()
	var out []*model.Edge
	for rows.Next() {
		e := &model.Edge{}
		var metadata model.Metadata
		if err := rows.Scan(&e.ID, &e.Type, &e.SourceKind, &e.SourceID, &e.TargetKind, &e.TargetID, &e.Weight, &e.Bidirectional, &metadata, &e.CreatedAt); err != nil {
			return nil, classifyScanErr("scan edge", err)
		}
		e.Metadata = metadata
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Vector & keyword search ---

func (s *Store) VectorTopK(ctx context.Context, vec []float32, k int, filter store.VectorFilter) ([]store.VectorMatch, error) {
	if len(vec) != s.dim {
		return nil, &errs.DimensionMismatch{Op: "vector_topk", Expected: s.dim, Actual: len(vec)}
	}

	q := `SELECT id, 1 - (embedding <=> $1) AS cosine FROM chunks WHERE embedding IS NOT NULL`
	args := []interface{}{pgvector.NewVector(vec)}
	n := 1

	if filter.Division != "" {
		n++
		q += fmt.Sprintf(" AND division = $%d", n)
		args = append(args, filter.Division)
	}
	if filter.Category != "" {
		n++
		q += fmt.Sprintf(" AND category = $%d", n)
		args = append(args, filter.Category)
	}
	if filter.Keyword != "" {
		n++
		q += fmt.Sprintf(" AND text ILIKE '%%' || $%d || '%%'", n)
		args = append(args, filter.Keyword)
	}
	if len(filter.CommunityIDs) > 0 {
		n++
		q += fmt.Sprintf(` AND id IN (
			SELECT ce.chunk_id FROM chunk_entities ce JOIN entities e ON e.id = ce.entity_id
			WHERE e.community_id = ANY($%d))`, n)
		args = append(args, pq.Array(filter.CommunityIDs))
	}

	n++
	q += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", n)
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classifyExecErr("vector_topk", err)
	}
	defer rows.Close()

	var out []store.VectorMatch
	for rows.Next() {
		var m store.VectorMatch
		if err := rows.Scan(&m.ChunkID, &m.Cosine); err != nil {
			return nil, classifyScanErr("scan vector match", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) KeywordChunks(ctx context.Context, keywords []string, mode store.KeywordMode, limit int) ([]string, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	clauses := make([]string, 0, len(keywords))
	args := make([]interface{}, 0, len(keywords)+1)
	for i, kw := range keywords {
		clauses = append(clauses, fmt.Sprintf("text ILIKE '%%' || $%d || '%%'", i+1))
		args = append(args, kw)
	}
	joiner := " OR "
	if mode == store.KeywordModeAll {
		joiner = " AND "
	}
	q := `SELECT id FROM chunks WHERE ` + strings.Join(clauses, joiner) + fmt.Sprintf(" LIMIT $%d", len(keywords)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classifyExecErr("keyword_chunks", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, classifyScanErr("scan chunk id", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// --- Housekeeping ---

func (s *Store) SchemaSnapshot(ctx context.Context) (store.SchemaSnapshot, error) {
	return store.SchemaSnapshot{
		Labels:    []string{"documents", "chunks", "entities", "edges"},
		EdgeTypes: []string{string(model.EdgeHasChunk), string(model.EdgeContainsEntity), string(model.EdgeRelatedTo), string(model.EdgeBelongsToDivision), string(model.EdgeCoversCategory), string(model.EdgeCoversProduct), string(model.EdgeNextChunk)},
	}, nil
}

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	var st store.Stats
	if err := s.db.QueryRowContext(ctx, `SELECT count_documents()`).Scan(&st.Documents); err != nil {
		return st, classifyExecErr("count documents", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count_chunks()`).Scan(&st.Chunks); err != nil {
		return st, classifyExecErr("count chunks", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count_entities()`).Scan(&st.Entities); err != nil {
		return st, classifyExecErr("count entities", err)
	}
	return st, nil
}

func metadataOrEmpty(m model.Metadata) model.Metadata {
	if m == nil {
		return model.Metadata{}
	}
	return m
}

var _ store.Store = (*Store)(nil)
