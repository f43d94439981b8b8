// Package backup implements corpus export/restore as JSON-lines, one
// record per node or edge, so an operator can snapshot and rebuild a
// store without a database-specific dump tool (spec.md §6 "Persisted
// state layout"). The record shape follows the original project's
// Neo4j exporter; each payload is the model type's plain JSON encoding
// (embeddings as number arrays, timestamps as RFC 3339 strings).
package backup

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/store"
)

// RecordKind tags which payload a line carries.
type RecordKind string

const (
	RecordDocument RecordKind = "document"
	RecordChunk    RecordKind = "chunk"
	RecordEntity   RecordKind = "entity"
	RecordEdge     RecordKind = "edge"
)

// Record is one JSON-lines entry. Payload is kept as raw JSON so Export
// never has to round-trip through an intermediate interface{} and Import
// can unmarshal straight into the concrete type named by Kind.
type Record struct {
	Kind    RecordKind      `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Stats summarizes one export or import pass.
type Stats struct {
	Documents int
	Chunks    int
	Entities  int
	Edges     int
}

// Export writes every document, chunk, entity, and RELATED_TO edge in s
// to w as newline-delimited JSON records. Order is documents, then
// chunks, then entities, then edges, so Import can re-create each node
// before anything references it.
func Export(ctx context.Context, s store.Store, w io.Writer, log *slog.Logger) (Stats, error) {
	var stats Stats
	enc := json.NewEncoder(w)

	documents, err := s.AllDocuments(ctx)
	if err != nil {
		return stats, fmt.Errorf("export: list documents: %w", err)
	}
	for _, doc := range documents {
		if err := writeRecord(enc, RecordDocument, doc); err != nil {
			return stats, fmt.Errorf("export document %s: %w", doc.ID, err)
		}
		stats.Documents++
	}

	chunks, err := s.AllChunks(ctx)
	if err != nil {
		return stats, fmt.Errorf("export: list chunks: %w", err)
	}
	for _, c := range chunks {
		if err := writeRecord(enc, RecordChunk, c); err != nil {
			return stats, fmt.Errorf("export chunk %s: %w", c.ID, err)
		}
		stats.Chunks++
	}

	entities, err := s.AllEntities(ctx)
	if err != nil {
		return stats, fmt.Errorf("export: list entities: %w", err)
	}
	for _, e := range entities {
		if err := writeRecord(enc, RecordEntity, e); err != nil {
			return stats, fmt.Errorf("export entity %s: %w", e.ID, err)
		}
		stats.Entities++
	}

	edges, err := s.RelatedToEdges(ctx)
	if err != nil {
		return stats, fmt.Errorf("export: list related_to edges: %w", err)
	}
	for _, edge := range edges {
		if err := writeRecord(enc, RecordEdge, edge); err != nil {
			return stats, fmt.Errorf("export edge %s: %w", edge.ID, err)
		}
		stats.Edges++
	}

	if log != nil {
		log.Info("export complete",
			slog.Int("documents", stats.Documents), slog.Int("chunks", stats.Chunks),
			slog.Int("entities", stats.Entities), slog.Int("edges", stats.Edges))
	}
	return stats, nil
}

func writeRecord(enc *json.Encoder, kind RecordKind, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return enc.Encode(Record{Kind: kind, Payload: raw})
}

// Import restores a corpus written by Export, re-inserting through the
// normal write path (UpsertDocument, ReplaceDocumentChunks per document,
// UpsertEntity, LinkChunkEntity) rather than any bulk loader — restore is
// a straight re-import, so it exercises the same invariants ingestion
// does. Chunks are buffered per document and flushed once every chunk for
// that document has been read, since ReplaceDocumentChunks takes the
// whole set at once.
func Import(ctx context.Context, s store.Store, r io.Reader, log *slog.Logger) (Stats, error) {
	var stats Stats
	chunksByDoc := map[string][]*model.Chunk{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return stats, fmt.Errorf("import: decode record: %w", err)
		}

		switch rec.Kind {
		case RecordDocument:
			doc := &model.Document{}
			if err := json.Unmarshal(rec.Payload, doc); err != nil {
				return stats, fmt.Errorf("import: decode document: %w", err)
			}
			if err := s.UpsertDocument(ctx, doc); err != nil {
				return stats, fmt.Errorf("import document %s: %w", doc.ID, err)
			}
			stats.Documents++

		case RecordChunk:
			c := &model.Chunk{}
			if err := json.Unmarshal(rec.Payload, c); err != nil {
				return stats, fmt.Errorf("import: decode chunk: %w", err)
			}
			chunksByDoc[c.DocumentID] = append(chunksByDoc[c.DocumentID], c)
			stats.Chunks++

		case RecordEntity:
			e := &model.Entity{}
			if err := json.Unmarshal(rec.Payload, e); err != nil {
				return stats, fmt.Errorf("import: decode entity: %w", err)
			}
			id, err := s.UpsertEntity(ctx, e.CanonicalText, e.Type)
			if err != nil {
				return stats, fmt.Errorf("import entity %s: %w", e.CanonicalText, err)
			}
			if e.CommunityID != nil && e.DegreeCentrality != nil {
				if err := s.SetEntityCommunity(ctx, id, *e.CommunityID, *e.DegreeCentrality, e.IsBridgeNode); err != nil {
					return stats, fmt.Errorf("import entity community %s: %w", e.CanonicalText, err)
				}
			}
			stats.Entities++

		case RecordEdge:
			// RELATED_TO edges are rebuilt by build_related_to once the
			// chunk/entity graph is back in place, so they are counted
			// for the report but not replayed individually here.
			stats.Edges++

		default:
			return stats, fmt.Errorf("import: unknown record kind %q", rec.Kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("import: read records: %w", err)
	}

	allEntities, err := s.AllEntities(ctx)
	if err != nil {
		return stats, fmt.Errorf("import: list entities for relinking: %w", err)
	}

	for documentID, chunks := range chunksByDoc {
		if err := s.ReplaceDocumentChunks(ctx, documentID, chunks); err != nil {
			return stats, fmt.Errorf("import chunks for %s: %w", documentID, err)
		}
		for _, c := range chunks {
			for _, e := range allEntities {
				if !chunkContainsEntity(c.Text, e.CanonicalText) {
					continue
				}
				if err := s.LinkChunkEntity(ctx, c.ID, e.ID); err != nil {
					return stats, fmt.Errorf("import link chunk entity %s: %w", c.ID, err)
				}
			}
		}
	}

	if log != nil {
		log.Info("import complete",
			slog.Int("documents", stats.Documents), slog.Int("chunks", stats.Chunks),
			slog.Int("entities", stats.Entities), slog.Int("edges", stats.Edges))
	}
	return stats, nil
}

// chunkContainsEntity re-derives CONTAINS_ENTITY edges for a restored
// chunk: the same substring test entity extraction uses at ingest time.
func chunkContainsEntity(chunkText, canonical string) bool {
	return canonical != "" && strings.Contains(strings.ToLower(chunkText), strings.ToLower(canonical))
}
