// Package postgres is the primary Store backend: Postgres with the
// pgvector extension, adapted from the teacher's database/ + sql/
// packages (stored-procedure access via go:embed'd SQL, lib/pq driver).
package postgres

import (
	"database/sql"
	"embed"
	"fmt"
)

//go:embed sql/init.sql sql/documents.sql sql/chunks.sql sql/entities.sql sql/edges.sql
var sqlFS embed.FS

var functionsByFile = map[string][]string{
	"sql/documents.sql": {"init_documents", "upsert_document", "select_document", "set_document_hierarchy", "count_documents", "select_all_documents"},
	"sql/chunks.sql":    {"init_chunks", "delete_document_chunks", "insert_chunk", "select_chunk", "select_chunks_by_document", "count_chunks", "select_all_chunks"},
	"sql/entities.sql":  {"init_entities", "upsert_entity", "link_chunk_entity", "select_entity", "set_entity_community", "count_entities", "select_all_entities", "select_bridge_node_chunks"},
	"sql/edges.sql":     {"init_edges", "build_related_to", "select_related_to", "select_neighbors"},
}

// loadAll runs init.sql once, then loads every SQL function file,
// skipping files whose functions already exist in pg_proc unless force
// is set (the teacher's LoadXSql idempotence convention).
func loadAll(db *sql.DB, force bool) error {
	init, err := sqlFS.ReadFile("sql/init.sql")
	if err != nil {
		return fmt.Errorf("read init.sql: %w", err)
	}
	if _, err := db.Exec(string(init)); err != nil {
		return fmt.Errorf("exec init.sql: %w", err)
	}

	for file, fns := range functionsByFile {
		if !force {
			exists, err := checkFunctions(db, fns)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
		}
		content, err := sqlFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("exec %s: %w", file, err)
		}
	}
	return nil
}

func checkFunctions(db *sql.DB, names []string) (bool, error) {
	for _, name := range names {
		var exists bool
		err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM pg_proc WHERE proname = $1)`, name).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("check function %s: %w", name, err)
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}
