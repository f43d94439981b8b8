package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/store"
	pgstore "github.com/JasonAskew/knowledge-sub001/store/postgres"
)

// startPostgres brings up a disposable pgvector-enabled Postgres for the
// duration of one test and returns its connection string. Skipped unless
// -short is absent, since it needs a working Docker daemon.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("requires a docker daemon")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "pgvector/pgvector:pg16",
		tcpostgres.WithDatabase("knowledge_test"),
		tcpostgres.WithUsername("knowledge"),
		tcpostgres.WithPassword("knowledge"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestConnectLoadsSchemaAndRoundTripsADocument(t *testing.T) {
	dsn := startPostgres(t)

	s, err := pgstore.Connect(dsn, 3, nil, true)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	doc := &model.Document{
		ID: "home-loan-guide", Filename: "home_loan_guide.pdf", PageCount: 2,
		Division: "retail", Category: "lending", Products: []string{"home loan"},
	}
	require.NoError(t, s.UpsertDocument(ctx, doc))

	chunk := &model.Chunk{
		ID: "home-loan-guide_p1_c0", DocumentID: doc.ID, PageNum: 1, ChunkIndex: 0,
		Text: "The minimum deposit is $5,000.", TokenCount: 6,
		Embedding: []float32{0.1, 0.2, 0.3}, ChunkType: model.ChunkTypeRequirement,
	}
	require.NoError(t, s.ReplaceDocumentChunks(ctx, doc.ID, []*model.Chunk{chunk}))

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.Filename, got.Filename)

	all, err := s.AllChunks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, chunk.Embedding, all[0].Embedding)

	matches, err := s.VectorTopK(ctx, []float32{0.1, 0.2, 0.3}, 5, store.VectorFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
}
