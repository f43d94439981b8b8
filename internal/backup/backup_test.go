package backup

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/store/memory"
)

func seedStore(t *testing.T, s *memory.Store) {
	t.Helper()
	ctx := context.Background()

	doc := &model.Document{
		ID: "home-loan-guide", Filename: "home_loan_guide.pdf", PageCount: 3,
		Division: "retail", Category: "lending", Products: []string{"home loan"},
		ProcessedAt: time.Unix(0, 0).UTC(), CreatedAt: time.Unix(0, 0).UTC(), UpdatedAt: time.Unix(0, 0).UTC(),
	}
	require.NoError(t, s.UpsertDocument(ctx, doc))

	chunk := &model.Chunk{
		ID: "home-loan-guide_p1_c0", DocumentID: doc.ID, PageNum: 1, ChunkIndex: 0,
		Text: "The Home Loan minimum deposit is $5,000.", TokenCount: 8,
		Embedding: []float32{0.1, 0.2, 0.3}, ChunkType: model.ChunkTypeRequirement,
		CreatedAt: time.Unix(0, 0).UTC(),
	}
	require.NoError(t, s.ReplaceDocumentChunks(ctx, doc.ID, []*model.Chunk{chunk}))

	entityID, err := s.UpsertEntity(ctx, "home loan", model.EntityTypeProduct)
	require.NoError(t, err)
	require.NoError(t, s.LinkChunkEntity(ctx, chunk.ID, entityID))
	require.NoError(t, s.SetEntityCommunity(ctx, entityID, 2, 0.75, true))
}

func TestExportWritesOneRecordPerDocumentChunkAndEntity(t *testing.T) {
	s := memory.New()
	seedStore(t, s)

	var buf bytes.Buffer
	stats, err := Export(context.Background(), s, &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Documents: 1, Chunks: 1, Entities: 1, Edges: 0}, stats)
	assert.NotEmpty(t, buf.String())
}

func TestImportRoundTripsDocumentsChunksAndEntityCommunity(t *testing.T) {
	src := memory.New()
	seedStore(t, src)

	var buf bytes.Buffer
	_, err := Export(context.Background(), src, &buf, nil)
	require.NoError(t, err)

	dst := memory.New()
	stats, err := Import(context.Background(), dst, &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, stats.Chunks)
	assert.Equal(t, 1, stats.Entities)

	doc, err := dst.GetDocument(context.Background(), "home-loan-guide")
	require.NoError(t, err)
	assert.Equal(t, "home_loan_guide.pdf", doc.Filename)

	chunks, err := dst.ChunksByDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, chunks[0].Embedding)

	entities, err := dst.EntitiesInChunk(context.Background(), chunks[0].ID)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "home loan", entities[0].CanonicalText)
	require.NotNil(t, entities[0].CommunityID)
	assert.Equal(t, 2, *entities[0].CommunityID)
	assert.True(t, entities[0].IsBridgeNode)
}

func TestImportRejectsUnknownRecordKind(t *testing.T) {
	dst := memory.New()
	_, err := Import(context.Background(), dst, bytes.NewBufferString(`{"kind":"mystery","payload":{}}`+"\n"), nil)
	assert.Error(t, err)
}
