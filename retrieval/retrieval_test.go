package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/store/memory"
)

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.UpsertDocument(ctx, &model.Document{ID: "doc1", Filename: "doc1.pdf"}))

	chunks := []*model.Chunk{
		{ID: "doc1_p1_c0", DocumentID: "doc1", PageNum: 1, ChunkIndex: 0, Text: "The home loan minimum deposit is $5,000.", Embedding: []float32{1, 0, 0}},
		{ID: "doc1_p1_c1", DocumentID: "doc1", PageNum: 1, ChunkIndex: 1, Text: "Savings accounts earn interest monthly.", Embedding: []float32{0, 1, 0}},
	}
	require.NoError(t, s.ReplaceDocumentChunks(ctx, "doc1", chunks))

	entityID, err := s.UpsertEntity(ctx, "home loan", model.EntityTypeProduct)
	require.NoError(t, err)
	require.NoError(t, s.LinkChunkEntity(ctx, "doc1_p1_c0", entityID))

	return s
}

func fakeEmbed(_ context.Context, text string) ([]float32, error) {
	if text == "home loan" || text == "minimum deposit home loan" {
		return []float32{1, 0, 0}, nil
	}
	return []float32{0, 1, 0}, nil
}

func TestVectorStrategy(t *testing.T) {
	e := New(seedStore(t), fakeEmbed)
	candidates, err := e.Vector(context.Background(), model.Query{Text: "home loan", TopK: 2})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "doc1_p1_c0", candidates[0].ChunkID)
}

func TestKeywordStrategy(t *testing.T) {
	e := New(seedStore(t), fakeEmbed)
	candidates, err := e.Keyword(context.Background(), model.Query{Text: "minimum deposit", TopK: 2})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "doc1_p1_c0", candidates[0].ChunkID)
}

func TestGraphStrategy(t *testing.T) {
	e := New(seedStore(t), fakeEmbed)
	candidates, err := e.Graph(context.Background(), model.Query{Text: "home loan", TopK: 2})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "doc1_p1_c0", candidates[0].ChunkID)
}

func TestHybridStrategy(t *testing.T) {
	e := New(seedStore(t), fakeEmbed)
	candidates, err := e.Hybrid(context.Background(), model.Query{Text: "minimum deposit home loan", TopK: 2})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
}

func TestCommunityStrategyBiasesTopUpTowardBridgeNodes(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.UpsertDocument(ctx, &model.Document{ID: "doc1", Filename: "doc1.pdf"}))

	chunks := []*model.Chunk{
		{ID: "doc1_p1_c0", DocumentID: "doc1", PageNum: 1, ChunkIndex: 0, Text: "alpha content", Embedding: []float32{1, 0, 0}},
		{ID: "doc1_p1_c1", DocumentID: "doc1", PageNum: 1, ChunkIndex: 1, Text: "bravo content", Embedding: []float32{1, 0, 0}},
		{ID: "doc1_p1_c2", DocumentID: "doc1", PageNum: 1, ChunkIndex: 2, Text: "charlie content", Embedding: []float32{1, 0, 0}},
	}
	require.NoError(t, s.ReplaceDocumentChunks(ctx, "doc1", chunks))

	entityID, err := s.UpsertEntity(ctx, "bridge term", model.EntityTypeOther)
	require.NoError(t, err)
	require.NoError(t, s.LinkChunkEntity(ctx, "doc1_p1_c2", entityID))
	require.NoError(t, s.SetEntityCommunity(ctx, entityID, 1, 0.5, true))

	e := New(s, fakeEmbed)
	candidates, err := e.Community(ctx, model.Query{Text: "unrelated search text", TopK: 1})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "doc1_p1_c2", candidates[0].ChunkID)
	require.NotNil(t, candidates[0].Signals.BridgeNode)
	assert.True(t, *candidates[0].Signals.BridgeNode)
}

func TestNLToGraphHowMany(t *testing.T) {
	e := New(seedStore(t), fakeEmbed)
	candidates, err := e.NLToGraph(context.Background(), model.Query{Text: "How many documents", TopK: 2})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "how_many_documents", candidates[0].Signals.MatchedTemplate)
	assert.Equal(t, "count_documents", candidates[0].Signals.QueryType)
}

func TestNLToGraphFallsBackToKeyword(t *testing.T) {
	e := New(seedStore(t), fakeEmbed)
	candidates, err := e.NLToGraph(context.Background(), model.Query{Text: "totally unmatched gibberish query", TopK: 2})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
