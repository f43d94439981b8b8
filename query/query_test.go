package query

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
	return s
}

func fakeEmbed(_ context.Context, text string) ([]float32, error) {
	if text == "home loan" {
		return []float32{1, 0, 0}, nil
	}
	return []float32{0, 1, 0}, nil
}

func TestSearchDefaultsToHybrid(t *testing.T) {
	e := New(seedStore(t), fakeEmbed, nil, model.DefaultFusionWeights(), nil)
	results, err := e.Search(context.Background(), model.SearchRequest{Text: "home loan minimum deposit", TopK: 2})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestSearchVectorStrategy(t *testing.T) {
	e := New(seedStore(t), fakeEmbed, nil, model.DefaultFusionWeights(), nil)
	results, err := e.Search(context.Background(), model.SearchRequest{Text: "home loan", Strategy: model.StrategyVector, TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc1_p1_c0", results[0].ChunkID)
}

func TestSearchUnknownStrategy(t *testing.T) {
	e := New(seedStore(t), fakeEmbed, nil, model.DefaultFusionWeights(), nil)
	_, err := e.Search(context.Background(), model.SearchRequest{Text: "home loan", Strategy: "bogus"})
	assert.Error(t, err)
}

func TestSearchDefaultsTopK(t *testing.T) {
	e := New(seedStore(t), fakeEmbed, nil, model.DefaultFusionWeights(), nil)
	results, err := e.Search(context.Background(), model.SearchRequest{Text: "home loan", Strategy: model.StrategyVector})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestStatsProxiesStore(t *testing.T) {
	e := New(seedStore(t), fakeEmbed, nil, model.DefaultFusionWeights(), nil)
	stats, err := e.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
}
