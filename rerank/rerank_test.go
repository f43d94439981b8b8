package rerank

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JasonAskew/knowledge-sub001/model"
)

func sampleCandidates() []model.Candidate {
	cosineA, cosineB := 0.9, 0.4
	matchesA := 2
	return []model.Candidate{
		{
			ChunkID:   "doc1_p1_c0",
			BaseScore: cosineA,
			Chunk: &model.Chunk{
				ID: "doc1_p1_c0", DocumentID: "doc1.pdf", PageNum: 1,
				Text: "The minimum deposit for a home loan is $5,000.",
				ChunkType: model.ChunkTypeRequirement, SemanticDensity: 0.6,
				Keywords: []string{"minimum", "deposit", "loan"},
			},
			Provenance: model.StrategyVector,
			Signals:    model.Signals{Cosine: &cosineA},
		},
		{
			ChunkID:   "doc1_p2_c0",
			BaseScore: cosineB,
			Chunk: &model.Chunk{
				ID: "doc1_p2_c0", DocumentID: "doc1.pdf", PageNum: 2,
				Text: "Savings accounts earn interest monthly.",
				ChunkType: model.ChunkTypeContent, SemanticDensity: 0.1,
			},
			Provenance: model.StrategyKeyword,
			Signals:    model.Signals{KeywordMatches: &matchesA},
		},
	}
}

func TestRunWithoutRerankUsesFallbackScore(t *testing.T) {
	p := New(nil, model.DefaultFusionWeights())
	results := p.Run(context.Background(), "what is the minimum deposit for a home loan", sampleCandidates(), false, 10)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Nil(t, r.RerankScore)
		assert.True(t, r.Signals.RerankSkipped)
	}
}

func TestRunRanksRequirementChunkHigherForRequirementQuery(t *testing.T) {
	p := New(nil, model.DefaultFusionWeights())
	results := p.Run(context.Background(), "what is the minimum deposit required", sampleCandidates(), false, 10)
	require.Len(t, results, 2)
	assert.Equal(t, "doc1_p1_c0", results[0].ChunkID)
}

func TestRunDedupMergesSignals(t *testing.T) {
	cosine := 0.8
	matches := 1
	candidates := []model.Candidate{
		{ChunkID: "c1", BaseScore: 0.5, Signals: model.Signals{Cosine: &cosine}},
		{ChunkID: "c1", BaseScore: 0.9, Signals: model.Signals{KeywordMatches: &matches}},
	}
	p := New(nil, model.DefaultFusionWeights())
	results := p.Run(context.Background(), "query", candidates, false, 10)
	require.Len(t, results, 1)
	assert.NotNil(t, results[0].Signals.Cosine)
	assert.NotNil(t, results[0].Signals.KeywordMatches)
}

func TestRunCrossEncodeFailureDegradesGracefully(t *testing.T) {
	failing := func(ctx context.Context, query, chunkText string) (float64, error) {
		return 0, errors.New("model unavailable")
	}
	p := New(failing, model.DefaultFusionWeights())
	results := p.Run(context.Background(), "home loan", sampleCandidates(), true, 10)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Nil(t, r.RerankScore)
		assert.True(t, r.Signals.RerankSkipped)
	}
}

func TestRunCrossEncodeSuccessSetsScore(t *testing.T) {
	ok := func(ctx context.Context, query, chunkText string) (float64, error) {
		return 0.77, nil
	}
	p := New(ok, model.DefaultFusionWeights())
	results := p.Run(context.Background(), "home loan", sampleCandidates(), true, 10)
	require.Len(t, results, 2)
	for _, r := range results {
		require.NotNil(t, r.RerankScore)
		assert.Equal(t, 0.77, *r.RerankScore)
		assert.False(t, r.Signals.RerankSkipped)
	}
}

func TestRunTruncatesToTopK(t *testing.T) {
	p := New(nil, model.DefaultFusionWeights())
	results := p.Run(context.Background(), "query", sampleCandidates(), false, 1)
	assert.Len(t, results, 1)
}

func TestRunEmptyCandidates(t *testing.T) {
	p := New(nil, model.DefaultFusionWeights())
	results := p.Run(context.Background(), "query", nil, false, 10)
	assert.Nil(t, results)
}
