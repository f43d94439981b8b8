package community

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/store/memory"
)

// seedTwoCliques builds two tightly-connected entity clusters joined by one
// weak bridge edge, the standard Louvain smoke-test topology.
func seedTwoCliques(t *testing.T, s *memory.Store) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 6)
	for i := 0; i < 6; i++ {
		id, err := s.UpsertEntity(ctx, string(rune('A'+i)), model.EntityTypeTerm)
		require.NoError(t, err)
		ids[i] = id
	}

	// Clique 1: 0,1,2 all co-occur in several chunks.
	seedCooccurrence(t, s, ids[0], ids[1], 5)
	seedCooccurrence(t, s, ids[1], ids[2], 5)
	seedCooccurrence(t, s, ids[0], ids[2], 5)

	// Clique 2: 3,4,5.
	seedCooccurrence(t, s, ids[3], ids[4], 5)
	seedCooccurrence(t, s, ids[4], ids[5], 5)
	seedCooccurrence(t, s, ids[3], ids[5], 5)

	// One weak bridge between the cliques.
	seedCooccurrence(t, s, ids[2], ids[3], 1)

	require.NoError(t, s.BuildRelatedTo(ctx, 0))
	return ids
}

func seedCooccurrence(t *testing.T, s *memory.Store, a, b string, chunkCount int) {
	t.Helper()
	ctx := context.Background()
	// One document per pair: replacing a document's chunks drops the
	// earlier ones, so every pair's chunks are written in one call.
	docID := "doc_" + a + "_" + b
	require.NoError(t, s.UpsertDocument(ctx, &model.Document{ID: docID, Filename: docID + ".pdf"}))
	chunks := make([]*model.Chunk, chunkCount)
	for i := range chunks {
		chunks[i] = &model.Chunk{ID: model.ChunkID(docID, 1, i), DocumentID: docID, PageNum: 1, ChunkIndex: i, Text: "x"}
	}
	require.NoError(t, s.ReplaceDocumentChunks(ctx, docID, chunks))
	for _, chunk := range chunks {
		require.NoError(t, s.LinkChunkEntity(ctx, chunk.ID, a))
		require.NoError(t, s.LinkChunkEntity(ctx, chunk.ID, b))
	}
}

func TestDetectSeparatesCliques(t *testing.T) {
	s := memory.New()
	ids := seedTwoCliques(t, s)

	assignment, err := Detect(context.Background(), s, DefaultResolution)
	require.NoError(t, err)

	assert.Equal(t, assignment.CommunityOf[ids[0]], assignment.CommunityOf[ids[1]])
	assert.Equal(t, assignment.CommunityOf[ids[1]], assignment.CommunityOf[ids[2]])
	assert.Equal(t, assignment.CommunityOf[ids[3]], assignment.CommunityOf[ids[4]])
	assert.Equal(t, assignment.CommunityOf[ids[4]], assignment.CommunityOf[ids[5]])
	assert.NotEqual(t, assignment.CommunityOf[ids[0]], assignment.CommunityOf[ids[3]])
}

func TestCentralityInBounds(t *testing.T) {
	s := memory.New()
	ids := seedTwoCliques(t, s)

	assignment, err := Detect(context.Background(), s, DefaultResolution)
	require.NoError(t, err)

	for _, id := range ids {
		c := assignment.Centrality[id]
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
	}
}

func TestEmptyGraph(t *testing.T) {
	s := memory.New()
	assignment, err := Detect(context.Background(), s, DefaultResolution)
	require.NoError(t, err)
	assert.Empty(t, assignment.CommunityOf)
}
