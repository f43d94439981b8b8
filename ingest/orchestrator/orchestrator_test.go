package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JasonAskew/knowledge-sub001/community"
	"github.com/JasonAskew/knowledge-sub001/ingest/entity"
	"github.com/JasonAskew/knowledge-sub001/ingest/pdfextract"
	"github.com/JasonAskew/knowledge-sub001/internal/errs"
	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/store/memory"
)

func fakeEmbed(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func TestChunkContainsEntityCaseInsensitive(t *testing.T) {
	assert.True(t, chunkContainsEntity("The Home Loan minimum deposit is $5,000.", "home loan"))
	assert.False(t, chunkContainsEntity("Savings accounts earn interest.", "home loan"))
	assert.False(t, chunkContainsEntity("text", ""))
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	o := New(memory.New(), fakeEmbed, Config{RetryBudget: 3, RetryBaseDelay: time.Millisecond}, nil)
	attempts := 0
	err := o.withRetry(context.Background(), "test", func() error {
		attempts++
		if attempts < 3 {
			return &errs.TransientStoreError{Op: "test", Err: errors.New("transient")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryFailsImmediatelyOnPermanentError(t *testing.T) {
	o := New(memory.New(), fakeEmbed, Config{RetryBudget: 3, RetryBaseDelay: time.Millisecond}, nil)
	attempts := 0
	err := o.withRetry(context.Background(), "test", func() error {
		attempts++
		return &errs.PermanentStoreError{Op: "test", Err: errors.New("permanent")}
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	o := New(memory.New(), fakeEmbed, Config{RetryBudget: 2, RetryBaseDelay: time.Millisecond}, nil)
	attempts := 0
	err := o.withRetry(context.Background(), "test", func() error {
		attempts++
		return &errs.TransientStoreError{Op: "test", Err: errors.New("transient")}
	})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestInsertOneWritesDocumentChunksAndEntities(t *testing.T) {
	s := memory.New()
	o := New(s, fakeEmbed, DefaultConfig(), nil)

	w := &docWork{
		entry: model.InventoryEntry{Path: "home_loan_guide.pdf", Filename: "home_loan_guide.pdf"},
		id:    "home_loan_guide",
		extract: &pdfextract.Result{
			PageCount:   1,
			PerPageText: []string{"Home Loan minimum deposit is $5,000."},
		},
		chunks: []*model.Chunk{
			{ID: "home_loan_guide_p1_c0", DocumentID: "home_loan_guide", PageNum: 1, Text: "Home Loan minimum deposit is $5,000.", Embedding: []float32{1, 0, 0}},
		},
		entities: []entity.Mention{{CanonicalText: "home loan", Type: model.EntityTypeProduct}},
	}

	err := o.insertOne(context.Background(), w)
	require.NoError(t, err)

	doc, err := s.GetDocument(context.Background(), "home_loan_guide")
	require.NoError(t, err)
	assert.Equal(t, "home_loan_guide", doc.ID)

	chunks, err := s.ChunksByDocument(context.Background(), "home_loan_guide")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	entities, err := s.EntitiesInChunk(context.Background(), "home_loan_guide_p1_c0")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "home loan", entities[0].CanonicalText)
}

func TestRunEmptyBatchProducesEmptySummary(t *testing.T) {
	o := New(memory.New(), fakeEmbed, DefaultConfig(), nil)
	summary, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Empty(t, summary.Failed)
}

func TestWriteAssignmentPersistsCommunityOntoEntities(t *testing.T) {
	s := memory.New()
	id, err := s.UpsertEntity(context.Background(), "home loan", model.EntityTypeProduct)
	require.NoError(t, err)

	assignment := &community.Assignment{
		CommunityOf: map[string]int{id: 3},
		Centrality:  map[string]float64{id: 0.5},
		IsBridge:    map[string]bool{id: true},
	}
	require.NoError(t, writeAssignment(context.Background(), s, assignment))

	e, err := s.GetEntity(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, e.CommunityID)
	assert.Equal(t, 3, *e.CommunityID)
	assert.True(t, e.IsBridgeNode)
}
