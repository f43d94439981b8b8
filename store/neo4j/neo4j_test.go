package neo4j

import (
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"

	"github.com/JasonAskew/knowledge-sub001/internal/errs"
	"github.com/JasonAskew/knowledge-sub001/model"
)

func TestScanDocumentMapsProps(t *testing.T) {
	node := neo4j.Node{Props: map[string]any{
		"id": "home_loan_guide", "filename": "home_loan_guide.pdf", "page_count": int64(12),
		"title": "Home Loan Guide", "surface_category": "lending", "division": "Retail Banking",
		"category": "Home Loans", "products": []any{"Standard Variable"}, "metadata_json": "",
	}}

	doc := scanDocument(node)

	assert.Equal(t, "home_loan_guide", doc.ID)
	assert.Equal(t, 12, doc.PageCount)
	assert.Equal(t, "Retail Banking", doc.Division)
	assert.Equal(t, []string{"Standard Variable"}, doc.Products)
}

func TestScanChunkMapsEmbeddingAndFlags(t *testing.T) {
	node := neo4j.Node{Props: map[string]any{
		"id": "doc_p1_c0", "document_id": "doc", "page_num": int64(1), "chunk_index": int64(0),
		"text": "Minimum deposit is 5 percent.", "token_count": int64(6),
		"embedding": []any{float64(0.1), float64(0.2), float64(0.3)},
		"semantic_density": 0.72, "chunk_type": "requirement",
		"has_definitions": false, "has_examples": true, "has_lists": false,
		"keywords": []any{"deposit", "minimum"}, "division": "", "category": "", "metadata_json": "",
	}}

	c := scanChunk(node)

	assert.Equal(t, model.ChunkTypeRequirement, c.ChunkType)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, c.Embedding)
	assert.True(t, c.HasExamples)
	assert.False(t, c.HasDefinitions)
	assert.Equal(t, 6, c.TokenCount)
}

func TestScanEntityMapsCommunityPointers(t *testing.T) {
	node := neo4j.Node{Props: map[string]any{
		"id": "product:home loan", "canonical_text": "home loan", "entity_type": "product",
		"occurrence_count": int64(4), "community_id": int64(2), "degree_centrality": 0.8, "is_bridge_node": true,
	}}

	e := scanEntity(node)

	assert.Equal(t, "home loan", e.CanonicalText)
	require := assert.New(t)
	require.NotNil(e.CommunityID)
	require.Equal(2, *e.CommunityID)
	require.NotNil(e.DegreeCentrality)
	require.Equal(0.8, *e.DegreeCentrality)
	require.True(e.IsBridgeNode)
}

func TestEntityIDIsStableForSameCanonicalTextAndType(t *testing.T) {
	a := entityID("Home Loan", model.EntityTypeProduct)
	b := entityID("Home Loan", model.EntityTypeProduct)
	c := entityID("Home Loan", model.EntityTypeInstitution)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestClassifyErrWrapsNonNeo4jErrorsAsPermanent(t *testing.T) {
	err := classifyErr("upsert document", errors.New("boom"))

	var permanent *errs.PermanentStoreError
	assert.ErrorAs(t, err, &permanent)
}

func TestClassifyErrPassesThroughNil(t *testing.T) {
	assert.NoError(t, classifyErr("upsert document", nil))
}
