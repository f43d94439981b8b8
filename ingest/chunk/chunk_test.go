package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JasonAskew/knowledge-sub001/model"
)

func TestSplitNeverCrossesPages(t *testing.T) {
	pages := []string{
		strings.Repeat("alpha ", 600),
		strings.Repeat("beta ", 600),
	}
	chunks := Split("doc1", pages, DefaultConfig())

	for _, c := range chunks {
		assert.NotContains(t, c.Text, "beta")
	}
	var sawPage2 bool
	for _, c := range chunks {
		if c.PageNum == 2 {
			sawPage2 = true
			assert.NotContains(t, c.Text, "alpha")
		}
	}
	assert.True(t, sawPage2)
}

func TestSplitEmptyPage(t *testing.T) {
	chunks := Split("doc1", []string{""}, DefaultConfig())
	assert.Empty(t, chunks)
}

func TestClassifyDefinition(t *testing.T) {
	c := &model.Chunk{Text: "Interest rate means the annual percentage charged on the outstanding balance."}
	Classify(c)
	assert.Equal(t, model.ChunkTypeDefinition, c.ChunkType)
	assert.True(t, c.HasDefinitions)
}

func TestClassifyRequirement(t *testing.T) {
	c := &model.Chunk{Text: "A minimum deposit of $500 is required to open this account."}
	Classify(c)
	assert.Equal(t, model.ChunkTypeRequirement, c.ChunkType)
}

func TestClassifyProcedure(t *testing.T) {
	c := &model.Chunk{Text: "Step 1: complete the form. Step 2: submit identification."}
	Classify(c)
	assert.Equal(t, model.ChunkTypeProcedure, c.ChunkType)
}

func TestClassifyContentFallback(t *testing.T) {
	c := &model.Chunk{Text: "This product is offered across several regions."}
	Classify(c)
	assert.Equal(t, model.ChunkTypeContent, c.ChunkType)
}

func TestSemanticDensityBounds(t *testing.T) {
	c := &model.Chunk{Text: "The rate is 4.5% for example, on balances such as $1,000.\n- item one\n- item two"}
	Classify(c)
	assert.GreaterOrEqual(t, c.SemanticDensity, 0.0)
	assert.LessOrEqual(t, c.SemanticDensity, 1.0)
	assert.Greater(t, c.SemanticDensity, 0.3)
}

func TestSemanticDensityHeaderLike(t *testing.T) {
	c := &model.Chunk{Text: "PAGE 4 OF 10"}
	Classify(c)
	assert.Less(t, c.SemanticDensity, 0.3)
}

func TestKeywordsDeduped(t *testing.T) {
	c := &model.Chunk{Text: "The Rate and the rate and the Term apply."}
	Classify(c)
	assert.Contains(t, c.Keywords, "rate")
	assert.Contains(t, c.Keywords, "term")
	count := 0
	for _, k := range c.Keywords {
		if k == "rate" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
