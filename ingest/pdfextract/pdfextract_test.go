package pdfextract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWhitespace(t *testing.T) {
	in := "Hello   world\n\n\n\nfoo"
	assert.Equal(t, "Hello world\n\nfoo", normalizeWhitespace(in))
}

func TestDetectSections(t *testing.T) {
	pages := []string{"INTRODUCTION\nsome body text\nmore text", "TERMS AND CONDITIONS\nother body"}
	sections := detectSections(pages)
	if assert.Len(t, sections, 2) {
		assert.Equal(t, "INTRODUCTION", sections[0].Heading)
		assert.Equal(t, "TERMS AND CONDITIONS", sections[1].Heading)
	}
}

func TestDetectSectionsNoHeadings(t *testing.T) {
	pages := []string{"just some lowercase body text with no headings at all"}
	assert.Nil(t, detectSections(pages))
}

func TestDetectTables(t *testing.T) {
	pages := []string{
		"Rate Term Fee\n1.5% 12mo $10\n2.0% 24mo $20\n2.5% 36mo $30",
		"No tabular content here, just prose about the product.",
	}
	tables := detectTables(pages)
	assert.Equal(t, []int{1}, tables)
}

func TestAnyNonEmpty(t *testing.T) {
	assert.False(t, anyNonEmpty([]string{"", "  ", "\n"}))
	assert.True(t, anyNonEmpty([]string{"", "text"}))
}

func TestExtractPageWithTimeoutReturnsOnSuccess(t *testing.T) {
	text, err := extractPageWithTimeout(context.Background(), func() (string, error) {
		return "page body", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "page body", text)
}

func TestExtractPageWithTimeoutCutsOffAHungPage(t *testing.T) {
	orig := PageTimeout
	PageTimeout = 10 * time.Millisecond
	defer func() { PageTimeout = orig }()

	_, err := extractPageWithTimeout(context.Background(), func() (string, error) {
		time.Sleep(time.Second)
		return "never", nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
