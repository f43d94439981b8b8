package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadInventoryParsesEntries(t *testing.T) {
	path := writeTempFile(t, `
- path: /docs/home_loan_guide.pdf
  filename: home_loan_guide.pdf
  surface_category: lending
`)
	entries, err := loadInventory(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "home_loan_guide.pdf", entries[0].Filename)
	assert.Equal(t, "lending", entries[0].SurfaceCategory)
}

func TestLoadHierarchyTableEmptyPathReturnsZeroValue(t *testing.T) {
	table, err := loadHierarchyTable("")
	require.NoError(t, err)
	assert.Empty(t, table.Institution)
}

func TestLoadAbbreviationTableParsesMap(t *testing.T) {
	path := writeTempFile(t, "HL: Home Loan\nTD: Term Deposit\n")
	table, err := loadAbbreviationTable(path)
	require.NoError(t, err)
	assert.Equal(t, "Home Loan", table["HL"])
	assert.Equal(t, "Term Deposit", table["TD"])
}

func TestSingleEmbedReturnsFirstVector(t *testing.T) {
	batched := func(texts []string) ([][]float32, error) {
		return [][]float32{{0.1, 0.2, 0.3}}, nil
	}
	vec, err := singleEmbed(batched)(context.Background(), "minimum deposit")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestSingleEmbedPropagatesBatchError(t *testing.T) {
	batched := func(texts []string) ([][]float32, error) {
		return nil, errors.New("model unavailable")
	}
	_, err := singleEmbed(batched)(context.Background(), "q")
	assert.Error(t, err)
}

func TestSingleEmbedErrorsOnEmptyResult(t *testing.T) {
	batched := func(texts []string) ([][]float32, error) {
		return nil, nil
	}
	_, err := singleEmbed(batched)(context.Background(), "q")
	assert.Error(t, err)
}
