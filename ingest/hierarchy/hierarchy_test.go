package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JasonAskew/knowledge-sub001/model"
)

func testTable() model.HierarchyTable {
	return model.HierarchyTable{
		Institution: "Example Bank",
		Divisions: []model.DivisionTemplate{
			{
				Name:     "Retail Banking",
				Keywords: []string{"retail", "personal"},
				Categories: []model.CategoryTemplate{
					{
						Name:     "Home Loans",
						Keywords: []string{"mortgage", "home loan"},
						Products: []string{"Fixed Rate Home Loan", "Variable Rate Home Loan"},
					},
				},
			},
			{
				Name:     "Business Banking",
				Keywords: []string{"business", "commercial"},
				Categories: []model.CategoryTemplate{
					{
						Name:     "Business Loans",
						Keywords: []string{"business loan", "overdraft"},
						Products: []string{"Business Overdraft"},
					},
				},
			},
		},
	}
}

func TestClassifyHighConfidence(t *testing.T) {
	result := Classify("home-loan-guide.pdf", "This retail mortgage home loan guide explains the Fixed Rate Home Loan.", "", testTable())
	assert.Equal(t, "Retail Banking", result.Division)
	assert.Equal(t, "Home Loans", result.Category)
	assert.Contains(t, result.Products, "Fixed Rate Home Loan")
	assert.Greater(t, result.Confidence, MinConfidence)
}

func TestClassifyLowConfidenceLeavesEmpty(t *testing.T) {
	result := Classify("unrelated.pdf", "This document discusses something entirely unrelated.", "", testTable())
	assert.Empty(t, result.Division)
	assert.Empty(t, result.Category)
}

func TestClassifyBusinessBanking(t *testing.T) {
	result := Classify("overdraft.pdf", "This business overdraft commercial business loan facility.", "", testTable())
	assert.Equal(t, "Business Banking", result.Division)
	assert.Equal(t, "Business Loans", result.Category)
}
