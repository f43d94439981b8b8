// Package hierarchy classifies one document into Division/Category/Products
// by keyword hits against a configured table (spec.md §4.4).
package hierarchy

import (
	"strings"

	"github.com/JasonAskew/knowledge-sub001/model"
)

// PrefixChars is how much of a document's text is scanned (spec.md §4.4
// "first N characters of document text (default 5000)").
const PrefixChars = 5000

// MinConfidence is the lowest score that still produces a classification;
// below this the result is empty (spec.md §4.4 "Low-confidence results
// leave the hierarchy attributes empty").
const MinConfidence = 0.15

// Classify scores filename + a text prefix + surfaceCategory against the
// hierarchy table and returns the single best Division/Category plus
// matched Products.
func Classify(filename, text, surfaceCategory string, table model.HierarchyTable) model.HierarchyResult {
	prefix := text
	if len(prefix) > PrefixChars {
		prefix = prefix[:PrefixChars]
	}
	haystack := strings.ToLower(filename + " " + prefix + " " + surfaceCategory)

	var best model.HierarchyResult
	var bestScore float64
	var bestKeywordCount int

	for _, div := range table.Divisions {
		divScore := scoreKeywords(haystack, div.Keywords)
		for _, cat := range div.Categories {
			catScore := divScore + scoreKeywords(haystack, cat.Keywords)
			keywordCount := len(div.Keywords) + len(cat.Keywords)
			if catScore > bestScore {
				bestScore = catScore
				bestKeywordCount = keywordCount
				best = model.HierarchyResult{
					Division: div.Name,
					Category: cat.Name,
					Products: matchedProducts(haystack, cat.Products),
				}
			}
		}
	}

	confidence := 0.0
	if bestKeywordCount > 0 {
		confidence = bestScore / float64(bestKeywordCount)
	}
	best.Confidence = confidence

	if confidence < MinConfidence {
		return model.HierarchyResult{Confidence: confidence}
	}
	return best
}

func scoreKeywords(haystack string, keywords []string) float64 {
	var score float64
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			score++
		}
	}
	return score
}

func matchedProducts(haystack string, products []string) []string {
	var out []string
	for _, p := range products {
		if strings.Contains(haystack, strings.ToLower(p)) {
			out = append(out, p)
		}
	}
	return out
}
