// Package entity extracts (canonical_text, type) mentions from chunk text
// using rule-based passes (spec.md §4.4): no ML model is involved, in
// contrast to the teacher's hugot-backed NER pipeline, which this package
// deliberately does not reuse (see DESIGN.md).
package entity

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/JasonAskew/knowledge-sub001/model"
)

// AbbreviationTable maps short domain codes to canonical product names
// (spec.md §4.4 "a configured table mapping short codes to canonical
// names").
type AbbreviationTable map[string]string

// Mention is one extracted (canonical_text, type) pair, before store
// upsert collapses duplicates by canonical text.
type Mention struct {
	CanonicalText string
	Type          model.EntityType
}

var (
	institutionCodePattern = regexp.MustCompile(`\b[A-Z]{2,5}\d{2,6}\b`)
	amountPattern          = regexp.MustCompile(`[$£€]\s?\d[\d,]*(\.\d+)?|\b\d[\d,]*(\.\d+)?\s?(USD|AUD|EUR|GBP|%|percent)\b`)
	capitalizedTermPattern = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,3})\b`)
)

// DedupThreshold is the Jaro-Winkler similarity above which two canonical
// texts extracted from the same chunk are treated as the same mention
// rather than near-duplicates (e.g. "Home Loan" vs "Home Loans").
const DedupThreshold = 0.92

// Extract runs every rule-based pass over chunk text and collapses
// duplicates within the chunk (spec.md §4.4).
func Extract(text string, abbreviations AbbreviationTable) []Mention {
	var mentions []Mention

	for code, canonical := range abbreviations {
		if containsWord(text, code) {
			mentions = append(mentions, Mention{CanonicalText: canonical, Type: model.EntityTypeProduct})
		}
	}

	for _, m := range institutionCodePattern.FindAllString(text, -1) {
		mentions = append(mentions, Mention{CanonicalText: m, Type: model.EntityTypeInstitution})
	}

	for _, m := range amountPattern.FindAllString(text, -1) {
		mentions = append(mentions, Mention{CanonicalText: normalizeAmount(m), Type: model.EntityTypeAmount})
	}

	for _, m := range capitalizedTermPattern.FindAllString(text, -1) {
		// A sentence-initial "The" is not part of the term itself.
		if rest := strings.TrimPrefix(m, "The "); rest != m && strings.Contains(rest, " ") {
			m = rest
		}
		mentions = append(mentions, Mention{CanonicalText: m, Type: model.EntityTypeTerm})
	}

	return collapse(mentions)
}

func containsWord(text, word string) bool {
	pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	return pattern.MatchString(text)
}

func normalizeAmount(s string) string {
	return strings.TrimSpace(s)
}

// collapse merges mentions within one chunk whose canonical texts are
// near-duplicates by Jaro-Winkler similarity, keeping the first-seen form.
func collapse(mentions []Mention) []Mention {
	var out []Mention
	for _, m := range mentions {
		normalized := strings.ToLower(strings.TrimSpace(m.CanonicalText))
		if normalized == "" {
			continue
		}
		dup := false
		for _, existing := range out {
			if existing.Type != m.Type {
				continue
			}
			existingNorm := strings.ToLower(existing.CanonicalText)
			if existingNorm == normalized || matchr.JaroWinkler(existingNorm, normalized, false) >= DedupThreshold {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, m)
		}
	}
	return out
}
