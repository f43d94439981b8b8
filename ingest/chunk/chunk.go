// Package chunk splits per-page document text into token-windowed Chunks
// and classifies each one (spec.md §4.3), in the style of the teacher's
// core/pipeline sentence/paragraph chunkers generalized to a token-aware,
// page-bounded window.
package chunk

import (
	"regexp"
	"strings"

	"github.com/JasonAskew/knowledge-sub001/model"
)

// Config controls window sizing; defaults match spec.md §4.3.
type Config struct {
	TargetTokens  int
	OverlapTokens int
}

func DefaultConfig() Config {
	return Config{TargetTokens: 512, OverlapTokens: 128}
}

// Split converts one document's per-page text into ordered Chunks.
// Windows never cross page boundaries: each page contributes one or more
// chunks, never a partial crossing (spec.md §4.3).
func Split(documentID string, perPageText []string, cfg Config) []*model.Chunk {
	var out []*model.Chunk
	for pageIdx, text := range perPageText {
		pageNum := pageIdx + 1
		tokens := tokenize(text)
		windows := windowTokens(tokens, cfg.TargetTokens, cfg.OverlapTokens)
		for i, w := range windows {
			chunkText := strings.Join(w, " ")
			c := &model.Chunk{
				ID:         model.ChunkID(documentID, pageNum, i),
				DocumentID: documentID,
				PageNum:    pageNum,
				ChunkIndex: i,
				Text:       chunkText,
				TokenCount: len(w),
			}
			Classify(c)
			out = append(out, c)
		}
	}
	return out
}

// tokenize splits on whitespace only (punctuation stays attached to its
// token); it is not a model tokenizer, only a stable unit for windowing and keyword extraction.
var tokenPattern = regexp.MustCompile(`\S+`)

func tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

func windowTokens(tokens []string, target, overlap int) [][]string {
	if len(tokens) == 0 {
		return nil
	}
	if target <= 0 {
		target = 512
	}
	if overlap < 0 || overlap >= target {
		overlap = target / 4
	}

	var windows [][]string
	step := target - overlap
	for start := 0; start < len(tokens); start += step {
		end := start + target
		if end > len(tokens) {
			end = len(tokens)
		}
		windows = append(windows, tokens[start:end])
		if end == len(tokens) {
			break
		}
	}
	return windows
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "was": {}, "were": {}, "has": {}, "have": {}, "had": {}, "not": {},
	"you": {}, "your": {}, "our": {}, "can": {}, "will": {}, "shall": {}, "all": {},
}

var (
	definitionMarkers = regexp.MustCompile(`\b(means|refers to|is defined as|shall mean)\b`)
	exampleMarkers    = regexp.MustCompile(`\b(for example|e\.g\.|such as|for instance)\b`)
	requirementMarkers = regexp.MustCompile(`\b(must|required|minimum|shall not|mandatory)\b`)
	procedureMarkers  = regexp.MustCompile(`\bstep \d+\b|\bhow to\b`)
	listMarkers       = regexp.MustCompile(`(?m)^\s*([-*•]|\d+[.)])\s`)
	numberPattern     = regexp.MustCompile(`\d`)
)

// Classify fills semantic_density, chunk_type, and the marker booleans on
// an already-populated Chunk (spec.md §4.3). Pure function of c.Text.
func Classify(c *model.Chunk) {
	lower := strings.ToLower(c.Text)

	c.HasDefinitions = definitionMarkers.MatchString(lower)
	c.HasExamples = exampleMarkers.MatchString(lower)
	c.HasLists = listMarkers.MatchString(c.Text)

	switch {
	case c.HasDefinitions:
		c.ChunkType = model.ChunkTypeDefinition
	case c.HasExamples:
		c.ChunkType = model.ChunkTypeExample
	case requirementMarkers.MatchString(lower):
		c.ChunkType = model.ChunkTypeRequirement
	case procedureMarkers.MatchString(lower):
		c.ChunkType = model.ChunkTypeProcedure
	default:
		c.ChunkType = model.ChunkTypeContent
	}

	c.SemanticDensity = semanticDensity(c.Text)
	c.Keywords = keywords(lower)
}

// semanticDensity is a deterministic score in [0,1]: favors numbers,
// definition/example markers and lists; penalizes very short,
// header-like chunks (few distinct words relative to length).
func semanticDensity(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	lower := strings.ToLower(trimmed)

	var score float64
	if numberPattern.MatchString(trimmed) {
		score += 0.2
	}
	if definitionMarkers.MatchString(lower) {
		score += 0.25
	}
	if exampleMarkers.MatchString(lower) {
		score += 0.15
	}
	if listMarkers.MatchString(trimmed) {
		score += 0.2
	}

	words := tokenize(trimmed)
	if len(words) > 0 {
		distinct := make(map[string]struct{}, len(words))
		for _, w := range words {
			distinct[strings.ToLower(w)] = struct{}{}
		}
		lexicalRichness := float64(len(distinct)) / float64(len(words))
		score += 0.2 * lexicalRichness
	}

	if isHeaderLike(trimmed) {
		score -= 0.3
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// isHeaderLike flags short, mostly-uppercase text typical of page
// furniture (running headers, footers, page numbers).
func isHeaderLike(text string) bool {
	words := tokenize(text)
	if len(words) == 0 || len(words) > 8 {
		return false
	}
	upper := strings.ToUpper(text)
	return text == upper && len(text) < 80
}

func keywords(lower string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range tokenize(lower) {
		w := strings.Trim(tok, ".,;:!?()[]{}\"'")
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
