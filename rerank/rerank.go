// Package rerank implements the deterministic dedup -> cross-encode ->
// boost -> fuse -> sort pipeline of spec.md §4.8, grounded on the
// Reranker-interface shape seen across the retrieval-adjacent example
// repos and the teacher's hugot pipeline-construction idiom.
package rerank

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/knights-analytics/hugot"

	"github.com/JasonAskew/knowledge-sub001/internal/errs"
	"github.com/JasonAskew/knowledge-sub001/model"
)

// CrossEncodeFunc scores one (query, chunk text) pair; a failed call
// degrades gracefully to rerank_score = 0.5 rather than failing the
// request (spec.md §4.8 step 2).
type CrossEncodeFunc func(ctx context.Context, query, chunkText string) (float64, error)

// FallbackRerankScore is used whenever a cross-encoder call fails.
const FallbackRerankScore = 0.5

// NewCrossEncoder wraps a hugot text-classification pipeline scoring
// query/chunk relevance as a single scalar in [0,1], following the same
// session/pipeline construction shape as the project's embedder.
func NewCrossEncoder(modelPath string) (CrossEncodeFunc, func() error, error) {
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, nil, &errs.ExternalModelError{Model: modelPath, Op: "new session", Err: err}
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "reranker-pipeline",
	}
	classifier, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return nil, nil, &errs.ExternalModelError{Model: modelPath, Op: "new pipeline", Err: err}
	}

	scoreFn := func(ctx context.Context, query, chunkText string) (float64, error) {
		result, err := classifier.RunPipeline([]string{query + " [SEP] " + chunkText})
		if err != nil {
			return 0, &errs.ExternalModelError{Model: modelPath, Op: "run pipeline", Err: err}
		}
		if len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
			return 0, &errs.ExternalModelError{Model: modelPath, Op: "run pipeline", Err: errNoOutput}
		}
		return float64(result.ClassificationOutputs[0][0].Score), nil
	}

	return scoreFn, session.Destroy, nil
}

var errNoOutput = stringError("reranker produced no classification output")

type stringError string

func (e stringError) Error() string { return string(e) }

// Pipeline runs the full §4.8 sequence over a candidate list from one or
// more strategies.
type Pipeline struct {
	CrossEncode CrossEncodeFunc
	Weights     model.FusionWeights
}

func New(crossEncode CrossEncodeFunc, weights model.FusionWeights) *Pipeline {
	return &Pipeline{CrossEncode: crossEncode, Weights: weights}
}

// Run executes dedup, cross-encode (if rerank is requested), boosts,
// fusion and sort, returning the top topK results.
func (p *Pipeline) Run(ctx context.Context, query string, candidates []model.Candidate, rerank bool, topK int) []model.Result {
	deduped := dedup(candidates)
	if len(deduped) == 0 {
		return nil
	}

	queryType := detectQueryType(query)
	queryTokens := queryKeywordSet(query)

	results := make([]model.Result, 0, len(deduped))
	for _, c := range deduped {
		rerankScore := FallbackRerankScore
		rerankSkipped := true
		if rerank && p.CrossEncode != nil {
			text := ""
			if c.Chunk != nil {
				text = c.Chunk.Text
			}
			score, err := p.CrossEncode(ctx, query, text)
			if err == nil {
				rerankScore = score
				rerankSkipped = false
			}
		}

		keywordBoost := computeKeywordBoost(queryTokens, c)
		typeBoost := computeTypeBoost(queryType, c)
		metadataBoost := computeMetadataBoost(query, c)
		metadataTypeBoost := typeBoost + metadataBoost

		final := p.Weights.Rerank*rerankScore +
			p.Weights.Base*c.BaseScore +
			p.Weights.KeywordBoost*keywordBoost +
			p.Weights.MetadataType*metadataTypeBoost

		signals := c.Signals
		signals.RerankSkipped = rerankSkipped

		result := model.Result{
			ChunkID:    c.ChunkID,
			Score:      final,
			DocumentID: "",
			Strategy:   c.Provenance,
			Signals:    signals,
		}
		if !rerankSkipped {
			rs := rerankScore
			result.RerankScore = &rs
		}
		if c.Chunk != nil {
			result.Text = c.Chunk.Text
			result.DocumentID = c.Chunk.DocumentID
			result.PageNum = c.Chunk.PageNum
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// dedup merges candidates sharing a chunk_id, unioning signals and
// keeping the higher base score (spec.md §4.8 step 1).
func dedup(candidates []model.Candidate) []model.Candidate {
	byID := make(map[string]*model.Candidate, len(candidates))
	var order []string
	for _, c := range candidates {
		if existing, ok := byID[c.ChunkID]; ok {
			existing.Signals = existing.Signals.Merge(c.Signals)
			if c.BaseScore > existing.BaseScore {
				existing.BaseScore = c.BaseScore
			}
			if existing.Chunk == nil && c.Chunk != nil {
				existing.Chunk = c.Chunk
			}
			continue
		}
		cc := c
		byID[c.ChunkID] = &cc
		order = append(order, c.ChunkID)
	}
	out := make([]model.Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

const (
	keywordBoostCapText     = 0.2
	keywordBoostCapFilename = 0.15
	typeBoostHigh           = 0.2
	typeBoostLow            = 0.15
	densityBoostHigh        = 0.1
	densityBoostLow         = 0.05
)

func queryKeywordSet(query string) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		tok = strings.Trim(tok, ".,;:!?()[]{}\"'")
		if len(tok) > 2 {
			out = append(out, tok)
		}
	}
	return out
}

// computeKeywordBoost rewards overlap of query tokens with chunk text
// (capped) and with the source filename (capped separately).
func computeKeywordBoost(queryTokens []string, c model.Candidate) float64 {
	if c.Chunk == nil || len(queryTokens) == 0 {
		return 0
	}
	textLower := strings.ToLower(c.Chunk.Text)
	filenameLower := strings.ToLower(c.Chunk.DocumentID)

	var textHits, filenameHits int
	for _, tok := range queryTokens {
		if strings.Contains(textLower, tok) {
			textHits++
		}
		if strings.Contains(filenameLower, tok) {
			filenameHits++
		}
	}

	textBoost := capped(float64(textHits)/float64(len(queryTokens))*keywordBoostCapText, keywordBoostCapText)
	filenameBoost := capped(float64(filenameHits)/float64(len(queryTokens))*keywordBoostCapFilename, keywordBoostCapFilename)
	return textBoost + filenameBoost
}

func capped(v, cap float64) float64 {
	if v > cap {
		return cap
	}
	return v
}

// Query-type markers: the same regex table the chunk classifier in
// ingest/chunk applies to chunk text (spec.md §4.8 step 3).
var (
	queryDefinitionMarkers  = regexp.MustCompile(`\b(means|refers to|is defined as|shall mean)\b`)
	queryExampleMarkers     = regexp.MustCompile(`\b(for example|e\.g\.|such as|for instance)\b`)
	queryRequirementMarkers = regexp.MustCompile(`\b(must|required|minimum|shall not|mandatory)\b`)
	queryProcedureMarkers   = regexp.MustCompile(`\bstep \d+\b|\bhow to\b`)
)

// detectQueryType classifies the lowercased query with those markers in
// the chunk classifier's precedence (definition, example, requirement,
// procedure); a query matching none is content. No comparison class is
// detected.
func detectQueryType(query string) model.ChunkType {
	lower := strings.ToLower(query)
	switch {
	case queryDefinitionMarkers.MatchString(lower):
		return model.ChunkTypeDefinition
	case queryExampleMarkers.MatchString(lower):
		return model.ChunkTypeExample
	case queryRequirementMarkers.MatchString(lower):
		return model.ChunkTypeRequirement
	case queryProcedureMarkers.MatchString(lower):
		return model.ChunkTypeProcedure
	default:
		return model.ChunkTypeContent
	}
}

func computeTypeBoost(queryType model.ChunkType, c model.Candidate) float64 {
	if c.Chunk == nil {
		return 0
	}
	if c.Chunk.ChunkType == queryType {
		switch queryType {
		case model.ChunkTypeDefinition, model.ChunkTypeRequirement:
			return typeBoostHigh
		default:
			return typeBoostLow
		}
	}
	return 0
}

func computeMetadataBoost(query string, c model.Candidate) float64 {
	if c.Chunk == nil {
		return 0
	}
	var boost float64
	switch {
	case c.Chunk.SemanticDensity > 0.5:
		boost += densityBoostHigh
	case c.Chunk.SemanticDensity > 0.3:
		boost += densityBoostLow
	}

	lowerQuery := strings.ToLower(query)
	lowerText := strings.ToLower(c.Chunk.Text)
	for _, kw := range c.Chunk.Keywords {
		if len(kw) > 3 && strings.Contains(lowerQuery, kw) && strings.Contains(lowerText, kw) {
			boost += densityBoostLow
			break
		}
	}
	return boost
}
