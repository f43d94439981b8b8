package retrieval

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/JasonAskew/knowledge-sub001/model"
)

// template is one fixed regex pattern for the deterministic NL-to-graph
// matcher (spec.md §4.7.6). Templates are tried in declaration order; the
// first match wins.
type template struct {
	name    string
	pattern *regexp.Regexp
	run     func(e *Engine, ctx context.Context, q model.Query, groups []string) ([]model.Candidate, error)
}

// abbreviations expands product/institution shorthand found in regex
// groups before they're used to build the parameterized graph query.
var abbreviations = map[string]string{
	"hl":  "home loan",
	"sav": "savings account",
	"td":  "term deposit",
}

func expand(term string) string {
	lower := strings.ToLower(strings.TrimSpace(term))
	if full, ok := abbreviations[lower]; ok {
		return full
	}
	return term
}

var templates = []template{
	{
		name:    "documents_about_topic",
		pattern: regexp.MustCompile(`(?i)^find documents? about (.+)$`),
		run: func(e *Engine, ctx context.Context, q model.Query, groups []string) ([]model.Candidate, error) {
			topic := expand(groups[1])
			return e.Keyword(ctx, model.Query{Text: topic, TopK: q.TopK})
		},
	},
	{
		name:    "minimum_value_for_product",
		pattern: regexp.MustCompile(`(?i)^what is the minimum (.+?) for (.+)$`),
		run: func(e *Engine, ctx context.Context, q model.Query, groups []string) ([]model.Candidate, error) {
			attr, product := expand(groups[1]), expand(groups[2])
			return e.Keyword(ctx, model.Query{Text: "minimum " + attr + " " + product, TopK: q.TopK})
		},
	},
	{
		name:    "how_many_documents",
		pattern: regexp.MustCompile(`(?i)^how many documents`),
		run: func(e *Engine, ctx context.Context, q model.Query, groups []string) ([]model.Candidate, error) {
			stats, err := e.Store.Stats(ctx)
			if err != nil {
				return nil, err
			}
			countStr := strconv.Itoa(stats.Documents)
			matches := 1
			return []model.Candidate{{
				ChunkID:    "stats:documents",
				BaseScore:  1,
				Provenance: model.StrategyNLToGraph,
				Signals: model.Signals{
					QueryType:       "count_documents",
					MatchedTemplate: "how_many_documents",
					KeywordMatches:  &matches,
					MatchedEntities: []string{countStr},
				},
			}}, nil
		},
	},
	{
		name:    "entities_in_document",
		pattern: regexp.MustCompile(`(?i)^what entities are in (\S+\.\w+)$`),
		run: func(e *Engine, ctx context.Context, q model.Query, groups []string) ([]model.Candidate, error) {
			documentID := model.DocumentID(groups[1])
			chunks, err := e.Store.ChunksByDocument(ctx, documentID)
			if err != nil {
				return nil, err
			}
			var out []model.Candidate
			for _, chunk := range chunks {
				entities, err := e.Store.EntitiesInChunk(ctx, chunk.ID)
				if err != nil {
					continue
				}
				var names []string
				for _, ent := range entities {
					names = append(names, ent.CanonicalText)
				}
				if len(names) == 0 {
					continue
				}
				count := len(names)
				out = append(out, model.Candidate{
					ChunkID:    chunk.ID,
					Chunk:      chunk,
					BaseScore:  float64(count),
					Provenance: model.StrategyNLToGraph,
					Signals: model.Signals{
						QueryType:       "entities_in_document",
						MatchedTemplate: "entities_in_document",
						MatchedEntities: names,
					},
				})
			}
			return truncate(out, q.TopK), nil
		},
	},
}

// NLToGraph matches q.Text against the fixed template list in order; the
// first match dispatches to a parameterized graph query. No match falls
// back to a generic keyword search (spec.md §4.7.6).
func (e *Engine) NLToGraph(ctx context.Context, q model.Query) ([]model.Candidate, error) {
	text := strings.TrimSpace(q.Text)
	for _, t := range templates {
		groups := t.pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		candidates, err := t.run(e, ctx, q, groups)
		if err != nil {
			return nil, err
		}
		for i := range candidates {
			if candidates[i].Signals.MatchedTemplate == "" {
				candidates[i].Signals.MatchedTemplate = t.name
			}
		}
		return candidates, nil
	}

	return e.Keyword(ctx, q)
}
