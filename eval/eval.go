// Package eval implements the accuracy/latency harness of spec.md §4.10:
// for each labeled (question, expected document) pair, run the query
// engine under a named configuration and report hit-rate and latency.
package eval

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/JasonAskew/knowledge-sub001/model"
)

// Case is one labeled test case: a question and the document it should
// surface.
type Case struct {
	ID           int
	Question     string
	ExpectedDoc  string
}

// Searcher is the subset of query.Engine the harness depends on.
type Searcher interface {
	Search(ctx context.Context, req model.SearchRequest) ([]model.Result, error)
}

// TraceEntry records one case's outcome for the per-case trace.
type TraceEntry struct {
	CaseID          int
	Question        string
	ExpectedDoc     string
	ActualDocuments []string
	Hit             bool
	TopScore        float64
	RerankScore     *float64
	Latency         time.Duration
	Err             string
}

// Report is one configuration's full evaluation output (spec.md §4.10).
type Report struct {
	Configuration string
	HitRate       float64
	MeanLatency   time.Duration
	P95Latency    time.Duration
	Cases         []TraceEntry
}

// Config names a search configuration under evaluation (strategy +
// rerank flag), matching the teacher's test-runner search_type/
// use_reranking parameters.
type Config struct {
	Name     string
	Strategy model.StrategyName
	Rerank   bool
	TopK     int
}

// hitDocumentRank is the number of leading results considered for a hit
// (spec.md §4.10: "top-3 document_ids").
const hitDocumentRank = 3

// Run executes every case under one configuration and returns its Report.
func Run(ctx context.Context, searcher Searcher, cfg Config, cases []Case) Report {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}

	trace := make([]TraceEntry, 0, len(cases))
	var latencies []time.Duration
	var hits int

	for _, c := range cases {
		start := time.Now()
		results, err := searcher.Search(ctx, model.SearchRequest{
			Text:     c.Question,
			Strategy: cfg.Strategy,
			Rerank:   cfg.Rerank,
			TopK:     topK,
		})
		elapsed := time.Since(start)
		latencies = append(latencies, elapsed)

		entry := TraceEntry{
			CaseID:      c.ID,
			Question:    c.Question,
			ExpectedDoc: c.ExpectedDoc,
			Latency:     elapsed,
		}
		if err != nil {
			entry.Err = err.Error()
			trace = append(trace, entry)
			continue
		}

		docs := topDocuments(results, hitDocumentRank)
		entry.ActualDocuments = docs
		entry.Hit = documentMatch(c.ExpectedDoc, docs)
		if len(results) > 0 {
			entry.TopScore = results[0].Score
			entry.RerankScore = results[0].RerankScore
		}
		if entry.Hit {
			hits++
		}
		trace = append(trace, entry)
	}

	report := Report{
		Configuration: cfg.Name,
		Cases:         trace,
	}
	if len(cases) > 0 {
		report.HitRate = float64(hits) / float64(len(cases))
	}
	report.MeanLatency = meanDuration(latencies)
	report.P95Latency = percentileDuration(latencies, 0.95)
	return report
}

func topDocuments(results []model.Result, n int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, r := range results {
		if _, ok := seen[r.DocumentID]; ok {
			continue
		}
		seen[r.DocumentID] = struct{}{}
		out = append(out, r.DocumentID)
		if len(out) >= n {
			break
		}
	}
	return out
}

// documentMatch implements spec.md §4.10's "case-insensitive,
// file-extension-stripped, substring-either-direction" comparison.
func documentMatch(expected string, actual []string) bool {
	expectedClean := cleanDocName(expected)
	if expectedClean == "" {
		return false
	}
	for _, a := range actual {
		actualClean := cleanDocName(a)
		if actualClean == "" {
			continue
		}
		if strings.Contains(expectedClean, actualClean) || strings.Contains(actualClean, expectedClean) {
			return true
		}
	}
	return false
}

func cleanDocName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(n, ".pdf")
	return n
}

func meanDuration(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	return sum / time.Duration(len(ds))
}

func percentileDuration(ds []time.Duration, p float64) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), ds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
