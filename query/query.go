// Package query provides Engine, the public facade over store, retrieval,
// and rerank — the unified entry point that replaces direct handler access,
// the way the teacher's grapher.Grapher fronted its database handlers.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/rerank"
	"github.com/JasonAskew/knowledge-sub001/retrieval"
	"github.com/JasonAskew/knowledge-sub001/store"
)

// Engine dispatches a SearchRequest to the requested retrieval strategy
// (or a default composite), then runs the rerank pipeline over the
// resulting candidates (spec.md §4.9).
type Engine struct {
	retrieval *retrieval.Engine
	rerank    *rerank.Pipeline
	store     store.Store
	log       *slog.Logger
}

// New builds a query Engine over an already-constructed Store, embedder,
// and cross-encoder. crossEncode may be nil, in which case rerank always
// falls back to rerank.FallbackRerankScore.
func New(s store.Store, embed retrieval.EmbedFunc, crossEncode rerank.CrossEncodeFunc, weights model.FusionWeights, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		retrieval: retrieval.New(s, embed),
		rerank:    rerank.New(crossEncode, weights),
		store:     s,
		log:       log,
	}
}

// Search executes one SearchRequest end-to-end: strategy dispatch, fusion,
// sort, and truncation to req.TopK.
func (e *Engine) Search(ctx context.Context, req model.SearchRequest) ([]model.Result, error) {
	start := time.Now()
	if req.TopK <= 0 {
		req.TopK = model.DefaultQueryConfig().TopK
	}

	q := model.Query{
		Text:           req.Text,
		DivisionFilter: req.Filters.Division,
		CategoryFilter: req.Filters.Category,
		TopK:           req.TopK,
		Rerank:         req.Rerank,
	}

	candidates, err := e.dispatch(ctx, req.Strategy, q)
	if err != nil {
		e.log.Error("retrieval strategy failed",
			slog.String("strategy", string(req.Strategy)),
			slog.String("error", err.Error()))
		return nil, err
	}

	if req.Strategy != "" {
		e.log.Debug("retrieval candidates", slog.String("strategy", string(req.Strategy)), slog.Int("count", len(candidates)))
	}

	results := e.rerank.Run(ctx, req.Text, candidates, req.Rerank, req.TopK)
	e.log.Info("search completed",
		slog.String("strategy", string(req.Strategy)),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(start)))
	return results, nil
}

func (e *Engine) dispatch(ctx context.Context, strategy model.StrategyName, q model.Query) ([]model.Candidate, error) {
	switch strategy {
	case model.StrategyVector:
		return e.retrieval.Vector(ctx, q)
	case model.StrategyKeyword:
		return e.retrieval.Keyword(ctx, q)
	case model.StrategyGraph:
		return e.retrieval.Graph(ctx, q)
	case model.StrategyHybrid, "":
		return e.retrieval.Hybrid(ctx, q)
	case model.StrategyCommunity:
		return e.retrieval.Community(ctx, q)
	case model.StrategyNLToGraph:
		return e.retrieval.NLToGraph(ctx, q)
	default:
		return nil, fmt.Errorf("query: unknown strategy %q", strategy)
	}
}

// Stats proxies store.Store.Stats for admin/CLI surfaces.
func (e *Engine) Stats(ctx context.Context) (store.Stats, error) {
	return e.store.Stats(ctx)
}
