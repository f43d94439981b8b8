// Package orchestrator runs the six-phase ingestion swarm of spec.md
// §4.5 over a batch of PDF inventory entries, using internal/workpool
// for bounded, cancellable per-phase concurrency.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/JasonAskew/knowledge-sub001/community"
	"github.com/JasonAskew/knowledge-sub001/ingest/chunk"
	"github.com/JasonAskew/knowledge-sub001/ingest/embed"
	"github.com/JasonAskew/knowledge-sub001/ingest/entity"
	"github.com/JasonAskew/knowledge-sub001/ingest/hierarchy"
	"github.com/JasonAskew/knowledge-sub001/ingest/pdfextract"
	"github.com/JasonAskew/knowledge-sub001/internal/errs"
	"github.com/JasonAskew/knowledge-sub001/internal/workpool"
	"github.com/JasonAskew/knowledge-sub001/model"
	"github.com/JasonAskew/knowledge-sub001/store"
)

// Config tunes per-phase concurrency and retry behavior (spec.md §4.5,
// defaults matching internal/config.IngestConfig).
type Config struct {
	ExtractWorkers     int
	ChunkWorkers       int
	EntityWorkers      int
	GraphWriters       int
	EmbedBatchSize     int
	RetryBudget        int
	RetryBaseDelay     time.Duration
	MinRelatedStrength int
	Resolution         float64
	AbbreviationTable  entity.AbbreviationTable
	HierarchyTable     model.HierarchyTable
}

func DefaultConfig() Config {
	return Config{
		ExtractWorkers:     4,
		ChunkWorkers:       4,
		EntityWorkers:      4,
		GraphWriters:       4,
		EmbedBatchSize:     32,
		RetryBudget:        3,
		RetryBaseDelay:     200 * time.Millisecond,
		MinRelatedStrength: 1,
		Resolution:         community.DefaultResolution,
	}
}

// Summary is the orchestrator's final report (spec.md §4.5:
// "{processed, failed, timings per phase}").
type Summary struct {
	Processed int
	Failed    []FailedDocument
	Timings   map[string]time.Duration
}

type FailedDocument struct {
	DocumentID string
	Phase      string
	Err        string
}

// Orchestrator wires the ingestion stack together.
type Orchestrator struct {
	Store store.Store
	Embed embed.Func
	Cfg   Config
	log   *slog.Logger
}

func New(s store.Store, embedFn embed.Func, cfg Config, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{Store: s, Embed: embedFn, Cfg: cfg, log: log}
}

// docWork is per-document state threaded through phases 1-5.
type docWork struct {
	entry   model.InventoryEntry
	id      string
	extract *pdfextract.Result
	chunks  []*model.Chunk
	entities []entity.Mention
	failed  bool
	phase   string
	err     error
}

// Run executes phases 1-6 over entries and returns the final Summary.
// Cancelling ctx stops new tasks at the next phase boundary (spec.md §5).
func (o *Orchestrator) Run(ctx context.Context, entries []model.InventoryEntry) (Summary, error) {
	timings := make(map[string]time.Duration)
	works := make([]*docWork, len(entries))
	for i, e := range entries {
		works[i] = &docWork{entry: e, id: model.DocumentID(e.Filename)}
	}

	phase1 := time.Now()
	o.runPhase(ctx, "extract", o.Cfg.ExtractWorkers, works, o.extractOne)
	timings["extract"] = time.Since(phase1)

	phase2 := time.Now()
	o.runPhase(ctx, "chunk", o.Cfg.ChunkWorkers, works, o.chunkOne)
	timings["chunk_classify"] = time.Since(phase2)

	phase3 := time.Now()
	if err := o.embedAll(ctx, works); err != nil && !errors.Is(err, context.Canceled) {
		o.log.Error("embed phase aborted", slog.String("error", err.Error()))
	}
	timings["embed"] = time.Since(phase3)

	phase4 := time.Now()
	o.runPhase(ctx, "entities", o.Cfg.EntityWorkers, works, o.entitiesOne)
	timings["extract_entities"] = time.Since(phase4)

	phase5 := time.Now()
	o.runPhase(ctx, "graph_insert", o.Cfg.GraphWriters, works, o.insertOne)
	timings["graph_insert"] = time.Since(phase5)

	phase6 := time.Now()
	if err := o.Store.BuildRelatedTo(ctx, o.Cfg.MinRelatedStrength); err != nil {
		o.log.Error("build related_to failed", slog.String("error", err.Error()))
		return o.summary(works, timings), err
	}
	assignment, err := community.Detect(ctx, o.Store, o.Cfg.Resolution)
	if err != nil {
		o.log.Error("community detection failed", slog.String("error", err.Error()))
		return o.summary(works, timings), err
	}
	if err := writeAssignment(ctx, o.Store, assignment); err != nil {
		o.log.Error("persisting community assignment failed", slog.String("error", err.Error()))
		return o.summary(works, timings), err
	}
	timings["relationship_community"] = time.Since(phase6)

	return o.summary(works, timings), nil
}

func (o *Orchestrator) summary(works []*docWork, timings map[string]time.Duration) Summary {
	summary := Summary{Timings: timings}
	for _, w := range works {
		if w.failed {
			summary.Failed = append(summary.Failed, FailedDocument{DocumentID: w.id, Phase: w.phase, Err: w.err.Error()})
			continue
		}
		summary.Processed++
	}
	return summary
}

// runPhase schedules task(w) for every not-yet-failed document on a
// bounded workpool, honoring cooperative cancellation between phases.
func (o *Orchestrator) runPhase(ctx context.Context, phase string, concurrency int, works []*docWork, task func(ctx context.Context, w *docWork) error) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	pool := workpool.New(ctx, concurrency)
	for _, w := range works {
		w := w
		if w.failed {
			continue
		}
		pool.Go(func(ctx context.Context) error {
			if err := o.withRetry(ctx, phase, func() error { return task(ctx, w) }); err != nil {
				w.failed = true
				w.phase = phase
				w.err = err
				o.log.Error("phase task failed", slog.String("phase", phase), slog.String("document_id", w.id), slog.String("error", err.Error()))
			}
			return nil
		})
	}
	_ = pool.Wait()
}

// withRetry makes up to Cfg.RetryBudget attempts in total, retrying
// transient store failures with exponential backoff; permanent failures and non-store errors fail
// immediately (spec.md §4.5, §7).
func (o *Orchestrator) withRetry(ctx context.Context, phase string, task func() error) error {
	delay := o.Cfg.RetryBaseDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	budget := o.Cfg.RetryBudget
	if budget <= 0 {
		budget = 1
	}

	var lastErr error
	for attempt := 0; attempt < budget; attempt++ {
		lastErr = task()
		if lastErr == nil {
			return nil
		}
		if !errs.IsTransient(lastErr) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}

// --- Phase 1: extract ---

func (o *Orchestrator) extractOne(ctx context.Context, w *docWork) error {
	result, err := pdfextract.Extract(ctx, w.entry.Path)
	if err != nil {
		return &errs.ExtractionFailure{DocumentID: w.id, Err: err}
	}
	w.extract = result
	return nil
}

// --- Phase 2: chunk + classify ---

func (o *Orchestrator) chunkOne(ctx context.Context, w *docWork) error {
	w.chunks = chunk.Split(w.id, w.extract.PerPageText, chunk.DefaultConfig())
	return nil
}

// --- Phase 3: embed (batched, across documents) ---

func (o *Orchestrator) embedAll(ctx context.Context, works []*docWork) error {
	batchSize := o.Cfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	type slot struct {
		w   *docWork
		idx int
	}
	var texts []string
	var slots []slot
	for _, w := range works {
		if w.failed {
			continue
		}
		for i, c := range w.chunks {
			texts = append(texts, c.Text)
			slots = append(slots, slot{w: w, idx: i})
		}
	}
	if len(texts) == 0 {
		return nil
	}

	offset := 0
	for _, batch := range embed.Batches(texts, batchSize) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		vectors, err := o.Embed(batch)
		if err != nil {
			for i := range batch {
				s := slots[offset+i]
				s.w.failed = true
				s.w.phase = "embed"
				s.w.err = &errs.ExternalModelError{Op: "embed batch", Err: err}
			}
			offset += len(batch)
			continue
		}
		for i, vec := range vectors {
			s := slots[offset+i]
			s.w.chunks[s.idx].Embedding = vec
		}
		offset += len(batch)
	}
	return nil
}

// --- Phase 4: extract entities ---

func (o *Orchestrator) entitiesOne(ctx context.Context, w *docWork) error {
	seen := make(map[string]struct{})
	var mentions []entity.Mention
	for _, c := range w.chunks {
		for _, m := range entity.Extract(c.Text, o.Cfg.AbbreviationTable) {
			key := string(m.Type) + ":" + m.CanonicalText
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			mentions = append(mentions, m)
		}
	}
	w.entities = mentions
	return nil
}

// --- Phase 5: graph insert (per-document atomic replace) ---

func (o *Orchestrator) insertOne(ctx context.Context, w *docWork) error {
	doc := &model.Document{
		ID:              w.id,
		Filename:        w.entry.Filename,
		PageCount:       w.extract.PageCount,
		SurfaceCategory: w.entry.SurfaceCategory,
		Metadata:        w.entry.Metadata,
	}

	hierarchyText := ""
	if len(w.extract.PerPageText) > 0 {
		hierarchyText = w.extract.PerPageText[0]
	}
	hierarchyResult := hierarchy.Classify(w.entry.Filename, hierarchyText, w.entry.SurfaceCategory, o.Cfg.HierarchyTable)
	if hierarchyResult.Division != "" {
		doc.Division = hierarchyResult.Division
		doc.Category = hierarchyResult.Category
		doc.Products = hierarchyResult.Products
	} else {
		o.log.Warn("low-confidence hierarchy classification",
			slog.String("document_id", w.id), slog.Float64("confidence", hierarchyResult.Confidence))
	}

	if err := o.Store.UpsertDocument(ctx, doc); err != nil {
		return err
	}
	if err := o.Store.ReplaceDocumentChunks(ctx, w.id, w.chunks); err != nil {
		return err
	}
	if err := o.Store.UpsertHierarchy(ctx, w.id, hierarchyResult); err != nil {
		return err
	}

	entityIDs := make(map[string]string, len(w.entities))
	for _, m := range w.entities {
		id, err := o.Store.UpsertEntity(ctx, m.CanonicalText, m.Type)
		if err != nil {
			return err
		}
		entityIDs[m.CanonicalText] = id
	}

	for _, c := range w.chunks {
		for _, m := range w.entities {
			if !chunkContainsEntity(c.Text, m.CanonicalText) {
				continue
			}
			if err := o.Store.LinkChunkEntity(ctx, c.ID, entityIDs[m.CanonicalText]); err != nil {
				return err
			}
		}
	}
	return nil
}

func chunkContainsEntity(chunkText, canonical string) bool {
	return canonical != "" && strings.Contains(strings.ToLower(chunkText), strings.ToLower(canonical))
}

// writeAssignment persists phase 6's Louvain output back onto each
// entity (spec.md §4.6: community_id, degree_centrality, is_bridge_node).
func writeAssignment(ctx context.Context, s store.Store, assignment *community.Assignment) error {
	for entityID, communityID := range assignment.CommunityOf {
		err := s.SetEntityCommunity(ctx, entityID, communityID, assignment.Centrality[entityID], assignment.IsBridge[entityID])
		if err != nil {
			return err
		}
	}
	return nil
}
