// Package embed wraps a hugot feature-extraction pipeline into the
// batched EmbedFunc the ingestion orchestrator's embed phase calls
// (spec.md §4.5 step 3), adapted from the teacher's core/pipeline
// embedder.go.
package embed

import (
	"fmt"

	"github.com/knights-analytics/hugot"

	"github.com/JasonAskew/knowledge-sub001/internal/errs"
)

// Func embeds a batch of chunk texts into D-dimensional vectors, one per
// input string, in order.
type Func func(texts []string) ([][]float32, error)

// Config names the embedding model and its expected output dimension.
type Config struct {
	Model        string
	OnnxFilePath string
	Dimension    int
}

func DefaultConfig() Config {
	return Config{
		Model:        "sentence-transformers/all-MiniLM-L6-v2",
		OnnxFilePath: "onnx/model.onnx",
		Dimension:    384,
	}
}

// New prepares the model (downloading it if not cached) and returns a
// batched embedding function plus a closer to release the hugot session.
func New(cfg Config) (Func, func() error, error) {
	modelPath, err := prepareModel(cfg.Model, cfg.OnnxFilePath)
	if err != nil {
		return nil, nil, &errs.ExternalModelError{Model: cfg.Model, Op: "prepare", Err: err}
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, nil, &errs.ExternalModelError{Model: cfg.Model, Op: "new session", Err: err}
	}

	pipelineConfig := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, pipelineConfig)
	if err != nil {
		_ = session.Destroy()
		return nil, nil, &errs.ExternalModelError{Model: cfg.Model, Op: "new pipeline", Err: err}
	}

	dim := cfg.Dimension
	embedFn := func(texts []string) ([][]float32, error) {
		if len(texts) == 0 {
			return nil, nil
		}
		result, err := sentencePipeline.RunPipeline(texts)
		if err != nil {
			return nil, &errs.ExternalModelError{Model: cfg.Model, Op: "run pipeline", Err: err}
		}
		if len(result.Embeddings) != len(texts) {
			return nil, &errs.ExternalModelError{Model: cfg.Model, Op: "run pipeline", Err: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))}
		}
		for _, e := range result.Embeddings {
			if len(e) != dim {
				return nil, &errs.DimensionMismatch{Op: "embed", Expected: dim, Actual: len(e)}
			}
		}
		return result.Embeddings, nil
	}

	return embedFn, session.Destroy, nil
}

// Batches splits texts into mini-batches of at most size (spec.md §4.5
// step 3's "default 32 chunks" amortization).
func Batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = 32
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[start:end])
	}
	return out
}
