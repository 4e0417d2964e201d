// Package embedder defines the deterministic text→vector contract (§4.3)
// and a bounded-worker-pool batching helper, adapted from the teacher's
// pkg/sqvect Embedder/BaseEmbedder.
package embedder

import (
	"context"
	"fmt"

	"github.com/irl-llc/impressionism/internal/errs"
)

// Embedder converts text into fixed-length vectors. Implementations must
// be stable within one process run: identical input must yield identical
// output so the Indexer can treat an unchanged content hash as implying
// an unchanged embedding.
type Embedder interface {
	// Embed converts a batch of texts into vectors of the same length.
	// Callers must not assume per-text independent latency.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dim returns the fixed output dimension D.
	Dim() int
}

// EmbedFailed wraps a failure from an Embedder with the domain error kind.
func EmbedFailed(reason error) error {
	return errs.Wrap(errs.KindEmbedFailed, "embed", reason)
}

// defaultWorkers bounds the concurrency of PooledBatch's pool when the
// caller passes a non-positive worker count.
const defaultWorkers = 4

// PooledBatch runs embedOne across texts using a bounded worker pool,
// preserving input order in the result. It aborts (returning the first
// error) rather than committing any partial batch, per the Indexer's
// "embedder failure fails the whole pass" contract.
func PooledBatch(ctx context.Context, texts []string, workers int, embedOne func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if len(texts) == 0 {
		return nil, nil
	}

	type job struct {
		idx  int
		text string
	}
	type result struct {
		idx int
		vec []float32
		err error
	}

	jobs := make(chan job, len(texts))
	results := make(chan result, len(texts))

	for w := 0; w < workers; w++ {
		go func() {
			for j := range jobs {
				vec, err := embedOne(ctx, j.text)
				results <- result{idx: j.idx, vec: vec, err: err}
			}
		}()
	}
	for i, t := range texts {
		jobs <- job{idx: i, text: t}
	}
	close(jobs)

	out := make([][]float32, len(texts))
	var firstErr error
	for range texts {
		r := <-results
		if r.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("embed text %d: %w", r.idx, r.err)
			continue
		}
		out[r.idx] = r.vec
	}
	if firstErr != nil {
		return nil, EmbedFailed(firstErr)
	}
	return out, nil
}
