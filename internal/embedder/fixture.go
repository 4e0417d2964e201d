package embedder

import (
	"context"
	"math"
	"strings"
)

// Fixture is the deterministic embedder used by the test suite and by
// §8's end-to-end scenarios: vec[i] = count of keywords[i] in text,
// L2-normalized. It never fails, so it also serves as a safe default
// when no production embedding model is configured.
type Fixture struct {
	Keywords []string
}

// DefaultFixtureKeywords matches the dimension-4 fixture named in §8.
var DefaultFixtureKeywords = []string{"database", "test", "network", "graphics"}

// NewFixture returns a Fixture over keywords; an empty list falls back
// to DefaultFixtureKeywords.
func NewFixture(keywords []string) *Fixture {
	if len(keywords) == 0 {
		keywords = DefaultFixtureKeywords
	}
	return &Fixture{Keywords: keywords}
}

func (f *Fixture) Dim() int { return len(f.Keywords) }

func (f *Fixture) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

// Vector embeds a single text synchronously, a convenience used by tests
// and by callers that don't need the batched Embed signature.
func (f *Fixture) Vector(text string) []float32 {
	return f.vector(text)
}

func (f *Fixture) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(f.Keywords))
	var normSq float64
	for i, kw := range f.Keywords {
		count := float32(strings.Count(lower, strings.ToLower(kw)))
		v[i] = count
		normSq += float64(count) * float64(count)
	}
	if normSq == 0 {
		return v
	}
	norm := float32(math.Sqrt(normSq))
	for i := range v {
		v[i] /= norm
	}
	return v
}
