// Package vector holds the fixed-length embedding encoding and the
// cosine similarity used by both the catalog's brute-force scan and the
// policy engine's cosine_similarity host call. Adapted from the
// teacher's root-level similarity.go/utils.go.
package vector

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/irl-llc/impressionism/internal/errs"
)

// Encode converts a float32 vector to bytes (length-prefixed,
// little-endian) for storage in the catalog's BLOB column.
func Encode(v []float32) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	buf := new(bytes.Buffer)
	if len(v) > math.MaxInt32 {
		return nil, fmt.Errorf("vector too large: %d elements", len(v))
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(len(v))); err != nil {
		return nil, fmt.Errorf("encode vector length: %w", err)
	}
	for _, f := range v {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("encode vector value: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Decode is the inverse of Encode. An empty/nil input decodes to a nil
// (stub) vector, per the Skill invariant that empty embeddings mark a
// stub entry.
func Decode(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 4 {
		return nil, errs.ErrInvalidVector
	}
	r := bytes.NewReader(data)
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("decode vector length: %w", err)
	}
	if n < 0 {
		return nil, errs.ErrInvalidVector
	}
	if n == 0 {
		return []float32{}, nil
	}
	if r.Len() < int(n)*4 {
		return nil, errs.ErrInvalidVector
	}
	out := make([]float32, n)
	for i := range out {
		if err := binary.Read(r, binary.LittleEndian, &out[i]); err != nil {
			return nil, fmt.Errorf("decode vector value %d: %w", i, err)
		}
	}
	return out, nil
}

// Cosine computes cosine similarity between a and b. Per contract,
// mismatched lengths or an all-zero vector yield 0 rather than an error.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Valid reports whether v is a well-formed embedding: no NaN/Inf
// components. An empty vector is valid (it represents a stub skill).
func Valid(v []float32) bool {
	for _, f := range v {
		x := float64(f)
		if x != x || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
