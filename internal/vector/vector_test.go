package vector

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"mismatched length", []float32{1}, []float32{1, 1}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Cosine(c.a, c.b)
			if math.Abs(got-c.want) > 1e-9 {
				t.Errorf("Cosine(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	v := []float32{0.1, -2.5, 3.75, 0}
	enc, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	dec, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(dec) != len(v) {
		t.Fatalf("len(dec) = %d, want %d", len(dec), len(v))
	}
	for i := range v {
		if dec[i] != v[i] {
			t.Errorf("dec[%d] = %v, want %v", i, dec[i], v[i])
		}
	}
}

func TestEncodeDecodeEmpty(t *testing.T) {
	enc, err := Encode(nil)
	if err != nil || enc != nil {
		t.Fatalf("Encode(nil) = %v, %v, want nil, nil", enc, err)
	}
	dec, err := Decode(nil)
	if err != nil || dec != nil {
		t.Fatalf("Decode(nil) = %v, %v, want nil, nil", dec, err)
	}
}
