// Package vectorindex provides exact brute-force cosine similarity search
// over a fixed in-memory set of vectors.
//
// A FlatIndex stores an L2-normalized copy of every row, so similarity is a
// plain inner product in [-1, 1]. There is no approximation: every search
// compares the query against every stored vector. This is the right trade-off
// for catalogues in the thousands-to-low-millions range where index build
// happens once at startup and correctness matters more than sub-millisecond
// latency.
package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrEmptyIndex is returned when building an index from zero vectors.
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrDimensionMismatch is returned when a vector's length does not match
	// the declared dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrNotBuilt is returned when searching an index that was never built.
	ErrNotBuilt = errors.New("vector index not built")
)

// Hit is a single nearest-neighbor result: the row position of the stored
// vector and its cosine similarity to the query.
type Hit struct {
	Index int
	Score float32
}

// FlatIndex holds normalized vectors for exact k-NN search. It is immutable
// after construction and safe for concurrent use without locking.
type FlatIndex struct {
	dimension int
	vectors   [][]float32
}

// NewFlatIndex builds an index from row-major vectors. Every row must have
// exactly the declared dimension. Rows are copied and L2-normalized; all-zero
// rows are kept as-is and score 0 against every query.
func NewFlatIndex(vectors [][]float32, dimension int) (*FlatIndex, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyIndex
	}

	rows := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, fmt.Errorf("row %d has %d dimensions, want %d: %w", i, len(v), dimension, ErrDimensionMismatch)
		}
		rows[i] = normalizeL2(v)
	}

	return &FlatIndex{
		dimension: dimension,
		vectors:   rows,
	}, nil
}

// Len returns the number of stored vectors.
func (x *FlatIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.vectors)
}

// Dimension returns the declared vector dimension.
func (x *FlatIndex) Dimension() int {
	if x == nil {
		return 0
	}
	return x.dimension
}

// Search returns the k stored vectors most similar to the query, ordered by
// descending cosine similarity. Ties are broken by ascending row index so
// identical inputs always rank identically. If k exceeds the number of stored
// vectors, every row is returned.
func (x *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if x == nil || len(x.vectors) == 0 {
		return nil, ErrNotBuilt
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("query has %d dimensions, want %d: %w", len(query), x.dimension, ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, nil
	}

	q := normalizeL2(query)

	hits := make([]Hit, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = Hit{Index: i, Score: dot(q, v)}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Index < hits[j].Index
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// normalizeL2 returns a copy of v scaled to unit L2 norm. A zero vector is
// returned unchanged rather than producing NaNs.
func normalizeL2(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	norm := math.Sqrt(sum)
	if norm == 0 {
		copy(out, v)
		return out
	}

	inv := float32(1 / norm)
	for i := range v {
		out[i] = v[i] * inv
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}
