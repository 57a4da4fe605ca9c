package vectorindex

import (
	"errors"
	"math"
	"testing"
)

// axisVectors are 2D unit vectors along the four axis directions.
func axisVectors() [][]float32 {
	return [][]float32{
		{1, 0},  // 0
		{0, 1},  // 1
		{-1, 0}, // 2
		{0, -1}, // 3
	}
}

func TestNewFlatIndex_Empty(t *testing.T) {
	_, err := NewFlatIndex(nil, 2)
	if !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestNewFlatIndex_DimensionMismatch(t *testing.T) {
	_, err := NewFlatIndex([][]float32{{1, 0}, {1, 0, 0}}, 2)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestFlatIndex_NormalizesRows(t *testing.T) {
	// Row with magnitude 5 should still score 1.0 against itself.
	idx, err := NewFlatIndex([][]float32{{3, 4}, {0, 1}}, 2)
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}

	hits, err := idx.Search([]float32{3, 4}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits[0].Index != 0 {
		t.Errorf("expected row 0 first, got %d", hits[0].Index)
	}
	if math.Abs(float64(hits[0].Score)-1.0) > 1e-5 {
		t.Errorf("expected self-similarity ~1.0, got %f", hits[0].Score)
	}
}

func TestFlatIndex_SearchNotBuilt(t *testing.T) {
	var idx *FlatIndex
	if _, err := idx.Search([]float32{1, 0}, 1); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("expected ErrNotBuilt, got %v", err)
	}
}

func TestFlatIndex_SearchQueryDimensionMismatch(t *testing.T) {
	idx, err := NewFlatIndex(axisVectors(), 2)
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}
	if _, err := idx.Search([]float32{1, 0, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestFlatIndex_KExceedsSize(t *testing.T) {
	idx, err := NewFlatIndex(axisVectors(), 2)
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}

	hits, err := idx.Search([]float32{1, 0}, 100)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 4 {
		t.Fatalf("expected 4 hits, got %d", len(hits))
	}

	seen := make(map[int]bool)
	for _, h := range hits {
		if seen[h.Index] {
			t.Errorf("duplicate index %d in results", h.Index)
		}
		seen[h.Index] = true
	}
}

func TestFlatIndex_TieBreakByIndex(t *testing.T) {
	// Rows 1 and 2 are identical; the lower index must rank first.
	idx, err := NewFlatIndex([][]float32{{0, 1}, {1, 0}, {1, 0}}, 2)
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}

	hits, err := idx.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits[0].Index != 1 || hits[1].Index != 2 {
		t.Errorf("expected tied rows ordered 1, 2; got %d, %d", hits[0].Index, hits[1].Index)
	}
}

func TestFlatIndex_ZeroQueryScoresZero(t *testing.T) {
	idx, err := NewFlatIndex(axisVectors(), 2)
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}

	hits, err := idx.Search([]float32{0, 0}, 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range hits {
		if h.Score != 0 {
			t.Errorf("row %d: expected score 0 for zero query, got %f", h.Index, h.Score)
		}
	}
	// With all scores tied at zero, ordering falls back to row index.
	for i, h := range hits {
		if h.Index != i {
			t.Errorf("position %d: expected row %d, got %d", i, i, h.Index)
		}
	}
}

func TestFlatIndex_Deterministic(t *testing.T) {
	idx, err := NewFlatIndex(axisVectors(), 2)
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}

	query := []float32{0.7, 0.7}
	first, err := idx.Search(query, 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for run := 0; run < 10; run++ {
		hits, err := idx.Search(query, 4)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		for i := range hits {
			if hits[i] != first[i] {
				t.Fatalf("run %d position %d: got %+v, want %+v", run, i, hits[i], first[i])
			}
		}
	}
}
