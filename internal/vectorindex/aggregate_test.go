package vectorindex

import (
	"errors"
	"math"
	"testing"
)

func TestAggregate_SumsAcrossQueries(t *testing.T) {
	idx, err := NewFlatIndex(axisVectors(), 2)
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}

	// Both queries point the same way, so row 0 accumulates 1.0 twice.
	queries := [][]float32{{1, 0}, {1, 0}}
	hits, err := Aggregate(idx, queries, 1, 10)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 aggregated hit, got %d", len(hits))
	}
	if hits[0].Index != 0 {
		t.Errorf("expected row 0, got %d", hits[0].Index)
	}
	if math.Abs(float64(hits[0].Score)-2.0) > 1e-5 {
		t.Errorf("expected summed score ~2.0, got %f", hits[0].Score)
	}
}

func TestAggregate_AbsentRowsExcluded(t *testing.T) {
	idx, err := NewFlatIndex(axisVectors(), 2)
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}

	// k=1 per query surfaces only the exact match of each query.
	hits, err := Aggregate(idx, [][]float32{{1, 0}, {0, 1}}, 1, 10)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	for _, h := range hits {
		if h.Index == 2 || h.Index == 3 {
			t.Errorf("row %d should be absent, not zero-scored", h.Index)
		}
	}
}

func TestAggregate_TieBreakAndTruncation(t *testing.T) {
	idx, err := NewFlatIndex(axisVectors(), 2)
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}

	// The end-to-end retrieval scenario: queries equal to rows A=(1,0) and
	// B=(0,1), k=2 per query. A and B both total ~1.0 and tie; catalogue
	// order decides.
	hits, err := Aggregate(idx, [][]float32{{1, 0}, {0, 1}}, 2, 4)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(hits) < 2 {
		t.Fatalf("expected at least 2 hits, got %d", len(hits))
	}
	if hits[0].Index != 0 || hits[1].Index != 1 {
		t.Errorf("expected rows 0 then 1 after tie-break, got %d then %d", hits[0].Index, hits[1].Index)
	}
	if math.Abs(float64(hits[0].Score)-1.0) > 1e-5 || math.Abs(float64(hits[1].Score)-1.0) > 1e-5 {
		t.Errorf("expected both tied at ~1.0, got %f and %f", hits[0].Score, hits[1].Score)
	}

	truncated, err := Aggregate(idx, [][]float32{{1, 0}, {0, 1}}, 2, 1)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(truncated) != 1 {
		t.Errorf("expected truncation to 1 result, got %d", len(truncated))
	}
	if truncated[0].Index != 0 {
		t.Errorf("expected row 0 to survive truncation, got %d", truncated[0].Index)
	}
}

func TestAggregate_PropagatesSearchError(t *testing.T) {
	idx, err := NewFlatIndex(axisVectors(), 2)
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}

	_, err = Aggregate(idx, [][]float32{{1, 0, 0}}, 2, 4)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestAggregate_NoQueries(t *testing.T) {
	idx, err := NewFlatIndex(axisVectors(), 2)
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}

	hits, err := Aggregate(idx, nil, 2, 4)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits for no queries, got %d", len(hits))
	}
}
