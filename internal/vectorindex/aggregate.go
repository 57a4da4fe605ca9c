package vectorindex

import (
	"fmt"
	"sort"
)

// Aggregate runs every query vector against the index and merges the
// per-query top-k hit lists by summing scores per row index. Summing rewards
// rows that sit close to several distinct queries, which is the desired
// signal when the queries represent different facets of one user context.
//
// A row that never appears in any query's top-k is absent from the result,
// not scored zero. The merged list is ordered by total score descending with
// ties broken by ascending row index, and truncated to maxResults.
func Aggregate(idx *FlatIndex, queries [][]float32, kPerQuery, maxResults int) ([]Hit, error) {
	totals := make(map[int]float32)

	for i, q := range queries {
		hits, err := idx.Search(q, kPerQuery)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		for _, h := range hits {
			totals[h.Index] += h.Score
		}
	}

	merged := make([]Hit, 0, len(totals))
	for row, score := range totals {
		merged = append(merged, Hit{Index: row, Score: score})
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Index < merged[j].Index
	})

	if maxResults >= 0 && len(merged) > maxResults {
		merged = merged[:maxResults]
	}
	return merged, nil
}
