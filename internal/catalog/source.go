package catalog

import (
	"context"
	"errors"
)

// ErrMatrixNotFound is returned by a Source when an embedding model has no
// matrix available. The catalog treats this as "skip the model", not as a
// fatal load error.
var ErrMatrixNotFound = errors.New("embeddings matrix not found")

// Source loads the catalogue and per-model embedding matrices produced by
// the offline pipeline.
type Source interface {
	// LoadItems returns every catalogue item in canonical order.
	LoadItems(ctx context.Context) ([]Item, error)

	// LoadMatrix returns the row-major embedding matrix for a model key,
	// one row per catalogue item in catalogue order. It returns an error
	// wrapping ErrMatrixNotFound when no matrix exists for the key.
	LoadMatrix(ctx context.Context, modelKey string) ([][]float32, error)
}
