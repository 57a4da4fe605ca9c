// Package catalog owns the recommendable item catalogue and one vector index
// per embedding model.
//
// The catalogue and every embedding matrix are produced by an offline
// pipeline and loaded exactly once at startup. Catalogue order is canonical:
// row i of every matrix embeds item i, and that position is the tie-break
// used wherever ranking needs to be deterministic.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ksonoda/recommender/internal/models"
	"github.com/ksonoda/recommender/internal/vectorindex"
)

var (
	// ErrNoIndexesAvailable is returned when no embedding model's matrix
	// could be loaded. Serving without any index is not useful.
	ErrNoIndexesAvailable = errors.New("no embedding indexes could be loaded")

	// ErrUnknownEmbeddingModel is returned when resolving a model key that
	// has no loaded index.
	ErrUnknownEmbeddingModel = errors.New("embedding model not available")

	// ErrNotInitialized is returned when the catalog is used before
	// Initialize has completed successfully.
	ErrNotInitialized = errors.New("catalog not initialized")
)

// RankedItem is a catalogue item paired with an aggregated vector similarity
// score. The score is a sum of cosine similarities; it is not comparable to
// reranker scores.
type RankedItem struct {
	Item
	Score float32
}

// State tracks catalog initialization explicitly so callers fail fast rather
// than operate on partial data.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Catalog holds the shared item catalogue plus one FlatIndex per embedding
// model. After a successful Initialize everything is immutable and safe to
// share across concurrent requests.
type Catalog struct {
	source Source
	models []models.EmbeddingModel
	logger *slog.Logger

	mu        sync.RWMutex
	state     State
	items     []Item
	idToIndex map[string]int
	indexes   map[string]*vectorindex.FlatIndex
}

// New creates an uninitialized catalog over the given source and embedding
// model registry.
func New(source Source, embeddingModels []models.EmbeddingModel, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		source: source,
		models: embeddingModels,
		logger: logger,
	}
}

// Initialize loads the catalogue and builds a vector index for every
// embedding model whose matrix is present. A model with no matrix file is
// skipped with a warning; if no model loads at all, initialization fails with
// ErrNoIndexesAvailable. Repeated calls after success are no-ops.
func (c *Catalog) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateReady {
		return nil
	}

	items, err := c.source.LoadItems(ctx)
	if err != nil {
		c.state = StateFailed
		return fmt.Errorf("loading catalogue: %w", err)
	}
	if len(items) == 0 {
		c.state = StateFailed
		return fmt.Errorf("loading catalogue: no items")
	}

	idToIndex := make(map[string]int, len(items))
	for i, item := range items {
		if item.ItemID == "" {
			c.state = StateFailed
			return fmt.Errorf("catalogue item %d has no item_id", i)
		}
		if prev, dup := idToIndex[item.ItemID]; dup {
			c.state = StateFailed
			return fmt.Errorf("duplicate item_id %q at positions %d and %d", item.ItemID, prev, i)
		}
		idToIndex[item.ItemID] = i
	}

	indexes := make(map[string]*vectorindex.FlatIndex)
	for _, m := range c.models {
		matrix, err := c.source.LoadMatrix(ctx, m.Key)
		if errors.Is(err, ErrMatrixNotFound) {
			c.logger.Warn("embeddings not found for model, skipping",
				"model", m.Key,
				"error", err,
			)
			continue
		}
		if err != nil {
			c.state = StateFailed
			return fmt.Errorf("loading embeddings for model %q: %w", m.Key, err)
		}

		if len(matrix) != len(items) {
			c.state = StateFailed
			return fmt.Errorf("embeddings for model %q have %d rows, catalogue has %d items", m.Key, len(matrix), len(items))
		}

		idx, err := vectorindex.NewFlatIndex(matrix, m.Dimension)
		if err != nil {
			c.state = StateFailed
			return fmt.Errorf("building index for model %q: %w", m.Key, err)
		}

		indexes[m.Key] = idx
		c.logger.Info("loaded vector index",
			"model", m.Key,
			"items", len(items),
			"dimension", m.Dimension,
		)
	}

	if len(indexes) == 0 {
		c.state = StateFailed
		return ErrNoIndexesAvailable
	}

	c.items = items
	c.idToIndex = idToIndex
	c.indexes = indexes
	c.state = StateReady

	c.logger.Info("catalog initialized",
		"items", len(items),
		"indexes", len(indexes),
	)
	return nil
}

// Resolve returns the vector index for an embedding model key.
func (c *Catalog) Resolve(key string) (*vectorindex.FlatIndex, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateReady {
		return nil, ErrNotInitialized
	}
	idx, ok := c.indexes[key]
	if !ok {
		return nil, fmt.Errorf("model %q: %w", key, ErrUnknownEmbeddingModel)
	}
	return idx, nil
}

// GetItem returns a catalogue item by id. A missing id is not an error.
func (c *Catalog) GetItem(itemID string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateReady {
		return Item{}, false
	}
	i, ok := c.idToIndex[itemID]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Materialize turns aggregated index hits into catalogue items, preserving
// hit order. Hits with out-of-range indexes are skipped.
func (c *Catalog) Materialize(hits []vectorindex.Hit) []RankedItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateReady {
		return nil
	}

	out := make([]RankedItem, 0, len(hits))
	for _, h := range hits {
		if h.Index < 0 || h.Index >= len(c.items) {
			continue
		}
		out = append(out, RankedItem{Item: c.items[h.Index], Score: h.Score})
	}
	return out
}

// Len returns the number of catalogue items, or 0 before initialization.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateReady {
		return 0
	}
	return len(c.items)
}

// Loaded reports whether the catalog is ready to serve.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateReady
}

// State returns the current initialization state.
func (c *Catalog) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LoadedModels returns the keys of every loaded index, sorted.
func (c *Catalog) LoadedModels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateReady {
		return nil
	}
	keys := make([]string, 0, len(c.indexes))
	for k := range c.indexes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
