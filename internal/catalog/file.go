package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
)

const (
	// CatalogueFileName is the catalogue metadata file inside the data dir.
	CatalogueFileName = "catalogue.json"

	// matrixFilePattern names per-model matrix files inside the data dir.
	matrixFilePattern = "embeddings_%s.npy"
)

// FileSource loads the catalogue and matrices from a local data directory:
// catalogue.json plus one embeddings_<model>.npy per embedding model, as
// written by the offline embedding pipeline.
type FileSource struct {
	dir string
}

// NewFileSource creates a file-backed source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// LoadItems reads and decodes catalogue.json.
func (s *FileSource) LoadItems(_ context.Context) ([]Item, error) {
	path := filepath.Join(s.dir, CatalogueFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var items []Item
	if err := json.NewDecoder(f).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return items, nil
}

// LoadMatrix reads embeddings_<modelKey>.npy as a float32 matrix. A missing
// file maps to ErrMatrixNotFound.
func (s *FileSource) LoadMatrix(_ context.Context, modelKey string) ([][]float32, error) {
	path := filepath.Join(s.dir, fmt.Sprintf(matrixFilePattern, modelKey))
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrMatrixNotFound)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading npy header of %s: %w", path, err)
	}

	shape := r.Header.Descr.Shape
	if len(shape) != 2 {
		return nil, fmt.Errorf("%s: expected a 2-D matrix, got shape %v", path, shape)
	}
	if r.Header.Descr.Fortran {
		return nil, fmt.Errorf("%s: Fortran-ordered arrays are not supported", path)
	}

	rows, cols := shape[0], shape[1]
	flat := make([]float32, rows*cols)
	if err := r.Read(&flat); err != nil {
		return nil, fmt.Errorf("reading npy data of %s: %w", path, err)
	}

	matrix := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		matrix[i] = flat[i*cols : (i+1)*cols]
	}
	return matrix, nil
}

// Ensure FileSource implements Source.
var _ Source = (*FileSource)(nil)
