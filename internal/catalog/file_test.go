package catalog

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeNpy writes a minimal NumPy v1.0 .npy file holding a row-major float32
// matrix, the same layout np.save produces.
func writeNpy(t *testing.T, path string, matrix [][]float32) {
	t.Helper()

	rows := len(matrix)
	cols := 0
	if rows > 0 {
		cols = len(matrix[0])
	}

	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", rows, cols)
	// Pad so magic+version+length+header is a multiple of 16, ending in \n.
	padded := len(header) + 11
	if rem := padded % 16; rem != 0 {
		header += string(bytes.Repeat([]byte{' '}, 16-rem))
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(header))); err != nil {
		t.Fatalf("writing header length: %v", err)
	}
	buf.WriteString(header)
	for _, row := range matrix {
		for _, v := range row {
			if err := binary.Write(&buf, binary.LittleEndian, math.Float32bits(v)); err != nil {
				t.Fatalf("writing data: %v", err)
			}
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestFileSource_LoadItems(t *testing.T) {
	dir := t.TempDir()
	catalogue := `[
		{"item_id": 101, "title": "Electrician", "text": "Installs wiring", "sector": "trades"},
		{"item_id": "nurse-01", "title": "Nurse", "text": "Provides care"}
	]`
	if err := os.WriteFile(filepath.Join(dir, CatalogueFileName), []byte(catalogue), 0o644); err != nil {
		t.Fatalf("writing catalogue: %v", err)
	}

	items, err := NewFileSource(dir).LoadItems(context.Background())
	if err != nil {
		t.Fatalf("LoadItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	// Numeric ids are coerced to strings.
	if items[0].ItemID != "101" {
		t.Errorf("expected item_id \"101\", got %q", items[0].ItemID)
	}
	if items[0].Metadata["sector"] != "trades" {
		t.Errorf("expected sector metadata, got %v", items[0].Metadata)
	}
	if items[1].ItemID != "nurse-01" || items[1].Title != "Nurse" {
		t.Errorf("unexpected second item: %+v", items[1])
	}
}

func TestFileSource_LoadItemsMissingFile(t *testing.T) {
	_, err := NewFileSource(t.TempDir()).LoadItems(context.Background())
	if err == nil {
		t.Fatal("expected error for missing catalogue file")
	}
}

func TestFileSource_LoadMatrix(t *testing.T) {
	dir := t.TempDir()
	want := [][]float32{{1, 0}, {0, 1}, {-1, 0}}
	writeNpy(t, filepath.Join(dir, "embeddings_alpha.npy"), want)

	got, err := NewFileSource(dir).LoadMatrix(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("LoadMatrix: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Errorf("matrix[%d][%d]: got %f, want %f", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestFileSource_LoadMatrixMissing(t *testing.T) {
	_, err := NewFileSource(t.TempDir()).LoadMatrix(context.Background(), "alpha")
	if !errors.Is(err, ErrMatrixNotFound) {
		t.Errorf("expected ErrMatrixNotFound, got %v", err)
	}
}

func TestItem_MarshalRoundTrip(t *testing.T) {
	item := Item{
		ItemID:   "a",
		Title:    "Title",
		Text:     "Text",
		Metadata: map[string]string{"sector": "health"},
	}

	data, err := item.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	var back Item
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if back.ItemID != item.ItemID || back.Title != item.Title || back.Text != item.Text {
		t.Errorf("round trip changed item: %+v", back)
	}
	if back.Metadata["sector"] != "health" {
		t.Errorf("round trip lost metadata: %v", back.Metadata)
	}
}
