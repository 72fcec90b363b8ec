package load

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/salesetl/internal/core"
)

// SnapshotWriter writes cleaned batches as CSV files for inspection.
type SnapshotWriter struct {
	Dir string
}

// Write stores b as <Dir>/<name> and returns the file path. The file is
// written to a temporary name first and renamed into place.
func (w *SnapshotWriter) Write(name string, b core.Batch) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	path := filepath.Join(w.Dir, name)

	f, err := os.CreateTemp(w.Dir, ".snapshot-*")
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(f.Name()) // no-op after a successful rename

	if err := writeCSV(f, b); err != nil {
		f.Close()
		return "", fmt.Errorf("write snapshot %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", name, err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", name, err)
	}
	return path, nil
}

func writeCSV(f *os.File, b core.Batch) error {
	cw := csv.NewWriter(f)
	if err := cw.Write(b.Columns); err != nil {
		return err
	}
	row := make([]string, len(b.Columns))
	for _, r := range b.Rows {
		for i, col := range b.Columns {
			if s, ok := textValue(r[col]).(string); ok {
				row[i] = s
			} else {
				row[i] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
