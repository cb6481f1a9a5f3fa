// Package decompress restores gzipped snapshot blobs to plain YAML. Earlier
// collection runs compressed snapshots on disk; the index files reference the
// uncompressed names, so mixed trees need a one-shot cleanup pass.
package decompress

import (
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const gzSuffix = ".yml.gz"

// Stats reports one decompression pass.
type Stats struct {
	Inflated int
	Skipped  int
}

// Run walks the raw snapshot tree under outDir and inflates every *.yml.gz
// blob in place, removing the compressed original. Blobs whose uncompressed
// counterpart already exists are only deleted.
func Run(outDir string) (Stats, error) {
	var stats Stats

	rawDir := filepath.Join(outDir, "raw")
	err := filepath.WalkDir(rawDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), gzSuffix) {
			return nil
		}

		target := strings.TrimSuffix(path, ".gz")
		if _, err := os.Stat(target); err == nil {
			stats.Skipped++
			return os.Remove(path)
		}

		if err := inflate(path, target); err != nil {
			return fmt.Errorf("inflate %s: %w", path, err)
		}
		stats.Inflated++
		return os.Remove(path)
	})
	if err != nil {
		return stats, err
	}

	slog.Info("decompression pass done", "inflated", stats.Inflated, "skipped", stats.Skipped)
	return stats, nil
}

// inflate writes the decompressed content next to the source under a temp
// name and renames it into place, so interrupting the pass never leaves a
// truncated snapshot under its canonical name.
func inflate(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return err
	}
	defer zr.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, zr); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), dst)
}
