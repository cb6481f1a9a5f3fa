package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tracker-tv/workflow-harvest/models"
)

// Store owns the persisted output tree under outDir.
type Store struct {
	outDir string
}

func New(outDir string) *Store {
	return &Store{outDir: outDir}
}

func (s *Store) OutDir() string {
	return s.outDir
}

// HasIndex reports whether the workflow was already fully collected; the index
// file's existence is the idempotency marker.
func (s *Store) HasIndex(org, repo, workflowPath string) bool {
	_, err := os.Stat(WorkflowIndexPath(s.outDir, org, repo, workflowPath))
	return err == nil
}

// WriteIndex persists a history index atomically, so the file is either absent
// or complete under its canonical name.
func (s *Store) WriteIndex(idx *models.HistoryIndex) error {
	path := WorkflowIndexPath(s.outDir, idx.Org, idx.Repo, idx.WorkflowPath)
	return s.writeJSONAtomic(path, idx)
}

// WriteSnapshot stores content under its fingerprint, write-once. Returns the
// path relative to the output root, as recorded in index entries.
func (s *Store) WriteSnapshot(org, repo, workflowPath, contentHash string, content []byte) (string, error) {
	path := SnapshotPath(s.outDir, org, repo, workflowPath, contentHash)
	rel, err := filepath.Rel(s.outDir, path)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err == nil {
		return rel, nil // immutable once written
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir snapshot dir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return rel, nil
}

// MarkRepoDone records that every workflow of the repository was collected.
func (s *Store) MarkRepoDone(org, repo string) error {
	path := DoneMarkerPath(s.outDir, org, repo)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644)
}

// WriteSummary overwrites the organization's run summary atomically.
func (s *Store) WriteSummary(sum *models.OrgSummary) error {
	return s.writeJSONAtomic(SummaryPath(s.outDir, sum.Org), sum)
}

// ReadSummary returns the persisted summary, or nil when none exists.
func (s *Store) ReadSummary(org string) (*models.OrgSummary, error) {
	data, err := os.ReadFile(SummaryPath(s.outDir, org))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var sum models.OrgSummary
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, fmt.Errorf("parse summary for %s: %w", org, err)
	}
	return &sum, nil
}

// writeJSONAtomic writes via a temp file in the target directory and renames
// it into place.
func (s *Store) writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", path, err)
	}

	return os.Rename(tmp.Name(), path)
}
