package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracker-tv/workflow-harvest/models"
)

func TestWriteIndex_AtomicAndComplete(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	idx := &models.HistoryIndex{
		Org:          "acme",
		Repo:         "widgets",
		WorkflowPath: ".github/workflows/ci.yml",
		NbCommits:    2,
		Commits: []models.CommitEntry{
			{SHA: "bbb", Date: "2024-02-01T00:00:00Z"},
			{SHA: "aaa", Date: "2024-01-01T00:00:00Z"},
		},
	}

	require.False(t, s.HasIndex("acme", "widgets", ".github/workflows/ci.yml"))
	require.NoError(t, s.WriteIndex(idx))
	assert.True(t, s.HasIndex("acme", "widgets", ".github/workflows/ci.yml"))

	// Round-trips and is self-consistent.
	data, err := os.ReadFile(WorkflowIndexPath(dir, "acme", "widgets", ".github/workflows/ci.yml"))
	require.NoError(t, err)

	var got models.HistoryIndex
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, got.NbCommits, len(got.Commits))
	assert.Equal(t, "bbb", got.Commits[0].SHA)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(WorkflowIndexPath(dir, "acme", "widgets", ".github/workflows/ci.yml")))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteSnapshot_WriteOnce(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	content := []byte("name: ci\non: push\n")
	hash := HashContent(content)

	rel, err := s.WriteSnapshot("acme", "widgets", ".github/workflows/ci.yml", hash, content)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("raw", "acme", "widgets", ".github/workflows/ci.yml", hash+".yml"), rel)

	path := filepath.Join(dir, rel)
	info1, err := os.Stat(path)
	require.NoError(t, err)

	// Second write is a no-op.
	rel2, err := s.WriteSnapshot("acme", "widgets", ".github/workflows/ci.yml", hash, []byte("different"))
	require.NoError(t, err)
	assert.Equal(t, rel, rel2)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime())
}

func TestSummary_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	missing, err := s.ReadSummary("acme")
	require.NoError(t, err)
	assert.Nil(t, missing)

	sum := &models.OrgSummary{
		Org:                "acme",
		ReposScanned:       10,
		ReposWithWorkflows: 4,
		Ratio:              0.4,
		Timeouts:           1,
		Failures:           2,
	}
	require.NoError(t, s.WriteSummary(sum))

	got, err := s.ReadSummary("acme")
	require.NoError(t, err)
	assert.Equal(t, sum, got)
}

func TestMarkRepoDone(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, s.MarkRepoDone("acme", "widgets"))

	_, err := os.Stat(DoneMarkerPath(dir, "acme", "widgets"))
	assert.NoError(t, err)
}
