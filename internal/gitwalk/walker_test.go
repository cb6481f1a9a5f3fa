package gitwalk

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracker-tv/workflow-harvest/internal/storage"
	"github.com/tracker-tv/workflow-harvest/models"
)

const ciPath = ".github/workflows/ci.yml"

// fixtureRepo builds a local repository with three revisions of ci.yml, a
// second workflow, a non-YAML file in the workflow dir and one unrelated
// commit.
func fixtureRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	commit(t, wt, dir, ciPath, "name: ci\non: push\n", "add ci", base)
	commit(t, wt, dir, "README.md", "hello\n", "add readme", base.Add(time.Hour))
	commit(t, wt, dir, ciPath, "name: ci\non: [push, pull_request]\n", "trigger on prs", base.Add(2*time.Hour))
	commit(t, wt, dir, ciPath, "name: ci\non: [push, pull_request]\n# comment\n", "comment", base.Add(3*time.Hour))
	commit(t, wt, dir, ".github/workflows/release.yaml", "name: release\n", "add release", base.Add(4*time.Hour))
	commit(t, wt, dir, ".github/workflows/notes.txt", "not a workflow\n", "add notes", base.Add(5*time.Hour))

	return dir
}

func commit(t *testing.T, wt *git.Worktree, dir, path, content, msg string, when time.Time) {
	t.Helper()

	full := filepath.Join(dir, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))

	_, err := wt.Add(path)
	require.NoError(t, err)

	sig := &object.Signature{Name: "Dev", Email: "dev@example.com", When: when}
	_, err = wt.Commit(msg, &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
}

func openFixture(t *testing.T, w *Walker, src string) *git.Repository {
	t.Helper()
	repo, err := w.Open(context.Background(), src, "master", filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	return repo
}

func readIndex(t *testing.T, outDir, org, repo, wfPath string) models.HistoryIndex {
	t.Helper()
	data, err := os.ReadFile(storage.WorkflowIndexPath(outDir, org, repo, wfPath))
	require.NoError(t, err)
	var idx models.HistoryIndex
	require.NoError(t, json.Unmarshal(data, &idx))
	return idx
}

func TestCollect_FullHistoryNewestFirst(t *testing.T) {
	src := fixtureRepo(t)
	outDir := t.TempDir()
	w := New(storage.New(outDir), "")

	repo := openFixture(t, w, src)
	res, err := w.Collect(context.Background(), repo, "acme", "widgets")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Workflows) // notes.txt excluded
	assert.Equal(t, 2, res.Indexed)
	assert.Equal(t, 4, res.Snapshots) // 3 ci revisions + 1 release revision

	idx := readIndex(t, outDir, "acme", "widgets", ciPath)
	require.Equal(t, 3, idx.NbCommits)
	require.Len(t, idx.Commits, 3)

	// Newest first, and index dates match the walk order.
	assert.Equal(t, "comment", idx.Commits[0].Message)
	assert.Equal(t, "trigger on prs", idx.Commits[1].Message)
	assert.Equal(t, "add ci", idx.Commits[2].Message)
	assert.Equal(t, idx.Commits[0].Date, idx.LastCommitDate)
	assert.Equal(t, idx.Commits[2].Date, idx.FirstCommitDate)
	assert.True(t, idx.Commits[0].Date > idx.Commits[2].Date)
}

func TestCollect_SnapshotsAreContentAddressed(t *testing.T) {
	src := fixtureRepo(t)
	outDir := t.TempDir()
	w := New(storage.New(outDir), "")

	repo := openFixture(t, w, src)
	_, err := w.Collect(context.Background(), repo, "acme", "widgets")
	require.NoError(t, err)

	idx := readIndex(t, outDir, "acme", "widgets", ciPath)

	// Three distinct contents, three blobs; each entry's snapshot exists and
	// is named by its content hash.
	seen := map[string]bool{}
	for _, entry := range idx.Commits {
		seen[entry.ContentHash] = true
		data, err := os.ReadFile(filepath.Join(outDir, entry.SnapshotRelPath))
		require.NoError(t, err)
		assert.Equal(t, entry.ContentHash, storage.HashContent(data))
	}
	assert.Len(t, seen, 3)

	snapDir := filepath.Join(outDir, "raw", "acme", "widgets", filepath.FromSlash(ciPath))
	entries, err := os.ReadDir(snapDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestCollect_RevertedRevisionSharesBlob(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	commit(t, wt, dir, ciPath, "name: ci\n", "add ci", base)
	commit(t, wt, dir, ciPath, "name: ci\nbroken: true\n", "break it", base.Add(time.Hour))
	commit(t, wt, dir, ciPath, "name: ci\n", "revert", base.Add(2*time.Hour))

	outDir := t.TempDir()
	w := New(storage.New(outDir), "")

	cloned := openFixture(t, w, dir)
	res, err := w.Collect(context.Background(), cloned, "acme", "widgets")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Snapshots)

	idx := readIndex(t, outDir, "acme", "widgets", ciPath)
	require.Len(t, idx.Commits, 3)

	// First and third revisions carry identical content and reference one
	// blob.
	assert.Equal(t, idx.Commits[0].ContentHash, idx.Commits[2].ContentHash)
	assert.Equal(t, idx.Commits[0].SnapshotRelPath, idx.Commits[2].SnapshotRelPath)

	snapDir := filepath.Join(outDir, "raw", "acme", "widgets", filepath.FromSlash(ciPath))
	entries, err := os.ReadDir(snapDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCollect_Idempotent(t *testing.T) {
	src := fixtureRepo(t)
	outDir := t.TempDir()
	w := New(storage.New(outDir), "")

	repo := openFixture(t, w, src)
	_, err := w.Collect(context.Background(), repo, "acme", "widgets")
	require.NoError(t, err)

	res, err := w.Collect(context.Background(), repo, "acme", "widgets")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Workflows)
	assert.Equal(t, 0, res.Indexed)
	assert.Equal(t, 0, res.Snapshots)
}

func TestCollect_ResumeRecollectsOnlyMissingIndex(t *testing.T) {
	src := fixtureRepo(t)
	outDir := t.TempDir()
	w := New(storage.New(outDir), "")

	repo := openFixture(t, w, src)
	_, err := w.Collect(context.Background(), repo, "acme", "widgets")
	require.NoError(t, err)

	releaseIndex := storage.WorkflowIndexPath(outDir, "acme", "widgets", ".github/workflows/release.yaml")
	ciIndex := storage.WorkflowIndexPath(outDir, "acme", "widgets", ciPath)
	ciBefore, err := os.Stat(ciIndex)
	require.NoError(t, err)

	require.NoError(t, os.Remove(releaseIndex))

	res, err := w.Collect(context.Background(), repo, "acme", "widgets")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Indexed)
	assert.Equal(t, 1, res.Snapshots)

	ciAfter, err := os.Stat(ciIndex)
	require.NoError(t, err)
	assert.Equal(t, ciBefore.ModTime(), ciAfter.ModTime())
}

func TestOpen_ReusesCachedClone(t *testing.T) {
	src := fixtureRepo(t)
	w := New(storage.New(t.TempDir()), "")

	cache := filepath.Join(t.TempDir(), "cache")

	_, err := w.Open(context.Background(), src, "master", cache)
	require.NoError(t, err)

	// The source going away must not matter once the clone is cached.
	require.NoError(t, os.RemoveAll(src))

	repo, err := w.Open(context.Background(), src, "master", cache)
	require.NoError(t, err)

	workflows, _, err := listWorkflowsAtHead(repo)
	require.NoError(t, err)
	assert.Len(t, workflows, 2)
}

func TestIsWorkflowPath(t *testing.T) {
	assert.True(t, IsWorkflowPath(".github/workflows/ci.yml"))
	assert.True(t, IsWorkflowPath(".github/workflows/sub/deploy.yaml"))
	assert.False(t, IsWorkflowPath(".github/workflows/readme.md"))
	assert.False(t, IsWorkflowPath(".circleci/config.yml"))
	assert.False(t, IsWorkflowPath("ci.yml"))
}
