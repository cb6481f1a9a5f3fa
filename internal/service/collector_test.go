package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracker-tv/workflow-harvest/internal/gitwalk"
	"github.com/tracker-tv/workflow-harvest/internal/storage"
	"github.com/tracker-tv/workflow-harvest/models"
)

// sourceRepo initialises a local repository with one committed workflow file,
// usable as a clone URL.
func sourceRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	path := filepath.Join(dir, ".github", "workflows", "ci.yml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("name: ci\non: [push]\n"), 0o644))

	_, err = wt.Add(".github/workflows/ci.yml")
	require.NoError(t, err)
	_, err = wt.Commit("add ci", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "dev",
			Email: "dev@example.com",
			When:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)

	return dir
}

func TestGitCollector_CollectsAndDiscardsClone(t *testing.T) {
	src := sourceRepo(t)
	store := storage.New(t.TempDir())
	cacheRoot := t.TempDir()

	collector := NewGitCollector(gitwalk.New(store, ""), 1, cacheRoot, false)

	res, err := collector.CollectRepo(context.Background(), "acme", models.Repository{
		Name:          "app",
		FullName:      "acme/app",
		CloneURL:      src,
		DefaultBranch: "master",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Workflows)
	assert.Equal(t, 1, res.Indexed)
	assert.Equal(t, 1, res.Snapshots)

	_, err = os.Stat(filepath.Join(cacheRoot, "acme", "app"))
	assert.True(t, os.IsNotExist(err), "clone must be removed after collection")

	_, err = os.Stat(storage.WorkflowIndexPath(store.OutDir(), "acme", "app", ".github/workflows/ci.yml"))
	assert.NoError(t, err)
}

func TestGitCollector_KeepCloneRetainsCache(t *testing.T) {
	src := sourceRepo(t)
	store := storage.New(t.TempDir())
	cacheRoot := t.TempDir()

	collector := NewGitCollector(gitwalk.New(store, ""), 1, cacheRoot, true)

	_, err := collector.CollectRepo(context.Background(), "acme", models.Repository{
		Name:          "app",
		CloneURL:      src,
		DefaultBranch: "master",
	})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(cacheRoot, "acme", "app"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestGitCollector_CancelledContext(t *testing.T) {
	store := storage.New(t.TempDir())
	collector := NewGitCollector(gitwalk.New(store, ""), 1, t.TempDir(), false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := collector.CollectRepo(ctx, "acme", models.Repository{
		Name:          "app",
		CloneURL:      "https://github.com/acme/app.git",
		DefaultBranch: "main",
	})
	require.Error(t, err)
}
