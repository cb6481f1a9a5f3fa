package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/semaphore"

	"github.com/tracker-tv/workflow-harvest/internal/gitwalk"
	"github.com/tracker-tv/workflow-harvest/models"
)

// Collector gathers the full workflow history of one repository.
type Collector interface {
	CollectRepo(ctx context.Context, org string, repo models.Repository) (gitwalk.Result, error)
}

// GitCollector runs the git-based history walker behind a clone-permit pool.
// Clones are bandwidth-bound, so far fewer run at once than history walks.
type GitCollector struct {
	walker       *gitwalk.Walker
	clonePermits *semaphore.Weighted
	cacheRoot    string
	keepClone    bool
}

func NewGitCollector(walker *gitwalk.Walker, maxClones int, cacheRoot string, keepClone bool) *GitCollector {
	return &GitCollector{
		walker:       walker,
		clonePermits: semaphore.NewWeighted(int64(maxClones)),
		cacheRoot:    cacheRoot,
		keepClone:    keepClone,
	}
}

func (c *GitCollector) CollectRepo(ctx context.Context, org string, repo models.Repository) (gitwalk.Result, error) {
	dir := filepath.Join(c.cacheRoot, org, repo.Name)

	if err := c.clonePermits.Acquire(ctx, 1); err != nil {
		return gitwalk.Result{}, err
	}
	local, err := c.walker.Open(ctx, repo.CloneURL, repo.DefaultBranch, dir)
	c.clonePermits.Release(1)
	if err != nil {
		return gitwalk.Result{}, fmt.Errorf("acquire local copy of %s: %w", repo.FullName, err)
	}

	res, err := c.walker.Collect(ctx, local, org, repo.Name)

	if !c.keepClone {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			slog.Warn("failed to remove clone", "org", org, "repo", repo.Name, "dir", dir, "error", rmErr)
		}
	}

	return res, err
}
