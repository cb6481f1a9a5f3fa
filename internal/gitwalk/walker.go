package gitwalk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/sync/errgroup"

	"github.com/tracker-tv/workflow-harvest/internal/storage"
	"github.com/tracker-tv/workflow-harvest/models"
)

const (
	workflowDir = ".github/workflows/"

	// workflowFanout bounds per-repository workflow workers, independent of
	// the outer per-repository concurrency.
	workflowFanout = 4
)

// Result summarises one repository's collection.
type Result struct {
	// Workflows is the number of workflow files present at the branch tip.
	Workflows int
	// Indexed is the number of history indexes written during this run
	// (already-indexed workflows are skipped).
	Indexed int
	// Snapshots is the number of revisions recorded during this run.
	Snapshots int
}

// Walker extracts workflow file histories from local git clones, without
// touching the rate-limited API.
type Walker struct {
	store *storage.Store
	token string
}

func New(store *storage.Store, token string) *Walker {
	return &Walker{store: store, token: token}
}

// Open returns the cached repository under dir, cloning it first when absent.
// Clones are bare, single-branch on the default branch, without tags: history
// access needs objects, not a working tree.
func (w *Walker) Open(ctx context.Context, cloneURL, branch, dir string) (*git.Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	opts := &git.CloneOptions{
		URL:           cloneURL,
		SingleBranch:  true,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		Tags:          git.NoTags,
	}
	if w.token != "" {
		// GitHub accepts any username with a token password.
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: w.token}
	}

	repo, err = git.PlainCloneContext(ctx, dir, true, opts)
	if err != nil {
		// Leave no partial clone behind; the cache must stay reusable
		// without destructive cleanup.
		os.RemoveAll(dir)
		return nil, fmt.Errorf("clone %s: %w", cloneURL, err)
	}
	return repo, nil
}

// Collect walks every workflow file present at the branch tip and persists
// snapshots plus a history index per workflow. A failing workflow does not
// abort its siblings.
func (w *Walker) Collect(ctx context.Context, repo *git.Repository, org, name string) (Result, error) {
	workflows, headHash, err := listWorkflowsAtHead(repo)
	if err != nil {
		return Result{}, err
	}

	result := Result{Workflows: len(workflows)}
	if len(workflows) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workflowFanout)

	for _, wfPath := range workflows {
		g.Go(func() error {
			snapshots, skipped, err := w.collectWorkflow(gctx, repo, headHash, org, name, wfPath)
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				slog.Warn("workflow history collection failed",
					"org", org, "repo", name, "workflow", wfPath, "error", err)
				return nil
			}

			mu.Lock()
			result.Snapshots += snapshots
			if !skipped {
				result.Indexed++
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

// collectWorkflow walks the commit history touching one workflow path, newest
// first. Returns skipped=true when the index already existed.
func (w *Walker) collectWorkflow(ctx context.Context, repo *git.Repository, headHash plumbing.Hash, org, name, wfPath string) (int, bool, error) {
	if w.store.HasIndex(org, name, wfPath) {
		return 0, true, nil // idempotent resume
	}

	iter, err := repo.Log(&git.LogOptions{From: headHash, FileName: &wfPath})
	if err != nil {
		return 0, false, fmt.Errorf("log %s: %w", wfPath, err)
	}
	defer iter.Close()

	var entries []models.CommitEntry
	err = iter.ForEach(func(c *object.Commit) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		content, ok, err := readFileAtCommit(c, wfPath)
		if err != nil {
			// A single unreadable revision does not abort the walk.
			slog.Warn("unreadable revision",
				"org", org, "repo", name, "workflow", wfPath,
				"sha", c.Hash.String(), "error", err)
			return nil
		}
		if !ok {
			return nil // file did not exist at this commit
		}

		hash := storage.HashContent(content)
		rel, err := w.store.WriteSnapshot(org, name, wfPath, hash, content)
		if err != nil {
			slog.Warn("snapshot write failed",
				"org", org, "repo", name, "workflow", wfPath,
				"sha", c.Hash.String(), "error", err)
			return nil
		}

		entries = append(entries, models.CommitEntry{
			SHA:             c.Hash.String(),
			Date:            c.Committer.When.UTC().Format(time.RFC3339),
			Message:         c.Message,
			ContentHash:     hash,
			SnapshotRelPath: rel,
		})
		return nil
	})
	if err != nil {
		return len(entries), false, err
	}

	idx := &models.HistoryIndex{
		Org:          org,
		Repo:         name,
		WorkflowPath: wfPath,
		NbCommits:    len(entries),
		Commits:      entries,
		CollectedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if len(entries) > 0 {
		idx.LastCommitDate = entries[0].Date
		idx.FirstCommitDate = entries[len(entries)-1].Date
	}
	if err := w.store.WriteIndex(idx); err != nil {
		return len(entries), false, fmt.Errorf("write index %s: %w", wfPath, err)
	}
	return len(entries), false, nil
}

// listWorkflowsAtHead enumerates YAML files under .github/workflows at the tip
// of the cloned branch.
func listWorkflowsAtHead(repo *git.Repository) ([]string, plumbing.Hash, error) {
	head, err := repo.Head()
	if err != nil {
		return nil, plumbing.ZeroHash, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, plumbing.ZeroHash, fmt.Errorf("read HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, plumbing.ZeroHash, fmt.Errorf("read HEAD tree: %w", err)
	}

	var workflows []string
	err = tree.Files().ForEach(func(f *object.File) error {
		if IsWorkflowPath(f.Name) {
			workflows = append(workflows, f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, plumbing.ZeroHash, fmt.Errorf("walk HEAD tree: %w", err)
	}

	sort.Strings(workflows)
	return workflows, head.Hash(), nil
}

// IsWorkflowPath reports whether path is a workflow definition file.
func IsWorkflowPath(path string) bool {
	return strings.HasPrefix(path, workflowDir) &&
		(strings.HasSuffix(path, ".yml") || strings.HasSuffix(path, ".yaml"))
}

func readFileAtCommit(c *object.Commit, path string) ([]byte, bool, error) {
	f, err := c.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	content, err := f.Contents()
	if err != nil {
		return nil, false, err
	}
	return []byte(content), true, nil
}
