package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/tracker-tv/workflow-harvest/internal/gitwalk"
	"github.com/tracker-tv/workflow-harvest/internal/storage"
	"github.com/tracker-tv/workflow-harvest/models"
)

// HistoryClient is the slice of the GitHub client the REST collector needs.
type HistoryClient interface {
	ListWorkflowDir(ctx context.Context, org, repo string) ([]*gh.RepositoryContent, error)
	ListCommitsForPath(ctx context.Context, org, repo, path, branch string) ([]*gh.RepositoryCommit, error)
	GetFileAtCommit(ctx context.Context, org, repo, path, ref string) (string, bool, error)
}

// RestCollector collects workflow histories through the REST API alone. It is
// bottlenecked by API quota and fetches every revision over the network, so
// the git-based collector is preferred; this path needs no local clones.
type RestCollector struct {
	gh    HistoryClient
	store *storage.Store
}

func NewRestCollector(ghClient HistoryClient, store *storage.Store) *RestCollector {
	return &RestCollector{gh: ghClient, store: store}
}

func (c *RestCollector) CollectRepo(ctx context.Context, org string, repo models.Repository) (gitwalk.Result, error) {
	contents, err := c.gh.ListWorkflowDir(ctx, org, repo.Name)
	if err != nil {
		return gitwalk.Result{}, err
	}

	var workflows []string
	for _, entry := range contents {
		if entry.GetType() == "file" && gitwalk.IsWorkflowPath(entry.GetPath()) {
			workflows = append(workflows, entry.GetPath())
		}
	}

	result := gitwalk.Result{Workflows: len(workflows)}

	for _, wfPath := range workflows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if c.store.HasIndex(org, repo.Name, wfPath) {
			continue
		}

		snapshots, err := c.collectWorkflowHistory(ctx, org, repo, wfPath)
		if err != nil {
			slog.Warn("workflow history collection failed",
				"org", org, "repo", repo.Name, "workflow", wfPath, "error", err)
			continue
		}
		result.Indexed++
		result.Snapshots += snapshots
	}

	return result, nil
}

func (c *RestCollector) collectWorkflowHistory(ctx context.Context, org string, repo models.Repository, wfPath string) (int, error) {
	commits, err := c.gh.ListCommitsForPath(ctx, org, repo.Name, wfPath, repo.DefaultBranch)
	if err != nil {
		return 0, err
	}

	var entries []models.CommitEntry
	for _, commit := range commits {
		sha := commit.GetSHA()

		content, ok, err := c.gh.GetFileAtCommit(ctx, org, repo.Name, wfPath, sha)
		if err != nil {
			slog.Warn("unreadable revision",
				"org", org, "repo", repo.Name, "workflow", wfPath, "sha", sha, "error", err)
			continue
		}
		if !ok {
			continue // file did not exist at this commit
		}

		hash := storage.HashContent([]byte(content))
		rel, err := c.store.WriteSnapshot(org, repo.Name, wfPath, hash, []byte(content))
		if err != nil {
			slog.Warn("snapshot write failed",
				"org", org, "repo", repo.Name, "workflow", wfPath, "sha", sha, "error", err)
			continue
		}

		entries = append(entries, models.CommitEntry{
			SHA:             sha,
			Date:            commit.GetCommit().GetCommitter().GetDate().UTC().Format(time.RFC3339),
			Message:         commit.GetCommit().GetMessage(),
			ContentHash:     hash,
			SnapshotRelPath: rel,
		})
	}

	idx := &models.HistoryIndex{
		Org:          org,
		Repo:         repo.Name,
		WorkflowPath: wfPath,
		NbCommits:    len(entries),
		Commits:      entries,
		CollectedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if len(entries) > 0 {
		idx.LastCommitDate = entries[0].Date
		idx.FirstCommitDate = entries[len(entries)-1].Date
	}
	if err := c.store.WriteIndex(idx); err != nil {
		return len(entries), fmt.Errorf("write index: %w", err)
	}
	return len(entries), nil
}
