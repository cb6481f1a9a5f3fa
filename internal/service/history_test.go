package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracker-tv/workflow-harvest/internal/storage"
	"github.com/tracker-tv/workflow-harvest/models"
)

type fakeHistoryClient struct {
	contents []*gh.RepositoryContent
	commits  map[string][]*gh.RepositoryCommit
	files    map[string]string // "<path>@<sha>" -> content

	fileCalls int
	err       error
}

func (f *fakeHistoryClient) ListWorkflowDir(_ context.Context, _, _ string) ([]*gh.RepositoryContent, error) {
	return f.contents, f.err
}

func (f *fakeHistoryClient) ListCommitsForPath(_ context.Context, _, _, path, _ string) ([]*gh.RepositoryCommit, error) {
	return f.commits[path], nil
}

func (f *fakeHistoryClient) GetFileAtCommit(_ context.Context, _, _, path, ref string) (string, bool, error) {
	f.fileCalls++
	content, ok := f.files[path+"@"+ref]
	return content, ok, nil
}

func restCommit(sha, message string, when time.Time) *gh.RepositoryCommit {
	return &gh.RepositoryCommit{
		SHA: gh.Ptr(sha),
		Commit: &gh.Commit{
			Message:   gh.Ptr(message),
			Committer: &gh.CommitAuthor{Date: &gh.Timestamp{Time: when}},
		},
	}
}

func TestRestCollectRepo_BuildsIndexAndSnapshots(t *testing.T) {
	store := storage.New(t.TempDir())
	ciPath := ".github/workflows/ci.yml"

	client := &fakeHistoryClient{
		contents: []*gh.RepositoryContent{
			{Type: gh.Ptr("file"), Path: gh.Ptr(ciPath)},
			{Type: gh.Ptr("dir"), Path: gh.Ptr(".github/workflows/shared")},
			{Type: gh.Ptr("file"), Path: gh.Ptr(".github/workflows/notes.txt")},
		},
		commits: map[string][]*gh.RepositoryCommit{
			// Newest first, as the commits API returns them.
			ciPath: {
				restCommit("bbb", "tighten triggers", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
				restCommit("aaa", "add ci", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
			},
		},
		files: map[string]string{
			ciPath + "@bbb": "name: ci\non: [pull_request]\n",
			ciPath + "@aaa": "name: ci\non: [push]\n",
		},
	}

	collector := NewRestCollector(client, store)
	res, err := collector.CollectRepo(context.Background(), "acme", models.Repository{Name: "app", DefaultBranch: "main"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Workflows, "only YAML files count as workflows")
	assert.Equal(t, 1, res.Indexed)
	assert.Equal(t, 2, res.Snapshots)

	data, err := os.ReadFile(storage.WorkflowIndexPath(store.OutDir(), "acme", "app", ciPath))
	require.NoError(t, err)
	var idx models.HistoryIndex
	require.NoError(t, json.Unmarshal(data, &idx))

	assert.Equal(t, 2, idx.NbCommits)
	assert.Equal(t, "bbb", idx.Commits[0].SHA)
	assert.Equal(t, "2026-02-01T00:00:00Z", idx.LastCommitDate)
	assert.Equal(t, "2026-01-01T00:00:00Z", idx.FirstCommitDate)

	for _, entry := range idx.Commits {
		_, err := os.Stat(storage.SnapshotPath(store.OutDir(), "acme", "app", ciPath, entry.ContentHash))
		assert.NoError(t, err, "snapshot blob for %s must exist", entry.SHA)
	}
}

func TestRestCollectRepo_SkipsAlreadyIndexed(t *testing.T) {
	store := storage.New(t.TempDir())
	ciPath := ".github/workflows/ci.yml"

	require.NoError(t, store.WriteIndex(&models.HistoryIndex{
		Org: "acme", Repo: "app", WorkflowPath: ciPath, NbCommits: 1,
	}))

	client := &fakeHistoryClient{
		contents: []*gh.RepositoryContent{
			{Type: gh.Ptr("file"), Path: gh.Ptr(ciPath)},
		},
	}

	collector := NewRestCollector(client, store)
	res, err := collector.CollectRepo(context.Background(), "acme", models.Repository{Name: "app", DefaultBranch: "main"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Workflows)
	assert.Equal(t, 0, res.Indexed)
	assert.Equal(t, 0, client.fileCalls, "indexed workflows must not be refetched")
}

func TestRestCollectRepo_SkipsRevisionsWithoutFile(t *testing.T) {
	store := storage.New(t.TempDir())
	ciPath := ".github/workflows/ci.yml"

	client := &fakeHistoryClient{
		contents: []*gh.RepositoryContent{
			{Type: gh.Ptr("file"), Path: gh.Ptr(ciPath)},
		},
		commits: map[string][]*gh.RepositoryCommit{
			ciPath: {
				restCommit("bbb", "re-add ci", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
				restCommit("aaa", "rename ci", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
			},
		},
		files: map[string]string{
			// The file is absent at "aaa" (renamed away), present at "bbb".
			ciPath + "@bbb": "name: ci\n",
		},
	}

	collector := NewRestCollector(client, store)
	res, err := collector.CollectRepo(context.Background(), "acme", models.Repository{Name: "app", DefaultBranch: "main"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Snapshots)

	data, err := os.ReadFile(storage.WorkflowIndexPath(store.OutDir(), "acme", "app", ciPath))
	require.NoError(t, err)
	var idx models.HistoryIndex
	require.NoError(t, json.Unmarshal(data, &idx))
	assert.Equal(t, 1, idx.NbCommits)
}

func TestRestCollectRepo_ListingErrorSurfaces(t *testing.T) {
	store := storage.New(t.TempDir())
	client := &fakeHistoryClient{err: errors.New("server unavailable")}

	collector := NewRestCollector(client, store)
	_, err := collector.CollectRepo(context.Background(), "acme", models.Repository{Name: "app", DefaultBranch: "main"})
	require.Error(t, err)
}
