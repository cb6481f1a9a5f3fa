package models

// CommitEntry is one retained revision of a workflow file, newest first in
// HistoryIndex.Commits.
type CommitEntry struct {
	SHA             string `json:"sha"`
	Date            string `json:"date"`
	Message         string `json:"message"`
	ContentHash     string `json:"content_hash"`
	SnapshotRelPath string `json:"raw_snapshot_relpath"`
}

// HistoryIndex is the persisted record for one workflow file. Its presence on
// disk marks the workflow as fully collected.
type HistoryIndex struct {
	Org             string        `json:"org"`
	Repo            string        `json:"repo"`
	WorkflowPath    string        `json:"workflow_path"`
	NbCommits       int           `json:"nb_commits"`
	FirstCommitDate string        `json:"first_commit_date,omitempty"`
	LastCommitDate  string        `json:"last_commit_date,omitempty"`
	Commits         []CommitEntry `json:"commits"`
	CollectedAt     string        `json:"collected_at"`
}
