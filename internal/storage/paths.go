package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
)

// Output tree layout:
//
//	index/<org>/<repo>/workflows/<sha1-of-workflow-path>.json
//	index/<org>/<repo>/repo.done
//	raw/<org>/<repo>/<workflow-path>/<content-hash>.yml
//	metrics/orgs/<org>.json
//	.cache/git/<org>/<repo>/

const doneMarker = "repo.done"

func OrgIndexDir(outDir, org string) string {
	return filepath.Join(outDir, "index", org)
}

func RepoIndexDir(outDir, org, repo string) string {
	return filepath.Join(OrgIndexDir(outDir, org), repo)
}

// WorkflowIndexPath hashes the workflow path so nested workflow directories
// flatten into one file name.
func WorkflowIndexPath(outDir, org, repo, workflowPath string) string {
	return filepath.Join(RepoIndexDir(outDir, org, repo), "workflows", sha1Hex([]byte(workflowPath))+".json")
}

func DoneMarkerPath(outDir, org, repo string) string {
	return filepath.Join(RepoIndexDir(outDir, org, repo), doneMarker)
}

// SnapshotPath keys snapshots by content hash, so consecutive identical
// revisions share a single blob.
func SnapshotPath(outDir, org, repo, workflowPath, contentHash string) string {
	return filepath.Join(outDir, "raw", org, repo, filepath.FromSlash(workflowPath), contentHash+".yml")
}

func SummaryPath(outDir, org string) string {
	return filepath.Join(outDir, "metrics", "orgs", org+".json")
}

func GitCacheDir(outDir, org, repo string) string {
	return filepath.Join(outDir, ".cache", "git", org, repo)
}

// HashContent fingerprints snapshot content.
func HashContent(content []byte) string {
	return sha1Hex(content)
}

func sha1Hex(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
