package models

// OrgSummary is the per-organization run summary written to
// metrics/orgs/<org>.json.
type OrgSummary struct {
	Org                string  `json:"org"`
	ReposScanned       int     `json:"repos_scanned"`
	ReposWithWorkflows int     `json:"repos_with_workflows"`
	Ratio              float64 `json:"ratio"`
	WorkflowsTotal     int     `json:"workflows_total"`
	SnapshotsTotal     int     `json:"snapshots_total"`
	Timeouts           int     `json:"timeouts"`
	Failures           int     `json:"failures"`
	UpdatedAt          string  `json:"updated_at"`
}
