package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tracker-tv/workflow-harvest/internal/metrics"
	"github.com/tracker-tv/workflow-harvest/internal/storage"
)

var (
	metricsOrgsFile string
	metricsOutDir   string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Recompute organization summaries from the on-disk index tree",
	Long: `Rebuilds each organization's summary from what was actually persisted,
replacing counters drifted by interrupted or resumed runs.`,
	RunE: runMetrics,
}

func init() {
	metricsCmd.Flags().StringVar(&metricsOrgsFile, "orgs-file", "", "JSON array of organization logins (required)")
	metricsCmd.Flags().StringVar(&metricsOutDir, "out-dir", "data", "output tree root")
	_ = metricsCmd.MarkFlagRequired("orgs-file")
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(_ *cobra.Command, _ []string) error {
	orgs, err := readOrgsFile(metricsOrgsFile)
	if err != nil {
		return err
	}

	store := storage.New(metricsOutDir)
	for _, org := range orgs {
		sum, err := metrics.ScanIndexTree(store, org)
		if err != nil {
			return err
		}
		if err := store.WriteSummary(sum); err != nil {
			return err
		}
		slog.Info("summary recomputed",
			"org", org,
			"repos", sum.ReposScanned,
			"with_workflows", sum.ReposWithWorkflows,
			"workflows", sum.WorkflowsTotal,
			"snapshots", sum.SnapshotsTotal)
	}
	return nil
}
