package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracker-tv/workflow-harvest/internal/config"
	"github.com/tracker-tv/workflow-harvest/internal/github"
	"github.com/tracker-tv/workflow-harvest/internal/orchestrator"
	"github.com/tracker-tv/workflow-harvest/internal/service"
	"github.com/tracker-tv/workflow-harvest/internal/storage"
)

var (
	crawlOrgsFile string
	crawlLogEvery int
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Collect workflow histories through the REST API",
	Long: `Collects every workflow file's commit history for each organization
in the orgs file, fetching revisions through the GitHub REST API. Slower and
quota-bound; prefer crawl-git for large organizations.`,
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().StringVar(&crawlOrgsFile, "orgs-file", "", "JSON array of organization logins (required)")
	crawlCmd.Flags().IntVar(&crawlLogEvery, "log-every", 10, "log progress every N completed repositories")
	_ = crawlCmd.MarkFlagRequired("orgs-file")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	orgs, err := readOrgsFile(crawlOrgsFile)
	if err != nil {
		return err
	}

	ghClient, err := github.New(cfg)
	if err != nil {
		return fmt.Errorf("github client: %w", err)
	}

	store := storage.New(cfg.OutDir)
	crawler := orchestrator.NewCrawler(
		service.NewRepositoriesService(ghClient),
		service.NewRestCollector(ghClient, store),
		store,
		orchestrator.Options{
			MaxWorkers:   cfg.MaxWorkers,
			JobTimeout:   cfg.JobTimeout,
			PollInterval: cfg.PollInterval,
			LogEvery:     crawlLogEvery,
		},
	)

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	return crawler.Run(ctx, orgs)
}
