package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tracker-tv/workflow-harvest/internal/config"
	"github.com/tracker-tv/workflow-harvest/internal/github"
	"github.com/tracker-tv/workflow-harvest/internal/gitwalk"
	"github.com/tracker-tv/workflow-harvest/internal/orchestrator"
	"github.com/tracker-tv/workflow-harvest/internal/service"
	"github.com/tracker-tv/workflow-harvest/internal/storage"
)

var (
	crawlGitOrgsFile string
	crawlGitLogEvery int
	crawlGitCacheDir string
	crawlGitKeep     bool
)

var crawlGitCmd = &cobra.Command{
	Use:   "crawl-git",
	Short: "Collect workflow histories from local git clones",
	Long: `Collects every workflow file's commit history for each organization
in the orgs file. Repositories are cloned bare and their histories walked
locally, so only the repository listing consumes API quota.`,
	RunE: runCrawlGit,
}

func init() {
	crawlGitCmd.Flags().StringVar(&crawlGitOrgsFile, "orgs-file", "", "JSON array of organization logins (required)")
	crawlGitCmd.Flags().IntVar(&crawlGitLogEvery, "log-every", 10, "log progress every N completed repositories")
	crawlGitCmd.Flags().StringVar(&crawlGitCacheDir, "git-cache-dir", "", "clone cache directory (default <out-dir>/.cache/git)")
	crawlGitCmd.Flags().BoolVar(&crawlGitKeep, "keep-clone", false, "keep clones after collection for faster re-runs")
	_ = crawlGitCmd.MarkFlagRequired("orgs-file")
	rootCmd.AddCommand(crawlGitCmd)
}

func runCrawlGit(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	orgs, err := readOrgsFile(crawlGitOrgsFile)
	if err != nil {
		return err
	}

	ghClient, err := github.New(cfg)
	if err != nil {
		return fmt.Errorf("github client: %w", err)
	}

	cacheDir := crawlGitCacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(cfg.OutDir, ".cache", "git")
	}

	store := storage.New(cfg.OutDir)
	walker := gitwalk.New(store, cfg.GithubToken)
	crawler := orchestrator.NewCrawler(
		service.NewRepositoriesService(ghClient),
		service.NewGitCollector(walker, cfg.MaxClones, cacheDir, crawlGitKeep),
		store,
		orchestrator.Options{
			MaxWorkers:   cfg.MaxWorkers,
			JobTimeout:   cfg.JobTimeout,
			PollInterval: cfg.PollInterval,
			LogEvery:     crawlGitLogEvery,
		},
	)

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	return crawler.Run(ctx, orgs)
}
