package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tracker-tv/workflow-harvest/internal/gitwalk"
	"github.com/tracker-tv/workflow-harvest/internal/metrics"
	"github.com/tracker-tv/workflow-harvest/internal/service"
	"github.com/tracker-tv/workflow-harvest/internal/storage"
	"github.com/tracker-tv/workflow-harvest/models"
)

// Options tune one crawl run.
type Options struct {
	// MaxWorkers bounds how many repository jobs run at once.
	MaxWorkers int
	// JobTimeout bounds one repository job, measured from the moment it
	// acquires a worker slot, not from submission.
	JobTimeout   time.Duration
	PollInterval time.Duration
	LogEvery     int
}

// Crawler fans one collection job per repository out over an organization,
// bounds each job's runtime and aggregates a run summary per org.
type Crawler struct {
	repos     service.RepositoryService
	collector service.Collector
	store     *storage.Store
	opts      Options
}

func NewCrawler(repos service.RepositoryService, collector service.Collector, store *storage.Store, opts Options) *Crawler {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 8
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 10 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.LogEvery <= 0 {
		opts.LogEvery = 10
	}
	return &Crawler{repos: repos, collector: collector, store: store, opts: opts}
}

// Run processes organizations sequentially. Per-repository errors are
// absorbed into the summary counters; only listing failures surface.
func (c *Crawler) Run(ctx context.Context, orgs []string) error {
	for _, org := range orgs {
		if _, err := c.RunOrg(ctx, org); err != nil {
			return fmt.Errorf("org %s: %w", org, err)
		}
	}
	return nil
}

type jobStart struct {
	repo string
	at   time.Time
}

type jobResult struct {
	repo string
	res  gitwalk.Result
	err  error
}

type jobState struct {
	submitted time.Time
	started   time.Time
	running   bool
	cancel    context.CancelFunc
}

// RunOrg lists the organization's repositories, dispatches one job each and
// awaits completion under the timeout watchdog, then writes the summary.
func (c *Crawler) RunOrg(ctx context.Context, org string) (*models.OrgSummary, error) {
	started := time.Now()

	repoList, err := c.repos.ListAll(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}

	targets := make([]models.Repository, 0, len(repoList))
	for _, repo := range repoList {
		if repo.Archived || repo.Fork {
			continue
		}
		targets = append(targets, repo)
	}
	slog.Info("org listed",
		"org", org, "targets", len(targets), "skipped", len(repoList)-len(targets))

	pending, starts, results := c.dispatch(ctx, org, targets)
	counters := c.await(ctx, org, pending, starts, results)

	summary := metrics.FromCounters(org, counters)
	if err := c.store.WriteSummary(summary); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	slog.Info("org done",
		"org", org,
		"took", time.Since(started).Round(time.Second),
		"repos", counters.ReposScanned,
		"with_workflows", counters.ReposWithWorkflows,
		"timeouts", counters.Timeouts,
		"failures", counters.Failures)
	return summary, nil
}

// dispatch submits every target at once; a worker semaphore bounds how many
// jobs actually run. Queued jobs sit outside the timeout clock until they
// acquire a slot.
func (c *Crawler) dispatch(ctx context.Context, org string, targets []models.Repository) (map[string]*jobState, chan jobStart, chan jobResult) {
	pending := make(map[string]*jobState, len(targets))
	starts := make(chan jobStart, len(targets))
	// Buffered so jobs outliving the watchdog can still deliver their late
	// result without leaking.
	results := make(chan jobResult, len(targets))

	workers := semaphore.NewWeighted(int64(c.opts.MaxWorkers))

	for _, repo := range targets {
		jobCtx, cancel := context.WithCancel(ctx)
		pending[repo.Name] = &jobState{submitted: time.Now(), cancel: cancel}

		go func() {
			if err := workers.Acquire(jobCtx, 1); err != nil {
				results <- jobResult{repo: repo.Name, err: err}
				return
			}
			defer workers.Release(1)

			starts <- jobStart{repo: repo.Name, at: time.Now()}
			res, err := c.collector.CollectRepo(jobCtx, org, repo)
			results <- jobResult{repo: repo.Name, res: res, err: err}
		}()
	}

	return pending, starts, results
}

// await owns every counter; job starts, completions and watchdog sweeps are
// serialized through this single goroutine, so no shared-state locking is
// needed. A swept job counts as completed whether or not it ever honours its
// cancellation.
func (c *Crawler) await(ctx context.Context, org string, pending map[string]*jobState, starts chan jobStart, results chan jobResult) metrics.Counters {
	var counters metrics.Counters

	submitted := len(pending)
	completed := 0

	// A job that never honours cancellation keeps its worker slot, so queued
	// siblings may never start. The queue grace covers a full rotation of
	// every job through the workers; past it a still-queued job is starved
	// and gets swept so the run can terminate.
	queueGrace := c.opts.JobTimeout * time.Duration(2+submitted/c.opts.MaxWorkers)

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for len(pending) > 0 {
		select {
		case start := <-starts:
			if state, live := pending[start.repo]; live {
				state.started = start.at
				state.running = true
			}

		case result := <-results:
			state, live := pending[result.repo]
			if !live {
				continue // already swept as a timeout; artifacts get re-verified next run
			}
			state.cancel()
			delete(pending, result.repo)
			completed++

			if result.err != nil {
				counters.Failures++
				slog.Warn("repo collection failed",
					"org", org, "repo", result.repo, "error", result.err)
			} else {
				counters.ReposScanned++
				counters.WorkflowsTotal += result.res.Workflows
				counters.SnapshotsTotal += result.res.Snapshots
				if result.res.Workflows > 0 {
					counters.ReposWithWorkflows++
				}
				if err := c.store.MarkRepoDone(org, result.repo); err != nil {
					slog.Warn("failed to write done marker",
						"org", org, "repo", result.repo, "error", err)
				}
			}

			if completed%c.opts.LogEvery == 0 || completed == submitted {
				slog.Info("progress", "org", org, "completed", completed, "submitted", submitted)
			}

		case <-ticker.C:
			now := time.Now()
			for name, state := range pending {
				var elapsed time.Duration
				switch {
				case state.running && now.Sub(state.started) > c.opts.JobTimeout:
					elapsed = now.Sub(state.started)
				case !state.running && now.Sub(state.submitted) > queueGrace:
					elapsed = now.Sub(state.submitted)
				default:
					continue
				}
				state.cancel() // best-effort interruption
				delete(pending, name)
				completed++
				counters.Timeouts++
				slog.Warn("repo job timed out",
					"org", org, "repo", name, "elapsed", elapsed.Round(time.Second))
			}
			if len(pending) > 0 {
				slog.Debug("awaiting jobs", "org", org, "pending", len(pending))
			}

		case <-ctx.Done():
			for _, state := range pending {
				state.cancel()
			}
			return counters
		}
	}

	return counters
}
