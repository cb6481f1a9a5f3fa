package github

import (
	"context"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/tracker-tv/workflow-harvest/internal/config"
)

const defaultBaseURL = "https://api.github.com"

// RepositoriesAdapter is the slice of go-github's repositories service used by
// this package. Narrow on purpose so tests can mock it.
type RepositoriesAdapter interface {
	ListByOrg(ctx context.Context, org string, opts *gh.RepositoryListByOrgOptions) ([]*gh.Repository, *gh.Response, error)
	GetContents(ctx context.Context, owner, repo, path string, opts *gh.RepositoryContentGetOptions) (*gh.RepositoryContent, []*gh.RepositoryContent, *gh.Response, error)
	ListCommits(ctx context.Context, owner, repo string, opts *gh.CommitsListOptions) ([]*gh.RepositoryCommit, *gh.Response, error)
}

// Client wraps go-github behind the retrying transport and rate limiter.
type Client struct {
	repositories RepositoriesAdapter
	limiter      *RateLimiter
	perPage      int
}

func New(cfg *config.Config) (*Client, error) {
	retry := newRetryTransport(http.DefaultTransport,
		cfg.RetryBackoffBase, cfg.SecondaryBackoffBase, cfg.RateLimitMargin)

	httpClient := &http.Client{
		Timeout: time.Minute,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GithubToken}),
			Base:   retry,
		},
	}

	client := gh.NewClient(httpClient)
	if cfg.BaseURL != "" && cfg.BaseURL != defaultBaseURL {
		base := strings.TrimSuffix(cfg.BaseURL, "/")
		var err error
		client, err = client.WithEnterpriseURLs(base, base)
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		repositories: client.Repositories,
		limiter:      NewRateLimiter(),
		perPage:      cfg.PerPage,
	}, nil
}

// RateLimiter exposes the limiter for status logging.
func (c *Client) RateLimiter() *RateLimiter {
	return c.limiter
}

func (c *Client) updateLimits(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.limiter.UpdateFromResponse(resp.Response)
}
