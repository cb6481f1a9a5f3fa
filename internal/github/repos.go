package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v80/github"
)

// ListAllRepos returns every repository of the organization visible to the
// credential, paging until results are exhausted. Archived/fork filtering is
// the caller's concern.
func (c *Client) ListAllRepos(ctx context.Context, org string) ([]*gh.Repository, error) {
	var allRepos []*gh.Repository
	opts := &gh.RepositoryListByOrgOptions{
		ListOptions: gh.ListOptions{PerPage: c.perPage},
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		repos, resp, err := c.repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, fmt.Errorf("list repos for %s: %w", org, err)
		}
		c.updateLimits(resp)

		if len(repos) == 0 {
			break
		}
		allRepos = append(allRepos, repos...)

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}
