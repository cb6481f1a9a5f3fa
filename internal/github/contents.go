package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v80/github"
)

// ListWorkflowDir lists .github/workflows at the repository tip. A missing
// directory is not an error; the repository simply has no workflows.
func (c *Client) ListWorkflowDir(ctx context.Context, org, repo string) ([]*gh.RepositoryContent, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	_, dir, resp, err := c.repositories.GetContents(ctx, org, repo, ".github/workflows", nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list workflow dir %s/%s: %w", org, repo, err)
	}
	c.updateLimits(resp)

	return dir, nil
}

// ListCommitsForPath returns every commit on branch that touched path, newest
// first, paging until exhausted.
func (c *Client) ListCommitsForPath(ctx context.Context, org, repo, path, branch string) ([]*gh.RepositoryCommit, error) {
	var all []*gh.RepositoryCommit
	opts := &gh.CommitsListOptions{
		Path:        path,
		SHA:         branch,
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

		commits, resp, err := c.repositories.ListCommits(ctx, org, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("list commits %s/%s %s: %w", org, repo, path, err)
		}
		c.updateLimits(resp)

		if len(commits) == 0 {
			break
		}
		all = append(all, commits...)

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// GetFileAtCommit reads the file content at a specific ref. Returns ok=false
// when the file does not exist at that commit.
func (c *Client) GetFileAtCommit(ctx context.Context, org, repo, path, ref string) (string, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", false, fmt.Errorf("rate limit wait: %w", err)
	}

	file, _, resp, err := c.repositories.GetContents(ctx, org, repo, path,
		&gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s/%s %s@%s: %w", org, repo, path, ref, err)
	}
	c.updateLimits(resp)

	if file == nil {
		return "", false, nil
	}
	decoded, err := file.GetContent()
	if err != nil {
		return "", false, fmt.Errorf("decode %s@%s: %w", path, ref, err)
	}
	return decoded, true, nil
}
