package service

import (
	"context"

	gh "github.com/google/go-github/v80/github"

	"github.com/tracker-tv/workflow-harvest/models"
)

// fallbackBranch is used when the API omits a repository's default branch.
const fallbackBranch = "main"

type RepositoryService interface {
	ListAll(ctx context.Context, org string) ([]models.Repository, error)
}

// RepoClient is the slice of the GitHub client the lister needs.
type RepoClient interface {
	ListAllRepos(ctx context.Context, org string) ([]*gh.Repository, error)
}

type repositoriesService struct {
	gh RepoClient
}

func NewRepositoriesService(ghClient RepoClient) RepositoryService {
	return &repositoriesService{gh: ghClient}
}

func (s *repositoriesService) ListAll(ctx context.Context, org string) ([]models.Repository, error) {
	repos, err := s.gh.ListAllRepos(ctx, org)
	if err != nil {
		return nil, err
	}

	result := make([]models.Repository, 0, len(repos))

	for _, repo := range repos {
		if repo == nil {
			continue
		}

		branch := repo.GetDefaultBranch()
		if branch == "" {
			branch = fallbackBranch
		}

		result = append(result, models.Repository{
			Name:          repo.GetName(),
			FullName:      repo.GetFullName(),
			CloneURL:      repo.GetCloneURL(),
			DefaultBranch: branch,
			Private:       repo.GetPrivate(),
			Archived:      repo.GetArchived(),
			Fork:          repo.GetFork(),
		})
	}

	return result, nil
}
