package cmd

import (
	"strings"

	"go.uber.org/dig"

	"github.com/rios0rios0/reposync/application"
	"github.com/rios0rios0/reposync/config"
	"github.com/rios0rios0/reposync/domain"
	"github.com/rios0rios0/reposync/infrastructure/fsync"
	"github.com/rios0rios0/reposync/infrastructure/github"
	"github.com/rios0rios0/reposync/infrastructure/gitrepo"
	"github.com/rios0rios0/reposync/infrastructure/publish"
)

// buildContainer wires configuration, clients, the publisher strategy and
// the sync service.
func buildContainer(path string) (*dig.Container, error) {
	container := dig.New()

	providers := []any{
		func() (*config.Config, error) {
			p := path
			if p == "" {
				found, err := config.FindConfigFile()
				if err != nil {
					return nil, err
				}
				p = found
			}
			return config.Load(p)
		},
		func(cfg *config.Config) domain.GitClient {
			return gitrepo.New(cfg.Git.UserName, cfg.Git.UserEmail)
		},
		func(cfg *config.Config) domain.HostClient {
			return github.New(cfg.Token)
		},
		func() domain.FileSyncer {
			return fsync.NewSyncer()
		},
		selectPublisher,
		application.NewService,
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return nil, err
		}
	}

	return container, nil
}

// selectPublisher picks the publishing strategy once per run by token
// capability: installation tokens cannot push to arbitrary branches, so they
// publish through verified API commits; everything else pushes directly.
func selectPublisher(cfg *config.Config, git domain.GitClient, host domain.HostClient) domain.Publisher {
	installation := cfg.TokenType == "installation" ||
		(cfg.TokenType == "" && strings.HasPrefix(cfg.Token, "ghs_"))

	if installation && cfg.Fork == "" {
		return publish.NewVerifiedPublisher(git, host)
	}
	return publish.NewLocalPublisher(git, cfg.Token, cfg.Fork)
}
