// Package publish holds the two commit-publishing strategies: a direct git
// force-push for tokens with push rights, and an API-level replay producing
// verified commits for installation tokens.
package publish

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/reposync/domain"
)

// LocalPublisher force-pushes the prepared working branch directly, either to
// the destination repository or to a configured fork remote.
type LocalPublisher struct {
	git       domain.GitClient
	token     string
	forkOwner string // empty when no fork workflow is active
}

// NewLocalPublisher creates the direct-push strategy.
func NewLocalPublisher(git domain.GitClient, token, forkOwner string) *LocalPublisher {
	return &LocalPublisher{
		git:       git,
		token:     token,
		forkOwner: forkOwner,
	}
}

// Publish force-pushes the session branch.
func (p *LocalPublisher) Publish(ctx context.Context, session *domain.SyncSession) error {
	owner := session.Repo.Owner
	if p.forkOwner != "" {
		owner = p.forkOwner
	}

	url := fmt.Sprintf(
		"https://x-access-token:%s@%s/%s/%s.git",
		p.token, session.Repo.Host, owner, session.Repo.Name,
	)

	logger.Debugf("Force-pushing %s to %s/%s", session.PRBranch, owner, session.Repo.Name)
	if err := p.git.PushForce(ctx, session.WorkingDir, url, session.PRBranch); err != nil {
		return fmt.Errorf("failed to publish branch %q: %w", session.PRBranch, err)
	}

	head, err := p.git.Head(session.WorkingDir)
	if err != nil {
		return fmt.Errorf("failed to resolve pushed head: %w", err)
	}
	session.LastCommitSHA = head.SHA

	return nil
}
