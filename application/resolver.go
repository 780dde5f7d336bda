package application

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/reposync/config"
	"github.com/rios0rios0/reposync/domain"
)

// resolveCommitSet decides which source commits this run replays, oldest
// first. Priority order, first matching rule wins:
//
//  1. forced push onto an existing PR: history may have been rewritten, so
//     the event's commit list cannot be trusted. Replay everything after the
//     anchor persisted in the PR body, on a working branch hard-reset to the
//     PR's base.
//  2. a delivered commit list (forced without a PR, or a normal push): replay
//     it verbatim.
//  3. no commit list (manual run): replay the current source HEAD only.
func resolveCommitSet(
	ctx context.Context,
	git domain.GitClient,
	session *domain.SyncSession,
	ev *config.PushEvent,
) ([]domain.SourceCommit, error) {
	if ev.Forced && session.ExistingPR != nil {
		return resolveForcedReplay(ctx, git, session, ev)
	}

	if len(ev.Commits) > 0 {
		return append([]domain.SourceCommit(nil), ev.Commits...), nil
	}

	head, err := git.Head(session.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source HEAD: %w", err)
	}
	return []domain.SourceCommit{head}, nil
}

// resolveForcedReplay walks source history after the PR's anchor up to HEAD.
// Both checkouts are deepened first so the anchor is reachable locally, and
// the working branch is reset to the PR's base so replay starts from a
// clean, known base.
func resolveForcedReplay(
	ctx context.Context,
	git domain.GitClient,
	session *domain.SyncSession,
	ev *config.PushEvent,
) ([]domain.SourceCommit, error) {
	pr := session.ExistingPR

	anchor, err := domain.ExtractAnchor(pr.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot replay forced push onto PR #%d: %w", pr.Number, err)
	}

	depth := len(pr.Commits) + len(ev.Commits)
	if deepenErr := git.Deepen(ctx, session.SourceDir, depth); deepenErr != nil {
		return nil, deepenErr
	}
	if deepenErr := git.Deepen(ctx, session.WorkingDir, depth); deepenErr != nil {
		return nil, deepenErr
	}

	commits, err := git.CommitsAfter(session.SourceDir, anchor)
	if err != nil {
		return nil, fmt.Errorf("failed to walk source history after anchor %s: %w", anchor, err)
	}

	if resetErr := git.HardReset(session.WorkingDir, pr.BaseSHA); resetErr != nil {
		return nil, resetErr
	}
	session.LastCommitSHA = pr.BaseSHA

	logger.Infof("Forced push: replaying %d commit(s) after anchor %.7s", len(commits), anchor)
	return commits, nil
}
