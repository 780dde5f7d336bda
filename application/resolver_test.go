package application //nolint:testpackage // tests unexported functions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/reposync/config"
	"github.com/rios0rios0/reposync/domain"
)

const anchorSHA = "0123456789abcdef0123456789abcdef01234567"

func TestResolveCommitSet(t *testing.T) {
	t.Parallel()

	t.Run("should replay after the anchor on a forced push with an open PR", func(t *testing.T) {
		t.Parallel()

		// given
		git := &fakeGitClient{
			commitsAfter: []domain.SourceCommit{
				{SHA: "c1", Message: "first"},
				{SHA: "c2", Message: "second"},
			},
		}
		session := &domain.SyncSession{
			WorkingDir:    "/tmp/dest",
			SourceDir:     "/tmp/source",
			LastCommitSHA: "tip",
			ExistingPR: &domain.ExistingPR{
				Number:  3,
				Body:    "body\n" + domain.AnchorComment(anchorSHA) + "\n",
				BaseSHA: "base-sha",
				Commits: []domain.PRCommit{{SHA: "p1"}, {SHA: "p2"}, {SHA: "p3"}},
			},
		}
		ev := &config.PushEvent{
			Forced:  true,
			Commits: []domain.SourceCommit{{SHA: "n1"}, {SHA: "n2"}},
		}

		// when
		commits, err := resolveCommitSet(context.Background(), git, session, ev)

		// then
		require.NoError(t, err)
		assert.Equal(t, git.commitsAfter, commits)
		// both checkouts deepened by PR commits plus payload commits
		assert.Equal(t, []int{5, 5}, git.deepenDepths)
		assert.Equal(t, []string{"base-sha"}, git.hardResets)
		assert.Equal(t, "base-sha", session.LastCommitSHA)
	})

	t.Run("should fail a forced replay when the PR body carries no anchor", func(t *testing.T) {
		t.Parallel()

		// given
		git := &fakeGitClient{}
		session := &domain.SyncSession{
			ExistingPR: &domain.ExistingPR{Number: 3, Body: "no anchor here"},
		}
		ev := &config.PushEvent{Forced: true}

		// when
		_, err := resolveCommitSet(context.Background(), git, session, ev)

		// then
		require.ErrorIs(t, err, domain.ErrMissingAnchor)
		assert.Empty(t, git.deepenDepths)
	})

	t.Run("should replay the delivered commit list verbatim", func(t *testing.T) {
		t.Parallel()

		// given
		git := &fakeGitClient{}
		session := &domain.SyncSession{}
		ev := &config.PushEvent{
			Commits: []domain.SourceCommit{{SHA: "c1"}, {SHA: "c2"}},
		}

		// when
		commits, err := resolveCommitSet(context.Background(), git, session, ev)

		// then
		require.NoError(t, err)
		assert.Equal(t, ev.Commits, commits)
	})

	t.Run("should replay the delivered list even when forced without a PR", func(t *testing.T) {
		t.Parallel()

		// given
		git := &fakeGitClient{}
		session := &domain.SyncSession{}
		ev := &config.PushEvent{
			Forced:  true,
			Commits: []domain.SourceCommit{{SHA: "c1"}},
		}

		// when
		commits, err := resolveCommitSet(context.Background(), git, session, ev)

		// then
		require.NoError(t, err)
		assert.Equal(t, ev.Commits, commits)
		assert.Empty(t, git.hardResets)
	})

	t.Run("should fall back to the source HEAD on an empty commit list", func(t *testing.T) {
		t.Parallel()

		// given
		git := &fakeGitClient{headCommit: domain.SourceCommit{SHA: "head", Message: "tip"}}
		session := &domain.SyncSession{SourceDir: "/tmp/source"}
		ev := &config.PushEvent{}

		// when
		commits, err := resolveCommitSet(context.Background(), git, session, ev)

		// then
		require.NoError(t, err)
		assert.Equal(t, []domain.SourceCommit{{SHA: "head", Message: "tip"}}, commits)
	})
}
