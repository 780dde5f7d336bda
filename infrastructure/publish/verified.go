package publish

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rios0rios0/reposync/domain"
)

const defaultBlobWorkers = 4

// VerifiedPublisher replays the pending local commits through the host's
// tree/blob/commit/ref API. Commits created this way are attributed to the
// app installation and signed by the host ("verified"), which is the only
// option for tokens without push rights to arbitrary branches.
type VerifiedPublisher struct {
	git         domain.GitClient
	host        domain.HostClient
	blobWorkers int
}

// NewVerifiedPublisher creates the API-commit strategy.
func NewVerifiedPublisher(git domain.GitClient, host domain.HostClient) *VerifiedPublisher {
	return &VerifiedPublisher{
		git:         git,
		host:        host,
		blobWorkers: defaultBlobWorkers,
	}
}

// Publish recreates every local commit since session.LastCommitSHA as a
// remote commit. Blobs are uploaded content-addressed: a blob already present
// in the parent tree, or already uploaded for this commit, is never sent
// again. Blob uploads within one commit run concurrently; the commits
// themselves are strictly sequential because each carries the previous
// remote commit as its sole parent.
func (p *VerifiedPublisher) Publish(ctx context.Context, session *domain.SyncSession) error {
	head, err := p.git.Head(session.WorkingDir)
	if err != nil {
		return fmt.Errorf("failed to resolve working branch head: %w", err)
	}

	if head.SHA == session.LastCommitSHA {
		logger.Debugf("No pending commits on %s, nothing to publish", session.PRBranch)
		return nil
	}

	pending, err := p.git.CommitsBetween(session.WorkingDir, session.LastCommitSHA, head.SHA)
	if err != nil {
		return fmt.Errorf("failed to collect pending commits: %w", err)
	}

	localParent := session.LastCommitSHA
	for _, commit := range pending {
		remoteSHA, publishErr := p.publishCommit(ctx, session, localParent, commit)
		if publishErr != nil {
			return publishErr
		}
		session.LastCommitSHA = remoteSHA
		localParent = commit.SHA
	}

	if refErr := p.updateBranchRef(ctx, session); refErr != nil {
		return refErr
	}

	logger.Infof("Published %d verified commit(s) to %s", len(pending), session.PRBranch)
	return nil
}

// updateBranchRef points the remote branch at the last published commit:
// created when the branch does not exist yet, force-moved when it does and
// lags behind.
func (p *VerifiedPublisher) updateBranchRef(ctx context.Context, session *domain.SyncSession) error {
	remoteSHA, err := p.host.BranchSHA(ctx, session.Repo, session.PRBranch)
	if err != nil {
		// branch not on the remote yet; creation stays idempotent in case a
		// concurrent run beat us to it
		if ensureErr := p.host.EnsureBranch(ctx, session.Repo, session.PRBranch, session.LastCommitSHA); ensureErr != nil {
			return ensureErr
		}
		return nil
	}

	if remoteSHA == session.LastCommitSHA {
		return nil
	}
	return p.host.ForceUpdateBranch(ctx, session.Repo, session.PRBranch, session.LastCommitSHA)
}

// publishCommit uploads the blobs the commit introduced over its parent,
// recreates its tree and records the remote commit. It returns the remote
// commit sha.
func (p *VerifiedPublisher) publishCommit(
	ctx context.Context,
	session *domain.SyncSession,
	localParent string,
	commit domain.SourceCommit,
) (string, error) {
	parentEntries, err := p.git.TreeEntries(session.WorkingDir, localParent)
	if err != nil {
		return "", fmt.Errorf("failed to read parent tree of %s: %w", commit.SHA, err)
	}
	entries, err := p.git.TreeEntries(session.WorkingDir, commit.SHA)
	if err != nil {
		return "", fmt.Errorf("failed to read tree of %s: %w", commit.SHA, err)
	}

	inParent := make(map[string]bool, len(parentEntries))
	for _, e := range parentEntries {
		inParent[e.SHA] = true
	}

	// Decide the upload set sequentially so each blob is claimed exactly
	// once even when referenced by multiple paths.
	seen := make(map[string]bool, len(entries))
	var toUpload []domain.GitTreeEntry
	for _, e := range entries {
		if inParent[e.SHA] || seen[e.SHA] {
			continue
		}
		seen[e.SHA] = true
		toUpload = append(toUpload, e)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.blobWorkers)
	for _, entry := range toUpload {
		entry := entry
		group.Go(func() error {
			content, blobErr := p.git.BlobContent(session.WorkingDir, entry.SHA)
			if blobErr != nil {
				return fmt.Errorf("failed to read blob for %q: %w", entry.Path, blobErr)
			}
			uploadedSHA, uploadErr := p.host.CreateBlob(groupCtx, session.Repo, content)
			if uploadErr != nil {
				return fmt.Errorf("failed to upload blob for %q: %w", entry.Path, uploadErr)
			}
			if uploadedSHA != entry.SHA {
				logger.Warnf("Blob %q came back as %s, expected %s", entry.Path, uploadedSHA, entry.SHA)
			}
			return nil
		})
	}
	if waitErr := group.Wait(); waitErr != nil {
		return "", waitErr
	}

	treeSHA, err := p.host.CreateTree(ctx, session.Repo, entries)
	if err != nil {
		return "", err
	}

	remoteSHA, err := p.host.CreateCommit(ctx, session.Repo, commit.Message, treeSHA, session.LastCommitSHA)
	if err != nil {
		return "", err
	}

	logger.Debugf("Created verified commit %s (%d blob(s) uploaded)", remoteSHA, len(toUpload))
	return remoteSHA, nil
}
