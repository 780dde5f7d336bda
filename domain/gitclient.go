package domain

import "context"

// GitClient exposes the working-copy operations the sync core needs on local
// checkouts. Every method takes the checkout directory so one client can
// serve the source checkout and every destination working copy.
type GitClient interface {
	// Clone clones url into dir. A depth of 0 means a full clone.
	Clone(ctx context.Context, url, dir string, depth int) error

	// CheckoutBranch checks out branch, creating it when it does not exist.
	// When the remote already carries the branch the local branch is created
	// from the remote tip, otherwise from the current HEAD. It returns the
	// sha the branch points at after checkout.
	CheckoutBranch(dir, branch string) (string, error)

	// CheckoutTarget force-checks out a branch by name, preferring the
	// remote-tracking ref when no local branch exists.
	CheckoutTarget(dir, branch string) (string, error)

	// CheckoutCommit force-checks out the given commit (detached).
	CheckoutCommit(dir, sha string) error

	// HardReset resets the current branch and worktree to sha.
	HardReset(dir, sha string) error

	// ForceAdd stages the given worktree-relative paths, including paths
	// that ignore rules would otherwise keep out of the index.
	ForceAdd(dir string, paths []string) error

	// Commit records the staged changes and returns the new commit sha.
	Commit(dir, message string) (string, error)

	// IsDirty reports whether the staged state differs from HEAD. Changes
	// are staged through ForceAdd first, so files matched by ignore rules
	// count too.
	IsDirty(dir string) (bool, error)

	// Head returns the current HEAD commit.
	Head(dir string) (SourceCommit, error)

	// CurrentBranch returns the short name of the currently checked-out
	// branch.
	CurrentBranch(dir string) (string, error)

	// CommitsAfter walks first-parent history from HEAD back to anchor and
	// returns the commits strictly after anchor, oldest first. An anchor
	// equal to HEAD yields an empty slice. An unreachable anchor is an error.
	CommitsAfter(dir, anchor string) ([]SourceCommit, error)

	// CommitsBetween returns the commits after base up to and including
	// head, oldest first.
	CommitsBetween(dir, base, head string) ([]SourceCommit, error)

	// Deepen fetches additional history so at least depth commits are
	// reachable locally.
	Deepen(ctx context.Context, dir string, depth int) error

	// PushForce force-pushes branch to the remote at url.
	PushForce(ctx context.Context, dir, url, branch string) error

	// TreeEntries lists every blob of the commit's tree, recursively.
	TreeEntries(dir, commitSHA string) ([]GitTreeEntry, error)

	// BlobContent reads the raw content of a blob object.
	BlobContent(dir, blobSHA string) ([]byte, error)
}
