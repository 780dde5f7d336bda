package domain

import "context"

// HostClient abstracts the repository hosting service API used by the sync:
// pull requests, git data (blobs, trees, commits, refs) and PR metadata.
type HostClient interface {
	// FindOpenPR returns the open pull request whose head is head
	// ("owner:branch"), with its commits fetched eagerly, or nil when no
	// such pull request exists.
	FindOpenPR(ctx context.Context, repo RepoRef, head string) (*ExistingPR, error)

	// CreatePR opens a new pull request.
	CreatePR(ctx context.Context, repo RepoRef, input PullRequestInput) (*PullRequest, error)

	// UpdatePR patches title and body of an existing pull request.
	UpdatePR(ctx context.Context, repo RepoRef, number int, title, body string) (*PullRequest, error)

	// UpdatePRBody patches only the body of an existing pull request.
	UpdatePRBody(ctx context.Context, repo RepoRef, number int, body string) error

	// BranchSHA returns the sha a branch ref points at.
	BranchSHA(ctx context.Context, repo RepoRef, branch string) (string, error)

	// EnsureBranch creates the branch ref at sha. Creation is idempotent:
	// "reference already exists" is not an error.
	EnsureBranch(ctx context.Context, repo RepoRef, branch, sha string) error

	// ForceUpdateBranch force-moves the branch ref to sha.
	ForceUpdateBranch(ctx context.Context, repo RepoRef, branch, sha string) error

	// CreateBlob uploads raw content and returns the blob sha.
	CreateBlob(ctx context.Context, repo RepoRef, content []byte) (string, error)

	// CreateTree creates a tree object from the full entry list and returns
	// its sha.
	CreateTree(ctx context.Context, repo RepoRef, entries []GitTreeEntry) (string, error)

	// CreateCommit creates a commit object with a single parent and returns
	// its sha.
	CreateCommit(ctx context.Context, repo RepoRef, message, treeSHA, parentSHA string) (string, error)

	// AddLabels adds labels to the pull request.
	AddLabels(ctx context.Context, repo RepoRef, number int, labels []string) error

	// AddAssignees assigns users to the pull request.
	AddAssignees(ctx context.Context, repo RepoRef, number int, assignees []string) error

	// RequestReviewers requests user and team reviews on the pull request.
	RequestReviewers(ctx context.Context, repo RepoRef, number int, users, teams []string) error

	// EnableAutoMerge enables auto-merge on the pull request with the given
	// merge method ("merge", "squash" or "rebase").
	EnableAutoMerge(ctx context.Context, prNodeID, method string) error
}
