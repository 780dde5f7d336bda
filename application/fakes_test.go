package application //nolint:testpackage // tests unexported functions

import (
	"context"
	"errors"
	"sync"

	"github.com/rios0rios0/reposync/domain"
)

// fakeGitClient is a scripted test double for domain.GitClient. Zero values
// behave like an empty repository; tests set the script fields they need.
type fakeGitClient struct {
	mu sync.Mutex

	headCommit    domain.SourceCommit
	branchSHA     string
	currentBranch string
	dirtyQueue    []bool
	commitsAfter  []domain.SourceCommit
	afterErr      error

	clonedURLs     []string
	checkedOut     []string
	commits        []string
	hardResets     []string
	deepenDepths   []int
	forceAdded     [][]string
	pushedBranches []string
}

func (f *fakeGitClient) Clone(_ context.Context, url, _ string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clonedURLs = append(f.clonedURLs, url)
	return nil
}

func (f *fakeGitClient) CheckoutBranch(_, _ string) (string, error) {
	return f.branchSHA, nil
}

func (f *fakeGitClient) CheckoutTarget(_, _ string) (string, error) {
	return f.branchSHA, nil
}

func (f *fakeGitClient) CheckoutCommit(_, sha string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkedOut = append(f.checkedOut, sha)
	return nil
}

func (f *fakeGitClient) HardReset(_, sha string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hardResets = append(f.hardResets, sha)
	return nil
}

func (f *fakeGitClient) ForceAdd(_ string, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forceAdded = append(f.forceAdded, paths)
	return nil
}

func (f *fakeGitClient) Commit(_, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, message)
	return "local-commit", nil
}

func (f *fakeGitClient) IsDirty(_ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.dirtyQueue) == 0 {
		return false, nil
	}
	dirty := f.dirtyQueue[0]
	f.dirtyQueue = f.dirtyQueue[1:]
	return dirty, nil
}

func (f *fakeGitClient) Head(_ string) (domain.SourceCommit, error) {
	if f.headCommit.SHA == "" {
		return domain.SourceCommit{}, errors.New("no head scripted")
	}
	return f.headCommit, nil
}

func (f *fakeGitClient) CurrentBranch(_ string) (string, error) {
	if f.currentBranch == "" {
		return "main", nil
	}
	return f.currentBranch, nil
}

func (f *fakeGitClient) CommitsAfter(_, _ string) ([]domain.SourceCommit, error) {
	return f.commitsAfter, f.afterErr
}

func (f *fakeGitClient) CommitsBetween(_, _, _ string) ([]domain.SourceCommit, error) {
	return nil, nil
}

func (f *fakeGitClient) Deepen(_ context.Context, _ string, depth int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deepenDepths = append(f.deepenDepths, depth)
	return nil
}

func (f *fakeGitClient) PushForce(_ context.Context, _, _, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushedBranches = append(f.pushedBranches, branch)
	return nil
}

func (f *fakeGitClient) TreeEntries(_, _ string) ([]domain.GitTreeEntry, error) {
	return nil, nil
}

func (f *fakeGitClient) BlobContent(_, _ string) ([]byte, error) {
	return nil, nil
}

// fakeHostClient records every mutation it receives.
type fakeHostClient struct {
	mu sync.Mutex

	existing *domain.ExistingPR
	nextURL  string

	created     []domain.PullRequestInput
	updates     []string // titles passed to UpdatePR
	bodyUpdates []string
	labels      []string
	assignees   []string
	reviewers   []string
	autoMerge   []string
}

func (f *fakeHostClient) FindOpenPR(_ context.Context, _ domain.RepoRef, _ string) (*domain.ExistingPR, error) {
	return f.existing, nil
}

func (f *fakeHostClient) CreatePR(_ context.Context, _ domain.RepoRef, input domain.PullRequestInput) (*domain.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, input)
	return &domain.PullRequest{Number: 7, NodeID: "node-7", Title: input.Title, URL: f.nextURL}, nil
}

func (f *fakeHostClient) UpdatePR(_ context.Context, _ domain.RepoRef, number int, title, _ string) (*domain.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, title)
	return &domain.PullRequest{Number: number, NodeID: "node-upd", Title: title, URL: f.nextURL}, nil
}

func (f *fakeHostClient) UpdatePRBody(_ context.Context, _ domain.RepoRef, _ int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodyUpdates = append(f.bodyUpdates, body)
	return nil
}

func (f *fakeHostClient) BranchSHA(_ context.Context, _ domain.RepoRef, _ string) (string, error) {
	return "", nil
}

func (f *fakeHostClient) EnsureBranch(_ context.Context, _ domain.RepoRef, _, _ string) error {
	return nil
}

func (f *fakeHostClient) ForceUpdateBranch(_ context.Context, _ domain.RepoRef, _, _ string) error {
	return nil
}

func (f *fakeHostClient) CreateBlob(_ context.Context, _ domain.RepoRef, _ []byte) (string, error) {
	return "", nil
}

func (f *fakeHostClient) CreateTree(_ context.Context, _ domain.RepoRef, _ []domain.GitTreeEntry) (string, error) {
	return "", nil
}

func (f *fakeHostClient) CreateCommit(_ context.Context, _ domain.RepoRef, _, _, _ string) (string, error) {
	return "", nil
}

func (f *fakeHostClient) AddLabels(_ context.Context, _ domain.RepoRef, _ int, labels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels = append(f.labels, labels...)
	return nil
}

func (f *fakeHostClient) AddAssignees(_ context.Context, _ domain.RepoRef, _ int, assignees []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignees = append(f.assignees, assignees...)
	return nil
}

func (f *fakeHostClient) RequestReviewers(_ context.Context, _ domain.RepoRef, _ int, users, teams []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviewers = append(f.reviewers, users...)
	f.reviewers = append(f.reviewers, teams...)
	return nil
}

func (f *fakeHostClient) EnableAutoMerge(_ context.Context, _, method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoMerge = append(f.autoMerge, method)
	return nil
}

// fakePublisher records the sessions it publishes.
type fakePublisher struct {
	mu       sync.Mutex
	sessions []*domain.SyncSession
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, session *domain.SyncSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, session)
	return f.err
}

// fakeSyncer pretends every source path exists so replay reaches the commit
// decision without touching the filesystem.
type fakeSyncer struct{}

func (fakeSyncer) Exists(string) bool { return true }

func (fakeSyncer) IsDir(string) bool { return false }

func (fakeSyncer) Copy(_, _ string, _ domain.FileRule) error { return nil }

func (fakeSyncer) Render(_, _ string, _ any) error { return nil }

func (fakeSyncer) ListFiles(string, domain.FileRule) ([]string, error) { return nil, nil }

func (fakeSyncer) Remove(string) error { return nil }
