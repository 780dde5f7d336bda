// Package gitrepo implements the working-copy manager on go-git: local
// clones, branch and commit checkout, staging, committing, history walks and
// force pushes, without shelling out to a git binary.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/rios0rios0/reposync/domain"
)

// Client implements domain.GitClient.
type Client struct {
	userName  string
	userEmail string
}

// New creates a git client committing under the given identity.
func New(userName, userEmail string) *Client {
	return &Client{
		userName:  userName,
		userEmail: userEmail,
	}
}

// Clone clones url into dir. A depth of 0 means a full clone.
func (c *Client) Clone(ctx context.Context, url, dir string, depth int) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:   url,
		Depth: depth,
		Tags:  git.NoTags,
	})
	if err != nil {
		return fmt.Errorf("failed to clone into %q: %w", dir, err)
	}
	return nil
}

// CheckoutBranch checks out branch, creating the local branch from the
// remote tip when the remote carries it, from the current HEAD otherwise.
func (c *Client) CheckoutBranch(dir, branch string) (string, error) {
	repo, wt, err := c.open(dir)
	if err != nil {
		return "", err
	}

	branchRef := plumbing.NewBranchReferenceName(branch)

	remoteRef, refErr := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if refErr == nil {
		local := plumbing.NewHashReference(branchRef, remoteRef.Hash())
		if setErr := repo.Storer.SetReference(local); setErr != nil {
			return "", fmt.Errorf("failed to create branch %q: %w", branch, setErr)
		}
		if coErr := wt.Checkout(&git.CheckoutOptions{Branch: branchRef, Force: true}); coErr != nil {
			return "", fmt.Errorf("failed to checkout branch %q: %w", branch, coErr)
		}
		return remoteRef.Hash().String(), nil
	}

	if coErr := wt.Checkout(&git.CheckoutOptions{
		Branch: branchRef,
		Create: true,
		Force:  true,
	}); coErr != nil {
		return "", fmt.Errorf("failed to create branch %q: %w", branch, coErr)
	}

	head, headErr := repo.Head()
	if headErr != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", headErr)
	}
	return head.Hash().String(), nil
}

// CheckoutTarget force-checks out an existing branch, preferring the local
// ref and falling back to the remote-tracking one.
func (c *Client) CheckoutTarget(dir, branch string) (string, error) {
	repo, wt, err := c.open(dir)
	if err != nil {
		return "", err
	}

	branchRef := plumbing.NewBranchReferenceName(branch)
	if _, refErr := repo.Reference(branchRef, true); refErr != nil {
		remoteRef, remoteErr := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
		if remoteErr != nil {
			return "", fmt.Errorf("branch %q not found locally or on origin: %w", branch, remoteErr)
		}
		local := plumbing.NewHashReference(branchRef, remoteRef.Hash())
		if setErr := repo.Storer.SetReference(local); setErr != nil {
			return "", fmt.Errorf("failed to create branch %q: %w", branch, setErr)
		}
	}

	if coErr := wt.Checkout(&git.CheckoutOptions{Branch: branchRef, Force: true}); coErr != nil {
		return "", fmt.Errorf("failed to checkout branch %q: %w", branch, coErr)
	}

	ref, refErr := repo.Reference(branchRef, true)
	if refErr != nil {
		return "", fmt.Errorf("failed to resolve branch %q: %w", branch, refErr)
	}
	return ref.Hash().String(), nil
}

// CheckoutCommit force-checks out the given commit, detached.
func (c *Client) CheckoutCommit(dir, sha string) error {
	_, wt, err := c.open(dir)
	if err != nil {
		return err
	}

	if coErr := wt.Checkout(&git.CheckoutOptions{
		Hash:  plumbing.NewHash(sha),
		Force: true,
	}); coErr != nil {
		return fmt.Errorf("failed to checkout commit %s: %w", sha, coErr)
	}
	return nil
}

// HardReset resets the current branch and worktree to sha.
func (c *Client) HardReset(dir, sha string) error {
	_, wt, err := c.open(dir)
	if err != nil {
		return err
	}

	if resetErr := wt.Reset(&git.ResetOptions{
		Commit: plumbing.NewHash(sha),
		Mode:   git.HardReset,
	}); resetErr != nil {
		return fmt.Errorf("failed to hard-reset to %s: %w", sha, resetErr)
	}
	return nil
}

// ForceAdd stages the given paths. A plain add only covers what the status
// can see, and the status excludes ignored files, so every file under the
// path is additionally staged one by one with the status check skipped. That
// is the only go-git add mode that reaches files matched by destination
// ignore rules.
func (c *Client) ForceAdd(dir string, paths []string) error {
	_, wt, err := c.open(dir)
	if err != nil {
		return err
	}

	for _, p := range paths {
		// records deletions of tracked files, which the walk below cannot see
		if _, addErr := wt.Add(p); addErr != nil {
			return fmt.Errorf("failed to stage %q: %w", p, addErr)
		}

		files, walkErr := worktreeFiles(dir, p)
		if walkErr != nil {
			return walkErr
		}
		for _, rel := range files {
			if addErr := wt.AddWithOptions(&git.AddOptions{Path: rel, SkipStatus: true}); addErr != nil {
				return fmt.Errorf("failed to stage %q: %w", rel, addErr)
			}
		}
	}
	return nil
}

// worktreeFiles lists the files under the worktree-relative path p, slash
// separated and relative to the worktree root. A missing path yields nothing.
func worktreeFiles(dir, p string) ([]string, error) {
	root := filepath.Join(dir, filepath.FromSlash(p))
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", p, err)
	}
	if !info.IsDir() {
		return []string{filepath.ToSlash(p)}, nil
	}

	var files []string
	walkErr := filepath.Walk(root, func(path string, fi os.FileInfo, statErr error) error {
		if statErr != nil {
			return statErr
		}
		if fi.IsDir() {
			if fi.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk %q: %w", p, walkErr)
	}
	return files, nil
}

// Commit records the staged changes and returns the new commit sha.
func (c *Client) Commit(dir, message string) (string, error) {
	_, wt, err := c.open(dir)
	if err != nil {
		return "", err
	}

	hash, commitErr := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  c.userName,
			Email: c.userEmail,
			When:  time.Now(),
		},
	})
	if commitErr != nil {
		return "", fmt.Errorf("failed to commit: %w", commitErr)
	}
	return hash.String(), nil
}

// IsDirty reports whether the staged index differs from HEAD. The comparison
// runs against the index rather than the worktree status because the status
// excludes ignored files; everything the sync touches is force-staged first,
// so staged-vs-HEAD is the complete picture.
func (c *Client) IsDirty(dir string) (bool, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return false, fmt.Errorf("failed to open repository %q: %w", dir, err)
	}

	idx, idxErr := repo.Storer.Index()
	if idxErr != nil {
		return false, fmt.Errorf("failed to read index: %w", idxErr)
	}
	staged := make(map[string]plumbing.Hash, len(idx.Entries))
	for _, entry := range idx.Entries {
		staged[entry.Name] = entry.Hash
	}

	head, headErr := repo.Head()
	if headErr != nil {
		return false, fmt.Errorf("failed to resolve HEAD: %w", headErr)
	}
	commit, commitErr := repo.CommitObject(head.Hash())
	if commitErr != nil {
		return false, fmt.Errorf("failed to read HEAD commit: %w", commitErr)
	}
	tree, treeErr := commit.Tree()
	if treeErr != nil {
		return false, fmt.Errorf("failed to read HEAD tree: %w", treeErr)
	}

	dirty := false
	headFiles := 0
	iterErr := tree.Files().ForEach(func(f *object.File) error {
		headFiles++
		hash, ok := staged[f.Name]
		if !ok || hash != f.Hash {
			dirty = true
			return storer.ErrStop
		}
		return nil
	})
	if iterErr != nil {
		return false, fmt.Errorf("failed to walk HEAD tree: %w", iterErr)
	}

	// a file staged on top of HEAD counts as well
	return dirty || len(staged) != headFiles, nil
}

// Head returns the current HEAD commit.
func (c *Client) Head(dir string) (domain.SourceCommit, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return domain.SourceCommit{}, fmt.Errorf("failed to open repository %q: %w", dir, err)
	}

	ref, headErr := repo.Head()
	if headErr != nil {
		return domain.SourceCommit{}, fmt.Errorf("failed to resolve HEAD: %w", headErr)
	}

	commit, commitErr := repo.CommitObject(ref.Hash())
	if commitErr != nil {
		return domain.SourceCommit{}, fmt.Errorf("failed to read HEAD commit: %w", commitErr)
	}

	return domain.SourceCommit{SHA: ref.Hash().String(), Message: commit.Message}, nil
}

// CurrentBranch returns the short name of the currently checked-out branch.
func (c *Client) CurrentBranch(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("failed to open repository %q: %w", dir, err)
	}

	ref, headErr := repo.Head()
	if headErr != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", headErr)
	}
	if !ref.Name().IsBranch() {
		return "", fmt.Errorf("HEAD of %q is detached", dir)
	}
	return ref.Name().Short(), nil
}

// CommitsAfter walks first-parent history from HEAD back to anchor and
// returns the commits strictly after anchor, oldest first.
func (c *Client) CommitsAfter(dir, anchor string) ([]domain.SourceCommit, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %q: %w", dir, err)
	}

	head, headErr := repo.Head()
	if headErr != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", headErr)
	}

	return walkBack(repo, head.Hash().String(), anchor)
}

// CommitsBetween returns the commits after base up to and including head,
// oldest first.
func (c *Client) CommitsBetween(dir, base, head string) ([]domain.SourceCommit, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %q: %w", dir, err)
	}

	return walkBack(repo, head, base)
}

// walkBack collects first-parent history from start down to (excluding)
// stop, returned oldest first. An unreachable stop commit is an error: the
// walk would otherwise silently replay unrelated history.
func walkBack(repo *git.Repository, start, stop string) ([]domain.SourceCommit, error) {
	if start == stop {
		return nil, nil
	}

	var collected []domain.SourceCommit
	commit, err := repo.CommitObject(plumbing.NewHash(start))
	if err != nil {
		return nil, fmt.Errorf("failed to read commit %s: %w", start, err)
	}

	for {
		if commit.Hash.String() == stop {
			break
		}
		collected = append(collected, domain.SourceCommit{
			SHA:     commit.Hash.String(),
			Message: commit.Message,
		})

		if commit.NumParents() == 0 {
			return nil, fmt.Errorf("commit %s is not reachable from %s (history too shallow or rewritten)", stop, start)
		}
		parent, parentErr := commit.Parent(0)
		if parentErr != nil {
			if errors.Is(parentErr, plumbing.ErrObjectNotFound) {
				return nil, fmt.Errorf("commit %s is not reachable from %s (history too shallow or rewritten)", stop, start)
			}
			return nil, fmt.Errorf("failed to read parent of %s: %w", commit.Hash, parentErr)
		}
		commit = parent
	}

	// reverse to oldest-first
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected, nil
}

// Deepen fetches additional history so at least depth commits are reachable.
func (c *Client) Deepen(ctx context.Context, dir string, depth int) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("failed to open repository %q: %w", dir, err)
	}

	fetchErr := repo.FetchContext(ctx, &git.FetchOptions{
		Depth: depth,
		Tags:  git.NoTags,
	})
	if fetchErr != nil && !errors.Is(fetchErr, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to deepen to %d commits: %w", depth, fetchErr)
	}
	return nil
}

// PushForce force-pushes branch to the remote at url.
func (c *Client) PushForce(ctx context.Context, dir, url, branch string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("failed to open repository %q: %w", dir, err)
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/heads/%s", branch, branch))
	pushErr := repo.PushContext(ctx, &git.PushOptions{
		RemoteURL: url,
		RefSpecs:  []gitconfig.RefSpec{refSpec},
		Force:     true,
	})
	if pushErr != nil && !errors.Is(pushErr, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push branch %q: %w", branch, pushErr)
	}
	return nil
}

// TreeEntries lists every blob of the commit's tree, recursively.
func (c *Client) TreeEntries(dir, commitSHA string) ([]domain.GitTreeEntry, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %q: %w", dir, err)
	}

	commit, commitErr := repo.CommitObject(plumbing.NewHash(commitSHA))
	if commitErr != nil {
		return nil, fmt.Errorf("failed to read commit %s: %w", commitSHA, commitErr)
	}

	tree, treeErr := commit.Tree()
	if treeErr != nil {
		return nil, fmt.Errorf("failed to read tree of %s: %w", commitSHA, treeErr)
	}

	var entries []domain.GitTreeEntry
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	for {
		name, entry, walkErr := walker.Next()
		if walkErr == io.EOF {
			break
		}
		if walkErr != nil {
			return nil, fmt.Errorf("failed to walk tree of %s: %w", commitSHA, walkErr)
		}
		if entry.Mode == filemode.Dir || entry.Mode == filemode.Submodule {
			continue
		}
		entries = append(entries, domain.GitTreeEntry{
			Mode: strconv.FormatUint(uint64(entry.Mode), 8),
			Type: "blob",
			SHA:  entry.Hash.String(),
			Path: name,
		})
	}

	return entries, nil
}

// BlobContent reads the raw content of a blob object.
func (c *Client) BlobContent(dir, blobSHA string) ([]byte, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %q: %w", dir, err)
	}

	blob, blobErr := repo.BlobObject(plumbing.NewHash(blobSHA))
	if blobErr != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", blobSHA, blobErr)
	}

	reader, readerErr := blob.Reader()
	if readerErr != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", blobSHA, readerErr)
	}
	defer func() { _ = reader.Close() }()

	content, readErr := io.ReadAll(reader)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", blobSHA, readErr)
	}
	return content, nil
}

func (c *Client) open(dir string) (*git.Repository, *git.Worktree, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open repository %q: %w", dir, err)
	}
	wt, wtErr := repo.Worktree()
	if wtErr != nil {
		return nil, nil, fmt.Errorf("failed to open worktree of %q: %w", dir, wtErr)
	}
	return repo, wt, nil
}
