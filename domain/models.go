package domain

import (
	"fmt"
	"strings"
)

// RepoRef identifies a destination repository and the branch the sync targets.
// Immutable once parsed.
type RepoRef struct {
	Host      string
	Owner     string
	Name      string
	Branch    string // empty means the repository's default branch
	FullName  string // "owner/name"
	UniqueKey string // disambiguates multiple branches of the same repository
}

// ParseRepoRef parses "owner/name" or "owner/name@branch" into a RepoRef.
func ParseRepoRef(host, raw string) (RepoRef, error) {
	name := raw
	branch := ""
	if at := strings.LastIndex(raw, "@"); at >= 0 {
		name = raw[:at]
		branch = raw[at+1:]
	}

	parts := strings.Split(name, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, fmt.Errorf("invalid repository reference %q (expected owner/name[@branch])", raw)
	}

	key := name
	if branch != "" {
		key = name + "@" + branch
	}

	return RepoRef{
		Host:      host,
		Owner:     parts[0],
		Name:      parts[1],
		Branch:    branch,
		FullName:  name,
		UniqueKey: key,
	}, nil
}

// HTMLURL returns the web URL of the repository.
func (r RepoRef) HTMLURL() string {
	return "https://" + r.Host + "/" + r.FullName
}

// FileRule declares one sync unit. Rules are produced by the config resolver
// and consumed read-only by the sync core.
type FileRule struct {
	Source         string
	Dest           string
	Template       bool
	Replace        bool
	DeleteOrphaned bool
	Exclude        []string
}

// Excluded reports whether a path relative to the rule's source directory is
// matched by the rule's exclude list (exact match or directory prefix).
func (r FileRule) Excluded(relPath string) bool {
	for _, ex := range r.Exclude {
		ex = strings.TrimSuffix(ex, "/")
		if ex == "" {
			continue
		}
		if relPath == ex || strings.HasPrefix(relPath, ex+"/") {
			return true
		}
	}
	return false
}

// SourceCommit is one unit of replay: a commit of the source repository.
type SourceCommit struct {
	SHA     string // 40-hex object id
	Message string
}

// PRCommit is a commit already recorded on an existing pull request.
type PRCommit struct {
	SHA     string
	Message string
}

// ExistingPR is an open pull request previously created by the sync. Its body
// carries the replay anchor, which is the only durable cross-run state.
type ExistingPR struct {
	Number  int
	NodeID  string
	URL     string
	Body    string
	BaseSHA string // sha of the destination base branch the PR was opened against
	Commits []PRCommit
}

// PullRequest is the reconciler's view of a created or updated pull request.
type PullRequest struct {
	Number int
	NodeID string
	Title  string
	URL    string
}

// PullRequestInput carries the data needed to open a pull request.
type PullRequestInput struct {
	Head  string // "owner:branch" or "forkOwner:branch"
	Base  string
	Title string
	Body  string
}

// GitTreeEntry is one entry of a git tree, as read from destination history.
type GitTreeEntry struct {
	Mode string // "100644", "100755", "120000"
	Type string // "blob"
	SHA  string
	Path string
}

// SyncSession is the mutable per-destination-repository state, owned by the
// orchestration loop for the lifetime of one repository and discarded after.
type SyncSession struct {
	Repo       RepoRef
	WorkingDir string
	SourceDir  string
	BaseBranch string
	PRBranch   string

	// LastCommitSHA tracks the destination branch tip. It is advanced
	// atomically with every published commit and is the parent pointer for
	// the next API-level commit.
	LastCommitSHA string

	ExistingPR *ExistingPR
}
