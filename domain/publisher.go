package domain

import "context"

// Publisher turns the local commits recorded on a session's working branch
// into destination-repository commits. Two implementations exist: a direct
// force-push for tokens with push rights, and an API-level tree/blob replay
// for installation tokens that produce verified commits. The strategy is
// selected once per run by token capability.
type Publisher interface {
	Publish(ctx context.Context, session *SyncSession) error
}

// FileSyncer is the low-level file primitive the applicator delegates to:
// filtered recursive copy, template rendering and directory listing.
type FileSyncer interface {
	Exists(path string) bool
	IsDir(path string) bool

	// Copy recursively copies src to dst, skipping paths matched by the rule.
	Copy(src, dst string, rule FileRule) error

	// Render renders the template file at src into dst with data.
	Render(src, dst string, data any) error

	// ListFiles returns the sorted file paths under root, relative to root,
	// excluding paths matched by the rule and any ".git" directory.
	ListFiles(root string, rule FileRule) ([]string, error)

	// Remove deletes a file or directory tree.
	Remove(path string) error
}
