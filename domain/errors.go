package domain

import "errors"

var (
	// ErrMissingAnchor reports that a forced replay could not find the
	// before-ref anchor in the existing pull request body. Without it the
	// sync cannot know what has already been replayed, so the session stops.
	ErrMissingAnchor = errors.New("existing pull request carries no before-ref anchor")

	// ErrUnsupportedMergeMethod reports an auto-merge method outside
	// merge/squash/rebase.
	ErrUnsupportedMergeMethod = errors.New("unsupported auto-merge method")
)
