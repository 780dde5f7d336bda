package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// SourceRepoToken is the placeholder in a branch prefix template that is
// replaced with the name of the triggering repository.
const SourceRepoToken = "SOURCE_REPO_NAME"

// BranchName derives the working branch for one destination repository.
// The prefix template has SourceRepoToken replaced with the source repository
// name, the target branch is appended as a path segment, backslashes become
// forward slashes and "/." segments collapse. When overwrite is disabled a
// Unix-timestamp suffix makes every run use a fresh branch.
func BranchName(prefixTpl, sourceRepoName, targetBranch string, overwrite bool, now time.Time) string {
	prefix := strings.ReplaceAll(prefixTpl, SourceRepoToken, sourceRepoName)
	name := path.Join(strings.ReplaceAll(prefix, "\\", "/"), targetBranch)
	name = strings.ReplaceAll(name, "/.", "")

	if !overwrite {
		name = fmt.Sprintf("%s-%d", name, now.Unix())
	}
	return name
}
