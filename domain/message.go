package domain

import (
	"regexp"
	"strings"
)

// issueRefPattern matches short issue references of the form "(#123)".
var issueRefPattern = regexp.MustCompile(`\(#(\d+)\)`)

// RewriteIssueRefs replaces every "(#N)" issue reference in a commit message
// with an absolute pull-request URL of the source repository, so replayed
// commits do not trigger cross-repository notifications on unrelated issues.
func RewriteIssueRefs(message, sourceRepoURL string) string {
	return issueRefPattern.ReplaceAllString(
		message,
		"("+strings.TrimSuffix(sourceRepoURL, "/")+"/pull/$1)",
	)
}

// FirstLine returns the subject line of a commit message.
func FirstLine(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		return strings.TrimSpace(message[:idx])
	}
	return strings.TrimSpace(message)
}

// SelectMessages picks the commit messages the pull request title and body
// aggregate, keyed on {forced, existing PR present}:
//
//	forced                -> only the messages actually replayed this run
//	existing PR, unforced -> the PR's recorded messages plus the new payload
//	otherwise             -> the payload messages
//
// Repeats are accepted; no de-duplication is performed.
func SelectMessages(forced bool, existing *ExistingPR, replayed, payload []string) []string {
	switch {
	case forced:
		return replayed
	case existing != nil:
		out := make([]string, 0, len(existing.Commits)+len(payload))
		for _, c := range existing.Commits {
			out = append(out, c.Message)
		}
		return append(out, payload...)
	default:
		return payload
	}
}
