package domain

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	anchorPrefix = "srcRepoBeforeRef::"

	// WarningBanner is prepended to a pull request body while its branch is
	// being rewritten, and removed once replay detects no further changes.
	WarningBanner = "> [!WARNING]\n" +
		"> This pull request is being updated by the file sync right now. " +
		"Do not merge until the update has finished.\n\n"
)

var anchorPattern = regexp.MustCompile(anchorPrefix + `([0-9a-fA-F]{40})`)

// AnchorComment renders the hidden machine-readable comment that persists the
// replay anchor inside a pull request body.
func AnchorComment(beforeRef string) string {
	return fmt.Sprintf("<!-- %s%s -->", anchorPrefix, beforeRef)
}

// ExtractAnchor pulls the before-ref anchor out of a pull request body.
// A missing or malformed anchor returns ErrMissingAnchor: without it the sync
// cannot be certain what has already been replayed.
func ExtractAnchor(body string) (string, error) {
	m := anchorPattern.FindStringSubmatch(body)
	if m == nil {
		return "", ErrMissingAnchor
	}
	return strings.ToLower(m[1]), nil
}

// AddWarningBanner prepends the warning banner to body. Idempotent: a body
// that already starts with the banner is returned unchanged.
func AddWarningBanner(body string) string {
	if strings.HasPrefix(body, WarningBanner) {
		return body
	}
	return WarningBanner + body
}

// RemoveWarningBanner strips the warning banner, leaving the rest of the body
// verbatim.
func RemoveWarningBanner(body string) string {
	return strings.TrimPrefix(body, WarningBanner)
}

// BuildTitle joins the first lines of the aggregated commit messages.
func BuildTitle(messages []string) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		if line := FirstLine(m); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "; ")
}

// BuildBody assembles a pull request body: sync summary, the aggregated
// commit messages (multi-line messages as collapsible blocks), the hidden
// before-ref anchor and a footer linking the triggering run.
func BuildBody(messages []string, sourceRepoFullName, beforeRef, runURL string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(
		"Synchronized file changes from [%s](https://github.com/%s).\n\n",
		sourceRepoFullName, sourceRepoFullName,
	))

	for _, m := range messages {
		first := FirstLine(m)
		rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(m), first))
		if rest == "" {
			sb.WriteString("- " + first + "\n")
			continue
		}
		sb.WriteString(fmt.Sprintf(
			"<details>\n<summary>%s</summary>\n\n%s\n</details>\n", first, rest,
		))
	}

	sb.WriteString("\n" + AnchorComment(beforeRef) + "\n")

	if runURL != "" {
		sb.WriteString(fmt.Sprintf("\n---\nTriggered by [this run](%s).\n", runURL))
	}

	return sb.String()
}
