package domain //nolint:testpackage // tests unexported functions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBranchName(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)

	tests := []struct {
		name         string
		prefix       string
		sourceRepo   string
		targetBranch string
		overwrite    bool
		expected     string
	}{
		{
			name:         "should substitute the source repository name",
			prefix:       "repo-sync/" + SourceRepoToken,
			sourceRepo:   "shared-config",
			targetBranch: "",
			overwrite:    true,
			expected:     "repo-sync/shared-config",
		},
		{
			name:         "should append the target branch as a segment",
			prefix:       "repo-sync/" + SourceRepoToken,
			sourceRepo:   "shared-config",
			targetBranch: "release",
			overwrite:    true,
			expected:     "repo-sync/shared-config/release",
		},
		{
			name:         "should normalize backslashes",
			prefix:       "sync\\" + SourceRepoToken,
			sourceRepo:   "tools",
			targetBranch: "",
			overwrite:    true,
			expected:     "sync/tools",
		},
		{
			name:         "should collapse dot segments",
			prefix:       "repo-sync/.",
			sourceRepo:   "tools",
			targetBranch: "main",
			overwrite:    true,
			expected:     "repo-sync/main",
		},
		{
			name:         "should append a timestamp when overwrite is disabled",
			prefix:       "repo-sync/" + SourceRepoToken,
			sourceRepo:   "tools",
			targetBranch: "",
			overwrite:    false,
			expected:     "repo-sync/tools-1700000000",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// when
			result := BranchName(tt.prefix, tt.sourceRepo, tt.targetBranch, tt.overwrite, now)

			// then
			assert.Equal(t, tt.expected, result)
		})
	}
}
