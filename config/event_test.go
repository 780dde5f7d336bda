package config //nolint:testpackage // tests unexported functions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEvent(t *testing.T) {
	t.Run("should decode a push payload", func(t *testing.T) {
		// given
		payload := `{
			"before": "0123456789abcdef0123456789abcdef01234567",
			"forced": true,
			"commits": [
				{"id": "aaa111", "message": "fix: rotate keys (#42)"},
				{"id": "bbb222", "message": "docs: update readme"}
			],
			"repository": {
				"name": "source",
				"full_name": "acme/source",
				"html_url": "https://github.com/acme/source",
				"clone_url": "https://github.com/acme/source.git",
				"owner": {"login": "acme"}
			}
		}`
		path := filepath.Join(t.TempDir(), "event.json")
		require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

		// when
		ev, err := LoadEvent(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "0123456789abcdef0123456789abcdef01234567", ev.Before)
		assert.True(t, ev.Forced)
		require.Len(t, ev.Commits, 2)
		assert.Equal(t, "aaa111", ev.Commits[0].SHA)
		assert.Equal(t, "docs: update readme", ev.Commits[1].Message)
		assert.Equal(t, "acme/source", ev.RepoFullName)
		assert.Equal(t, "acme", ev.RepoOwner)
		assert.Equal(t, "https://github.com/acme/source.git", ev.CloneURL)
	})

	t.Run("should reject a payload without a repository", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "event.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"before": "abc"}`), 0o600))

		// when
		_, err := LoadEvent(path)

		// then
		require.Error(t, err)
	})

	t.Run("should build a manual event from the environment", func(t *testing.T) {
		// given
		t.Setenv("GITHUB_EVENT_PATH", "")
		t.Setenv("GITHUB_REPOSITORY", "acme/source")
		t.Setenv("GITHUB_SERVER_URL", "https://github.com")
		t.Setenv("GITHUB_RUN_ID", "1234")

		// when
		ev, err := LoadEvent("")

		// then
		require.NoError(t, err)
		assert.Empty(t, ev.Before)
		assert.Empty(t, ev.Commits)
		assert.Equal(t, "acme/source", ev.RepoFullName)
		assert.Equal(t, "https://github.com/acme/source.git", ev.CloneURL)
		assert.Equal(t, "https://github.com/acme/source/actions/runs/1234", ev.RunURL)
	})

	t.Run("should fail a manual event without a repository", func(t *testing.T) {
		// given
		t.Setenv("GITHUB_EVENT_PATH", "")
		t.Setenv("GITHUB_REPOSITORY", "")

		// when
		_, err := LoadEvent("")

		// then
		require.Error(t, err)
	})
}
