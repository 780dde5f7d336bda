package config //nolint:testpackage // tests unexported functions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/reposync/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reposync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("should parse a full document and apply defaults", func(t *testing.T) {
		// given
		path := writeConfig(t, `
token: secret
repositories:
  - acme/widgets
  - name: acme/docs@release
    files:
      - source: README.md
files:
  - source: workflows/
    dest: .github/workflows/
    deleteOrphaned: true
    exclude: [local.yml]
pr:
  labels: [sync]
  autoMerge: squash
`)

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "github.com", cfg.Host)
		assert.Equal(t, "secret", cfg.Token)
		assert.Equal(t, "repo-sync/"+domain.SourceRepoToken, cfg.PR.BranchPrefix)
		assert.True(t, cfg.PR.OverwriteEnabled())
		assert.Equal(t, []string{"sync"}, cfg.PR.Labels)
		assert.Equal(t, "reposync[bot]", cfg.Git.UserName)
		require.Len(t, cfg.Repositories, 2)
		assert.Equal(t, "acme/widgets", cfg.Repositories[0].Name)
		assert.Equal(t, "acme/docs@release", cfg.Repositories[1].Name)
		require.Len(t, cfg.Repositories[1].Files, 1)
	})

	t.Run("should expand environment variables in the token", func(t *testing.T) {
		// given
		t.Setenv("REPOSYNC_TEST_TOKEN", "from-env")
		path := writeConfig(t, `
token: ${REPOSYNC_TEST_TOKEN}
repositories: [acme/widgets]
files:
  - source: README.md
`)

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Token)
	})

	t.Run("should reject an unsupported auto-merge method", func(t *testing.T) {
		// given
		path := writeConfig(t, `
token: secret
repositories: [acme/widgets]
files:
  - source: README.md
pr:
  autoMerge: fast-forward
`)

		// when
		_, err := Load(path)

		// then
		require.ErrorIs(t, err, domain.ErrUnsupportedMergeMethod)
	})

	t.Run("should reject a document without repositories", func(t *testing.T) {
		// given
		path := writeConfig(t, `
token: secret
files:
  - source: README.md
`)

		// when
		_, err := Load(path)

		// then
		require.Error(t, err)
	})

	t.Run("should reject a repository without any file rules", func(t *testing.T) {
		// given
		path := writeConfig(t, `
token: secret
repositories: [acme/widgets]
`)

		// when
		_, err := Load(path)

		// then
		require.Error(t, err)
	})
}

func TestConfig_Targets(t *testing.T) {
	t.Parallel()

	t.Run("should expand global rules and per-repository overrides", func(t *testing.T) {
		t.Parallel()

		// given
		cfg := &Config{
			Host: "github.com",
			Repositories: []RepositoryConfig{
				{Name: "acme/widgets@dev"},
				{Name: "acme/docs", Files: []FileRuleConfig{{Source: "docs/"}}},
			},
			Files: []FileRuleConfig{{Source: "workflows/", Dest: ".github/workflows/"}},
		}

		// when
		targets, err := cfg.Targets()

		// then
		require.NoError(t, err)
		require.Len(t, targets, 2)

		assert.Equal(t, "acme/widgets@dev", targets[0].Repo.UniqueKey)
		require.Len(t, targets[0].Rules, 1)
		assert.Equal(t, ".github/workflows/", targets[0].Rules[0].Dest)
		assert.True(t, targets[0].Rules[0].Replace)

		require.Len(t, targets[1].Rules, 1)
		// dest defaults to source when omitted
		assert.Equal(t, "docs/", targets[1].Rules[0].Dest)
	})

	t.Run("should reject a malformed repository name", func(t *testing.T) {
		t.Parallel()

		// given
		cfg := &Config{
			Host:         "github.com",
			Repositories: []RepositoryConfig{{Name: "not-a-repo"}},
			Files:        []FileRuleConfig{{Source: "x"}},
		}

		// when
		_, err := cfg.Targets()

		// then
		require.Error(t, err)
	})
}
