package github //nolint:testpackage // tests unexported fields

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/reposync/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New("tok")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	c.client.BaseURL = base
	return c
}

func TestClient_EnsureBranch(t *testing.T) {
	t.Parallel()

	repo := domain.RepoRef{Host: "github.com", Owner: "acme", Name: "widgets", FullName: "acme/widgets"}

	t.Run("should treat an already existing reference as success", func(t *testing.T) {
		t.Parallel()

		// given
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/repos/acme/widgets/git/refs", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"message": "Reference already exists"}`)
		})

		// when
		err := c.EnsureBranch(context.Background(), repo, "repo-sync/source", "abc123")

		// then
		require.NoError(t, err)
	})

	t.Run("should propagate other ref creation failures", func(t *testing.T) {
		t.Parallel()

		// given
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
		})

		// when
		err := c.EnsureBranch(context.Background(), repo, "repo-sync/source", "abc123")

		// then
		require.Error(t, err)
	})
}
