// Package source_test contains tests for the source package, specifically GitHub API interactions.
package source_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightconcept/nativepkg/internal/core/source"
)

var githubAPITestMutex sync.Mutex // Serializes tests modifying GithubAPIBaseURL

func setupGitHubAPI(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	githubAPITestMutex.Lock()
	server := httptest.NewServer(handler)
	prev := source.SetGithubAPIBaseURL(server.URL)
	t.Cleanup(func() {
		server.Close()
		source.SetGithubAPIBaseURL(prev)
		githubAPITestMutex.Unlock()
	})
}

func TestGetCommitSHAForRef_Success(t *testing.T) {
	setupGitHubAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/ceres-solver/ceres-solver/commits/1.14.0", r.URL.Path)
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sha": "facb199f3eda902360f9e1d5271372b7e54febe1", "commit": {"committer": {"date": "2018-03-23T00:00:00Z"}}}`))
	})

	sha, err := source.GetCommitSHAForRef(context.Background(), "ceres-solver", "ceres-solver", "1.14.0")
	require.NoError(t, err)
	assert.Equal(t, "facb199f3eda902360f9e1d5271372b7e54febe1", sha)
}

func TestGetCommitSHAForRef_NotFound(t *testing.T) {
	setupGitHubAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not Found"}`))
	})

	_, err := source.GetCommitSHAForRef(context.Background(), "ceres-solver", "ceres-solver", "9.9.9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GitHub API request failed with status 404 Not Found")
	assert.Contains(t, err.Error(), `{"message": "Not Found"}`)
}

func TestGetCommitSHAForRef_MalformedJSON(t *testing.T) {
	setupGitHubAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sha": `))
	})

	_, err := source.GetCommitSHAForRef(context.Background(), "o", "r", "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal GitHub API response")
}

func TestGetCommitSHAForRef_EmptySHA(t *testing.T) {
	setupGitHubAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := source.GetCommitSHAForRef(context.Background(), "o", "r", "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no commit found for ref 'main'")
}
