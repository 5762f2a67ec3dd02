package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// GithubAPIBaseURL allows overriding for tests. It is an exported variable.
var GithubAPIBaseURL = "https://api.github.com"
var GithubAPIBaseURLMutex sync.Mutex

// SetGithubAPIBaseURL swaps the API base URL and returns the previous value.
func SetGithubAPIBaseURL(u string) string {
	GithubAPIBaseURLMutex.Lock()
	defer GithubAPIBaseURLMutex.Unlock()
	prev := GithubAPIBaseURL
	GithubAPIBaseURL = u
	return prev
}

func githubAPIBaseURL() string {
	GithubAPIBaseURLMutex.Lock()
	defer GithubAPIBaseURLMutex.Unlock()
	return GithubAPIBaseURL
}

// GitHubCommitInfo minimal structure to parse the commit SHA.
type GitHubCommitInfo struct {
	SHA    string `json:"sha"`
	Commit struct {
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

// GetCommitSHAForRef resolves a tag, branch or SHA to the commit it points at.
// See: https://docs.github.com/en/rest/commits/commits#get-a-commit
func GetCommitSHAForRef(ctx context.Context, owner, repo, ref string) (string, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/commits/%s", githubAPIBaseURL(), owner, repo, url.PathEscape(ref))

	httpClient := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request to GitHub API: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "nativepkg")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call GitHub API (%s): %w", apiURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body from GitHub API (%s): %w", apiURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GitHub API request failed with status %s (%s): %s", resp.Status, apiURL, string(body))
	}

	var commit GitHubCommitInfo
	if err := json.Unmarshal(body, &commit); err != nil {
		return "", fmt.Errorf("failed to unmarshal GitHub API response (%s): %w. Body: %s", apiURL, err, string(body))
	}
	if commit.SHA == "" {
		return "", fmt.Errorf("no commit found for ref '%s' in repo '%s/%s'", ref, owner, repo)
	}
	return commit.SHA, nil
}
