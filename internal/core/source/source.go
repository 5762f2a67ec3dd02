package source

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultArchiveBaseURL is the host archives are fetched from.
const DefaultArchiveBaseURL = "https://github.com"

// ProjectInfo identifies an upstream project hosted on GitHub.
type ProjectInfo struct {
	Owner        string
	Repo         string
	CanonicalURL string // github:owner/repo
}

// ParseProjectURL analyzes a project URL and returns owner and repository.
// Accepted forms are "https://github.com/<owner>/<repo>[.git]" and "github:<owner>/<repo>".
func ParseProjectURL(projectURL string) (*ProjectInfo, error) {
	var path string
	if strings.HasPrefix(projectURL, "github:") {
		path = strings.TrimPrefix(projectURL, "github:")
	} else {
		u, err := url.Parse(projectURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse project URL '%s': %w", projectURL, err)
		}
		if !strings.EqualFold(u.Hostname(), "github.com") {
			return nil, fmt.Errorf("unsupported project URL host: %s. Only GitHub projects are currently supported", u.Hostname())
		}
		path = u.Path
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid project URL '%s': expected <owner>/<repo>", projectURL)
	}
	owner := parts[0]
	repo := strings.TrimSuffix(parts[1], ".git")

	return &ProjectInfo{
		Owner:        owner,
		Repo:         repo,
		CanonicalURL: fmt.Sprintf("github:%s/%s", owner, repo),
	}, nil
}

// ArchiveExtension returns ".zip" for Windows hosts and ".tar.gz" for every other host.
func ArchiveExtension(hostOS string) string {
	if strings.EqualFold(hostOS, "windows") {
		return ".zip"
	}
	return ".tar.gz"
}

// ArchiveURL returns <base>/<owner>/<repo>/archive/<version><ext>.
// An empty base uses DefaultArchiveBaseURL.
func ArchiveURL(base string, p *ProjectInfo, version, hostOS string) string {
	if base == "" {
		base = DefaultArchiveBaseURL
	}
	return fmt.Sprintf("%s/%s/%s/archive/%s%s", strings.TrimRight(base, "/"), p.Owner, p.Repo, version, ArchiveExtension(hostOS))
}

// ArchiveRootName returns the top-level directory name of a GitHub tag archive.
// GitHub drops a leading "v" from the tag.
func ArchiveRootName(p *ProjectInfo, version string) string {
	return p.Repo + "-" + strings.TrimPrefix(version, "v")
}
