package aiwriter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const maxReadmeWords = 2000

var githubRepoPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/?#]+)`)

// GitHubReadme fetches README files through the GitHub contents API.
type GitHubReadme struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewGitHubReadme returns a README source for api.github.com. token may be empty.
func NewGitHubReadme(token string) *GitHubReadme {
	return &GitHubReadme{
		BaseURL: "https://api.github.com",
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Readme returns the README of the repository at repoURL truncated to 2000 words.
// Non-GitHub URLs and repositories without a README yield "".
func (g *GitHubReadme) Readme(ctx context.Context, repoURL string) (string, error) {
	owner, repo, ok := ParseGitHubRepo(repoURL)
	if !ok {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/repos/%s/%s/readme", g.BaseURL, owner, repo), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github API error: %d", resp.StatusCode)
	}

	var payload struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode readme: %w", err)
	}
	if payload.Encoding != "base64" || payload.Content == "" {
		return "", nil
	}

	// GitHub wraps the base64 body at 60 columns.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decode readme: %w", err)
	}
	return truncateWords(string(raw), maxReadmeWords), nil
}

// ParseGitHubRepo extracts owner and repository name from a github.com URL.
func ParseGitHubRepo(repoURL string) (owner, repo string, ok bool) {
	m := githubRepoPattern.FindStringSubmatch(repoURL)
	if m == nil {
		return "", "", false
	}
	repo = strings.TrimSuffix(m[2], ".git")
	if repo == "" {
		return "", "", false
	}
	return m[1], repo, true
}

func truncateWords(s string, limit int) string {
	words := strings.Fields(s)
	if len(words) <= limit {
		return s
	}
	return strings.Join(words[:limit], " ") + "..."
}
