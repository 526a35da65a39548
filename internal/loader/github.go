// ABOUTME: Remote document loading from GitHub repositories via the contents API
// ABOUTME: Lists markdown paths from the git tree and fetches each file's content
package loader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/byoung/ai-me/internal/models"
	"github.com/byoung/ai-me/internal/util"
)

const githubRequestTimeout = 30 * time.Second

// GitHubClient wraps go-github with rate limiting and bounded retries.
type GitHubClient struct {
	gh          *gh.Client
	rateLimiter *RateLimiter
	maxRetries  int
	retryDelay  time.Duration
}

// NewGitHubClient creates a client. An empty token yields an
// unauthenticated client, which is sufficient for public repositories.
func NewGitHubClient(token string, maxRetries int, retryDelay time.Duration) *GitHubClient {
	return &GitHubClient{
		gh:          gh.NewClient(newHTTPClient(token)),
		rateLimiter: NewRateLimiter(),
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
	}
}

// newHTTPClient builds the underlying HTTP client. Both the authenticated
// and the anonymous client carry a request timeout so a hung connection
// cannot stall a load forever.
func newHTTPClient(token string) *http.Client {
	client := &http.Client{Timeout: githubRequestTimeout}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = oauth2.NewClient(context.Background(), ts)
		client.Timeout = githubRequestTimeout
	}
	return client
}

// ValidateCredentials checks the configured token with a cheap API call.
func (c *GitHubClient) ValidateCredentials(ctx context.Context) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}
	_, resp, err := c.gh.Users.Get(ctx, "")
	c.updateRateLimit(resp)
	if err != nil {
		return fmt.Errorf("validate credentials: %w", err)
	}
	return nil
}

// ListMarkdownPaths returns every .md path in the repository tree at ref.
func (c *GitHubClient) ListMarkdownPaths(ctx context.Context, owner, repo, ref string) ([]string, error) {
	var tree *gh.Tree
	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}
		t, resp, err := c.gh.Git.GetTree(ctx, owner, repo, ref, true)
		c.updateRateLimit(resp)
		if err != nil {
			return classify(fmt.Errorf("get tree %s/%s@%s: %w", owner, repo, ref, err))
		}
		tree = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range tree.Entries {
		if entry.GetType() == "blob" && strings.HasSuffix(entry.GetPath(), ".md") {
			paths = append(paths, entry.GetPath())
		}
	}
	return paths, nil
}

// GetFileContent fetches and decodes one file.
func (c *GitHubClient) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	var text string
	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}
		opts := &gh.RepositoryContentGetOptions{Ref: ref}
		content, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
		c.updateRateLimit(resp)
		if err != nil {
			return classify(fmt.Errorf("get contents %s/%s/%s: %w", owner, repo, path, err))
		}
		if content == nil {
			return fmt.Errorf("%s/%s/%s is a directory, not a file", owner, repo, path)
		}
		decoded, err := content.GetContent()
		if err != nil {
			return fmt.Errorf("decode content %s: %w", path, err)
		}
		text = decoded
		return nil
	})
	return text, err
}

// ReadFile fetches a single file from a repository given as owner/name.
// Used by the repository browser tool.
func (c *GitHubClient) ReadFile(ctx context.Context, repository, path, ref string) (string, error) {
	owner, name, err := splitRepo(repository)
	if err != nil {
		return "", err
	}
	return c.GetFileContent(ctx, owner, name, path, ref)
}

// ListFiles lists the markdown paths of a repository given as owner/name.
// Used by the repository browser tool.
func (c *GitHubClient) ListFiles(ctx context.Context, repository, ref string) ([]string, error) {
	owner, name, err := splitRepo(repository)
	if err != nil {
		return nil, err
	}
	return c.ListMarkdownPaths(ctx, owner, name, ref)
}

// LoadRepository loads every markdown file of one repository. Individual
// file failures are logged and skipped.
func (c *GitHubClient) LoadRepository(ctx context.Context, repository, ref string) ([]models.SourceDocument, error) {
	owner, name, err := splitRepo(repository)
	if err != nil {
		return nil, err
	}

	paths, err := c.ListMarkdownPaths(ctx, owner, name, ref)
	if err != nil {
		return nil, err
	}

	var docs []models.SourceDocument
	for _, p := range paths {
		text, err := c.GetFileContent(ctx, owner, name, p, ref)
		if err != nil {
			log.Printf("Warning: failed to load %s from %s: %v - skipping", p, repository, err)
			continue
		}
		docs = append(docs, models.SourceDocument{
			DocumentID:  repository + ":" + p,
			Text:        text,
			Origin:      models.Origin{Path: p, Repository: repository, Ref: ref},
			RetrievedAt: time.Now(),
		})
	}
	log.Printf("  Loaded %d documents from %s", len(docs), repository)
	return docs, nil
}

// classify marks client errors that retrying cannot fix (missing repo, bad
// ref, bad path) as permanent. Rate limiting (403/429) and server errors
// stay retryable.
func classify(err error) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		code := ghErr.Response.StatusCode
		if code >= 400 && code < 500 &&
			code != http.StatusForbidden && code != http.StatusTooManyRequests {
			return util.Permanent(err)
		}
	}
	return err
}

func (c *GitHubClient) updateRateLimit(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.rateLimiter.UpdateFromResponse(resp.Response)
}

func splitRepo(repository string) (owner, name string, err error) {
	parts := strings.SplitN(repository, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository must be owner/name, got %q", repository)
	}
	return parts[0], parts[1], nil
}
