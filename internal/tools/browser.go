// ABOUTME: Repository browser tool for reading files beyond the indexed corpus
// ABOUTME: Gated on a GitHub token; connection validates credentials up front
package tools

import (
	"context"
	"fmt"
	"strings"
)

// RepoBrowser is the GitHub surface the browser tool needs. The loader's
// GitHubClient satisfies it.
type RepoBrowser interface {
	ValidateCredentials(ctx context.Context) error
	ReadFile(ctx context.Context, repository, path, ref string) (string, error)
	ListFiles(ctx context.Context, repository, ref string) ([]string, error)
}

// BrowserTool lets the model read repository files that were not indexed,
// for example source code referenced from the documentation.
type BrowserTool struct {
	lifecycle
	browser RepoBrowser
	ref     string
}

// NewBrowserTool creates a browser tool fetching at ref.
func NewBrowserTool(browser RepoBrowser, ref string) *BrowserTool {
	return &BrowserTool{browser: browser, ref: ref}
}

func (t *BrowserTool) Name() string { return "browse_repository" }

func (t *BrowserTool) Scope() Scope { return ScopeProcess }

func (t *BrowserTool) Description() string {
	return "Read a file or list the markdown files of a public GitHub repository. Use this when documentation references a file that is not in your knowledge base."
}

func (t *BrowserTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"enum":        []string{"read_file", "list_files"},
				"description": "read_file fetches one file, list_files lists markdown paths",
			},
			"repository": map[string]any{
				"type":        "string",
				"description": "Repository as owner/name, for example byoung/me",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "File path within the repository, required for read_file",
			},
		},
		"required": []string{"action", "repository"},
	}
}

// Connect validates the configured credentials. A revoked or expired token
// fails here, excluding the tool from the session instead of surfacing
// mid-conversation.
func (t *BrowserTool) Connect(ctx context.Context) error {
	if err := t.begin(); err != nil {
		return err
	}
	err := t.browser.ValidateCredentials(ctx)
	t.finish(err)
	if err != nil {
		return fmt.Errorf("connect repository browser: %w", err)
	}
	return nil
}

func (t *BrowserTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	if err := t.requireReady(t.Name()); err != nil {
		return "", err
	}

	action, err := stringArg(args, "action")
	if err != nil {
		return "", err
	}
	repository, err := stringArg(args, "repository")
	if err != nil {
		return "", err
	}

	switch action {
	case "read_file":
		path, err := stringArg(args, "path")
		if err != nil {
			return "", err
		}
		return t.browser.ReadFile(ctx, repository, path, t.ref)

	case "list_files":
		paths, err := t.browser.ListFiles(ctx, repository, t.ref)
		if err != nil {
			return "", err
		}
		if len(paths) == 0 {
			return "No markdown files found in " + repository + ".", nil
		}
		return strings.Join(paths, "\n"), nil

	default:
		return "", fmt.Errorf("unknown action %q", action)
	}
}

func (t *BrowserTool) Close() error {
	t.lifecycle.close()
	return nil
}

func (t *BrowserTool) State() State { return t.current() }
