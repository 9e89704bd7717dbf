package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/stackalchemy/core"
	"github.com/tmc/langchaingo/schema"
	"golang.org/x/sync/errgroup"
)

// Metadata keys set on loaded documents.
const (
	MetadataSource = "source"
	MetadataSHA    = "sha"
	MetadataRepo   = "repository"
	MetadataBranch = "branch"
)

type repoResponse struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int    `json:"size"`
}

type treeResponse struct {
	SHA       string      `json:"sha"`
	Tree      []treeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

type contentResponse struct {
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Type     string `json:"type"`
}

// LoadRepository returns every indexable file on the default branch of
// repoURL. token may be empty for public repositories.
//
// The URL is validated before any request is made. Files are downloaded
// concurrently; documents come back in tree order with the file path under
// the "source" metadata key.
func (c *Client) LoadRepository(ctx context.Context, repoURL, token string) ([]schema.Document, error) {
	owner, repo, err := core.ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}
	fullName := owner + "/" + repo
	logger := c.logger.With("repository", fullName)

	branch, err := c.defaultBranch(ctx, token, fullName)
	if err != nil {
		return nil, err
	}

	entries, truncated, err := c.fetchTree(ctx, token, fullName, branch)
	if err != nil {
		return nil, err
	}
	if truncated {
		logger.Warn("repository tree truncated by GitHub, some files will be missing")
	}

	files := c.selectFiles(entries)
	logger.Info("fetching repository files", "branch", branch, "tree_entries", len(entries), "files", len(files))

	docs := make([]*schema.Document, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, entry := range files {
		g.Go(func() error {
			data, err := c.fetchContent(gctx, token, fullName, entry.Path, branch)
			if err != nil {
				if errors.Is(err, ErrAccessDenied) || gctx.Err() != nil {
					return err
				}
				logger.Warn("skipping file", "path", entry.Path, "err", err)
				return nil
			}
			if isLikelyBinary(data) {
				logger.Debug("skipping binary file", "path", entry.Path)
				return nil
			}
			docs[i] = &schema.Document{
				PageContent: string(data),
				Metadata: map[string]any{
					MetadataSource: entry.Path,
					MetadataSHA:    entry.SHA,
					MetadataRepo:   fullName,
					MetadataBranch: branch,
				},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]schema.Document, 0, len(docs))
	for _, doc := range docs {
		if doc != nil {
			result = append(result, *doc)
		}
	}
	if len(result) == 0 {
		return nil, ErrNoFiles
	}
	logger.Info("repository loaded", "documents", len(result))
	return result, nil
}

func (c *Client) defaultBranch(ctx context.Context, token, fullName string) (string, error) {
	var payload repoResponse
	if err := c.get(ctx, token, "/repos/"+fullName, nil, &payload); err != nil {
		return "", err
	}
	if payload.DefaultBranch == "" {
		return DefaultBranch, nil
	}
	return payload.DefaultBranch, nil
}

func (c *Client) fetchTree(ctx context.Context, token, fullName, branch string) ([]treeEntry, bool, error) {
	var payload treeResponse
	p := fmt.Sprintf("/repos/%s/git/trees/%s", fullName, url.PathEscape(branch))
	if err := c.get(ctx, token, p, url.Values{"recursive": {"1"}}, &payload); err != nil {
		return nil, false, err
	}
	return payload.Tree, payload.Truncated, nil
}

func (c *Client) fetchContent(ctx context.Context, token, fullName, filePath, ref string) ([]byte, error) {
	var payload contentResponse
	p := fmt.Sprintf("/repos/%s/contents/%s", fullName, escapePath(filePath))
	if err := c.get(ctx, token, p, url.Values{"ref": {ref}}, &payload); err != nil {
		return nil, err
	}
	return decodeContent(payload.Content, payload.Encoding)
}

// selectFiles keeps blobs that are not ignored and fit the size limit.
func (c *Client) selectFiles(entries []treeEntry) []treeEntry {
	var files []treeEntry
	for _, entry := range entries {
		if entry.Type != "blob" {
			continue
		}
		if c.maxFileSize > 0 && entry.Size > c.maxFileSize {
			c.logger.Debug("skipping large file", "path", entry.Path, "size", entry.Size)
			continue
		}
		if isIgnored(entry.Path, c.ignorePatterns) {
			continue
		}
		files = append(files, entry)
	}
	return files
}

// isIgnored matches p against gitignore-like patterns:
// "dir/**" matches everything below dir, a pattern without a slash matches
// the file's base name anywhere in the tree, and anything else is matched
// against the full path.
func isIgnored(p string, patterns []string) bool {
	for _, pattern := range patterns {
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok {
			if p == dir || strings.HasPrefix(p, dir+"/") {
				return true
			}
			continue
		}
		target := p
		if !strings.Contains(pattern, "/") {
			target = path.Base(p)
		}
		if ok, _ := path.Match(pattern, target); ok {
			return true
		}
	}
	return false
}

func escapePath(p string) string {
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func decodeContent(body string, encoding string) ([]byte, error) {
	if encoding == "base64" {
		// GitHub wraps base64 content at 60 columns.
		return base64.StdEncoding.DecodeString(strings.ReplaceAll(strings.TrimSpace(body), "\n", ""))
	}
	return []byte(body), nil
}

func isLikelyBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if !utf8.Valid(data) {
		return true
	}
	for _, b := range data {
		if b == 0 {
			return true
		}
	}
	return false
}
