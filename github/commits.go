package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/poiesic/stackalchemy/core"
)

// DefaultCommitPageSize is how many recent commits ListCommits asks for.
const DefaultCommitPageSize = 10

// CommitInfo is one entry of a repository's commit list.
type CommitInfo struct {
	SHA          string
	Message      string
	AuthorName   string
	AuthorAvatar string
	Date         time.Time
}

// FileChange is one file touched by a commit.
type FileChange struct {
	Filename string
	Status   string
	Changes  int
	Patch    string
}

type commitAuthor struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date"`
}

type commitPayload struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string       `json:"message"`
		Author  commitAuthor `json:"author"`
	} `json:"commit"`
	Author *struct {
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	} `json:"author"`
	Files []struct {
		Filename string `json:"filename"`
		Status   string `json:"status"`
		Changes  int    `json:"changes"`
		Patch    string `json:"patch"`
	} `json:"files"`
}

func (p *commitPayload) info() CommitInfo {
	info := CommitInfo{
		SHA:        p.SHA,
		Message:    p.Commit.Message,
		AuthorName: p.Commit.Author.Name,
		Date:       p.Commit.Author.Date,
	}
	if p.Author != nil {
		info.AuthorAvatar = p.Author.AvatarURL
	}
	return info
}

// ListCommits returns the most recent commits of the default branch, newest
// first. perPage <= 0 uses DefaultCommitPageSize.
func (c *Client) ListCommits(ctx context.Context, owner, repo string, perPage int) ([]CommitInfo, error) {
	if perPage <= 0 {
		perPage = DefaultCommitPageSize
	}
	var payload []commitPayload
	p := fmt.Sprintf("/repos/%s/%s/commits", owner, repo)
	if err := c.get(ctx, "", p, url.Values{"per_page": {strconv.Itoa(perPage)}}, &payload); err != nil {
		return nil, err
	}
	commits := make([]CommitInfo, len(payload))
	for i := range payload {
		commits[i] = payload[i].info()
	}
	return commits, nil
}

// ListCommitsForURL is ListCommits for a repository URL.
func (c *Client) ListCommitsForURL(ctx context.Context, repoURL string, perPage int) ([]CommitInfo, error) {
	owner, repo, err := core.ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}
	return c.ListCommits(ctx, owner, repo, perPage)
}

// GetCommit returns the files changed by a single commit.
func (c *Client) GetCommit(ctx context.Context, owner, repo, sha string) ([]FileChange, error) {
	var payload commitPayload
	p := fmt.Sprintf("/repos/%s/%s/commits/%s", owner, repo, url.PathEscape(sha))
	if err := c.get(ctx, "", p, nil, &payload); err != nil {
		return nil, err
	}
	changes := make([]FileChange, len(payload.Files))
	for i, f := range payload.Files {
		changes[i] = FileChange{
			Filename: f.Filename,
			Status:   f.Status,
			Changes:  f.Changes,
			Patch:    f.Patch,
		}
	}
	return changes, nil
}
