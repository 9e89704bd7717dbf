// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/stackalchemy/ai"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/github"
	"github.com/poiesic/stackalchemy/storage"
)

// Source lists upstream commits and their diffs.
type Source interface {
	ListCommitsForURL(ctx context.Context, repoURL string, perPage int) ([]github.CommitInfo, error)
	GetCommit(ctx context.Context, owner, repo, sha string) ([]github.FileChange, error)
}

// Poller fetches, summarizes and stores new commits of a project.
type Poller struct {
	projects   storage.ProjectRepository
	commits    storage.CommitRepository
	source     Source
	summarizer ai.Summarizer
	pool       *ants.Pool
	perPage    int
	logger     *slog.Logger
}

// Option configures a Poller.
type Option func(*Poller) error

// WithPoolSize sets how many commits are summarized at once.
// Default is 4.
func WithPoolSize(size int) Option {
	return func(p *Poller) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithPageSize sets how many recent commits are considered per poll.
// Default is github.DefaultCommitPageSize.
func WithPageSize(n int) Option {
	return func(p *Poller) error {
		if n < 1 {
			return fmt.Errorf("page size must be positive, got %d", n)
		}
		p.perPage = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPoller creates a commit poller.
func NewPoller(
	projects storage.ProjectRepository,
	commits storage.CommitRepository,
	source Source,
	summarizer ai.Summarizer,
	opts ...Option,
) (*Poller, error) {
	if projects == nil {
		return nil, ErrProjectRepositoryRequired
	}
	if commits == nil {
		return nil, ErrCommitRepositoryRequired
	}
	if source == nil {
		return nil, ErrSourceRequired
	}
	if summarizer == nil {
		return nil, ErrSummarizerRequired
	}

	pool, err := ants.NewPool(4)
	if err != nil {
		return nil, err
	}
	p := &Poller{
		projects:   projects,
		commits:    commits,
		source:     source,
		summarizer: summarizer,
		pool:       pool,
		perPage:    github.DefaultCommitPageSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "commit-poller")
	return p, nil
}

// Poll stores the project's recent upstream commits that are not stored yet
// and returns them. Polling again without new upstream commits returns an
// empty slice.
//
// A commit whose diff cannot be fetched or summarized is still stored, with
// an empty summary.
func (p *Poller) Poll(ctx context.Context, projectID core.ID) ([]*core.Commit, error) {
	project, err := p.projects.GetProject(ctx, projectID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && project.IsDeleted()) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	owner, repo, err := core.ParseRepoURL(project.RepoURL)
	if err != nil {
		return nil, err
	}
	logger := p.logger.With("project", projectID)

	upstream, err := p.source.ListCommitsForURL(ctx, project.RepoURL, p.perPage)
	if err != nil {
		return nil, fmt.Errorf("listing commits: %w", err)
	}
	stored, err := p.commits.ListCommitHashes(ctx, projectID)
	if err != nil {
		return nil, err
	}
	unseen := slices.DeleteFunc(upstream, func(c github.CommitInfo) bool {
		return slices.Contains(stored, c.SHA)
	})
	if len(unseen) == 0 {
		logger.Debug("no new commits")
		return []*core.Commit{}, nil
	}

	commits := make([]*core.Commit, 0, len(unseen))
	for _, info := range unseen {
		c := &core.Commit{
			ProjectId:    projectID,
			Hash:         info.SHA,
			Message:      info.Message,
			AuthorName:   info.AuthorName,
			AuthorAvatar: info.AuthorAvatar,
			CommittedAt:  info.Date,
		}
		if err := core.ValidateCommit(c); err != nil {
			logger.Warn("skipping invalid upstream commit", "message", info.Message, "err", err)
			continue
		}
		commits = append(commits, c)
	}
	if len(commits) == 0 {
		return []*core.Commit{}, nil
	}

	var wg sync.WaitGroup
	for _, c := range commits {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			c.Summary = p.summarize(ctx, logger, owner, repo, c.Hash)
		}
		if err := p.pool.Submit(task); err != nil {
			logger.Warn("commit pool rejected task, summarizing inline", "err", err)
			task()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, c := range commits {
		c.InsertedAt = now
	}

	inserted, err := p.commits.AddCommits(ctx, commits...)
	if err != nil {
		return nil, err
	}
	logger.Info("commits polled", "new", len(commits), "inserted", inserted)
	return commits, nil
}

func (p *Poller) summarize(ctx context.Context, logger *slog.Logger, owner, repo, sha string) string {
	files, err := p.source.GetCommit(ctx, owner, repo, sha)
	if err != nil {
		logger.Warn("failed to fetch commit diff", "commit", sha, "err", err)
		return ""
	}
	summary, err := p.summarizer.SummarizeCommit(ctx, FormatDiff(files))
	if err != nil {
		logger.Warn("failed to summarize commit", "commit", sha, "err", err)
		return ""
	}
	return summary
}

// Release stops the worker pool.
func (p *Poller) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
