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

package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/stackalchemy/ai"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/ingestion"
	"github.com/poiesic/stackalchemy/storage"
	"github.com/poiesic/stackalchemy/tasks"
)

// DefaultTopK is how many files are retrieved as context for an answer.
const DefaultTopK = 10

// Indexer fetches a repository and stores embeddings for its files.
type Indexer interface {
	Index(ctx context.Context, projectID core.ID, repoURL, token string) (ingestion.IndexResult, error)
}

// CommitPoller stores a project's new upstream commits.
type CommitPoller interface {
	Poll(ctx context.Context, projectID core.ID) ([]*core.Commit, error)
}

// Retriever finds the stored files most relevant to a question.
type Retriever interface {
	FindRelevant(ctx context.Context, projectID core.ID, query string, limit int) ([]*core.SearchResult, error)
}

// Service implements the project procedures.
type Service struct {
	store     storage.Store
	indexer   Indexer
	poller    CommitPoller
	retriever Retriever
	answerer  ai.Answerer
	queue     *tasks.Queue
	ownsQueue bool
	topK      int
	observer  StateObserver
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithQueue sets the queue used for background commit polls.
// Default is a queue owned and released by the service.
func WithQueue(q *tasks.Queue) Option {
	return func(s *Service) error {
		if q == nil {
			return fmt.Errorf("task queue is nil")
		}
		s.queue = q
		return nil
	}
}

// WithTopK sets how many files are used as context when answering.
// Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(s *Service) error {
		if k < 1 {
			return fmt.Errorf("top-k must be positive, got %d", k)
		}
		s.topK = k
		return nil
	}
}

// WithStateObserver registers a callback for project creation states.
func WithStateObserver(observer StateObserver) Option {
	return func(s *Service) error {
		s.observer = observer
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates the procedure layer over its collaborators.
func NewService(
	store storage.Store,
	indexer Indexer,
	poller CommitPoller,
	retriever Retriever,
	answerer ai.Answerer,
	opts ...Option,
) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("store is required")
	case indexer == nil:
		return nil, errors.New("indexer is required")
	case poller == nil:
		return nil, errors.New("commit poller is required")
	case retriever == nil:
		return nil, errors.New("retriever is required")
	case answerer == nil:
		return nil, errors.New("answerer is required")
	}

	s := &Service{
		store:     store,
		indexer:   indexer,
		poller:    poller,
		retriever: retriever,
		answerer:  answerer,
		topK:      DefaultTopK,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "projects")

	if s.queue == nil {
		q, err := tasks.NewQueue(tasks.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
		s.queue = q
		s.ownsQueue = true
	}
	return s, nil
}

// Close releases the background queue if the service created it.
func (s *Service) Close() {
	if s.ownsQueue {
		s.queue.Release()
	}
}

// WaitForBackground blocks until queued background work has finished.
func (s *Service) WaitForBackground() {
	s.queue.Wait()
}

// ListProjects returns the caller's non-deleted projects.
func (s *Service) ListProjects(ctx context.Context) ([]*core.Project, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := s.store.Projects().ListProjectsForUser(ctx, userID)
	if err != nil {
		return nil, Normalize(err)
	}
	return projects, nil
}

// GetCommits schedules a background poll for new upstream commits and
// returns the commits already stored, newest first. The poll is not awaited;
// its results show up on a later call.
func (s *Service) GetCommits(ctx context.Context, projectID core.ID) ([]*core.Commit, error) {
	if _, err := s.authorize(ctx, projectID, MsgProjectNotFound); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("poll-commits:%d", projectID)
	err := s.queue.Submit(key, func(ctx context.Context) error {
		_, err := s.poller.Poll(ctx, projectID)
		return err
	})
	switch {
	case errors.Is(err, tasks.ErrDuplicateTask):
		s.logger.Debug("commit poll already pending", "project", projectID)
	case errors.Is(err, tasks.ErrQueueFull):
		s.logger.Info("commit poll skipped, all workers busy", "project", projectID)
	case err != nil:
		s.logger.Warn("could not schedule commit poll", "project", projectID, "err", err)
	}

	stored, err := s.store.Commits().ListCommits(ctx, projectID)
	if err != nil {
		return nil, Normalize(err)
	}
	return stored, nil
}

// SaveAnswerInput is a question/answer pair the user chose to keep.
type SaveAnswerInput struct {
	ProjectID      core.ID
	Question       string
	Answer         string
	FileReferences []core.FileReference
}

// SaveAnswer stores a question with its answer and the files it was based on.
func (s *Service) SaveAnswer(ctx context.Context, input SaveAnswerInput) (*core.Question, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	q := &core.Question{
		ProjectId:      input.ProjectID,
		UserId:         userID,
		Question:       input.Question,
		Answer:         input.Answer,
		FileReferences: input.FileReferences,
	}
	if err := core.ValidateQuestion(q); err != nil {
		return nil, Normalize(err)
	}
	if _, err := s.authorize(ctx, input.ProjectID, MsgProjectNotFound); err != nil {
		return nil, err
	}

	saved, err := s.store.Questions().AddQuestion(ctx, q)
	if err != nil {
		return nil, Normalize(err)
	}
	return saved, nil
}

// ListQuestions returns the saved questions of a project, newest first.
func (s *Service) ListQuestions(ctx context.Context, projectID core.ID) ([]*core.Question, error) {
	if _, err := s.authorize(ctx, projectID, MsgProjectNotFound); err != nil {
		return nil, err
	}
	questions, err := s.store.Questions().ListQuestions(ctx, projectID)
	if err != nil {
		return nil, Normalize(err)
	}
	return questions, nil
}

// DeleteProject soft-deletes a project the caller has access to.
func (s *Service) DeleteProject(ctx context.Context, projectID core.ID) (*core.Project, error) {
	if _, err := s.authorize(ctx, projectID, MsgCannotDelete); err != nil {
		return nil, err
	}
	project, err := s.store.Projects().SoftDeleteProject(ctx, projectID, s.now())
	if err != nil {
		return nil, Normalize(err)
	}
	s.logger.Info("project deleted", "project", projectID)
	return project, nil
}

// Answer is a generated answer and the files it was built from.
type Answer struct {
	Text           string
	FileReferences []core.FileReference
}

// AskQuestion answers a question about a project from its most relevant
// files. The answer streams through onChunk, which may be nil, and is also
// returned in full.
func (s *Service) AskQuestion(ctx context.Context, projectID core.ID, question string, onChunk ai.ChunkFunc) (*Answer, error) {
	if _, err := s.authorize(ctx, projectID, MsgProjectNotFound); err != nil {
		return nil, err
	}

	hits, err := s.retriever.FindRelevant(ctx, projectID, question, s.topK)
	if err != nil {
		return nil, Normalize(err)
	}
	refs := make([]core.FileReference, len(hits))
	for i, hit := range hits {
		refs[i] = hit.Reference()
	}

	text, err := s.answerer.Answer(ctx, question, refs, onChunk)
	if err != nil {
		s.logger.Error("failed to generate answer", "project", projectID, "err", err)
		return nil, Normalize(err)
	}
	return &Answer{Text: text, FileReferences: refs}, nil
}

// authorize checks the caller is signed in and may see projectID. A
// project the caller cannot access is reported as not found with message.
func (s *Service) authorize(ctx context.Context, projectID core.ID, message string) (core.ID, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return 0, err
	}
	ok, err := s.store.Projects().HasAccess(ctx, userID, projectID)
	if err != nil {
		return 0, Normalize(err)
	}
	if !ok {
		return 0, newError(CodeNotFound, message, nil)
	}
	return userID, nil
}
