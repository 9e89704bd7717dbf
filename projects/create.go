package projects

import (
	"context"
	"errors"

	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/saga"
	"github.com/poiesic/stackalchemy/storage"
)

// State is a step of project creation.
type State string

const (
	StateValidating     State = "validating"
	StateCreatingRow    State = "creating_row"
	StateIndexing       State = "indexing"
	StatePollingCommits State = "polling_commits"
	StateDone           State = "done"
	// StateRolledBack follows a failed indexing step once the project and
	// everything stored for it has been removed.
	StateRolledBack State = "rolled_back"
)

// StateObserver is told about every state CreateProject enters.
// projectID is zero until the project row exists.
type StateObserver func(projectID core.ID, state State)

// CreateProjectInput describes a new project.
type CreateProjectInput struct {
	Name        string
	RepoURL     string
	GitHubToken string // Optional, for private repositories
}

// CreateProject creates a project for the caller, indexes its repository and
// loads its recent commits.
//
// If indexing stores no file at all, the project is removed again together
// with its access link and anything stored for it, and the indexing error is
// returned. A failed commit poll is logged and does not fail creation.
func (s *Service) CreateProject(ctx context.Context, input CreateProjectInput) (*core.Project, error) {
	s.enter(0, StateValidating)
	candidate := &core.Project{Name: input.Name, RepoURL: input.RepoURL}
	if err := core.ValidateProject(candidate); err != nil {
		return nil, Normalize(err)
	}
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Users().GetUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(CodeNotFound, MsgUserNotFound, err)
		}
		return nil, Normalize(err)
	}

	existing, err := s.store.Projects().FindProjectByRepoURL(ctx, userID, input.RepoURL)
	switch {
	case err == nil && existing != nil:
		return nil, newError(CodeConflict, MsgDuplicateURL, nil)
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, Normalize(err)
	}

	s.enter(0, StateCreatingRow)
	project, err := s.store.Projects().CreateProject(ctx, candidate, userID)
	if err != nil {
		return nil, Normalize(err)
	}
	logger := s.logger.With("project", project.Id, "user", userID)

	tx := saga.New("create-project", logger)
	if err := tx.Record("purge-project", func(ctx context.Context) error {
		return s.store.Projects().PurgeProject(ctx, project.Id)
	}); err != nil {
		return nil, Normalize(err)
	}

	s.enter(project.Id, StateIndexing)
	result, err := s.indexer.Index(ctx, project.Id, input.RepoURL, input.GitHubToken)
	if err != nil {
		logger.Error("indexing failed, removing project", "err", err)
		// The caller's context may be the reason indexing failed; cleanup
		// must still run.
		if cerr := tx.Compensate(context.WithoutCancel(ctx)); cerr != nil {
			logger.Error("failed to remove project after indexing failure", "saga_id", tx.ID(), "err", cerr)
			return nil, Normalize(errors.Join(err, cerr))
		}
		s.enter(project.Id, StateRolledBack)
		return nil, Normalize(err)
	}
	logger.Info("repository indexed", "files", result.Total, "indexed", result.Succeeded, "failed", result.Failed)

	s.enter(project.Id, StatePollingCommits)
	if _, err := s.poller.Poll(ctx, project.Id); err != nil {
		logger.Warn("error polling commits", "err", err)
	}

	if err := tx.Succeed(); err != nil {
		logger.Warn("saga already finished", "err", err)
	}
	s.enter(project.Id, StateDone)
	return project, nil
}

func (s *Service) enter(projectID core.ID, state State) {
	s.logger.Debug("create project", "project", projectID, "state", state)
	if s.observer != nil {
		s.observer(projectID, state)
	}
}
