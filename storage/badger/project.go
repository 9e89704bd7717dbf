package badger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
)

// ProjectRepository implements storage.ProjectRepository for BadgerDB.
type ProjectRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ProjectRepository = (*ProjectRepository)(nil)

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(backend *Backend) (*ProjectRepository, error) {
	idSeq, err := backend.GetSequence(projectIDSeq)
	if err != nil {
		return nil, err
	}
	return &ProjectRepository{backend: backend, idSeq: idSeq}, nil
}

// Close releases the ID sequence.
func (r *ProjectRepository) Close() error {
	return r.idSeq.Release()
}

// CreateProject stores the project and its owner link in one transaction.
func (r *ProjectRepository) CreateProject(ctx context.Context, project *core.Project, ownerID core.ID) (*core.Project, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(makeUserKey(ownerID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		project.Id = id
		project.CreatedAt = time.Now().UTC()
		project.DeletedAt = nil

		if err := tx.Set(makeProjectKey(project.Id), storage.MarshalProject(project)); err != nil {
			return err
		}
		link := &core.UserToProject{UserId: ownerID, ProjectId: project.Id, CreatedAt: project.CreatedAt}
		if err := tx.Set(makeUserProjectKey(ownerID, project.Id), storage.MarshalUserToProject(link)); err != nil {
			return err
		}
		if err := tx.Set(makeProjectUserKey(project.Id, ownerID), []byte{}); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject retrieves a project by ID.
func (r *ProjectRepository) GetProject(ctx context.Context, id core.ID) (*core.Project, error) {
	var project *core.Project
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		project, err = readValue(tx, makeProjectKey(id), storage.UnmarshalProject)
		return err
	}, false)
	return project, err
}

// FindProjectByRepoURL scans the user's live projects for a matching URL.
func (r *ProjectRepository) FindProjectByRepoURL(ctx context.Context, userID core.ID, repoURL string) (*core.Project, error) {
	projects, err := r.ListProjectsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.RepoURL == repoURL {
			return p, nil
		}
	}
	return nil, storage.ErrNotFound
}

// ListProjectsForUser follows the user's access links and drops soft-deleted projects.
func (r *ProjectRepository) ListProjectsForUser(ctx context.Context, userID core.ID) ([]*core.Project, error) {
	var projects []*core.Project
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeKey(userProjectPrefix, userID)
		for _, key := range prefixKeys(tx, prefix) {
			project, err := readValue(tx, makeProjectKey(idAt(key, len(prefix))), storage.UnmarshalProject)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if project.IsDeleted() {
				continue
			}
			projects = append(projects, project)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(projects, func(a, b *core.Project) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return projects, nil
}

// HasAccess reports whether the link exists and the project is live.
func (r *ProjectRepository) HasAccess(ctx context.Context, userID, projectID core.ID) (bool, error) {
	var ok bool
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(makeUserProjectKey(userID, projectID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		project, err := readValue(tx, makeProjectKey(projectID), storage.UnmarshalProject)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ok = !project.IsDeleted()
		return nil
	}, false)
	return ok, err
}

// SoftDeleteProject stamps DeletedAt and keeps every dependent record.
func (r *ProjectRepository) SoftDeleteProject(ctx context.Context, id core.ID, at time.Time) (*core.Project, error) {
	var project *core.Project
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		project, err = readValue(tx, makeProjectKey(id), storage.UnmarshalProject)
		if err != nil {
			return err
		}
		deletedAt := at.UTC()
		project.DeletedAt = &deletedAt
		if err := tx.Set(makeProjectKey(id), storage.MarshalProject(project)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return project, nil
}

// PurgeProject deletes embeddings, access links, commits, questions and
// finally the project row.
func (r *ProjectRepository) PurgeProject(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		var doomed [][]byte

		embeddingPrefix := makeKey(embeddingRecordPrefix, id)
		for _, key := range prefixKeys(tx, embeddingPrefix) {
			doomed = append(doomed, key, makeEmbeddingOwnerKey(idAt(key, len(embeddingPrefix))))
		}

		linkPrefix := makeKey(projectUserPrefix, id)
		for _, key := range prefixKeys(tx, linkPrefix) {
			doomed = append(doomed, key, makeUserProjectKey(idAt(key, len(linkPrefix)), id))
		}

		doomed = append(doomed, prefixKeys(tx, makeKey(commitRecordPrefix, id))...)
		doomed = append(doomed, prefixKeys(tx, makeKey(questionRecordPrefix, id))...)
		doomed = append(doomed, makeProjectKey(id))

		for _, key := range doomed {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}
