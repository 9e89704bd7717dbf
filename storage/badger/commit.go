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

// CommitRepository implements storage.CommitRepository for BadgerDB.
type CommitRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.CommitRepository = (*CommitRepository)(nil)

// NewCommitRepository creates a new CommitRepository.
func NewCommitRepository(backend *Backend) (*CommitRepository, error) {
	idSeq, err := backend.GetSequence(commitIDSeq)
	if err != nil {
		return nil, err
	}
	return &CommitRepository{backend: backend, idSeq: idSeq}, nil
}

// Close releases the ID sequence.
func (r *CommitRepository) Close() error {
	return r.idSeq.Release()
}

// AddCommits inserts the commits whose (project, hash) key is not taken yet.
func (r *CommitRepository) AddCommits(ctx context.Context, commits ...*core.Commit) (int, error) {
	if len(commits) == 0 {
		return 0, nil
	}
	inserted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, commit := range commits {
			key := makeCommitKey(commit.ProjectId, commit.Hash)
			if _, err := tx.Get(key); err == nil {
				continue
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			commit.Id = id
			commit.InsertedAt = now
			if err := tx.Set(key, storage.MarshalCommit(commit)); err != nil {
				return err
			}
			inserted++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListCommitHashes returns the hashes stored for a project.
func (r *CommitRepository) ListCommitHashes(ctx context.Context, projectID core.ID) ([]string, error) {
	var hashes []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeKey(commitRecordPrefix, projectID)
		for _, key := range prefixKeys(tx, prefix) {
			hashes = append(hashes, string(key[len(prefix):]))
		}
		return nil
	}, false)
	return hashes, err
}

// ListCommits returns a project's commits, newest first.
func (r *CommitRepository) ListCommits(ctx context.Context, projectID core.ID) ([]*core.Commit, error) {
	var commits []*core.Commit
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		commits, err = scanPrefix(tx, makeKey(commitRecordPrefix, projectID), storage.UnmarshalCommit)
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(commits, func(a, b *core.Commit) int {
		return b.CommittedAt.Compare(a.CommittedAt)
	})
	return commits, nil
}
