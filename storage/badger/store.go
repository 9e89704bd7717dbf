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

package badger

import (
	"errors"

	"github.com/poiesic/stackalchemy/storage"
)

// Store implements storage.Store on a single BadgerDB backend.
type Store struct {
	backend    *Backend
	users      *UserRepository
	projects   *ProjectRepository
	embeddings *EmbeddingRepository
	commits    *CommitRepository
	questions  *QuestionRepository
}

var _ storage.Store = (*Store)(nil)

// OpenStore opens (or creates) a BadgerDB store at path.
func OpenStore(path string) (*Store, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return NewStore(backend)
}

// NewMemoryStore creates an in-memory store for testing.
// Caller must close the store when done.
func NewMemoryStore() (*Store, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return NewStore(backend)
}

// NewStore builds every repository on top of backend. The store takes
// ownership of backend and closes it on failure.
func NewStore(backend *Backend) (*Store, error) {
	s := &Store{backend: backend}
	var err error
	if s.users, err = NewUserRepository(backend); err != nil {
		return nil, s.abort(err)
	}
	if s.projects, err = NewProjectRepository(backend); err != nil {
		return nil, s.abort(err)
	}
	if s.embeddings, err = NewEmbeddingRepository(backend); err != nil {
		return nil, s.abort(err)
	}
	if s.commits, err = NewCommitRepository(backend); err != nil {
		return nil, s.abort(err)
	}
	if s.questions, err = NewQuestionRepository(backend); err != nil {
		return nil, s.abort(err)
	}
	return s, nil
}

func (s *Store) abort(cause error) error {
	return errors.Join(cause, s.Close())
}

func (s *Store) Users() storage.UserRepository           { return s.users }
func (s *Store) Projects() storage.ProjectRepository     { return s.projects }
func (s *Store) Embeddings() storage.EmbeddingRepository { return s.embeddings }
func (s *Store) Commits() storage.CommitRepository       { return s.commits }
func (s *Store) Questions() storage.QuestionRepository   { return s.questions }

// Close releases every repository sequence, then closes the backend.
func (s *Store) Close() error {
	var repos []storage.Repository
	if s.users != nil {
		repos = append(repos, s.users)
	}
	if s.projects != nil {
		repos = append(repos, s.projects)
	}
	if s.embeddings != nil {
		repos = append(repos, s.embeddings)
	}
	if s.commits != nil {
		repos = append(repos, s.commits)
	}
	if s.questions != nil {
		repos = append(repos, s.questions)
	}

	var errs []error
	for _, repo := range repos {
		if err := repo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if !s.backend.IsClosed() {
		if err := s.backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
