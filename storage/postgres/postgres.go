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

// Package postgres implements the storage interfaces on PostgreSQL with the
// pgvector extension. Schema changes are applied by embedded golang-migrate
// migrations; summary vectors live in an untyped vector column.
package postgres

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/poiesic/stackalchemy/storage"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements storage.Store on a gorm connection.
type Store struct {
	db         *gorm.DB
	logger     *slog.Logger
	queryLog   bool
	users      *UserRepository
	projects   *ProjectRepository
	embeddings *EmbeddingRepository
	commits    *CommitRepository
	questions  *QuestionRepository
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger used for store and gorm output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithQueryLogging routes every SQL statement to the logger at debug level.
func WithQueryLogging(enabled bool) Option {
	return func(s *Store) error {
		s.queryLog = enabled
		return nil
	}
}

// Open connects to dsn, applies pending migrations and returns the store.
func Open(dsn string, opts ...Option) (*Store, error) {
	s := &Store{logger: slog.Default().With("component", "postgres")}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	level := gormLogger.Silent
	if s.queryLog {
		level = gormLogger.Info
	}
	gormLog := gormLogger.New(
		slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := Migrate(db); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, err
	}

	s.bind(db)
	s.logger.Info("postgres store ready")
	return s, nil
}

// New wraps an already migrated gorm connection.
func New(db *gorm.DB) *Store {
	s := &Store{logger: slog.Default().With("component", "postgres")}
	s.bind(db)
	return s
}

func (s *Store) bind(db *gorm.DB) {
	s.db = db
	s.users = &UserRepository{db: db}
	s.projects = &ProjectRepository{db: db}
	s.embeddings = &EmbeddingRepository{db: db}
	s.commits = &CommitRepository{db: db}
	s.questions = &QuestionRepository{db: db}
}

// Migrate runs every pending embedded migration.
func Migrate(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// DB exposes the underlying gorm handle.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Users() storage.UserRepository           { return s.users }
func (s *Store) Projects() storage.ProjectRepository     { return s.projects }
func (s *Store) Embeddings() storage.EmbeddingRepository { return s.embeddings }
func (s *Store) Commits() storage.CommitRepository       { return s.commits }
func (s *Store) Questions() storage.QuestionRepository   { return s.questions }

// Close closes the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm errors onto the storage sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", storage.ErrDuplicateKey, err)
	default:
		return err
	}
}
