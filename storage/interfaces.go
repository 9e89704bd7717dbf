package storage

import (
	"context"
	"time"

	"github.com/poiesic/stackalchemy/core"
)

// Repository is the base interface shared by every repository.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// UserRepository provides access to users.
type UserRepository interface {
	Repository

	// AddUser stores a new user, assigning its ID and CreatedAt.
	// Returns ErrDuplicateKey if a user with the same email exists.
	AddUser(ctx context.Context, user *core.User) (*core.User, error)

	// GetUser retrieves a user by ID.
	// Returns ErrNotFound if the user doesn't exist.
	GetUser(ctx context.Context, id core.ID) (*core.User, error)

	// FindUserByEmail retrieves a user by email address.
	// Returns ErrNotFound if no user has that email.
	FindUserByEmail(ctx context.Context, email string) (*core.User, error)
}

// ProjectRepository provides operations for projects and their access links.
type ProjectRepository interface {
	Repository

	// CreateProject stores the project and a UserToProject link for ownerID
	// in a single transaction. Assigns the project ID and CreatedAt.
	CreateProject(ctx context.Context, project *core.Project, ownerID core.ID) (*core.Project, error)

	// GetProject retrieves a project by ID, including soft-deleted projects.
	// Returns ErrNotFound if the project doesn't exist.
	GetProject(ctx context.Context, id core.ID) (*core.Project, error)

	// FindProjectByRepoURL finds a non-deleted project with the given URL
	// that userID has access to.
	// Returns ErrNotFound if there is none.
	FindProjectByRepoURL(ctx context.Context, userID core.ID, repoURL string) (*core.Project, error)

	// ListProjectsForUser returns the non-deleted projects userID has access to,
	// ordered by creation time.
	ListProjectsForUser(ctx context.Context, userID core.ID) ([]*core.Project, error)

	// HasAccess reports whether userID holds a link to a non-deleted project.
	HasAccess(ctx context.Context, userID, projectID core.ID) (bool, error)

	// SoftDeleteProject sets DeletedAt on a project.
	// Returns ErrNotFound if the project doesn't exist.
	SoftDeleteProject(ctx context.Context, id core.ID, at time.Time) (*core.Project, error)

	// PurgeProject removes a project together with its embeddings, access
	// links, commits and questions in a single transaction.
	// Purging a missing project is not an error.
	PurgeProject(ctx context.Context, id core.ID) error
}

// EmbeddingRepository provides operations for per-file source code embeddings.
type EmbeddingRepository interface {
	Repository

	// AddEmbedding stores the scalar part of an embedding (file name, source,
	// summary, checksum). The vector is written separately by SetEmbeddingVector.
	// Assigns the ID and CreatedAt.
	AddEmbedding(ctx context.Context, embedding *core.SourceCodeEmbedding) (*core.SourceCodeEmbedding, error)

	// SetEmbeddingVector writes the summary vector of an existing embedding.
	// Returns ErrNotFound if the embedding doesn't exist.
	SetEmbeddingVector(ctx context.Context, id core.ID, vector []float32) error

	// GetEmbedding retrieves a single embedding by ID.
	// Returns ErrNotFound if the embedding doesn't exist.
	GetEmbedding(ctx context.Context, id core.ID) (*core.SourceCodeEmbedding, error)

	// ListEmbeddings returns every embedding of a project ordered by ID.
	ListEmbeddings(ctx context.Context, projectID core.ID) ([]*core.SourceCodeEmbedding, error)

	// CountEmbeddings returns the number of embeddings stored for a project.
	CountEmbeddings(ctx context.Context, projectID core.ID) (int, error)

	// FindSimilar finds a project's embeddings whose vectors are similar to vector.
	// Returns records with cosine similarity >= minSimilarity, up to limit results,
	// highest similarity first. Embeddings without a vector are skipped.
	FindSimilar(ctx context.Context, projectID core.ID, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)
}

// CommitRepository provides operations for summarized commits.
type CommitRepository interface {
	Repository

	// AddCommits inserts commits in one batch. Commits whose (project, hash)
	// already exists are skipped silently. Returns the number inserted.
	AddCommits(ctx context.Context, commits ...*core.Commit) (int, error)

	// ListCommitHashes returns the hashes already stored for a project.
	ListCommitHashes(ctx context.Context, projectID core.ID) ([]string, error)

	// ListCommits returns a project's commits, most recent CommittedAt first.
	ListCommits(ctx context.Context, projectID core.ID) ([]*core.Commit, error)
}

// QuestionRepository provides operations for saved questions.
type QuestionRepository interface {
	Repository

	// AddQuestion stores a question/answer pair. Assigns the ID and CreatedAt.
	AddQuestion(ctx context.Context, question *core.Question) (*core.Question, error)

	// ListQuestions returns a project's saved questions, newest first.
	ListQuestions(ctx context.Context, projectID core.ID) ([]*core.Question, error)
}

// Store bundles the repositories of one backend.
type Store interface {
	Users() UserRepository
	Projects() ProjectRepository
	Embeddings() EmbeddingRepository
	Commits() CommitRepository
	Questions() QuestionRepository

	// Close closes every repository and the underlying backend.
	Close() error
}
