package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore opens the database named by TEST_POSTGRES_DSN with an empty schema.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set TEST_POSTGRES_DSN to run postgres integration tests")
	}

	store, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	err = store.DB().Exec(`TRUNCATE questions, commits, source_code_embeddings, user_to_projects, projects, users RESTART IDENTITY CASCADE`).Error
	require.NoError(t, err)
	return store
}

func seed(t *testing.T, store *Store, url string) (*core.User, *core.Project) {
	t.Helper()
	ctx := context.Background()
	user, err := store.Users().FindUserByEmail(ctx, "owner@example.com")
	if err != nil {
		user, err = store.Users().AddUser(ctx, &core.User{Email: "owner@example.com", Name: "Owner"})
		require.NoError(t, err)
	}
	project, err := store.Projects().CreateProject(ctx, &core.Project{Name: "Widgets", RepoURL: url}, user.Id)
	require.NoError(t, err)
	return user, project
}

func TestUsers(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user, err := store.Users().AddUser(ctx, &core.User{Email: "dev@example.com", Name: "Dev"})
	require.NoError(t, err)
	assert.NotZero(t, user.Id)

	_, err = store.Users().AddUser(ctx, &core.User{Email: "dev@example.com"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.Users().GetUser(ctx, 424242)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProjectsLifecycle(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	owner, project := seed(t, store, "https://github.com/acme/widgets")

	found, err := store.Projects().FindProjectByRepoURL(ctx, owner.Id, "https://github.com/acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, project.Id, found.Id)

	ok, err := store.Projects().HasAccess(ctx, owner.Id, project.Id)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.Projects().SoftDeleteProject(ctx, project.Id, time.Now())
	require.NoError(t, err)

	projects, err := store.Projects().ListProjectsForUser(ctx, owner.Id)
	require.NoError(t, err)
	assert.Empty(t, projects)

	_, err = store.Projects().FindProjectByRepoURL(ctx, owner.Id, "https://github.com/acme/widgets")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEmbeddingsVectorAndSearch(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	_, project := seed(t, store, "https://github.com/acme/widgets")

	exact, err := store.Embeddings().AddEmbedding(ctx, &core.SourceCodeEmbedding{ProjectId: project.Id, FileName: "exact.go", SourceCode: "x", Summary: "x"})
	require.NoError(t, err)
	far, err := store.Embeddings().AddEmbedding(ctx, &core.SourceCodeEmbedding{ProjectId: project.Id, FileName: "far.go", SourceCode: "y", Summary: "y"})
	require.NoError(t, err)
	_, err = store.Embeddings().AddEmbedding(ctx, &core.SourceCodeEmbedding{ProjectId: project.Id, FileName: "pending.go", SourceCode: "z", Summary: "z"})
	require.NoError(t, err)

	require.NoError(t, store.Embeddings().SetEmbeddingVector(ctx, exact.Id, []float32{1, 0, 0}))
	require.NoError(t, store.Embeddings().SetEmbeddingVector(ctx, far.Id, []float32{0, 1, 0}))
	assert.ErrorIs(t, store.Embeddings().SetEmbeddingVector(ctx, 999999, []float32{1, 0, 0}), storage.ErrNotFound)

	got, err := store.Embeddings().GetEmbedding(ctx, exact.Id)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, got.Vector)

	results, err := store.Embeddings().FindSimilar(ctx, project.Id, []float32{1, 0, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "exact.go", results[0].Embedding.FileName)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)

	count, err := store.Embeddings().CountEmbeddings(ctx, project.Id)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCommitsSkipDuplicates(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	_, project := seed(t, store, "https://github.com/acme/widgets")
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := store.Commits().AddCommits(ctx,
		&core.Commit{ProjectId: project.Id, Hash: "aaa", CommittedAt: at},
		&core.Commit{ProjectId: project.Id, Hash: "bbb", CommittedAt: at.Add(time.Minute)},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.Commits().AddCommits(ctx, &core.Commit{ProjectId: project.Id, Hash: "aaa", CommittedAt: at})
	require.NoError(t, err)
	assert.Zero(t, n)

	commits, err := store.Commits().ListCommits(ctx, project.Id)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "bbb", commits[0].Hash)
}

func TestQuestionsAndPurge(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	owner, project := seed(t, store, "https://github.com/acme/widgets")

	_, err := store.Questions().AddQuestion(ctx, &core.Question{
		ProjectId: project.Id,
		UserId:    owner.Id,
		Question:  "What does main do?",
		Answer:    "Starts the server.",
		FileReferences: []core.FileReference{
			{FileName: "main.go", SourceCode: "package main", Summary: "entry"},
		},
	})
	require.NoError(t, err)

	questions, err := store.Questions().ListQuestions(ctx, project.Id)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, []core.FileReference{{FileName: "main.go", SourceCode: "package main", Summary: "entry"}}, questions[0].FileReferences)

	_, err = store.Embeddings().AddEmbedding(ctx, &core.SourceCodeEmbedding{ProjectId: project.Id, FileName: "main.go"})
	require.NoError(t, err)
	_, err = store.Commits().AddCommits(ctx, &core.Commit{ProjectId: project.Id, Hash: "aaa", CommittedAt: time.Now()})
	require.NoError(t, err)

	require.NoError(t, store.Projects().PurgeProject(ctx, project.Id))

	_, err = store.Projects().GetProject(ctx, project.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	count, err := store.Embeddings().CountEmbeddings(ctx, project.Id)
	require.NoError(t, err)
	assert.Zero(t, count)
	questions, err = store.Questions().ListQuestions(ctx, project.Id)
	require.NoError(t, err)
	assert.Empty(t, questions)
}
