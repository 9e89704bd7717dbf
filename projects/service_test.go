package projects

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/stackalchemy/ai"
	"github.com/poiesic/stackalchemy/ai/mock"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/github"
	"github.com/poiesic/stackalchemy/ingestion"
	"github.com/poiesic/stackalchemy/search"
	"github.com/poiesic/stackalchemy/storage"
	"github.com/poiesic/stackalchemy/storage/badger"
	"github.com/poiesic/stackalchemy/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const widgetsURL = "https://github.com/acme/widgets"

// fakeIndexer stores one embedding per file, or fails.
type fakeIndexer struct {
	store    storage.Store
	embedder *mock.MockEmbedder
	files    []string
	err      error
	calls    atomic.Int32
	// leftover is a commit hash stored before a failing Index returns.
	leftover string
}

func (f *fakeIndexer) Index(ctx context.Context, projectID core.ID, repoURL, token string) (ingestion.IndexResult, error) {
	f.calls.Add(1)
	result := ingestion.IndexResult{Total: len(f.files)}
	for _, name := range f.files {
		summary := "summary of " + name
		e, err := f.store.Embeddings().AddEmbedding(ctx, &core.SourceCodeEmbedding{
			ProjectId: projectID, FileName: name, SourceCode: "// " + name, Summary: summary,
		})
		if err != nil {
			return result, err
		}
		vector, _ := f.embedder.EmbedText(ctx, summary)
		if err := f.store.Embeddings().SetEmbeddingVector(ctx, e.Id, vector); err != nil {
			return result, err
		}
		result.Succeeded++
	}
	if f.err != nil {
		if f.leftover != "" {
			if _, err := f.store.Commits().AddCommits(ctx, &core.Commit{ProjectId: projectID, Hash: f.leftover}); err != nil {
				return result, err
			}
		}
		return result, f.err
	}
	return result, nil
}

type fakePoller struct {
	store storage.Store
	err   error
	mu    sync.Mutex
	polls []core.ID
	block chan struct{}
}

func (f *fakePoller) Poll(ctx context.Context, projectID core.ID) ([]*core.Commit, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.polls = append(f.polls, projectID)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c := &core.Commit{ProjectId: projectID, Hash: "abc123", Message: "init", CommittedAt: time.Now()}
	if _, err := f.store.Commits().AddCommits(ctx, c); err != nil {
		return nil, err
	}
	return []*core.Commit{c}, nil
}

func (f *fakePoller) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.polls)
}

type fixture struct {
	store    *badger.Store
	service  *Service
	indexer  *fakeIndexer
	poller   *fakePoller
	provider *mock.MockProvider
	user     *core.User
	ctx      context.Context
	states   []State
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	provider := mock.NewMockProvider()
	f := &fixture{
		store:    store,
		provider: provider,
		indexer:  &fakeIndexer{store: store, embedder: provider.GetMockEmbedder(), files: []string{"main.go", "util.go"}},
		poller:   &fakePoller{store: store},
	}

	searcher, err := search.NewSearcher(store.Embeddings(), provider.Embedder(), search.WithMinSimilarity(-1))
	require.NoError(t, err)
	queue, err := tasks.NewQueue(tasks.WithRetry(1, time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(queue.Release)

	opts = append([]Option{
		WithQueue(queue),
		WithStateObserver(func(_ core.ID, s State) { f.states = append(f.states, s) }),
	}, opts...)
	f.service, err = NewService(store, f.indexer, f.poller, searcher, provider.Answerer(), opts...)
	require.NoError(t, err)
	t.Cleanup(f.service.Close)

	f.user, err = store.Users().AddUser(context.Background(), &core.User{Email: "dev@example.com", Name: "Dev"})
	require.NoError(t, err)
	f.ctx = WithUser(context.Background(), f.user.Id)
	return f
}

func (f *fixture) create(t *testing.T) *core.Project {
	t.Helper()
	p, err := f.service.CreateProject(f.ctx, CreateProjectInput{Name: "Widgets", RepoURL: widgetsURL})
	require.NoError(t, err)
	return p
}

func requireCode(t *testing.T, err error, code Code) *Error {
	t.Helper()
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, code, e.Code, "message: %s", e.Message)
	return e
}

func TestCreateProject_Success(t *testing.T) {
	f := newFixture(t)

	project := f.create(t)
	assert.NotZero(t, project.Id)
	assert.Equal(t, "Widgets", project.Name)
	assert.Equal(t, widgetsURL, project.RepoURL)
	assert.Equal(t, []State{StateValidating, StateCreatingRow, StateIndexing, StatePollingCommits, StateDone}, f.states)

	projects, err := f.service.ListProjects(f.ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)

	count, err := f.store.Embeddings().CountEmbeddings(f.ctx, project.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stored, err := f.store.Commits().ListCommits(f.ctx, project.Id)
	require.NoError(t, err)
	assert.Len(t, stored, 1, "commits are polled during creation")
}

func TestCreateProject_Conflict(t *testing.T) {
	f := newFixture(t)
	f.create(t)

	_, err := f.service.CreateProject(f.ctx, CreateProjectInput{Name: "Again", RepoURL: widgetsURL})
	e := requireCode(t, err, CodeConflict)
	assert.Equal(t, MsgDuplicateURL, e.Message)
	assert.Equal(t, int32(1), f.indexer.calls.Load())

	projects, err := f.service.ListProjects(f.ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1, "no new rows")
}

func TestCreateProject_DeletedProjectDoesNotConflict(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)
	_, err := f.service.DeleteProject(f.ctx, p.Id)
	require.NoError(t, err)

	again, err := f.service.CreateProject(f.ctx, CreateProjectInput{Name: "Widgets", RepoURL: widgetsURL})
	require.NoError(t, err)
	assert.NotEqual(t, p.Id, again.Id)
}

func TestCreateProject_IndexFailureCompensates(t *testing.T) {
	f := newFixture(t)
	f.indexer.err = ingestion.ErrNothingIndexed
	f.indexer.leftover = "abc123"

	_, err := f.service.CreateProject(f.ctx, CreateProjectInput{Name: "Widgets", RepoURL: widgetsURL})
	e := requireCode(t, err, CodeBadRequest)
	assert.Equal(t, "Failed to index any files from the repository", e.Message)
	assert.ErrorIs(t, err, ingestion.ErrNothingIndexed)
	assert.Equal(t, StateRolledBack, f.states[len(f.states)-1])
	assert.Zero(t, f.poller.count(), "no polling after a failed index")

	// Project ID 1 was the only one created; everything for it is gone.
	_, err = f.store.Projects().GetProject(f.ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	count, err := f.store.Embeddings().CountEmbeddings(f.ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
	ok, err := f.store.Projects().HasAccess(f.ctx, f.user.Id, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	hashes, err := f.store.Commits().ListCommitHashes(f.ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, hashes)
	projects, err := f.service.ListProjects(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
	_, err = f.service.GetCommits(f.ctx, 1)
	assert.Error(t, err)
}

func TestCreateProject_FetchErrorMessages(t *testing.T) {
	for _, cause := range []error{github.ErrRepositoryNotFound, github.ErrAccessDenied, github.ErrNoFiles} {
		t.Run(cause.Error(), func(t *testing.T) {
			f := newFixture(t)
			f.indexer.files = nil
			f.indexer.err = cause

			_, err := f.service.CreateProject(f.ctx, CreateProjectInput{Name: "Widgets", RepoURL: widgetsURL})
			e := requireCode(t, err, CodeBadRequest)
			assert.Equal(t, cause.Error(), e.Message)
		})
	}
}

func TestCreateProject_PollFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.poller.err = errors.New("github down")

	p := f.create(t)
	assert.NotZero(t, p.Id)
	assert.Equal(t, StateDone, f.states[len(f.states)-1])
}

func TestCreateProject_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name    string
		input   CreateProjectInput
		message string
	}{
		{"blank name", CreateProjectInput{Name: " ", RepoURL: widgetsURL}, "Project name is required"},
		{"bad url", CreateProjectInput{Name: "W", RepoURL: "https://gitlab.com/acme/widgets"}, core.ErrInvalidRepoURL.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateProject(f.ctx, tt.input)
			e := requireCode(t, err, CodeBadRequest)
			assert.Equal(t, tt.message, e.Message)
		})
	}
	assert.Zero(t, f.indexer.calls.Load())
}

func TestCreateProject_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.CreateProject(WithUser(context.Background(), 999), CreateProjectInput{Name: "W", RepoURL: widgetsURL})
	e := requireCode(t, err, CodeNotFound)
	assert.Equal(t, MsgUserNotFound, e.Message)
}

func TestUnauthenticatedCallsFail(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)
	anon := context.Background()

	calls := map[string]func() error{
		"create": func() error {
			_, err := f.service.CreateProject(anon, CreateProjectInput{Name: "X", RepoURL: "https://github.com/acme/other"})
			return err
		},
		"list":    func() error { _, err := f.service.ListProjects(anon); return err },
		"commits": func() error { _, err := f.service.GetCommits(anon, p.Id); return err },
		"save": func() error {
			_, err := f.service.SaveAnswer(anon, SaveAnswerInput{ProjectID: p.Id, Question: "q", Answer: "a"})
			return err
		},
		"delete":    func() error { _, err := f.service.DeleteProject(anon, p.Id); return err },
		"ask":       func() error { _, err := f.service.AskQuestion(anon, p.Id, "q", nil); return err },
		"questions": func() error { _, err := f.service.ListQuestions(anon, p.Id); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			e := requireCode(t, call(), CodeUnauthorized)
			assert.Equal(t, MsgUnauthorized, e.Message)
		})
	}
	assert.Equal(t, int32(1), f.indexer.calls.Load())

	stillThere, err := f.service.ListProjects(f.ctx)
	require.NoError(t, err)
	assert.Len(t, stillThere, 1)
}

func TestGetCommits_SchedulesBackgroundPoll(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)
	pollsAfterCreate := f.poller.count()

	f.poller.block = make(chan struct{})
	commits, err := f.service.GetCommits(f.ctx, p.Id)
	require.NoError(t, err)
	assert.Len(t, commits, 1, "returns stored commits without waiting")

	_, err = f.service.GetCommits(f.ctx, p.Id)
	require.NoError(t, err, "a pending poll is not scheduled twice")

	close(f.poller.block)
	f.service.WaitForBackground()
	assert.Equal(t, pollsAfterCreate+1, f.poller.count())
}

func TestGetCommits_BusyQueueDoesNotDelayRead(t *testing.T) {
	queue, err := tasks.NewQueue(tasks.WithPoolSize(1), tasks.WithRetry(1, time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(queue.Release)

	f := newFixture(t, WithQueue(queue))
	p := f.create(t)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, queue.Submit("poll-commits:other", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	defer close(release)

	start := time.Now()
	commits, err := f.service.GetCommits(f.ctx, p.Id)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Len(t, commits, 1, "stored commits are returned while the poll is skipped")
	assert.Equal(t, 1, queue.Pending())
}

func TestGetCommits_NoAccess(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)

	other, err := f.store.Users().AddUser(context.Background(), &core.User{Email: "other@example.com"})
	require.NoError(t, err)
	_, err = f.service.GetCommits(WithUser(context.Background(), other.Id), p.Id)
	requireCode(t, err, CodeNotFound)
}

func TestSaveAnswerAndListQuestions(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)

	refs := []core.FileReference{
		{FileName: "util.go", SourceCode: "// util.go", Summary: "helpers"},
		{FileName: "main.go", SourceCode: "// main.go", Summary: "entry point"},
	}
	saved, err := f.service.SaveAnswer(f.ctx, SaveAnswerInput{ProjectID: p.Id, Question: "Where is main?", Answer: "main.go", FileReferences: refs})
	require.NoError(t, err)
	assert.Equal(t, f.user.Id, saved.UserId)

	_, err = f.service.SaveAnswer(f.ctx, SaveAnswerInput{ProjectID: p.Id, Question: "Second?", Answer: "yes"})
	require.NoError(t, err)

	questions, err := f.service.ListQuestions(f.ctx, p.Id)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "Second?", questions[0].Question)
	assert.Equal(t, refs, questions[1].FileReferences, "references keep their order")

	_, err = f.service.SaveAnswer(f.ctx, SaveAnswerInput{ProjectID: p.Id, Question: "", Answer: "x"})
	requireCode(t, err, CodeBadRequest)
	_, err = f.service.SaveAnswer(f.ctx, SaveAnswerInput{ProjectID: p.Id, Question: "q", Answer: "a", FileReferences: []core.FileReference{{Summary: "no name"}}})
	requireCode(t, err, CodeBadRequest)
	_, err = f.service.SaveAnswer(f.ctx, SaveAnswerInput{ProjectID: 999, Question: "q", Answer: "a"})
	requireCode(t, err, CodeNotFound)
}

func TestDeleteProject(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)

	deleted, err := f.service.DeleteProject(f.ctx, p.Id)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted())

	projects, err := f.service.ListProjects(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	_, err = f.service.DeleteProject(f.ctx, p.Id)
	e := requireCode(t, err, CodeNotFound)
	assert.Equal(t, MsgCannotDelete, e.Message)

	kept, err := f.store.Projects().GetProject(f.ctx, p.Id)
	require.NoError(t, err, "soft delete keeps the row")
	assert.True(t, kept.IsDeleted())
}

func TestAskQuestion_StreamsAnswer(t *testing.T) {
	f := newFixture(t, WithTopK(1))
	p := f.create(t)

	var chunks []string
	answer, err := f.service.AskQuestion(f.ctx, p.Id, "What does main do?", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, answer.FileReferences, 1)
	assert.Equal(t, answer.Text, strings.Join(chunks, ""))
	assert.Contains(t, answer.Text, "What does main do?")
}

func TestAskQuestion_AnswererFailure(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)
	f.provider.GetMockAnswerer().AnswerFunc = func(ctx context.Context, question string, refs []core.FileReference, onChunk ai.ChunkFunc) (string, error) {
		return "", errors.New("model overloaded")
	}

	_, err := f.service.AskQuestion(f.ctx, p.Id, "anything?", nil)
	e := requireCode(t, err, CodeInternal)
	assert.Equal(t, MsgInternal, e.Message)
}

func TestNormalize(t *testing.T) {
	assert.Nil(t, Normalize(nil))

	existing := &Error{Code: CodeConflict, Message: "x"}
	assert.Same(t, existing, Normalize(existing))

	assert.Equal(t, CodeBadRequest, CodeOf(Normalize(core.ErrInvalidRepoURL)))
	assert.Equal(t, CodeBadRequest, CodeOf(Normalize(&github.APIError{StatusCode: 502, Retryable: true})))
	assert.Equal(t, CodeNotFound, CodeOf(Normalize(storage.ErrNotFound)))
	assert.Equal(t, CodeInternal, CodeOf(Normalize(errors.New("boom"))))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestSession(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)
	_, ok = UserFromContext(WithUser(context.Background(), 0))
	assert.False(t, ok, "zero is not a user")
	id, ok := UserFromContext(WithUser(context.Background(), 7))
	assert.True(t, ok)
	assert.Equal(t, core.ID(7), id)
}
