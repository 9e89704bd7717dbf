package stackalchemy

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/stackalchemy/ai/mock"
	"github.com/poiesic/stackalchemy/config"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/github"
	"github.com/poiesic/stackalchemy/projects"
	"github.com/poiesic/stackalchemy/reembed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoFiles = map[string]string{
	"main.go":        "package main\n\nfunc main() { serve() }\n",
	"server.go":      "package main\n\nfunc serve() {}\n",
	"dist/bundle.js": "minified",
}

func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"full_name": "acme/widgets", "default_branch": "main"})
	})
	mux.HandleFunc("/repos/acme/widgets/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		var tree []map[string]any
		for name, content := range repoFiles {
			tree = append(tree, map[string]any{"path": name, "type": "blob", "sha": "sha-" + name, "size": len(content)})
		}
		writeJSON(w, map[string]any{"sha": "root", "tree": tree})
	})
	mux.HandleFunc("/repos/acme/widgets/contents/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/repos/acme/widgets/contents/")
		content, ok := repoFiles[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{
			"path": name, "type": "file", "encoding": "base64",
			"content": base64.StdEncoding.EncodeToString([]byte(content)),
		})
	})
	mux.HandleFunc("/repos/acme/widgets/commits", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{
			"sha": "c0ffee",
			"commit": map[string]any{
				"message": "Add server",
				"author":  map[string]any{"name": "Dev", "date": time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
			},
		}})
	})
	mux.HandleFunc("/repos/acme/widgets/commits/c0ffee", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"sha":   "c0ffee",
			"files": []map[string]any{{"filename": "server.go", "status": "added", "changes": 3, "patch": "+func serve() {}"}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func openTestApp(t *testing.T) (*App, *mock.MockProvider) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "db")
	cfg.GitHub.BaseURL = fakeGitHub(t).URL
	cfg.GitHub.RequestsPerSecond = 1000
	cfg.GitHub.Burst = 100
	cfg.Search.MinSimilarity = -1

	provider := mock.NewMockProvider()
	app, err := Open(cfg, WithAIProvider(provider), WithGitHubOptions(github.WithRetry(1, time.Millisecond)))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app, provider
}

func TestApp_EndToEnd(t *testing.T) {
	app, provider := openTestApp(t)

	user, err := app.Store().Users().AddUser(context.Background(), &core.User{Email: "dev@example.com"})
	require.NoError(t, err)
	ctx := projects.WithUser(context.Background(), user.Id)
	svc := app.Service()

	project, err := svc.CreateProject(ctx, projects.CreateProjectInput{Name: "Widgets", RepoURL: "https://github.com/acme/widgets"})
	require.NoError(t, err)

	embeddings, err := app.Store().Embeddings().ListEmbeddings(ctx, project.Id)
	require.NoError(t, err)
	var names []string
	for _, e := range embeddings {
		names = append(names, e.FileName)
		assert.Equal(t, core.Checksum(repoFiles[e.FileName]), e.Checksum)
		assert.Len(t, e.Vector, provider.GetMockEmbedder().Dimension)
	}
	assert.ElementsMatch(t, []string{"main.go", "server.go"}, names)

	commits, err := svc.GetCommits(ctx, project.Id)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "c0ffee", commits[0].Hash)
	assert.Equal(t, "summary of commit", commits[0].Summary)

	answer, err := svc.AskQuestion(ctx, project.Id, "Where is serve defined?", nil)
	require.NoError(t, err)
	assert.Len(t, answer.FileReferences, 2)

	_, err = svc.SaveAnswer(ctx, projects.SaveAnswerInput{
		ProjectID: project.Id, Question: "Where is serve defined?", Answer: answer.Text, FileReferences: answer.FileReferences,
	})
	require.NoError(t, err)
	questions, err := svc.ListQuestions(ctx, project.Id)
	require.NoError(t, err)
	assert.Len(t, questions, 1)

	var progress bytes.Buffer
	cfg := reembed.DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	r, err := app.NewReembedder(cfg, &progress)
	require.NoError(t, err)
	result, err := r.Run(ctx, project.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Reembedded)
}

func TestOpen_InvalidStoragePath(t *testing.T) {
	notADir := filepath.Join(t.TempDir(), "not_a_dir")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Storage.Path = notADir
	app, err := Open(cfg, WithAIProvider(mock.NewMockProvider()))
	assert.Error(t, err)
	assert.Nil(t, app)
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "sqlite"
	_, err := OpenStore(cfg, nil)
	assert.ErrorIs(t, err, config.ErrUnknownBackend)
}
