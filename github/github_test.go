package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/stackalchemy/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGitHub struct {
	t        *testing.T
	files    map[string]string
	tree     []treeEntry
	status   int
	requests atomic.Int32
	authSeen atomic.Value
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	f.authSeen.Store(r.Header.Get("Authorization"))
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}

	p := r.URL.Path
	switch {
	case p == "/repos/acme/widgets":
		writeJSON(w, repoResponse{FullName: "acme/widgets", DefaultBranch: "trunk"})
	case p == "/repos/acme/widgets/git/trees/trunk":
		if r.URL.Query().Get("recursive") != "1" {
			http.Error(w, "expected recursive tree", http.StatusBadRequest)
			return
		}
		writeJSON(w, treeResponse{Tree: f.tree})
	case strings.HasPrefix(p, "/repos/acme/widgets/contents/"):
		name := strings.TrimPrefix(p, "/repos/acme/widgets/contents/")
		content, ok := f.files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, contentResponse{
			Path:     name,
			Content:  base64.StdEncoding.EncodeToString([]byte(content)),
			Encoding: "base64",
			Type:     "file",
		})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newFake(t *testing.T, files map[string]string) *fakeGitHub {
	f := &fakeGitHub{t: t, files: files}
	for name, content := range files {
		f.tree = append(f.tree, treeEntry{Path: name, Type: "blob", SHA: "sha-" + name, Size: len(content)})
	}
	return f
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL(srv.URL), WithRetry(2, time.Millisecond), WithRateLimit(1000, 100)}, opts...)
	c, err := NewClient(opts...)
	require.NoError(t, err)
	return c
}

func sources(t *testing.T, c *Client, url string) []string {
	t.Helper()
	docs, err := c.LoadRepository(context.Background(), url, "")
	require.NoError(t, err)
	var out []string
	for _, d := range docs {
		out = append(out, d.Metadata[MetadataSource].(string))
	}
	return out
}

func TestLoadRepository_FiltersIgnoredFiles(t *testing.T) {
	fake := newFake(t, map[string]string{
		"main.go":                 "package main",
		"web/app.ts":              "export {}",
		"package-lock.json":       "{}",
		"web/yarn.lock":           "lock",
		"node_modules/x/index.js": "module.exports = 1",
		"dist/bundle.js":          "bundle",
		"build/out.txt":           "out",
		".next/cache.json":        "{}",
		"coverage/lcov.info":      "lcov",
		"builder/keep.go":         "package builder",
		"logo.png":                "\x89PNG\x00\x00",
	})
	fake.tree = append(fake.tree, treeEntry{Path: "web", Type: "tree"})

	got := sources(t, newTestClient(t, fake), "https://github.com/acme/widgets")
	assert.ElementsMatch(t, []string{"main.go", "web/app.ts", "builder/keep.go"}, got)
}

func TestLoadRepository_DocumentContent(t *testing.T) {
	fake := newFake(t, map[string]string{"main.go": "package main\n\nfunc main() {}\n"})
	c := newTestClient(t, fake)

	docs, err := c.LoadRepository(context.Background(), "https://github.com/acme/widgets", "secret")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "package main\n\nfunc main() {}\n", docs[0].PageContent)
	assert.Equal(t, "main.go", docs[0].Metadata[MetadataSource])
	assert.Equal(t, "trunk", docs[0].Metadata[MetadataBranch])
	assert.Equal(t, "Bearer secret", fake.authSeen.Load())
}

func TestLoadRepository_SkipsLargeFiles(t *testing.T) {
	fake := newFake(t, map[string]string{
		"small.go": "package small",
		"big.sql":  strings.Repeat("x", 64),
	})
	c := newTestClient(t, fake, WithMaxFileSize(32))
	assert.Equal(t, []string{"small.go"}, sources(t, c, "https://github.com/acme/widgets"))
}

func TestLoadRepository_InvalidURLMakesNoRequest(t *testing.T) {
	fake := newFake(t, nil)
	c := newTestClient(t, fake)

	_, err := c.LoadRepository(context.Background(), "https://gitlab.com/acme/widgets", "")
	assert.ErrorIs(t, err, core.ErrInvalidRepoURL)
	assert.Equal(t, int32(0), fake.requests.Load())
}

func TestLoadRepository_NoFiles(t *testing.T) {
	fake := newFake(t, map[string]string{"package-lock.json": "{}"})
	c := newTestClient(t, fake)

	_, err := c.LoadRepository(context.Background(), "https://github.com/acme/widgets", "")
	assert.ErrorIs(t, err, ErrNoFiles)
	assert.Equal(t, "No files found in the repository. Please check the repository URL and access permissions.", err.Error())
}

func TestLoadRepository_StatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
	}{
		{http.StatusNotFound, ErrRepositoryNotFound},
		{http.StatusUnauthorized, ErrAccessDenied},
		{http.StatusForbidden, ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			fake := newFake(t, nil)
			fake.status = tt.status
			c := newTestClient(t, fake)

			_, err := c.LoadRepository(context.Background(), "https://github.com/acme/widgets", "")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int32(1), fake.requests.Load(), "non-retryable errors are not retried")
		})
	}
}

func TestLoadRepository_RetriesServerErrors(t *testing.T) {
	fake := newFake(t, nil)
	fake.status = http.StatusBadGateway
	c := newTestClient(t, fake, WithRetry(3, time.Millisecond))

	_, err := c.LoadRepository(context.Background(), "https://github.com/acme/widgets", "")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(3), fake.requests.Load())
}

func TestIsIgnored(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"yarn.lock", true},
		{"packages/a/yarn.lock", true},
		{"node_modules", true},
		{"node_modules/react/index.js", true},
		{"src/node_modules/x.js", false},
		{"dist/a/b/c.js", true},
		{"distribution/a.js", false},
		{"src/main.go", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isIgnored(tt.path, DefaultIgnorePatterns), tt.path)
	}
}

func TestIsLikelyBinary(t *testing.T) {
	assert.False(t, isLikelyBinary(nil))
	assert.False(t, isLikelyBinary([]byte("héllo")))
	assert.True(t, isLikelyBinary([]byte{0xff, 0xfe, 0x00}))
	assert.True(t, isLikelyBinary([]byte("abc\x00def")))
}

func TestCommits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/commits", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("per_page") != "10" {
			http.Error(w, "bad per_page", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`[
			{"sha":"b2","commit":{"message":"second","author":{"name":"Ada","date":"2025-03-02T10:00:00Z"}},"author":{"avatar_url":"https://avatars/ada"}},
			{"sha":"a1","commit":{"message":"first","author":{"name":"Bob","date":"2025-03-01T10:00:00Z"}},"author":null}
		]`))
	})
	mux.HandleFunc("/repos/acme/widgets/commits/b2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sha":"b2","files":[
			{"filename":"main.go","status":"modified","changes":3,"patch":"@@ -1 +1 @@"},
			{"filename":"logo.png","status":"added","changes":0}
		]}`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	commits, err := c.ListCommitsForURL(ctx, "https://github.com/acme/widgets", 0)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "b2", commits[0].SHA)
	assert.Equal(t, "Ada", commits[0].AuthorName)
	assert.Equal(t, "https://avatars/ada", commits[0].AuthorAvatar)
	assert.Equal(t, time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC), commits[0].Date.UTC())
	assert.Empty(t, commits[1].AuthorAvatar)

	files, err := c.GetCommit(ctx, "acme", "widgets", "b2")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, FileChange{Filename: "main.go", Status: "modified", Changes: 3, Patch: "@@ -1 +1 @@"}, files[0])
	assert.Empty(t, files[1].Patch)
}

func TestNewClient_InvalidOptions(t *testing.T) {
	_, err := NewClient(WithBaseURL("not a url"))
	assert.Error(t, err)
	_, err = NewClient(WithRateLimit(0, 1))
	assert.Error(t, err)
	_, err = NewClient(WithMaxFileSize(-1))
	assert.Error(t, err)
}
