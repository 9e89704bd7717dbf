package core

import (
	"errors"
	"testing"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   error
	}{
		{
			name:      "valid url",
			url:       "https://github.com/acme/widgets",
			wantOwner: "acme",
			wantRepo:  "widgets",
		},
		{
			name:      "dashes and underscores",
			url:       "https://github.com/my-org/my_repo-2",
			wantOwner: "my-org",
			wantRepo:  "my_repo-2",
		},
		{
			name:    "http scheme",
			url:     "http://github.com/acme/widgets",
			wantErr: ErrInvalidRepoURL,
		},
		{
			name:    "other host",
			url:     "https://gitlab.com/acme/widgets",
			wantErr: ErrInvalidRepoURL,
		},
		{
			name:    "trailing slash",
			url:     "https://github.com/acme/widgets/",
			wantErr: ErrInvalidRepoURL,
		},
		{
			name:    "git suffix",
			url:     "https://github.com/acme/widgets.git",
			wantErr: ErrInvalidRepoURL,
		},
		{
			name:    "missing repo",
			url:     "https://github.com/acme",
			wantErr: ErrInvalidRepoURL,
		},
		{
			name:    "extra path segment",
			url:     "https://github.com/acme/widgets/tree/main",
			wantErr: ErrInvalidRepoURL,
		},
		{
			name:    "empty",
			url:     "",
			wantErr: ErrInvalidRepoURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepoURL(tt.url)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseRepoURL(%q) error = %v, want %v", tt.url, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRepoURL(%q) unexpected error: %v", tt.url, err)
			}
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("ParseRepoURL(%q) = %q, %q; want %q, %q", tt.url, owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}

func TestValidateProject(t *testing.T) {
	tests := []struct {
		name    string
		project *Project
		wantErr error
	}{
		{
			name:    "valid project",
			project: &Project{Name: "Widgets", RepoURL: "https://github.com/acme/widgets"},
		},
		{
			name:    "blank name",
			project: &Project{Name: "   ", RepoURL: "https://github.com/acme/widgets"},
			wantErr: ErrEmptyProjectName,
		},
		{
			name:    "bad url",
			project: &Project{Name: "Widgets", RepoURL: "not a url"},
			wantErr: ErrInvalidRepoURL,
		},
		{
			name:    "nil project",
			project: nil,
			wantErr: ErrEmptyProjectName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProject(tt.project)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("ValidateProject() unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateProject() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateQuestion(t *testing.T) {
	valid := func() *Question {
		return &Question{
			ProjectId: 1,
			Question:  "Where is auth handled?",
			Answer:    "In middleware.go",
			FileReferences: []FileReference{
				{FileName: "middleware.go", SourceCode: "package x", Summary: "auth middleware"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(q *Question)
		wantErr error
	}{
		{name: "valid question", mutate: func(q *Question) {}},
		{name: "no references", mutate: func(q *Question) { q.FileReferences = nil }},
		{name: "missing project", mutate: func(q *Question) { q.ProjectId = 0 }, wantErr: ErrInvalidProjectID},
		{name: "empty question", mutate: func(q *Question) { q.Question = "" }, wantErr: ErrEmptyQuestion},
		{name: "empty answer", mutate: func(q *Question) { q.Answer = " " }, wantErr: ErrEmptyAnswer},
		{
			name:    "reference without file name",
			mutate:  func(q *Question) { q.FileReferences = append(q.FileReferences, FileReference{Summary: "x"}) },
			wantErr: ErrInvalidFileReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid()
			tt.mutate(q)
			err := ValidateQuestion(q)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("ValidateQuestion() unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateQuestion() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCommit(t *testing.T) {
	if err := ValidateCommit(&Commit{ProjectId: 1, Hash: "abc"}); err != nil {
		t.Fatalf("ValidateCommit() unexpected error: %v", err)
	}
	if err := ValidateCommit(&Commit{ProjectId: 1}); !errors.Is(err, ErrEmptyCommitHash) {
		t.Fatalf("ValidateCommit() error = %v, want %v", err, ErrEmptyCommitHash)
	}
	if err := ValidateCommit(&Commit{Hash: "abc"}); !errors.Is(err, ErrInvalidProjectID) {
		t.Fatalf("ValidateCommit() error = %v, want %v", err, ErrInvalidProjectID)
	}
}
