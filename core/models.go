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

package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID identifies a stored record. Zero means "not yet assigned".
type ID uint64

// Checksum returns a hex encoded 128-bit BLAKE2b digest of the content.
// Used to tell whether a file's source changed between indexing runs.
func Checksum(content string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// User is an account known to the external authentication provider.
type User struct {
	Id        ID
	Email     string
	Name      string
	CreatedAt time.Time
}

// Project links a remote repository to its indexed content.
// Projects are never hard-deleted by users; DeletedAt marks a soft delete.
type Project struct {
	Id        ID
	Name      string
	RepoURL   string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// IsDeleted reports whether the project has been soft-deleted.
func (p *Project) IsDeleted() bool {
	return p.DeletedAt != nil
}

// UserToProject grants a user access to a project.
type UserToProject struct {
	UserId    ID
	ProjectId ID
	CreatedAt time.Time
}

// SourceCodeEmbedding is the indexed form of one repository file.
type SourceCodeEmbedding struct {
	Id         ID
	ProjectId  ID
	FileName   string
	SourceCode string
	Summary    string
	Checksum   string
	Vector     []float32 // Unset until the vector write for the record completes
	CreatedAt  time.Time
}

// Commit is a summarized upstream commit. Hash is unique within a project.
type Commit struct {
	Id           ID
	ProjectId    ID
	Hash         string
	Message      string
	AuthorName   string
	AuthorAvatar string
	CommittedAt  time.Time
	Summary      string // Empty when summarization failed
	InsertedAt   time.Time
}

// FileReference is one file used as context for an answer.
type FileReference struct {
	FileName   string
	SourceCode string
	Summary    string
}

// Question is a saved question/answer pair.
type Question struct {
	Id             ID
	ProjectId      ID
	UserId         ID
	Question       string
	Answer         string
	FileReferences []FileReference
	CreatedAt      time.Time
}

// SearchResult is an embedding match from vector similarity search.
type SearchResult struct {
	Embedding *SourceCodeEmbedding
	Score     float32
}

// Reference converts a search hit into the file reference shown with an answer.
func (r *SearchResult) Reference() FileReference {
	return FileReference{
		FileName:   r.Embedding.FileName,
		SourceCode: r.Embedding.SourceCode,
		Summary:    r.Embedding.Summary,
	}
}
