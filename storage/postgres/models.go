package postgres

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/stackalchemy/core"
	"gorm.io/datatypes"
)

type userRow struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Email     string    `gorm:"column:email"`
	Name      string    `gorm:"column:name"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (userRow) TableName() string { return "users" }

type projectRow struct {
	ID        uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string     `gorm:"column:name"`
	RepoURL   string     `gorm:"column:repo_url"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
}

func (projectRow) TableName() string { return "projects" }

type userToProjectRow struct {
	UserID    uint64    `gorm:"column:user_id;primaryKey"`
	ProjectID uint64    `gorm:"column:project_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (userToProjectRow) TableName() string { return "user_to_projects" }

// embeddingRow maps source_code_embeddings. SummaryEmbedding is never part of
// the insert; it is written by a raw UPDATE once the row exists.
type embeddingRow struct {
	ID               uint64           `gorm:"column:id;primaryKey;autoIncrement"`
	ProjectID        uint64           `gorm:"column:project_id"`
	FileName         string           `gorm:"column:file_name"`
	SourceCode       string           `gorm:"column:source_code"`
	Summary          string           `gorm:"column:summary"`
	Checksum         string           `gorm:"column:checksum"`
	SummaryEmbedding *pgvector.Vector `gorm:"column:summary_embedding;type:vector"`
	CreatedAt        time.Time        `gorm:"column:created_at"`
}

func (embeddingRow) TableName() string { return "source_code_embeddings" }

type commitRow struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	ProjectID    uint64    `gorm:"column:project_id"`
	Hash         string    `gorm:"column:hash"`
	Message      string    `gorm:"column:message"`
	AuthorName   string    `gorm:"column:author_name"`
	AuthorAvatar string    `gorm:"column:author_avatar"`
	CommittedAt  time.Time `gorm:"column:committed_at"`
	Summary      string    `gorm:"column:summary"`
	InsertedAt   time.Time `gorm:"column:inserted_at"`
}

func (commitRow) TableName() string { return "commits" }

// fileReference is the jsonb shape of one saved reference.
type fileReference struct {
	FileName   string `json:"fileName"`
	SourceCode string `json:"sourceCode"`
	Summary    string `json:"summary"`
}

type questionRow struct {
	ID             uint64                             `gorm:"column:id;primaryKey;autoIncrement"`
	ProjectID      uint64                             `gorm:"column:project_id"`
	UserID         uint64                             `gorm:"column:user_id"`
	Question       string                             `gorm:"column:question"`
	Answer         string                             `gorm:"column:answer"`
	FileReferences datatypes.JSONSlice[fileReference] `gorm:"column:file_references"`
	CreatedAt      time.Time                          `gorm:"column:created_at"`
}

func (questionRow) TableName() string { return "questions" }

func (r *userRow) toCore() *core.User {
	return &core.User{Id: core.ID(r.ID), Email: r.Email, Name: r.Name, CreatedAt: r.CreatedAt}
}

func (r *projectRow) toCore() *core.Project {
	return &core.Project{
		Id:        core.ID(r.ID),
		Name:      r.Name,
		RepoURL:   r.RepoURL,
		CreatedAt: r.CreatedAt,
		DeletedAt: r.DeletedAt,
	}
}

func (r *embeddingRow) toCore() *core.SourceCodeEmbedding {
	e := &core.SourceCodeEmbedding{
		Id:         core.ID(r.ID),
		ProjectId:  core.ID(r.ProjectID),
		FileName:   r.FileName,
		SourceCode: r.SourceCode,
		Summary:    r.Summary,
		Checksum:   r.Checksum,
		CreatedAt:  r.CreatedAt,
	}
	if r.SummaryEmbedding != nil {
		e.Vector = r.SummaryEmbedding.Slice()
	}
	return e
}

func newCommitRow(c *core.Commit) *commitRow {
	return &commitRow{
		ProjectID:    uint64(c.ProjectId),
		Hash:         c.Hash,
		Message:      c.Message,
		AuthorName:   c.AuthorName,
		AuthorAvatar: c.AuthorAvatar,
		CommittedAt:  c.CommittedAt,
		Summary:      c.Summary,
		InsertedAt:   c.InsertedAt,
	}
}

func (r *commitRow) toCore() *core.Commit {
	return &core.Commit{
		Id:           core.ID(r.ID),
		ProjectId:    core.ID(r.ProjectID),
		Hash:         r.Hash,
		Message:      r.Message,
		AuthorName:   r.AuthorName,
		AuthorAvatar: r.AuthorAvatar,
		CommittedAt:  r.CommittedAt,
		Summary:      r.Summary,
		InsertedAt:   r.InsertedAt,
	}
}

func newQuestionRow(q *core.Question) *questionRow {
	refs := make(datatypes.JSONSlice[fileReference], 0, len(q.FileReferences))
	for _, ref := range q.FileReferences {
		refs = append(refs, fileReference{FileName: ref.FileName, SourceCode: ref.SourceCode, Summary: ref.Summary})
	}
	return &questionRow{
		ProjectID:      uint64(q.ProjectId),
		UserID:         uint64(q.UserId),
		Question:       q.Question,
		Answer:         q.Answer,
		FileReferences: refs,
		CreatedAt:      q.CreatedAt,
	}
}

func (r *questionRow) toCore() *core.Question {
	q := &core.Question{
		Id:        core.ID(r.ID),
		ProjectId: core.ID(r.ProjectID),
		UserId:    core.ID(r.UserID),
		Question:  r.Question,
		Answer:    r.Answer,
		CreatedAt: r.CreatedAt,
	}
	for _, ref := range r.FileReferences {
		q.FileReferences = append(q.FileReferences, core.FileReference{FileName: ref.FileName, SourceCode: ref.SourceCode, Summary: ref.Summary})
	}
	return q
}
