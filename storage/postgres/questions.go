package postgres

import (
	"context"
	"time"

	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
	"gorm.io/gorm"
)

// QuestionRepository implements storage.QuestionRepository.
type QuestionRepository struct {
	db *gorm.DB
}

var _ storage.QuestionRepository = (*QuestionRepository)(nil)

func (r *QuestionRepository) Close() error { return nil }

func (r *QuestionRepository) AddQuestion(ctx context.Context, question *core.Question) (*core.Question, error) {
	question.CreatedAt = time.Now().UTC()
	row := newQuestionRow(question)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, translate(err)
	}
	question.Id = core.ID(row.ID)
	return question, nil
}

func (r *QuestionRepository) ListQuestions(ctx context.Context, projectID core.ID) ([]*core.Question, error) {
	var rows []questionRow
	err := r.db.WithContext(ctx).
		Where("project_id = ?", uint64(projectID)).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*core.Question, len(rows))
	for i := range rows {
		out[i] = rows[i].toCore()
	}
	return out, nil
}
