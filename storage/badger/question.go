package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
)

// QuestionRepository implements storage.QuestionRepository for BadgerDB.
type QuestionRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.QuestionRepository = (*QuestionRepository)(nil)

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(backend *Backend) (*QuestionRepository, error) {
	idSeq, err := backend.GetSequence(questionIDSeq)
	if err != nil {
		return nil, err
	}
	return &QuestionRepository{backend: backend, idSeq: idSeq}, nil
}

// Close releases the ID sequence.
func (r *QuestionRepository) Close() error {
	return r.idSeq.Release()
}

// AddQuestion stores a question/answer pair.
func (r *QuestionRepository) AddQuestion(ctx context.Context, question *core.Question) (*core.Question, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		question.Id = id
		question.CreatedAt = time.Now().UTC()
		if err := tx.Set(makeQuestionKey(question.ProjectId, question.Id), storage.MarshalQuestion(question)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return question, nil
}

// ListQuestions returns a project's questions, newest first.
func (r *QuestionRepository) ListQuestions(ctx context.Context, projectID core.ID) ([]*core.Question, error) {
	var questions []*core.Question
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		questions, err = scanPrefix(tx, makeKey(questionRecordPrefix, projectID), storage.UnmarshalQuestion)
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	// Keys iterate in ID order, which is insertion order
	slices.Reverse(questions)
	return questions, nil
}
