package postgres

import (
	"context"
	"time"

	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommitRepository implements storage.CommitRepository.
type CommitRepository struct {
	db *gorm.DB
}

var _ storage.CommitRepository = (*CommitRepository)(nil)

func (r *CommitRepository) Close() error { return nil }

// AddCommits bulk inserts with ON CONFLICT (project_id, hash) DO NOTHING.
func (r *CommitRepository) AddCommits(ctx context.Context, commits ...*core.Commit) (int, error) {
	if len(commits) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([]*commitRow, len(commits))
	for i, c := range commits {
		c.InsertedAt = now
		rows[i] = newCommitRow(c)
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "hash"}},
			DoNothing: true,
		}).
		Create(&rows)
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return int(result.RowsAffected), nil
}

func (r *CommitRepository) ListCommitHashes(ctx context.Context, projectID core.ID) ([]string, error) {
	var hashes []string
	err := r.db.WithContext(ctx).Model(&commitRow{}).
		Where("project_id = ?", uint64(projectID)).
		Pluck("hash", &hashes).Error
	return hashes, translate(err)
}

func (r *CommitRepository) ListCommits(ctx context.Context, projectID core.ID) ([]*core.Commit, error) {
	var rows []commitRow
	err := r.db.WithContext(ctx).
		Where("project_id = ?", uint64(projectID)).
		Order("committed_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*core.Commit, len(rows))
	for i := range rows {
		out[i] = rows[i].toCore()
	}
	return out, nil
}
