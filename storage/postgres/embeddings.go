package postgres

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
	"gorm.io/gorm"
)

// EmbeddingRepository implements storage.EmbeddingRepository.
type EmbeddingRepository struct {
	db *gorm.DB
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

func (r *EmbeddingRepository) Close() error { return nil }

// AddEmbedding inserts the scalar columns only.
func (r *EmbeddingRepository) AddEmbedding(ctx context.Context, embedding *core.SourceCodeEmbedding) (*core.SourceCodeEmbedding, error) {
	row := &embeddingRow{
		ProjectID:  uint64(embedding.ProjectId),
		FileName:   embedding.FileName,
		SourceCode: embedding.SourceCode,
		Summary:    embedding.Summary,
		Checksum:   embedding.Checksum,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Omit("summary_embedding").Create(row).Error; err != nil {
		return nil, translate(err)
	}
	embedding.Id = core.ID(row.ID)
	embedding.CreatedAt = row.CreatedAt
	return embedding, nil
}

// SetEmbeddingVector writes the vector column with a raw statement; gorm has
// no native mapping for it.
func (r *EmbeddingRepository) SetEmbeddingVector(ctx context.Context, id core.ID, vector []float32) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE source_code_embeddings SET summary_embedding = ? WHERE id = ?`,
		pgvector.NewVector(vector), uint64(id),
	)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *EmbeddingRepository) GetEmbedding(ctx context.Context, id core.ID) (*core.SourceCodeEmbedding, error) {
	var row embeddingRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", uint64(id)).Error; err != nil {
		return nil, translate(err)
	}
	return row.toCore(), nil
}

func (r *EmbeddingRepository) ListEmbeddings(ctx context.Context, projectID core.ID) ([]*core.SourceCodeEmbedding, error) {
	var rows []embeddingRow
	err := r.db.WithContext(ctx).
		Where("project_id = ?", uint64(projectID)).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*core.SourceCodeEmbedding, len(rows))
	for i := range rows {
		out[i] = rows[i].toCore()
	}
	return out, nil
}

func (r *EmbeddingRepository) CountEmbeddings(ctx context.Context, projectID core.ID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&embeddingRow{}).
		Where("project_id = ?", uint64(projectID)).
		Count(&count).Error
	return int(count), translate(err)
}

type similarRow struct {
	embeddingRow
	Similarity float32 `gorm:"column:similarity"`
}

// FindSimilar ranks by cosine distance (<=>); similarity is 1 - distance.
func (r *EmbeddingRepository) FindSimilar(ctx context.Context, projectID core.ID, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	query := pgvector.NewVector(vector)

	var rows []similarRow
	err := r.db.WithContext(ctx).Raw(`
SELECT id, project_id, file_name, source_code, summary, checksum, summary_embedding, created_at,
       1 - (summary_embedding <=> ?) AS similarity
FROM source_code_embeddings
WHERE project_id = ?
  AND summary_embedding IS NOT NULL
  AND 1 - (summary_embedding <=> ?) >= ?
ORDER BY similarity DESC
LIMIT ?`, query, uint64(projectID), query, minSimilarity, limit).Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	results := make([]*core.SearchResult, len(rows))
	for i := range rows {
		results[i] = &core.SearchResult{Embedding: rows[i].toCore(), Score: rows[i].Similarity}
	}
	return results, nil
}
