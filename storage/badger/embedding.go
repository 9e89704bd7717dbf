package badger

import (
	"context"
	"errors"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
type EmbeddingRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) (*EmbeddingRepository, error) {
	idSeq, err := backend.GetSequence(embeddingIDSeq)
	if err != nil {
		return nil, err
	}
	return &EmbeddingRepository{backend: backend, idSeq: idSeq}, nil
}

// Close releases the ID sequence.
func (r *EmbeddingRepository) Close() error {
	return r.idSeq.Release()
}

// AddEmbedding stores the embedding without its vector.
func (r *EmbeddingRepository) AddEmbedding(ctx context.Context, embedding *core.SourceCodeEmbedding) (*core.SourceCodeEmbedding, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		embedding.Id = id
		embedding.CreatedAt = time.Now().UTC()

		stored := *embedding
		stored.Vector = nil
		if err := tx.Set(makeEmbeddingKey(embedding.ProjectId, embedding.Id), storage.MarshalEmbedding(&stored)); err != nil {
			return err
		}
		if err := tx.Set(makeEmbeddingOwnerKey(embedding.Id), storage.MarshalID(embedding.ProjectId)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return embedding, nil
}

// SetEmbeddingVector rewrites the stored embedding with vector attached.
func (r *EmbeddingRepository) SetEmbeddingVector(ctx context.Context, id core.ID, vector []float32) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		embedding, err := r.read(tx, id)
		if err != nil {
			return err
		}
		embedding.Vector = vector
		if err := tx.Set(makeEmbeddingKey(embedding.ProjectId, id), storage.MarshalEmbedding(embedding)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetEmbedding retrieves a single embedding by ID.
func (r *EmbeddingRepository) GetEmbedding(ctx context.Context, id core.ID) (*core.SourceCodeEmbedding, error) {
	var embedding *core.SourceCodeEmbedding
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		embedding, err = r.read(tx, id)
		return err
	}, false)
	return embedding, err
}

// ListEmbeddings returns the project's embeddings in ID order.
func (r *EmbeddingRepository) ListEmbeddings(ctx context.Context, projectID core.ID) ([]*core.SourceCodeEmbedding, error) {
	var embeddings []*core.SourceCodeEmbedding
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		embeddings, err = scanPrefix(tx, makeKey(embeddingRecordPrefix, projectID), storage.UnmarshalEmbedding)
		return err
	}, false)
	return embeddings, err
}

// CountEmbeddings counts keys under the project's prefix.
func (r *EmbeddingRepository) CountEmbeddings(ctx context.Context, projectID core.ID) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		count = len(prefixKeys(tx, makeKey(embeddingRecordPrefix, projectID)))
		return nil
	}, false)
	return count, err
}

// FindSimilar scans the project's embeddings and ranks them by cosine similarity.
func (r *EmbeddingRepository) FindSimilar(ctx context.Context, projectID core.ID, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.SearchResult
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeKey(embeddingRecordPrefix, projectID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var embedding *core.SourceCodeEmbedding
			err := iter.Item().Value(func(val []byte) error {
				var err error
				embedding, err = storage.UnmarshalEmbedding(val)
				return err
			})
			if err != nil {
				return err
			}

			// Skip rows whose vector hasn't been written yet
			if len(embedding.Vector) == 0 {
				continue
			}

			similarity := cosineSimilarity(vector, embedding.Vector)
			if similarity >= minSimilarity {
				results = append(results, &core.SearchResult{
					Embedding: embedding,
					Score:     similarity,
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (r *EmbeddingRepository) read(tx *badger.Txn, id core.ID) (*core.SourceCodeEmbedding, error) {
	item, err := tx.Get(makeEmbeddingOwnerKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var projectID core.ID
	err = item.Value(func(val []byte) error {
		var decodeErr error
		projectID, decodeErr = storage.UnmarshalID(val)
		return decodeErr
	})
	if err != nil {
		return nil, err
	}
	return readValue(tx, makeEmbeddingKey(projectID, id), storage.UnmarshalEmbedding)
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length are compared over their common prefix.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
