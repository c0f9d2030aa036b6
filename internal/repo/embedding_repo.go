package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/parleyhq/parley/internal/model"
)

type EmbeddingRepo struct {
	db *sql.DB
}

func NewEmbeddingRepo(db *sql.DB) *EmbeddingRepo {
	return &EmbeddingRepo{db: db}
}

func (r *EmbeddingRepo) Save(ctx context.Context, emb *model.MessageEmbedding) error {
	const query = `
		INSERT INTO message_embeddings (message_id, thread_id, model_name, embedding, content_hash, ctime)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id, model_name) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			content_hash = EXCLUDED.content_hash,
			ctime = EXCLUDED.ctime
	`
	_, err := r.db.ExecContext(ctx, query,
		emb.MessageID,
		emb.ThreadID,
		emb.ModelName,
		pgvector.NewVector(emb.Embedding),
		emb.ContentHash,
		emb.Ctime,
	)
	return err
}

// ListByThread returns the embeddings of one thread for one embedding
// model. Filtering by model name is what keeps vectors of different
// dimensionality from ever meeting in a ranking.
func (r *EmbeddingRepo) ListByThread(ctx context.Context, threadID, modelName string) ([]model.MessageEmbedding, error) {
	const query = `
		SELECT message_id, thread_id, model_name, embedding, content_hash, ctime
		FROM message_embeddings
		WHERE thread_id = $1 AND model_name = $2
	`
	return r.queryList(ctx, query, threadID, modelName)
}

// ListByUser returns all of a user's embeddings for one model, used by
// cross-thread semantic search.
func (r *EmbeddingRepo) ListByUser(ctx context.Context, userID, modelName string) ([]model.MessageEmbedding, error) {
	const query = `
		SELECT e.message_id, e.thread_id, e.model_name, e.embedding, e.content_hash, e.ctime
		FROM message_embeddings e
		JOIN messages m ON m.id = e.message_id
		WHERE m.user_id = $1 AND e.model_name = $2
	`
	return r.queryList(ctx, query, userID, modelName)
}

func (r *EmbeddingRepo) queryList(ctx context.Context, query string, args ...interface{}) ([]model.MessageEmbedding, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var results []model.MessageEmbedding
	for rows.Next() {
		var item model.MessageEmbedding
		var vec pgvector.Vector
		if err := rows.Scan(&item.MessageID, &item.ThreadID, &item.ModelName, &vec, &item.ContentHash, &item.Ctime); err != nil {
			return nil, err
		}
		item.Embedding = vec.Slice()
		results = append(results, item)
	}
	return results, rows.Err()
}

func (r *EmbeddingRepo) DeleteByThread(ctx context.Context, threadID string) error {
	const query = `DELETE FROM message_embeddings WHERE thread_id = $1`
	_, err := r.db.ExecContext(ctx, query, threadID)
	return err
}
