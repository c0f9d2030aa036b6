package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/pkg/dbutil"
)

type KeywordRepo struct {
	db *sql.DB
}

func NewKeywordRepo(db *sql.DB) *KeywordRepo {
	return &KeywordRepo{db: db}
}

// Replace swaps the full keyword set of one message. Keywords are derived
// data, so replacing wholesale is always safe.
func (r *KeywordRepo) Replace(ctx context.Context, messageID string, keywords []model.MessageKeyword) error {
	delStr, delArgs, err := builder.BuildDelete("message_keywords", map[string]interface{}{"message_id": messageID})
	if err != nil {
		return err
	}
	delStr, delArgs = dbutil.Finalize(delStr, delArgs)
	if _, err := r.db.ExecContext(ctx, delStr, delArgs...); err != nil {
		return err
	}
	if len(keywords) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(keywords))
	for _, kw := range keywords {
		rows = append(rows, map[string]interface{}{
			"message_id": kw.MessageID,
			"thread_id":  kw.ThreadID,
			"keyword":    kw.Keyword,
			"position":   kw.Position,
			"ctime":      kw.Ctime,
		})
	}
	insStr, insArgs, err := builder.BuildInsert("message_keywords", rows)
	if err != nil {
		return err
	}
	insStr, insArgs = dbutil.Finalize(insStr, insArgs)
	_, err = r.db.ExecContext(ctx, insStr, insArgs...)
	return err
}

func (r *KeywordRepo) ListByMessage(ctx context.Context, messageID string) ([]model.MessageKeyword, error) {
	where := map[string]interface{}{
		"message_id": messageID,
		"_orderby":   "position asc",
	}
	sqlStr, args, err := builder.BuildSelect("message_keywords", where, []string{"message_id", "thread_id", "keyword", "position", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var results []model.MessageKeyword
	for rows.Next() {
		var kw model.MessageKeyword
		if err := rows.Scan(&kw.MessageID, &kw.ThreadID, &kw.Keyword, &kw.Position, &kw.Ctime); err != nil {
			return nil, err
		}
		results = append(results, kw)
	}
	return results, rows.Err()
}

// SearchMessageIDs finds a user's messages whose keywords contain the
// term, newest first. This is the fallback path when embeddings are
// unavailable, so a LIKE scan is acceptable.
func (r *KeywordRepo) SearchMessageIDs(ctx context.Context, userID, term, threadID string, limit int) ([]string, error) {
	query := `
		SELECT DISTINCT k.message_id, m.ctime
		FROM message_keywords k
		JOIN messages m ON m.id = k.message_id
		WHERE m.user_id = ? AND LOWER(k.keyword) LIKE ?
	`
	args := []interface{}{userID, "%" + term + "%"}
	if threadID != "" {
		query += " AND m.thread_id = ?"
		args = append(args, threadID)
	}
	query += " ORDER BY m.ctime DESC LIMIT ?"
	args = append(args, limit)
	sqlStr, args := dbutil.Finalize(query, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		var ctime int64
		if err := rows.Scan(&id, &ctime); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *KeywordRepo) DeleteByThread(ctx context.Context, threadID string) error {
	sqlStr, args, err := builder.BuildDelete("message_keywords", map[string]interface{}{"thread_id": threadID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
