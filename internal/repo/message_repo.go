package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/pkg/dbutil"
	appErr "github.com/parleyhq/parley/internal/pkg/errors"
)

var messageFields = []string{"id", "thread_id", "user_id", "role", "content", "attachment_id", "ctime"}

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *model.Message) error {
	return r.CreateBatch(ctx, []*model.Message{msg})
}

func (r *MessageRepo) CreateBatch(ctx context.Context, msgs []*model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		rows = append(rows, map[string]interface{}{
			"id":            msg.ID,
			"thread_id":     msg.ThreadID,
			"user_id":       msg.UserID,
			"role":          msg.Role,
			"content":       msg.Content,
			"attachment_id": msg.AttachmentID,
			"ctime":         msg.Ctime,
		})
	}
	sqlStr, args, err := builder.BuildInsert("messages", rows)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, messageID string) (*model.Message, error) {
	where := map[string]interface{}{"id": messageID}
	sqlStr, args, err := builder.BuildSelect("messages", where, messageFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	msg, err := scanMessage(rows)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListByThread returns every message of a thread, oldest first.
func (r *MessageRepo) ListByThread(ctx context.Context, threadID string) ([]*model.Message, error) {
	where := map[string]interface{}{
		"thread_id": threadID,
		"_orderby":  "ctime asc, id asc",
	}
	return r.list(ctx, where)
}

// ListRecent returns the newest messages of a thread in chronological
// order, for use as completion history.
func (r *MessageRepo) ListRecent(ctx context.Context, threadID string, limit int) ([]*model.Message, error) {
	where := map[string]interface{}{
		"thread_id": threadID,
		"_orderby":  "ctime desc, id desc",
		"_limit":    []uint{uint(limit)},
	}
	msgs, err := r.list(ctx, where)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *MessageRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	where := map[string]interface{}{"id in": ids}
	return r.list(ctx, where)
}

func (r *MessageRepo) list(ctx context.Context, where map[string]interface{}) ([]*model.Message, error) {
	sqlStr, args, err := builder.BuildSelect("messages", where, messageFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var msgs []*model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// ListPendingEmbeddings returns messages that have no stored embedding for
// the given model yet, oldest first.
func (r *MessageRepo) ListPendingEmbeddings(ctx context.Context, modelName string, limit int) ([]*model.Message, error) {
	const query = `
		SELECT m.id, m.thread_id, m.user_id, m.role, m.content, m.attachment_id, m.ctime
		FROM messages m
		LEFT JOIN message_embeddings e ON m.id = e.message_id AND e.model_name = ?
		WHERE e.message_id IS NULL
		ORDER BY m.ctime ASC
		LIMIT ?
	`
	sqlStr, args := dbutil.Finalize(query, []interface{}{modelName, limit})
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var msgs []*model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// ListPendingKeywords returns user and document messages that have no
// keyword rows yet, oldest first.
func (r *MessageRepo) ListPendingKeywords(ctx context.Context, limit int) ([]*model.Message, error) {
	const query = `
		SELECT m.id, m.thread_id, m.user_id, m.role, m.content, m.attachment_id, m.ctime
		FROM messages m
		LEFT JOIN message_keywords k ON m.id = k.message_id AND k.position = 0
		WHERE k.message_id IS NULL AND m.role IN (?, ?)
		ORDER BY m.ctime ASC
		LIMIT ?
	`
	sqlStr, args := dbutil.Finalize(query, []interface{}{model.RoleUser, model.RoleDocument, limit})
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var msgs []*model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (r *MessageRepo) DeleteByThread(ctx context.Context, threadID string) error {
	sqlStr, args, err := builder.BuildDelete("messages", map[string]interface{}{"thread_id": threadID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func scanMessage(rows *sql.Rows) (*model.Message, error) {
	var msg model.Message
	if err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.UserID, &msg.Role, &msg.Content, &msg.AttachmentID, &msg.Ctime); err != nil {
		return nil, err
	}
	return &msg, nil
}
