package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/pkg/dbutil"
	appErr "github.com/parleyhq/parley/internal/pkg/errors"
)

var attachmentFields = []string{"id", "user_id", "thread_id", "name", "key", "content_type", "size", "ctime"}

type AttachmentRepo struct {
	db *sql.DB
}

func NewAttachmentRepo(db *sql.DB) *AttachmentRepo {
	return &AttachmentRepo{db: db}
}

func (r *AttachmentRepo) Create(ctx context.Context, att *model.Attachment) error {
	data := map[string]interface{}{
		"id":           att.ID,
		"user_id":      att.UserID,
		"thread_id":    att.ThreadID,
		"name":         att.Name,
		"key":          att.Key,
		"content_type": att.ContentType,
		"size":         att.Size,
		"ctime":        att.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("attachments", []map[string]interface{}{data})
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

func (r *AttachmentRepo) GetByID(ctx context.Context, attachmentID string) (*model.Attachment, error) {
	where := map[string]interface{}{"id": attachmentID}
	sqlStr, args, err := builder.BuildSelect("attachments", where, attachmentFields)
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
	var att model.Attachment
	if err := rows.Scan(&att.ID, &att.UserID, &att.ThreadID, &att.Name, &att.Key, &att.ContentType, &att.Size, &att.Ctime); err != nil {
		return nil, err
	}
	return &att, nil
}

func (r *AttachmentRepo) ListByThread(ctx context.Context, threadID string) ([]model.Attachment, error) {
	where := map[string]interface{}{
		"thread_id": threadID,
		"_orderby":  "ctime asc",
	}
	sqlStr, args, err := builder.BuildSelect("attachments", where, attachmentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var results []model.Attachment
	for rows.Next() {
		var att model.Attachment
		if err := rows.Scan(&att.ID, &att.UserID, &att.ThreadID, &att.Name, &att.Key, &att.ContentType, &att.Size, &att.Ctime); err != nil {
			return nil, err
		}
		results = append(results, att)
	}
	return results, rows.Err()
}

func (r *AttachmentRepo) DeleteByThread(ctx context.Context, threadID string) error {
	sqlStr, args, err := builder.BuildDelete("attachments", map[string]interface{}{"thread_id": threadID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
