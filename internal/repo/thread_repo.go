package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/pkg/dbutil"
	appErr "github.com/parleyhq/parley/internal/pkg/errors"
)

var threadFields = []string{"id", "user_id", "title", "ctime", "mtime"}

type ThreadRepo struct {
	db *sql.DB
}

func NewThreadRepo(db *sql.DB) *ThreadRepo {
	return &ThreadRepo{db: db}
}

func (r *ThreadRepo) Create(ctx context.Context, thread *model.Thread) error {
	data := map[string]interface{}{
		"id":      thread.ID,
		"user_id": thread.UserID,
		"title":   thread.Title,
		"ctime":   thread.Ctime,
		"mtime":   thread.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("threads", []map[string]interface{}{data})
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

func (r *ThreadRepo) GetByID(ctx context.Context, threadID string) (*model.Thread, error) {
	where := map[string]interface{}{"id": threadID}
	sqlStr, args, err := builder.BuildSelect("threads", where, threadFields)
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
	var thread model.Thread
	if err := rows.Scan(&thread.ID, &thread.UserID, &thread.Title, &thread.Ctime, &thread.Mtime); err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *ThreadRepo) ListByUser(ctx context.Context, userID string) ([]model.Thread, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "mtime desc",
	}
	sqlStr, args, err := builder.BuildSelect("threads", where, threadFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var threads []model.Thread
	for rows.Next() {
		var thread model.Thread
		if err := rows.Scan(&thread.ID, &thread.UserID, &thread.Title, &thread.Ctime, &thread.Mtime); err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}
	return threads, rows.Err()
}

func (r *ThreadRepo) UpdateTitle(ctx context.Context, threadID, title string, mtime int64) error {
	where := map[string]interface{}{"id": threadID}
	update := map[string]interface{}{
		"title": title,
		"mtime": mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("threads", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *ThreadRepo) Touch(ctx context.Context, threadID string, mtime int64) error {
	where := map[string]interface{}{"id": threadID}
	update := map[string]interface{}{"mtime": mtime}
	sqlStr, args, err := builder.BuildUpdate("threads", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ThreadRepo) Delete(ctx context.Context, threadID string) error {
	sqlStr, args, err := builder.BuildDelete("threads", map[string]interface{}{"id": threadID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
