package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"log/slog"

	"github.com/shiftlog/shiftlog/pkg/models"
)

const taskColumns = `id, area, work_type, description, additional_comments, technician_name, shift, created_at, finished_at, signature, before_photo, after_photo, deleted`

// ListTasks returns every row, tombstones included, most recent first.
func (r *SQLiteRepo) ListTasks(ctx context.Context) ([]models.Job, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY finished_at DESC, created_at DESC`)
	if err != nil {
		r.logger.Error("list tasks failed", slog.Any("err", err))
		return nil, err
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		j, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) GetTask(ctx context.Context, id string) (*models.Job, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	j, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &j, nil
}

// UpsertTask inserts or fully overwrites a row by id. deleted_at tracks the
// tombstone flag so a later un-delete clears it.
func (r *SQLiteRepo) UpsertTask(ctx context.Context, j *models.Job) error {
	if j == nil {
		return fmt.Errorf("task is nil")
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO tasks (id, area, work_type, description, additional_comments, technician_name, shift, created_at, finished_at, signature, before_photo, after_photo, deleted, deleted_at, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CASE WHEN ? THEN ? ELSE NULL END, ?)
		ON CONFLICT(id) DO UPDATE SET
			area = excluded.area,
			work_type = excluded.work_type,
			description = excluded.description,
			additional_comments = excluded.additional_comments,
			finished_at = excluded.finished_at,
			signature = excluded.signature,
			before_photo = excluded.before_photo,
			after_photo = excluded.after_photo,
			deleted = excluded.deleted,
			deleted_at = excluded.deleted_at,
			updated = excluded.updated`,
		j.ID, j.Area, j.WorkType, j.Description, j.AdditionalComments, j.TechnicianName, j.Shift,
		j.CreatedAt, j.FinishedAt, j.Signature, j.BeforePhoto, j.AfterPhoto, j.Deleted,
		j.Deleted, now(), now())
	if err != nil {
		r.logger.Error("upsert task failed", slog.String("id", j.ID), slog.Any("err", err))
	}
	return err
}

func (r *SQLiteRepo) SoftDeleteTask(ctx context.Context, id string) (bool, error) {
	res, err := r.conn.Exec(ctx, `UPDATE tasks SET deleted = 1, deleted_at = ?, updated = ? WHERE id = ?`, now(), now(), id)
	if err != nil {
		r.logger.Error("soft delete failed", slog.String("id", id), slog.Any("err", err))
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Job, error) {
	var j models.Job
	var before, after sql.NullString
	var deleted int64
	if err := row.Scan(&j.ID, &j.Area, &j.WorkType, &j.Description, &j.AdditionalComments,
		&j.TechnicianName, &j.Shift, &j.CreatedAt, &j.FinishedAt, &j.Signature,
		&before, &after, &deleted); err != nil {
		return models.Job{}, err
	}

	if before.Valid {
		j.BeforePhoto = &before.String
	}
	if after.Valid {
		j.AfterPhoto = &after.String
	}
	j.Deleted = deleted != 0

	return j, nil
}
