// Package store is the device-local persistence layer: the job records this
// device knows about plus the blacklist of ids deleted on this device, which
// keeps remote copies from resurrecting them during a merge.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/shiftlog/shiftlog/pkg/models"
	"github.com/shiftlog/shiftlog/pkg/repository"
)

// Store is a SQLite-backed implementation of repository.JobStore.
type Store struct {
	db *sql.DB
}

var _ repository.JobStore = (*Store)(nil)

// Open opens (or creates) the device database at dbPath and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open device db: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err = s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id                  TEXT PRIMARY KEY,
			area                TEXT NOT NULL,
			work_type           TEXT NOT NULL,
			description         TEXT NOT NULL,
			additional_comments TEXT NOT NULL DEFAULT '',
			technician_name     TEXT NOT NULL,
			shift               TEXT NOT NULL,
			created_at          TEXT NOT NULL,
			finished_at         TEXT NOT NULL,
			signature           TEXT NOT NULL,
			before_photo        TEXT,
			after_photo         TEXT,
			deleted             INTEGER NOT NULL DEFAULT 0,
			sync_status         TEXT NOT NULL DEFAULT 'pending'
		);
		CREATE TABLE IF NOT EXISTS deleted_ids (
			id TEXT PRIMARY KEY
		);
	`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// List returns all local records, most recent first by effective timestamp.
// Ordering happens in Go because the effective timestamp falls back from
// finished_at to created_at to epoch.
func (s *Store) List(ctx context.Context) ([]models.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, area, work_type, description, additional_comments, technician_name, shift, created_at, finished_at, signature, before_photo, after_photo, deleted, sync_status FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		var j models.Job
		var before, after sql.NullString
		var deleted int64
		if err := rows.Scan(&j.ID, &j.Area, &j.WorkType, &j.Description, &j.AdditionalComments,
			&j.TechnicianName, &j.Shift, &j.CreatedAt, &j.FinishedAt, &j.Signature,
			&before, &after, &deleted, &j.SyncStatus); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if before.Valid {
			j.BeforePhoto = &before.String
		}
		if after.Valid {
			j.AfterPhoto = &after.String
		}
		j.Deleted = deleted != 0
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	sort.SliceStable(out, func(i, k int) bool {
		return out[i].EffectiveTime().After(out[k].EffectiveTime())
	})
	return out, nil
}

// Save inserts or overwrites by id. Jobs created on this device get a real
// uuid; ids coming from the remote are kept as-is.
func (s *Store) Save(ctx context.Context, job models.Job) (models.Job, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.SyncStatus == "" {
		job.SyncStatus = models.SyncPending
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO jobs (id, area, work_type, description, additional_comments, technician_name, shift, created_at, finished_at, signature, before_photo, after_photo, deleted, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			area = excluded.area,
			work_type = excluded.work_type,
			description = excluded.description,
			additional_comments = excluded.additional_comments,
			technician_name = excluded.technician_name,
			shift = excluded.shift,
			created_at = excluded.created_at,
			finished_at = excluded.finished_at,
			signature = excluded.signature,
			before_photo = excluded.before_photo,
			after_photo = excluded.after_photo,
			deleted = excluded.deleted,
			sync_status = excluded.sync_status`,
		job.ID, job.Area, job.WorkType, job.Description, job.AdditionalComments,
		job.TechnicianName, job.Shift, job.CreatedAt, job.FinishedAt, job.Signature,
		job.BeforePhoto, job.AfterPhoto, job.Deleted, string(job.SyncStatus))
	if err != nil {
		return models.Job{}, fmt.Errorf("save job: %w", err)
	}

	return job, nil
}

// Delete physically removes the record and blacklists its id so a later
// remote listing cannot reintroduce it.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.Remove(ctx, id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO deleted_ids (id) VALUES (?)`, id); err != nil {
		return fmt.Errorf("blacklist job %s: %w", id, err)
	}
	return nil
}

// Remove physically removes the record without touching the blacklist.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove job %s: %w", id, err)
	}
	return nil
}

// DeletedIDs returns the blacklist of ids deleted on this device.
func (s *Store) DeletedIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM deleted_ids`)
	if err != nil {
		return nil, fmt.Errorf("list deleted ids: %w", err)
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan deleted id: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}
