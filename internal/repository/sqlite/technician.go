package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"log/slog"

	"github.com/shiftlog/shiftlog/pkg/models"
)

// ListActiveTechnicians returns active technicians, admins first then by
// name, matching the login screen ordering.
func (r *SQLiteRepo) ListActiveTechnicians(ctx context.Context) ([]models.Technician, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, name, role, password_hash FROM technicians WHERE active = 1 ORDER BY CASE WHEN role = 'admin' THEN 0 ELSE 1 END, name ASC`)
	if err != nil {
		r.logger.Error("list technicians failed", slog.Any("err", err))
		return nil, err
	}
	defer rows.Close()

	var out []models.Technician
	for rows.Next() {
		var t models.Technician
		if err := rows.Scan(&t.ID, &t.Name, &t.Role, &t.PasswordHash); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) GetTechnician(ctx context.Context, id string) (*models.Technician, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, name, role, password_hash FROM technicians WHERE id = ? AND active = 1`, id)
	var t models.Technician
	if err := row.Scan(&t.ID, &t.Name, &t.Role, &t.PasswordHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &t, nil
}

func (r *SQLiteRepo) UpsertTechnician(ctx context.Context, t *models.Technician) error {
	if t == nil {
		return fmt.Errorf("technician is nil")
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO technicians (id, name, role, password_hash, active, created, updated)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			password_hash = excluded.password_hash,
			active = 1,
			updated = excluded.updated`,
		t.ID, t.Name, t.Role, t.PasswordHash, now(), now())
	if err != nil {
		r.logger.Error("upsert technician failed", slog.String("id", t.ID), slog.Any("err", err))
	}
	return err
}
