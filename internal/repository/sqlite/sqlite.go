package sqlite

import (
	"io"
	"time"

	"log/slog"

	"github.com/shiftlog/shiftlog/internal/db"
	"github.com/shiftlog/shiftlog/pkg/repository"
)

// SQLiteRepo implements the server-side repository interfaces using the
// internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.TaskRepo = (*SQLiteRepo)(nil)
var _ repository.TechnicianRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &SQLiteRepo{conn: conn, logger: logger}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}
