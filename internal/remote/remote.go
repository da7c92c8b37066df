// Package remote implements the two remote job source transports behind the
// repository.RemoteSource contract: the authenticated REST backend and the
// fire-and-forget spreadsheet webhook.
package remote

import (
	"errors"
	"io"
	"log/slog"
)

// Error kinds surfaced to callers. Handlers and the sync engine match on
// these with errors.Is; the raw transport error is always wrapped alongside.
var (
	ErrNetwork   = errors.New("network failure reaching remote")
	ErrParse     = errors.New("unexpected remote response format")
	ErrAuth      = errors.New("invalid or expired credentials")
	ErrForbidden = errors.New("operation not allowed for this role")
	ErrNotFound  = errors.New("record not found on remote")
)

// package-level logger; can be replaced by callers via SetLogger.
var logger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// SetLogger installs a logger for the remote package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}
