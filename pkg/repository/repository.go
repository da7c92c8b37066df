package repository

import (
	"context"

	"github.com/shiftlog/shiftlog/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

// JobStore is the device-local persistence layer consumed by the
// reconciliation engine: the job records plus the deleted-id blacklist.
type JobStore interface {
	// List returns all local records, most recent first by effective
	// timestamp.
	List(ctx context.Context) ([]models.Job, error)
	// Save inserts or overwrites by id, assigning a fresh id when absent,
	// and returns the stored record.
	Save(ctx context.Context, job models.Job) (models.Job, error)
	// Delete physically removes the record and adds its id to the
	// blacklist so a later remote listing cannot reintroduce it.
	Delete(ctx context.Context, id string) error
	// Remove physically removes the record without blacklisting. Used by
	// the merge when pruning records that vanished from the remote active
	// set without an observed tombstone.
	Remove(ctx context.Context, id string) error
	// DeletedIDs returns the blacklist.
	DeletedIDs(ctx context.Context) (map[string]struct{}, error)
}

// RemoteSource is the logical contract over both remote transports (the
// authenticated REST backend and the spreadsheet webhook). Deletion is a
// soft-delete-as-upsert: callers set Deleted and call Upsert.
type RemoteSource interface {
	List(ctx context.Context) ([]models.Job, error)
	Upsert(ctx context.Context, job models.Job) error
}

// TaskRepo is the server-side task store behind the REST API.
type TaskRepo interface {
	ListTasks(ctx context.Context) ([]models.Job, error)
	GetTask(ctx context.Context, id string) (*models.Job, error)
	UpsertTask(ctx context.Context, j *models.Job) error
	// SoftDeleteTask flags the row deleted; reports whether it existed.
	SoftDeleteTask(ctx context.Context, id string) (bool, error)
}

type TechnicianRepo interface {
	ListActiveTechnicians(ctx context.Context) ([]models.Technician, error)
	GetTechnician(ctx context.Context, id string) (*models.Technician, error)
	UpsertTechnician(ctx context.Context, t *models.Technician) error
}
