// Package sync merges the device-local job store with a remote job source.
// The merge is a sequential push-then-pull-then-prune pass: unsynced local
// writes go out first, then the remote listing is folded into the local
// store under the rules that a local tombstone always wins, a pending local
// edit is never clobbered, and a remote tombstone is never merged into the
// active set.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/shiftlog/shiftlog/pkg/models"
	"github.com/shiftlog/shiftlog/pkg/repository"
)

var (
	// ErrSyncInProgress rejects a pass triggered while one is in flight.
	// The pass is not re-entrant; callers retry after the current one ends.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrPartialSync is the single aggregate signal for per-record remote
	// failures. The local view stays internally consistent and the failed
	// records stay pending; the next pass retries them.
	ErrPartialSync = errors.New("could not fully sync")
)

// Report summarizes one reconciliation pass.
type Report struct {
	Pushed   int // pending records acknowledged by the remote
	Pulled   int // remote records inserted or overwritten locally
	Removed  int // remote tombstones propagated into the local store
	Pruned   int // synced records dropped because the remote no longer lists them
	Failures int // per-record remote errors, retried on the next pass
}

// Engine reconciles a local job store with a remote source.
type Engine struct {
	store  repository.JobStore
	remote repository.RemoteSource
	logger *slog.Logger
	busy   atomic.Bool
}

func New(store repository.JobStore, remote repository.RemoteSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Engine{store: store, remote: remote, logger: logger}
}

// Sync runs one full pass. Local store failures abort immediately; remote
// failures degrade the affected records only and surface as ErrPartialSync.
func (e *Engine) Sync(ctx context.Context) (Report, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return Report{}, ErrSyncInProgress
	}
	defer e.busy.Store(false)

	var rep Report

	if err := e.push(ctx, &rep); err != nil {
		return rep, err
	}

	listing, err := e.remote.List(ctx)
	if err != nil {
		// No listing means no pull and, critically, no prune: pruning
		// against a listing we never got would drop healthy records.
		e.logger.Warn("remote listing unavailable, skipping pull", slog.Any("err", err))
		rep.Failures++
		return rep, fmt.Errorf("%w: %d records could not be reconciled", ErrPartialSync, rep.Failures)
	}

	if err := e.pullAndPrune(ctx, listing, &rep); err != nil {
		return rep, err
	}

	if rep.Failures > 0 {
		return rep, fmt.Errorf("%w: %d records could not be reconciled", ErrPartialSync, rep.Failures)
	}
	return rep, nil
}

// push sends every pending local record to the remote and marks it synced on
// success. A failed push leaves the record pending for the next pass.
func (e *Engine) push(ctx context.Context, rep *Report) error {
	local, err := e.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list local jobs: %w", err)
	}

	for _, j := range local {
		if j.SyncStatus != models.SyncPending {
			continue
		}

		if err := e.remote.Upsert(ctx, j); err != nil {
			e.logger.Warn("push failed, record stays pending",
				slog.String("id", j.ID), slog.Any("err", err))
			rep.Failures++
			continue
		}

		j.SyncStatus = models.SyncSynced
		if _, err := e.store.Save(ctx, j); err != nil {
			return fmt.Errorf("mark %s synced: %w", j.ID, err)
		}
		rep.Pushed++
	}

	return nil
}

func (e *Engine) pullAndPrune(ctx context.Context, listing []models.Job, rep *Report) error {
	tombstones, err := e.store.DeletedIDs(ctx)
	if err != nil {
		return fmt.Errorf("load blacklist: %w", err)
	}

	local, err := e.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list local jobs: %w", err)
	}
	localByID := make(map[string]models.Job, len(local))
	for _, j := range local {
		localByID[j.ID] = j
	}

	activeRemote := make(map[string]struct{})

	for _, rj := range dedupeListing(listing) {
		if rj.Deleted {
			// A remote tombstone is never merged, and once observed the
			// id must never resurrect: remove and blacklist.
			if _, exists := localByID[rj.ID]; exists {
				if err := e.store.Delete(ctx, rj.ID); err != nil {
					return fmt.Errorf("propagate tombstone %s: %w", rj.ID, err)
				}
				delete(localByID, rj.ID)
				rep.Removed++
			}
			continue
		}

		if _, dead := tombstones[rj.ID]; dead {
			// This device deleted it; a stale remote reappearance loses.
			continue
		}

		activeRemote[rj.ID] = struct{}{}

		lj, exists := localByID[rj.ID]
		if !exists {
			rj.SyncStatus = models.SyncSynced
			if _, err := e.store.Save(ctx, rj); err != nil {
				return fmt.Errorf("insert remote job %s: %w", rj.ID, err)
			}
			localByID[rj.ID] = rj
			rep.Pulled++
			continue
		}

		if lj.SyncStatus == models.SyncPending {
			// An unsynced local edit wins until it is pushed.
			continue
		}

		if lj.EqualContent(rj) {
			continue
		}

		rj.SyncStatus = models.SyncSynced
		if _, err := e.store.Save(ctx, rj); err != nil {
			return fmt.Errorf("overwrite local job %s: %w", rj.ID, err)
		}
		localByID[rj.ID] = rj
		rep.Pulled++
	}

	// Prune: synced records the remote no longer lists at all. No tombstone
	// was observed for these, so they are removed without blacklisting and
	// may legitimately return in a later listing.
	for id, lj := range localByID {
		if lj.SyncStatus != models.SyncSynced {
			continue
		}
		if _, ok := activeRemote[id]; ok {
			continue
		}
		if _, dead := tombstones[id]; dead {
			continue
		}

		if err := e.store.Remove(ctx, id); err != nil {
			return fmt.Errorf("prune job %s: %w", id, err)
		}
		rep.Pruned++
	}

	return nil
}

// dedupeListing collapses duplicate ids within one remote listing (an
// append-only sheet can hold several rows per id): the greater effective
// timestamp wins, and on an exact tie the deleted row wins, a delete being
// the later authoritative event relative to a concurrent edit.
func dedupeListing(listing []models.Job) []models.Job {
	byID := make(map[string]int, len(listing))
	out := make([]models.Job, 0, len(listing))

	for _, j := range listing {
		idx, seen := byID[j.ID]
		if !seen {
			byID[j.ID] = len(out)
			out = append(out, j)
			continue
		}
		out[idx] = preferredDuplicate(out[idx], j)
	}

	return out
}

func preferredDuplicate(a, b models.Job) models.Job {
	at, bt := a.EffectiveTime(), b.EffectiveTime()
	switch {
	case bt.After(at):
		return b
	case at.After(bt):
		return a
	case b.Deleted:
		return b
	default:
		return a
	}
}
