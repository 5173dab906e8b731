package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"scald/internal/model"
	"scald/internal/store"
)

// Reconciler merges freshly fetched remote snapshots into the store.
// Writes to any one calendar are serialized through a per-calendar lock;
// different calendars reconcile independently.
type Reconciler struct {
	calendars *store.CalendarStore
	events    *store.EventStore
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewReconciler(calendars *store.CalendarStore, events *store.EventStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		calendars: calendars,
		events:    events,
		logger:    logger,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (r *Reconciler) calendarLock(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	return lock
}

// Sync merges the remote snapshot into the store and returns the reconciled
// calendar: the snapshot's events with their final merged cleared values,
// usable by the caller without a second read round-trip.
//
// Structural failures (calendar row creation, purge) abort the calendar's
// sync. Per-event storage failures are logged and skipped so one bad event
// never aborts the whole calendar.
func (r *Reconciler) Sync(remoteCal model.Calendar) (model.Calendar, error) {
	lock := r.calendarLock(remoteCal.ID)
	lock.Lock()
	defer lock.Unlock()

	oldCal, err := r.calendars.GetOrCreate(remoteCal.ID)
	if err != nil {
		return model.Calendar{}, fmt.Errorf("sync calendar %q: %w", remoteCal.ID, err)
	}

	// Purge before the merge loop: stored events that are cleared or still
	// in the future and absent from the snapshot are stale. Keeping the
	// snapshot ids protects everything the remote source still vouches for.
	purged, err := r.events.PurgeStale(remoteCal.ID, remoteCal.EventIDs(), r.now())
	if err != nil {
		return model.Calendar{}, fmt.Errorf("sync calendar %q: %w", remoteCal.ID, err)
	}
	if purged > 0 {
		r.logger.Debug("purged stale events", "calendar_id", remoteCal.ID, "count", purged)
	}

	reconciled := model.NewCalendar(remoteCal.ID)
	for _, incoming := range remoteCal.SortedEvents() {
		incoming.CalendarID = remoteCal.ID

		if err := incoming.Validate(); err != nil {
			r.logger.Warn("dropping invalid event from snapshot",
				"calendar_id", remoteCal.ID,
				"event_id", incoming.ID,
				"error", err)
			continue
		}

		stored, exists := oldCal.Events[incoming.ID]
		if exists {
			merged, changed := model.Merge(incoming, stored)
			if changed {
				if err := r.events.Update(merged); err != nil {
					r.logger.Error("update event failed, skipping",
						"calendar_id", remoteCal.ID,
						"event_id", merged.ID,
						"error", err)
					continue
				}
			}
			reconciled.Events[merged.ID] = merged
			continue
		}

		if err := r.events.Insert(incoming); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				// Benign race with a concurrent writer; the stored row wins.
				r.logger.Warn("duplicate event insert",
					"calendar_id", remoteCal.ID,
					"event_id", incoming.ID)
			} else {
				r.logger.Error("insert event failed, skipping",
					"calendar_id", remoteCal.ID,
					"event_id", incoming.ID,
					"error", err)
				continue
			}
		}
		reconciled.Events[incoming.ID] = incoming
	}

	return reconciled, nil
}
