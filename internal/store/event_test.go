package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"scald/internal/database"
	"scald/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// Ensure foreign keys are enforced (modernc/sqlite may not honor DSN param for :memory:)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupEventStore(t *testing.T) (*EventStore, *CalendarStore) {
	t.Helper()
	db := setupTestDB(t)
	cs := NewCalendarStore(db)
	if _, err := cs.GetOrCreate("cal1"); err != nil {
		t.Fatalf("create calendar: %v", err)
	}
	return NewEventStore(db), cs
}

func makeEvent(id string, start time.Time, cleared bool) model.Event {
	return model.Event{
		ID:         id,
		CalendarID: "cal1",
		Start:      start,
		End:        start.Add(time.Hour),
		Title:      "Event " + id,
		Cleared:    cleared,
	}
}

var t0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestInsertAndGetRoundTrip(t *testing.T) {
	es, _ := setupEventStore(t)

	e := makeEvent("e1", t0, false)
	if err := es.Insert(e); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := es.GetByID("e1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected event, got nil")
	}
	if !got.Equal(e) {
		t.Errorf("round trip mismatch: got %+v, want %+v", *got, e)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	es, _ := setupEventStore(t)

	got, err := es.GetByID("missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent event")
	}
}

func TestInsertDuplicate(t *testing.T) {
	es, _ := setupEventStore(t)

	e := makeEvent("e1", t0, false)
	if err := es.Insert(e); err != nil {
		t.Fatalf("insert: %v", err)
	}

	err := es.Insert(e)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("second insert: got %v, want ErrDuplicate", err)
	}
}

func TestUpdateReplacesFields(t *testing.T) {
	es, _ := setupEventStore(t)

	e := makeEvent("e1", t0, false)
	if err := es.Insert(e); err != nil {
		t.Fatalf("insert: %v", err)
	}

	e.Title = "Renamed"
	e.Start = t0.Add(30 * time.Minute)
	e.End = t0.Add(90 * time.Minute)
	e.Cleared = true
	if err := es.Update(e); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := es.GetByID("e1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Equal(e) {
		t.Errorf("after update: got %+v, want %+v", *got, e)
	}
}

func TestUpdateMissingRowIsNoop(t *testing.T) {
	es, _ := setupEventStore(t)

	if err := es.Update(makeEvent("ghost", t0, false)); err != nil {
		t.Fatalf("update of missing row should not error, got %v", err)
	}

	got, err := es.GetByID("ghost")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("update must not create rows")
	}
}

func TestListByCalendarOrdering(t *testing.T) {
	es, _ := setupEventStore(t)

	// Insert out of order; two events share a start instant.
	for _, e := range []model.Event{
		makeEvent("z", t0, false),
		makeEvent("b", t0.Add(time.Hour), false),
		makeEvent("a", t0, false),
	} {
		if err := es.Insert(e); err != nil {
			t.Fatalf("insert %s: %v", e.ID, err)
		}
	}

	events, err := es.ListByCalendar("cal1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []string{"a", "z", "b"}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, id := range want {
		if events[i].ID != id {
			t.Errorf("events[%d].ID = %q, want %q", i, events[i].ID, id)
		}
	}
}

func TestPurgeStaleRemovesClearedAndFuture(t *testing.T) {
	es, _ := setupEventStore(t)
	cutoff := t0

	clearedPast := makeEvent("cleared-past", t0.Add(-2*time.Hour), true)
	future := makeEvent("future", t0.Add(2*time.Hour), false)
	pastActive := makeEvent("past-active", t0.Add(-time.Hour), false)

	for _, e := range []model.Event{clearedPast, future, pastActive} {
		if err := es.Insert(e); err != nil {
			t.Fatalf("insert %s: %v", e.ID, err)
		}
	}

	n, err := es.PurgeStale("cal1", nil, cutoff)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 2 {
		t.Errorf("purged %d rows, want 2", n)
	}

	// Past uncleared events survive: still relevant for display.
	got, err := es.GetByID("past-active")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Error("past uncleared event must not be purged")
	}

	for _, id := range []string{"cleared-past", "future"} {
		got, err := es.GetByID(id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if got != nil {
			t.Errorf("event %s should have been purged", id)
		}
	}
}

func TestPurgeStaleKeepsSnapshotIDs(t *testing.T) {
	es, _ := setupEventStore(t)
	cutoff := t0

	kept := makeEvent("kept-future", t0.Add(2*time.Hour), false)
	dropped := makeEvent("dropped-future", t0.Add(2*time.Hour), false)

	for _, e := range []model.Event{kept, dropped} {
		if err := es.Insert(e); err != nil {
			t.Fatalf("insert %s: %v", e.ID, err)
		}
	}

	if _, err := es.PurgeStale("cal1", []string{"kept-future"}, cutoff); err != nil {
		t.Fatalf("purge: %v", err)
	}

	got, err := es.GetByID("kept-future")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Error("event in the keep set must survive the purge")
	}

	got, err = es.GetByID("dropped-future")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("future event absent from the keep set should be purged")
	}
}

func TestPurgeStaleScopedToCalendar(t *testing.T) {
	es, cs := setupEventStore(t)
	if _, err := cs.GetOrCreate("cal2"); err != nil {
		t.Fatalf("create cal2: %v", err)
	}

	other := makeEvent("other-cal", t0.Add(2*time.Hour), false)
	other.CalendarID = "cal2"
	if err := es.Insert(other); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := es.PurgeStale("cal1", nil, t0); err != nil {
		t.Fatalf("purge: %v", err)
	}

	got, err := es.GetByID("other-cal")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Error("purge must not touch other calendars' events")
	}
}

func TestMarkCleared(t *testing.T) {
	es, _ := setupEventStore(t)

	if err := es.Insert(makeEvent("e1", t0, false)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := es.MarkCleared("e1"); err != nil {
		t.Fatalf("mark cleared: %v", err)
	}

	got, err := es.GetByID("e1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Cleared {
		t.Error("cleared flag should be persisted")
	}
}

func TestMarkClearedNotFound(t *testing.T) {
	es, _ := setupEventStore(t)

	err := es.MarkCleared("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
