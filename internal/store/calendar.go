package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"scald/internal/model"
)

// CalendarStore persists calendars. A calendar row carries only its
// provider-assigned id; content lives in the events table.
type CalendarStore struct {
	db     *sql.DB
	events *EventStore
}

func NewCalendarStore(db *sql.DB) *CalendarStore {
	return &CalendarStore{db: db, events: NewEventStore(db)}
}

// List returns every calendar known locally, each populated with its full
// event set in the natural event ordering. The calendar set itself carries
// no ordering guarantee.
func (s *CalendarStore) List() ([]model.Calendar, error) {
	rows, err := s.db.Query(`SELECT id FROM calendars`)
	if err != nil {
		return nil, fmt.Errorf("query calendars: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan calendar id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calendars: %w", err)
	}

	calendars := make([]model.Calendar, 0, len(ids))
	for _, id := range ids {
		events, err := s.events.ListByCalendar(id)
		if err != nil {
			return nil, err
		}
		calendars = append(calendars, model.NewCalendar(id, events...))
	}
	return calendars, nil
}

// Get returns the calendar with its full event set, or nil if unknown.
func (s *CalendarStore) Get(id string) (*model.Calendar, error) {
	var found string
	err := s.db.QueryRow(`SELECT id FROM calendars WHERE id = ?`, id).Scan(&found)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar %q: %w", id, err)
	}

	events, err := s.events.ListByCalendar(id)
	if err != nil {
		return nil, err
	}

	cal := model.NewCalendar(id, events...)
	return &cal, nil
}

// GetOrCreate returns the calendar, persisting a new empty row first if it
// is unknown. Idempotent under concurrent callers: a duplicate insert from
// a racing caller is logged and the existing row wins.
func (s *CalendarStore) GetOrCreate(id string) (*model.Calendar, error) {
	cal, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if cal != nil {
		return cal, nil
	}

	if _, err := s.db.Exec(`INSERT INTO calendars (id) VALUES (?)`, id); err != nil {
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("insert calendar %q: %w", id, err)
		}
		slog.Warn("calendar already created by concurrent caller", "calendar_id", id)
	}

	created := model.NewCalendar(id)
	return &created, nil
}

// Exists reports whether the calendar row is present.
func (s *CalendarStore) Exists(id string) (bool, error) {
	var found string
	err := s.db.QueryRow(`SELECT id FROM calendars WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query calendar %q: %w", id, err)
	}
	return true, nil
}
