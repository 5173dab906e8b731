package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"scald/internal/model"
)

// EventStore persists events. Instants are stored as Unix milliseconds and
// normalized to UTC on read.
type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventColumns = "id, start_time, end_time, cleared, title, calendar_id"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.Event, error) {
	var e model.Event
	var start, end int64
	var cleared int

	if err := row.Scan(&e.ID, &start, &end, &cleared, &e.Title, &e.CalendarID); err != nil {
		return model.Event{}, err
	}

	e.Start = time.UnixMilli(start).UTC()
	e.End = time.UnixMilli(end).UTC()
	e.Cleared = cleared != 0
	return e, nil
}

func clearedInt(cleared bool) int {
	if cleared {
		return 1
	}
	return 0
}

// Insert persists a new event. Returns ErrDuplicate if an event with the
// same id already exists.
func (s *EventStore) Insert(e model.Event) error {
	_, err := s.db.Exec(
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Start.UnixMilli(), e.End.UnixMilli(), clearedInt(e.Cleared), e.Title, e.CalendarID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert event %q: %w", e.ID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert event %q: %w", e.ID, err)
	}
	return nil
}

// Update replaces all mutable fields of the stored event matching e.ID.
// Updating a row that does not exist is a no-op, not an error; callers must
// not rely on Update for creation.
func (s *EventStore) Update(e model.Event) error {
	_, err := s.db.Exec(
		`UPDATE events
		 SET start_time = ?, end_time = ?, cleared = ?, title = ?, calendar_id = ?
		 WHERE id = ?`,
		e.Start.UnixMilli(), e.End.UnixMilli(), clearedInt(e.Cleared), e.Title, e.CalendarID, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update event %q: %w", e.ID, err)
	}
	return nil
}

// GetByID returns the stored event, or nil if no such event exists.
func (s *EventStore) GetByID(id string) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)

	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query event %q: %w", id, err)
	}
	return &e, nil
}

// ListByCalendar returns every event belonging to the calendar in the
// natural event ordering: start ascending, id ascending on ties.
func (s *EventStore) ListByCalendar(calendarID string) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventColumns+` FROM events
		 WHERE calendar_id = ?
		 ORDER BY start_time ASC, id ASC`,
		calendarID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events for calendar %q: %w", calendarID, err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// PurgeStale deletes every event of the calendar that is either cleared or
// starts after cutoff, unless its id is in keepIDs. keepIDs is the current
// remote snapshot: events the remote source still vouches for are never
// purged. Returns the number of deleted rows.
func (s *EventStore) PurgeStale(calendarID string, keepIDs []string, cutoff time.Time) (int64, error) {
	query := `DELETE FROM events WHERE calendar_id = ? AND (cleared = 1 OR start_time > ?)`
	args := []any{calendarID, cutoff.UnixMilli()}

	if len(keepIDs) > 0 {
		query += ` AND id NOT IN (?` + strings.Repeat(",?", len(keepIDs)-1) + `)`
		for _, id := range keepIDs {
			args = append(args, id)
		}
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge stale events for calendar %q: %w", calendarID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge stale rows affected: %w", err)
	}
	return n, nil
}

// MarkCleared durably sets the cleared flag on the event before returning.
// Returns ErrNotFound if no event with the given id exists.
func (s *EventStore) MarkCleared(id string) error {
	res, err := s.db.Exec(`UPDATE events SET cleared = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark event %q cleared: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark cleared rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark event %q cleared: %w", id, ErrNotFound)
	}
	return nil
}
