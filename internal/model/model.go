package model

import (
	"errors"
	"sort"
	"time"
)

// ErrMissingInstant reports an event that reached the sync path without both
// instants resolved. The fetch layer is expected to resolve or drop these.
var ErrMissingInstant = errors.New("event missing start or end instant")

// Event is a single calendar event as reported by the remote provider, plus
// the local-only Cleared flag. Cleared is set by user action and is sticky:
// re-syncing the same event from the remote source never resets it.
type Event struct {
	ID         string    `json:"id"`
	CalendarID string    `json:"calendar_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Title      string    `json:"title"`
	Cleared    bool      `json:"cleared"`
}

// Validate checks the invariants every event must satisfy before it is
// persisted: a non-empty id, an owning calendar, and both instants present.
func (e Event) Validate() error {
	if e.ID == "" {
		return errors.New("event missing id")
	}
	if e.CalendarID == "" {
		return errors.New("event missing calendar id")
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return ErrMissingInstant
	}
	return nil
}

// Less orders events by start instant ascending, with the id as a
// lexicographic tie-break. The order is total and stable.
func (e Event) Less(other Event) bool {
	if !e.Start.Equal(other.Start) {
		return e.Start.Before(other.Start)
	}
	return e.ID < other.ID
}

// Equal is structural equality over every field, including Cleared.
func (e Event) Equal(other Event) bool {
	return e.ID == other.ID &&
		e.CalendarID == other.CalendarID &&
		e.Start.Equal(other.Start) &&
		e.End.Equal(other.End) &&
		e.Title == other.Title &&
		e.Cleared == other.Cleared
}

// Merge combines a freshly fetched event with its previously stored version.
// The remote fields win, except Cleared, which is OR-ed with the stored value
// so a user-cleared event is never revived by a re-fetch. The second return
// reports whether the merged record differs from the stored one, i.e. whether
// an update needs to be written at all.
func Merge(incoming, stored Event) (Event, bool) {
	merged := incoming
	merged.Cleared = incoming.Cleared || stored.Cleared
	return merged, !merged.Equal(stored)
}

// Calendar is an immutable container of events keyed by event id. Identity is
// the provider-assigned id alone; two calendars are the same calendar iff
// their ids match, regardless of content.
type Calendar struct {
	ID     string           `json:"id"`
	Events map[string]Event `json:"events"`
}

// NewCalendar builds a calendar from a set of events. Events carrying a
// different calendar id are claimed by this calendar.
func NewCalendar(id string, events ...Event) Calendar {
	c := Calendar{ID: id, Events: make(map[string]Event, len(events))}
	for _, e := range events {
		e.CalendarID = id
		c.Events[e.ID] = e
	}
	return c
}

// EventIDs returns the ids of all events in the calendar, in no particular order.
func (c Calendar) EventIDs() []string {
	ids := make([]string, 0, len(c.Events))
	for id := range c.Events {
		ids = append(ids, id)
	}
	return ids
}

// SortedEvents returns the calendar's events in the natural event ordering.
func (c Calendar) SortedEvents() []Event {
	events := make([]Event, 0, len(c.Events))
	for _, e := range c.Events {
		events = append(events, e)
	}
	SortEvents(events)
	return events
}

// SortEvents sorts events in place by the natural ordering.
func SortEvents(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Less(events[j])
	})
}
