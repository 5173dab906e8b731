package view

import (
	"fmt"
	"log/slog"
	"time"

	"scald/internal/model"
	"scald/internal/store"
)

// Derive filters calendars down to their active events: events that have
// started and have not been cleared, in natural order. Pure function of its
// inputs; callers pick the clock.
func Derive(calendars []model.Calendar, now time.Time) []model.Event {
	var active []model.Event
	for _, cal := range calendars {
		for _, e := range cal.Events {
			if e.Cleared || !e.Start.Before(now) {
				continue
			}
			active = append(active, e)
		}
	}
	model.SortEvents(active)
	return active
}

// Service is the consumer-facing surface over the store: the ordered active
// view and the clear operation. The view is derived wholesale from persisted
// state on every read; there is no cached copy to fall out of sync.
type Service struct {
	calendars *store.CalendarStore
	events    *store.EventStore
	logger    *slog.Logger
	now       func() time.Time

	// onCleared runs after a clear is durably persisted.
	onCleared func(model.Event)
}

func NewService(calendars *store.CalendarStore, events *store.EventStore, onCleared func(model.Event), logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		calendars: calendars,
		events:    events,
		logger:    logger,
		now:       time.Now,
		onCleared: onCleared,
	}
}

// OrderedActiveEvents returns every active event across all calendars,
// ordered by start time with id as tie-break.
func (s *Service) OrderedActiveEvents() ([]model.Event, error) {
	calendars, err := s.calendars.List()
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	return Derive(calendars, s.now()), nil
}

// Calendars returns all calendars with their full event sets.
func (s *Service) Calendars() ([]model.Calendar, error) {
	return s.calendars.List()
}

// MarkCleared marks the event cleared and returns its persisted state.
// Returns store.ErrNotFound when the event does not exist. The clear is
// durable before the notification hook runs.
func (s *Service) MarkCleared(eventID string) (model.Event, error) {
	if err := s.events.MarkCleared(eventID); err != nil {
		return model.Event{}, err
	}

	cleared, err := s.events.GetByID(eventID)
	if err != nil {
		return model.Event{}, fmt.Errorf("load cleared event: %w", err)
	}
	if cleared == nil {
		// Cleared and purged between the two statements; report the clear.
		return model.Event{}, store.ErrNotFound
	}

	s.logger.Info("event cleared", "event_id", eventID, "calendar_id", cleared.CalendarID)
	if s.onCleared != nil {
		s.onCleared(*cleared)
	}
	return *cleared, nil
}
