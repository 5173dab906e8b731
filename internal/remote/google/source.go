package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"scald/internal/model"
	"scald/internal/remote"
)

// Source implements remote.Source against the Google Calendar API.
type Source struct {
	logger *slog.Logger
}

func NewSource(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{logger: logger}
}

func (s *Source) service(ctx context.Context, credential string) (*calendar.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential})
	svc, err := calendar.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, &remote.TransportError{Op: "create client", Err: err}
	}
	return svc, nil
}

// Calendars lists the ids of every calendar on the account's calendar list.
func (s *Source) Calendars(ctx context.Context, credential string) ([]string, error) {
	svc, err := s.service(ctx, credential)
	if err != nil {
		return nil, err
	}

	var ids []string
	call := svc.CalendarList.List().Context(ctx)
	if err := call.Pages(ctx, func(feed *calendar.CalendarList) error {
		for _, item := range feed.Items {
			ids = append(ids, item.Id)
		}
		return nil
	}); err != nil {
		return nil, mapError("list calendars", err)
	}
	return ids, nil
}

// Events lists the calendar's events starting after since. Events whose
// instants cannot be resolved are dropped here with a log line; the sync
// path requires both instants present.
func (s *Source) Events(ctx context.Context, credential, calendarID string, since time.Time) ([]model.Event, error) {
	svc, err := s.service(ctx, credential)
	if err != nil {
		return nil, err
	}

	var events []model.Event
	call := svc.Events.List(calendarID).
		Context(ctx).
		SingleEvents(true).
		TimeMin(since.UTC().Format(time.RFC3339))

	if err := call.Pages(ctx, func(feed *calendar.Events) error {
		for _, item := range feed.Items {
			e, err := convertEvent(item, calendarID)
			if err != nil {
				s.logger.Warn("dropping event with unresolvable instants",
					"calendar_id", calendarID,
					"event_id", item.Id,
					"error", err)
				continue
			}
			events = append(events, e)
		}
		return nil
	}); err != nil {
		return nil, mapError(fmt.Sprintf("list events for %s", calendarID), err)
	}
	return events, nil
}

// mapError classifies an API failure: a 401 means the access token is no
// longer honored, everything else is a transport problem for this cycle.
func mapError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, remote.ErrAuthExpired)
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%s: %w", op, remote.ErrAuthExpired)
	}

	return &remote.TransportError{Op: op, Err: err}
}

// convertEvent maps an API event to the internal model. Events arrive with
// Cleared unset: that flag is local-only and merged in by the reconciler.
func convertEvent(item *calendar.Event, calendarID string) (model.Event, error) {
	start, err := parseInstant(item.Start)
	if err != nil {
		return model.Event{}, fmt.Errorf("start: %w", err)
	}

	end, err := parseInstant(item.End)
	if err != nil {
		return model.Event{}, fmt.Errorf("end: %w", err)
	}

	return model.Event{
		ID:         item.Id,
		CalendarID: calendarID,
		Start:      start,
		End:        end,
		Title:      item.Summary,
	}, nil
}

// parseInstant resolves an EventDateTime to a concrete instant. Timed events
// carry an RFC3339 DateTime; all-day events carry only a Date, which resolves
// to midnight UTC of that day.
func parseInstant(dt *calendar.EventDateTime) (time.Time, error) {
	if dt == nil {
		return time.Time{}, model.ErrMissingInstant
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse datetime %q: %w", dt.DateTime, err)
		}
		return t.UTC(), nil
	}
	if dt.Date != "" {
		t, err := time.Parse("2006-01-02", dt.Date)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", dt.Date, err)
		}
		return t, nil
	}
	return time.Time{}, model.ErrMissingInstant
}
