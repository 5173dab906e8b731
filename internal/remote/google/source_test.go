package google

import (
	"errors"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"scald/internal/model"
	"scald/internal/remote"
)

func TestParseInstantDateTime(t *testing.T) {
	got, err := parseInstant(&calendar.EventDateTime{DateTime: "2026-03-10T09:30:00+01:00"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseInstantAllDayDate(t *testing.T) {
	got, err := parseInstant(&calendar.EventDateTime{Date: "2026-03-10"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseInstantMissing(t *testing.T) {
	if _, err := parseInstant(nil); !errors.Is(err, model.ErrMissingInstant) {
		t.Errorf("nil: got %v, want ErrMissingInstant", err)
	}
	if _, err := parseInstant(&calendar.EventDateTime{}); !errors.Is(err, model.ErrMissingInstant) {
		t.Errorf("empty: got %v, want ErrMissingInstant", err)
	}
}

func TestConvertEvent(t *testing.T) {
	item := &calendar.Event{
		Id:      "e1",
		Summary: "Standup",
		Start:   &calendar.EventDateTime{DateTime: "2026-03-10T09:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2026-03-10T09:15:00Z"},
	}

	got, err := convertEvent(item, "cal1")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	if got.ID != "e1" || got.CalendarID != "cal1" || got.Title != "Standup" {
		t.Errorf("unexpected event: %+v", got)
	}
	if got.Cleared {
		t.Error("remote events must arrive uncleared")
	}
	if err := got.Validate(); err != nil {
		t.Errorf("converted event should validate: %v", err)
	}
}

func TestConvertEventMissingEnd(t *testing.T) {
	item := &calendar.Event{
		Id:    "e1",
		Start: &calendar.EventDateTime{DateTime: "2026-03-10T09:00:00Z"},
	}

	if _, err := convertEvent(item, "cal1"); err == nil {
		t.Error("event without end should be rejected")
	}
}

func TestMapErrorUnauthorized(t *testing.T) {
	err := mapError("list calendars", &googleapi.Error{Code: 401})
	if !errors.Is(err, remote.ErrAuthExpired) {
		t.Errorf("got %v, want ErrAuthExpired", err)
	}
}

func TestMapErrorTransport(t *testing.T) {
	err := mapError("list calendars", &googleapi.Error{Code: 503})
	if errors.Is(err, remote.ErrAuthExpired) {
		t.Error("503 should not be classified as auth expiry")
	}

	var terr *remote.TransportError
	if !errors.As(err, &terr) {
		t.Errorf("got %T, want *remote.TransportError", err)
	}
}
