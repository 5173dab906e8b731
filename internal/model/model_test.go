package model

import (
	"testing"
	"time"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testEvent(id string, start time.Time) Event {
	return Event{
		ID:         id,
		CalendarID: "cal1",
		Start:      start,
		End:        start.Add(time.Hour),
		Title:      "Event " + id,
	}
}

func TestSortEventsByStart(t *testing.T) {
	events := []Event{
		testEvent("c", baseTime.Add(2*time.Hour)),
		testEvent("a", baseTime),
		testEvent("b", baseTime.Add(time.Hour)),
	}

	SortEvents(events)

	want := []string{"a", "b", "c"}
	for i, id := range want {
		if events[i].ID != id {
			t.Errorf("events[%d].ID = %q, want %q", i, events[i].ID, id)
		}
	}
}

func TestSortEventsTieBreakByID(t *testing.T) {
	events := []Event{
		testEvent("z", baseTime),
		testEvent("a", baseTime),
		testEvent("m", baseTime),
	}

	SortEvents(events)

	want := []string{"a", "m", "z"}
	for i, id := range want {
		if events[i].ID != id {
			t.Errorf("events[%d].ID = %q, want %q", i, events[i].ID, id)
		}
	}
}

func TestEqualIncludesCleared(t *testing.T) {
	a := testEvent("e1", baseTime)
	b := a
	if !a.Equal(b) {
		t.Fatal("identical events should be equal")
	}

	b.Cleared = true
	if a.Equal(b) {
		t.Error("events differing only in cleared should not be equal")
	}
}

func TestEqualComparesInstants(t *testing.T) {
	a := testEvent("e1", baseTime)
	b := a
	b.Start = b.Start.Add(time.Minute)
	if a.Equal(b) {
		t.Error("events with different start instants should not be equal")
	}
}

func TestMergeStickyCleared(t *testing.T) {
	stored := testEvent("e1", baseTime)
	stored.Cleared = true

	incoming := testEvent("e1", baseTime)
	incoming.Cleared = false

	merged, changed := Merge(incoming, stored)
	if !merged.Cleared {
		t.Error("merge must preserve the stored cleared flag")
	}
	if changed {
		t.Error("merge of an otherwise identical event should report no change")
	}
}

func TestMergeDetectsChangedFields(t *testing.T) {
	stored := testEvent("e1", baseTime)

	incoming := stored
	incoming.Title = "Renamed"

	merged, changed := Merge(incoming, stored)
	if !changed {
		t.Error("title change should be reported as changed")
	}
	if merged.Title != "Renamed" {
		t.Errorf("merged title = %q, want %q", merged.Title, "Renamed")
	}
}

func TestMergeRemoteFieldsWin(t *testing.T) {
	stored := testEvent("e1", baseTime)
	stored.Cleared = true

	incoming := testEvent("e1", baseTime.Add(30*time.Minute))
	incoming.Title = "Moved"

	merged, changed := Merge(incoming, stored)
	if !changed {
		t.Error("moved event should be reported as changed")
	}
	if !merged.Start.Equal(incoming.Start) {
		t.Error("merged start should come from the incoming event")
	}
	if !merged.Cleared {
		t.Error("cleared flag should survive the move")
	}
}

func TestValidate(t *testing.T) {
	valid := testEvent("e1", baseTime)
	if err := valid.Validate(); err != nil {
		t.Errorf("valid event: %v", err)
	}

	missingStart := valid
	missingStart.Start = time.Time{}
	if err := missingStart.Validate(); err != ErrMissingInstant {
		t.Errorf("missing start: got %v, want ErrMissingInstant", err)
	}

	missingEnd := valid
	missingEnd.End = time.Time{}
	if err := missingEnd.Validate(); err != ErrMissingInstant {
		t.Errorf("missing end: got %v, want ErrMissingInstant", err)
	}

	noCal := valid
	noCal.CalendarID = ""
	if err := noCal.Validate(); err == nil {
		t.Error("event without calendar id should fail validation")
	}

	noID := valid
	noID.ID = ""
	if err := noID.Validate(); err == nil {
		t.Error("event without id should fail validation")
	}
}

func TestNewCalendarClaimsEvents(t *testing.T) {
	e := testEvent("e1", baseTime)
	e.CalendarID = "other"

	cal := NewCalendar("cal1", e)
	got, ok := cal.Events["e1"]
	if !ok {
		t.Fatal("event not present in calendar")
	}
	if got.CalendarID != "cal1" {
		t.Errorf("calendar id = %q, want %q", got.CalendarID, "cal1")
	}
}

func TestSortedEvents(t *testing.T) {
	cal := NewCalendar("cal1",
		testEvent("b", baseTime.Add(time.Hour)),
		testEvent("a", baseTime),
	)

	events := cal.SortedEvents()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != "a" || events[1].ID != "b" {
		t.Errorf("unexpected order: %q, %q", events[0].ID, events[1].ID)
	}
}
