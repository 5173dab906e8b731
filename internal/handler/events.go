package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"scald/internal/model"
	"scald/internal/store"
	"scald/internal/view"
)

type EventHandler struct {
	view   *view.Service
	logger *slog.Logger
}

func NewEventHandler(v *view.Service, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{view: v, logger: logger}
}

// ListActive returns all active events in their natural order.
func (h *EventHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	events, err := h.view.OrderedActiveEvents()
	if err != nil {
		h.logger.Error("list active events failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list active events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Clear marks an event cleared, removing it from the active view.
func (h *EventHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "event id is required")
		return
	}

	cleared, err := h.view.MarkCleared(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.logger.Error("clear event failed", "event_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear event")
		return
	}

	writeJSON(w, http.StatusOK, cleared)
}

type calendarSummary struct {
	ID         string `json:"id"`
	EventCount int    `json:"event_count"`
}

// ListCalendars returns all known calendars with their event counts.
func (h *EventHandler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	calendars, err := h.view.Calendars()
	if err != nil {
		h.logger.Error("list calendars failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list calendars")
		return
	}

	summaries := make([]calendarSummary, 0, len(calendars))
	for _, c := range calendars {
		summaries = append(summaries, calendarSummary{ID: c.ID, EventCount: len(c.Events)})
	}
	writeJSON(w, http.StatusOK, summaries)
}
