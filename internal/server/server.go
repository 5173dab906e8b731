package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"scald/internal/handler"
	"scald/internal/middleware"
	"scald/internal/view"
	ws "scald/internal/websocket"
)

type Server struct {
	hub     *ws.Hub
	eventH  *handler.EventHandler
	statusH *handler.StatusHandler
	logger  *slog.Logger
}

func New(viewSvc *view.Service, status handler.SyncStatus, hub *ws.Hub, logger *slog.Logger) *Server {
	return &Server{
		hub:     hub,
		eventH:  handler.NewEventHandler(viewSvc, logger.With("component", "events")),
		statusH: handler.NewStatusHandler(status, hub.ClientCount),
		logger:  logger,
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/events/active", s.eventH.ListActive)
	mux.HandleFunc("POST /api/events/{id}/clear", s.eventH.Clear)
	mux.HandleFunc("GET /api/calendars", s.eventH.ListCalendars)
	mux.HandleFunc("GET /api/status", s.statusH.Get)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
