package handler

import (
	"net/http"
	"time"

	syncer "scald/internal/sync"
)

// SyncStatus is the slice of the poller the status endpoint reports on.
type SyncStatus interface {
	State() syncer.State
	LastSync() time.Time
}

type StatusHandler struct {
	status  SyncStatus
	clients func() int
}

// NewStatusHandler reports poller state and connected display count.
// clients may be nil when no websocket hub is wired.
func NewStatusHandler(status SyncStatus, clients func() int) *StatusHandler {
	return &StatusHandler{status: status, clients: clients}
}

type statusResponse struct {
	State            string  `json:"state"`
	LastSync         *string `json:"last_sync"`
	ConnectedClients int     `json:"connected_clients"`
}

func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{State: h.status.State().String()}

	if last := h.status.LastSync(); !last.IsZero() {
		s := last.UTC().Format(time.RFC3339)
		resp.LastSync = &s
	}
	if h.clients != nil {
		resp.ConnectedClients = h.clients()
	}

	writeJSON(w, http.StatusOK, resp)
}
