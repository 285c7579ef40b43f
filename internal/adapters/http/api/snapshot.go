package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/pawlik/clickarena/internal/domain/model"
)

// UpdatesHandler serves the long-poll battle updates endpoint.
type UpdatesHandler struct {
	svc Service
}

// NewUpdatesHandler creates a new updates handler.
func NewUpdatesHandler(svc Service) *UpdatesHandler {
	return &UpdatesHandler{svc: svc}
}

type snapshotResponse struct {
	Fingerprint string               `json:"fingerprint"`
	Snapshot    model.BattleSnapshot `json:"snapshot"`
}

type updatesResponse struct {
	HasUpdate   bool                  `json:"hasUpdate"`
	Fingerprint string                `json:"fingerprint"`
	Snapshot    *model.BattleSnapshot `json:"snapshot,omitempty"`
}

// HandleUpdates handles GET /battles/{id}/updates?fingerprint=X.
// The request blocks until the battle changes past the caller's
// fingerprint or the poll window elapses.
func (h *UpdatesHandler) HandleUpdates(w http.ResponseWriter, r *http.Request) {
	battleID := r.PathValue("id")
	fingerprint := r.URL.Query().Get("fingerprint")

	snap, newFP, hasUpdate, err := h.svc.Poll(r.Context(), battleID, fingerprint)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Client went away mid-poll; nothing useful to write.
			return
		}
		writeServiceError(w, err)
		return
	}

	resp := updatesResponse{HasUpdate: hasUpdate, Fingerprint: newFP}
	if hasUpdate {
		resp.Snapshot = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}
