package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// ClicksHandler handles synchronous click ingestion.
type ClicksHandler struct {
	svc Service
}

// NewClicksHandler creates a new clicks handler.
func NewClicksHandler(svc Service) *ClicksHandler {
	return &ClicksHandler{svc: svc}
}

type clickRequest struct {
	ParticipantID   string `json:"participantId"`
	ClickDelta      int64  `json:"clickDelta"`
	ClientTimestamp string `json:"clientTimestamp"`
	SessionTag      string `json:"sessionTag"`
}

type clickResponse struct {
	ParticipantTotal int64 `json:"participantTotal"`
	BattleTotal      int64 `json:"battleTotal"`
}

// HandlePostClicks handles POST /battles/{id}/clicks.
func (h *ClicksHandler) HandlePostClicks(w http.ResponseWriter, r *http.Request) {
	battleID := r.PathValue("id")

	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrInvalidBody, err))
		return
	}
	if strings.TrimSpace(req.ParticipantID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing participantId"))
		return
	}

	// A malformed timestamp degrades to server time; the delta itself
	// is coerced downstream.
	clientTS, err := time.Parse(time.RFC3339, req.ClientTimestamp)
	if err != nil {
		clientTS = time.Now()
	}

	participantTotal, battleTotal, err := h.svc.RecordClick(
		r.Context(), battleID, req.ParticipantID, req.ClickDelta, clientTS, req.SessionTag)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clickResponse{
		ParticipantTotal: participantTotal,
		BattleTotal:      battleTotal,
	})
}
