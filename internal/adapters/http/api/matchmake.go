package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// MatchmakeHandler pairs players into waiting battles.
type MatchmakeHandler struct {
	svc Service
}

// NewMatchmakeHandler creates a new matchmake handler.
func NewMatchmakeHandler(svc Service) *MatchmakeHandler {
	return &MatchmakeHandler{svc: svc}
}

type matchmakeRequest struct {
	PlayerID string `json:"playerId"`
}

type matchmakeResponse struct {
	Found         bool   `json:"found"`
	BattleID      string `json:"battleId,omitempty"`
	ParticipantID string `json:"participantId,omitempty"`
}

// HandleMatchmake handles POST /matchmake.
func (h *MatchmakeHandler) HandleMatchmake(w http.ResponseWriter, r *http.Request) {
	var req matchmakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrInvalidBody, err))
		return
	}
	if strings.TrimSpace(req.PlayerID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing playerId"))
		return
	}

	battle, participant, found := h.svc.FindOpponent(req.PlayerID)
	if !found {
		writeJSON(w, http.StatusOK, matchmakeResponse{Found: false})
		return
	}
	writeJSON(w, http.StatusOK, matchmakeResponse{
		Found:         true,
		BattleID:      battle.ID,
		ParticipantID: participant.ID,
	})
}
