package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// RedeemHandler opens containers for players.
type RedeemHandler struct {
	svc Service
}

// NewRedeemHandler creates a new redeem handler.
func NewRedeemHandler(svc Service) *RedeemHandler {
	return &RedeemHandler{svc: svc}
}

type redeemRequest struct {
	PlayerID    string `json:"playerId"`
	ContainerID string `json:"containerId"`
}

// HandleRedeem handles POST /redeem.
func (h *RedeemHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrInvalidBody, err))
		return
	}
	if strings.TrimSpace(req.PlayerID) == "" || strings.TrimSpace(req.ContainerID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing playerId or containerId"))
		return
	}

	result, err := h.svc.Redeem(r.Context(), req.PlayerID, req.ContainerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
