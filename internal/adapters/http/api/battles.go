package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pawlik/clickarena/internal/domain/model"
)

// BattlesHandler handles battle lifecycle requests.
type BattlesHandler struct {
	svc Service
}

// NewBattlesHandler creates a new battles handler.
func NewBattlesHandler(svc Service) *BattlesHandler {
	return &BattlesHandler{svc: svc}
}

type createBattleRequest struct {
	PlayerID        string `json:"playerId"`
	DurationSeconds int    `json:"durationSeconds"`
}

type battleResponse struct {
	BattleID      string             `json:"battleId"`
	Status        model.BattleStatus `json:"status"`
	ParticipantID string             `json:"participantId"`
	DurationSec   int                `json:"durationSeconds"`
	WinnerID      string             `json:"winnerId,omitempty"`
}

type joinBattleRequest struct {
	PlayerID string `json:"playerId"`
}

type joinBattleResponse struct {
	ParticipantID string               `json:"participantId"`
	Snapshot      model.BattleSnapshot `json:"snapshot"`
}

// HandleCreate handles POST /battles.
func (h *BattlesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrInvalidBody, err))
		return
	}
	if strings.TrimSpace(req.PlayerID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing playerId"))
		return
	}

	battle, creator := h.svc.CreateBattle(req.PlayerID, req.DurationSeconds)
	writeJSON(w, http.StatusCreated, battleResponse{
		BattleID:      battle.ID,
		Status:        battle.Status,
		ParticipantID: creator.ID,
		DurationSec:   int(battle.Duration.Seconds()),
	})
}

// HandleJoin handles POST /battles/{id}/join.
func (h *BattlesHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	battleID := r.PathValue("id")

	var req joinBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrInvalidBody, err))
		return
	}
	if strings.TrimSpace(req.PlayerID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing playerId"))
		return
	}

	snap, participant, err := h.svc.JoinBattle(r.Context(), battleID, req.PlayerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinBattleResponse{
		ParticipantID: participant.ID,
		Snapshot:      snap,
	})
}

// HandleGet handles GET /battles/{id}, serving the cached snapshot.
func (h *BattlesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	battleID := r.PathValue("id")

	snap, fingerprint, err := h.svc.GetSnapshot(r.Context(), battleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{
		Fingerprint: fingerprint,
		Snapshot:    snap,
	})
}
