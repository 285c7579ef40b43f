// Package api exposes the battle subsystem over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pawlik/clickarena/internal/adapters/catalog"
	"github.com/pawlik/clickarena/internal/adapters/hub"
	"github.com/pawlik/clickarena/internal/adapters/registry"
	"github.com/pawlik/clickarena/internal/adapters/wallet"
	"github.com/pawlik/clickarena/internal/domain/model"
	"github.com/pawlik/clickarena/internal/domain/redeem"
)

// Service bundles the operations the handlers call. Implemented by
// the app service; the interface keeps this layer mockable.
type Service interface {
	CreateBattle(playerID string, durationSeconds int) (model.Battle, model.Participant)
	JoinBattle(ctx context.Context, battleID, playerID string) (model.BattleSnapshot, model.Participant, error)
	FindOpponent(playerID string) (model.Battle, model.Participant, bool)
	RecordClick(ctx context.Context, battleID, participantID string, delta int64, clientTS time.Time, session string) (int64, int64, error)
	GetSnapshot(ctx context.Context, battleID string) (model.BattleSnapshot, string, error)
	Poll(ctx context.Context, battleID, fingerprint string) (model.BattleSnapshot, string, bool, error)
	Subscribe(ctx context.Context, battleID string) (*hub.Subscriber, model.BattleSnapshot, error)
	Unsubscribe(sub *hub.Subscriber)
	Redeem(ctx context.Context, playerID, containerID string) (redeem.Result, error)
	Containers() []model.Container
	Stats(ctx context.Context) map[string]interface{}
}

// Server wires HTTP routes for the battle API.
type Server struct {
	battlesHandler    *BattlesHandler
	clicksHandler     *ClicksHandler
	updatesHandler    *UpdatesHandler
	wsHandler         *WSHandler
	matchmakeHandler  *MatchmakeHandler
	containersHandler *ContainersHandler
	redeemHandler     *RedeemHandler
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
}

// NewServer creates the API server with all handlers.
func NewServer(svc Service) *Server {
	return &Server{
		battlesHandler:    NewBattlesHandler(svc),
		clicksHandler:     NewClicksHandler(svc),
		updatesHandler:    NewUpdatesHandler(svc),
		wsHandler:         NewWSHandler(svc),
		matchmakeHandler:  NewMatchmakeHandler(svc),
		containersHandler: NewContainersHandler(svc),
		redeemHandler:     NewRedeemHandler(svc),
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(svc),
	}
}

// Register attaches all routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /battles", MetricsMiddleware(s.battlesHandler.HandleCreate, "battles_create"))
	mux.HandleFunc("POST /battles/{id}/join", MetricsMiddleware(s.battlesHandler.HandleJoin, "battles_join"))
	mux.HandleFunc("GET /battles/{id}", MetricsMiddleware(s.battlesHandler.HandleGet, "battles_get"))
	mux.HandleFunc("POST /battles/{id}/clicks", MetricsMiddleware(s.clicksHandler.HandlePostClicks, "clicks"))
	mux.HandleFunc("GET /battles/{id}/updates", MetricsMiddleware(s.updatesHandler.HandleUpdates, "updates"))
	mux.HandleFunc("GET /battles/{id}/ws", s.wsHandler.HandleWS)
	mux.HandleFunc("POST /matchmake", MetricsMiddleware(s.matchmakeHandler.HandleMatchmake, "matchmake"))
	mux.HandleFunc("GET /containers", MetricsMiddleware(s.containersHandler.HandleList, "containers"))
	mux.HandleFunc("POST /redeem", MetricsMiddleware(s.redeemHandler.HandleRedeem, "redeem"))
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Required carries the amount an insufficient-funds failure needed.
	Required int64 `json:"required,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps domain failures to precise HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var insufficient *wallet.InsufficientFundsError
	switch {
	case errors.Is(err, registry.ErrBattleNotFound),
		errors.Is(err, registry.ErrParticipantNotFound),
		errors.Is(err, catalog.ErrContainerNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, registry.ErrBattleFinished),
		errors.Is(err, registry.ErrBattleFull):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusPaymentRequired, errorResponse{
			Code:     "insufficient_funds",
			Message:  err.Error(),
			Required: insufficient.Required,
		})
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
