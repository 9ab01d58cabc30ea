package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniligue/bet-engine/internal/httpapi/ws"
	"github.com/uniligue/bet-engine/internal/ledger"
	"github.com/uniligue/bet-engine/internal/notify"
	"github.com/uniligue/bet-engine/internal/odds"
	"github.com/uniligue/bet-engine/internal/registry"
	"github.com/uniligue/bet-engine/internal/wager"
	"github.com/uniligue/bet-engine/pkg/contracts/events"
)

// PointsStore é a fatia do ledger exposta na API.
type PointsStore interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Transactions(ctx context.Context, userID string, limit int) ([]ledger.Transaction, error)
	ApplyStandalone(ctx context.Context, userID string, points int64, kind ledger.Kind, reason string) error
	Reconcile(ctx context.Context, userID string) error
}

// NotificationStore é a fatia das notificações exposta na API.
type NotificationStore interface {
	Insert(ctx context.Context, n notify.Notification) (bool, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]notify.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// API amarra os módulos do core nos endpoints REST e no hub WebSocket.
type API struct {
	Log           *zap.Logger
	Validate      *validator.Validate
	Matches       *registry.Postgres
	Odds          *odds.Postgres
	OddsCache     *odds.RedisCache
	Calc          *odds.Calculator
	Engine        *wager.Engine
	Bets          wager.Store
	Points        PointsStore
	Notifications NotificationStore
	Hub           *ws.Hub
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/matches", a.listMatches)
	r.Get("/v1/matches/{id}/odds", a.getMatchOdds)
	r.Post("/v1/odds/recompute", a.recomputeOdds)
	r.Post("/v1/bets", a.placeBet)
	r.Get("/v1/bets", a.listBets)
	r.Post("/v1/bets/verify", a.verifyBets)
	r.Get("/v1/points", a.getBalance)
	r.Get("/v1/points/transactions", a.listTransactions)
	r.Post("/v1/points/grant", a.grantPoints)
	r.Get("/v1/notifications", a.listNotifications)
	r.Post("/v1/notifications/{id}/read", a.markNotificationRead)
	r.Get("/v1/users/{id}/stats", a.getUserStats)
	if a.Hub != nil {
		r.Get("/ws/odds", a.Hub.HandleWS)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *API) listMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := a.Matches.ListUpcoming(r.Context(), 200)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]MatchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, toMatchResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// getMatchOdds lê do cache primeiro; miss cai no banco e reidrata o cache.
func (a *API) getMatchOdds(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var cached events.OddsUpdate
	if ok, _ := a.OddsCache.GetCurrent(r.Context(), id, &cached); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	triple, version, updatedAt, err := a.Odds.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, odds.ErrNotFound) {
			writeError(w, http.StatusNotFound, "odds not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	m, err := a.Matches.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ev := events.OddsUpdate{
		MatchID:   id,
		HomeTeam:  m.Team1,
		AwayTeam:  m.Team2,
		Sport:     m.Sport,
		Odds:      events.Odds{Home: triple.Home, Draw: triple.Draw, Away: triple.Away},
		UpdatedAt: updatedAt,
		Source:    "betting-api",
		Version:   version,
	}
	_ = a.OddsCache.SetCurrent(r.Context(), ev)
	writeJSON(w, http.StatusOK, ev)
}

func (a *API) recomputeOdds(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("matchId")
	if matchID == "" {
		writeError(w, http.StatusBadRequest, "matchId required")
		return
	}

	triple, err := a.Calc.RecomputeMatch(r.Context(), matchID)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, "match not found")
	case errors.Is(err, odds.ErrMatchConcluded):
		writeError(w, http.StatusConflict, "match already concluded")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"matchId": matchID,
			"odds":    events.Odds{Home: triple.Home, Draw: triple.Draw, Away: triple.Away},
		})
	}
}

func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	var req PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	picks := make([]wager.Pick, 0, len(req.Picks))
	for _, p := range req.Picks {
		sel, err := ParseSelection(p.Selection)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		picks = append(picks, wager.Pick{MatchID: p.MatchID, Selection: sel})
	}

	g, err := a.Engine.Place(r.Context(), req.UserID, req.Stake, picks)
	switch {
	case errors.Is(err, wager.ErrInvalidStake), errors.Is(err, wager.ErrNoLegs):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, wager.ErrMatchStarted), errors.Is(err, wager.ErrOddsUnavailable):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		a.Log.Error("place bet", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusCreated, toBetResponse(*g))
	}
}

func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	groups, err := a.Bets.GroupsByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]BetResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toBetResponse(g))
	}
	writeJSON(w, http.StatusOK, out)
}

// verifyBets reavalia na hora os grupos ativos do usuário (verificação
// manual, mesmo caminho da liquidação disparada por evento).
func (a *API) verifyBets(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	changed, err := a.Engine.VerifyUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// confere de carona o invariante do extrato do usuário
	if err := a.Points.Reconcile(r.Context(), userID); err != nil {
		a.Log.Warn("ledger reconcile", zap.String("userId", userID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{"changed": changed})
}

func (a *API) getBalance(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	balance, err := a.Points.Balance(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{UserID: userID, Points: balance})
}

func (a *API) listTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	txs, err := a.Points.Transactions(r.Context(), userID, 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// grantPoints credita pontos avulsos (bônus, créditos vindos de outras áreas
// do produto) na transação própria do ledger, com a notificação de praxe.
func (a *API) grantPoints(w http.ResponseWriter, r *http.Request) {
	var req GrantPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "crédit de points"
	}
	if err := a.Points.ApplyStandalone(r.Context(), req.UserID, req.Points, ledger.Earn, reason); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if _, err := a.Notifications.Insert(r.Context(), notify.PointsEarned(req.UserID, req.Points, time.Now())); err != nil {
		a.Log.Warn("points notification insert", zap.String("userId", req.UserID), zap.Error(err))
	}

	balance, err := a.Points.Balance(r.Context(), req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{UserID: req.UserID, Points: balance})
}

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	ns, err := a.Notifications.ListByUser(r.Context(), userID, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]NotificationResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, toNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	if err := a.Notifications.MarkRead(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) getUserStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	groups, err := a.Bets.GroupsByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, wager.ComputeStats(groups))
}
