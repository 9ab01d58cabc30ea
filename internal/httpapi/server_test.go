package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uniligue/bet-engine/internal/ledger"
	"github.com/uniligue/bet-engine/internal/notify"
)

type memNotifications struct {
	items []notify.Notification
	read  []string
}

func (m *memNotifications) Insert(_ context.Context, n notify.Notification) (bool, error) {
	m.items = append(m.items, n)
	return true, nil
}

func (m *memNotifications) ListByUser(_ context.Context, userID string, _ int) ([]notify.Notification, error) {
	var out []notify.Notification
	for _, n := range m.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) MarkRead(_ context.Context, _, id string) error {
	m.read = append(m.read, id)
	return nil
}

type memPoints struct{ balances map[string]int64 }

func (m *memPoints) Balance(_ context.Context, userID string) (int64, error) {
	return m.balances[userID], nil
}

func (m *memPoints) Transactions(context.Context, string, int) ([]ledger.Transaction, error) {
	return nil, nil
}

func (m *memPoints) ApplyStandalone(_ context.Context, userID string, points int64, kind ledger.Kind, _ string) error {
	if kind == ledger.Spend {
		points = -points
	}
	m.balances[userID] += points
	return nil
}

func (m *memPoints) Reconcile(context.Context, string) error { return nil }

func newTestAPI(n *memNotifications, p *memPoints) *API {
	return &API{Log: zap.NewNop(), Validate: validator.New(), Notifications: n, Points: p}
}

func TestListNotificationsFiltraPorUsuario(t *testing.T) {
	store := &memNotifications{items: []notify.Notification{
		{ID: "n1", UserID: "u1", Type: notify.TypeBetWon, Title: "🎉 Pari gagné!", Points: 200, BetID: "g1", CreatedAt: time.Now()},
		{ID: "n2", UserID: "u2", Type: notify.TypeBetLost, Title: "Pari perdu", Points: -50, BetID: "g2", CreatedAt: time.Now()},
	}}
	api := newTestAPI(store, &memPoints{balances: map[string]int64{}})

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/notifications?userId=u1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out []NotificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "n1", out[0].ID)
	assert.Equal(t, string(notify.TypeBetWon), out[0].Type)
	assert.Equal(t, "g1", out[0].BetID)

	rec = httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/notifications", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "sem userId é 400")
}

func TestMarkNotificationRead(t *testing.T) {
	store := &memNotifications{}
	api := newTestAPI(store, &memPoints{balances: map[string]int64{}})

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/notifications/n1/read?userId=u1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"n1"}, store.read)

	rec = httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/notifications/n1/read", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrantPointsCreditaENotifica(t *testing.T) {
	store := &memNotifications{}
	points := &memPoints{balances: map[string]int64{}}
	api := newTestAPI(store, points)

	body := strings.NewReader(`{"userId":"u1","points":250,"reason":"bonus d'inscription"}`)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/points/grant", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var out BalanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(250), out.Points)
	assert.Equal(t, int64(250), points.balances["u1"])

	require.Len(t, store.items, 1)
	assert.Equal(t, notify.TypePointsEarned, store.items[0].Type)
	assert.Equal(t, int64(250), store.items[0].Points)

	rec = httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/points/grant", strings.NewReader(`{"userId":"u1","points":0}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "crédito precisa ser positivo")
}
