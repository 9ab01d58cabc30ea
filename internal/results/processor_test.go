package results

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uniligue/bet-engine/internal/notify"
	"github.com/uniligue/bet-engine/internal/registry"
	"github.com/uniligue/bet-engine/pkg/contracts/events"
)

func TestParseResult(t *testing.T) {
	base := events.MatchResult{
		Sport: "volley", Level: 2, Date: "2026-03-14", Time: "18:30",
		Team1: "Lyon", Team2: "Nantes",
	}

	t.Run("placar normal", func(t *testing.T) {
		ev := base
		ev.Score1, ev.Score2 = "3", "1"
		k, res, startsAt, err := ParseResult(ev)
		require.NoError(t, err)
		assert.Equal(t, "volley", k.Sport)
		assert.Equal(t, 3, *res.Score1)
		assert.Equal(t, 1, *res.Score2)
		assert.False(t, res.Cancelled)
		assert.Equal(t, time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC), startsAt)
	})

	t.Run("sem placar ainda", func(t *testing.T) {
		_, res, _, err := ParseResult(base)
		require.NoError(t, err)
		assert.Nil(t, res.Score1)
		assert.Nil(t, res.Score2)
		assert.False(t, res.Cancelled)
	})

	t.Run("par ilegivel vira cancelamento", func(t *testing.T) {
		ev := base
		ev.Score1, ev.Score2 = "NaN", "--"
		_, res, _, err := ParseResult(ev)
		require.NoError(t, err)
		assert.True(t, res.Cancelled)
	})

	t.Run("um so ilegivel e malformado", func(t *testing.T) {
		ev := base
		ev.Score1, ev.Score2 = "3", "NaN"
		_, _, _, err := ParseResult(ev)
		assert.ErrorIs(t, err, errMalformedScore)
	})

	t.Run("horario invalido", func(t *testing.T) {
		ev := base
		ev.Time = "25h99"
		_, _, _, err := ParseResult(ev)
		assert.Error(t, err)
	})
}

type fakeMatchStore struct {
	upserts int
	match   *registry.Match
	changed bool
	missing bool
}

func (f *fakeMatchStore) UpsertSchedule(context.Context, registry.Key, string, time.Time) (string, error) {
	f.upserts++
	f.missing = false
	return f.match.ID, nil
}

func (f *fakeMatchStore) ApplyResult(context.Context, registry.Key, registry.Result) (*registry.Match, bool, error) {
	if f.missing {
		return nil, false, registry.ErrNotFound
	}
	return f.match, f.changed, nil
}

type fakeSettler struct{ settled []string }

func (f *fakeSettler) SettleMatch(_ context.Context, id string) error {
	f.settled = append(f.settled, id)
	return nil
}

type fakeRefresher struct{ calls int }

func (f *fakeRefresher) RecomputeUpcoming(context.Context, int) (int, error) {
	f.calls++
	return 0, nil
}

type fakeBettors struct{ users []string }

func (f *fakeBettors) UsersWithActiveLegs(context.Context, string) ([]string, error) {
	return f.users, nil
}

type fakeNotifications struct{ inserted []notify.Notification }

func (f *fakeNotifications) Insert(_ context.Context, n notify.Notification) (bool, error) {
	f.inserted = append(f.inserted, n)
	return true, nil
}

func newProcessorFixture(m *registry.Match, changed bool) (*Processor, *fakeMatchStore, *fakeSettler, *fakeRefresher, *fakeNotifications) {
	store := &fakeMatchStore{match: m, changed: changed}
	settler := &fakeSettler{}
	refresher := &fakeRefresher{}
	notes := &fakeNotifications{}
	p := &Processor{
		Log:           zap.NewNop(),
		Matches:       store,
		Engine:        settler,
		Odds:          refresher,
		Bettors:       &fakeBettors{users: []string{"u1", "u2"}},
		Notifications: notes,
	}
	return p, store, settler, refresher, notes
}

func concludedMatch() *registry.Match {
	s1, s2 := 3, 1
	return &registry.Match{
		ID: "m1", Sport: "volley", Team1: "Lyon", Team2: "Nantes",
		Score1: &s1, Score2: &s2, Status: registry.StatusConcluded,
	}
}

func TestProcessOneConcluida(t *testing.T) {
	p, _, settler, refresher, notes := newProcessorFixture(concludedMatch(), true)

	ev := events.MatchResult{
		Sport: "volley", Level: 1, Date: "2026-03-14", Time: "18:30",
		Team1: "Lyon", Team2: "Nantes", Score1: "3", Score2: "1", Played: true,
	}
	require.NoError(t, p.processOne(context.Background(), ev))

	assert.Equal(t, []string{"m1"}, settler.settled)
	assert.Equal(t, 1, refresher.calls)
	require.Len(t, notes.inserted, 2, "um aviso por apostador com leg ativo")
	assert.Equal(t, notify.TypeMatchEnded, notes.inserted[0].Type)
}

func TestProcessOneSemMudancaNaoDisparaNada(t *testing.T) {
	p, _, settler, refresher, notes := newProcessorFixture(concludedMatch(), false)

	ev := events.MatchResult{
		Sport: "volley", Level: 1, Date: "2026-03-14", Time: "18:30",
		Team1: "Lyon", Team2: "Nantes", Score1: "3", Score2: "1",
	}
	require.NoError(t, p.processOne(context.Background(), ev))

	assert.Empty(t, settler.settled)
	assert.Zero(t, refresher.calls)
	assert.Empty(t, notes.inserted)
}

func TestProcessOnePartidaDesconhecidaFazUpsert(t *testing.T) {
	p, store, settler, _, _ := newProcessorFixture(concludedMatch(), true)
	store.missing = true

	ev := events.MatchResult{
		Sport: "volley", Level: 1, Date: "2026-03-14", Time: "18:30",
		Team1: "Lyon", Team2: "Nantes", Score1: "3", Score2: "1", Played: true,
	}
	require.NoError(t, p.processOne(context.Background(), ev))
	assert.Equal(t, 1, store.upserts)
	assert.Equal(t, []string{"m1"}, settler.settled)
}

func TestProcessOneCanceladaNaoNotificaFimDePartida(t *testing.T) {
	m := concludedMatch()
	m.Score1, m.Score2 = nil, nil
	m.Status = registry.StatusCancelled
	p, _, settler, _, notes := newProcessorFixture(m, true)

	ev := events.MatchResult{
		Sport: "volley", Level: 1, Date: "2026-03-14", Time: "18:30",
		Team1: "Lyon", Team2: "Nantes", Score1: "NaN", Score2: "NaN",
	}
	require.NoError(t, p.processOne(context.Background(), ev))

	assert.Equal(t, []string{"m1"}, settler.settled, "cancelamento ainda liquida (VOID)")
	assert.Empty(t, notes.inserted, "o aviso de reembolso sai da liquidação, não daqui")
}
