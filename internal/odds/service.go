package odds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uniligue/bet-engine/internal/registry"
	"github.com/uniligue/bet-engine/pkg/contracts/events"
)

// ErrMatchConcluded: recálculo solicitado para partida já encerrada/cancelada.
var ErrMatchConcluded = errors.New("match already concluded")

// MatchSource é o que o calculador precisa do registro de partidas.
type MatchSource interface {
	GetByID(ctx context.Context, id string) (*registry.Match, error)
	ListUpcoming(ctx context.Context, limit int) ([]registry.Match, error)
}

// Store é a persistência de odds usada pelo calculador.
type Store interface {
	HistoryWindow(ctx context.Context, sport string, level int, before time.Time) ([]HistoricalGame, error)
	CurrentPressure(ctx context.Context, matchID string) (Pressure, error)
	Upsert(ctx context.Context, matchID string, t Triple) (int, error)
	ListPressured(ctx context.Context, minBets int) ([]string, error)
}

type Publisher interface {
	PublishOddsUpdate(ctx context.Context, e events.OddsUpdate) error
}

// Calculator liga histórico + pressão de apostas ao upsert de odds.
// Cache, Pub e OnUpdated são opcionais.
type Calculator struct {
	Log     *zap.Logger
	Matches MatchSource
	Store   Store
	Cache   *RedisCache
	Pub     Publisher
	Source  string // nome do serviço emissor, vai no evento

	// Mantém o comportamento legado de contar só partidas como team1;
	// ligar quando a correção do retrospecto for confirmada.
	CountBothSides bool

	// Chamado após persistir, com o evento já montado (broadcast WS).
	OnUpdated func(events.OddsUpdate)
}

// RecomputeMatch recalcula e grava as odds de uma partida ainda não
// encerrada. Upsert é um único statement: ou a linha inteira muda, ou nada.
func (c *Calculator) RecomputeMatch(ctx context.Context, matchID string) (Triple, error) {
	m, err := c.Matches.GetByID(ctx, matchID)
	if err != nil {
		return Triple{}, err
	}
	if m.Concluded() {
		return Triple{}, ErrMatchConcluded
	}

	history, err := c.Store.HistoryWindow(ctx, m.Sport, m.Level, m.StartsAt)
	if err != nil {
		return Triple{}, fmt.Errorf("history window: %w", err)
	}
	pressure, err := c.Store.CurrentPressure(ctx, matchID)
	if err != nil {
		return Triple{}, fmt.Errorf("current pressure: %w", err)
	}

	home := RecordFromHistory(history, m.Team1, c.CountBothSides)
	away := RecordFromHistory(history, m.Team2, c.CountBothSides)
	triple := Compute(home, away, pressure)

	version, err := c.Store.Upsert(ctx, matchID, triple)
	if err != nil {
		return Triple{}, fmt.Errorf("upsert odds: %w", err)
	}

	ev := events.OddsUpdate{
		MatchID:   m.ID,
		HomeTeam:  m.Team1,
		AwayTeam:  m.Team2,
		Sport:     m.Sport,
		Odds:      events.Odds{Home: triple.Home, Draw: triple.Draw, Away: triple.Away},
		UpdatedAt: time.Now(),
		Source:    c.Source,
		Version:   version,
	}

	if c.Cache != nil {
		if err := c.Cache.SetCurrent(ctx, ev); err != nil {
			c.Log.Warn("odds cache set failed", zap.String("matchId", matchID), zap.Error(err))
		}
	}
	if c.Pub != nil {
		if err := c.Pub.PublishOddsUpdate(ctx, ev); err != nil {
			c.Log.Warn("odds publish failed", zap.String("matchId", matchID), zap.Error(err))
		}
	}
	if c.OnUpdated != nil {
		c.OnUpdated(ev)
	}

	return triple, nil
}

// RecomputeUpcoming roda o ciclo completo sobre as partidas ainda não
// iniciadas. Erros individuais não interrompem o ciclo.
func (c *Calculator) RecomputeUpcoming(ctx context.Context, limit int) (int, error) {
	matches, err := c.Matches.ListUpcoming(ctx, limit)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, m := range matches {
		if _, err := c.RecomputeMatch(ctx, m.ID); err != nil {
			c.Log.Warn("recompute failed", zap.String("matchId", m.ID), zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

// RecomputePressured recalcula as partidas cujo volume de apostas desde o
// último cálculo passou do limiar.
func (c *Calculator) RecomputePressured(ctx context.Context, minBets int) (int, error) {
	ids, err := c.Store.ListPressured(ctx, minBets)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, id := range ids {
		if _, err := c.RecomputeMatch(ctx, id); err != nil {
			c.Log.Warn("pressured recompute failed", zap.String("matchId", id), zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}
