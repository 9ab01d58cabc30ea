package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/uniligue/bet-engine/internal/notify"
	"github.com/uniligue/bet-engine/internal/registry"
	sharedkafka "github.com/uniligue/bet-engine/internal/shared/kafka"
	"github.com/uniligue/bet-engine/pkg/contracts/events"
)

// MatchStore é o pedaço do registry que o worker usa.
type MatchStore interface {
	UpsertSchedule(ctx context.Context, k registry.Key, pool string, startsAt time.Time) (string, error)
	ApplyResult(ctx context.Context, k registry.Key, res registry.Result) (*registry.Match, bool, error)
}

// Settler liquida os grupos que referenciam a partida.
type Settler interface {
	SettleMatch(ctx context.Context, matchID string) error
}

// OddsRefresher recalcula odds das partidas ainda abertas depois que um
// resultado entra no histórico.
type OddsRefresher interface {
	RecomputeUpcoming(ctx context.Context, limit int) (int, error)
}

// BettorSource lista os apostadores a notificar no fim da partida.
type BettorSource interface {
	UsersWithActiveLegs(ctx context.Context, matchID string) ([]string, error)
}

type NotificationStore interface {
	Insert(ctx context.Context, n notify.Notification) (bool, error)
}

// Processor consome resultados de partida do Kafka e dirige o ciclo:
// registro do placar, notificação dos apostadores, liquidação e recálculo de
// odds. Mensagens indecifráveis vão para a DLQ.
type Processor struct {
	Log           *zap.Logger
	Reader        *kafka.Reader
	DLQ           *kafka.Writer
	Matches       MatchStore
	Engine        Settler
	Odds          OddsRefresher
	Bettors       BettorSource
	Notifications NotificationStore

	RecomputeLimit int // partidas recalculadas por resultado aplicado

	OnConsumed func()       // métricas (counter++)
	OnApplied  func()       // métricas
	OnSettled  func()       // métricas
	OnError    func(string) // métricas por fase
}

var errMalformedScore = errors.New("malformed score")

// ParseResult traduz o evento de ingestão para a chave + resultado do
// registry. O sentinela de cancelamento é o par de placares ilegíveis que a
// planilha da federação produz; um só placar ilegível é mensagem malformada.
func ParseResult(ev events.MatchResult) (registry.Key, registry.Result, time.Time, error) {
	k := registry.Key{
		Sport: ev.Sport,
		Level: ev.Level,
		Date:  ev.Date,
		Time:  ev.Time,
		Team1: ev.Team1,
		Team2: ev.Team2,
	}

	startsAt, err := time.Parse("2006-01-02 15:04", ev.Date+" "+ev.Time)
	if err != nil {
		return k, registry.Result{}, time.Time{}, fmt.Errorf("parse schedule: %w", err)
	}

	s1, ok1 := parseScore(ev.Score1)
	s2, ok2 := parseScore(ev.Score2)

	res := registry.Result{
		Forfeit1: ev.Forfeit1,
		Forfeit2: ev.Forfeit2,
		Played:   ev.Played,
	}

	switch {
	case ok1 && ok2:
		res.Score1, res.Score2 = s1, s2
	case !ok1 && !ok2:
		res.Cancelled = true
	default:
		return k, registry.Result{}, time.Time{}, fmt.Errorf("%w: %q / %q", errMalformedScore, ev.Score1, ev.Score2)
	}

	return k, res, startsAt, nil
}

// parseScore: vazio é "sem placar ainda" (nil); número é placar; qualquer
// outra coisa é ilegível.
func parseScore(raw string) (*int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, false
	}
	return &n, true
}

func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.stageError("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		var ev events.MatchResult
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			p.Log.Warn("invalid message", zap.Error(err))
			p.stageError("decode")
			p.toDLQ(ctx, m.Key, m.Value)
			continue
		}

		if err := p.processOne(ctx, ev); err != nil {
			p.Log.Error("process result failed",
				zap.String("team1", ev.Team1), zap.String("team2", ev.Team2), zap.Error(err))
			if errors.Is(err, errMalformedScore) {
				p.toDLQ(ctx, m.Key, m.Value)
			}
		}
	}
}

func (p *Processor) processOne(ctx context.Context, ev events.MatchResult) error {
	k, res, startsAt, err := ParseResult(ev)
	if err != nil {
		p.stageError("parse")
		return err
	}

	match, changed, err := p.Matches.ApplyResult(ctx, k, res)
	if errors.Is(err, registry.ErrNotFound) {
		// partida ainda não importada: o resultado também faz o upsert
		if _, err := p.Matches.UpsertSchedule(ctx, k, ev.Pool, startsAt); err != nil {
			p.stageError("upsert")
			return err
		}
		match, changed, err = p.Matches.ApplyResult(ctx, k, res)
	}
	if err != nil {
		p.stageError("apply")
		return err
	}
	if !changed {
		return nil
	}
	if p.OnApplied != nil {
		p.OnApplied()
	}

	// snapshot dos apostadores antes da liquidação desativar os grupos
	if match.Status == registry.StatusConcluded {
		p.notifyBettors(ctx, match)
	}

	if match.Concluded() {
		if err := p.Engine.SettleMatch(ctx, match.ID); err != nil {
			p.stageError("settle")
			return err
		}
		if p.OnSettled != nil {
			p.OnSettled()
		}
	}

	// o resultado entrou no histórico: as odds das partidas abertas mudam
	limit := p.RecomputeLimit
	if limit <= 0 {
		limit = 50
	}
	if _, err := p.Odds.RecomputeUpcoming(ctx, limit); err != nil {
		p.Log.Warn("odds recompute failed", zap.Error(err))
		p.stageError("odds")
	}

	return nil
}

func (p *Processor) notifyBettors(ctx context.Context, m *registry.Match) {
	users, err := p.Bettors.UsersWithActiveLegs(ctx, m.ID)
	if err != nil {
		p.Log.Warn("bettor lookup failed", zap.String("matchId", m.ID), zap.Error(err))
		p.stageError("notify")
		return
	}

	var s1, s2 int
	if m.Score1 != nil {
		s1 = *m.Score1
	}
	if m.Score2 != nil {
		s2 = *m.Score2
	}
	for _, userID := range users {
		n := notify.MatchEnded(userID, m.ID, m.Team1, m.Team2, s1, s2, time.Now())
		if _, err := p.Notifications.Insert(ctx, n); err != nil {
			p.Log.Warn("notification insert failed", zap.String("userId", userID), zap.Error(err))
			p.stageError("notify")
		}
	}
}

func (p *Processor) toDLQ(ctx context.Context, key, value []byte) {
	if p.DLQ == nil {
		return
	}
	if err := sharedkafka.WriteJSON(ctx, p.DLQ, string(key), value); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
		p.stageError("dlq")
	}
}

func (p *Processor) stageError(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
