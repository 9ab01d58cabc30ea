package wager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uniligue/bet-engine/internal/odds"
	"github.com/uniligue/bet-engine/internal/registry"
	"github.com/uniligue/bet-engine/pkg/contracts/events"
)

var (
	ErrNotFound        = errors.New("wager group not found")
	ErrNoLegs          = errors.New("bet needs at least one pick")
	ErrInvalidStake    = errors.New("stake must be positive")
	ErrMatchStarted    = errors.New("match already started")
	ErrOddsUnavailable = errors.New("no odds for match")

	// Devolvido pelo Store quando outro gatilho liquidou o grupo primeiro.
	ErrAlreadySettled = errors.New("group already settled")
)

// Pick é uma seleção vinda da borda, já traduzida para o enum.
type Pick struct {
	MatchID   string
	Selection Selection
}

// Settlement é a mudança de estado completa de uma liquidação, aplicada pelo
// Store numa única transação (grupo + legs + movimento de pontos).
type Settlement struct {
	GroupID      string
	UserID       string
	Outcome      GroupOutcome // WON | LOST | VOIDED
	LegResults   map[string]Outcome
	Credit       int64 // pontos a creditar; 0 quando LOST
	CreditReason string
}

// Store é a persistência do engine. CreateGroup e ApplySettlement são
// atômicos: grupo, legs e extrato de pontos na mesma transação.
type Store interface {
	CreateGroup(ctx context.Context, g *Group) error
	GroupForSettlement(ctx context.Context, groupID string) (*Group, []LegView, error)
	ApplySettlement(ctx context.Context, s Settlement) error
	UpdateLegResults(ctx context.Context, groupID string, results map[string]Outcome) error
	ActiveGroupIDsByMatch(ctx context.Context, matchID string) ([]string, error)
	ActiveGroupIDsByUser(ctx context.Context, userID string) ([]string, error)
	GroupsByUser(ctx context.Context, userID string) ([]Group, error)
}

// MatchSource valida partidas na criação de apostas.
type MatchSource interface {
	GetByID(ctx context.Context, id string) (*registry.Match, error)
}

// OddsSource trava a odd corrente de cada seleção na criação.
type OddsSource interface {
	Get(ctx context.Context, matchID string) (odds.Triple, int, time.Time, error)
}

type Publisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
}

// Engine é o núcleo de apostas: criação com débito atômico da mise e
// liquidação idempotente disparada pela conclusão das partidas.
type Engine struct {
	Log     *zap.Logger
	Store   Store
	Matches MatchSource
	Odds    OddsSource
	Pub     Publisher
}

// Place cria um grupo com seus legs, validando que cada partida ainda não
// começou e tem odds publicadas. O débito da mise acontece na mesma
// transação da criação: saldo insuficiente não deixa rastro.
func (e *Engine) Place(ctx context.Context, userID string, stake int64, picks []Pick) (*Group, error) {
	if stake <= 0 {
		return nil, ErrInvalidStake
	}
	if len(picks) == 0 {
		return nil, ErrNoLegs
	}

	groupID := uuid.NewString()
	now := time.Now()

	legs := make([]Leg, 0, len(picks))
	oddsValues := make([]float64, 0, len(picks))
	for i, p := range picks {
		m, err := e.Matches.GetByID(ctx, p.MatchID)
		if err != nil {
			return nil, err
		}
		if m.Status != registry.StatusScheduled || !m.StartsAt.After(now) {
			return nil, fmt.Errorf("%w: %s", ErrMatchStarted, p.MatchID)
		}

		triple, _, _, err := e.Odds.Get(ctx, p.MatchID)
		if err != nil {
			if errors.Is(err, odds.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrOddsUnavailable, p.MatchID)
			}
			return nil, err
		}

		locked := oddFor(triple, p.Selection)
		legs = append(legs, Leg{
			ID:        uuid.NewString(),
			GroupID:   groupID,
			MatchID:   p.MatchID,
			Position:  i,
			Selection: p.Selection,
			Odds:      locked,
			Result:    OutcomePending,
			Active:    true,
		})
		oddsValues = append(oddsValues, locked)
	}

	g := &Group{
		ID:           groupID,
		UserID:       userID,
		Stake:        stake,
		CombinedOdds: CombineOdds(oddsValues),
		Active:       true,
		CreatedAt:    now,
		Legs:         legs,
	}

	if err := e.Store.CreateGroup(ctx, g); err != nil {
		return nil, err
	}

	if e.Pub != nil {
		ev := events.BetPlaced{
			GroupID:      g.ID,
			UserID:       userID,
			StakePoints:  stake,
			CombinedOdds: g.CombinedOdds,
			TsUnixMs:     now.UnixMilli(),
		}
		for _, l := range legs {
			ev.Legs = append(ev.Legs, events.BetPlacedLeg{MatchID: l.MatchID, Selection: string(l.Selection), Odds: l.Odds})
		}
		if err := e.Pub.PublishBetPlaced(ctx, ev); err != nil {
			e.Log.Warn("bet_placed publish failed", zap.String("groupId", g.ID), zap.Error(err))
		}
	}

	return g, nil
}

// SettleGroup reavalia um grupo. Grupo já terminal é no-op (fora o backfill
// de resultados de legs irmãos, que não move pontos nem muda o estado).
// Qualquer erro na aplicação deixa o grupo ACTIVE para retry no próximo
// gatilho.
func (e *Engine) SettleGroup(ctx context.Context, groupID string) (GroupOutcome, error) {
	g, legs, err := e.Store.GroupForSettlement(ctx, groupID)
	if err != nil {
		return "", err
	}

	if !g.Active {
		if !g.Void {
			if backfill := ResolveConcluded(legs); len(backfill) > 0 {
				if err := e.Store.UpdateLegResults(ctx, groupID, backfill); err != nil {
					e.Log.Warn("leg backfill failed", zap.String("groupId", groupID), zap.Error(err))
				}
			}
		}
		return g.Outcome(), nil
	}

	d := Evaluate(legs)
	if d.State == GroupActive {
		if len(d.LegResults) > 0 {
			if err := e.Store.UpdateLegResults(ctx, groupID, d.LegResults); err != nil {
				return GroupActive, err
			}
		}
		return GroupActive, nil
	}

	s := Settlement{
		GroupID:    groupID,
		UserID:     g.UserID,
		Outcome:    d.State,
		LegResults: d.LegResults,
	}
	switch d.State {
	case GroupWon:
		s.Credit = Payout(g.Stake, g.CombinedOdds)
		s.CreditReason = fmt.Sprintf("ganho da aposta #%s (odd %.2f)", groupID, g.CombinedOdds)
	case GroupVoided:
		s.Credit = g.Stake
		s.CreditReason = fmt.Sprintf("reembolso: partida cancelada (aposta #%s)", groupID)
	}

	if err := e.Store.ApplySettlement(ctx, s); err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			// outro gatilho chegou primeiro; nada a fazer
			return d.State, nil
		}
		return GroupActive, fmt.Errorf("apply settlement: %w", err)
	}

	e.Log.Info("group settled",
		zap.String("groupId", groupID),
		zap.String("outcome", string(d.State)),
		zap.Int64("credit", s.Credit),
	)

	if e.Pub != nil {
		ev := events.BetSettled{
			GroupID:      groupID,
			UserID:       g.UserID,
			Outcome:      string(d.State),
			Amount:       s.Credit,
			StakePoints:  g.Stake,
			CombinedOdds: g.CombinedOdds,
			Ts:           time.Now(),
		}
		if err := e.Pub.PublishBetSettled(ctx, ev); err != nil {
			e.Log.Warn("bet_settled publish failed", zap.String("groupId", groupID), zap.Error(err))
		}
	}

	return d.State, nil
}

// SettleMatch reavalia todos os grupos ativos que referenciam a partida.
// É o único gatilho necessário para a correção; a varredura periódica do
// results-worker existe só para catch-up.
func (e *Engine) SettleMatch(ctx context.Context, matchID string) error {
	ids, err := e.Store.ActiveGroupIDsByMatch(ctx, matchID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := e.SettleGroup(ctx, id); err != nil {
			e.Log.Error("settle group failed", zap.String("groupId", id), zap.Error(err))
		}
	}
	return nil
}

// VerifyUser reavalia os grupos ativos do usuário e devolve os que mudaram
// de estado (endpoint de verificação manual).
func (e *Engine) VerifyUser(ctx context.Context, userID string) (map[string]GroupOutcome, error) {
	ids, err := e.Store.ActiveGroupIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	changed := make(map[string]GroupOutcome)
	for _, id := range ids {
		out, err := e.SettleGroup(ctx, id)
		if err != nil {
			e.Log.Error("verify group failed", zap.String("groupId", id), zap.Error(err))
			continue
		}
		if out != GroupActive {
			changed[id] = out
		}
	}
	return changed, nil
}

func oddFor(t odds.Triple, sel Selection) float64 {
	switch sel {
	case SelectionHome:
		return t.Home
	case SelectionDraw:
		return t.Draw
	default:
		return t.Away
	}
}
