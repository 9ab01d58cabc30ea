package wager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uniligue/bet-engine/internal/ledger"
)

// Postgres implementa Store. As operações compostas (criação, liquidação)
// rodam numa única transação: grupo, legs, extrato de pontos e contadores de
// pressão, tudo ou nada.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) CreateGroup(ctx context.Context, g *Group) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// débito da mise primeiro: saldo insuficiente aborta sem rastro
	reason := fmt.Sprintf("mise da aposta #%s", g.ID)
	if err := ledger.Apply(ctx, tx, g.UserID, g.Stake, ledger.Spend, reason); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wager_groups (id, user_id, stake_points, combined_odds, active, void, created_at)
		VALUES ($1,$2,$3,$4,TRUE,FALSE,$5)`,
		g.ID, g.UserID, g.Stake, g.CombinedOdds, g.CreatedAt); err != nil {
		return err
	}

	for _, l := range g.Legs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO wager_legs (id, group_id, match_id, position, selection, odd_value, result, active)
			VALUES ($1,$2,$3,$4,$5,$6,'PENDING',TRUE)`,
			l.ID, g.ID, l.MatchID, l.Position, l.Selection, l.Odds); err != nil {
			return err
		}

		// alimenta a pressão de apostas usada no recálculo de odds
		if _, err := tx.ExecContext(ctx, `
			UPDATE odds_current SET
			  bets_since_update = bets_since_update + 1,
			  stake_home_since_update = stake_home_since_update + CASE WHEN $2 = 'HOME' THEN $3 ELSE 0 END,
			  stake_draw_since_update = stake_draw_since_update + CASE WHEN $2 = 'DRAW' THEN $3 ELSE 0 END,
			  stake_away_since_update = stake_away_since_update + CASE WHEN $2 = 'AWAY' THEN $3 ELSE 0 END
			WHERE match_id = $1`,
			l.MatchID, l.Selection, g.Stake); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (p *Postgres) GroupForSettlement(ctx context.Context, groupID string) (*Group, []LegView, error) {
	g := &Group{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, stake_points, combined_odds, active, void, created_at
		FROM wager_groups WHERE id=$1`, groupID,
	).Scan(&g.ID, &g.UserID, &g.Stake, &g.CombinedOdds, &g.Active, &g.Void, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	} else if err != nil {
		return nil, nil, err
	}

	// ordem de criação: a avaliação não depende dela, mas a resposta da
	// API devolve os legs na ordem em que o apostador escolheu
	rows, err := p.db.QueryContext(ctx, `
		SELECT l.id, l.match_id, l.position, l.selection, l.odd_value, l.result, l.active,
		       m.status, m.score1, m.score2, m.forfeit1, m.forfeit2
		FROM wager_legs l
		JOIN matches m ON m.id = l.match_id
		WHERE l.group_id=$1
		ORDER BY l.position`, groupID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var views []LegView
	for rows.Next() {
		var v LegView
		if err := rows.Scan(&v.LegID, &v.MatchID, &v.Position, &v.Selection, &v.Odds, &v.Result, &v.Active,
			&v.MatchStatus, &v.Score1, &v.Score2, &v.Forfeit1, &v.Forfeit2); err != nil {
			return nil, nil, err
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	// projeção do outcome precisa dos legs
	for _, v := range views {
		g.Legs = append(g.Legs, Leg{ID: v.LegID, GroupID: g.ID, MatchID: v.MatchID, Position: v.Position, Selection: v.Selection, Odds: v.Odds, Result: v.Result, Active: v.Active})
	}

	return g, views, nil
}

// ApplySettlement aplica a mudança terminal do grupo. O lock pessimista na
// linha do grupo serializa gatilhos concorrentes: o segundo encontra
// active=false e recebe ErrAlreadySettled, sem crédito duplicado.
func (p *Postgres) ApplySettlement(ctx context.Context, s Settlement) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var active bool
	err = tx.QueryRowContext(ctx,
		`SELECT active FROM wager_groups WHERE id=$1 FOR UPDATE`, s.GroupID,
	).Scan(&active)
	if err == sql.ErrNoRows {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	if !active {
		return ErrAlreadySettled
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE wager_groups SET active=FALSE, void=$1 WHERE id=$2`,
		s.Outcome == GroupVoided, s.GroupID); err != nil {
		return err
	}

	if s.Outcome == GroupVoided {
		// anulação limpa todos os legs
		if _, err = tx.ExecContext(ctx,
			`UPDATE wager_legs SET result='PENDING', active=FALSE WHERE group_id=$1`,
			s.GroupID); err != nil {
			return err
		}
	} else {
		for legID, res := range s.LegResults {
			if _, err = tx.ExecContext(ctx,
				`UPDATE wager_legs SET result=$1, active=FALSE WHERE id=$2`,
				res, legID); err != nil {
				return err
			}
		}
	}

	if s.Credit > 0 {
		if err = ledger.Apply(ctx, tx, s.UserID, s.Credit, ledger.Earn, s.CreditReason); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (p *Postgres) UpdateLegResults(ctx context.Context, groupID string, results map[string]Outcome) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for legID, res := range results {
		if _, err := tx.ExecContext(ctx,
			`UPDATE wager_legs SET result=$1, active=FALSE WHERE id=$2 AND group_id=$3`,
			res, legID, groupID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) ActiveGroupIDsByMatch(ctx context.Context, matchID string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT g.id
		FROM wager_groups g
		JOIN wager_legs l ON l.group_id = g.id
		WHERE l.match_id=$1 AND g.active`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

// UsersWithActiveLegs devolve os apostadores distintos com leg ativo na
// partida. Usado pelo results-worker para as notificações de fim de partida,
// antes de liquidar.
func (p *Postgres) UsersWithActiveLegs(ctx context.Context, matchID string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT g.user_id
		FROM wager_groups g
		JOIN wager_legs l ON l.group_id = g.id
		WHERE l.match_id=$1 AND g.active`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

// StaleActiveGroupIDs acha grupos ainda ativos com pelo menos uma partida já
// encerrada, alvo da varredura de catch-up (gatilhos perdidos).
func (p *Postgres) StaleActiveGroupIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT g.id
		FROM wager_groups g
		JOIN wager_legs l ON l.group_id = g.id
		JOIN matches m ON m.id = l.match_id
		WHERE g.active AND m.status IN ('CONCLUDED','CANCELLED')
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (p *Postgres) ActiveGroupIDsByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id FROM wager_groups WHERE user_id=$1 AND active`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

// GroupsByUser lista os grupos do usuário com os legs, mais recente primeiro.
func (p *Postgres) GroupsByUser(ctx context.Context, userID string) ([]Group, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, stake_points, combined_odds, active, void, created_at
		FROM wager_groups
		WHERE user_id=$1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []Group
	byID := make(map[string]int)
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.UserID, &g.Stake, &g.CombinedOdds, &g.Active, &g.Void, &g.CreatedAt); err != nil {
			return nil, err
		}
		byID[g.ID] = len(groups)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}

	legRows, err := p.db.QueryContext(ctx, `
		SELECT l.id, l.group_id, l.match_id, l.position, l.selection, l.odd_value, l.result, l.active
		FROM wager_legs l
		JOIN wager_groups g ON g.id = l.group_id
		WHERE g.user_id=$1
		ORDER BY l.group_id, l.position`, userID)
	if err != nil {
		return nil, err
	}
	defer legRows.Close()

	for legRows.Next() {
		var l Leg
		if err := legRows.Scan(&l.ID, &l.GroupID, &l.MatchID, &l.Position, &l.Selection, &l.Odds, &l.Result, &l.Active); err != nil {
			return nil, err
		}
		if i, ok := byID[l.GroupID]; ok {
			groups[i].Legs = append(groups[i].Legs, l)
		}
	}
	return groups, legRows.Err()
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
