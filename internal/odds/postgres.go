package odds

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("odds not found")

// Postgres persiste as odds correntes (uma linha por partida) e lê o
// histórico usado no cálculo.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// HistoryWindow retorna as partidas concluídas do mesmo esporte e nível na
// janela de 365 dias estritamente anterior ao início da partida alvo.
func (p *Postgres) HistoryWindow(ctx context.Context, sport string, level int, before time.Time) ([]HistoricalGame, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT team1, team2, score1, score2
		FROM matches
		WHERE sport=$1 AND level=$2
		  AND status='CONCLUDED'
		  AND score1 IS NOT NULL AND score2 IS NOT NULL
		  AND starts_at >= $3 AND starts_at < $4`,
		sport, level, before.AddDate(-1, 0, 0), before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoricalGame
	for rows.Next() {
		var g HistoricalGame
		if err := rows.Scan(&g.Team1, &g.Team2, &g.Score1, &g.Score2); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CurrentPressure lê os contadores de apostas acumulados desde o último
// recálculo. Partida sem linha de odds ainda não sofreu pressão nenhuma.
func (p *Postgres) CurrentPressure(ctx context.Context, matchID string) (Pressure, error) {
	var pr Pressure
	err := p.db.QueryRowContext(ctx, `
		SELECT bets_since_update, stake_home_since_update, stake_draw_since_update, stake_away_since_update
		FROM odds_current WHERE match_id=$1`, matchID,
	).Scan(&pr.Bets, &pr.HomeStake, &pr.DrawStake, &pr.AwayStake)
	if err == sql.ErrNoRows {
		return Pressure{}, nil
	}
	return pr, err
}

// Upsert grava a tripla corrente da partida em um único statement
// (tudo-ou-nada), incrementa a versão e zera os contadores de pressão.
func (p *Postgres) Upsert(ctx context.Context, matchID string, t Triple) (version int, err error) {
	err = p.db.QueryRowContext(ctx, `
		INSERT INTO odds_current
		  (match_id, home_odd, draw_odd, away_odd, version, updated_at)
		VALUES ($1,$2,$3,$4,1,NOW())
		ON CONFLICT (match_id) DO UPDATE SET
		  home_odd = EXCLUDED.home_odd,
		  draw_odd = EXCLUDED.draw_odd,
		  away_odd = EXCLUDED.away_odd,
		  version  = odds_current.version + 1,
		  bets_since_update       = 0,
		  stake_home_since_update = 0,
		  stake_draw_since_update = 0,
		  stake_away_since_update = 0,
		  updated_at = NOW()
		RETURNING version`,
		matchID, t.Home, t.Draw, t.Away,
	).Scan(&version)
	return version, err
}

// Get lê a tripla corrente de uma partida.
func (p *Postgres) Get(ctx context.Context, matchID string) (Triple, int, time.Time, error) {
	var t Triple
	var version int
	var updatedAt time.Time
	err := p.db.QueryRowContext(ctx, `
		SELECT home_odd, draw_odd, away_odd, version, updated_at
		FROM odds_current WHERE match_id=$1`, matchID,
	).Scan(&t.Home, &t.Draw, &t.Away, &version, &updatedAt)
	if err == sql.ErrNoRows {
		return Triple{}, 0, time.Time{}, ErrNotFound
	}
	return t, version, updatedAt, err
}

// ListPressured retorna partidas cujo volume de apostas desde o último
// recálculo passou do limiar, candidatas a recálculo fora do ciclo.
func (p *Postgres) ListPressured(ctx context.Context, minBets int) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT oc.match_id
		FROM odds_current oc
		JOIN matches m ON m.id = oc.match_id
		WHERE oc.bets_since_update >= $1
		  AND m.status = 'SCHEDULED'`, minBets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
