package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("match not found")

// Postgres implementa o registro de partidas em banco Postgres
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// UpsertSchedule insere ou atualiza uma partida do calendário, chaveada por
// (sport, level, date, time, team1, team2). Usada pelo import de planning.
func (p *Postgres) UpsertSchedule(ctx context.Context, k Key, pool string, startsAt time.Time) (string, error) {
	id := uuid.NewString()
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO matches (id, sport, level, pool, match_date, match_time, team1, team2, starts_at, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'SCHEDULED')
		ON CONFLICT (sport, level, match_date, match_time, team1, team2) DO UPDATE SET
		  pool      = EXCLUDED.pool,
		  starts_at = EXCLUDED.starts_at,
		  updated_at = NOW()
		RETURNING id`,
		id, k.Sport, k.Level, pool, k.Date, k.Time, k.Team1, k.Team2, startsAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert schedule: %w", err)
	}
	return id, nil
}

// ApplyResult registra placar/forfeits/status para a partida identificada
// pela chave. Retorna a partida atualizada e se algo relevante mudou; só
// nesse caso o chamador dispara a liquidação dos grupos que a referenciam.
func (p *Postgres) ApplyResult(ctx context.Context, k Key, res Result) (*Match, bool, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	m := &Match{}
	err = tx.QueryRowContext(ctx, `
		SELECT id, sport, level, pool, team1, team2, starts_at, score1, score2,
		       forfeit1, forfeit2, status, updated_at
		FROM matches
		WHERE sport=$1 AND level=$2 AND match_date=$3 AND match_time=$4 AND team1=$5 AND team2=$6
		FOR UPDATE`,
		k.Sport, k.Level, k.Date, k.Time, k.Team1, k.Team2,
	).Scan(&m.ID, &m.Sport, &m.Level, &m.Pool, &m.Team1, &m.Team2, &m.StartsAt,
		&m.Score1, &m.Score2, &m.Forfeit1, &m.Forfeit2, &m.Status, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, false, ErrNotFound
	} else if err != nil {
		return nil, false, err
	}

	newStatus := DeriveStatus(m.StartsAt, time.Now(), res)
	changed := m.Status != newStatus ||
		m.Forfeit1 != res.Forfeit1 || m.Forfeit2 != res.Forfeit2 ||
		!scoreEq(m.Score1, res.Score1) || !scoreEq(m.Score2, res.Score2)
	if !changed {
		return m, false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE matches
		SET score1=$1, score2=$2, forfeit1=$3, forfeit2=$4, status=$5, updated_at=NOW()
		WHERE id=$6`,
		res.Score1, res.Score2, res.Forfeit1, res.Forfeit2, newStatus, m.ID)
	if err != nil {
		return nil, false, err
	}

	m.Score1, m.Score2 = res.Score1, res.Score2
	m.Forfeit1, m.Forfeit2 = res.Forfeit1, res.Forfeit2
	m.Status = newStatus

	return m, true, tx.Commit()
}

// GetByID busca uma partida pelo id
func (p *Postgres) GetByID(ctx context.Context, id string) (*Match, error) {
	m := &Match{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, sport, level, pool, team1, team2, starts_at, score1, score2,
		       forfeit1, forfeit2, status, updated_at
		FROM matches WHERE id=$1`, id,
	).Scan(&m.ID, &m.Sport, &m.Level, &m.Pool, &m.Team1, &m.Team2, &m.StartsAt,
		&m.Score1, &m.Score2, &m.Forfeit1, &m.Forfeit2, &m.Status, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return m, nil
}

// ListUpcoming retorna partidas ainda não iniciadas, ordenadas por horário
func (p *Postgres) ListUpcoming(ctx context.Context, limit int) ([]Match, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, sport, level, pool, team1, team2, starts_at, score1, score2,
		       forfeit1, forfeit2, status, updated_at
		FROM matches
		WHERE status = 'SCHEDULED' AND starts_at >= NOW()
		ORDER BY starts_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Sport, &m.Level, &m.Pool, &m.Team1, &m.Team2, &m.StartsAt,
			&m.Score1, &m.Score2, &m.Forfeit1, &m.Forfeit2, &m.Status, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scoreEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
