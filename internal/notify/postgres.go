package notify

import (
	"context"
	"database/sql"
)

// Postgres grava notificações. O índice único parcial (bet_id, type) faz a
// guarda de duplicidade no banco: o segundo insert da mesma liquidação vira
// no-op, independente de qual worker chegou primeiro.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Insert devolve false quando a notificação já existia.
func (p *Postgres) Insert(ctx context.Context, n Notification) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, points, bet_id, match_id, read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),NULLIF($8,''),FALSE,$9)
		ON CONFLICT (bet_id, type) WHERE bet_id IS NOT NULL DO NOTHING`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.Points, n.BetID, n.MatchID, n.CreatedAt)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (p *Postgres) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, message, points, COALESCE(bet_id,''), COALESCE(match_id,''), read, created_at
		FROM notifications
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Points, &n.BetID, &n.MatchID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkRead(ctx context.Context, userID, id string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE notifications SET read=TRUE WHERE id=$1 AND user_id=$2`, id, userID)
	return err
}
