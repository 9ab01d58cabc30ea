package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Postgres implementa a economia de pontos: contas com saldo cacheado +
// extrato append-only. O saldo nunca muda sem a linha de extrato
// correspondente, sempre na mesma transação.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// GetOrCreateAccount retorna a conta do usuário, criando com saldo zero se
// não existir. Idempotente.
func (p *Postgres) GetOrCreateAccount(ctx context.Context, userID string) (*Account, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	acc := &Account{UserID: userID}
	err = tx.QueryRowContext(ctx,
		`SELECT id, total_points, created_at FROM point_accounts WHERE user_id=$1`, userID,
	).Scan(&acc.ID, &acc.TotalPoints, &acc.CreatedAt)
	if err == sql.ErrNoRows {
		acc.ID = uuid.NewString()
		if err = tx.QueryRowContext(ctx,
			`INSERT INTO point_accounts (id, user_id, total_points) VALUES ($1,$2,0)
			 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
			 RETURNING id, total_points, created_at`,
			acc.ID, userID,
		).Scan(&acc.ID, &acc.TotalPoints, &acc.CreatedAt); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return acc, nil
}

// Apply movimenta pontos dentro de uma transação do chamador: trava a linha
// da conta, valida saldo para SPEND, insere a linha de extrato e ajusta o
// saldo. Quem abre e commita a tx é o chamador (liquidação, criação de
// aposta), garantindo atomicidade com a mudança de estado que justificou o
// movimento.
func Apply(ctx context.Context, tx *sql.Tx, userID string, points int64, kind Kind, reason string) error {
	if points <= 0 {
		return ErrInvalidAmount
	}

	var balance int64
	err := tx.QueryRowContext(ctx,
		`SELECT total_points FROM point_accounts WHERE user_id=$1 FOR UPDATE`, userID,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		// conta criada preguiçosamente no primeiro movimento
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO point_accounts (id, user_id, total_points) VALUES ($1,$2,0)`,
			uuid.NewString(), userID); err != nil {
			return err
		}
		balance = 0
	} else if err != nil {
		return err
	}

	delta := points
	if kind == Spend {
		if balance < points {
			return ErrInsufficientFunds
		}
		delta = -points
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE point_accounts SET total_points = total_points + $1 WHERE user_id=$2`,
		delta, userID); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO point_transactions (id, user_id, points, kind, reason)
		VALUES ($1,$2,$3,$4,$5)`,
		uuid.NewString(), userID, points, kind, reason); err != nil {
		return err
	}

	return nil
}

// ApplyStandalone movimenta pontos numa transação própria (bônus, ajustes
// manuais, movimentos sem mudança de estado acoplada).
func (p *Postgres) ApplyStandalone(ctx context.Context, userID string, points int64, kind Kind, reason string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := Apply(ctx, tx, userID, points, kind, reason); err != nil {
		return err
	}
	return tx.Commit()
}

// Balance retorna o saldo corrente do usuário (conta inexistente vale 0).
func (p *Postgres) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := p.db.QueryRowContext(ctx,
		`SELECT total_points FROM point_accounts WHERE user_id=$1`, userID,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}

// Transactions lista o extrato do usuário, mais recente primeiro.
func (p *Postgres) Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, points, kind, reason, created_at
		FROM point_transactions
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Points, &t.Kind, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Reconcile confere o invariante saldo == soma assinada do extrato.
func (p *Postgres) Reconcile(ctx context.Context, userID string) error {
	var balance, sum int64
	err := p.db.QueryRowContext(ctx, `
		SELECT a.total_points,
		       COALESCE(SUM(CASE WHEN t.kind='SPEND' THEN -t.points ELSE t.points END), 0)
		FROM point_accounts a
		LEFT JOIN point_transactions t ON t.user_id = a.user_id
		WHERE a.user_id=$1
		GROUP BY a.total_points`, userID,
	).Scan(&balance, &sum)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	if balance != sum {
		return fmt.Errorf("ledger drift for user %s: balance=%d sum=%d", userID, balance, sum)
	}
	return nil
}
