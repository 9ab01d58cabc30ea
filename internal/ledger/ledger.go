package ledger

import (
	"errors"
	"time"
)

// Kind da movimentação de pontos. O valor armazenado é sempre a magnitude
// positiva; SPEND decrementa o saldo, EARN incrementa.
type Kind string

const (
	Earn  Kind = "EARN"
	Spend Kind = "SPEND"
)

var (
	ErrInsufficientFunds = errors.New("insufficient points")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

type Account struct {
	ID          string
	UserID      string
	TotalPoints int64
	CreatedAt   time.Time
}

// Transaction é uma linha imutável do extrato (append-only).
type Transaction struct {
	ID        string
	UserID    string
	Points    int64 // magnitude, sempre > 0
	Kind      Kind
	Reason    string
	CreatedAt time.Time
}

// Signed devolve o delta com sinal aplicado pelo kind.
func (t Transaction) Signed() int64 {
	if t.Kind == Spend {
		return -t.Points
	}
	return t.Points
}
