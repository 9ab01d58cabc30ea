package events

import "time"

// Evento emitido pelo wager engine quando um grupo de apostas atinge estado
// terminal. Consumido pelo notification-worker.
type BetSettled struct {
	GroupID      string    `json:"group_id"`
	UserID       string    `json:"user_id"`
	Outcome      string    `json:"outcome"` // "WON" | "LOST" | "VOIDED"
	Amount       int64     `json:"amount"`  // pontos creditados (0 quando LOST)
	StakePoints  int64     `json:"stake_points"`
	CombinedOdds float64   `json:"combined_odds"`
	Ts           time.Time `json:"ts"`
}
