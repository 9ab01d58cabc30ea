package events

type BetPlacedLeg struct {
	MatchID   string  `json:"match_id"`
	Selection string  `json:"selection"` // "HOME" | "DRAW" | "AWAY"
	Odds      float64 `json:"odds"`
}

type BetPlaced struct {
	GroupID      string         `json:"group_id"`
	UserID       string         `json:"user_id"`
	StakePoints  int64          `json:"stake_points"`
	CombinedOdds float64        `json:"combined_odds"`
	Legs         []BetPlacedLeg `json:"legs"`
	TsUnixMs     int64          `json:"ts_unix_ms"`
}
