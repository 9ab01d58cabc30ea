package events

import "time"

// Evento publicado no tópico "odds_updates"
type Odds struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

type OddsUpdate struct {
	MatchID   string    `json:"match_id"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	Sport     string    `json:"sport"`
	Odds      Odds      `json:"odds"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"` // "odds-worker" | "betting-api"
	Version   int       `json:"version"`
}
