package httpapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/uniligue/bet-engine/internal/ledger"
	"github.com/uniligue/bet-engine/internal/notify"
	"github.com/uniligue/bet-engine/internal/registry"
	"github.com/uniligue/bet-engine/internal/wager"
)

type PickRequest struct {
	MatchID   string `json:"matchId" validate:"required"`
	Selection string `json:"selection" validate:"required"`
}

type PlaceBetRequest struct {
	UserID string        `json:"userId" validate:"required"`
	Stake  int64         `json:"stake" validate:"required,gt=0"`
	Picks  []PickRequest `json:"picks" validate:"required,min=1,dive"`
}

// ParseSelection traduz a seleção vinda do cliente para o enum interno.
// Os front-ends antigos mandam '1'/'2'/'N' ou 'equipe1'/'equipe2'/'nul';
// a tradução acontece só aqui, na borda.
func ParseSelection(raw string) (wager.Selection, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "equipe1", "home":
		return wager.SelectionHome, nil
	case "2", "equipe2", "away":
		return wager.SelectionAway, nil
	case "n", "nul", "draw":
		return wager.SelectionDraw, nil
	}
	return "", fmt.Errorf("unknown selection %q", raw)
}

type LegResponse struct {
	ID        string  `json:"id"`
	MatchID   string  `json:"matchId"`
	Selection string  `json:"selection"`
	Odds      float64 `json:"odds"`
	Result    string  `json:"result"`
}

type BetResponse struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	Stake         int64         `json:"stake"`
	CombinedOdds  float64       `json:"combinedOdds"`
	Outcome       string        `json:"outcome"`
	PotentialGain int64         `json:"potentialGain"`
	CreatedAt     time.Time     `json:"createdAt"`
	Legs          []LegResponse `json:"legs"`
}

func toBetResponse(g wager.Group) BetResponse {
	out := BetResponse{
		ID:            g.ID,
		UserID:        g.UserID,
		Stake:         g.Stake,
		CombinedOdds:  g.CombinedOdds,
		Outcome:       string(g.Outcome()),
		PotentialGain: g.PotentialGain(),
		CreatedAt:     g.CreatedAt,
	}
	for _, l := range g.Legs {
		out.Legs = append(out.Legs, LegResponse{
			ID:        l.ID,
			MatchID:   l.MatchID,
			Selection: string(l.Selection),
			Odds:      l.Odds,
			Result:    string(l.Result),
		})
	}
	return out
}

type MatchResponse struct {
	ID       string    `json:"id"`
	Sport    string    `json:"sport"`
	Level    int       `json:"level"`
	Pool     string    `json:"pool,omitempty"`
	StartsAt time.Time `json:"startsAt"`
	Team1    string    `json:"team1"`
	Team2    string    `json:"team2"`
	Score1   *int      `json:"score1"`
	Score2   *int      `json:"score2"`
	Status   string    `json:"status"`
}

func toMatchResponse(m registry.Match) MatchResponse {
	return MatchResponse{
		ID:       m.ID,
		Sport:    m.Sport,
		Level:    m.Level,
		Pool:     m.Pool,
		StartsAt: m.StartsAt,
		Team1:    m.Team1,
		Team2:    m.Team2,
		Score1:   m.Score1,
		Score2:   m.Score2,
		Status:   string(m.Status),
	}
}

type BalanceResponse struct {
	UserID string `json:"userId"`
	Points int64  `json:"points"`
}

type GrantPointsRequest struct {
	UserID string `json:"userId" validate:"required"`
	Points int64  `json:"points" validate:"required,gt=0"`
	Reason string `json:"reason"`
}

type NotificationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Points    int64     `json:"points"`
	BetID     string    `json:"betId,omitempty"`
	MatchID   string    `json:"matchId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func toNotificationResponse(n notify.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Points:    n.Points,
		BetID:     n.BetID,
		MatchID:   n.MatchID,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

type TransactionResponse struct {
	ID        string    `json:"id"`
	Points    int64     `json:"points"` // com sinal
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

func toTransactionResponse(t ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        t.ID,
		Points:    t.Signed(),
		Kind:      string(t.Kind),
		Reason:    t.Reason,
		CreatedAt: t.CreatedAt,
	}
}
