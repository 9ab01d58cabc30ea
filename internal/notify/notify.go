package notify

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/uniligue/bet-engine/internal/wager"
	"github.com/uniligue/bet-engine/pkg/contracts/events"
)

// Tipos de notificação. Os nomes e os textos vêm do produto (liga francesa);
// o código em volta segue o padrão da casa.
type Type string

const (
	TypeBetWon       Type = "PARI_GAGNE"
	TypeBetLost      Type = "PARI_PERDU"
	TypeBetRefunded  Type = "PARI_REMBOURSE"
	TypeMatchEnded   Type = "MATCH_TERMINE"
	TypePointsEarned Type = "POINTS_GAGNES"
)

type Notification struct {
	ID        string
	UserID    string
	Type      Type
	Title     string
	Message   string
	Points    int64
	BetID     string // vazio para notificações de partida
	MatchID   string // vazio para notificações de aposta
	Read      bool
	CreatedAt time.Time
}

var ErrUnknownOutcome = errors.New("unknown settlement outcome")

// FromSettlement monta a notificação de resultado de aposta a partir do
// evento bet_settled.
func FromSettlement(e events.BetSettled) (Notification, error) {
	n := Notification{
		ID:        uuid.NewString(),
		UserID:    e.UserID,
		BetID:     e.GroupID,
		CreatedAt: e.Ts,
	}

	switch wager.GroupOutcome(e.Outcome) {
	case wager.GroupWon:
		n.Type = TypeBetWon
		n.Title = "🎉 Pari gagné!"
		n.Message = fmt.Sprintf(
			"Félicitations! Votre pari #%s est gagnant! Vous avez gagné %d points avec une cote de %.2f. Les points ont été ajoutés à votre compte.",
			e.GroupID, e.Amount, e.CombinedOdds)
		n.Points = e.Amount
	case wager.GroupLost:
		n.Type = TypeBetLost
		n.Title = "Pari perdu"
		n.Message = fmt.Sprintf(
			"Votre pari #%s n'a pas été gagnant. Vous avez perdu %d points. Bonne chance pour vos prochains paris!",
			e.GroupID, e.StakePoints)
		n.Points = -e.StakePoints
	case wager.GroupVoided:
		n.Type = TypeBetRefunded
		n.Title = "Pari remboursé"
		n.Message = fmt.Sprintf(
			"Votre pari #%s a été remboursé car un match a été annulé. Vous avez récupéré votre mise de %d points.",
			e.GroupID, e.StakePoints)
		n.Points = e.StakePoints
	default:
		return Notification{}, fmt.Errorf("%w: %q", ErrUnknownOutcome, e.Outcome)
	}

	return n, nil
}

// PointsEarned monta a notificação de crédito avulso de pontos (bônus,
// créditos vindos de outras áreas do produto).
func PointsEarned(userID string, points int64, ts time.Time) Notification {
	return Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      TypePointsEarned,
		Title:     "Points gagnés!",
		Message:   fmt.Sprintf("Vous avez gagné %d points! Ils ont été ajoutés à votre compte.", points),
		Points:    points,
		CreatedAt: ts,
	}
}

// MatchEnded monta a notificação de fim de partida para um apostador com leg
// ativo nela.
func MatchEnded(userID, matchID, team1, team2 string, score1, score2 int, ts time.Time) Notification {
	return Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Type:    TypeMatchEnded,
		Title:   fmt.Sprintf("Match terminé: %s vs %s", team1, team2),
		Message: fmt.Sprintf("Le match %s vs %s est terminé. Score final: %d - %d. Vérifiez vos paris pour voir si vous avez gagné!",
			team1, team2, score1, score2),
		MatchID:   matchID,
		CreatedAt: ts,
	}
}
