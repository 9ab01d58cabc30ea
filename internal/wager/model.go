package wager

import (
	"time"

	"github.com/shopspring/decimal"
)

// Selection é a escolha fechada do apostador. A tradução das strings legadas
// ('1'/'2'/'N', 'equipe1'/'equipe2'/'nul') acontece uma única vez na borda da
// API; aqui dentro só circula o enum.
type Selection string

const (
	SelectionHome Selection = "HOME"
	SelectionDraw Selection = "DRAW"
	SelectionAway Selection = "AWAY"
)

// Outcome é o resultado de um leg, terminal depois de sair de PENDING.
type Outcome string

const (
	OutcomePending     Outcome = "PENDING"
	OutcomeHome        Outcome = "HOME"
	OutcomeDraw        Outcome = "DRAW"
	OutcomeAway        Outcome = "AWAY"
	OutcomeForfeitHome Outcome = "FORFEIT_HOME"
	OutcomeForfeitAway Outcome = "FORFEIT_AWAY"
)

// GroupOutcome é o estado derivado do grupo: active+void são os campos
// armazenados, o enum é projeção deles (e dos legs).
type GroupOutcome string

const (
	GroupActive GroupOutcome = "ACTIVE"
	GroupWon    GroupOutcome = "WON"
	GroupLost   GroupOutcome = "LOST"
	GroupVoided GroupOutcome = "VOIDED"
)

// Leg é uma seleção dentro de um grupo, amarrada a uma partida, com a odd
// travada no momento da criação.
type Leg struct {
	ID        string
	GroupID   string
	MatchID   string
	Position  int // ordem da seleção dentro do grupo
	Selection Selection
	Odds      float64
	Result    Outcome
	Active    bool
}

// Group é a aposta em si: um leg (simples) ou vários (combinada). Nunca é
// apagado; liquidação derruba o active exatamente uma vez.
type Group struct {
	ID           string
	UserID       string
	Stake        int64
	CombinedOdds float64
	Active       bool
	Void         bool
	CreatedAt    time.Time
	Legs         []Leg
}

// Outcome projeta o estado do grupo a partir dos campos armazenados.
func (g *Group) Outcome() GroupOutcome {
	if g.Active {
		return GroupActive
	}
	if g.Void {
		return GroupVoided
	}
	for _, l := range g.Legs {
		if !LegWins(l.Selection, l.Result) {
			return GroupLost
		}
	}
	return GroupWon
}

// LegWins diz se o resultado cobre a seleção: forfait do lado escolhido conta
// como vitória dele.
func LegWins(sel Selection, res Outcome) bool {
	switch sel {
	case SelectionHome:
		return res == OutcomeHome || res == OutcomeForfeitHome
	case SelectionDraw:
		return res == OutcomeDraw
	case SelectionAway:
		return res == OutcomeAway || res == OutcomeForfeitAway
	}
	return false
}

// CombineOdds é o produto das odds dos legs, arredondado a duas casas.
func CombineOdds(odds []float64) float64 {
	total := decimal.NewFromInt(1)
	for _, o := range odds {
		total = total.Mul(decimal.NewFromFloat(o))
	}
	return total.Round(2).InexactFloat64()
}

// Payout é o ganho de um grupo vencedor: mise × odd combinada, truncado.
func Payout(stake int64, combinedOdds float64) int64 {
	return decimal.NewFromInt(stake).Mul(decimal.NewFromFloat(combinedOdds)).IntPart()
}

// PotentialGain é o payout exibido na listagem de apostas ativas.
func (g *Group) PotentialGain() int64 { return Payout(g.Stake, g.CombinedOdds) }
