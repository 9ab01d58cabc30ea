package odds

import (
	"github.com/shopspring/decimal"
)

const (
	// Margem da casa aplicada na conversão probabilidade → odd.
	Margin = 1.10
	// Piso de probabilidade: limita a odd máxima em Margin/ProbFloor = 11.0.
	ProbFloor = 0.1

	// Odds padrão quando um dos lados não tem histórico na janela.
	DefaultHome = 2.5
	DefaultDraw = 3.0
	DefaultAway = 2.5

	// Peso máximo da pressão de apostas ao vivo sobre a probabilidade histórica.
	maxPressureWeight = 0.3
)

// Triple são as odds 1x2 de uma partida.
type Triple struct {
	Home float64
	Draw float64
	Away float64
}

// TeamRecord é o retrospecto de um time na janela histórica (365 dias,
// mesmo esporte e nível).
type TeamRecord struct {
	Wins  int
	Games int
}

// HistoricalGame é uma partida concluída dentro da janela.
type HistoricalGame struct {
	Team1  string
	Team2  string
	Score1 int
	Score2 int
}

// Pressure é a distribuição de apostas recebidas desde o último recálculo.
type Pressure struct {
	Bets      int
	HomeStake int64
	DrawStake int64
	AwayStake int64
}

// RecordFromHistory monta o retrospecto de um time a partir das partidas da
// janela. Com bothSides=false reproduz o comportamento legado, que só conta
// as partidas em que o time aparece como team1.
func RecordFromHistory(games []HistoricalGame, team string, bothSides bool) TeamRecord {
	var rec TeamRecord
	for _, g := range games {
		if g.Team1 == team {
			rec.Games++
			if g.Score1 > g.Score2 {
				rec.Wins++
			}
			continue
		}
		if bothSides && g.Team2 == team {
			rec.Games++
			if g.Score2 > g.Score1 {
				rec.Wins++
			}
		}
	}
	return rec
}

// Compute deriva as odds 1x2 do retrospecto dos dois times, ponderado pela
// pressão de apostas ao vivo. Sem histórico de um dos lados, devolve as
// odds padrão.
func Compute(home, away TeamRecord, pr Pressure) Triple {
	if home.Games == 0 || away.Games == 0 {
		return Triple{Home: DefaultHome, Draw: DefaultDraw, Away: DefaultAway}
	}

	pHome := float64(home.Wins) / float64(home.Games)
	pAway := float64(away.Wins) / float64(away.Games)
	pDraw := 1 - (pHome + pAway)
	if pDraw < 0 {
		pDraw = 0
	}

	total := pHome + pAway + pDraw
	if total <= 0 {
		return Triple{Home: DefaultHome, Draw: DefaultDraw, Away: DefaultAway}
	}
	pHome /= total
	pAway /= total
	pDraw /= total

	pHome, pDraw, pAway = blendPressure(pHome, pDraw, pAway, pr)

	return Triple{
		Home: toOdd(pHome),
		Draw: toOdd(pDraw),
		Away: toOdd(pAway),
	}
}

// blendPressure mistura a probabilidade histórica com a fatia de pontos
// apostados em cada saída. O peso cresce com o volume de apostas desde o
// último recálculo e satura em maxPressureWeight.
func blendPressure(pHome, pDraw, pAway float64, pr Pressure) (float64, float64, float64) {
	totalStake := pr.HomeStake + pr.DrawStake + pr.AwayStake
	if pr.Bets == 0 || totalStake <= 0 {
		return pHome, pDraw, pAway
	}

	w := float64(pr.Bets) / float64(pr.Bets+20)
	if w > maxPressureWeight {
		w = maxPressureWeight
	}

	shareHome := float64(pr.HomeStake) / float64(totalStake)
	shareDraw := float64(pr.DrawStake) / float64(totalStake)
	shareAway := float64(pr.AwayStake) / float64(totalStake)

	return (1-w)*pHome + w*shareHome,
		(1-w)*pDraw + w*shareDraw,
		(1-w)*pAway + w*shareAway
}

// toOdd converte probabilidade em odd com margem, piso e duas casas.
func toOdd(prob float64) float64 {
	if prob < ProbFloor {
		prob = ProbFloor
	}
	odd := decimal.NewFromFloat(Margin).Div(decimal.NewFromFloat(prob))
	return odd.Round(2).InexactFloat64()
}
