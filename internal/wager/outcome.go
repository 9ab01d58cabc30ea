package wager

import (
	"github.com/uniligue/bet-engine/internal/registry"
)

// LegView é a visão de um leg junto com o estado atual da partida dele:
// tudo que a avaliação precisa, sem tocar em banco.
type LegView struct {
	LegID     string
	MatchID   string
	Position  int
	Selection Selection
	Odds      float64
	Result    Outcome
	Active    bool

	MatchStatus registry.Status
	Score1      *int
	Score2      *int
	Forfeit1    bool
	Forfeit2    bool
}

// Decision é o veredito de uma passada de avaliação: o novo estado do grupo
// e os resultados de leg a gravar (só os de partidas concluídas).
type Decision struct {
	State      GroupOutcome
	LegResults map[string]Outcome
}

// DeriveOutcome traduz o estado final da partida no resultado do leg.
// Forfait tem precedência sobre o placar; placar ausente numa partida
// concluída conta como 0.
func DeriveOutcome(v LegView) Outcome {
	if v.Forfeit1 {
		return OutcomeForfeitHome
	}
	if v.Forfeit2 {
		return OutcomeForfeitAway
	}

	var s1, s2 int
	if v.Score1 != nil {
		s1 = *v.Score1
	}
	if v.Score2 != nil {
		s2 = *v.Score2
	}
	switch {
	case s1 > s2:
		return OutcomeHome
	case s1 < s2:
		return OutcomeAway
	default:
		return OutcomeDraw
	}
}

// Evaluate decide o destino do grupo a partir do estado atual das partidas.
// Leg perdedor tem precedência absoluta: grupo que já contém uma perna
// perdida é LOST, nunca reembolsado, não importa a ordem dos legs no slice.
//   - algum leg concluído e não coberto → grupo LOST (irmãos ainda
//     pendentes são resolvidos quando as partidas deles encerrarem);
//   - sem derrota, partida cancelada → grupo inteiro VOIDED, legs limpos
//     para PENDING;
//   - todos concluídos e cobertos → WON;
//   - mistura de certos + pendentes → segue ACTIVE, gravando os resultados
//     parciais já conhecidos.
func Evaluate(legs []LegView) Decision {
	d := Decision{State: GroupActive, LegResults: make(map[string]Outcome)}

	for _, l := range legs {
		if l.MatchStatus != registry.StatusConcluded {
			continue
		}
		out := DeriveOutcome(l)
		d.LegResults[l.LegID] = out
		if !LegWins(l.Selection, out) {
			d.State = GroupLost
			return d
		}
	}

	pending := false
	for _, l := range legs {
		if l.MatchStatus == registry.StatusCancelled {
			for _, x := range legs {
				d.LegResults[x.LegID] = OutcomePending
			}
			d.State = GroupVoided
			return d
		}
		if l.MatchStatus != registry.StatusConcluded {
			pending = true
		}
	}

	if pending {
		return d
	}
	d.State = GroupWon
	return d
}

// ResolveConcluded devolve os resultados de legs cujas partidas encerraram
// depois que o grupo já estava terminal. Só auditoria: o estado do grupo não
// muda e nenhum ponto se move.
func ResolveConcluded(legs []LegView) map[string]Outcome {
	out := make(map[string]Outcome)
	for _, l := range legs {
		if l.MatchStatus == registry.StatusConcluded && l.Result == OutcomePending {
			out[l.LegID] = DeriveOutcome(l)
		}
	}
	return out
}
