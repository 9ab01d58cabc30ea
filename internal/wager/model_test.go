package wager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLegWins(t *testing.T) {
	cases := []struct {
		sel  Selection
		res  Outcome
		wins bool
	}{
		{SelectionHome, OutcomeHome, true},
		{SelectionHome, OutcomeForfeitHome, true},
		{SelectionHome, OutcomeAway, false},
		{SelectionHome, OutcomeDraw, false},
		{SelectionHome, OutcomeForfeitAway, false},
		{SelectionDraw, OutcomeDraw, true},
		{SelectionDraw, OutcomeForfeitHome, false},
		{SelectionAway, OutcomeAway, true},
		{SelectionAway, OutcomeForfeitAway, true},
		{SelectionAway, OutcomeHome, false},
		{SelectionHome, OutcomePending, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.wins, LegWins(c.sel, c.res), "%s vs %s", c.sel, c.res)
	}
}

func TestCombineOdds(t *testing.T) {
	assert.Equal(t, 2.0, CombineOdds([]float64{2.0}))
	assert.Equal(t, 8.0, CombineOdds([]float64{2.0, 4.0}))
	// produto decimal evita o lixo binário de 1.1*1.1*1.1
	assert.Equal(t, 1.33, CombineOdds([]float64{1.1, 1.1, 1.1}))
	assert.Equal(t, 1.0, CombineOdds(nil))
}

func TestPayoutTruncaFracao(t *testing.T) {
	assert.Equal(t, int64(200), Payout(100, 2.0))
	// 33 * 1.47 = 48.51 → 48, nunca arredonda para cima
	assert.Equal(t, int64(48), Payout(33, 1.47))
	assert.Equal(t, int64(363), Payout(100, 3.63))
}

func TestGroupOutcomeProjecao(t *testing.T) {
	g := &Group{Active: true}
	assert.Equal(t, GroupActive, g.Outcome())

	g = &Group{Void: true}
	assert.Equal(t, GroupVoided, g.Outcome())

	g = &Group{Legs: []Leg{
		{Selection: SelectionHome, Result: OutcomeHome},
		{Selection: SelectionAway, Result: OutcomeForfeitAway},
	}}
	assert.Equal(t, GroupWon, g.Outcome())

	// leg irmão ainda pendente num grupo perdido continua projetando LOST
	g = &Group{Legs: []Leg{
		{Selection: SelectionHome, Result: OutcomeAway},
		{Selection: SelectionDraw, Result: OutcomePending},
	}}
	assert.Equal(t, GroupLost, g.Outcome())
}
