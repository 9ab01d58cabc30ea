package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniligue/bet-engine/internal/wager"
)

func TestParseSelectionLegado(t *testing.T) {
	cases := []struct {
		raw  string
		want wager.Selection
	}{
		{"1", wager.SelectionHome},
		{"equipe1", wager.SelectionHome},
		{"HOME", wager.SelectionHome},
		{"2", wager.SelectionAway},
		{"equipe2", wager.SelectionAway},
		{"away", wager.SelectionAway},
		{"N", wager.SelectionDraw},
		{"n", wager.SelectionDraw},
		{"nul", wager.SelectionDraw},
		{"draw", wager.SelectionDraw},
		{" Equipe1 ", wager.SelectionHome},
	}
	for _, c := range cases {
		got, err := ParseSelection(c.raw)
		require.NoError(t, err, c.raw)
		assert.Equal(t, c.want, got, c.raw)
	}

	for _, raw := range []string{"", "X", "3", "empate?"} {
		_, err := ParseSelection(raw)
		assert.Error(t, err, raw)
	}
}

func TestToBetResponseCalculaGanhoPotencial(t *testing.T) {
	g := wager.Group{
		ID:           "g1",
		UserID:       "u1",
		Stake:        100,
		CombinedOdds: 3.5,
		Active:       true,
		Legs: []wager.Leg{
			{ID: "l1", MatchID: "m1", Selection: wager.SelectionHome, Odds: 3.5, Result: wager.OutcomePending},
		},
	}
	resp := toBetResponse(g)
	assert.Equal(t, int64(350), resp.PotentialGain)
	assert.Equal(t, "ACTIVE", resp.Outcome)
	require.Len(t, resp.Legs, 1)
	assert.Equal(t, "PENDING", resp.Legs[0].Result)
}
