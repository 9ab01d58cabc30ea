package wager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func doneGroup(id string, stake int64, odds float64, created time.Time, won bool) Group {
	res := OutcomeAway
	if won {
		res = OutcomeHome
	}
	return Group{
		ID:           id,
		UserID:       "u1",
		Stake:        stake,
		CombinedOdds: odds,
		CreatedAt:    created,
		Legs:         []Leg{{ID: id + "-l1", MatchID: "match-" + id, Selection: SelectionHome, Result: res}},
	}
}

func TestComputeStatsVazio(t *testing.T) {
	s := ComputeStats(nil)
	assert.Equal(t, Stats{}, s)
}

func TestComputeStatsAgregados(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	groups := []Group{
		doneGroup("g1", 100, 2.0, base, true),                 // ganho 200
		doneGroup("g2", 50, 3.5, base.Add(time.Hour), false),  // perdida
		doneGroup("g3", 80, 2.5, base.Add(2*time.Hour), true), // ganho 200
		{ID: "g4", Stake: 40, CombinedOdds: 1.8, Active: true, CreatedAt: base.Add(3 * time.Hour),
			Legs: []Leg{{ID: "g4-l1", MatchID: "match-g4", Result: OutcomePending}}},
		{ID: "g5", Stake: 60, Void: true, CreatedAt: base.Add(4 * time.Hour),
			Legs: []Leg{{ID: "g5-l1", MatchID: "match-g5", Result: OutcomePending}}},
	}

	s := ComputeStats(groups)
	assert.Equal(t, 5, s.TotalBets)
	assert.Equal(t, 1, s.ActiveBets)
	assert.Equal(t, 2, s.BetsWon)
	assert.Equal(t, 1, s.BetsLost)
	assert.InDelta(t, 66.666, s.WinRate, 0.01)
	assert.Equal(t, 3, s.MatchesBetOn, "anulada e ativa ficam de fora")
	assert.Equal(t, int64(330), s.TotalStaked)
	assert.Equal(t, int64(400), s.TotalEarnings)
	assert.Equal(t, int64(200), s.BiggestWin)
	assert.InDelta(t, 66.0, s.AverageStake, 0.001)
	// mais recente liquidada é vitória (g3); a derrota (g2) corta a série
	assert.Equal(t, 1, s.CurrentStreak)
}

func TestComputeStatsSerieAtual(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	groups := []Group{
		doneGroup("g1", 10, 2.0, base, false),
		doneGroup("g2", 10, 2.0, base.Add(time.Hour), true),
		doneGroup("g3", 10, 2.0, base.Add(2*time.Hour), true),
	}
	s := ComputeStats(groups)
	assert.Equal(t, 2, s.CurrentStreak, "duas vitórias desde a última derrota")

	groups = append(groups, doneGroup("g4", 10, 2.0, base.Add(3*time.Hour), false))
	s = ComputeStats(groups)
	assert.Equal(t, 0, s.CurrentStreak, "derrota mais recente zera a série")
}
