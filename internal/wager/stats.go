package wager

import "sort"

// Stats é a projeção de estatísticas de apostas de um usuário.
type Stats struct {
	TotalBets     int     `json:"totalBetsMade"`
	ActiveBets    int     `json:"activeBets"`
	BetsWon       int     `json:"betsWon"`
	BetsLost      int     `json:"betsLost"`
	WinRate       float64 `json:"betWinRate"`
	CurrentStreak int     `json:"currentStreak"`
	MatchesBetOn  int     `json:"matchesBetOn"`
	TotalStaked   int64   `json:"totalPointsSpent"`
	TotalEarnings int64   `json:"totalEarnings"`
	BiggestWin    int64   `json:"biggestWin"`
	AverageStake  float64 `json:"averageBetAmount"`
}

// ComputeStats agrega os grupos de um usuário. Grupos anulados não entram
// em vitórias nem derrotas; a sequência atual conta vitórias consecutivas a
// partir do grupo liquidado mais recente e zera na primeira derrota.
func ComputeStats(groups []Group) Stats {
	var s Stats
	s.TotalBets = len(groups)
	if len(groups) == 0 {
		return s
	}

	sorted := make([]Group, len(groups))
	copy(sorted, groups)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	matches := make(map[string]struct{})
	streakOpen := true

	for _, g := range sorted {
		s.TotalStaked += g.Stake

		if g.Active {
			s.ActiveBets++
			continue
		}
		if g.Void {
			continue
		}

		for _, l := range g.Legs {
			matches[l.MatchID] = struct{}{}
		}

		switch g.Outcome() {
		case GroupWon:
			s.BetsWon++
			gain := Payout(g.Stake, g.CombinedOdds)
			s.TotalEarnings += gain
			if gain > s.BiggestWin {
				s.BiggestWin = gain
			}
			if streakOpen {
				s.CurrentStreak++
			}
		case GroupLost:
			s.BetsLost++
			streakOpen = false
		}
	}

	s.MatchesBetOn = len(matches)
	if done := s.BetsWon + s.BetsLost; done > 0 {
		s.WinRate = float64(s.BetsWon) / float64(done) * 100
	}
	s.AverageStake = float64(s.TotalStaked) / float64(len(groups))
	return s
}
