package topics

const (
	// Resultados vindos da federação (colaborador de ingestão)
	MatchResults    = "match_results"
	MatchResultsDLQ = "match_results_dlq"

	// Odds
	OddsUpdates = "odds_updates"

	// Apostas
	BetPlaced  = "bet_placed"
	BetSettled = "bet_settled"
)
