package events

// Evento publicado no tópico "match_results" pelo colaborador de ingestão.
// Scores chegam como string porque a planilha da federação pode trazer
// valores não numéricos quando a partida é cancelada; a tradução para o
// sentinela de cancelamento acontece no results-worker, nunca no core.
type MatchResult struct {
	Sport    string `json:"sport"`
	Level    int    `json:"level"`
	Pool     string `json:"pool,omitempty"`
	Date     string `json:"date"` // "2006-01-02"
	Time     string `json:"time"` // "15:04"
	Team1    string `json:"team1"`
	Team2    string `json:"team2"`
	Score1   string `json:"score1"`
	Score2   string `json:"score2"`
	Forfeit1 bool   `json:"forfeit1,omitempty"`
	Forfeit2 bool   `json:"forfeit2,omitempty"`
	Played   bool   `json:"played,omitempty"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
