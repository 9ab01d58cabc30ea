package registry

import "time"

// Status é o estado explícito da partida, desacoplado do placar.
// Um 0-0 real é CONCLUDED com placar 0/0; "ainda não jogada" é SCHEDULED
// com placar nulo. CANCELLED substitui o sentinela de placar ilegível que
// vinha da planilha da federação.
type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusConcluded  Status = "CONCLUDED"
	StatusCancelled  Status = "CANCELLED"
)

// Key identifica uma partida de forma única no calendário da federação.
type Key struct {
	Sport string
	Level int
	Date  string // "2006-01-02"
	Time  string // "15:04"
	Team1 string
	Team2 string
}

type Match struct {
	ID        string
	Sport     string
	Level     int
	Pool      string
	StartsAt  time.Time
	Team1     string
	Team2     string
	Score1    *int // nil enquanto nenhum placar foi registrado
	Score2    *int
	Forfeit1  bool
	Forfeit2  bool
	Status    Status
	UpdatedAt time.Time
}

// Result é o que o colaborador de ingestão entrega por partida.
type Result struct {
	Score1    *int
	Score2    *int
	Forfeit1  bool
	Forfeit2  bool
	Played    bool
	Cancelled bool
}

// Concluded indica se a partida atingiu estado terminal (incluindo cancelamento).
func (m *Match) Concluded() bool {
	return m.Status == StatusConcluded || m.Status == StatusCancelled
}

// DeriveStatus calcula o estado da partida a partir do resultado recebido e
// do horário agendado. A flag "played" e o placar registrado têm precedência
// sobre o horário; cancelamento tem precedência sobre tudo.
func DeriveStatus(startsAt time.Time, now time.Time, res Result) Status {
	switch {
	case res.Cancelled:
		return StatusCancelled
	case res.Played, res.Forfeit1, res.Forfeit2:
		return StatusConcluded
	case res.Score1 != nil && res.Score2 != nil && (*res.Score1 != 0 || *res.Score2 != 0):
		return StatusConcluded
	case now.After(startsAt):
		return StatusInProgress
	default:
		return StatusScheduled
	}
}
