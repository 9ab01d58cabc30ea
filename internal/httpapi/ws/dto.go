package ws

// ClientMsg é a mensagem vinda do cliente WebSocket.
// Type: subscribe | unsubscribe | ping
// MatchID: obrigatório em subscribe/unsubscribe
type ClientMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
}

// Update é a atualização de odds empurrada para os clientes.
type Update struct {
	MatchID string      `json:"matchId"`
	Payload interface{} `json:"payload"`
}
