package wager

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/uniligue/bet-engine/pkg/contracts/events"
)

// KafkaPublisher emite os eventos do engine nos tópicos de apostas.
// Writer nulo vira no-op: o results-worker só publica bet_settled.
type KafkaPublisher struct {
	Placed  *kafka.Writer
	Settled *kafka.Writer
}

func NewKafkaPublisher(placed, settled *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Placed: placed, Settled: settled}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	if p.Placed == nil {
		return nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Placed.WriteMessages(ctx, kafka.Message{Key: []byte(e.GroupID), Value: b})
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	if p.Settled == nil {
		return nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Settled.WriteMessages(ctx, kafka.Message{Key: []byte(e.GroupID), Value: b})
}
