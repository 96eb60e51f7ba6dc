// Package alert publishes decision and trade events to Kafka for
// downstream alerting services. Publishing is best effort and must
// never disturb a trading pass.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"ai-crypto-trader/internal/interfaces"
	"ai-crypto-trader/internal/logger"
	"ai-crypto-trader/internal/types"
)

const (
	eventSource   = "ai-crypto-trader"
	schemaVersion = "1.0"
)

// DecisionEvent is the wire schema decision consumers expect.
type DecisionEvent struct {
	EventType     string       `json:"event_type"`
	Source        string       `json:"source"`
	SchemaVersion string       `json:"schema_version"`
	Timestamp     time.Time    `json:"timestamp"`
	Data          DecisionData `json:"data"`
}

// DecisionData carries the decision itself.
type DecisionData struct {
	Symbol    string `json:"symbol"`
	Signal    string `json:"signal"`
	Reasoning string `json:"reasoning"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
}

// TradeEvent is the wire schema for executed orders.
type TradeEvent struct {
	EventType     string    `json:"event_type"`
	Source        string    `json:"source"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	Data          TradeData `json:"data"`
}

// TradeData carries the executed order.
type TradeData struct {
	Side     string  `json:"side"`
	Mode     string  `json:"mode"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	OrderID  string  `json:"order_id"`
	Status   string  `json:"status"`
}

// Publisher writes events to a single topic keyed by symbol.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

var _ interfaces.AlertPublisher = (*Publisher)(nil)

// NewPublisher connects a synchronous producer. WaitForAll acks keep
// the audit trail of published events reliable.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("alert: connect producer: %w", err)
	}
	return &Publisher{producer: producer, topic: topic}, nil
}

func (p *Publisher) publish(ctx context.Context, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("alert: marshal event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("alert: send: %w", err)
	}
	logger.Debug(ctx, "Event published", "topic", p.topic, "key", key, "partition", partition, "offset", offset)
	return nil
}

func (p *Publisher) PublishDecision(ctx context.Context, d types.Decision) error {
	return p.publish(ctx, d.Symbol, DecisionEvent{
		EventType:     "trading_decision",
		Source:        eventSource,
		SchemaVersion: schemaVersion,
		Timestamp:     time.Now().UTC(),
		Data: DecisionData{
			Symbol:    d.Symbol,
			Signal:    string(d.Action),
			Reasoning: d.Reason,
			Provider:  d.Provider,
			Model:     d.Model,
		},
	})
}

func (p *Publisher) PublishTrade(ctx context.Context, tx types.Transaction) error {
	return p.publish(ctx, tx.OrderID, TradeEvent{
		EventType:     "trade_executed",
		Source:        eventSource,
		SchemaVersion: schemaVersion,
		Timestamp:     time.Now().UTC(),
		Data: TradeData{
			Side:     string(tx.Side),
			Mode:     string(tx.Mode),
			Price:    tx.Price,
			Quantity: tx.Quantity,
			OrderID:  tx.OrderID,
			Status:   tx.Status,
		},
	})
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
