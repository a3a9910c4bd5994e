// Package kafka streams lifecycle transitions to a Kafka topic for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"virtualexpo/internal/domain"
)

// DefaultTopic receives one message per lifecycle transition.
const DefaultTopic = "lifecycle-transitions"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TransitionMessage is the JSON value of each published message.
type TransitionMessage struct {
	MessageID string         `json:"message_id"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
}

// TransitionPublisher is an AuditSink that publishes every entry to Kafka, keyed
// by entity id so transitions of one entity stay ordered within a partition.
type TransitionPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewTransitionPublisher returns a publisher writing to topic on brokers.
func NewTransitionPublisher(brokers []string, topic string, logger *slog.Logger) *TransitionPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newTransitionPublisher(writer, logger)
}

func newTransitionPublisher(writer messageWriter, logger *slog.Logger) *TransitionPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransitionPublisher{writer: writer, logger: logger.With("component", "kafka_publisher")}
}

// Append publishes entry. It blocks until the broker acknowledges or ctx expires.
func (p *TransitionPublisher) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	msg := TransitionMessage{
		MessageID: uuid.NewString(),
		ActorID:   entry.ActorID,
		Action:    entry.Action,
		Entity:    entry.Entity,
		EntityID:  entry.EntityID,
		Timestamp: entry.Timestamp.UTC(),
		Metadata:  entry.Metadata,
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode transition message: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.EntityID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(entry.Action)},
			{Key: "entity", Value: []byte(entry.Entity)},
		},
		Time: msg.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("publish %s for %s %s: %w", entry.Action, entry.Entity, entry.EntityID, err)
	}
	p.logger.Debug("transition published", "action", entry.Action, "entity_id", entry.EntityID, "message_id", msg.MessageID)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *TransitionPublisher) Close() error {
	return p.writer.Close()
}
