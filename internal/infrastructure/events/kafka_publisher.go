package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/suministros-api/internal/application/inventory"
)

var _ inventory.EventPublisher = (*KafkaPublisher)(nil)

// messageWriter lo implementa *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica los eventos del libro mayor en un topic. La clave del mensaje es el par
// (artículo, ubicación), de modo que los eventos de un mismo par conservan el orden dentro de la partición.
type KafkaPublisher struct {
	writer messageWriter
	source string
}

// NewKafkaPublisher crea el writer síncrono hacia topic.
func NewKafkaPublisher(brokers []string, topic, source string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return newKafkaPublisher(w, source)
}

func newKafkaPublisher(w messageWriter, source string) *KafkaPublisher {
	return &KafkaPublisher{writer: w, source: source}
}

// Publish escribe todos los eventos en una sola llamada.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...inventory.MovementEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.ItemID + ":" + e.LocationID),
			Value: data,
			Headers: []kafka.Header{
				{Key: "ce-type", Value: []byte(e.Type)},
				{Key: "ce-source", Value: []byte(p.source)},
				{Key: "ce-id", Value: []byte(e.MovementID)},
				{Key: "ce-time", Value: []byte(e.OccurredAt.Format(time.RFC3339))},
				{Key: "content-type", Value: []byte("application/json")},
			},
			Time: e.OccurredAt,
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d events: %w", len(msgs), err)
	}
	return nil
}

// Close cierra el writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
