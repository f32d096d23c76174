package events

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// FakeWriter captura los mensajes escritos.
type FakeWriter struct {
	Messages []kafka.Message
	Err      error
	Closed   bool
}

func (w *FakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.Err != nil {
		return w.Err
	}
	w.Messages = append(w.Messages, msgs...)
	return nil
}

func (w *FakeWriter) Close() error {
	w.Closed = true
	return nil
}

// NewPublisherWithWriter expone el constructor interno a las pruebas.
func NewPublisherWithWriter(w *FakeWriter, source string) *KafkaPublisher {
	return newKafkaPublisher(w, source)
}
