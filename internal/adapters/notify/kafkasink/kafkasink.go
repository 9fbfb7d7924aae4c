// Package kafkasink publica cada recordatorio en un tópico Kafka; la clave
// del mensaje es el id de la medicina, así los de una misma medicina caen en
// la misma partición.
package kafkasink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"carehive/internal/adapters/notify/webhook"
	"carehive/internal/ports/notify"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Sender struct {
	writer messageWriter
	topic  string
}

func New(brokers []string, topic string) *Sender {
	return &Sender{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
		},
		topic: topic,
	}
}

func (s *Sender) Send(ctx context.Context, r notify.Reminder) error {
	value, err := json.Marshal(webhook.ToPayload(r))
	if err != nil {
		return fmt.Errorf("marshal reminder: %w", err)
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(r.MedicineID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "reminder-key", Value: []byte(r.Key)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish reminder to %s: %w", s.topic, err)
	}
	return nil
}

func (s *Sender) Close() error {
	return s.writer.Close()
}
