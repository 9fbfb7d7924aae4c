package kafkasink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"carehive/internal/adapters/notify/webhook"
	"carehive/internal/ports/notify"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestSend_KeyedByMedicine(t *testing.T) {
	fw := &fakeWriter{}
	s := &Sender{writer: fw, topic: "medicine-reminders"}

	err := s.Send(context.Background(), notify.Reminder{
		Key:        "med-1|8:00AM|2025-03-10",
		UserID:     "family-1",
		MedicineID: "med-1",
		Title:      "Medicine reminder",
	})
	require.NoError(t, err)
	require.Len(t, fw.msgs, 1)

	msg := fw.msgs[0]
	assert.Equal(t, "med-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "med-1|8:00AM|2025-03-10", string(msg.Headers[0].Value))

	var p webhook.Payload
	require.NoError(t, json.Unmarshal(msg.Value, &p))
	assert.Equal(t, "family-1", p.UserID)
}

func TestSend_WrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	s := &Sender{writer: &fakeWriter{err: boom}, topic: "t"}

	err := s.Send(context.Background(), notify.Reminder{MedicineID: "m"})
	assert.ErrorIs(t, err, boom)
}
