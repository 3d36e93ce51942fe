package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakawati-story-api/internal/domain/entity"
)

type handlerMap map[string]MessageHandler

func (m handlerMap) RegisterHandler(msgType string, h MessageHandler) { m[msgType] = h }

type fakeWriter struct {
	saved     []*entity.StoryRecord
	completed map[string]time.Time
	err       error
}

func (w *fakeWriter) SaveRecord(_ context.Context, r *entity.StoryRecord) error {
	if w.err != nil {
		return w.err
	}
	w.saved = append(w.saved, r)
	return nil
}

func (w *fakeWriter) CompleteRecord(_ context.Context, id string, at time.Time) error {
	if w.err != nil {
		return w.err
	}
	if w.completed == nil {
		w.completed = make(map[string]time.Time)
	}
	w.completed[id] = at
	return nil
}

func TestRegisterRecordHandlers_SavesRecord(t *testing.T) {
	reg := handlerMap{}
	w := &fakeWriter{}
	RegisterRecordHandlers(reg, w)
	require.Contains(t, reg, TypeRecordSaved)
	require.Contains(t, reg, TypeRecordCompleted)

	msg, err := NewMessage("r1", TypeRecordSaved, "u1", &entity.StoryRecord{ID: "r1", OwnerID: "u1", ChildName: "Layla"})
	require.NoError(t, err)

	require.NoError(t, reg[TypeRecordSaved](context.Background(), msg))
	require.Len(t, w.saved, 1)
	assert.Equal(t, "Layla", w.saved[0].ChildName)
}

func TestRegisterRecordHandlers_RejectsRecordWithoutID(t *testing.T) {
	reg := handlerMap{}
	w := &fakeWriter{}
	RegisterRecordHandlers(reg, w)

	msg, err := NewMessage("x", TypeRecordSaved, "u1", &entity.StoryRecord{OwnerID: "u1"})
	require.NoError(t, err)

	assert.Error(t, reg[TypeRecordSaved](context.Background(), msg))
	assert.Empty(t, w.saved)
}

func TestRegisterRecordHandlers_CompletionFallsBackToMessageTime(t *testing.T) {
	reg := handlerMap{}
	w := &fakeWriter{}
	RegisterRecordHandlers(reg, w)

	msg, err := NewMessage("r1", TypeRecordCompleted, "u1", RecordCompletedMessage{RecordID: "r1"})
	require.NoError(t, err)

	require.NoError(t, reg[TypeRecordCompleted](context.Background(), msg))
	assert.Equal(t, msg.CreatedAt, w.completed["r1"])
}

func TestRegisterRecordHandlers_PropagatesWriterError(t *testing.T) {
	reg := handlerMap{}
	boom := errors.New("db down")
	RegisterRecordHandlers(reg, &fakeWriter{err: boom})

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msg, err := NewMessage("r1", TypeRecordCompleted, "u1", RecordCompletedMessage{RecordID: "r1", CompletedAt: at})
	require.NoError(t, err)

	assert.ErrorIs(t, reg[TypeRecordCompleted](context.Background(), msg), boom)
}

func TestConsumerConfig_Defaults(t *testing.T) {
	cfg := ConsumerConfig{Stream: StreamStoryRecord}.withDefaults()
	assert.Equal(t, 5*time.Second, cfg.BlockTimeout)
	assert.Equal(t, 30*time.Second, cfg.ClaimInterval)
	assert.Equal(t, 3, cfg.RetryLimit)
	assert.Equal(t, DefaultBackoffConfig(), cfg.Backoff)

	c := NewConsumer(nil, ConsumerConfig{Stream: StreamStoryRecord, Group: ConsumerGroupRecordWriter, ConsumerName: "w1"})
	assert.Equal(t, "dlq:stream:story:record", c.dlqKey)
	assert.Equal(t, 5*time.Minute, c.staleIdle)
}
