package messaging

import (
	"context"
	"fmt"
	"time"

	"hakawati-story-api/internal/domain/entity"
)

// RecordWriter 会话记录的落库端
type RecordWriter interface {
	SaveRecord(ctx context.Context, record *entity.StoryRecord) error
	CompleteRecord(ctx context.Context, recordID string, at time.Time) error
}

// RegisterRecordHandlers 为会话记录流的两类消息注册处理器
func RegisterRecordHandlers(reg HandlerRegistry, w RecordWriter) {
	reg.RegisterHandler(TypeRecordSaved, func(ctx context.Context, msg *Message) error {
		var record entity.StoryRecord
		if err := msg.UnmarshalPayload(&record); err != nil {
			return fmt.Errorf("decode %s payload: %w", TypeRecordSaved, err)
		}
		if record.ID == "" {
			return fmt.Errorf("%s payload has no record id", TypeRecordSaved)
		}
		return w.SaveRecord(ctx, &record)
	})

	reg.RegisterHandler(TypeRecordCompleted, func(ctx context.Context, msg *Message) error {
		var payload RecordCompletedMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", TypeRecordCompleted, err)
		}
		if payload.CompletedAt.IsZero() {
			payload.CompletedAt = msg.CreatedAt
		}
		return w.CompleteRecord(ctx, payload.RecordID, payload.CompletedAt)
	})
}
