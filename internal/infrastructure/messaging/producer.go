package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/pkg/logger"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	msg.SetMetadata("request_id", contextString(ctx, logger.RequestIDKey))
	msg.SetMetadata("trace_id", contextString(ctx, logger.TraceIDKey))

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishRecordSaved 发布新会话记录
func (p *Producer) PublishRecordSaved(ctx context.Context, record *entity.StoryRecord) error {
	msg, err := NewMessage(record.ID, TypeRecordSaved, record.OwnerID, record)
	if err != nil {
		return err
	}
	_, err = p.Publish(ctx, StreamStoryRecord, msg)
	return err
}

// PublishRecordCompleted 发布阅读完成
func (p *Producer) PublishRecordCompleted(ctx context.Context, recordID string, at time.Time) error {
	payload := &RecordCompletedMessage{RecordID: recordID, CompletedAt: at.UTC()}
	msg, err := NewMessage(recordID, TypeRecordCompleted, "", payload)
	if err != nil {
		return err
	}
	_, err = p.Publish(ctx, StreamStoryRecord, msg)
	return err
}

func contextString(ctx context.Context, key logger.ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
