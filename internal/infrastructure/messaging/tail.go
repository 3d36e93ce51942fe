package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/pkg/logger"
)

// RecordTail 以独立读者身份跟随记录流，不参与消费者组
type RecordTail struct {
	client       *redis.Client
	blockTimeout time.Duration
}

// NewRecordTail 创建记录流订阅
func NewRecordTail(client *redis.Client, blockTimeout time.Duration) *RecordTail {
	if blockTimeout <= 0 {
		blockTimeout = 5 * time.Second
	}
	return &RecordTail{client: client, blockTimeout: blockTimeout}
}

// Tail 从订阅时刻起投递新保存的记录，直到 ctx 结束或 fn 返回错误
func (t *RecordTail) Tail(ctx context.Context, fn func(*entity.StoryRecord) error) error {
	lastID := "$"
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		streams, err := t.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{string(StreamStoryRecord), lastID},
			Count:   50,
			Block:   t.blockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		for _, stream := range streams {
			for _, xmsg := range stream.Messages {
				lastID = xmsg.ID

				msg, err := decodeMessage(xmsg)
				if err != nil || msg.Type != TypeRecordSaved {
					continue
				}
				var record entity.StoryRecord
				if err := msg.UnmarshalPayload(&record); err != nil {
					logger.Warn(ctx, "skipping malformed record payload", "message_id", msg.ID)
					continue
				}
				if err := fn(&record); err != nil {
					return err
				}
			}
		}
	}
}
