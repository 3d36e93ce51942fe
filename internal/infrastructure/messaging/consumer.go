package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hakawati-story-api/pkg/logger"
	"hakawati-story-api/pkg/metrics"
)

const (
	readBatch    = 10
	pendingBatch = 50
)

var errRetriesExhausted = errors.New("record message exceeded retry limit")

// MessageHandler 消息处理函数
type MessageHandler func(ctx context.Context, msg *Message) error

// HandlerRegistry 按消息类型登记处理函数
type HandlerRegistry interface {
	RegisterHandler(msgType string, handler MessageHandler)
}

// outcome 单条消息的投递结果，同时作为指标标签
type outcome string

const (
	outcomeDone    outcome = "success"
	outcomeRetry   outcome = "error"
	outcomeDropped outcome = "dropped"
	outcomeDead    outcome = "dlq"
	outcomeIgnored outcome = "ignored"
)

// Consumer 会话记录流的消费者组成员
type Consumer struct {
	client    *redis.Client
	streamKey string
	dlqKey    string
	groupName string
	name      string

	block       time.Duration
	staleEvery  time.Duration
	staleIdle   time.Duration
	maxAttempts int
	backoff     BackoffConfig

	mu       sync.RWMutex
	handlers map[string]MessageHandler
	started  bool
	done     chan struct{}
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	RetryLimit    int
	Backoff       BackoffConfig
}

func (cfg ConsumerConfig) withDefaults() ConsumerConfig {
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}
	return cfg
}

// NewConsumer 创建消费者，ConsumerName 在组内必须唯一
func NewConsumer(client *redis.Client, cfg ConsumerConfig) *Consumer {
	cfg = cfg.withDefaults()
	return &Consumer{
		client:      client,
		streamKey:   string(cfg.Stream),
		dlqKey:      cfg.Stream.DLQStream(),
		groupName:   string(cfg.Group),
		name:        cfg.ConsumerName,
		block:       cfg.BlockTimeout,
		staleEvery:  cfg.ClaimInterval,
		staleIdle:   max(5*time.Minute, cfg.Backoff.Max*2),
		maxAttempts: cfg.RetryLimit,
		backoff:     cfg.Backoff,
		handlers:    make(map[string]MessageHandler),
		done:        make(chan struct{}),
	}
}

// RegisterHandler 注册消息处理器，同类型后注册者覆盖
func (c *Consumer) RegisterHandler(msgType string, handler MessageHandler) {
	c.mu.Lock()
	c.handlers[msgType] = handler
	c.mu.Unlock()
}

func (c *Consumer) handlerFor(msgType string) (MessageHandler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[msgType]
	return h, ok
}

// Start 确保消费者组存在后在后台开始消费
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("consumer %s already started", c.name)
	}
	c.started = true
	c.mu.Unlock()

	if err := c.ensureGroup(ctx); err != nil {
		return err
	}
	go c.loop(ctx)
	return nil
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.streamKey, c.groupName, "0").Err()
	if err == nil || strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil
	}
	return fmt.Errorf("create group %s on %s: %w", c.groupName, c.streamKey, err)
}

// Stop 停止消费，可重复调用
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return
	}
	c.started = false
	close(c.done)
}

func (c *Consumer) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Consumer) loop(ctx context.Context) {
	logger.Info(ctx, "record consumer started",
		"stream", c.streamKey,
		"group", c.groupName,
		"consumer", c.name,
	)
	defer logger.Info(ctx, "record consumer stopped", "consumer", c.name)

	nextStaleSweep := time.Now()
	for !c.stopped(ctx) {
		withStale := !time.Now().Before(nextStaleSweep)
		c.sweepPending(ctx, withStale)
		if withStale {
			nextStaleSweep = time.Now().Add(c.staleEvery)
		}

		for _, xmsg := range c.poll(ctx) {
			c.deliver(ctx, xmsg)
		}
	}
}

// poll 阻塞读取新消息，读失败时短暂休眠
func (c *Consumer) poll(ctx context.Context) []redis.XMessage {
	res, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.groupName,
		Consumer: c.name,
		Streams:  []string{c.streamKey, ">"},
		Count:    readBatch,
		Block:    c.block,
	}).Result()
	switch {
	case err == nil:
	case errors.Is(err, redis.Nil), ctx.Err() != nil:
		return nil
	default:
		logger.Error(ctx, "stream read failed", err, "stream", c.streamKey)
		time.Sleep(time.Second)
		return nil
	}

	var out []redis.XMessage
	for _, s := range res {
		out = append(out, s.Messages...)
	}
	return out
}

func decodeMessage(xmsg redis.XMessage) (*Message, error) {
	raw, ok := xmsg.Values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("entry %s has no data field", xmsg.ID)
	}
	msg := new(Message)
	if err := json.Unmarshal([]byte(raw), msg); err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", xmsg.ID, err)
	}
	return msg, nil
}

// messageContext 把消息携带的身份和链路信息放回日志上下文
func messageContext(ctx context.Context, msg *Message) context.Context {
	if msg.OwnerID != "" {
		ctx = logger.WithContext(ctx, logger.UserIDKey, msg.OwnerID)
	}
	for key, ctxKey := range map[string]logger.ContextKey{
		"request_id": logger.RequestIDKey,
		"trace_id":   logger.TraceIDKey,
	} {
		if v := msg.GetMetadata(key); v != "" {
			ctx = logger.WithContext(ctx, ctxKey, v)
		}
	}
	return ctx
}

func (c *Consumer) deliver(ctx context.Context, xmsg redis.XMessage) {
	ctx, span := tracer.Start(ctx, "messaging.deliver",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination", c.streamKey),
			attribute.String("messaging.entry_id", xmsg.ID),
		))
	defer span.End()

	result := c.handle(ctx, span, xmsg)
	metrics.RedisStreamProcessed.WithLabelValues(c.streamKey, string(result)).Inc()
	if result != outcomeRetry {
		c.ack(ctx, xmsg.ID)
	}
}

func (c *Consumer) handle(ctx context.Context, span trace.Span, xmsg redis.XMessage) outcome {
	msg, err := decodeMessage(xmsg)
	if err != nil {
		logger.Error(ctx, "dropping undecodable entry", err, "entry_id", xmsg.ID)
		return outcomeDropped
	}
	ctx = messageContext(ctx, msg)
	span.SetAttributes(attribute.String("message.type", msg.Type), attribute.String("message.id", msg.ID))

	h, ok := c.handlerFor(msg.Type)
	if !ok {
		logger.Warn(ctx, "no handler registered", "type", msg.Type, "entry_id", xmsg.ID)
		return outcomeIgnored
	}

	err = h(ctx, msg)
	if err == nil {
		return outcomeDone
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	attempts := c.attempts(ctx, xmsg.ID)
	if attempts < c.maxAttempts {
		logger.Warn(ctx, "record handler failed, will retry",
			"type", msg.Type,
			"entry_id", xmsg.ID,
			"attempts", attempts,
			"error", err.Error(),
		)
		return outcomeRetry
	}
	logger.Error(ctx, "record handler gave up", err, "type", msg.Type, "entry_id", xmsg.ID, "attempts", attempts)
	c.deadLetter(ctx, msg, err)
	return outcomeDead
}

func (c *Consumer) ack(ctx context.Context, entryID string) {
	if err := c.client.XAck(ctx, c.streamKey, c.groupName, entryID).Err(); err != nil {
		logger.Error(ctx, "ack failed", err, "entry_id", entryID)
	}
}

// attempts 返回该条目已被投递的次数
func (c *Consumer) attempts(ctx context.Context, entryID string) int {
	res, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.streamKey,
		Group:  c.groupName,
		Start:  entryID,
		End:    entryID,
		Count:  1,
	}).Result()
	if err != nil || len(res) == 0 {
		return 0
	}
	return int(res[0].RetryCount)
}

// deadLetterEntry 死信流条目
type deadLetterEntry struct {
	Stream   string   `json:"original_stream"`
	Message  *Message `json:"data"`
	Reason   string   `json:"error"`
	FailedAt int64    `json:"failed_at"`
}

func (c *Consumer) deadLetter(ctx context.Context, msg *Message, cause error) {
	body, err := json.Marshal(deadLetterEntry{
		Stream:   c.streamKey,
		Message:  msg,
		Reason:   cause.Error(),
		FailedAt: time.Now().Unix(),
	})
	if err != nil {
		logger.Error(ctx, "encode dead letter failed", err, "message_id", msg.ID)
		return
	}
	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.dlqKey,
		Values: map[string]interface{}{"data": string(body)},
	}).Err(); err != nil {
		logger.Error(ctx, "write dead letter failed", err, "message_id", msg.ID)
	}
}

// sweepPending 处理 pending 列表：
// 自己名下的条目按退避间隔重投，其他消费者名下超过 staleIdle 的条目在 withStale 时接管。
// 超过重试上限的条目直接转入死信流。
func (c *Consumer) sweepPending(ctx context.Context, withStale bool) {
	entries, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.streamKey,
		Group:  c.groupName,
		Start:  "-",
		End:    "+",
		Count:  pendingBatch,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Error(ctx, "list pending entries failed", err)
		}
		return
	}

	for _, p := range entries {
		var minIdle time.Duration
		switch {
		case p.Consumer == c.name:
			minIdle = c.backoff.CalculateBackoff(int(p.RetryCount))
		case withStale:
			minIdle = c.staleIdle
		default:
			continue
		}
		if p.Idle < minIdle {
			continue
		}
		c.reclaim(ctx, p.ID, minIdle, int(p.RetryCount) >= c.maxAttempts)
	}
}

func (c *Consumer) reclaim(ctx context.Context, entryID string, minIdle time.Duration, exhausted bool) {
	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.streamKey,
		Group:    c.groupName,
		Consumer: c.name,
		MinIdle:  minIdle,
		Messages: []string{entryID},
	}).Result()
	if err != nil {
		logger.Error(ctx, "claim pending entry failed", err, "entry_id", entryID)
		return
	}

	for _, xmsg := range claimed {
		if !exhausted {
			c.deliver(ctx, xmsg)
			continue
		}
		if msg, err := decodeMessage(xmsg); err == nil {
			c.deadLetter(ctx, msg, errRetriesExhausted)
		}
		metrics.RedisStreamProcessed.WithLabelValues(c.streamKey, string(outcomeDead)).Inc()
		c.ack(ctx, xmsg.ID)
	}
}

// MonitorLag 定期上报消费者组积压，死信数量超过阈值时告警
func (c *Consumer) MonitorLag(ctx context.Context, interval time.Duration, dlqAlertThreshold int64) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.reportLag(ctx, dlqAlertThreshold)
		}
	}
}

func (c *Consumer) reportLag(ctx context.Context, dlqAlertThreshold int64) {
	if groups, err := c.client.XInfoGroups(ctx, c.streamKey).Result(); err == nil {
		for _, g := range groups {
			if g.Name != c.groupName {
				continue
			}
			metrics.RedisStreamLag.WithLabelValues(c.streamKey, g.Name).Set(float64(g.Lag))
		}
	}

	n, err := c.client.XLen(ctx, c.dlqKey).Result()
	if err != nil || n <= dlqAlertThreshold {
		return
	}
	logger.Warn(ctx, "dead letter stream above threshold",
		"stream", c.dlqKey,
		"count", n,
		"threshold", dlqAlertThreshold,
	)
}
