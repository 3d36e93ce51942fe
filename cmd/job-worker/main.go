// Package main 会话记录写库消费者入口（job-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hakawati-story-api/internal/application/admin"
	"hakawati-story-api/internal/config"
	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/domain/repository"
	"hakawati-story-api/internal/infrastructure/messaging"
	"hakawati-story-api/internal/infrastructure/persistence/postgres"
	"hakawati-story-api/internal/infrastructure/persistence/redis"
	"hakawati-story-api/pkg/logger"
	"hakawati-story-api/pkg/tracer"
)

const (
	lagMonitorInterval = 30 * time.Second
	dlqAlertThreshold  = 100
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "job-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	txMgr := postgres.NewTxManager(pgClient)
	records := postgres.NewStoryRecordRepository(pgClient)
	statsCache := redis.NewCache(redisClient)

	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamStoryRecord,
		Group:         messaging.ConsumerGroupRecordWriter,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
		ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
		RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})

	messaging.RegisterRecordHandlers(consumer, &recordWriter{
		tx:      txMgr,
		records: records,
		stats:   statsCache,
	})

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	go consumer.MonitorLag(monitorCtx, lagMonitorInterval, dlqAlertThreshold)

	log := logger.FromContext(ctx)
	log.Info("job-worker started", "stream", string(messaging.StreamStoryRecord))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("job-worker shutting down")
	stopMonitor()
	consumer.Stop()
}

type cacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

// recordWriter 在事务内落库，成功后使概览缓存失效
type recordWriter struct {
	tx      repository.Transactor
	records repository.StoryRecordRepository
	stats   cacheInvalidator
}

func (w *recordWriter) SaveRecord(ctx context.Context, record *entity.StoryRecord) error {
	if err := w.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return w.records.Save(txCtx, record)
	}); err != nil {
		return err
	}
	w.invalidateOverview(ctx, record.ID)
	return nil
}

func (w *recordWriter) CompleteRecord(ctx context.Context, recordID string, at time.Time) error {
	if err := w.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return w.records.MarkCompleted(txCtx, recordID, at)
	}); err != nil {
		return err
	}
	w.invalidateOverview(ctx, recordID)
	return nil
}

// invalidateOverview 概览缓存失效失败只影响统计的新鲜度，不重投消息
func (w *recordWriter) invalidateOverview(ctx context.Context, recordID string) {
	if err := w.stats.Delete(ctx, admin.OverviewCacheKey); err != nil {
		logger.Warn(ctx, "failed to invalidate overview cache",
			"record_id", recordID,
			"error", err.Error(),
		)
	}
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
