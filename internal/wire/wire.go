//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"hakawati-story-api/internal/application/admin"
	"hakawati-story-api/internal/application/profile"
	"hakawati-story-api/internal/application/story/session"
	"hakawati-story-api/internal/config"
	"hakawati-story-api/internal/domain/repository"
	"hakawati-story-api/internal/infrastructure/llm"
	"hakawati-story-api/internal/infrastructure/persistence/postgres"
	"hakawati-story-api/internal/infrastructure/persistence/redis"
	"hakawati-story-api/internal/interfaces/http/handler"
	"hakawati-story-api/internal/interfaces/http/middleware"
	"hakawati-story-api/internal/interfaces/http/router"
)

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		RepoSet,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		StorySet,
		IdentitySet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewStoryRecordRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.StoryRecordRepository), new(*postgres.StoryRecordRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideRecordPublisher,
	ProvideRecordTail,
)

// StorySet 故事会话与个人主页、管理端用例
var StorySet = wire.NewSet(
	llm.NewEinoFactory,
	llm.NewMediaClient,
	ProvideRequestBuilder,
	ProvideNarrativeGenerator,
	ProvidePlaceholderTable,
	ProvideRecorder,
	ProvideSessionManager,
	profile.NewService,
	ProvideAdminService,
)

// IdentitySet 身份校验
var IdentitySet = wire.NewSet(
	ProvideFirebaseVerifier,
	ProvideVerifier,
	ProvideDisplayNameUpdater,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewStoryHandler,
	handler.NewProfileHandler,
	handler.NewAdminHandler,
	wire.Bind(new(handler.SessionService), new(*session.Manager)),
	wire.Bind(new(handler.ProfileService), new(*profile.Service)),
	wire.Bind(new(handler.AdminService), new(*admin.Service)),
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
