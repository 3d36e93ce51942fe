package wire

import (
	"context"
	"fmt"
	"strings"

	"hakawati-story-api/internal/application/admin"
	"hakawati-story-api/internal/application/profile"
	"hakawati-story-api/internal/application/story/asset"
	"hakawati-story-api/internal/application/story/narrative"
	"hakawati-story-api/internal/application/story/request"
	"hakawati-story-api/internal/application/story/session"
	"hakawati-story-api/internal/config"
	"hakawati-story-api/internal/domain/repository"
	"hakawati-story-api/internal/infrastructure/identity"
	"hakawati-story-api/internal/infrastructure/llm"
	"hakawati-story-api/internal/infrastructure/messaging"
	"hakawati-story-api/internal/infrastructure/persistence/postgres"
	"hakawati-story-api/internal/infrastructure/persistence/redis"
	"hakawati-story-api/internal/infrastructure/render"
	"hakawati-story-api/internal/interfaces/http/handler"
	"hakawati-story-api/internal/interfaces/http/router"
	"hakawati-story-api/pkg/logger"
)

// App API 网关运行所需的顶层对象
type App struct {
	Router   *router.Router
	Sessions *session.Manager
}

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient  *postgres.Client
	TxManager *postgres.TxManager
	Records   repository.StoryRecordRepository
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRecordPublisher 消息队列关闭时返回 nil，记录直接写库
func ProvideRecordPublisher(cfg *config.Config, rc *redis.Client) session.RecordPublisher {
	if !cfg.Messaging.Enabled {
		return nil
	}
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(rc.Redis(), int64(maxLen))
}

// ProvideRecordTail 管理端实时订阅依赖记录流
func ProvideRecordTail(cfg *config.Config, rc *redis.Client) admin.RecordTail {
	if !cfg.Messaging.Enabled {
		return nil
	}
	return messaging.NewRecordTail(rc.Redis(), cfg.Messaging.RedisStream.BlockTimeout)
}

func ProvideRequestBuilder(cfg *config.Config) *request.Builder {
	return request.NewBuilder(cfg.Story.PageCounts)
}

// ProvideNarrativeGenerator 按默认 provider 组装叙事生成器
func ProvideNarrativeGenerator(cfg *config.Config, factory *llm.EinoFactory) narrative.NarrativeGenerator {
	opts := narrative.Options{
		Provider: cfg.LLM.DefaultProvider,
		Timeout:  cfg.Story.GenerationTimeout,
	}
	if p, ok := cfg.LLM.Providers[strings.ToLower(cfg.LLM.DefaultProvider)]; ok {
		opts.Model = p.Model
		if p.Temperature > 0 {
			t := float32(p.Temperature)
			opts.Temperature = &t
		}
		if p.MaxTokens > 0 {
			n := p.MaxTokens
			opts.MaxTokens = &n
		}
	}
	return narrative.NewGenerator(factory, opts)
}

// ProvidePlaceholderTable 配置了外部占位图时使用 URL，否则本地渲染
func ProvidePlaceholderTable(cfg *config.Config) (asset.PlaceholderTable, error) {
	if len(cfg.Story.PlaceholderURLs) > 0 {
		return asset.URLTable(cfg.Story.PlaceholderURLs), nil
	}
	refs, err := render.PlaceholderRefs(cfg.Story.PlaceholderWidth, cfg.Story.PlaceholderHeight)
	if err != nil {
		return nil, fmt.Errorf("render placeholders: %w", err)
	}
	return asset.NewPlaceholderTable(refs), nil
}

// ProvideRecorder 提供会话记录器，退出时等待积压的写入完成
func ProvideRecorder(publisher session.RecordPublisher, repo repository.StoryRecordRepository) (*session.Recorder, func()) {
	r := session.NewRecorder(publisher, repo)
	return r, r.Close
}

// ProvideSessionManager 提供会话管理器；媒体后端未配置时退回占位图与无旁白
func ProvideSessionManager(
	cfg *config.Config,
	builder *request.Builder,
	generator narrative.NarrativeGenerator,
	media *llm.MediaClient,
	placeholders asset.PlaceholderTable,
	recorder *session.Recorder,
) (*session.Manager, func()) {
	m := session.NewManager(builder, generator, media.ImageBackend(), media.SpeechBackend(), placeholders, recorder, session.Config{
		TriggerIndex:    cfg.Story.TriggerIndex,
		SessionTTL:      cfg.Story.SessionTTL,
		JanitorInterval: cfg.Story.JanitorInterval,
		ImageTimeout:    cfg.Media.Timeout,
		SampleRate:      cfg.Media.Speech.SampleRate,
	})
	return m, m.Close
}

// ProvideFirebaseVerifier 非 firebase 模式返回 nil
func ProvideFirebaseVerifier(ctx context.Context, cfg *config.Config) (*identity.FirebaseVerifier, error) {
	if !strings.EqualFold(cfg.Identity.Mode, "firebase") {
		return nil, nil
	}
	return identity.NewFirebaseVerifier(ctx, cfg.Identity)
}

// ProvideVerifier 根据身份模式选择令牌校验器
func ProvideVerifier(ctx context.Context, cfg *config.Config, fb *identity.FirebaseVerifier) identity.Verifier {
	if fb != nil {
		logger.Info(ctx, "identity mode: firebase", "project_id", cfg.Identity.Firebase.ProjectID)
		return fb
	}
	return identity.NewJWTVerifier(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer, cfg.Identity.AdminEmails)
}

// ProvideDisplayNameUpdater 只有 firebase 支持修改显示名
func ProvideDisplayNameUpdater(fb *identity.FirebaseVerifier) profile.DisplayNameUpdater {
	if fb == nil {
		return nil
	}
	return fb
}

func ProvideAdminService(cfg *config.Config, repo repository.StoryRecordRepository, cache *redis.Cache, tail admin.RecordTail) *admin.Service {
	return admin.NewService(repo, cache, tail, cfg.Cache.StatsTTL)
}

// ProvideHealthHandler PostgreSQL 为必需依赖，Redis 降级不影响就绪
func ProvideHealthHandler(pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	return handler.NewHealthHandler(
		map[string]handler.HealthChecker{"postgres": pg},
		map[string]handler.HealthChecker{"redis": rc},
	)
}
