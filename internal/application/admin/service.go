// Package admin 提供管理端的统计、归档检索、用户聚合、批量删除与实时订阅。
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/domain/repository"
	"hakawati-story-api/pkg/logger"
)

// OverviewCacheKey 概览统计缓存键
const OverviewCacheKey = "admin:overview"

// StatsCache 概览缓存（Redis read-through）
type StatsCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
}

// RecordTail 记录流的尾部订阅，只投递订阅开始之后的新记录
type RecordTail interface {
	Tail(ctx context.Context, fn func(*entity.StoryRecord) error) error
}

// Service 管理端服务
type Service struct {
	repo     repository.StoryRecordRepository
	cache    StatsCache
	tail     RecordTail
	statsTTL time.Duration
	now      func() time.Time
}

// NewService cache 与 tail 可以为 nil
func NewService(repo repository.StoryRecordRepository, cache StatsCache, tail RecordTail, statsTTL time.Duration) *Service {
	if statsTTL <= 0 {
		statsTTL = 30 * time.Second
	}
	return &Service{repo: repo, cache: cache, tail: tail, statsTTL: statsTTL, now: time.Now}
}

// Window 最近的一窗记录（倒序），可按关键词过滤
func (s *Service) Window(ctx context.Context, query string) ([]*entity.StoryRecord, error) {
	filter := &repository.StoryRecordFilter{Query: strings.TrimSpace(query)}
	page, err := s.repo.Query(ctx, filter, repository.NewPagination(1, repository.DefaultRecordWindow))
	if err != nil {
		return nil, fmt.Errorf("query story records: %w", err)
	}
	return page.Items, nil
}

// Overview 概览统计，缓存 statsTTL
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	load := func() (interface{}, error) {
		records, err := s.Window(ctx, "")
		if err != nil {
			return nil, err
		}
		return BuildOverview(records, s.now()), nil
	}

	if s.cache == nil {
		v, err := load()
		if err != nil {
			return nil, err
		}
		return v.(*Overview), nil
	}

	raw, err := s.cache.GetOrLoadSafe(ctx, OverviewCacheKey, s.statsTTL, load)
	if err != nil {
		return nil, err
	}
	var ov Overview
	if err := json.Unmarshal(raw, &ov); err != nil {
		return nil, fmt.Errorf("decode cached overview: %w", err)
	}
	return &ov, nil
}

// Users 用户聚合
func (s *Service) Users(ctx context.Context) ([]UserSummary, error) {
	records, err := s.Window(ctx, "")
	if err != nil {
		return nil, err
	}
	return AggregateUsers(records), nil
}

// Delete 批量删除；ids 为空时删除当前窗口内全部记录
func (s *Service) Delete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		records, err := s.Window(ctx, "")
		if err != nil {
			return 0, err
		}
		for _, r := range records {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	n, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete story records: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, OverviewCacheKey); err != nil {
			logger.Warn(ctx, "failed to invalidate overview cache", "error", err.Error())
		}
	}
	logger.Info(ctx, "story records deleted", "requested", len(ids), "deleted", n)
	return n, nil
}

// Subscribe 先投递快照（倒序，至多一个窗口），再持续投递新记录，直到 ctx 结束或 fn 返回错误。
// 未启用记录流时只投递快照后返回。
func (s *Service) Subscribe(ctx context.Context, query string, fn func(*entity.StoryRecord) error) error {
	snapshot, err := s.Window(ctx, query)
	if err != nil {
		return err
	}
	for _, r := range snapshot {
		if err := fn(r); err != nil {
			return err
		}
	}
	if s.tail == nil {
		return nil
	}

	q := strings.ToLower(strings.TrimSpace(query))
	return s.tail.Tail(ctx, func(r *entity.StoryRecord) error {
		if !Matches(r, q) {
			return nil
		}
		return fn(r)
	})
}

// Matches 与仓储 Query 相同的匹配规则：孩子名、标题、邮箱的不区分大小写子串
func Matches(r *entity.StoryRecord, lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.ChildName), lowerQuery) ||
		strings.Contains(strings.ToLower(r.StoryTitle), lowerQuery) ||
		strings.Contains(strings.ToLower(r.OwnerEmail), lowerQuery)
}
