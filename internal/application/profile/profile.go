// Package profile 汇总读者自己的故事、徽章与谚语收藏。
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/domain/repository"
	"hakawati-story-api/pkg/logger"
)

// ErrDisplayNameUnsupported 当前身份模式不支持修改显示名
var ErrDisplayNameUnsupported = errors.New("display name update is not supported by the identity provider")

// ErrEmptyDisplayName 显示名为空
var ErrEmptyDisplayName = errors.New("display name must not be empty")

// DefaultDisplayName 既无显示名也无邮箱时的称呼
const DefaultDisplayName = "المغامر"

// DisplayNameUpdater 身份提供方的显示名更新
type DisplayNameUpdater interface {
	UpdateDisplayName(ctx context.Context, uid, name string) error
}

// Collection 收藏：去重后的徽章与谚语
type Collection struct {
	DisplayName string           `json:"display_name"`
	StoryCount  int              `json:"story_count"`
	Badges      []string         `json:"badges"`
	Proverbs    []entity.Proverb `json:"proverbs"`
}

// Service 个人主页服务
type Service struct {
	repo     repository.StoryRecordRepository
	identity DisplayNameUpdater
	limit    int
}

// NewService identity 为 nil 时不支持修改显示名
func NewService(repo repository.StoryRecordRepository, identity DisplayNameUpdater) *Service {
	return &Service{repo: repo, identity: identity, limit: 500}
}

// Stories 读者自己的记录（倒序）
func (s *Service) Stories(ctx context.Context, owner entity.Owner) ([]*entity.StoryRecord, error) {
	records, err := s.repo.ListByOwner(ctx, owner.ID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("list owner records: %w", err)
	}
	return records, nil
}

// Collection 徽章与谚语收藏
func (s *Service) Collection(ctx context.Context, owner entity.Owner) (*Collection, error) {
	records, err := s.Stories(ctx, owner)
	if err != nil {
		return nil, err
	}
	c := BuildCollection(records)
	c.DisplayName = DisplayName(owner)
	return c, nil
}

// BuildCollection 徽章缺失时回退到寓意预设；谚语按文本去重，保留首次出现
func BuildCollection(records []*entity.StoryRecord) *Collection {
	c := &Collection{
		StoryCount: len(records),
		Badges:     []string{},
		Proverbs:   []entity.Proverb{},
	}
	seenBadge := make(map[string]struct{})
	seenProverb := make(map[string]struct{})

	for _, r := range records {
		badge := r.Badge
		if badge == "" {
			badge = r.MoralPresetID
		}
		if badge != "" {
			if _, ok := seenBadge[badge]; !ok {
				seenBadge[badge] = struct{}{}
				c.Badges = append(c.Badges, badge)
			}
		}

		if r.ProverbText != "" {
			if _, ok := seenProverb[r.ProverbText]; !ok {
				seenProverb[r.ProverbText] = struct{}{}
				c.Proverbs = append(c.Proverbs, entity.Proverb{Text: r.ProverbText, Explanation: r.ProverbMeaning})
			}
		}
	}
	return c
}

// DisplayName 显示名 > 邮箱前缀 > 默认称呼
func DisplayName(owner entity.Owner) string {
	if n := strings.TrimSpace(owner.DisplayName); n != "" {
		return n
	}
	if owner.Email != "" {
		if i := strings.Index(owner.Email, "@"); i > 0 {
			return owner.Email[:i]
		}
		return owner.Email
	}
	return DefaultDisplayName
}

// UpdateDisplayName 透传到身份提供方，并同步到已有记录
func (s *Service) UpdateDisplayName(ctx context.Context, owner entity.Owner, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyDisplayName
	}
	if s.identity == nil {
		return ErrDisplayNameUnsupported
	}
	if err := s.identity.UpdateDisplayName(ctx, owner.ID, name); err != nil {
		return err
	}
	if err := s.repo.UpdateOwnerName(ctx, owner.ID, name); err != nil {
		logger.Warn(ctx, "failed to sync display name to records", "error", err.Error())
	}
	return nil
}
