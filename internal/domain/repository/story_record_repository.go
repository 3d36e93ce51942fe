package repository

import (
	"context"
	"time"

	"hakawati-story-api/internal/domain/entity"
)

// DefaultRecordWindow 管理端快照的默认条数
const DefaultRecordWindow = 100

// StoryRecordFilter 会话记录过滤条件
type StoryRecordFilter struct {
	OwnerID string
	// Query 对孩子名、标题、所有者邮箱做不区分大小写的子串匹配
	Query  string
	Status entity.CompletionStatus
	Since  *time.Time
}

// StoryRecordRepository 会话记录仓储接口
type StoryRecordRepository interface {
	// Save 保存记录（按 ID 幂等）
	Save(ctx context.Context, record *entity.StoryRecord) error

	// GetByID 根据 ID 获取记录，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.StoryRecord, error)

	// Query 按创建时间倒序分页查询
	Query(ctx context.Context, filter *StoryRecordFilter, pagination Pagination) (*PagedResult[*entity.StoryRecord], error)

	// ListByOwner 获取某所有者的全部记录（倒序）
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*entity.StoryRecord, error)

	// MarkCompleted 标记记录完成，已完成的记录不变；记录不存在时返回 ErrStoryNotFound
	MarkCompleted(ctx context.Context, id string, at time.Time) error

	// DeleteMany 批量删除，返回删除条数
	DeleteMany(ctx context.Context, ids []string) (int64, error)

	// UpdateOwnerName 同步所有者显示名
	UpdateOwnerName(ctx context.Context, ownerID, name string) error
}
