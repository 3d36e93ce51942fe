package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/domain/repository"
	apperrors "hakawati-story-api/pkg/errors"
)

// 重复保存时不覆盖完成状态
var recordUpsertColumns = []string{
	"owner_id", "owner_email", "owner_name", "child_name", "story_title",
	"badge", "proverb_text", "proverb_meaning", "age", "gender", "dialect",
	"length", "page_count", "moral_preset_id", "moral_topic", "world_preset_id",
	"world", "sidekick_id", "vocabulary",
}

// StoryRecordRepository 会话记录仓储实现
type StoryRecordRepository struct {
	client *Client
}

// NewStoryRecordRepository 创建会话记录仓储
func NewStoryRecordRepository(client *Client) *StoryRecordRepository {
	return &StoryRecordRepository{client: client}
}

// Save 按 ID 插入或更新记录
func (r *StoryRecordRepository) Save(ctx context.Context, record *entity.StoryRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.StoryRecordRepository.Save")
	defer span.End()

	if record.ID == "" {
		return fmt.Errorf("story record id is required")
	}
	if record.CompletionStatus == "" {
		record.CompletionStatus = entity.CompletionGenerated
	}

	db := getDB(ctx, r.client.db)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(recordUpsertColumns),
	}).Create(record).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save story record: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取记录
func (r *StoryRecordRepository) GetByID(ctx context.Context, id string) (*entity.StoryRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRecordRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var record entity.StoryRecord
	if err := db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get story record: %w", err)
	}
	return &record, nil
}

// Query 按创建时间倒序分页查询
func (r *StoryRecordRepository) Query(ctx context.Context, filter *repository.StoryRecordFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.StoryRecord], error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRecordRepository.Query")
	defer span.End()

	query := applyRecordFilter(getDB(ctx, r.client.db).Model(&entity.StoryRecord{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count story records: %w", err)
	}

	var records []*entity.StoryRecord
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&records).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query story records: %w", err)
	}

	return repository.NewPagedResult(records, total, pagination), nil
}

func applyRecordFilter(query *gorm.DB, filter *repository.StoryRecordFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Status != "" {
		query = query.Where("completion_status = ?", filter.Status)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", filter.Since.UTC())
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(child_name) LIKE ? OR LOWER(story_title) LIKE ? OR LOWER(owner_email) LIKE ?",
			like, like, like,
		)
	}
	return query
}

// ListByOwner 获取某所有者的记录
func (r *StoryRecordRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*entity.StoryRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRecordRepository.ListByOwner")
	defer span.End()

	query := getDB(ctx, r.client.db).Where("owner_id = ?", ownerID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []*entity.StoryRecord
	if err := query.Find(&records).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list story records by owner: %w", err)
	}
	return records, nil
}

// MarkCompleted 标记记录完成；已完成的记录不变。
// 记录尚未落库时返回 ErrStoryNotFound，由消费者重投，完成消息先于保存消息到达时不会丢失。
func (r *StoryRecordRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	ctx, span := tracer.Start(ctx, "postgres.StoryRecordRepository.MarkCompleted")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.StoryRecord{}).
		Where("id = ? AND completion_status <> ?", id, entity.CompletionCompleted).
		Updates(map[string]interface{}{
			"completion_status": entity.CompletionCompleted,
			"completed_at":      at.UTC(),
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to mark story record completed: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := db.Model(&entity.StoryRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check story record: %w", err)
	}
	if n == 0 {
		return apperrors.ErrStoryNotFound.WithDetail(id)
	}
	return nil
}

// DeleteMany 批量删除记录
func (r *StoryRecordRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRecordRepository.DeleteMany")
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}

	db := getDB(ctx, r.client.db)
	result := db.Where("id IN ?", ids).Delete(&entity.StoryRecord{})
	if result.Error != nil {
		span.RecordError(result.Error)
		return 0, fmt.Errorf("failed to delete story records: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// UpdateOwnerName 同步所有者显示名
func (r *StoryRecordRepository) UpdateOwnerName(ctx context.Context, ownerID, name string) error {
	ctx, span := tracer.Start(ctx, "postgres.StoryRecordRepository.UpdateOwnerName")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.StoryRecord{}).
		Where("owner_id = ?", ownerID).
		Update("owner_name", name).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update owner name: %w", err)
	}
	return nil
}
