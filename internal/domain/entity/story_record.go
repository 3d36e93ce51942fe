package entity

import (
	"time"

	"github.com/lib/pq"
)

// CompletionStatus 会话完成状态
type CompletionStatus string

const (
	// CompletionGenerated 故事已生成，阅读尚未完成
	CompletionGenerated CompletionStatus = "generated"
	// CompletionCompleted 读者已到达奖励页
	CompletionCompleted CompletionStatus = "completed"
)

// StoryRecord 交给持久化存储的会话记录
type StoryRecord struct {
	ID               string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OwnerID          string           `json:"owner_id" gorm:"index;not null"`
	OwnerEmail       string           `json:"owner_email,omitempty"`
	OwnerName        string           `json:"owner_name,omitempty"`
	ChildName        string           `json:"child_name" gorm:"not null"`
	StoryTitle       string           `json:"story_title" gorm:"not null"`
	CompletionStatus CompletionStatus `json:"completion_status" gorm:"type:varchar(16);not null"`
	Badge            string           `json:"badge"`
	ProverbText      string           `json:"proverb_text"`
	ProverbMeaning   string           `json:"proverb_explanation"`

	Age           int            `json:"age"`
	Gender        Gender         `json:"gender" gorm:"type:varchar(8)"`
	Dialect       Dialect        `json:"dialect" gorm:"type:varchar(16)"`
	Length        Length         `json:"length" gorm:"type:varchar(8)"`
	PageCount     int            `json:"page_count"`
	MoralPresetID string         `json:"moral_preset_id,omitempty"`
	MoralTopic    string         `json:"moral_topic,omitempty"`
	WorldPresetID string         `json:"world_preset_id,omitempty"`
	World         string         `json:"world,omitempty"`
	SidekickID    string         `json:"sidekick_id,omitempty"`
	Vocabulary    pq.StringArray `json:"vocabulary" gorm:"type:text[]"`

	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (StoryRecord) TableName() string {
	return "story_records"
}

// IsCompleted 是否已读完
func (r *StoryRecord) IsCompleted() bool {
	return r.CompletionStatus == CompletionCompleted
}
