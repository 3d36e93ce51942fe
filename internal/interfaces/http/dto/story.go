package dto

import (
	"strings"

	"hakawati-story-api/internal/application/story/playback"
	"hakawati-story-api/internal/application/story/request"
	"hakawati-story-api/internal/domain/entity"
)

// CreateSessionRequest 开始新故事
type CreateSessionRequest struct {
	ChildName     string `json:"child_name"`
	Gender        string `json:"gender"`
	Age           *int   `json:"age,omitempty"`
	Dialect       string `json:"dialect,omitempty"`
	Length        string `json:"length,omitempty"`
	MoralPresetID string `json:"moral_preset_id,omitempty"`
	MoralTopic    string `json:"moral_topic,omitempty"`
	SidekickID    string `json:"sidekick_id,omitempty"`
	WorldPresetID string `json:"world_preset_id,omitempty"`
	World         string `json:"world,omitempty"`
}

// ToRawInput 转为请求构造器输入
func (r *CreateSessionRequest) ToRawInput() request.RawInput {
	return request.RawInput{
		ChildName:     r.ChildName,
		Gender:        r.Gender,
		Age:           r.Age,
		Dialect:       r.Dialect,
		Length:        r.Length,
		MoralPresetID: r.MoralPresetID,
		MoralTopic:    r.MoralTopic,
		SidekickID:    r.SidekickID,
		WorldPresetID: r.WorldPresetID,
		World:         r.World,
	}
}

// EventRequest 播放事件
type EventRequest struct {
	Type   string `json:"type" binding:"required"`
	Option *int   `json:"option,omitempty"`
}

// ToEvent 转为状态机事件；未知类型返回 false
func (r *EventRequest) ToEvent() (playback.Event, bool) {
	switch playback.EventType(strings.ToLower(strings.TrimSpace(r.Type))) {
	case playback.EventAdvance:
		return playback.Advance(), true
	case playback.EventRetreat:
		return playback.Retreat(), true
	case playback.EventAcknowledge:
		return playback.Acknowledge(), true
	case playback.EventSelectOption:
		if r.Option == nil {
			return playback.Event{}, false
		}
		return playback.SelectOption(*r.Option), true
	}
	return playback.Event{}, false
}

// LengthOption 篇幅选项
type LengthOption struct {
	ID        string `json:"id"`
	PageCount int    `json:"page_count"`
}

// PresetsResponse 表单预设
type PresetsResponse struct {
	Morals     []entity.MoralPreset    `json:"morals"`
	Sidekicks  []entity.SidekickPreset `json:"sidekicks"`
	Worlds     []entity.WorldPreset    `json:"worlds"`
	Lengths    []LengthOption          `json:"lengths"`
	AgeMin     int                     `json:"age_min"`
	AgeMax     int                     `json:"age_max"`
	DefaultAge int                     `json:"default_age"`
}

// ImageResponse 插图解析结果
type ImageResponse struct {
	PageIndex int    `json:"page_index"`
	Status    string `json:"status"`
	URL       string `json:"url,omitempty"`
	Inline    bool   `json:"inline"`
	MIMEType  string `json:"mime_type,omitempty"`
	Degraded  bool   `json:"degraded"`
}
