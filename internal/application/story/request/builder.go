// Package request 将用户输入整理为规范化的故事生成请求。
package request

import (
	"strings"

	"hakawati-story-api/internal/domain/entity"
)

// ValidationError 请求参数校验失败
type ValidationError struct {
	Issues []string
}

func (e ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "story request validation failed"
	}
	return "story request validation failed: " + strings.Join(e.Issues, "; ")
}

// RawInput 未经校验的用户输入
type RawInput struct {
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

// Builder 构造 StoryRequest，无任何 I/O
type Builder struct {
	pageCounts map[entity.Length]int
}

// NewBuilder 创建构造器；pageCounts 为空或缺项时使用默认映射
func NewBuilder(pageCounts map[string]int) *Builder {
	counts := make(map[entity.Length]int, len(entity.DefaultPageCounts))
	for k, v := range entity.DefaultPageCounts {
		counts[k] = v
	}
	for k, v := range pageCounts {
		l := entity.Length(strings.ToLower(k))
		if l.Valid() && v > 0 {
			counts[l] = v
		}
	}
	return &Builder{pageCounts: counts}
}

// PageCount 返回篇幅对应的目标页数
func (b *Builder) PageCount(l entity.Length) int {
	return b.pageCounts[l]
}

// Build 校验并规范化输入。
// 同时给出自由文本与预设时，自由文本优先（与表单的后写覆盖语义一致）。
func (b *Builder) Build(raw RawInput) (entity.StoryRequest, error) {
	var issues []string

	req := entity.StoryRequest{
		ChildName: strings.TrimSpace(raw.ChildName),
		Age:       ClampAge(raw.Age),
	}
	if req.ChildName == "" {
		issues = append(issues, "child_name is required")
	}

	req.Gender = entity.Gender(strings.ToLower(strings.TrimSpace(raw.Gender)))
	if !req.Gender.Valid() {
		issues = append(issues, "gender must be boy or girl")
	}

	req.Dialect = entity.DialectVernacular
	if d := strings.TrimSpace(raw.Dialect); d != "" {
		req.Dialect = entity.Dialect(strings.ToLower(d))
		if !req.Dialect.Valid() {
			issues = append(issues, "dialect invalid: "+d)
		}
	}

	req.Length = entity.LengthMedium
	if l := strings.TrimSpace(raw.Length); l != "" {
		req.Length = entity.Length(strings.ToLower(l))
		if !req.Length.Valid() {
			issues = append(issues, "length invalid: "+l)
		}
	}
	req.TargetPageCount = b.pageCounts[req.Length]

	if topic := strings.TrimSpace(raw.MoralTopic); topic != "" {
		req.MoralTopic = topic
	} else if id := strings.TrimSpace(raw.MoralPresetID); id != "" {
		if p, ok := entity.FindMoral(id); ok {
			req.MoralPresetID = p.ID
			req.MoralTopic = p.Topic
		} else {
			issues = append(issues, "moral_preset_id unknown: "+id)
		}
	}

	if id := strings.TrimSpace(raw.SidekickID); id != "" {
		if _, ok := entity.FindSidekick(id); ok {
			req.SidekickID = id
		} else {
			issues = append(issues, "sidekick_id unknown: "+id)
		}
	}

	if world := strings.TrimSpace(raw.World); world != "" {
		req.World = world
	} else if id := strings.TrimSpace(raw.WorldPresetID); id != "" {
		if p, ok := entity.FindWorld(id); ok {
			req.WorldPresetID = p.ID
			req.World = p.Description
		} else {
			issues = append(issues, "world_preset_id unknown: "+id)
		}
	}

	if len(issues) > 0 {
		return entity.StoryRequest{}, ValidationError{Issues: issues}
	}
	return req, nil
}

// ClampAge 缺省为 6，其余收敛到 [3,12]
func ClampAge(age *int) int {
	if age == nil {
		return entity.DefaultAge
	}
	switch {
	case *age < entity.MinAge:
		return entity.MinAge
	case *age > entity.MaxAge:
		return entity.MaxAge
	default:
		return *age
	}
}
