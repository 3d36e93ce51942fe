// Package entity 定义领域实体
package entity

// Gender 主角性别
type Gender string

const (
	GenderBoy  Gender = "boy"
	GenderGirl Gender = "girl"
)

// Valid 判断性别取值是否合法
func (g Gender) Valid() bool {
	return g == GenderBoy || g == GenderGirl
}

// Dialect 叙事语体
type Dialect string

const (
	// DialectVernacular 口语方言（大马士革叙利亚方言）
	DialectVernacular Dialect = "vernacular"
	// DialectStandard 现代标准阿拉伯语
	DialectStandard Dialect = "standard"
)

// Valid 判断语体取值是否合法
func (d Dialect) Valid() bool {
	return d == DialectVernacular || d == DialectStandard
}

// Length 故事篇幅
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Valid 判断篇幅取值是否合法
func (l Length) Valid() bool {
	return l == LengthShort || l == LengthMedium || l == LengthLong
}

// DefaultPageCounts 篇幅到目标页数的默认映射
var DefaultPageCounts = map[Length]int{
	LengthShort:  3,
	LengthMedium: 4,
	LengthLong:   6,
}

const (
	MinAge     = 3
	MaxAge     = 12
	DefaultAge = 6
)

// StoryRequest 一次故事生成意图，构造后不可修改（按值传递）
type StoryRequest struct {
	ChildName string  `json:"child_name"`
	Gender    Gender  `json:"gender"`
	Age       int     `json:"age"`
	Dialect   Dialect `json:"dialect"`
	Length    Length  `json:"length"`

	// MoralPresetID 与 MoralTopic 至多其一来自用户输入；
	// 选择预设时 MoralTopic 为预设对应的主题描述。两者皆空表示由系统选择寓意。
	MoralPresetID string `json:"moral_preset_id,omitempty"`
	MoralTopic    string `json:"moral_topic,omitempty"`

	// SidekickID 可选伙伴预设
	SidekickID string `json:"sidekick_id,omitempty"`

	// WorldPresetID 与 World 同理：World 为最终用于指令的场景描述
	WorldPresetID string `json:"world_preset_id,omitempty"`
	World         string `json:"world,omitempty"`

	// TargetPageCount 由 Length 推导
	TargetPageCount int `json:"target_page_count"`
}

// HasMoral 是否指定了寓意
func (r StoryRequest) HasMoral() bool {
	return r.MoralTopic != ""
}

// Sidekick 返回伙伴预设，未选择时 ok 为 false
func (r StoryRequest) Sidekick() (SidekickPreset, bool) {
	return FindSidekick(r.SidekickID)
}
