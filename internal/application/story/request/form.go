package request

import (
	"strings"

	"hakawati-story-api/internal/domain/entity"
)

// Form 有状态的表单，实现预设选择的切换与互斥语义
type Form struct {
	input RawInput
}

// NewForm 创建空表单
func NewForm() *Form {
	return &Form{}
}

func (f *Form) SetChildName(name string) { f.input.ChildName = name }
func (f *Form) SetGender(g string)       { f.input.Gender = g }
func (f *Form) SetDialect(d string)      { f.input.Dialect = d }
func (f *Form) SetLength(l string)       { f.input.Length = l }

func (f *Form) SetAge(age int) {
	clamped := ClampAge(&age)
	f.input.Age = &clamped
}

// SelectMoral 选择预设寓意：再次选择同一预设则取消；选择预设会清空自定义寓意
func (f *Form) SelectMoral(id string) {
	if f.input.MoralPresetID == id {
		f.input.MoralPresetID = ""
		return
	}
	f.input.MoralPresetID = id
	f.input.MoralTopic = ""
}

// SetCustomMoral 输入自定义寓意，非空时清空预设
func (f *Form) SetCustomMoral(text string) {
	f.input.MoralTopic = text
	if text != "" {
		f.input.MoralPresetID = ""
	}
}

// ToggleSidekick 切换伙伴预设
func (f *Form) ToggleSidekick(id string) {
	if f.input.SidekickID == id {
		f.input.SidekickID = ""
		return
	}
	f.input.SidekickID = id
}

// ToggleWorld 切换场景预设，选择预设会清空自定义场景
func (f *Form) ToggleWorld(id string) {
	if f.input.WorldPresetID == id {
		f.input.WorldPresetID = ""
		return
	}
	f.input.WorldPresetID = id
	f.input.World = ""
}

// SetWorldText 输入自定义场景，非空时清空预设
func (f *Form) SetWorldText(text string) {
	f.input.World = text
	if text != "" {
		f.input.WorldPresetID = ""
	}
}

// CanSubmit 孩子名字非空时才允许提交
func (f *Form) CanSubmit() bool {
	return strings.TrimSpace(f.input.ChildName) != ""
}

// Input 返回当前输入的副本
func (f *Form) Input() RawInput {
	in := f.input
	if f.input.Age != nil {
		age := *f.input.Age
		in.Age = &age
	}
	return in
}

// Build 使用 b 构造请求
func (f *Form) Build(b *Builder) (entity.StoryRequest, error) {
	return b.Build(f.Input())
}
