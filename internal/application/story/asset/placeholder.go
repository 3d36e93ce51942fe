package asset

import (
	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/workflow/port"
)

// Tag 占位图主题
type Tag string

const (
	TagAdventure Tag = "adventure"
	TagFantasy   Tag = "fantasy"
	TagComedy    Tag = "comedy"
	TagSpace     Tag = "space"
	TagDefault   Tag = "default"
)

// Tags 全部主题
var Tags = []Tag{TagAdventure, TagFantasy, TagComedy, TagSpace, TagDefault}

// Classify 由请求中的场景预设确定占位图主题；自由文本场景一律归为默认主题
func Classify(req entity.StoryRequest) Tag {
	switch req.WorldPresetID {
	case "adventure":
		return TagAdventure
	case "fantasy":
		return TagFantasy
	case "comedy":
		return TagComedy
	case "space":
		return TagSpace
	default:
		return TagDefault
	}
}

// DefaultPlaceholderURLs 未配置渲染器时使用的固定占位图
var DefaultPlaceholderURLs = []string{
	"https://images.unsplash.com/photo-1518709268805-4e9042af9f23?q=80&w=1000&auto=format&fit=crop",
	"https://images.unsplash.com/photo-1507525428034-b723cf961d3e?q=80&w=1000&auto=format&fit=crop",
	"https://images.unsplash.com/photo-1478131143081-80f7f84ca84d?q=80&w=1000&auto=format&fit=crop",
	"https://images.unsplash.com/photo-1519681393784-d120267933ba?q=80&w=1000&auto=format&fit=crop",
}

// PlaceholderTable 主题到固定轮换列表的映射
type PlaceholderTable map[Tag][]port.ImageRef

// URLTable 由 URL 列表构造占位表，缺失主题回落到默认列表
func URLTable(byTag map[string][]string) PlaceholderTable {
	refs := make(map[string][]port.ImageRef, len(byTag))
	for tag, urls := range byTag {
		for _, u := range urls {
			refs[tag] = append(refs[tag], port.ImageRef{URL: u})
		}
	}
	return NewPlaceholderTable(refs)
}

// NewPlaceholderTable 构造占位表；没有默认主题时补上 DefaultPlaceholderURLs
func NewPlaceholderTable(byTag map[string][]port.ImageRef) PlaceholderTable {
	table := PlaceholderTable{}
	for tag, refs := range byTag {
		if len(refs) > 0 {
			table[Tag(tag)] = append([]port.ImageRef(nil), refs...)
		}
	}
	if len(table[TagDefault]) == 0 {
		refs := make([]port.ImageRef, 0, len(DefaultPlaceholderURLs))
		for _, u := range DefaultPlaceholderURLs {
			refs = append(refs, port.ImageRef{URL: u})
		}
		table[TagDefault] = refs
	}
	return table
}

// Pick 选择第 pageIndex 页的占位图：同一页始终得到同一张图
func (t PlaceholderTable) Pick(tag Tag, pageIndex int) port.ImageRef {
	rotation := t[tag]
	if len(rotation) == 0 {
		rotation = t[TagDefault]
	}
	if len(rotation) == 0 {
		return port.ImageRef{}
	}
	if pageIndex < 0 {
		pageIndex = -pageIndex
	}
	return rotation[pageIndex%len(rotation)]
}
