package admin

import (
	"strings"

	"hakawati-story-api/internal/domain/entity"
)

// 场景分类桶
const (
	WorldAdventure = "adventure"
	WorldFantasy   = "fantasy"
	WorldComedy    = "comedy"
	WorldSpace     = "space"
	WorldOther     = "other"
)

var worldLabels = map[string]string{
	WorldAdventure: "عالم المغامرة",
	WorldFantasy:   "عالم الخيال",
	WorldComedy:    "عالم الضحك",
	WorldSpace:     "عالم الفضاء",
	WorldOther:     "أخرى",
}

// 自由文本场景的关键词，按顺序匹配，先命中者为准
var worldKeywords = []struct {
	bucket   string
	keywords []string
}{
	{WorldAdventure, []string{"adventure"}},
	{WorldFantasy, []string{"fantasy", "magic"}},
	{WorldComedy, []string{"comedy", "funny"}},
	{WorldSpace, []string{"space", "aliens"}},
}

// ClassifyWorld 把记录的场景归入统计桶；未指定场景时 ok 为 false。
// 有预设 ID 时只看预设，关键词只用于自由文本场景。
func ClassifyWorld(r *entity.StoryRecord) (bucket string, ok bool) {
	switch preset := strings.ToLower(strings.TrimSpace(r.WorldPresetID)); preset {
	case WorldAdventure, WorldFantasy, WorldComedy, WorldSpace:
		return preset, true
	case "":
	default:
		return WorldOther, true
	}

	text := strings.ToLower(strings.TrimSpace(r.World))
	if text == "" {
		return "", false
	}
	for _, wk := range worldKeywords {
		for _, kw := range wk.keywords {
			if strings.Contains(text, kw) {
				return wk.bucket, true
			}
		}
	}
	return WorldOther, true
}

// WorldLabel 统计桶的展示名
func WorldLabel(bucket string) string {
	if l, ok := worldLabels[bucket]; ok {
		return l
	}
	return bucket
}

// SidekickLabel 伙伴预设的展示名，未知 ID 原样返回
func SidekickLabel(id string) string {
	if sk, ok := entity.FindSidekick(id); ok {
		return sk.Label
	}
	return id
}
