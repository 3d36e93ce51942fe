package entity

// MoralPreset 预设寓意
type MoralPreset struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Topic string `json:"topic"`
}

// SidekickPreset 预设伙伴
type SidekickPreset struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// WorldPreset 预设场景
type WorldPreset struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var moralPresets = []MoralPreset{
	{ID: "kindness", Label: "اللطف", Topic: "kindness and compassion"},
	{ID: "honesty", Label: "الصدق", Topic: "honesty and truth"},
	{ID: "saving", Label: "التوفير", Topic: "saving resources"},
	{ID: "friendship", Label: "الصداقة", Topic: "friendship and loyalty"},
	{ID: "optimism", Label: "التفاؤل", Topic: "hope and optimism"},
}

var sidekickPresets = []SidekickPreset{
	{ID: "cat", Label: "قطة", Description: "a curious little cat"},
	{ID: "bird", Label: "عصفور", Description: "a cheerful talking bird"},
	{ID: "turtle", Label: "سلحفاة", Description: "a slow and wise old turtle"},
}

var worldPresets = []WorldPreset{
	{ID: "adventure", Label: "مغامرة", Description: "an adventure through the old alleys and orchards of Damascus"},
	{ID: "fantasy", Label: "عالم سحري", Description: "a magical land of flying carpets and glowing lanterns"},
	{ID: "comedy", Label: "حكاية مضحكة", Description: "a funny day full of silly surprises in the neighbourhood"},
	{ID: "space", Label: "الفضاء", Description: "a journey among the stars and friendly planets"},
}

// MoralPresets 返回预设寓意列表副本
func MoralPresets() []MoralPreset {
	return append([]MoralPreset(nil), moralPresets...)
}

// SidekickPresets 返回预设伙伴列表副本
func SidekickPresets() []SidekickPreset {
	return append([]SidekickPreset(nil), sidekickPresets...)
}

// WorldPresets 返回预设场景列表副本
func WorldPresets() []WorldPreset {
	return append([]WorldPreset(nil), worldPresets...)
}

// FindMoral 按 ID 查找预设寓意
func FindMoral(id string) (MoralPreset, bool) {
	for _, p := range moralPresets {
		if p.ID == id {
			return p, true
		}
	}
	return MoralPreset{}, false
}

// FindSidekick 按 ID 查找预设伙伴
func FindSidekick(id string) (SidekickPreset, bool) {
	for _, p := range sidekickPresets {
		if p.ID == id {
			return p, true
		}
	}
	return SidekickPreset{}, false
}

// FindWorld 按 ID 查找预设场景
func FindWorld(id string) (WorldPreset, bool) {
	for _, p := range worldPresets {
		if p.ID == id {
			return p, true
		}
	}
	return WorldPreset{}, false
}
