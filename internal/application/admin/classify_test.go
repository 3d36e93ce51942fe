package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hakawati-story-api/internal/domain/entity"
)

func TestClassifyWorld(t *testing.T) {
	cases := []struct {
		preset, world string
		want          string
		ok            bool
	}{
		{"", "", "", false},
		{"space", "a journey among the stars", WorldSpace, true},
		{"", "A Funny day", WorldComedy, true},
		{"", "a land of magic carpets", WorldFantasy, true},
		{"", "grandma's kitchen", WorldOther, true},
		// 预设优先于文本中的关键词
		{"adventure", "a funny trip to space", WorldAdventure, true},
		{"comedy", "", WorldComedy, true},
		{"underwater", "a magic reef", WorldOther, true},
	}
	for _, c := range cases {
		got, ok := ClassifyWorld(&entity.StoryRecord{WorldPresetID: c.preset, World: c.world})
		assert.Equal(t, c.ok, ok, c.world)
		assert.Equal(t, c.want, got, c.world)
	}
}

func TestSidekickLabel(t *testing.T) {
	assert.Equal(t, "سلحفاة", SidekickLabel("turtle"))
	assert.Equal(t, "dragon", SidekickLabel("dragon"))
}
