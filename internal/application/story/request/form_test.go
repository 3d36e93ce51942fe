package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForm_MoralExclusivity(t *testing.T) {
	f := NewForm()

	f.SelectMoral("kindness")
	assert.Equal(t, "kindness", f.Input().MoralPresetID)

	f.SetCustomMoral("being brave at the dentist")
	assert.Empty(t, f.Input().MoralPresetID)
	assert.Equal(t, "being brave at the dentist", f.Input().MoralTopic)

	f.SelectMoral("honesty")
	assert.Equal(t, "honesty", f.Input().MoralPresetID)
	assert.Empty(t, f.Input().MoralTopic)

	// 清空自定义文本不会恢复或清除预设
	f.SetCustomMoral("")
	assert.Equal(t, "honesty", f.Input().MoralPresetID)
}

func TestForm_ToggleIsIdempotent(t *testing.T) {
	f := NewForm()

	f.ToggleSidekick("cat")
	assert.Equal(t, "cat", f.Input().SidekickID)
	f.ToggleSidekick("cat")
	assert.Empty(t, f.Input().SidekickID)

	f.ToggleSidekick("cat")
	f.ToggleSidekick("bird")
	assert.Equal(t, "bird", f.Input().SidekickID)

	f.SelectMoral("saving")
	f.SelectMoral("saving")
	assert.Empty(t, f.Input().MoralPresetID)

	f.ToggleWorld("space")
	f.SetWorldText("grandma's kitchen")
	assert.Empty(t, f.Input().WorldPresetID)
	f.ToggleWorld("fantasy")
	assert.Empty(t, f.Input().World)
}

func TestForm_SubmitRequiresName(t *testing.T) {
	f := NewForm()
	f.SetGender("boy")
	assert.False(t, f.CanSubmit())

	f.SetChildName("   ")
	assert.False(t, f.CanSubmit())

	f.SetChildName("Karim")
	f.SetAge(40)
	assert.True(t, f.CanSubmit())

	req, err := f.Build(NewBuilder(nil))
	require.NoError(t, err)
	assert.Equal(t, 12, req.Age)
}
