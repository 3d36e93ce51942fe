package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholder_DeterministicPNG(t *testing.T) {
	a, err := Placeholder("space", 1, 64, 48)
	require.NoError(t, err)
	b, err := Placeholder("space", 1, 64, 48)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	img, err := png.Decode(bytes.NewReader(a))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())

	c, err := Placeholder("space", 2, 64, 48)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestPlaceholder_InvalidSize(t *testing.T) {
	_, err := Placeholder("space", 0, 0, 10)
	assert.Error(t, err)
}

func TestPlaceholderRefs(t *testing.T) {
	refs, err := PlaceholderRefs(32, 24)
	require.NoError(t, err)
	require.Len(t, refs, len(Themes()))
	for _, theme := range Themes() {
		require.Len(t, refs[theme], VariantsPerTheme)
		assert.True(t, refs[theme][0].Inline())
		assert.Equal(t, "image/png", refs[theme][0].MIMEType)
	}
}
