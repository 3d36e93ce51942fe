package node

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildRulesBlock(t *testing.T) {
	got := BuildRulesBlock([]string{"Use exactly 3 pages.", "  ", "Name the hero Layla."})
	assert.Equal(t, "1. Use exactly 3 pages.\n2. Name the hero Layla.", got)
	assert.Empty(t, BuildRulesBlock(nil))
}

func TestExtractJSONObject(t *testing.T) {
	raw := "Here is your story:\n```json\n{\"title\": \"The Lantern\"}\n```"
	assert.Equal(t, `{"title": "The Lantern"}`, ExtractJSONObject(raw))
	assert.Equal(t, "", ExtractJSONObject("   "))
}

func TestIsStructuredOutputRejected(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unknown parameter", assertErr("400: Unknown parameter: 'response_format'"), true},
		{"schema unsupported", assertErr("model does not support json_schema"), true},
		{"invalid response field", assertErr("Invalid value for response.type"), true},
		{"rate limited", assertErr("429 rate limited"), false},
		{"nil", nil, false},
		{"session cancelled", fmt.Errorf("generate: %w", context.Canceled), false},
		{"session timeout", fmt.Errorf("response_format: %w", context.DeadlineExceeded), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStructuredOutputRejected(tt.err))
		})
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestTruncateByRunes(t *testing.T) {
	assert.Equal(t, "حكا", TruncateByRunes("حكاية", 3))
	assert.Equal(t, "abc", TruncateByRunes("abc", 10))
	assert.Equal(t, "", TruncateByRunes("abc", 0))
}

func TestClipAtSentence(t *testing.T) {
	assert.Equal(t, "Layla found a lantern.", ClipAtSentence("Layla found a lantern. It glowed softly", 30))
	assert.Equal(t, "هل رأيت الفانوس؟", ClipAtSentence("هل رأيت الفانوس؟ نعم رأيته", 20))
	assert.Equal(t, "short tale.", ClipAtSentence("short tale.", 100))
	assert.Equal(t, "no stop he", ClipAtSentence("no stop here at all", 10))
	assert.Equal(t, "", ClipAtSentence("anything", 0))
}
