package chain

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wfmodel "hakawati-story-api/internal/workflow/model"
)

type scriptedModel struct {
	mu       sync.Mutex
	replies  []reply
	optCount []int
	inputs   [][]*schema.Message
}

type reply struct {
	content string
	err     error
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optCount = append(m.optCount, len(opts))
	m.inputs = append(m.inputs, input)
	r := m.replies[0]
	m.replies = m.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	return schema.AssistantMessage(r.content, nil), nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

type staticFactory struct {
	m *scriptedModel
}

func (f staticFactory) Get(context.Context, string) (model.BaseChatModel, error) { return f.m, nil }
func (f staticFactory) Configured(string) error { return nil }

func storyInput() *wfmodel.StoryGenerateInput {
	return &wfmodel.StoryGenerateInput{
		Provider:          "openai",
		ChildName:         "Layla",
		Age:               6,
		PageCount:         3,
		Rules:             []string{"Write in Modern Standard Arabic."},
		IllustrationStyle: "warm digital oil painting",
	}
}

func TestStoryChain_Invoke(t *testing.T) {
	m := &scriptedModel{replies: []reply{{content: `{"title":"x"}`}}}
	c := NewStoryChain(staticFactory{m: m})

	out, err := c.Invoke(context.Background(), storyInput())
	require.NoError(t, err)
	assert.Equal(t, `{"title":"x"}`, out.Content)

	require.Len(t, m.inputs, 1)
	require.Len(t, m.inputs[0], 2)
	assert.Contains(t, m.inputs[0][1].Content, "1. Write in Modern Standard Arabic.")
	assert.Contains(t, m.inputs[0][1].Content, `"illustrationPrompt"`)
}

func TestStoryChain_FallsBackToPromptOnly(t *testing.T) {
	m := &scriptedModel{replies: []reply{
		{err: errors.New("400 invalid_request_error: response_format json_schema is not supported")},
		{content: `{"title":"x"}`},
	}}
	c := NewStoryChain(staticFactory{m: m})

	_, err := c.Invoke(context.Background(), storyInput())
	require.NoError(t, err)
	require.Len(t, m.optCount, 2)
	assert.Greater(t, m.optCount[0], m.optCount[1])
}

func TestStoryChain_BackendErrorNotRetried(t *testing.T) {
	m := &scriptedModel{replies: []reply{{err: errors.New("503 upstream overloaded")}}}
	c := NewStoryChain(staticFactory{m: m})

	_, err := c.Invoke(context.Background(), storyInput())
	require.Error(t, err)
	assert.Len(t, m.optCount, 1)
}

func TestStoryChain_RejectsBadInput(t *testing.T) {
	c := NewStoryChain(staticFactory{m: &scriptedModel{}})

	_, err := c.Invoke(context.Background(), nil)
	assert.Error(t, err)

	in := storyInput()
	in.PageCount = 0
	_, err = c.Invoke(context.Background(), in)
	assert.Error(t, err)
}
