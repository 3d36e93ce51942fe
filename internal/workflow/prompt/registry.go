// Package prompt 管理嵌入的故事生成提示词模板
package prompt

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	// PromptStoryV1 按孩子姓名、年龄、页数与故事规则生成整本故事
	PromptStoryV1 PromptID = "story_v1"
)

type promptFiles struct {
	system string
	user   string
	// vars 模板引用的全部变量，渲染前逐一校验
	vars []string
}

var prompts = map[PromptID]promptFiles{
	PromptStoryV1: {
		system: "templates/story_v1.system.txt",
		user:   "templates/story_v1.user.txt",
		vars:   []string{"child_name", "age", "page_count", "rules_block", "illustration_style", "output_contract"},
	},
}

// Registry 按 id 缓存已解析的模板，可被多个会话并发使用
type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

// Format 校验变量齐全后渲染 system + user 两条消息；缺变量时报出全部缺失项，而不是 FString 的首个错误
func (r *Registry) Format(ctx context.Context, id PromptID, vars map[string]any) ([]*schema.Message, error) {
	tpl, err := r.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	if missing := missingVars(prompts[id].vars, vars); len(missing) > 0 {
		return nil, fmt.Errorf("prompt %s missing vars: %s", id, strings.Join(missing, ", "))
	}
	return tpl.Format(ctx, vars)
}

// ChatTemplate 返回 FString 格式的 system + user 模板，结果按 id 缓存
func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	files, ok := prompts[id]
	if !ok {
		return nil, fmt.Errorf("unknown prompt id: %s", id)
	}
	system, err := readEmbeddedText(files.system)
	if err != nil {
		return nil, err
	}
	user, err := readEmbeddedText(files.user)
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

func missingVars(required []string, vars map[string]any) []string {
	var missing []string
	for _, name := range required {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
