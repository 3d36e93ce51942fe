package narrative

import (
	"encoding/json"
	"strings"

	wfnode "hakawati-story-api/internal/workflow/node"
)

// 后端返回的文档结构
type wireDocument struct {
	Title               *string       `json:"title"`
	Pages               []wirePage    `json:"pages"`
	Dictionary          []wireEntry   `json:"dictionary"`
	InteractionQuestion *wireQuestion `json:"interactionQuestion"`
	MoralBadgeName      *string       `json:"moralBadgeName"`
	Proverb             *wireProverb  `json:"proverb"`
}

type wirePage struct {
	Text               string `json:"text"`
	IllustrationPrompt string `json:"illustrationPrompt"`
}

type wireEntry struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
}

type wireQuestion struct {
	Text    string       `json:"text"`
	Options []wireOption `json:"options"`
}

type wireOption struct {
	Text      string `json:"text"`
	IsCorrect *bool  `json:"isCorrect"`
	Feedback  string `json:"feedback"`
}

type wireProverb struct {
	Text        string `json:"text"`
	Explanation string `json:"explanation"`
}

// parseDocument 从模型输出中截取 JSON 并解码；解码失败视为契约错误
func parseDocument(rawText string) (*wireDocument, string, error) {
	jsonText := wfnode.ExtractJSONObject(rawText)
	if strings.TrimSpace(jsonText) == "" {
		return nil, jsonText, &ContractError{Issues: []string{"empty model output"}}
	}

	var doc wireDocument
	if err := json.Unmarshal([]byte(jsonText), &doc); err != nil {
		return nil, jsonText, &ContractError{Issues: []string{"malformed json: " + err.Error()}}
	}
	return &doc, jsonText, nil
}
