package node

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject 从模型输出中截取第一个 '{' 到最后一个 '}' 之间的 JSON 对象。
// 模型可能在 JSON 前后夹杂说明文字或 markdown 代码块。截取失败时返回去除空白后的原文。
func ExtractJSONObject(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return raw
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	candidate := raw[start : end+1]

	dec := json.NewDecoder(strings.NewReader(candidate))
	tok, err := dec.Token()
	if err != nil {
		return raw
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return raw
	}
	return candidate
}
