package node

import (
	"strconv"
	"strings"
)

// BuildRulesBlock 将规则渲染为编号列表，空规则被跳过
func BuildRulesBlock(rules []string) string {
	lines := make([]string, 0, len(rules))
	for _, r := range rules {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		lines = append(lines, strconv.Itoa(len(lines)+1)+". "+r)
	}
	return strings.Join(lines, "\n")
}
