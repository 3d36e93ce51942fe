// Package dictionary 为页面正文标注魔法词典词条。
package dictionary

import (
	"strings"
	"unicode"

	"hakawati-story-api/internal/domain/entity"
)

// Segment 标注结果片段。Glossed 为 true 时 Definition 仅供点按展示，不内联渲染。
type Segment struct {
	Text       string `json:"text"`
	Glossed    bool   `json:"glossed"`
	Word       string `json:"word,omitempty"`
	Definition string `json:"definition,omitempty"`
}

// Annotate 按词典顺序逐条切分文本：先登记的词条优先，已标注片段不再切分。
// 匹配不区分大小写且只匹配整词。
func Annotate(text string, entries []entity.DictionaryEntry) []Segment {
	segments := []Segment{{Text: text}}
	if text == "" || len(entries) == 0 {
		return segments
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		word := strings.TrimSpace(e.Word)
		if word == "" {
			continue
		}
		key := strings.ToLower(word)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		next := make([]Segment, 0, len(segments))
		for _, seg := range segments {
			if seg.Glossed {
				next = append(next, seg)
				continue
			}
			next = append(next, split(seg.Text, word, e.Definition)...)
		}
		segments = next
	}
	return segments
}

// split 将一个普通片段按 word 的整词出现位置切开
func split(text, word, definition string) []Segment {
	runes := []rune(text)
	target := []rune(word)
	n := len(target)

	var out []Segment
	last := 0
	for i := 0; i+n <= len(runes); i++ {
		if !boundaryBefore(runes, i) || !boundaryAfter(runes, i+n) {
			continue
		}
		if !strings.EqualFold(string(runes[i:i+n]), word) {
			continue
		}
		if i > last {
			out = append(out, Segment{Text: string(runes[last:i])})
		}
		out = append(out, Segment{
			Text:       string(runes[i : i+n]),
			Glossed:    true,
			Word:       word,
			Definition: definition,
		})
		last = i + n
		i += n - 1
	}
	if last == 0 {
		return []Segment{{Text: text}}
	}
	if last < len(runes) {
		out = append(out, Segment{Text: string(runes[last:])})
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || r == '_'
}

func boundaryBefore(runes []rune, i int) bool {
	return i == 0 || !isWordRune(runes[i-1])
}

func boundaryAfter(runes []rune, j int) bool {
	return j == len(runes) || !isWordRune(runes[j])
}

// PlainText 将片段还原为原文
func PlainText(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}
