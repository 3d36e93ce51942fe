package node

import (
	"strings"
	"unicode/utf8"
)

// TruncateByRunes 按字符数截断，不会切断多字节字符
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// ClipAtSentence 把朗读文本限制在 maxRunes 以内，并尽量停在最后一个句末标点处，
// 旁白不会在半句话中断；截断范围内没有句末标点时退回按字符截断
func ClipAtSentence(s string, maxRunes int) string {
	clipped := TruncateByRunes(s, maxRunes)
	if len(clipped) == len(s) {
		return s
	}
	cut := strings.LastIndexFunc(clipped, isSentenceEnd)
	if cut <= 0 {
		return clipped
	}
	_, size := utf8.DecodeRuneInString(clipped[cut:])
	return clipped[:cut+size]
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '\n', '。', '！', '？', '؟', '۔':
		return true
	}
	return false
}
