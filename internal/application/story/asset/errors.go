// Package asset 负责按页惰性解析插图与按需合成旁白音频。
//
// 资源错误不会越过本包边界：插图失败降级为占位图，音频失败回到 idle 并留下提示。
package asset

import "fmt"

// Kind 资源类型
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// ResolutionError 单个资源解析失败，非致命
type ResolutionError struct {
	Kind      Kind
	PageIndex int
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s resolution failed for page %d: %v", e.Kind, e.PageIndex, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
