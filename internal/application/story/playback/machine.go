// Package playback 实现故事阅读的有限状态机。
//
// 状态是一个值，Transition 是 (State, Event) -> State 的纯函数；
// 非法事件返回错误且不改变状态。重新开始不属于状态迁移，由会话层丢弃整个会话完成。
package playback

import (
	"errors"
	"fmt"
)

// Mode 阅读模式
type Mode string

const (
	ModeReading     Mode = "reading"
	ModeInteracting Mode = "interacting"
	ModeRewarding   Mode = "rewarding"
)

// EventType 事件类型
type EventType string

const (
	EventAdvance      EventType = "advance"
	EventRetreat      EventType = "retreat"
	EventSelectOption EventType = "select"
	EventAcknowledge  EventType = "acknowledge"
)

// NoSelection 表示尚未选择选项
const NoSelection = -1

// DefaultTriggerIndex 互动问题默认出现在第二页之后
const DefaultTriggerIndex = 1

// ErrInvalidTransition 当前状态不接受该事件
var ErrInvalidTransition = errors.New("invalid playback transition")

// TransitionError 描述被拒绝的事件
type TransitionError struct {
	Mode   Mode
	Event  EventType
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s in %s (%s)", ErrInvalidTransition, e.Event, e.Mode, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Event 输入事件
type Event struct {
	Type   EventType `json:"type"`
	Option int       `json:"option"`
}

func Advance() Event { return Event{Type: EventAdvance} }
func Retreat() Event { return Event{Type: EventRetreat} }
func SelectOption(i int) Event { return Event{Type: EventSelectOption, Option: i} }
func Acknowledge() Event { return Event{Type: EventAcknowledge} }

// Layout 故事结构，会话开始时确定，之后不变
type Layout struct {
	PageCount     int `json:"page_count"`
	TriggerIndex  int `json:"trigger_index"`
	OptionCount   int `json:"option_count"`
	CorrectOption int `json:"correct_option"`
}

// State 播放状态
type State struct {
	Layout

	Mode      Mode `json:"mode"`
	PageIndex int  `json:"page_index"`
	// Selected 互动中已选但未确认的选项；NoSelection 表示未选择
	Selected            int  `json:"selected"`
	InteractionResolved bool `json:"interaction_resolved"`
	RewardUnlocked      bool `json:"reward_unlocked"`
}

// Initial 创建初始状态 Reading(0)。
// 触发页超出末页时收敛到末页，保证奖励总是以答对问题为前提。
func Initial(layout Layout) State {
	if layout.PageCount < 1 {
		layout.PageCount = 1
	}
	if layout.TriggerIndex < 0 {
		layout.TriggerIndex = 0
	}
	if last := layout.PageCount - 1; layout.TriggerIndex > last {
		layout.TriggerIndex = last
	}
	return State{
		Layout:    layout,
		Mode:      ModeReading,
		PageIndex: 0,
		Selected:  NoSelection,
	}
}

// LastIndex 末页下标
func (s State) LastIndex() int {
	return s.PageCount - 1
}

// HasSelection 是否有待确认的选项
func (s State) HasSelection() bool {
	return s.Selected != NoSelection
}

// SelectionCorrect 待确认的选项是否正确
func (s State) SelectionCorrect() bool {
	return s.HasSelection() && s.Selected == s.CorrectOption
}

// Terminal 是否处于终态
func (s State) Terminal() bool {
	return s.Mode == ModeRewarding
}

// Transition 计算下一个状态。出错时返回原状态。
func Transition(s State, ev Event) (State, error) {
	switch s.Mode {
	case ModeReading:
		return reading(s, ev)
	case ModeInteracting:
		return interacting(s, ev)
	case ModeRewarding:
		return s, reject(s, ev, "story finished")
	default:
		return s, reject(s, ev, "unknown mode")
	}
}

func reading(s State, ev Event) (State, error) {
	switch ev.Type {
	case EventAdvance:
		next := s
		switch {
		case s.PageIndex == s.TriggerIndex && !s.InteractionResolved:
			next.Mode = ModeInteracting
			next.Selected = NoSelection
		case s.PageIndex < s.LastIndex():
			next.PageIndex++
		default:
			next = reward(next)
		}
		return next, nil
	case EventRetreat:
		if s.PageIndex == 0 {
			return s, reject(s, ev, "already at first page")
		}
		next := s
		next.PageIndex--
		return next, nil
	default:
		return s, reject(s, ev, "no pending question")
	}
}

func interacting(s State, ev Event) (State, error) {
	switch ev.Type {
	case EventSelectOption:
		if s.HasSelection() {
			return s, reject(s, ev, "acknowledge feedback first")
		}
		if ev.Option < 0 || ev.Option >= s.OptionCount {
			return s, reject(s, ev, fmt.Sprintf("option %d out of range", ev.Option))
		}
		next := s
		next.Selected = ev.Option
		return next, nil
	case EventAcknowledge:
		if !s.HasSelection() {
			return s, reject(s, ev, "no option selected")
		}
		next := s
		if !s.SelectionCorrect() {
			next.Selected = NoSelection
			return next, nil
		}
		next.Selected = NoSelection
		next.InteractionResolved = true
		next.Mode = ModeReading
		if s.PageIndex < s.LastIndex() {
			next.PageIndex = s.PageIndex + 1
			return next, nil
		}
		return reward(next), nil
	default:
		return s, reject(s, ev, "answer the question first")
	}
}

func reward(s State) State {
	s.Mode = ModeRewarding
	s.PageIndex = s.LastIndex()
	s.RewardUnlocked = s.InteractionResolved
	return s
}

func reject(s State, ev Event, reason string) error {
	return &TransitionError{Mode: s.Mode, Event: ev.Type, Reason: reason}
}
