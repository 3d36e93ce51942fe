// Package session 编排一次完整的阅读会话：生成、播放状态、插图与旁白、记录。
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"hakawati-story-api/internal/application/story/asset"
	"hakawati-story-api/internal/application/story/dictionary"
	"hakawati-story-api/internal/application/story/playback"
	"hakawati-story-api/internal/domain/entity"
)

var (
	// ErrNotFound 会话不存在或已过期
	ErrNotFound = errors.New("story session not found")
	// ErrPageOutOfRange 页码越界
	ErrPageOutOfRange = errors.New("page index out of range")
)

// Session 单个阅读会话。所有变更都在 mu 下串行执行。
type Session struct {
	ID        string
	RecordID  string
	Owner     entity.Owner
	Request   entity.StoryRequest
	CreatedAt time.Time

	doc    *entity.StoryDocument
	images *asset.ImageResolver
	player *asset.Player
	device *asset.ClientDevice

	mu         sync.Mutex
	state      playback.State
	completed  bool
	lastActive time.Time
}

// Document 生成的故事文档（只读）
func (s *Session) Document() *entity.StoryDocument { return s.doc }

// State 返回播放状态快照
func (s *Session) State() playback.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) touch(now time.Time) {
	s.lastActive = now
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// View 会话视图
type View struct {
	SessionID           string        `json:"session_id"`
	RecordID            string        `json:"record_id"`
	Title               string        `json:"title"`
	PageCount           int           `json:"page_count"`
	Mode                playback.Mode `json:"mode"`
	PageIndex           int           `json:"page_index"`
	InteractionResolved bool          `json:"interaction_resolved"`
	RewardUnlocked      bool          `json:"reward_unlocked"`
	Page                PageView      `json:"page"`
	Question            *QuestionView `json:"question,omitempty"`
	Reward              *RewardView   `json:"reward,omitempty"`
	Audio               AudioView     `json:"audio"`
}

// PageView 当前页
type PageView struct {
	Index    int                  `json:"index"`
	Text     string               `json:"text"`
	Segments []dictionary.Segment `json:"segments"`
	Image    ImageView            `json:"image"`
}

// ImageView 插图状态；pending 时 URL 为空，Inline 表示图片字节需通过图片接口获取
type ImageView struct {
	Status   asset.ImageStatus `json:"status"`
	URL      string            `json:"url,omitempty"`
	Inline   bool              `json:"inline,omitempty"`
	Degraded bool              `json:"degraded"`
}

// QuestionView 互动问题；选择后才暴露反馈
type QuestionView struct {
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	Selected int      `json:"selected"`
	Correct  *bool    `json:"correct,omitempty"`
	Feedback string   `json:"feedback,omitempty"`
}

// RewardView 结尾奖励
type RewardView struct {
	Unlocked bool           `json:"unlocked"`
	Badge    string         `json:"badge,omitempty"`
	Proverb  entity.Proverb `json:"proverb"`
}

// AudioView 旁白状态
type AudioView struct {
	Status    asset.AudioStatus `json:"status"`
	PageIndex int               `json:"page_index"`
	Notice    string            `json:"notice,omitempty"`
}

// viewLocked 调用方须持有 s.mu
func (s *Session) viewLocked() View {
	st := s.state
	v := View{
		SessionID:           s.ID,
		RecordID:            s.RecordID,
		Title:               s.doc.Title(),
		PageCount:           s.doc.PageCount(),
		Mode:                st.Mode,
		PageIndex:           st.PageIndex,
		InteractionResolved: st.InteractionResolved,
		RewardUnlocked:      st.RewardUnlocked,
		Page:                s.pageViewLocked(st.PageIndex),
		Audio:               s.audioView(),
	}

	switch st.Mode {
	case playback.ModeInteracting:
		q := s.doc.Question()
		qv := &QuestionView{Text: q.Text, Selected: st.Selected}
		for _, o := range q.Options {
			qv.Options = append(qv.Options, o.Text)
		}
		if st.HasSelection() {
			correct := st.SelectionCorrect()
			qv.Correct = &correct
			qv.Feedback = q.Options[st.Selected].Feedback
		}
		v.Question = qv
	case playback.ModeRewarding:
		rv := &RewardView{Unlocked: st.RewardUnlocked}
		if st.RewardUnlocked {
			rv.Badge = s.doc.Badge()
			rv.Proverb = s.doc.Proverb()
		}
		v.Reward = rv
	}
	return v
}

func (s *Session) pageViewLocked(idx int) PageView {
	page, _ := s.doc.Page(idx)
	pv := PageView{
		Index:    idx,
		Text:     page.Text,
		Segments: dictionary.Annotate(page.Text, s.doc.Dictionary()),
		Image:    ImageView{Status: asset.ImagePending},
	}
	if res, ok := s.images.Cached(idx); ok {
		pv.Image = imageView(res)
	}
	return pv
}

func (s *Session) audioView() AudioView {
	status, idx := s.player.Current()
	av := AudioView{Status: status, PageIndex: idx}
	if err := s.player.LastError(); err != nil && status == asset.AudioIdle {
		av.Notice = audioNotice(err)
	}
	return av
}

func imageView(res asset.ImageResult) ImageView {
	iv := ImageView{Status: res.Status, Degraded: res.Degraded()}
	if res.Status == asset.ImagePending {
		return iv
	}
	iv.URL = res.Ref.URL
	iv.Inline = res.Ref.Inline()
	return iv
}

func audioNotice(err error) string {
	if errors.Is(err, asset.ErrNoSpeechBackend) {
		return "narration is not available right now"
	}
	return "narration could not be loaded, please try again"
}

// startImage 进入页面时触发该页插图解析，不等待结果
func (s *Session) startImage(ctx context.Context, idx int) {
	page, ok := s.doc.Page(idx)
	if !ok {
		return
	}
	if _, cached := s.images.Cached(idx); cached {
		return
	}
	bg := context.WithoutCancel(ctx)
	go s.images.Resolve(bg, idx, page.IllustrationPrompt)
}
