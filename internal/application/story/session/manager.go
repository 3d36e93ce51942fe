package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"hakawati-story-api/internal/application/story/asset"
	"hakawati-story-api/internal/application/story/narrative"
	"hakawati-story-api/internal/application/story/playback"
	"hakawati-story-api/internal/application/story/request"
	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/workflow/port"
	"hakawati-story-api/pkg/logger"
	"hakawati-story-api/pkg/metrics"
)

// Config 会话参数
type Config struct {
	TriggerIndex    int
	SessionTTL      time.Duration
	JanitorInterval time.Duration
	ImageTimeout    time.Duration
	SampleRate      int
}

// Manager 管理进程内的阅读会话
type Manager struct {
	builder      *request.Builder
	generator    narrative.NarrativeGenerator
	images       port.ImageGenerator
	speech       port.SpeechSynthesizer
	placeholders asset.PlaceholderTable
	recorder     *Recorder
	cfg          Config
	now          func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager 创建会话管理器；images/speech 可以为 nil
func NewManager(
	builder *request.Builder,
	generator narrative.NarrativeGenerator,
	images port.ImageGenerator,
	speech port.SpeechSynthesizer,
	placeholders asset.PlaceholderTable,
	recorder *Recorder,
	cfg Config,
) *Manager {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = time.Minute
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = asset.DefaultSampleRate
	}
	return &Manager{
		builder:      builder,
		generator:    generator,
		images:       images,
		speech:       speech,
		placeholders: placeholders,
		recorder:     recorder,
		cfg:          cfg,
		now:          time.Now,
		sessions:     make(map[string]*Session),
	}
}

// Start 校验请求并生成故事。生成失败时不创建会话。
func (m *Manager) Start(ctx context.Context, owner entity.Owner, raw request.RawInput) (View, error) {
	req, err := m.builder.Build(raw)
	if err != nil {
		return View{}, err
	}

	doc, err := m.generator.Generate(ctx, req)
	if err != nil {
		return View{}, err
	}

	now := m.now()
	q := doc.Question()
	device := asset.NewClientDevice()
	s := &Session{
		ID:        uuid.NewString(),
		RecordID:  uuid.NewString(),
		Owner:     owner,
		Request:   req,
		CreatedAt: now,
		doc:       doc,
		images:    asset.NewImageResolver(m.images, m.placeholders, asset.Classify(req), m.cfg.ImageTimeout),
		player:    asset.NewPlayer(asset.NewAudioResolver(m.speech, m.cfg.SampleRate), device),
		device:    device,
		state: playback.Initial(playback.Layout{
			PageCount:     doc.PageCount(),
			TriggerIndex:  m.cfg.TriggerIndex,
			OptionCount:   len(q.Options),
			CorrectOption: q.CorrectIndex(),
		}),
		lastActive: now,
	}

	record := ToRecord(doc, req, owner, now)
	record.ID = s.RecordID
	m.recorder.Persist(ctx, record)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()

	ctx = logger.WithContext(ctx, logger.SessionIDKey, s.ID)
	logger.Info(ctx, "story session started",
		"record_id", s.RecordID,
		"pages", doc.PageCount(),
		"trigger_index", s.state.TriggerIndex,
	)

	s.startImage(ctx, 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(), nil
}

// Get 按 ID 查找会话；不属于 ownerID 的会话视为不存在
func (m *Manager) Get(ownerID, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.Owner.ID != ownerID {
		return nil, ErrNotFound
	}
	return s, nil
}

// View 当前视图
func (m *Manager) View(ownerID, id string) (View, error) {
	s, err := m.Get(ownerID, id)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(m.now())
	return s.viewLocked(), nil
}

// Dispatch 投递一个播放事件。非法事件返回 playback.TransitionError，状态不变。
func (m *Manager) Dispatch(ctx context.Context, ownerID, id string, ev playback.Event) (View, error) {
	s, err := m.Get(ownerID, id)
	if err != nil {
		return View{}, err
	}
	ctx = logger.WithContext(ctx, logger.SessionIDKey, s.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(m.now())

	prev := s.state
	next, err := playback.Transition(prev, ev)
	if err != nil {
		metrics.PlaybackEventsTotal.WithLabelValues(string(ev.Type), "rejected").Inc()
		return s.viewLocked(), err
	}
	metrics.PlaybackEventsTotal.WithLabelValues(string(ev.Type), "accepted").Inc()
	s.state = next

	pageChanged := next.PageIndex != prev.PageIndex
	if pageChanged || (next.Terminal() && !prev.Terminal()) {
		s.player.Interrupt()
	}
	if pageChanged {
		s.startImage(ctx, next.PageIndex)
	}

	if next.Terminal() && !s.completed {
		s.completed = true
		if next.RewardUnlocked {
			metrics.RewardsUnlockedTotal.Inc()
		}
		m.recorder.MarkCompleted(ctx, s.RecordID, m.now())
		logger.Info(ctx, "story session completed", "reward_unlocked", next.RewardUnlocked)
	}
	return s.viewLocked(), nil
}

// Image 解析第 idx 页插图。调用方取消时返回 pending，解析在后台继续。
func (m *Manager) Image(ctx context.Context, ownerID, id string, idx int) (asset.ImageResult, error) {
	s, err := m.Get(ownerID, id)
	if err != nil {
		return asset.ImageResult{}, err
	}
	page, ok := s.doc.Page(idx)
	if !ok {
		return asset.ImageResult{}, ErrPageOutOfRange
	}

	s.mu.Lock()
	s.touch(m.now())
	s.mu.Unlock()

	return s.images.Resolve(ctx, idx, page.IllustrationPrompt), nil
}

// ToggleAudio 朗读当前页；正在加载或播放时停止
func (m *Manager) ToggleAudio(ctx context.Context, ownerID, id string) (AudioView, error) {
	s, err := m.Get(ownerID, id)
	if err != nil {
		return AudioView{}, err
	}
	ctx = logger.WithContext(ctx, logger.SessionIDKey, s.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(m.now())

	idx := s.state.PageIndex
	page, _ := s.doc.Page(idx)
	s.player.Toggle(ctx, idx, page.Text)
	return s.audioView(), nil
}

// Audio 返回正在播放的波形
func (m *Manager) Audio(ownerID, id string) (asset.Waveform, bool, error) {
	s, err := m.Get(ownerID, id)
	if err != nil {
		return asset.Waveform{}, false, err
	}
	w, ok := s.device.Current()
	return w, ok, nil
}

// AudioEnded 客户端报告当前旁白播放完毕
func (m *Manager) AudioEnded(ownerID, id string) (AudioView, error) {
	s, err := m.Get(ownerID, id)
	if err != nil {
		return AudioView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(m.now())

	// 持有会话锁，期间不会开始新的播放；只等待被结束的这一次
	done := s.player.Done()
	if s.device.Ended() && done != nil {
		<-done
	}
	return s.audioView(), nil
}

// Reset 丢弃会话（用户退出去开始新故事）
func (m *Manager) Reset(ownerID, id string) error {
	s, err := m.Get(ownerID, id)
	if err != nil {
		return err
	}
	m.remove(s)
	return nil
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	_, ok := m.sessions[s.ID]
	delete(m.sessions, s.ID)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.player.Interrupt()
	metrics.ActiveSessions.Dec()
}

// Run 周期性清理空闲会话，直到 ctx 结束
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.evictIdle(); n > 0 {
				logger.Info(ctx, "evicted idle story sessions", "count", n)
			}
		}
	}
}

func (m *Manager) evictIdle() int {
	cutoff := m.now().Add(-m.cfg.SessionTTL)

	m.mu.RLock()
	var stale []*Session
	for _, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range stale {
		m.remove(s)
	}
	return len(stale)
}

// Close 停止所有旁白并清空会话
func (m *Manager) Close() {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	for _, s := range all {
		m.remove(s)
	}
}
