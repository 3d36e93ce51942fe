package asset

import (
	"context"
	"errors"
	"sync"

	"hakawati-story-api/pkg/logger"
)

// AudioStatus 旁白播放状态
type AudioStatus string

const (
	AudioIdle    AudioStatus = "idle"
	AudioLoading AudioStatus = "loading"
	AudioPlaying AudioStatus = "playing"
)

// OutputDevice 音频输出设备。Play 阻塞到播放结束或 ctx 被取消。
type OutputDevice interface {
	Play(ctx context.Context, w Waveform) error
}

// Player 会话内唯一的旁白播放器：再次请求即停止（切换语义，不排队）
type Player struct {
	resolver *AudioResolver
	device   OutputDevice

	mu        sync.Mutex
	status    AudioStatus
	pageIndex int
	cancel    context.CancelFunc
	// generation 每次开始或停止播放时递增，用于丢弃过期的异步结果
	generation uint64
	lastErr    error
	done       chan struct{}
}

// NewPlayer 创建播放器
func NewPlayer(resolver *AudioResolver, device OutputDevice) *Player {
	return &Player{resolver: resolver, device: device, status: AudioIdle}
}

// Status 当前状态
func (p *Player) Status() AudioStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Current 返回状态及其所属页码
func (p *Player) Current() (AudioStatus, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.pageIndex
}

// LastError 最近一次合成失败（开始新播放时清空）
func (p *Player) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Toggle 空闲时开始朗读 text，加载或播放中时停止。返回操作后的状态。
func (p *Player) Toggle(ctx context.Context, pageIndex int, text string) AudioStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != AudioIdle {
		p.stopLocked()
		return p.status
	}

	p.generation++
	gen := p.generation
	playCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.status = AudioLoading
	p.pageIndex = pageIndex
	p.lastErr = nil
	p.done = make(chan struct{})

	go p.run(playCtx, gen, pageIndex, text, p.done)
	return p.status
}

// Interrupt 翻页时强制停止当前播放
func (p *Player) Interrupt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != AudioIdle {
		p.stopLocked()
	}
}

// Done 返回当前这一次播放协程的结束信号，从未播放过时为 nil。
// 之后开始的新播放使用新的信号，不影响已取得的这一个。
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Wait 等待当前这一次播放协程退出，主要供测试与关闭流程使用
func (p *Player) Wait() {
	if done := p.Done(); done != nil {
		<-done
	}
}

func (p *Player) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.generation++
	p.status = AudioIdle
}

func (p *Player) run(ctx context.Context, gen uint64, pageIndex int, text string, done chan struct{}) {
	defer close(done)

	wave, err := p.resolver.Resolve(ctx, text)

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return
	}
	if err != nil {
		p.lastErr = &ResolutionError{Kind: KindAudio, PageIndex: pageIndex, Err: err}
		p.stopLocked()
		p.mu.Unlock()
		logger.Warn(ctx, "narration synthesis failed", "page_index", pageIndex, "error", err.Error())
		return
	}
	p.status = AudioPlaying
	p.mu.Unlock()

	err = p.device.Play(ctx, wave)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn(ctx, "narration playback failed", "page_index", pageIndex, "error", err.Error())
	}
	p.stopLocked()
}
