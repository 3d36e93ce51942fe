package asset

import (
	"context"
	"sync"
)

// ClientDevice 把波形交给远端客户端播放，直到客户端报告播放结束
type ClientDevice struct {
	mu      sync.Mutex
	current *Waveform
	ended   chan struct{}
}

// NewClientDevice 创建客户端输出设备
func NewClientDevice() *ClientDevice {
	return &ClientDevice{}
}

// Play 实现 OutputDevice
func (d *ClientDevice) Play(ctx context.Context, w Waveform) error {
	ended := make(chan struct{})
	d.mu.Lock()
	d.current = &w
	d.ended = ended
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if d.ended == ended {
			d.current = nil
			d.ended = nil
		}
		d.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ended:
		return nil
	}
}

// Current 返回正在播放的波形
func (d *ClientDevice) Current() (Waveform, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return Waveform{}, false
	}
	return *d.current, true
}

// Ended 客户端报告播放完成；没有正在播放的内容时返回 false
func (d *ClientDevice) Ended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ended == nil {
		return false
	}
	close(d.ended)
	d.ended = nil
	d.current = nil
	return true
}
