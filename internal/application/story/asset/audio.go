package asset

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"time"

	"hakawati-story-api/internal/workflow/port"
	"hakawati-story-api/pkg/metrics"
)

// DefaultSampleRate 语音后端输出的固定采样率
const DefaultSampleRate = 24000

// ErrNoSpeechBackend 未配置语音后端
var ErrNoSpeechBackend = errors.New("speech backend not configured")

// Waveform 解码后的单声道浮点波形，样本位于 [-1, 1]
type Waveform struct {
	SampleRate int
	Samples    []float32
}

// Duration 播放时长
func (w Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// DecodePCM16 将有符号 16 位小端 PCM 解码为浮点样本；末尾不足一个样本的字节被丢弃
func DecodePCM16(pcm []byte, sampleRate int) Waveform {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		samples[i] = float32(v) / 32768.0
	}
	return Waveform{SampleRate: sampleRate, Samples: samples}
}

// EncodeFloat32LE 将波形编码为 32 位浮点小端字节流，供客户端直接写入音频缓冲
func EncodeFloat32LE(w Waveform) []byte {
	out := make([]byte, 4*len(w.Samples))
	for i, s := range w.Samples {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(s))
	}
	return out
}

// AudioResolver 每次请求都重新合成，不做缓存
type AudioResolver struct {
	synth      port.SpeechSynthesizer
	sampleRate int
}

// NewAudioResolver 创建音频解析器
func NewAudioResolver(synth port.SpeechSynthesizer, sampleRate int) *AudioResolver {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &AudioResolver{synth: synth, sampleRate: sampleRate}
}

// Resolve 合成并解码 text
func (r *AudioResolver) Resolve(ctx context.Context, text string) (Waveform, error) {
	if r.synth == nil {
		metrics.AssetResolutionTotal.WithLabelValues(string(KindAudio), "error").Inc()
		return Waveform{}, ErrNoSpeechBackend
	}

	start := time.Now()
	pcm, err := r.synth.Synthesize(ctx, text)
	metrics.AssetResolutionDuration.WithLabelValues(string(KindAudio)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AssetResolutionTotal.WithLabelValues(string(KindAudio), "error").Inc()
		return Waveform{}, err
	}
	if len(pcm) < 2 {
		metrics.AssetResolutionTotal.WithLabelValues(string(KindAudio), "error").Inc()
		return Waveform{}, errors.New("speech backend returned no samples")
	}

	metrics.AssetResolutionTotal.WithLabelValues(string(KindAudio), "success").Inc()
	return DecodePCM16(pcm, r.sampleRate), nil
}
