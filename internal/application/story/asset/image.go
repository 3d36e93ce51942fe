package asset

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"hakawati-story-api/internal/workflow/port"
	"hakawati-story-api/pkg/logger"
	"hakawati-story-api/pkg/metrics"
)

// ImageStatus 插图解析状态
type ImageStatus string

const (
	ImagePending     ImageStatus = "pending"
	ImageReady       ImageStatus = "ready"
	ImagePlaceholder ImageStatus = "placeholder"
)

// ImageResult 插图解析结果。Err 非空表示已降级为占位图。
type ImageResult struct {
	Ref    port.ImageRef
	Status ImageStatus
	Err    error
}

// Degraded 是否为降级结果
func (r ImageResult) Degraded() bool {
	return r.Status == ImagePlaceholder
}

// ImageResolver 单个会话的插图解析器。
// 每个页码至多一次后端请求；结果缓存后不再变化。
type ImageResolver struct {
	gen          port.ImageGenerator
	placeholders PlaceholderTable
	tag          Tag
	timeout      time.Duration

	mu    sync.RWMutex
	cache map[int]ImageResult
	group singleflight.Group
}

// NewImageResolver 创建插图解析器；gen 为 nil 时所有页面直接使用占位图
func NewImageResolver(gen port.ImageGenerator, placeholders PlaceholderTable, tag Tag, timeout time.Duration) *ImageResolver {
	return &ImageResolver{
		gen:          gen,
		placeholders: placeholders,
		tag:          tag,
		timeout:      timeout,
		cache:        make(map[int]ImageResult),
	}
}

// Cached 返回已缓存结果
func (r *ImageResolver) Cached(pageIndex int) (ImageResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.cache[pageIndex]
	return res, ok
}

// Resolve 解析第 pageIndex 页插图。
// 后端调用不随 ctx 取消：调用方离开后解析继续完成并写入缓存，此时返回 pending。
func (r *ImageResolver) Resolve(ctx context.Context, pageIndex int, prompt string) ImageResult {
	if res, ok := r.Cached(pageIndex); ok {
		metrics.AssetResolutionTotal.WithLabelValues(string(KindImage), "cached").Inc()
		return res
	}

	bg := context.WithoutCancel(ctx)
	ch := r.group.DoChan(strconv.Itoa(pageIndex), func() (interface{}, error) {
		if res, ok := r.Cached(pageIndex); ok {
			return res, nil
		}
		res := r.fetch(bg, pageIndex, prompt)
		r.mu.Lock()
		r.cache[pageIndex] = res
		r.mu.Unlock()
		return res, nil
	})

	select {
	case out := <-ch:
		return out.Val.(ImageResult)
	case <-ctx.Done():
		return ImageResult{Status: ImagePending}
	}
}

func (r *ImageResolver) fetch(ctx context.Context, pageIndex int, prompt string) ImageResult {
	if r.gen == nil {
		metrics.AssetResolutionTotal.WithLabelValues(string(KindImage), "placeholder").Inc()
		return ImageResult{Ref: r.placeholders.Pick(r.tag, pageIndex), Status: ImagePlaceholder}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	ref, err := r.gen.GenerateImage(ctx, prompt)
	metrics.AssetResolutionDuration.WithLabelValues(string(KindImage)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AssetResolutionTotal.WithLabelValues(string(KindImage), "placeholder").Inc()
		logger.Warn(ctx, "image generation failed, using placeholder",
			"page_index", pageIndex,
			"tag", string(r.tag),
			"error", err.Error(),
		)
		return ImageResult{
			Ref:    r.placeholders.Pick(r.tag, pageIndex),
			Status: ImagePlaceholder,
			Err:    &ResolutionError{Kind: KindImage, PageIndex: pageIndex, Err: err},
		}
	}

	metrics.AssetResolutionTotal.WithLabelValues(string(KindImage), "success").Inc()
	return ImageResult{Ref: ref, Status: ImageReady}
}
