package asset

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/workflow/port"
)

type fakeImageGen struct {
	calls   atomic.Int32
	failOn  map[string]bool
	release chan struct{}
}

func (f *fakeImageGen) GenerateImage(ctx context.Context, prompt string) (port.ImageRef, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.failOn[prompt] {
		return port.ImageRef{}, errors.New("backend unavailable")
	}
	return port.ImageRef{URL: "https://img.example/" + prompt}, nil
}

func testTable() PlaceholderTable {
	return PlaceholderTable{
		TagDefault: {{URL: "p0"}, {URL: "p1"}, {URL: "p2"}},
		TagSpace:   {{URL: "s0"}, {URL: "s1"}},
	}
}

func TestImageResolver_SecondCallIsCached(t *testing.T) {
	gen := &fakeImageGen{}
	r := NewImageResolver(gen, testTable(), TagDefault, time.Second)

	first := r.Resolve(context.Background(), 0, "orchard")
	second := r.Resolve(context.Background(), 0, "orchard")

	assert.Equal(t, ImageReady, first.Status)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestImageResolver_ConcurrentCallsShareOneRequest(t *testing.T) {
	gen := &fakeImageGen{release: make(chan struct{})}
	r := NewImageResolver(gen, testTable(), TagDefault, time.Second)

	var wg sync.WaitGroup
	results := make([]ImageResult, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Resolve(context.Background(), 1, "souk")
		}(i)
	}
	require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(gen.release)
	wg.Wait()

	assert.Equal(t, int32(1), gen.calls.Load())
	for _, res := range results {
		assert.Equal(t, "https://img.example/souk", res.Ref.URL)
	}
}

func TestImageResolver_FailureIsolatedToOnePage(t *testing.T) {
	gen := &fakeImageGen{failOn: map[string]bool{"page-2": true}}
	r := NewImageResolver(gen, testTable(), TagDefault, time.Second)

	results := make([]ImageResult, 4)
	for i := range results {
		results[i] = r.Resolve(context.Background(), i, "page-"+string(rune('0'+i)))
	}

	for i, res := range results {
		if i == 2 {
			continue
		}
		assert.Equal(t, ImageReady, res.Status, "page %d", i)
		assert.NoError(t, res.Err)
	}

	degraded := results[2]
	assert.True(t, degraded.Degraded())
	assert.Equal(t, "p2", degraded.Ref.URL)
	var rerr *ResolutionError
	require.ErrorAs(t, degraded.Err, &rerr)
	assert.Equal(t, KindImage, rerr.Kind)
	assert.Equal(t, 2, rerr.PageIndex)

	// 重新渲染得到同一张占位图，不再请求后端
	again := r.Resolve(context.Background(), 2, "page-2")
	assert.Equal(t, degraded.Ref, again.Ref)
	assert.Equal(t, int32(4), gen.calls.Load())
}

func TestImageResolver_CallerCancelDoesNotAbortResolution(t *testing.T) {
	gen := &fakeImageGen{release: make(chan struct{})}
	r := NewImageResolver(gen, testTable(), TagDefault, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan ImageResult)
	go func() { done <- r.Resolve(ctx, 0, "fountain") }()

	require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.Equal(t, ImagePending, (<-done).Status)

	close(gen.release)
	require.Eventually(t, func() bool {
		res, ok := r.Cached(0)
		return ok && res.Status == ImageReady
	}, time.Second, time.Millisecond)
}

func TestImageResolver_NoBackendUsesPlaceholder(t *testing.T) {
	r := NewImageResolver(nil, testTable(), TagSpace, 0)

	res := r.Resolve(context.Background(), 3, "stars")
	assert.Equal(t, ImagePlaceholder, res.Status)
	assert.Equal(t, "s1", res.Ref.URL)
	assert.NoError(t, res.Err)
}

func TestPlaceholderTable_PickIsDeterministic(t *testing.T) {
	table := testTable()
	for i := 0; i < 9; i++ {
		assert.Equal(t, table.Pick(TagDefault, i), table.Pick(TagDefault, i))
	}
	assert.Equal(t, "p0", table.Pick(TagDefault, 3).URL)
	assert.Equal(t, "p1", table.Pick(TagComedy, 4).URL, "missing tag falls back to default rotation")
}

func TestClassify(t *testing.T) {
	assert.Equal(t, TagSpace, Classify(entity.StoryRequest{WorldPresetID: "space"}))
	assert.Equal(t, TagFantasy, Classify(entity.StoryRequest{WorldPresetID: "fantasy"}))
	assert.Equal(t, TagDefault, Classify(entity.StoryRequest{World: "a space station made of candy"}))
}

func TestURLTable_AlwaysHasDefault(t *testing.T) {
	table := URLTable(map[string][]string{"space": {"https://cdn.example/space.png"}})
	assert.Len(t, table[TagDefault], len(DefaultPlaceholderURLs))
	assert.Equal(t, "https://cdn.example/space.png", table.Pick(TagSpace, 5).URL)
}
