package admin

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/domain/repository"
)

type memRepo struct {
	records []*entity.StoryRecord
	deleted []string
}

func (r *memRepo) Save(_ context.Context, rec *entity.StoryRecord) error {
	r.records = append(r.records, rec)
	return nil
}

func (r *memRepo) GetByID(context.Context, string) (*entity.StoryRecord, error) { return nil, nil }

func (r *memRepo) Query(_ context.Context, f *repository.StoryRecordFilter, p repository.Pagination) (*repository.PagedResult[*entity.StoryRecord], error) {
	sorted := append([]*entity.StoryRecord(nil), r.records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	var out []*entity.StoryRecord
	for _, rec := range sorted {
		if f != nil && !Matches(rec, strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, rec)
	}
	total := int64(len(out))
	if len(out) > p.Limit() {
		out = out[:p.Limit()]
	}
	return repository.NewPagedResult(out, total, p), nil
}

func (r *memRepo) ListByOwner(context.Context, string, int) ([]*entity.StoryRecord, error) {
	return nil, nil
}

func (r *memRepo) MarkCompleted(context.Context, string, time.Time) error { return nil }

func (r *memRepo) DeleteMany(_ context.Context, ids []string) (int64, error) {
	r.deleted = append(r.deleted, ids...)
	return int64(len(ids)), nil
}

func (r *memRepo) UpdateOwnerName(context.Context, string, string) error { return nil }

type memCache struct {
	data    map[string][]byte
	loads   int
	deleted []string
}

func (c *memCache) GetOrLoadSafe(_ context.Context, key string, _ time.Duration, loader func() (interface{}, error)) ([]byte, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	c.loads++
	v, err := loader()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	c.data[key] = b
	return b, nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
	}
	c.deleted = append(c.deleted, keys...)
	return nil
}

type chanTail struct {
	ch chan *entity.StoryRecord
}

func (t chanTail) Tail(ctx context.Context, fn func(*entity.StoryRecord) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case r := <-t.ch:
			if err := fn(r); err != nil {
				return err
			}
		}
	}
}

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func rec(id, email, child, world, sidekick string, minutes int) *entity.StoryRecord {
	return &entity.StoryRecord{
		ID:         id,
		OwnerID:    "o-" + email,
		OwnerEmail: email,
		ChildName:  child,
		StoryTitle: child + "'s tale",
		World:      world,
		SidekickID: sidekick,
		CreatedAt:  base.Add(time.Duration(minutes) * time.Minute),
	}
}

func seed() *memRepo {
	return &memRepo{records: []*entity.StoryRecord{
		rec("1", "a@x.com", "Omar", "an adventure through Damascus", "cat", 1),
		rec("2", "a@x.com", "Omar", "a magical land", "cat", 2),
		rec("3", "b@x.com", "Layla", "a journey among the stars and aliens", "bird", 3),
		rec("4", "", "Sami", "under the sea", "", 4),
		rec("5", "b@x.com", "Layla", "", "turtle", 5),
	}}
}

func TestBuildOverview(t *testing.T) {
	repo := seed()
	svc := NewService(repo, nil, nil, 0)

	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, ov.TotalStories)
	assert.Equal(t, 3, ov.UniqueUsers)

	require.Len(t, ov.Worlds, 4)
	keys := make(map[string]Share)
	for _, s := range ov.Worlds {
		keys[s.Key] = s
	}
	assert.Equal(t, 1, keys[WorldAdventure].Count)
	assert.Equal(t, 20, keys[WorldAdventure].Percent)
	assert.Equal(t, 1, keys[WorldFantasy].Count)
	assert.Equal(t, 1, keys[WorldSpace].Count)
	assert.Equal(t, 1, keys[WorldOther].Count)

	require.Len(t, ov.Sidekicks, 3)
	assert.Equal(t, "cat", ov.Sidekicks[0].Key)
	assert.Equal(t, 2, ov.Sidekicks[0].Count)
	assert.Equal(t, 40, ov.Sidekicks[0].Percent)
	assert.Equal(t, "قطة", ov.Sidekicks[0].Label)
}

func TestBuildOverview_Empty(t *testing.T) {
	ov := BuildOverview(nil, base)
	assert.Zero(t, ov.TotalStories)
	assert.Empty(t, ov.Worlds)
}

func TestOverview_CachedAndInvalidatedOnDelete(t *testing.T) {
	repo := seed()
	cache := &memCache{data: map[string][]byte{}}
	svc := NewService(repo, cache, nil, time.Minute)
	ctx := context.Background()

	_, err := svc.Overview(ctx)
	require.NoError(t, err)
	ov, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.loads)
	assert.Equal(t, 5, ov.TotalStories)

	n, err := svc.Delete(ctx, []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []string{OverviewCacheKey}, cache.deleted)

	_, err = svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.loads)
}

func TestDelete_EmptyIDsDeletesWindow(t *testing.T) {
	repo := seed()
	svc := NewService(repo, nil, nil, 0)

	n, err := svc.Delete(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, []string{"5", "4", "3", "2", "1"}, repo.deleted)
}

func TestUsers(t *testing.T) {
	svc := NewService(seed(), nil, nil, 0)

	users, err := svc.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 3)

	assert.Equal(t, "b@x.com", users[0].Email)
	assert.Equal(t, 2, users[0].Count)
	assert.Equal(t, base.Add(5*time.Minute), users[0].LastActive)
	assert.Equal(t, AnonymousUser, users[1].Email)
	assert.Equal(t, "a@x.com", users[2].Email)
}

func TestWindow_Search(t *testing.T) {
	svc := NewService(seed(), nil, nil, 0)

	got, err := svc.Window(context.Background(), "LAYLA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "5", got[0].ID)
}

func TestSubscribe_SnapshotThenTail(t *testing.T) {
	tail := chanTail{ch: make(chan *entity.StoryRecord, 2)}
	svc := NewService(seed(), nil, tail, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tail.ch <- rec("6", "c@x.com", "Huda", "", "", 6)
	tail.ch <- rec("7", "d@x.com", "Layla", "", "", 7)

	var got []string
	stop := errors.New("stop")
	err := svc.Subscribe(ctx, "layla", func(r *entity.StoryRecord) error {
		got = append(got, r.ID)
		if r.ID == "7" {
			return stop
		}
		return nil
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []string{"5", "3", "7"}, got)
}

func TestSubscribe_WithoutTailReturnsAfterSnapshot(t *testing.T) {
	svc := NewService(seed(), nil, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []string
	result := make(chan error, 1)
	go func() {
		result <- svc.Subscribe(ctx, "", func(r *entity.StoryRecord) error {
			got = append(got, r.ID)
			return nil
		})
	}()

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscribe kept waiting after the snapshot")
	}
	assert.NotEmpty(t, got)
	assert.Equal(t, "5", got[0])
}
