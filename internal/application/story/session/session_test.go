package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakawati-story-api/internal/application/story/asset"
	"hakawati-story-api/internal/application/story/playback"
	"hakawati-story-api/internal/application/story/request"
	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/domain/repository"
)

type fakeGenerator struct {
	calls int
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, req entity.StoryRequest) (*entity.StoryDocument, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return testDocument(req.TargetPageCount), nil
}

func testDocument(pages int) *entity.StoryDocument {
	ps := make([]entity.Page, pages)
	for i := range ps {
		ps[i] = entity.Page{Text: "Omar saw a lantern.", IllustrationPrompt: "a lantern"}
	}
	return entity.NewStoryDocument(
		"Omar and the Lantern",
		ps,
		[]entity.DictionaryEntry{{Word: "lantern", Definition: "a lamp you carry"}},
		entity.InteractiveQuestion{
			Text: "What should Omar do?",
			Options: []entity.InteractiveOption{
				{Text: "Hide it", IsCorrect: false, Feedback: "Try again"},
				{Text: "Share it", IsCorrect: true, Feedback: "Well done"},
			},
		},
		"Light Sharer",
		entity.Proverb{Text: "A shared light never dims.", Explanation: "Sharing grows."},
	)
}

type fakePublisher struct {
	mu        sync.Mutex
	saved     []*entity.StoryRecord
	completed []string
	err       error
}

func (p *fakePublisher) PublishRecordSaved(_ context.Context, r *entity.StoryRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, r)
	return p.err
}

func (p *fakePublisher) PublishRecordCompleted(_ context.Context, id string, _ time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, id)
	return p.err
}

func (p *fakePublisher) savedRecords() []*entity.StoryRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*entity.StoryRecord(nil), p.saved...)
}

func (p *fakePublisher) completedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.completed...)
}

// stalledPublisher 模拟卡住的 Redis：完成消息一直阻塞到 release 关闭
type stalledPublisher struct {
	fakePublisher
	release chan struct{}
}

func (p *stalledPublisher) PublishRecordCompleted(ctx context.Context, id string, at time.Time) error {
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.fakePublisher.PublishRecordCompleted(ctx, id, at)
}

// orderedRepo 记录直接写库的调用顺序
type orderedRepo struct {
	calls []string
}

func (r *orderedRepo) Save(_ context.Context, rec *entity.StoryRecord) error {
	r.calls = append(r.calls, "save:"+rec.ID)
	return nil
}
func (r *orderedRepo) GetByID(context.Context, string) (*entity.StoryRecord, error) {
	return nil, nil
}
func (r *orderedRepo) Query(context.Context, *repository.StoryRecordFilter, repository.Pagination) (*repository.PagedResult[*entity.StoryRecord], error) {
	return nil, errors.New("unused")
}
func (r *orderedRepo) ListByOwner(context.Context, string, int) ([]*entity.StoryRecord, error) {
	return nil, nil
}
func (r *orderedRepo) MarkCompleted(_ context.Context, id string, _ time.Time) error {
	r.calls = append(r.calls, "complete:"+id)
	return nil
}
func (r *orderedRepo) DeleteMany(context.Context, []string) (int64, error) { return 0, nil }
func (r *orderedRepo) UpdateOwnerName(context.Context, string, string) error {
	return nil
}

var owner = entity.Owner{ID: "u-1", Email: "parent@example.com", DisplayName: "Parent"}

func validInput() request.RawInput {
	return request.RawInput{ChildName: "Omar", Gender: "boy", Length: "short"}
}

func newTestManager(gen *fakeGenerator, pub RecordPublisher) *Manager {
	return newManagerWithRecorder(gen, NewRecorder(pub, nil))
}

func newManagerWithRecorder(gen *fakeGenerator, rec *Recorder) *Manager {
	return NewManager(
		request.NewBuilder(nil),
		gen,
		nil,
		nil,
		asset.URLTable(nil),
		rec,
		Config{TriggerIndex: 1, SessionTTL: time.Hour},
	)
}

func TestManager_StartCreatesReadingSession(t *testing.T) {
	gen := &fakeGenerator{}
	pub := &fakePublisher{}
	m := newTestManager(gen, pub)

	v, err := m.Start(context.Background(), owner, validInput())
	require.NoError(t, err)

	assert.Equal(t, playback.ModeReading, v.Mode)
	assert.Equal(t, 0, v.PageIndex)
	assert.Equal(t, 3, v.PageCount)
	assert.False(t, v.InteractionResolved)
	assert.False(t, v.RewardUnlocked)
	assert.Equal(t, asset.AudioIdle, v.Audio.Status)
	require.Len(t, v.Page.Segments, 3)
	assert.True(t, v.Page.Segments[1].Glossed)

	require.Eventually(t, func() bool { return len(pub.savedRecords()) == 1 }, time.Second, time.Millisecond)
	saved := pub.savedRecords()[0]
	assert.Equal(t, v.RecordID, saved.ID)
	assert.Equal(t, entity.CompletionGenerated, saved.CompletionStatus)
}

func TestManager_StartValidationErrorSkipsGeneration(t *testing.T) {
	gen := &fakeGenerator{}
	m := newTestManager(gen, &fakePublisher{})

	raw := validInput()
	raw.ChildName = "  "
	_, err := m.Start(context.Background(), owner, raw)

	var ve request.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, gen.calls)
}

func TestManager_GenerationFailureCreatesNothing(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("backend down")}
	pub := &fakePublisher{}
	m := newTestManager(gen, pub)

	_, err := m.Start(context.Background(), owner, validInput())
	require.Error(t, err)
	m.recorder.Close()
	assert.Empty(t, pub.savedRecords())
	assert.Empty(t, m.sessions)
}

func TestManager_FullPlaythrough(t *testing.T) {
	pub := &fakePublisher{}
	m := newTestManager(&fakeGenerator{}, pub)
	ctx := context.Background()

	v, err := m.Start(ctx, owner, validInput())
	require.NoError(t, err)
	id := v.SessionID

	v, err = m.Dispatch(ctx, owner.ID, id, playback.Advance())
	require.NoError(t, err)
	assert.Equal(t, 1, v.PageIndex)

	v, err = m.Dispatch(ctx, owner.ID, id, playback.Advance())
	require.NoError(t, err)
	assert.Equal(t, playback.ModeInteracting, v.Mode)
	require.NotNil(t, v.Question)
	assert.Equal(t, []string{"Hide it", "Share it"}, v.Question.Options)
	assert.Nil(t, v.Question.Correct)

	v, err = m.Dispatch(ctx, owner.ID, id, playback.SelectOption(0))
	require.NoError(t, err)
	require.NotNil(t, v.Question.Correct)
	assert.False(t, *v.Question.Correct)
	assert.Equal(t, "Try again", v.Question.Feedback)

	v, err = m.Dispatch(ctx, owner.ID, id, playback.Acknowledge())
	require.NoError(t, err)
	assert.Equal(t, playback.ModeInteracting, v.Mode)
	assert.Equal(t, playback.NoSelection, v.Question.Selected)

	_, err = m.Dispatch(ctx, owner.ID, id, playback.SelectOption(1))
	require.NoError(t, err)
	v, err = m.Dispatch(ctx, owner.ID, id, playback.Acknowledge())
	require.NoError(t, err)
	assert.Equal(t, playback.ModeReading, v.Mode)
	assert.Equal(t, 2, v.PageIndex)
	assert.True(t, v.InteractionResolved)
	assert.Empty(t, pub.completedIDs())

	v, err = m.Dispatch(ctx, owner.ID, id, playback.Advance())
	require.NoError(t, err)
	assert.Equal(t, playback.ModeRewarding, v.Mode)
	require.NotNil(t, v.Reward)
	assert.True(t, v.Reward.Unlocked)
	assert.Equal(t, "Light Sharer", v.Reward.Badge)

	_, err = m.Dispatch(ctx, owner.ID, id, playback.Retreat())
	assert.ErrorIs(t, err, playback.ErrInvalidTransition)

	m.recorder.Close()
	assert.Equal(t, []string{v.RecordID}, pub.completedIDs())
}

func TestManager_StalledRecordStoreDoesNotBlockPlayback(t *testing.T) {
	pub := &stalledPublisher{release: make(chan struct{})}
	m := newTestManager(&fakeGenerator{}, pub)
	ctx := context.Background()

	v, err := m.Start(ctx, owner, validInput())
	require.NoError(t, err)
	id := v.SessionID

	finished := make(chan View, 1)
	go func() {
		events := []playback.Event{
			playback.Advance(), playback.Advance(),
			playback.SelectOption(1), playback.Acknowledge(),
			playback.Advance(),
		}
		var last View
		for _, ev := range events {
			next, dispatchErr := m.Dispatch(ctx, owner.ID, id, ev)
			if dispatchErr != nil {
				return
			}
			last = next
		}
		finished <- last
	}()

	select {
	case last := <-finished:
		assert.Equal(t, playback.ModeRewarding, last.Mode)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch blocked on the record store")
	}

	// 会话在写入卡住期间仍可读取
	got, err := m.View(owner.ID, id)
	require.NoError(t, err)
	assert.True(t, got.RewardUnlocked)

	close(pub.release)
	m.recorder.Close()
	assert.Equal(t, []string{v.RecordID}, pub.completedIDs())
}

func TestManager_RejectedEventKeepsState(t *testing.T) {
	m := newTestManager(&fakeGenerator{}, &fakePublisher{})
	ctx := context.Background()
	v, err := m.Start(ctx, owner, validInput())
	require.NoError(t, err)

	got, err := m.Dispatch(ctx, owner.ID, v.SessionID, playback.SelectOption(0))
	require.ErrorIs(t, err, playback.ErrInvalidTransition)
	assert.Equal(t, playback.ModeReading, got.Mode)
	assert.Equal(t, 0, got.PageIndex)
}

func TestManager_OwnerIsolation(t *testing.T) {
	m := newTestManager(&fakeGenerator{}, &fakePublisher{})
	v, err := m.Start(context.Background(), owner, validInput())
	require.NoError(t, err)

	_, err = m.View("someone-else", v.SessionID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_ImageWithoutBackendUsesPlaceholder(t *testing.T) {
	m := newTestManager(&fakeGenerator{}, &fakePublisher{})
	ctx := context.Background()
	v, err := m.Start(ctx, owner, validInput())
	require.NoError(t, err)

	res, err := m.Image(ctx, owner.ID, v.SessionID, 1)
	require.NoError(t, err)
	assert.Equal(t, asset.ImagePlaceholder, res.Status)
	assert.NotEmpty(t, res.Ref.URL)

	_, err = m.Image(ctx, owner.ID, v.SessionID, 7)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestManager_AudioWithoutBackendLeavesIdleWithNotice(t *testing.T) {
	m := newTestManager(&fakeGenerator{}, &fakePublisher{})
	ctx := context.Background()
	v, err := m.Start(ctx, owner, validInput())
	require.NoError(t, err)

	av, err := m.ToggleAudio(ctx, owner.ID, v.SessionID)
	require.NoError(t, err)
	assert.Contains(t, []asset.AudioStatus{asset.AudioLoading, asset.AudioIdle}, av.Status)

	s, err := m.Get(owner.ID, v.SessionID)
	require.NoError(t, err)
	s.player.Wait()

	got, err := m.View(owner.ID, v.SessionID)
	require.NoError(t, err)
	assert.Equal(t, asset.AudioIdle, got.Audio.Status)
	assert.NotEmpty(t, got.Audio.Notice)
}

func TestManager_ResetAndEviction(t *testing.T) {
	m := newTestManager(&fakeGenerator{}, &fakePublisher{})
	ctx := context.Background()

	a, err := m.Start(ctx, owner, validInput())
	require.NoError(t, err)
	b, err := m.Start(ctx, owner, validInput())
	require.NoError(t, err)

	require.NoError(t, m.Reset(owner.ID, a.SessionID))
	_, err = m.View(owner.ID, a.SessionID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Reset(owner.ID, a.SessionID), ErrNotFound)

	base := time.Now()
	m.now = func() time.Time { return base.Add(2 * time.Hour) }
	assert.Equal(t, 1, m.evictIdle())
	_, err = m.View(owner.ID, b.SessionID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToRecord(t *testing.T) {
	req := entity.StoryRequest{
		ChildName:     "Layla",
		Gender:        entity.GenderGirl,
		Age:           7,
		Dialect:       entity.DialectStandard,
		Length:        entity.LengthShort,
		MoralTopic:    "honesty and truth",
		MoralPresetID: "honesty",
		WorldPresetID: "space",
		World:         "a journey among the stars",
		SidekickID:    "cat",
	}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := ToRecord(testDocument(3), req, owner, now)

	assert.Equal(t, "u-1", rec.OwnerID)
	assert.Equal(t, "parent@example.com", rec.OwnerEmail)
	assert.Equal(t, "Layla", rec.ChildName)
	assert.Equal(t, "Omar and the Lantern", rec.StoryTitle)
	assert.Equal(t, entity.CompletionGenerated, rec.CompletionStatus)
	assert.Equal(t, "Light Sharer", rec.Badge)
	assert.Equal(t, "A shared light never dims.", rec.ProverbText)
	assert.Equal(t, "space", rec.WorldPresetID)
	assert.Equal(t, "cat", rec.SidekickID)
	assert.Equal(t, 3, rec.PageCount)
	assert.Equal(t, []string{"lantern"}, []string(rec.Vocabulary))
	assert.Equal(t, now, rec.CreatedAt)
	assert.Empty(t, rec.ID)
}

func TestRecorder_FailureIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis down")}
	r := NewRecorder(pub, nil)

	assert.NotPanics(t, func() {
		r.Persist(context.Background(), &entity.StoryRecord{ID: "r-1"})
		r.MarkCompleted(context.Background(), "r-1", time.Now())
	})
	r.Close()
	assert.Len(t, pub.savedRecords(), 1)
	assert.Equal(t, []string{"r-1"}, pub.completedIDs())

	// 关闭后的提交被丢弃
	r.Persist(context.Background(), &entity.StoryRecord{ID: "r-2"})
	assert.Len(t, pub.savedRecords(), 1)
}

func TestRecorder_WriteTimeoutFreesQueue(t *testing.T) {
	pub := &stalledPublisher{release: make(chan struct{})}
	r := newRecorder(pub, nil, 20*time.Millisecond, 4)

	r.Persist(context.Background(), &entity.StoryRecord{ID: "r-1"})
	r.MarkCompleted(context.Background(), "r-1", time.Now())

	closed := make(chan struct{})
	go func() {
		r.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("record write was not bounded by its timeout")
	}
	assert.Len(t, pub.savedRecords(), 1)
	assert.Empty(t, pub.completedIDs())
}

func TestRecorder_KeepsSubmissionOrder(t *testing.T) {
	repo := &orderedRepo{}
	r := NewRecorder(nil, repo)

	r.Persist(context.Background(), &entity.StoryRecord{ID: "r-1"})
	r.MarkCompleted(context.Background(), "r-1", time.Now())
	r.Close()

	assert.Equal(t, []string{"save:r-1", "complete:r-1"}, repo.calls)
}
