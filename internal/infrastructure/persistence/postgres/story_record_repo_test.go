package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/domain/repository"
	apperrors "hakawati-story-api/pkg/errors"
)

// sqlite 不支持 text[]，测试表手工建立
const createStoryRecords = `CREATE TABLE story_records (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	owner_email TEXT,
	owner_name TEXT,
	child_name TEXT NOT NULL,
	story_title TEXT NOT NULL,
	completion_status TEXT NOT NULL,
	badge TEXT,
	proverb_text TEXT,
	proverb_meaning TEXT,
	age INTEGER,
	gender TEXT,
	dialect TEXT,
	length TEXT,
	page_count INTEGER,
	moral_preset_id TEXT,
	moral_topic TEXT,
	world_preset_id TEXT,
	world TEXT,
	sidekick_id TEXT,
	vocabulary TEXT,
	created_at DATETIME,
	completed_at DATETIME
)`

func newTestClient(t *testing.T) *Client {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Exec(createStoryRecords).Error)
	return NewClientFromDB(db)
}

func testRecord(id, owner, child, email string, at time.Time) *entity.StoryRecord {
	return &entity.StoryRecord{
		ID:               id,
		OwnerID:          owner,
		OwnerEmail:       email,
		ChildName:        child,
		StoryTitle:       "The lantern of " + child,
		CompletionStatus: entity.CompletionGenerated,
		Badge:            "Honesty",
		Age:              6,
		Gender:           entity.GenderBoy,
		Dialect:          entity.DialectStandard,
		Length:           entity.LengthShort,
		PageCount:        3,
		Vocabulary:       []string{"lantern", "river"},
		CreatedAt:        at.UTC(),
	}
}

func TestStoryRecordRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewStoryRecordRepository(newTestClient(t))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, testRecord("r1", "u1", "Omar", "omar@example.com", base)))

	got, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Omar", got.ChildName)
	assert.Equal(t, []string{"lantern", "river"}, []string(got.Vocabulary))
	assert.True(t, got.CreatedAt.Equal(base))

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, repo.Save(ctx, &entity.StoryRecord{}))
}

func TestStoryRecordRepository_SaveIsIdempotentAndKeepsCompletion(t *testing.T) {
	ctx := context.Background()
	repo := NewStoryRecordRepository(newTestClient(t))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := testRecord("r1", "u1", "Omar", "", base)
	require.NoError(t, repo.Save(ctx, rec))
	require.NoError(t, repo.MarkCompleted(ctx, "r1", base.Add(time.Minute)))

	again := testRecord("r1", "u1", "Omar", "", base)
	again.StoryTitle = "Updated"
	require.NoError(t, repo.Save(ctx, again))

	got, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Updated", got.StoryTitle)
	assert.Equal(t, entity.CompletionCompleted, got.CompletionStatus)
	require.NotNil(t, got.CompletedAt)

	page, err := repo.Query(ctx, nil, repository.NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestStoryRecordRepository_MarkCompletedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewStoryRecordRepository(newTestClient(t))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, testRecord("r1", "u1", "Omar", "", base)))

	first := base.Add(time.Minute)
	require.NoError(t, repo.MarkCompleted(ctx, "r1", first))
	require.NoError(t, repo.MarkCompleted(ctx, "r1", base.Add(time.Hour)))

	got, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(first))

}

func TestStoryRecordRepository_CompletionBeforeSaveIsRetried(t *testing.T) {
	ctx := context.Background()
	repo := NewStoryRecordRepository(newTestClient(t))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	done := base.Add(time.Minute)

	// 完成消息先到：报错以便重投
	err := repo.MarkCompleted(ctx, "r-1", done)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStoryNotFound)

	// 保存消息重投成功后，完成消息再次投递
	require.NoError(t, repo.Save(ctx, testRecord("r-1", "u1", "Omar", "", base)))
	require.NoError(t, repo.MarkCompleted(ctx, "r-1", done))

	got, err := repo.GetByID(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, entity.CompletionCompleted, got.CompletionStatus)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(done))
}

func TestStoryRecordRepository_QueryFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewStoryRecordRepository(newTestClient(t))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, testRecord("r1", "u1", "Omar", "dad@example.com", base)))
	require.NoError(t, repo.Save(ctx, testRecord("r2", "u2", "Layla", "mom@example.com", base.Add(time.Minute))))
	require.NoError(t, repo.Save(ctx, testRecord("r3", "u1", "Sami", "dad@example.com", base.Add(2*time.Minute))))

	all, err := repo.Query(ctx, &repository.StoryRecordFilter{}, repository.NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "r3", all.Items[0].ID)
	assert.Equal(t, "r1", all.Items[2].ID)

	byText, err := repo.Query(ctx, &repository.StoryRecordFilter{Query: "LAY"}, repository.NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, byText.Items, 1)
	assert.Equal(t, "r2", byText.Items[0].ID)

	byEmail, err := repo.Query(ctx, &repository.StoryRecordFilter{Query: "dad@"}, repository.NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 2, byEmail.Total)

	byOwner, err := repo.Query(ctx, &repository.StoryRecordFilter{OwnerID: "u2"}, repository.NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, byOwner.Items, 1)

	require.NoError(t, repo.MarkCompleted(ctx, "r1", base.Add(time.Hour)))
	done, err := repo.Query(ctx, &repository.StoryRecordFilter{Status: entity.CompletionCompleted}, repository.NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, done.Items, 1)
	assert.Equal(t, "r1", done.Items[0].ID)

	paged, err := repo.Query(ctx, nil, repository.NewPagination(2, 2))
	require.NoError(t, err)
	assert.EqualValues(t, 3, paged.Total)
	assert.Equal(t, 2, paged.TotalPages)
	require.Len(t, paged.Items, 1)
	assert.Equal(t, "r1", paged.Items[0].ID)
}

func TestStoryRecordRepository_ListDeleteRename(t *testing.T) {
	ctx := context.Background()
	repo := NewStoryRecordRepository(newTestClient(t))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		owner := "u1"
		if i == 3 {
			owner = "u2"
		}
		rec := testRecord(fmt.Sprintf("r%d", i), owner, "Omar", "", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Save(ctx, rec))
	}

	mine, err := repo.ListByOwner(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "r2", mine[0].ID)

	require.NoError(t, repo.UpdateOwnerName(ctx, "u1", "Abu Omar"))
	mine, err = repo.ListByOwner(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	for _, rec := range mine {
		assert.Equal(t, "Abu Omar", rec.OwnerName)
	}

	n, err := repo.DeleteMany(ctx, []string{"r0", "r3", "ghost"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = repo.DeleteMany(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	repo := NewStoryRecordRepository(client)
	txm := NewTxManager(client)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	boom := errors.New("boom")

	err := txm.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Save(ctx, testRecord("r1", "u1", "Omar", "", base)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, got)

	err = txm.WithTransaction(ctx, func(ctx context.Context) error {
		return txm.WithTransaction(ctx, func(ctx context.Context) error {
			return repo.Save(ctx, testRecord("r2", "u1", "Omar", "", base))
		})
	})
	require.NoError(t, err)
	got, err = repo.GetByID(ctx, "r2")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
