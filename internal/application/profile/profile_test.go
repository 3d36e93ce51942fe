package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/domain/repository"
)

type ownerRepo struct {
	records []*entity.StoryRecord
	renamed map[string]string
}

func (r *ownerRepo) Save(context.Context, *entity.StoryRecord) error { return nil }
func (r *ownerRepo) GetByID(context.Context, string) (*entity.StoryRecord, error) {
	return nil, nil
}
func (r *ownerRepo) Query(context.Context, *repository.StoryRecordFilter, repository.Pagination) (*repository.PagedResult[*entity.StoryRecord], error) {
	return nil, errors.New("unused")
}
func (r *ownerRepo) ListByOwner(_ context.Context, ownerID string, _ int) ([]*entity.StoryRecord, error) {
	var out []*entity.StoryRecord
	for _, rec := range r.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out, nil
}
func (r *ownerRepo) MarkCompleted(context.Context, string, time.Time) error { return nil }
func (r *ownerRepo) DeleteMany(context.Context, []string) (int64, error) { return 0, nil }
func (r *ownerRepo) UpdateOwnerName(_ context.Context, ownerID, name string) error {
	if r.renamed == nil {
		r.renamed = map[string]string{}
	}
	r.renamed[ownerID] = name
	return nil
}

type fakeIdentity struct {
	names map[string]string
	err   error
}

func (f *fakeIdentity) UpdateDisplayName(_ context.Context, uid, name string) error {
	if f.err != nil {
		return f.err
	}
	f.names[uid] = name
	return nil
}

func TestBuildCollection(t *testing.T) {
	records := []*entity.StoryRecord{
		{Badge: "Light Sharer", ProverbText: "A shared light never dims.", ProverbMeaning: "first"},
		{Badge: "Light Sharer", ProverbText: "A shared light never dims.", ProverbMeaning: "second"},
		{Badge: "", MoralPresetID: "honesty", ProverbText: "Truth saves."},
		{},
	}

	c := BuildCollection(records)

	assert.Equal(t, 4, c.StoryCount)
	assert.Equal(t, []string{"Light Sharer", "honesty"}, c.Badges)
	require.Len(t, c.Proverbs, 2)
	assert.Equal(t, "first", c.Proverbs[0].Explanation)
	assert.Equal(t, "Truth saves.", c.Proverbs[1].Text)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Mona", DisplayName(entity.Owner{DisplayName: " Mona ", Email: "m@x.com"}))
	assert.Equal(t, "mona", DisplayName(entity.Owner{Email: "mona@x.com"}))
	assert.Equal(t, DefaultDisplayName, DisplayName(entity.Owner{}))
}

func TestCollection_OnlyOwnRecords(t *testing.T) {
	repo := &ownerRepo{records: []*entity.StoryRecord{
		{OwnerID: "u1", Badge: "A"},
		{OwnerID: "u2", Badge: "B"},
	}}
	svc := NewService(repo, nil)

	c, err := svc.Collection(context.Background(), entity.Owner{ID: "u1", Email: "u1@x.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, c.Badges)
	assert.Equal(t, "u1", c.DisplayName)
}

func TestUpdateDisplayName(t *testing.T) {
	repo := &ownerRepo{}
	idp := &fakeIdentity{names: map[string]string{}}
	svc := NewService(repo, idp)
	owner := entity.Owner{ID: "u1"}

	require.NoError(t, svc.UpdateDisplayName(context.Background(), owner, "  Mona "))
	assert.Equal(t, "Mona", idp.names["u1"])
	assert.Equal(t, "Mona", repo.renamed["u1"])

	assert.ErrorIs(t, svc.UpdateDisplayName(context.Background(), owner, " "), ErrEmptyDisplayName)
	assert.ErrorIs(t, NewService(repo, nil).UpdateDisplayName(context.Background(), owner, "x"), ErrDisplayNameUnsupported)
}
