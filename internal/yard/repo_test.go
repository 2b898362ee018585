package yard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/apperr"
	"github.com/ariefcatur/go-yard-listings/internal/postgres/pgtest"
	"github.com/ariefcatur/go-yard-listings/internal/promotion"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo_MergeWriteAndPromotionLock(t *testing.T) {
	repo := &Repo{DB: pgtest.Pool(t)}
	ctx := context.Background()

	c := Car{
		ID: uuid.NewString(), OwnerID: "yard-1", Publication: Draft, Sale: Active,
		Brand: "Daihatsu", Model: "Xenia", Year: 2017, Images: []string{"a.jpg"},
	}
	require.NoError(t, repo.Create(ctx, &c))
	assert.False(t, c.CreatedAt.IsZero())

	pub := Published
	got, err := repo.Update(ctx, "yard-1", c.ID, Patch{Publication: &pub})
	require.NoError(t, err)
	assert.Equal(t, Published, got.Publication)
	assert.Equal(t, "Xenia", got.Model, "unspecified fields survive")
	assert.Equal(t, []string{"a.jpg"}, got.Images)

	_, err = repo.Get(ctx, "yard-2", c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	now := time.Now().UTC().Truncate(time.Millisecond)
	var wg sync.WaitGroup
	for _, days := range []int{7, 3, 7, 3, 5} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdatePromotion(ctx, "yard-1", c.ID, func(cur Car) (promotion.State, promotion.Tier, error) {
				next := promotion.Merge(cur.Promotion, promotion.Effect{
					Kinds: []promotion.Kind{promotion.KindBoost, promotion.KindHighlight}, DurationDays: days,
				}, now)
				return next, promotion.Resolve(next, now), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err = repo.Find(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Promotion.BoostUntil)
	assert.True(t, got.Promotion.BoostUntil.Equal(now.Add(7*24*time.Hour)))
	assert.Equal(t, promotion.TierPremium, got.Tier)

	existed, err := repo.Delete(ctx, "yard-1", c.ID)
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = repo.Delete(ctx, "yard-1", c.ID)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestRepo_ListKeysPagesById(t *testing.T) {
	repo := &Repo{DB: pgtest.Pool(t)}
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Create(ctx, &Car{ID: id, OwnerID: "yard-1", Publication: Draft, Sale: Active}))
	}

	first, err := repo.ListKeys(ctx, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []Key{{"yard-1", "a"}, {"yard-1", "b"}}, first)

	rest, err := repo.ListKeys(ctx, "b", 2)
	require.NoError(t, err)
	assert.Equal(t, []Key{{"yard-1", "c"}}, rest)
}
