package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wishfund/internal/adapter/memory"
	"wishfund/internal/domain"
)

var base = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func item(id, name, desc string, donations int, status domain.ItemStatus, created time.Time) domain.WishlistItem {
	return domain.WishlistItem{
		ID:            id,
		Name:          name,
		Description:   desc,
		Price:         decimal.NewFromInt(100),
		CurrentAmount: decimal.NewFromInt(int64(donations * 10)),
		Status:        status,
		Donations:     make([]domain.DonationSnapshot, donations),
		CreatedAt:     created,
	}
}

func fixtures() []domain.Wishlist {
	return []domain.Wishlist{
		{
			ID: "w1", IsPublic: true, Category: domain.CategoryGames,
			Items: []domain.WishlistItem{
				item("a", "Gamepad", "wireless pad", 3, domain.ItemActive, base.Add(1*time.Hour)),
				item("b", "Game Pass", "game game subscription", 5, domain.ItemFunded, base.Add(2*time.Hour)),
				item("c", "Keyboard", "mechanical", 3, domain.ItemActive, base.Add(5*time.Hour)),
			},
		},
		{
			ID: "w2", IsPublic: true, Category: domain.CategoryBooks,
			Items: []domain.WishlistItem{
				item("d", "Novel", "a game of thrones", 7, domain.ItemActive, base.Add(3*time.Hour)),
			},
		},
		{
			ID: "w3", IsPublic: false, Category: domain.CategoryGames,
			Items: []domain.WishlistItem{
				item("e", "Secret game", "", 99, domain.ItemActive, base.Add(9*time.Hour)),
			},
		},
	}
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Item.ID)
	}
	return out
}

func TestPopular(t *testing.T) {
	got := Popular(fixtures(), 0)
	// Ties between a and c keep enumeration order.
	assert.Equal(t, []string{"d", "a", "c"}, ids(got))
	assert.Equal(t, int64(70), got[0].Progress)
	assert.Equal(t, []string{"d"}, ids(Popular(fixtures(), 1)))
}

func TestNewest(t *testing.T) {
	assert.Equal(t, []string{"c", "d", "a"}, ids(Newest(fixtures(), 0)))
}

func TestByCategory(t *testing.T) {
	assert.Equal(t, []string{"c", "a"}, ids(ByCategory(fixtures(), domain.CategoryGames, 0)))
	assert.Empty(t, ByCategory(fixtures(), domain.CategoryHobby, 0))
}

func TestSearch(t *testing.T) {
	got, err := Search(fixtures(), "GAME", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, ids(got))

	_, err = Search(fixtures(), "   ", 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSearchCountsNonOverlapping(t *testing.T) {
	lists := []domain.Wishlist{{
		ID: "w", IsPublic: true,
		Items: []domain.WishlistItem{
			item("x", "aa", "", 0, domain.ItemActive, base),
			item("y", "aaaa", "aa", 0, domain.ItemActive, base),
		},
	}}
	got, err := Search(lists, "aa", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x"}, ids(got))
}

func TestLimitIsClamped(t *testing.T) {
	items := make([]domain.WishlistItem, 0, 150)
	for i := 0; i < 150; i++ {
		items = append(items, item(fmt.Sprintf("i%d", i), "thing", "", 0, domain.ItemActive, base))
	}
	lists := []domain.Wishlist{{ID: "w", IsPublic: true, Items: items}}

	assert.Len(t, Newest(lists, 0), DefaultLimit)
	assert.Len(t, Newest(lists, 500), MaxLimit)
	assert.Len(t, Newest(lists, 3), 3)
}

func TestServiceReadsPublicLists(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	owner := &domain.User{Username: "owner"}
	require.NoError(t, store.Users().Create(ctx, owner))
	for _, w := range fixtures() {
		w := w
		w.OwnerID = owner.ID
		require.NoError(t, store.Wishlists().Create(ctx, &w))
	}

	svc := NewService(store.Wishlists())
	got, err := svc.Newest(ctx, 0)
	require.NoError(t, err)
	// AddItem resets every stored item to active with no donations.
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, ids(got))

	_, err = svc.ByCategory(ctx, domain.Category("cars"), 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Search(ctx, "", 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
