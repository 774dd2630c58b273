package ledger

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wishfund/internal/adapter/memory"
	"wishfund/internal/aggregate"
	"wishfund/internal/domain"
	"wishfund/internal/reconcile"
)

type env struct {
	store   *memory.Store
	svc     *Service
	owner   *domain.User
	donor   *domain.User
	admin   *domain.User
	ref     domain.ItemRef
	price   decimal.Decimal
	balance func() decimal.Decimal
}

func newEnv(t *testing.T, cfg Config) *env {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	owner := &domain.User{Username: "streamer", Role: domain.UserRoleBlogger}
	donor := &domain.User{Username: "fan", Role: domain.UserRoleUser}
	admin := &domain.User{Username: "root", Role: domain.UserRoleAdmin}
	for _, u := range []*domain.User{owner, donor, admin} {
		require.NoError(t, store.Users().Create(ctx, u))
	}

	wl := &domain.Wishlist{
		OwnerID:  owner.ID,
		Title:    "Stream setup",
		IsPublic: true,
		Items: []domain.WishlistItem{{
			Name: "Microphone", Price: decimal.NewFromInt(1000), Currency: domain.CurrencyRUB,
		}},
	}
	require.NoError(t, store.Wishlists().Create(ctx, wl))

	rec := reconcile.NewService(store.Wishlists(), zerolog.Nop())
	svc := NewService(store.Users(), store.Wishlists(), store.Donations(), store.TxManager(), rec, cfg, zerolog.Nop())

	e := &env{
		store: store, svc: svc, owner: owner, donor: donor, admin: admin,
		ref:   domain.ItemRef{WishlistID: wl.ID, ItemID: wl.Items[0].ID},
		price: decimal.NewFromInt(1000),
	}
	e.balance = func() decimal.Decimal {
		u, err := store.Users().GetByID(ctx, owner.ID)
		require.NoError(t, err)
		return u.Balance
	}
	return e
}

func (e *env) item(t *testing.T) domain.WishlistItem {
	t.Helper()
	loc, err := e.store.Wishlists().LocateItem(context.Background(), e.ref.ItemID)
	require.NoError(t, err)
	return loc.Item
}

func (e *env) input(amount int64) RecordInput {
	donor := e.donor.ID
	return RecordInput{
		RecipientID: e.owner.ID,
		WishlistID:  e.ref.WishlistID,
		ItemID:      e.ref.ItemID,
		Amount:      decimal.NewFromInt(amount),
		DonorID:     &donor,
	}
}

func TestRecordDonationImmediateFunding(t *testing.T) {
	e := newEnv(t, Config{})
	ctx := context.Background()

	d, created, err := e.svc.RecordDonation(ctx, e.input(400))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.DonationPending, d.Status)
	assert.Equal(t, domain.CurrencyRUB, d.Currency)
	assert.Equal(t, domain.PaymentCard, d.PaymentMethod)
	assert.False(t, d.IsAnonymous)
	assert.True(t, d.Fee.IsZero())

	item := e.item(t)
	assert.True(t, item.CurrentAmount.Equal(decimal.NewFromInt(400)))
	require.Len(t, item.Donations, 1)
	assert.Equal(t, d.ID, item.Donations[0].DonationID)
	assert.Equal(t, domain.ItemActive, item.Status)
}

func TestRecordDonationToFundedItemIsRejected(t *testing.T) {
	e := newEnv(t, Config{})
	ctx := context.Background()

	_, _, err := e.svc.RecordDonation(ctx, e.input(1000))
	require.NoError(t, err)
	require.Equal(t, domain.ItemFunded, e.item(t).Status)

	_, _, err = e.svc.RecordDonation(ctx, e.input(100))
	assert.ErrorIs(t, err, domain.ErrItemNotActive)

	item := e.item(t)
	assert.True(t, item.CurrentAmount.Equal(decimal.NewFromInt(1000)))
	assert.Len(t, item.Donations, 1)

	page, err := e.svc.ListDonations(ctx, domain.DonationFilter{UserID: e.owner.ID})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestRecordDonationConcurrentOverPrice(t *testing.T) {
	e := newEnv(t, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := e.svc.RecordDonation(context.Background(), e.input(600))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	item := e.item(t)
	assert.True(t, item.CurrentAmount.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, domain.ItemFunded, item.Status)
	assert.Len(t, item.Donations, 2)
}

func TestRecordDonationValidation(t *testing.T) {
	e := newEnv(t, Config{})
	ctx := context.Background()

	cases := []struct {
		name  string
		mod   func(*RecordInput)
		field string
	}{
		{"zero amount", func(in *RecordInput) { in.Amount = decimal.Zero }, "amount"},
		{"negative amount", func(in *RecordInput) { in.Amount = decimal.NewFromInt(-5) }, "amount"},
		{"too precise", func(in *RecordInput) { in.Amount = decimal.RequireFromString("1.005") }, "amount"},
		{"currency", func(in *RecordInput) { in.Currency = "GBP" }, "currency"},
		{"message", func(in *RecordInput) { in.Message = strings.Repeat("я", 201) }, "message"},
		{"payment method", func(in *RecordInput) { in.PaymentMethod = "cash" }, "payment_method"},
		{"currency mismatch", func(in *RecordInput) { in.Currency = "USD" }, "currency"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := e.input(100)
			tc.mod(&in)
			_, _, err := e.svc.RecordDonation(ctx, in)
			require.ErrorIs(t, err, domain.ErrValidation)
			assert.ErrorIs(t, err, domain.NewValidationError(tc.field, ""))
		})
	}

	in := e.input(100)
	in.Amount = decimal.RequireFromString("1.005")
	_, _, err := e.svc.RecordDonation(ctx, in)
	assert.NotErrorIs(t, err, domain.ErrInvalidAmount)
	_, _, err = e.svc.RecordDonation(ctx, e.input(0))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	in = e.input(100)
	in.Message = strings.Repeat("я", 200)
	_, _, err = e.svc.RecordDonation(ctx, in)
	assert.NoError(t, err)
}

func TestRecordDonationLookupErrors(t *testing.T) {
	e := newEnv(t, Config{})
	ctx := context.Background()

	in := e.input(100)
	in.RecipientID = "nobody"
	_, _, err := e.svc.RecordDonation(ctx, in)
	assert.ErrorIs(t, err, domain.ErrRecipientNotFound)

	in = e.input(100)
	in.ItemID = "missing"
	_, _, err = e.svc.RecordDonation(ctx, in)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	in = e.input(100)
	in.RecipientID = e.admin.ID
	_, _, err = e.svc.RecordDonation(ctx, in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRecordDonationByItemIDAlone(t *testing.T) {
	e := newEnv(t, Config{})
	ctx := context.Background()

	in := e.input(250)
	in.WishlistID = ""
	d, created, err := e.svc.RecordDonation(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, d.Item)
	assert.Equal(t, e.ref, *d.Item)
	assert.True(t, e.item(t).CurrentAmount.Equal(decimal.NewFromInt(250)))

	in = e.input(10)
	in.WishlistID = "another-list"
	_, _, err = e.svc.RecordDonation(ctx, in)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	in = e.input(10)
	in.ItemID = ""
	_, _, err = e.svc.RecordDonation(ctx, in)
	assert.ErrorIs(t, err, domain.NewValidationError("item_id", ""))
}

func TestFailedDonationStaysInAggregates(t *testing.T) {
	e := newEnv(t, Config{})
	ctx := context.Background()

	d, _, err := e.svc.RecordDonation(ctx, e.input(300))
	require.NoError(t, err)
	_, err = e.svc.TransitionStatus(ctx, d.ID, domain.DonationFailed, nil)
	require.NoError(t, err)

	donations, err := e.store.Donations().ListForStats(ctx, e.owner.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, donations, 1)

	board := aggregate.DonorLeaderboard(donations)
	assert.Equal(t, 1, board.Total.Count)
	assert.True(t, board.Total.Amount.Equal(e.item(t).CurrentAmount))
	assert.True(t, board.Total.Amount.Equal(decimal.NewFromInt(300)))

	totals := aggregate.ComputePeriodTotals(donations, time.Now(), time.UTC)
	assert.True(t, totals.Total.Amount.Equal(decimal.NewFromInt(300)))
}

func TestRecordDonationIdempotencyKey(t *testing.T) {
	e := newEnv(t, Config{})
	ctx := context.Background()

	in := e.input(300)
	in.IdempotencyKey = "retry-1"
	first, created, err := e.svc.RecordDonation(ctx, in)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := e.svc.RecordDonation(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	item := e.item(t)
	assert.True(t, item.CurrentAmount.Equal(decimal.NewFromInt(300)))
	assert.Len(t, item.Donations, 1)
}

func TestRecordDonationWithoutDonorIsAnonymous(t *testing.T) {
	e := newEnv(t, Config{})
	in := e.input(50)
	in.DonorID = nil
	in.WishlistID, in.ItemID = "", ""
	in.Currency = "EUR"

	d, _, err := e.svc.RecordDonation(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, d.IsAnonymous)
	assert.Nil(t, d.Item)
	assert.Equal(t, domain.CurrencyEUR, d.Currency)
}

func TestTransitionStatusCompletesAndCreditsNet(t *testing.T) {
	e := newEnv(t, Config{FeePercent: decimal.NewFromInt(5)})
	ctx := context.Background()

	d, _, err := e.svc.RecordDonation(ctx, e.input(333))
	require.NoError(t, err)
	assert.True(t, d.Fee.Equal(decimal.RequireFromString("16.65")))

	done, err := e.svc.TransitionStatus(ctx, d.ID, domain.DonationCompleted, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationCompleted, done.Status)
	assert.True(t, e.balance().Equal(decimal.RequireFromString("316.35")), e.balance().String())

	_, err = e.svc.TransitionStatus(ctx, d.ID, domain.DonationRefunded, nil)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	assert.True(t, e.balance().Equal(decimal.RequireFromString("316.35")))
}

func TestTransitionStatusFeeOverride(t *testing.T) {
	e := newEnv(t, Config{})
	ctx := context.Background()
	d, _, err := e.svc.RecordDonation(ctx, e.input(100))
	require.NoError(t, err)

	tooHigh := decimal.NewFromInt(101)
	_, err = e.svc.TransitionStatus(ctx, d.ID, domain.DonationCompleted, &tooHigh)
	assert.ErrorIs(t, err, domain.ErrValidation)

	fee := decimal.NewFromInt(10)
	done, err := e.svc.TransitionStatus(ctx, d.ID, domain.DonationCompleted, &fee)
	require.NoError(t, err)
	assert.True(t, done.Fee.Equal(fee))
	assert.True(t, e.balance().Equal(decimal.NewFromInt(90)))
}

func TestTransitionStatusFailedDoesNotCredit(t *testing.T) {
	e := newEnv(t, Config{})
	ctx := context.Background()
	d, _, err := e.svc.RecordDonation(ctx, e.input(100))
	require.NoError(t, err)

	_, err = e.svc.TransitionStatus(ctx, d.ID, domain.DonationFailed, nil)
	require.NoError(t, err)
	assert.True(t, e.balance().IsZero())

	_, err = e.svc.TransitionStatus(ctx, "missing", domain.DonationCompleted, nil)
	assert.ErrorIs(t, err, domain.ErrDonationNotFound)

	_, err = e.svc.TransitionStatus(ctx, d.ID, domain.DonationStatus("lost"), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTransitionStatusConcurrentOnlyOneWins(t *testing.T) {
	e := newEnv(t, Config{})
	ctx := context.Background()
	d, _, err := e.svc.RecordDonation(ctx, e.input(100))
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.svc.TransitionStatus(ctx, d.ID, domain.DonationCompleted, nil); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, domain.ErrIllegalTransition)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.True(t, e.balance().Equal(decimal.NewFromInt(100)))
}

func TestOnCompletionModeFundsAtCompletion(t *testing.T) {
	e := newEnv(t, Config{Mode: FundingOnCompletion})
	ctx := context.Background()

	d, _, err := e.svc.RecordDonation(ctx, e.input(1000))
	require.NoError(t, err)
	assert.True(t, e.item(t).CurrentAmount.IsZero())

	_, err = e.svc.TransitionStatus(ctx, d.ID, domain.DonationCompleted, nil)
	require.NoError(t, err)
	item := e.item(t)
	assert.True(t, item.CurrentAmount.Equal(e.price))
	assert.Equal(t, domain.ItemFunded, item.Status)

	// The item is funded now, so new donations are refused at acceptance.
	other, _, err := e.svc.RecordDonation(ctx, e.input(10))
	assert.ErrorIs(t, err, domain.ErrItemNotActive)
	assert.Nil(t, other)
}

func TestOnCompletionModeSkipsClosedItem(t *testing.T) {
	e := newEnv(t, Config{Mode: FundingOnCompletion})
	ctx := context.Background()

	d, _, err := e.svc.RecordDonation(ctx, e.input(100))
	require.NoError(t, err)
	_, err = e.store.Wishlists().TransitionItem(ctx, e.ref, domain.ItemActive, domain.ItemCancelled, nil)
	require.NoError(t, err)

	_, err = e.svc.TransitionStatus(ctx, d.ID, domain.DonationCompleted, nil)
	require.NoError(t, err)
	assert.True(t, e.balance().Equal(decimal.NewFromInt(100)))
	assert.True(t, e.item(t).CurrentAmount.IsZero())
}

func TestListDonationsDirections(t *testing.T) {
	e := newEnv(t, Config{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _, err := e.svc.RecordDonation(ctx, e.input(10))
		require.NoError(t, err)
	}

	sent, err := e.svc.ListDonations(ctx, domain.DonationFilter{UserID: e.donor.ID, Direction: domain.DirectionSent, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, sent.Items, 2)
	assert.NotEmpty(t, sent.NextCursor)

	received, err := e.svc.ListDonations(ctx, domain.DonationFilter{UserID: e.donor.ID, Direction: domain.DirectionReceived})
	require.NoError(t, err)
	assert.Empty(t, received.Items)

	_, err = e.svc.ListDonations(ctx, domain.DonationFilter{UserID: e.donor.ID, Direction: "sideways"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetDonationVisibility(t *testing.T) {
	e := newEnv(t, Config{})
	ctx := context.Background()
	d, _, err := e.svc.RecordDonation(ctx, e.input(10))
	require.NoError(t, err)

	for _, v := range []Viewer{
		{UserID: e.owner.ID, Role: domain.UserRoleBlogger},
		{UserID: e.donor.ID, Role: domain.UserRoleUser},
		{UserID: e.admin.ID, Role: domain.UserRoleAdmin},
	} {
		got, err := e.svc.GetDonation(ctx, d.ID, v)
		require.NoError(t, err)
		assert.Equal(t, d.ID, got.ID)
	}

	_, err = e.svc.GetDonation(ctx, d.ID, Viewer{UserID: "stranger", Role: domain.UserRoleUser})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
