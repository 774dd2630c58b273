package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wishfund/internal/domain"
)

// WishlistStore implements domain.WishlistRepository.
type WishlistStore struct {
	s *Store
}

func (w *WishlistStore) Create(ctx context.Context, list *domain.Wishlist) error {
	if list.ID == "" {
		list.ID = uuid.NewString()
	}
	if list.CreatedAt.IsZero() {
		list.CreatedAt = w.s.now()
	}
	list.UpdatedAt = list.CreatedAt
	if list.Tags == nil {
		list.Tags = []string{}
	}

	w.s.mu.Lock()
	if _, ok := w.s.users[list.OwnerID]; !ok {
		w.s.mu.Unlock()
		return fmt.Errorf("%s: %w", list.OwnerID, domain.ErrUserNotFound)
	}
	if _, ok := w.s.wishlists[list.ID]; ok {
		w.s.mu.Unlock()
		return fmt.Errorf("wishlist %s: %w", list.ID, domain.ErrAlreadyExists)
	}
	stored := *list
	stored.Items = nil
	stored.Tags = append([]string(nil), list.Tags...)
	w.s.wishlists[list.ID] = &wishlist{data: stored}
	w.s.mu.Unlock()

	id := list.ID
	onRollback(ctx, func() {
		w.s.mu.Lock()
		delete(w.s.wishlists, id)
		w.s.mu.Unlock()
	})

	for i := range list.Items {
		if err := w.AddItem(ctx, list.ID, &list.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *WishlistStore) GetByID(_ context.Context, id string) (*domain.Wishlist, error) {
	w.s.mu.RLock()
	defer w.s.mu.RUnlock()
	list, ok := w.s.wishlists[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrWishlistNotFound)
	}
	out := w.s.assemble(list)
	return &out, nil
}

func (w *WishlistStore) ListByOwner(_ context.Context, ownerID string) ([]domain.Wishlist, error) {
	return w.list(func(l *wishlist) bool { return l.data.OwnerID == ownerID }), nil
}

func (w *WishlistStore) ListPublic(_ context.Context, category *domain.Category) ([]domain.Wishlist, error) {
	return w.list(func(l *wishlist) bool {
		return l.data.IsPublic && (category == nil || l.data.Category == *category)
	}), nil
}

func (w *WishlistStore) list(keep func(*wishlist) bool) []domain.Wishlist {
	w.s.mu.RLock()
	defer w.s.mu.RUnlock()
	out := make([]domain.Wishlist, 0)
	for _, l := range w.s.wishlists {
		if keep(l) {
			out = append(out, w.s.assemble(l))
		}
	}
	sortWishlists(out)
	return out
}

func (w *WishlistStore) Count(context.Context) (int, error) {
	w.s.mu.RLock()
	defer w.s.mu.RUnlock()
	return len(w.s.wishlists), nil
}

func (w *WishlistStore) AddItem(ctx context.Context, wishlistID string, it *domain.WishlistItem) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = w.s.now()
	}
	it.Status = domain.ItemActive
	it.CurrentAmount = decimal.Zero
	it.Donations = nil

	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	list, ok := w.s.wishlists[wishlistID]
	if !ok {
		return fmt.Errorf("%s: %w", wishlistID, domain.ErrWishlistNotFound)
	}
	if _, ok := w.s.items[it.ID]; ok {
		return fmt.Errorf("item %s: %w", it.ID, domain.ErrAlreadyExists)
	}
	w.s.items[it.ID] = &item{wishlistID: wishlistID, data: cloneItem(*it), applied: make(map[string]struct{})}
	list.itemIDs = append(list.itemIDs, it.ID)
	prevUpdated := list.data.UpdatedAt
	list.data.UpdatedAt = w.s.now()

	itemID := it.ID
	onRollback(ctx, func() {
		w.s.mu.Lock()
		defer w.s.mu.Unlock()
		delete(w.s.items, itemID)
		for i, id := range list.itemIDs {
			if id == itemID {
				list.itemIDs = append(list.itemIDs[:i], list.itemIDs[i+1:]...)
				break
			}
		}
		list.data.UpdatedAt = prevUpdated
	})
	return nil
}

func (w *WishlistStore) LocateItem(_ context.Context, itemID string) (*domain.ItemLocation, error) {
	w.s.mu.RLock()
	defer w.s.mu.RUnlock()
	it, ok := w.s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", itemID, domain.ErrItemNotFound)
	}
	return &domain.ItemLocation{
		Ref:     domain.ItemRef{WishlistID: it.wishlistID, ItemID: itemID},
		OwnerID: w.s.wishlists[it.wishlistID].data.OwnerID,
		Item:    it.snapshot(),
	}, nil
}

// lookup finds the item addressed by ref, holding the store lock only for the
// map access.
func (w *WishlistStore) lookup(ref domain.ItemRef) (*item, error) {
	w.s.mu.RLock()
	defer w.s.mu.RUnlock()
	it, ok := w.s.items[ref.ItemID]
	if !ok || it.wishlistID != ref.WishlistID {
		return nil, fmt.Errorf("%s: %w", ref.ItemID, domain.ErrItemNotFound)
	}
	return it, nil
}

func (w *WishlistStore) ApplyFunding(ctx context.Context, app domain.FundingApplication) (domain.FundingResult, error) {
	it, err := w.lookup(app.Item)
	if err != nil {
		return domain.FundingResult{}, err
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if _, done := it.applied[app.DonationID]; done {
		return domain.FundingResult{Item: cloneItem(it.data), Applied: false}, nil
	}
	if it.data.Status != domain.ItemActive && it.data.Status != domain.ItemFunded {
		return domain.FundingResult{}, fmt.Errorf("item %s is %s: %w", it.data.ID, it.data.Status, domain.ErrItemNotActive)
	}

	it.applied[app.DonationID] = struct{}{}
	it.data.CurrentAmount = it.data.CurrentAmount.Add(app.Amount)
	it.data.Donations = append(it.data.Donations, domain.DonationSnapshot{
		DonationID:  app.DonationID,
		DonorID:     app.DonorID,
		Amount:      app.Amount,
		Message:     app.Message,
		IsAnonymous: app.IsAnonymous,
		Date:        app.Date,
	})
	flipped := false
	if it.data.Status == domain.ItemActive && it.data.CurrentAmount.GreaterThanOrEqual(it.data.Price) {
		it.data.Status = domain.ItemFunded
		flipped = true
	}

	onRollback(ctx, func() {
		it.mu.Lock()
		defer it.mu.Unlock()
		delete(it.applied, app.DonationID)
		it.data.CurrentAmount = it.data.CurrentAmount.Sub(app.Amount)
		for i, snap := range it.data.Donations {
			if snap.DonationID == app.DonationID {
				it.data.Donations = append(it.data.Donations[:i], it.data.Donations[i+1:]...)
				break
			}
		}
		if flipped && it.data.Status == domain.ItemFunded && it.data.CurrentAmount.LessThan(it.data.Price) {
			it.data.Status = domain.ItemActive
		}
	})

	return domain.FundingResult{Item: cloneItem(it.data), Applied: true}, nil
}

func (w *WishlistStore) TransitionItem(
	ctx context.Context, ref domain.ItemRef, from, to domain.ItemStatus, proof *domain.PurchaseProof,
) (*domain.WishlistItem, error) {
	it, err := w.lookup(ref)
	if err != nil {
		return nil, err
	}

	it.mu.Lock()
	defer it.mu.Unlock()
	if it.data.Status != from {
		return nil, fmt.Errorf("item %s is %s, not %s: %w", ref.ItemID, it.data.Status, from, domain.ErrIllegalTransition)
	}

	prevStatus, prevProof := it.data.Status, it.data.PurchaseProof
	it.data.Status = to
	if proof != nil {
		p := *proof
		it.data.PurchaseProof = &p
	}
	onRollback(ctx, func() {
		it.mu.Lock()
		it.data.Status, it.data.PurchaseProof = prevStatus, prevProof
		it.mu.Unlock()
	})

	out := cloneItem(it.data)
	return &out, nil
}

var _ domain.WishlistRepository = (*WishlistStore)(nil)
