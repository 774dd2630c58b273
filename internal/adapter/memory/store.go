// Package memory is an in-process implementation of the domain stores, used
// with STORAGE_DRIVER=memory and by the service-level tests.
//
// Lock order is Store.mu before item.mu. Funding an item only holds the
// store lock long enough to find the item, so different items are funded in
// parallel while applies to the same item serialize on its mutex.
package memory

import (
	"sort"
	"sync"
	"time"

	"wishfund/internal/domain"
)

type item struct {
	mu         sync.Mutex
	wishlistID string
	data       domain.WishlistItem
	applied    map[string]struct{}
}

func (it *item) snapshot() domain.WishlistItem {
	it.mu.Lock()
	defer it.mu.Unlock()
	return cloneItem(it.data)
}

type wishlist struct {
	data    domain.Wishlist // Items is always nil here
	itemIDs []string
}

// Store holds every aggregate in memory.
type Store struct {
	mu        sync.RWMutex
	users     map[string]*domain.User
	wishlists map[string]*wishlist
	items     map[string]*item
	donations map[string]*domain.Donation
	byKey     map[string]string

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:     make(map[string]*domain.User),
		wishlists: make(map[string]*wishlist),
		items:     make(map[string]*item),
		donations: make(map[string]*domain.Donation),
		byKey:     make(map[string]string),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserStore { return &UserStore{s: s} }

// Wishlists returns the wish-list repository view of the store.
func (s *Store) Wishlists() *WishlistStore { return &WishlistStore{s: s} }

// Donations returns the ledger repository view of the store.
func (s *Store) Donations() *DonationStore { return &DonationStore{s: s} }

// TxManager returns the transaction manager bound to the store.
func (s *Store) TxManager() *TxManager { return &TxManager{} }

// assemble copies a wish list with its items. Callers hold s.mu.
func (s *Store) assemble(w *wishlist) domain.Wishlist {
	out := w.data
	out.Tags = append([]string(nil), w.data.Tags...)
	out.Items = make([]domain.WishlistItem, 0, len(w.itemIDs))
	for _, id := range w.itemIDs {
		out.Items = append(out.Items, s.items[id].snapshot())
	}
	return out
}

func sortWishlists(lists []domain.Wishlist) {
	sort.SliceStable(lists, func(i, j int) bool {
		if !lists[i].CreatedAt.Equal(lists[j].CreatedAt) {
			return lists[i].CreatedAt.After(lists[j].CreatedAt)
		}
		return lists[i].ID < lists[j].ID
	})
}

func cloneItem(it domain.WishlistItem) domain.WishlistItem {
	out := it
	out.Donations = append([]domain.DonationSnapshot(nil), it.Donations...)
	if it.PurchaseProof != nil {
		p := *it.PurchaseProof
		out.PurchaseProof = &p
	}
	return out
}

func cloneDonation(d *domain.Donation) domain.Donation {
	out := *d
	if d.Item != nil {
		ref := *d.Item
		out.Item = &ref
	}
	return out
}
