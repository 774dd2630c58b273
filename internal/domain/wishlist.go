package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemStatus enumerates wish-list item lifecycle states.
type ItemStatus string

const (
	ItemActive    ItemStatus = "active"
	ItemFunded    ItemStatus = "funded"
	ItemPurchased ItemStatus = "purchased"
	ItemCancelled ItemStatus = "cancelled"
)

// Owner-driven transitions. active -> funded is never requested directly; the
// reconciler performs it when the funded amount reaches the price.
var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemActive:    {ItemFunded, ItemCancelled},
	ItemFunded:    {ItemPurchased},
	ItemPurchased: nil,
	ItemCancelled: nil,
}

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	_, ok := itemTransitions[s]
	return ok
}

// CanTransitionTo reports whether an item may move from s to next.
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	for _, allowed := range itemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Priority ranks items inside a wish list.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Category groups wish lists in the public feed.
type Category string

const (
	CategoryGames       Category = "games"
	CategoryElectronics Category = "electronics"
	CategoryClothing    Category = "clothing"
	CategoryBooks       Category = "books"
	CategoryStreaming   Category = "streaming"
	CategoryHobby       Category = "hobby"
	CategoryOther       Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryGames, CategoryElectronics, CategoryClothing, CategoryBooks,
		CategoryStreaming, CategoryHobby, CategoryOther:
		return true
	}
	return false
}

// DonationSnapshot is the copy of a donation kept on the item it funded.
type DonationSnapshot struct {
	DonationID  string
	DonorID     *string
	Amount      decimal.Decimal
	Message     string
	IsAnonymous bool
	Date        time.Time
}

// PurchaseProof documents that a funded item was bought.
type PurchaseProof struct {
	Image       string
	Description string
	Date        time.Time
}

// WishlistItem is owned by its parent Wishlist.
type WishlistItem struct {
	ID            string
	Name          string
	Description   string
	Price         decimal.Decimal
	Currency      Currency
	Image         string
	Link          string
	Priority      Priority
	Status        ItemStatus
	CurrentAmount decimal.Decimal
	Donations     []DonationSnapshot
	PurchaseProof *PurchaseProof
	CreatedAt     time.Time
}

// SnapshotTotal sums the amounts of every recorded donation snapshot.
func (i WishlistItem) SnapshotTotal() decimal.Decimal {
	total := decimal.Zero
	for _, d := range i.Donations {
		total = total.Add(d.Amount)
	}
	return total
}

// Wishlist is the aggregate root holding an ordered list of items.
type Wishlist struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	IsPublic    bool
	Category    Category
	Tags        []string
	Items       []WishlistItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item returns the embedded item with the given id.
func (w *Wishlist) Item(id string) (*WishlistItem, bool) {
	for i := range w.Items {
		if w.Items[i].ID == id {
			return &w.Items[i], true
		}
	}
	return nil, false
}

// FundingApplication is the input of one reconciliation, keyed by DonationID.
type FundingApplication struct {
	DonationID  string
	Item        ItemRef
	DonorID     *string
	Amount      decimal.Decimal
	Message     string
	IsAnonymous bool
	Date        time.Time
}

// FundingResult reports the item state after a reconciliation attempt.
// Applied is false when the donation had already been folded into the item.
type FundingResult struct {
	Item    WishlistItem
	Applied bool
}
