package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// UserRepository defines the user-store boundary the ledger depends on.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	SetRole(ctx context.Context, id string, role UserRole) error
	CreditBalance(ctx context.Context, id string, delta decimal.Decimal) error
	Count(ctx context.Context) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

// ItemLocation is the result of looking an item up across every wish list.
type ItemLocation struct {
	Ref     ItemRef
	OwnerID string
	Item    WishlistItem
}

// WishlistRepository owns wish-list aggregates and their embedded items.
type WishlistRepository interface {
	Create(ctx context.Context, wishlist *Wishlist) error
	GetByID(ctx context.Context, id string) (*Wishlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Wishlist, error)
	// ListPublic returns public wish lists, newest first, optionally restricted
	// to one category.
	ListPublic(ctx context.Context, category *Category) ([]Wishlist, error)
	Count(ctx context.Context) (int, error)
	AddItem(ctx context.Context, wishlistID string, item *WishlistItem) error
	LocateItem(ctx context.Context, itemID string) (*ItemLocation, error)

	// ApplyFunding atomically appends the donation snapshot, increments the
	// funded amount and moves an active item to funded once it reaches its
	// price. It is keyed by DonationID: repeating it is a no-op that reports
	// Applied=false.
	ApplyFunding(ctx context.Context, app FundingApplication) (FundingResult, error)

	// TransitionItem moves an item from one status to another only if it is
	// still in the from status.
	TransitionItem(ctx context.Context, ref ItemRef, from, to ItemStatus, proof *PurchaseProof) (*WishlistItem, error)
}

// DonationFilter selects one page of a donor's or recipient's ledger.
type DonationFilter struct {
	UserID    string
	Direction Direction
	Cursor    string
	Limit     int
}

// DonationRepository persists the ledger.
type DonationRepository interface {
	// Create inserts the donation. When the idempotency key is already known it
	// loads the existing donation into d and returns created=false.
	Create(ctx context.Context, d *Donation) (created bool, err error)
	GetByID(ctx context.Context, id string) (*Donation, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Donation, error)
	// UpdateStatus changes the status only if it is still from.
	UpdateStatus(ctx context.Context, id string, from, to DonationStatus, fee *decimal.Decimal) (*Donation, error)
	List(ctx context.Context, filter DonationFilter) (*DonationPage, error)
	// ListForStats returns donations newest first. An empty recipientID means
	// every recipient, a zero since means all time.
	ListForStats(ctx context.Context, recipientID string, since time.Time) ([]Donation, error)
}

// TxManager runs fn so that every store call made with the derived context
// commits or rolls back together.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
