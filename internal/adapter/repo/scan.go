package repo

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	"wishfund/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type rowScanner interface {
	Scan(dest ...any) error
}

var donationColumns = []string{
	"id::text", "donor_id::text", "recipient_id::text", "wishlist_id::text", "item_id::text",
	"amount::text", "currency", "message", "status", "payment_method", "payment_id", "fee::text",
	"is_anonymous", "idempotency_key", "created_at", "updated_at",
}

var wishlistColumns = []string{
	"id::text", "owner_id::text", "title", "description", "is_public", "category", "tags",
	"created_at", "updated_at",
}

func scanDonation(row rowScanner) (*domain.Donation, error) {
	var (
		d                         domain.Donation
		donorID, wishlistID, item *string
		key                       *string
		amount, fee               string
		currency, status, method  string
	)
	if err := row.Scan(
		&d.ID, &donorID, &d.RecipientID, &wishlistID, &item,
		&amount, &currency, &d.Message, &status, &method, &d.PaymentID, &fee,
		&d.IsAnonymous, &key, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if d.Amount, err = domain.ParseAmount(amount); err != nil {
		return nil, err
	}
	if d.Fee, err = domain.ParseAmount(fee); err != nil {
		return nil, err
	}
	d.DonorID = donorID
	d.IdempotencyKey = key
	d.Currency = domain.Currency(currency)
	d.Status = domain.DonationStatus(status)
	d.PaymentMethod = domain.PaymentMethod(method)
	if wishlistID != nil && item != nil {
		d.Item = &domain.ItemRef{WishlistID: *wishlistID, ItemID: *item}
	}
	return &d, nil
}

// scanItem reads the item column list shared by every item query; prefix
// receives any columns selected before it.
func scanItem(row rowScanner, prefix ...any) (*domain.WishlistItem, error) {
	var (
		it                           domain.WishlistItem
		price, current               string
		currency, priority, status   string
		proofImage, proofDescription *string
		proofDate                    *time.Time
	)
	dest := append(prefix,
		&it.ID, &it.Name, &it.Description, &price, &currency, &it.Image, &it.Link,
		&priority, &status, &current, &proofImage, &proofDescription, &proofDate, &it.CreatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	if it.Price, err = domain.ParseAmount(price); err != nil {
		return nil, err
	}
	if it.CurrentAmount, err = domain.ParseAmount(current); err != nil {
		return nil, err
	}
	it.Currency = domain.Currency(currency)
	it.Priority = domain.Priority(priority)
	it.Status = domain.ItemStatus(status)
	if proofDate != nil {
		it.PurchaseProof = &domain.PurchaseProof{Date: *proofDate}
		if proofImage != nil {
			it.PurchaseProof.Image = *proofImage
		}
		if proofDescription != nil {
			it.PurchaseProof.Description = *proofDescription
		}
	}
	return &it, nil
}

func scanWishlist(row rowScanner) (*domain.Wishlist, error) {
	var (
		w        domain.Wishlist
		category string
	)
	if err := row.Scan(&w.ID, &w.OwnerID, &w.Title, &w.Description, &w.IsPublic, &category,
		&w.Tags, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.Category = domain.Category(category)
	return &w, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func itemRefArgs(ref *domain.ItemRef) (string, string) {
	if ref == nil {
		return "", ""
	}
	return ref.WishlistID, ref.ItemID
}
