package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"wishfund/internal/domain"
)

// WishlistStats summarizes the funding progress of one wish list.
type WishlistStats struct {
	ID                   string          `json:"id"`
	Title                string          `json:"title"`
	IsPublic             bool            `json:"is_public"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	ItemsCount           int             `json:"items_count"`
	CompletedItemsCount  int             `json:"completed_items_count"`
	TotalPrice           decimal.Decimal `json:"total_price"`
	TotalDonationAmount  decimal.Decimal `json:"total_donation_amount"`
	TotalDonationsCount  int             `json:"total_donations_count"`
	CompletionPercentage int64           `json:"completion_percentage"`
}

// ComputeWishlistStats counts every item that left the active state as
// completed.
func ComputeWishlistStats(w domain.Wishlist) WishlistStats {
	s := WishlistStats{
		ID:                  w.ID,
		Title:               w.Title,
		IsPublic:            w.IsPublic,
		CreatedAt:           w.CreatedAt,
		UpdatedAt:           w.UpdatedAt,
		ItemsCount:          len(w.Items),
		TotalPrice:          decimal.Zero,
		TotalDonationAmount: decimal.Zero,
	}
	for _, it := range w.Items {
		if it.Status != domain.ItemActive {
			s.CompletedItemsCount++
		}
		s.TotalPrice = s.TotalPrice.Add(it.Price)
		s.TotalDonationAmount = s.TotalDonationAmount.Add(it.CurrentAmount)
		s.TotalDonationsCount += len(it.Donations)
	}
	s.CompletionPercentage = domain.Percent(s.TotalDonationAmount, s.TotalPrice)
	return s
}

// ItemProgress is round(100 * currentAmount / price).
func ItemProgress(it domain.WishlistItem) int64 {
	return domain.Percent(it.CurrentAmount, it.Price)
}
