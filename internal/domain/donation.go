package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationStatus enumerates donation lifecycle states.
type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationCompleted DonationStatus = "completed"
	DonationFailed    DonationStatus = "failed"
	DonationRefunded  DonationStatus = "refunded"
)

var donationTransitions = map[DonationStatus][]DonationStatus{
	DonationPending:   {DonationCompleted, DonationFailed, DonationRefunded},
	DonationCompleted: nil,
	DonationFailed:    nil,
	DonationRefunded:  nil,
}

// Valid reports whether s is a known donation status.
func (s DonationStatus) Valid() bool {
	_, ok := donationTransitions[s]
	return ok
}

// CanTransitionTo reports whether the ledger may move a donation from s to next.
func (s DonationStatus) CanTransitionTo(next DonationStatus) bool {
	for _, allowed := range donationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentMethod tags how the donor intends to pay.
type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentPayPal PaymentMethod = "paypal"
	PaymentCrypto PaymentMethod = "crypto"
	PaymentOther  PaymentMethod = "other"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentPayPal, PaymentCrypto, PaymentOther:
		return true
	}
	return false
}

// MaxDonationMessageLength bounds the donor message in runes.
const MaxDonationMessageLength = 200

// ItemRef addresses an item embedded in a wish list.
type ItemRef struct {
	WishlistID string `json:"wishlist_id"`
	ItemID     string `json:"item_id"`
}

// Donation represents a supporter contribution record.
type Donation struct {
	ID             string
	DonorID        *string
	RecipientID    string
	Item           *ItemRef
	Amount         decimal.Decimal
	Currency       Currency
	Message        string
	Status         DonationStatus
	PaymentMethod  PaymentMethod
	PaymentID      string
	Fee            decimal.Decimal
	IsAnonymous    bool
	IdempotencyKey *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Net is the amount credited to the recipient balance on completion.
func (d Donation) Net() decimal.Decimal {
	return d.Amount.Sub(d.Fee)
}

// HasDonor reports whether the donation is attributable to a known, non-anonymous donor.
func (d Donation) HasDonor() bool {
	return !d.IsAnonymous && d.DonorID != nil && *d.DonorID != ""
}

// Direction selects which side of the ledger a listing reads.
type Direction string

const (
	DirectionReceived Direction = "received"
	DirectionSent     Direction = "sent"
)

// DonationPage is one page of a keyset-paginated donation listing.
type DonationPage struct {
	Items      []Donation
	NextCursor string
}
