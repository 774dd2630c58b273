// Package ledger records donations and owns their status lifecycle.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"wishfund/internal/domain"
)

// FundingMode selects when a donation is folded into its item.
type FundingMode string

const (
	// FundingImmediate reconciles at acceptance, inside the insert transaction.
	FundingImmediate FundingMode = "immediate"
	// FundingOnCompletion reconciles when the donation becomes completed.
	FundingOnCompletion FundingMode = "on_completion"
)

// Reconciler applies a donation's monetary effect to its target item.
type Reconciler interface {
	Apply(ctx context.Context, app domain.FundingApplication) (domain.FundingResult, error)
}

// Config holds the ledger policy knobs.
type Config struct {
	Mode FundingMode
	// FeePercent is the platform fee in percent of the amount, 0..100.
	FeePercent decimal.Decimal
}

// Service is the donation ledger.
type Service struct {
	users      domain.UserRepository
	wishlists  domain.WishlistRepository
	donations  domain.DonationRepository
	tx         domain.TxManager
	reconciler Reconciler
	cfg        Config
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(
	users domain.UserRepository,
	wishlists domain.WishlistRepository,
	donations domain.DonationRepository,
	tx domain.TxManager,
	reconciler Reconciler,
	cfg Config,
	logger zerolog.Logger,
) *Service {
	if cfg.Mode == "" {
		cfg.Mode = FundingImmediate
	}
	return &Service{
		users:      users,
		wishlists:  wishlists,
		donations:  donations,
		tx:         tx,
		reconciler: reconciler,
		cfg:        cfg,
		logger:     logger.With().Str("component", "ledger").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RecordInput is a donation intent as submitted by a donor.
type RecordInput struct {
	RecipientID    string
	WishlistID     string
	ItemID         string
	Amount         decimal.Decimal
	Currency       string
	Message        string
	PaymentMethod  string
	PaymentID      string
	IsAnonymous    bool
	DonorID        *string
	IdempotencyKey string
}

func (in RecordInput) validate() error {
	var v domain.Validator
	v.Check(strings.TrimSpace(in.RecipientID) != "", "recipient_id", "is required")
	switch {
	case !in.Amount.IsPositive():
		v.Add("amount", "must be greater than 0")
	case !in.Amount.Equal(in.Amount.Round(2)):
		v.Add("amount", "at most 2 decimal places")
	}
	if in.Currency != "" {
		if _, err := domain.ParseCurrency(in.Currency); err != nil {
			v.Add("currency", "must be one of RUB, USD, EUR")
		}
	}
	v.Check(utf8.RuneCountInString(in.Message) <= domain.MaxDonationMessageLength,
		"message", fmt.Sprintf("must be at most %d characters", domain.MaxDonationMessageLength))
	if in.PaymentMethod != "" {
		v.Check(domain.PaymentMethod(in.PaymentMethod).Valid(), "payment_method", "must be one of card, paypal, crypto, other")
	}
	v.Check(in.WishlistID == "" || in.ItemID != "", "item_id", "is required with wishlist_id")
	return v.Err()
}

// RecordDonation validates and persists a pending donation. With a known
// idempotency key the stored donation is returned and created is false.
func (s *Service) RecordDonation(ctx context.Context, in RecordInput) (*domain.Donation, bool, error) {
	if err := in.validate(); err != nil {
		return nil, false, err
	}

	var key *string
	if k := strings.TrimSpace(in.IdempotencyKey); k != "" {
		key = &k
		existing, err := s.donations.GetByIdempotencyKey(ctx, k)
		switch {
		case err == nil:
			return existing, false, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, false, err
		}
	}

	if _, err := s.users.GetByID(ctx, in.RecipientID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, fmt.Errorf("%s: %w", in.RecipientID, domain.ErrRecipientNotFound)
		}
		return nil, false, err
	}

	cur := domain.DefaultCurrency
	if in.Currency != "" {
		cur, _ = domain.ParseCurrency(in.Currency)
	}

	var ref *domain.ItemRef
	if in.ItemID != "" {
		loc, err := s.wishlists.LocateItem(ctx, in.ItemID)
		if err != nil {
			return nil, false, err
		}
		// The item id alone identifies the item; a wishlist id, when sent, must agree.
		if in.WishlistID != "" && loc.Ref.WishlistID != in.WishlistID {
			return nil, false, fmt.Errorf("%s in wishlist %s: %w", in.ItemID, in.WishlistID, domain.ErrItemNotFound)
		}
		if loc.OwnerID != in.RecipientID {
			return nil, false, domain.NewValidationError("item_id", "item does not belong to the recipient")
		}
		if loc.Item.Status != domain.ItemActive {
			return nil, false, fmt.Errorf("item %s is %s: %w", in.ItemID, loc.Item.Status, domain.ErrItemNotActive)
		}
		switch {
		case in.Currency == "":
			cur = loc.Item.Currency
		case cur != loc.Item.Currency:
			return nil, false, domain.NewValidationError("currency", "must match the item currency "+string(loc.Item.Currency))
		}
		ref = &loc.Ref
	}

	method := domain.PaymentCard
	if in.PaymentMethod != "" {
		method = domain.PaymentMethod(in.PaymentMethod)
	}

	d := &domain.Donation{
		DonorID:        in.DonorID,
		RecipientID:    in.RecipientID,
		Item:           ref,
		Amount:         in.Amount,
		Currency:       cur,
		Message:        strings.TrimSpace(in.Message),
		Status:         domain.DonationPending,
		PaymentMethod:  method,
		PaymentID:      in.PaymentID,
		Fee:            s.fee(in.Amount),
		IsAnonymous:    in.IsAnonymous || in.DonorID == nil,
		IdempotencyKey: key,
		CreatedAt:      s.now(),
	}

	var created bool
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.donations.Create(ctx, d)
		if err != nil || !created {
			return err
		}
		if s.cfg.Mode == FundingImmediate && d.Item != nil {
			_, err = s.reconciler.Apply(ctx, applicationFor(d))
		}
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Info().
			Str("donation_id", d.ID).
			Str("recipient_id", d.RecipientID).
			Str("amount", d.Amount.String()).
			Str("currency", string(d.Currency)).
			Bool("targets_item", d.Item != nil).
			Msg("donation recorded")
	}
	return d, created, nil
}

func (s *Service) fee(amount decimal.Decimal) decimal.Decimal {
	if !s.cfg.FeePercent.IsPositive() {
		return decimal.Zero
	}
	return amount.Mul(s.cfg.FeePercent).Div(decimal.NewFromInt(100)).Round(2)
}

func applicationFor(d *domain.Donation) domain.FundingApplication {
	return domain.FundingApplication{
		DonationID:  d.ID,
		Item:        *d.Item,
		DonorID:     d.DonorID,
		Amount:      d.Amount,
		Message:     d.Message,
		IsAnonymous: d.IsAnonymous,
		Date:        d.CreatedAt,
	}
}

// TransitionStatus moves a pending donation to a terminal status. Completion
// credits the recipient with the net amount and, in on_completion mode, funds
// the target item.
func (s *Service) TransitionStatus(
	ctx context.Context, id string, to domain.DonationStatus, fee *decimal.Decimal,
) (*domain.Donation, error) {
	if !to.Valid() {
		return nil, domain.NewValidationError("status", "must be one of pending, completed, failed, refunded")
	}

	var out *domain.Donation
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.donations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(to) {
			return fmt.Errorf("donation %s: %s -> %s: %w", id, current.Status, to, domain.ErrIllegalTransition)
		}
		if fee != nil && (fee.IsNegative() || fee.GreaterThan(current.Amount)) {
			return domain.NewValidationError("fee", "must be between 0 and the donation amount")
		}

		updated, err := s.donations.UpdateStatus(ctx, id, current.Status, to, fee)
		if err != nil {
			return err
		}
		if to == domain.DonationCompleted {
			if err := s.users.CreditBalance(ctx, updated.RecipientID, updated.Net()); err != nil {
				return fmt.Errorf("credit recipient %s: %w", updated.RecipientID, err)
			}
			if s.cfg.Mode == FundingOnCompletion && updated.Item != nil {
				if err := s.reconcileOnCompletion(ctx, updated); err != nil {
					return err
				}
			}
		}
		out = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("donation_id", id).
		Str("status", string(out.Status)).
		Str("fee", out.Fee.String()).
		Msg("donation status changed")
	return out, nil
}

// reconcileOnCompletion funds the item of a completed donation. An item that
// stopped accepting donations after acceptance keeps the money on the balance
// only.
func (s *Service) reconcileOnCompletion(ctx context.Context, d *domain.Donation) error {
	_, err := s.reconciler.Apply(ctx, applicationFor(d))
	if errors.Is(err, domain.ErrItemNotActive) || errors.Is(err, domain.ErrItemNotFound) {
		s.logger.Warn().Err(err).
			Str("donation_id", d.ID).
			Str("item_id", d.Item.ItemID).
			Msg("completed donation not applied to item")
		return nil
	}
	return err
}

// ListDonations returns one newest-first page of a user's donations.
func (s *Service) ListDonations(ctx context.Context, filter domain.DonationFilter) (*domain.DonationPage, error) {
	if filter.Direction == "" {
		filter.Direction = domain.DirectionReceived
	}
	if filter.Direction != domain.DirectionReceived && filter.Direction != domain.DirectionSent {
		return nil, domain.NewValidationError("direction", "must be received or sent")
	}
	if filter.Limit < 0 {
		return nil, domain.NewValidationError("limit", "must not be negative")
	}
	return s.donations.List(ctx, filter)
}

// Viewer is the caller of a read that is restricted to the parties of a donation.
type Viewer struct {
	UserID string
	Role   domain.UserRole
}

// GetDonation returns a donation to its donor, its recipient or an admin.
func (s *Service) GetDonation(ctx context.Context, id string, viewer Viewer) (*domain.Donation, error) {
	d, err := s.donations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer.Role == domain.UserRoleAdmin || d.RecipientID == viewer.UserID ||
		(d.DonorID != nil && *d.DonorID == viewer.UserID) {
		return d, nil
	}
	return nil, fmt.Errorf("donation %s: %w", id, domain.ErrForbidden)
}
