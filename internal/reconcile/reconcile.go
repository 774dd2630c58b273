// Package reconcile folds donations into the wish-list items they target and
// drives the item status machine.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wishfund/internal/domain"
)

// Service applies funding through the store's atomic
// increment-and-conditionally-transition primitive.
type Service struct {
	wishlists domain.WishlistRepository
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(wishlists domain.WishlistRepository, logger zerolog.Logger) *Service {
	return &Service{
		wishlists: wishlists,
		logger:    logger.With().Str("component", "reconcile").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Apply adds the donation to its item exactly once per donation id. A repeat
// returns the current item with Applied=false and changes nothing.
func (s *Service) Apply(ctx context.Context, app domain.FundingApplication) (domain.FundingResult, error) {
	var v domain.Validator
	v.Check(strings.TrimSpace(app.DonationID) != "", "donation_id", "is required")
	v.Check(app.Item.ItemID != "" && app.Item.WishlistID != "", "item", "is required")
	v.Check(app.Amount.IsPositive(), "amount", "must be greater than 0")
	if err := v.Err(); err != nil {
		return domain.FundingResult{}, err
	}
	if app.Date.IsZero() {
		app.Date = s.now()
	}

	res, err := s.wishlists.ApplyFunding(ctx, app)
	if err != nil {
		return domain.FundingResult{}, fmt.Errorf("apply donation %s: %w", app.DonationID, err)
	}

	log := s.logger.Info()
	if !res.Applied {
		log = s.logger.Debug()
	}
	log.Str("donation_id", app.DonationID).
		Str("item_id", app.Item.ItemID).
		Str("amount", app.Amount.String()).
		Str("current_amount", res.Item.CurrentAmount.String()).
		Str("status", string(res.Item.Status)).
		Bool("applied", res.Applied).
		Msg("funding reconciled")
	return res, nil
}

// Actor identifies who asks for an owner-driven item transition.
type Actor struct {
	UserID string
}

// TransitionItem performs an owner-driven item transition: funded to
// purchased with a purchase proof, or active to cancelled. Funding an item is
// never requested directly.
func (s *Service) TransitionItem(
	ctx context.Context, actor Actor, ref domain.ItemRef, to domain.ItemStatus, proof *domain.PurchaseProof,
) (*domain.WishlistItem, error) {
	if !to.Valid() {
		return nil, domain.NewValidationError("status", "unknown item status")
	}

	loc, err := s.wishlists.LocateItem(ctx, ref.ItemID)
	if err != nil {
		return nil, err
	}
	if loc.Ref.WishlistID != ref.WishlistID {
		return nil, fmt.Errorf("%s in wishlist %s: %w", ref.ItemID, ref.WishlistID, domain.ErrItemNotFound)
	}
	if loc.OwnerID != actor.UserID {
		return nil, fmt.Errorf("item %s belongs to another user: %w", ref.ItemID, domain.ErrForbidden)
	}

	from := loc.Item.Status
	if to == domain.ItemFunded || !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("item %s: %s -> %s: %w", ref.ItemID, from, to, domain.ErrIllegalTransition)
	}

	if to == domain.ItemPurchased {
		if proof == nil || (strings.TrimSpace(proof.Image) == "" && strings.TrimSpace(proof.Description) == "") {
			return nil, domain.NewValidationError("purchase_proof", "image or description is required")
		}
		if proof.Date.IsZero() {
			proof.Date = s.now()
		}
	} else {
		proof = nil
	}

	item, err := s.wishlists.TransitionItem(ctx, loc.Ref, from, to, proof)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("item_id", ref.ItemID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("item transitioned")
	return item, nil
}
