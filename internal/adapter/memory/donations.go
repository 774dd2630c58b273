package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wishfund/internal/domain"
)

// DonationStore implements domain.DonationRepository.
type DonationStore struct {
	s *Store
}

func (d *DonationStore) Create(ctx context.Context, don *domain.Donation) (bool, error) {
	if don.ID == "" {
		don.ID = uuid.NewString()
	}
	if don.CreatedAt.IsZero() {
		don.CreatedAt = d.s.now()
	}
	don.UpdatedAt = don.CreatedAt

	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	if don.IdempotencyKey != nil && *don.IdempotencyKey != "" {
		if id, ok := d.s.byKey[*don.IdempotencyKey]; ok {
			*don = cloneDonation(d.s.donations[id])
			return false, nil
		}
	}
	if _, ok := d.s.donations[don.ID]; ok {
		return false, fmt.Errorf("donation %s: %w", don.ID, domain.ErrAlreadyExists)
	}
	if _, ok := d.s.users[don.RecipientID]; !ok {
		return false, fmt.Errorf("%s: %w", don.RecipientID, domain.ErrRecipientNotFound)
	}

	stored := cloneDonation(don)
	d.s.donations[don.ID] = &stored
	key := ""
	if don.IdempotencyKey != nil && *don.IdempotencyKey != "" {
		key = *don.IdempotencyKey
		d.s.byKey[key] = don.ID
	}

	id := don.ID
	onRollback(ctx, func() {
		d.s.mu.Lock()
		defer d.s.mu.Unlock()
		delete(d.s.donations, id)
		if key != "" {
			delete(d.s.byKey, key)
		}
	})
	return true, nil
}

func (d *DonationStore) GetByID(_ context.Context, id string) (*domain.Donation, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	don, ok := d.s.donations[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrDonationNotFound)
	}
	out := cloneDonation(don)
	return &out, nil
}

func (d *DonationStore) GetByIdempotencyKey(_ context.Context, key string) (*domain.Donation, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	id, ok := d.s.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrDonationNotFound)
	}
	out := cloneDonation(d.s.donations[id])
	return &out, nil
}

func (d *DonationStore) UpdateStatus(
	ctx context.Context, id string, from, to domain.DonationStatus, fee *decimal.Decimal,
) (*domain.Donation, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	don, ok := d.s.donations[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrDonationNotFound)
	}
	if don.Status != from {
		return nil, fmt.Errorf("donation %s is %s, not %s: %w", id, don.Status, from, domain.ErrIllegalTransition)
	}

	prevStatus, prevFee, prevUpdated := don.Status, don.Fee, don.UpdatedAt
	don.Status = to
	if fee != nil {
		don.Fee = *fee
	}
	don.UpdatedAt = d.s.now()
	onRollback(ctx, func() {
		d.s.mu.Lock()
		don.Status, don.Fee, don.UpdatedAt = prevStatus, prevFee, prevUpdated
		d.s.mu.Unlock()
	})

	out := cloneDonation(don)
	return &out, nil
}

func (d *DonationStore) List(_ context.Context, filter domain.DonationFilter) (*domain.DonationPage, error) {
	limit := domain.ClampLimit(filter.Limit, domain.DefaultDonationPageSize, domain.MaxDonationPageSize)
	var cursor *domain.Cursor
	if filter.Cursor != "" {
		c, err := domain.DecodeCursor(filter.Cursor)
		if err != nil {
			return nil, err
		}
		cursor = &c
	}

	all := d.collect(func(don *domain.Donation) bool {
		if filter.Direction == domain.DirectionSent {
			return don.DonorID != nil && *don.DonorID == filter.UserID
		}
		return don.RecipientID == filter.UserID
	})

	page := &domain.DonationPage{Items: make([]domain.Donation, 0, limit)}
	for _, don := range all {
		if cursor != nil && !cursor.After(don) {
			continue
		}
		if len(page.Items) == limit {
			last := page.Items[limit-1]
			page.NextCursor = domain.EncodeCursor(domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		page.Items = append(page.Items, don)
	}
	return page, nil
}

func (d *DonationStore) ListForStats(_ context.Context, recipientID string, since time.Time) ([]domain.Donation, error) {
	return d.collect(func(don *domain.Donation) bool {
		if recipientID != "" && don.RecipientID != recipientID {
			return false
		}
		return since.IsZero() || !don.CreatedAt.Before(since)
	}), nil
}

// collect returns matching donations newest first, ties broken by id desc.
func (d *DonationStore) collect(keep func(*domain.Donation) bool) []domain.Donation {
	d.s.mu.RLock()
	out := make([]domain.Donation, 0)
	for _, don := range d.s.donations {
		if keep(don) {
			out = append(out, cloneDonation(don))
		}
	}
	d.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

var _ domain.DonationRepository = (*DonationStore)(nil)
