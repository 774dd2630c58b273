package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"wishfund/internal/domain"
	"wishfund/internal/infra"
	"wishfund/internal/sqlinline"
)

// DonationRepositoryPG implements domain.DonationRepository using PostgreSQL.
type DonationRepositoryPG struct {
	db infra.SQLExecutor
}

// NewDonationRepository creates a new donation repo.
func NewDonationRepository(db infra.SQLExecutor) *DonationRepositoryPG {
	return &DonationRepositoryPG{db: db}
}

// Create inserts a new donation record. A known idempotency key loads the
// stored donation into d instead and reports created=false.
func (r *DonationRepositoryPG) Create(ctx context.Context, d *domain.Donation) (bool, error) {
	if strings.TrimSpace(d.ID) == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	d.UpdatedAt = d.CreatedAt
	wishlistID, itemID := itemRefArgs(d.Item)

	var id string
	err := r.db.QueryRow(ctx, sqlinline.QInsertDonation,
		d.ID,
		stringOrEmpty(d.DonorID),
		d.RecipientID,
		wishlistID,
		itemID,
		d.Amount.String(),
		string(d.Currency),
		d.Message,
		string(d.Status),
		string(d.PaymentMethod),
		d.PaymentID,
		d.Fee.String(),
		d.IsAnonymous,
		stringOrEmpty(d.IdempotencyKey),
		d.CreatedAt,
	).Scan(&id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows) && d.IdempotencyKey != nil:
		existing, err := r.GetByIdempotencyKey(ctx, *d.IdempotencyKey)
		if err != nil {
			return false, err
		}
		*d = *existing
		return false, nil
	case isFKViolation(err, donorFKConstraint):
		return false, fmt.Errorf("donor %s: %w", stringOrEmpty(d.DonorID), domain.ErrUserNotFound)
	default:
		return false, mapError(err, domain.ErrRecipientNotFound, d.ID)
	}
}

// GetByID fetches a donation by UUID.
func (r *DonationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	d, err := scanDonation(r.db.QueryRow(ctx, sqlinline.QSelectDonationByID, id))
	if err != nil {
		return nil, mapError(err, domain.ErrDonationNotFound, id)
	}
	return d, nil
}

// GetByIdempotencyKey fetches the donation submitted with the given key.
func (r *DonationRepositoryPG) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Donation, error) {
	d, err := scanDonation(r.db.QueryRow(ctx, sqlinline.QSelectDonationByIdempotencyKey, key))
	if err != nil {
		return nil, mapError(err, domain.ErrDonationNotFound, key)
	}
	return d, nil
}

// UpdateStatus applies a conditional status change, optionally overriding the fee.
func (r *DonationRepositoryPG) UpdateStatus(
	ctx context.Context, id string, from, to domain.DonationStatus, fee *decimal.Decimal,
) (*domain.Donation, error) {
	var feeArg *string
	if fee != nil {
		s := fee.String()
		feeArg = &s
	}

	d, err := scanDonation(r.db.QueryRow(ctx, sqlinline.QUpdateDonationStatus, id, string(from), string(to), feeArg))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapError(err, domain.ErrDonationNotFound, id)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("donation %s is %s, not %s: %w", id, current.Status, from, domain.ErrIllegalTransition)
}

// List returns one newest-first page of the user's received or sent donations.
func (r *DonationRepositoryPG) List(ctx context.Context, filter domain.DonationFilter) (*domain.DonationPage, error) {
	limit := domain.ClampLimit(filter.Limit, domain.DefaultDonationPageSize, domain.MaxDonationPageSize)

	column := "recipient_id"
	if filter.Direction == domain.DirectionSent {
		column = "donor_id"
	}

	q := psql.Select(donationColumns...).
		From("donations").
		Where(column+" = ?::uuid", filter.UserID)
	if filter.Cursor != "" {
		c, err := domain.DecodeCursor(filter.Cursor)
		if err != nil {
			return nil, err
		}
		q = q.Where("(created_at, id) < (?::timestamptz, ?::uuid)", c.CreatedAt, c.ID)
	}
	q = q.OrderBy("created_at DESC", "id DESC").Limit(uint64(limit + 1))

	items, err := r.query(ctx, sqlinline.MarkListDonations, q)
	if err != nil {
		return nil, mapError(err, domain.ErrUserNotFound, filter.UserID)
	}

	page := &domain.DonationPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		page.NextCursor = domain.EncodeCursor(domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

// ListForStats loads the raw ledger rows aggregation works on.
func (r *DonationRepositoryPG) ListForStats(ctx context.Context, recipientID string, since time.Time) ([]domain.Donation, error) {
	q := psql.Select(donationColumns...).From("donations")
	if recipientID != "" {
		q = q.Where("recipient_id = ?::uuid", recipientID)
	}
	if !since.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": since})
	}
	q = q.OrderBy("created_at DESC", "id DESC")

	items, err := r.query(ctx, sqlinline.MarkListDonationStats, q)
	if err != nil {
		return nil, mapError(err, domain.ErrUserNotFound, recipientID)
	}
	return items, nil
}

func (r *DonationRepositoryPG) query(ctx context.Context, marker string, q sq.SelectBuilder) ([]domain.Donation, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build donation query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlinline.Mark(marker, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Donation, 0)
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var _ domain.DonationRepository = (*DonationRepositoryPG)(nil)
