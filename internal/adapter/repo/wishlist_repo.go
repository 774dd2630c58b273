package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"wishfund/internal/domain"
	"wishfund/internal/infra"
	"wishfund/internal/sqlinline"
)

// WishlistRepositoryPG implements domain.WishlistRepository. Items live in
// wishlist_items and their donation snapshots in item_donations.
type WishlistRepositoryPG struct {
	db infra.SQLExecutor
}

// NewWishlistRepository creates a new WishlistRepositoryPG.
func NewWishlistRepository(db infra.SQLExecutor) *WishlistRepositoryPG {
	return &WishlistRepositoryPG{db: db}
}

// Create inserts the wish list and any items it already carries. Callers
// that pass items should run it inside a transaction.
func (r *WishlistRepositoryPG) Create(ctx context.Context, w *domain.Wishlist) error {
	if strings.TrimSpace(w.ID) == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	w.UpdatedAt = w.CreatedAt
	if w.Tags == nil {
		w.Tags = []string{}
	}

	_, err := r.db.Exec(ctx, sqlinline.QInsertWishlist,
		w.ID, w.OwnerID, w.Title, w.Description, w.IsPublic, string(w.Category), w.Tags, w.CreatedAt)
	if err != nil {
		return mapError(err, domain.ErrUserNotFound, w.OwnerID)
	}

	for i := range w.Items {
		if err := r.AddItem(ctx, w.ID, &w.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetByID loads the wish list with its items and their snapshots.
func (r *WishlistRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Wishlist, error) {
	w, err := scanWishlist(r.db.QueryRow(ctx, sqlinline.QSelectWishlistByID, id))
	if err != nil {
		return nil, mapError(err, domain.ErrWishlistNotFound, id)
	}
	lists := []domain.Wishlist{*w}
	if err := r.attachItems(ctx, lists); err != nil {
		return nil, err
	}
	return &lists[0], nil
}

func (r *WishlistRepositoryPG) ListByOwner(ctx context.Context, ownerID string) ([]domain.Wishlist, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListWishlistsByOwner, ownerID)
	if err != nil {
		return nil, mapError(err, domain.ErrUserNotFound, ownerID)
	}
	return r.collect(ctx, rows)
}

func (r *WishlistRepositoryPG) ListPublic(ctx context.Context, category *domain.Category) ([]domain.Wishlist, error) {
	q := psql.Select(wishlistColumns...).
		From("wishlists").
		Where("is_public")
	if category != nil {
		q = q.Where("category = ?", string(*category))
	}
	q = q.OrderBy("created_at DESC", "id")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build public wishlist query: %w", err)
	}
	rows, err := r.db.Query(ctx, sqlinline.Mark(sqlinline.MarkListPublicWishlists, query), args...)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

func (r *WishlistRepositoryPG) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.QueryRow(ctx, sqlinline.QCountWishlists).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

// AddItem appends an active, unfunded item to the wish list.
func (r *WishlistRepositoryPG) AddItem(ctx context.Context, wishlistID string, item *domain.WishlistItem) error {
	if strings.TrimSpace(item.ID) == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.Status = domain.ItemActive
	item.CurrentAmount = decimal.Zero
	item.Donations = nil

	var id string
	err := r.db.QueryRow(ctx, sqlinline.QInsertItem,
		item.ID, wishlistID, item.Name, item.Description, item.Price.String(), string(item.Currency),
		item.Image, item.Link, string(item.Priority), item.CreatedAt,
	).Scan(&id)
	return mapError(err, domain.ErrWishlistNotFound, wishlistID)
}

// LocateItem finds an item in any wish list.
func (r *WishlistRepositoryPG) LocateItem(ctx context.Context, itemID string) (*domain.ItemLocation, error) {
	var loc domain.ItemLocation
	item, err := scanItem(r.db.QueryRow(ctx, sqlinline.QLocateItem, itemID), &loc.Ref.WishlistID, &loc.OwnerID)
	if err != nil {
		return nil, mapError(err, domain.ErrItemNotFound, itemID)
	}
	loc.Ref.ItemID = item.ID
	loc.Item = *item
	return &loc, nil
}

// ApplyFunding folds the donation into the item with QApplyFunding. The
// returned item carries the new amount and status but not the snapshot list.
func (r *WishlistRepositoryPG) ApplyFunding(ctx context.Context, app domain.FundingApplication) (domain.FundingResult, error) {
	item, err := scanItem(r.db.QueryRow(ctx, sqlinline.QApplyFunding,
		app.DonationID,
		app.Item.WishlistID,
		app.Item.ItemID,
		stringOrEmpty(app.DonorID),
		app.Amount.String(),
		app.Message,
		app.IsAnonymous,
		app.Date,
	))
	if err == nil {
		return domain.FundingResult{Item: *item, Applied: true}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.FundingResult{}, mapError(err, domain.ErrItemNotFound, app.Item.ItemID)
	}

	var applied bool
	item, err = scanItem(r.db.QueryRow(ctx, sqlinline.QSelectItemFundingState,
		app.DonationID, app.Item.WishlistID, app.Item.ItemID), &applied)
	if err != nil {
		return domain.FundingResult{}, mapError(err, domain.ErrItemNotFound, app.Item.ItemID)
	}
	if applied {
		return domain.FundingResult{Item: *item, Applied: false}, nil
	}
	return domain.FundingResult{}, fmt.Errorf("item %s is %s: %w", item.ID, item.Status, domain.ErrItemNotActive)
}

// TransitionItem moves the item out of from, recording proof when given.
func (r *WishlistRepositoryPG) TransitionItem(
	ctx context.Context, ref domain.ItemRef, from, to domain.ItemStatus, proof *domain.PurchaseProof,
) (*domain.WishlistItem, error) {
	var (
		image, description *string
		date               *time.Time
	)
	if proof != nil {
		image, description, date = &proof.Image, &proof.Description, &proof.Date
	}

	item, err := scanItem(r.db.QueryRow(ctx, sqlinline.QTransitionItem,
		ref.WishlistID, ref.ItemID, string(from), string(to), image, description, date))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapError(err, domain.ErrItemNotFound, ref.ItemID)
	}

	current, err := scanItem(r.db.QueryRow(ctx, sqlinline.QSelectItem, ref.WishlistID, ref.ItemID))
	if err != nil {
		return nil, mapError(err, domain.ErrItemNotFound, ref.ItemID)
	}
	return nil, fmt.Errorf("item %s is %s, not %s: %w", ref.ItemID, current.Status, from, domain.ErrIllegalTransition)
}

func (r *WishlistRepositoryPG) collect(ctx context.Context, rows pgx.Rows) ([]domain.Wishlist, error) {
	lists := make([]domain.Wishlist, 0)
	for rows.Next() {
		w, err := scanWishlist(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		lists = append(lists, *w)
	}
	// The connection must be free before the item queries run.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// attachItems loads items and snapshots for every list with two queries.
func (r *WishlistRepositoryPG) attachItems(ctx context.Context, lists []domain.Wishlist) error {
	if len(lists) == 0 {
		return nil
	}
	index := make(map[string]int, len(lists))
	ids := make([]string, 0, len(lists))
	for i := range lists {
		index[lists[i].ID] = i
		ids = append(ids, lists[i].ID)
	}

	rows, err := r.db.Query(ctx, sqlinline.QListItemsByWishlists, ids)
	if err != nil {
		return err
	}
	type itemPos struct{ list, item int }
	itemIndex := make(map[string]itemPos)
	itemIDs := make([]string, 0)
	for rows.Next() {
		var wishlistID string
		item, err := scanItem(rows, &wishlistID)
		if err != nil {
			rows.Close()
			return err
		}
		li := index[wishlistID]
		lists[li].Items = append(lists[li].Items, *item)
		itemIndex[item.ID] = itemPos{list: li, item: len(lists[li].Items) - 1}
		itemIDs = append(itemIDs, item.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(itemIDs) == 0 {
		return nil
	}

	rows, err = r.db.Query(ctx, sqlinline.QListSnapshotsByItems, itemIDs)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			itemID, amount string
			snap           domain.DonationSnapshot
		)
		if err := rows.Scan(&itemID, &snap.DonationID, &snap.DonorID, &amount, &snap.Message,
			&snap.IsAnonymous, &snap.Date); err != nil {
			return err
		}
		if snap.Amount, err = domain.ParseAmount(amount); err != nil {
			return err
		}
		pos, ok := itemIndex[itemID]
		if !ok {
			continue
		}
		it := &lists[pos.list].Items[pos.item]
		it.Donations = append(it.Donations, snap)
	}
	return rows.Err()
}

var _ domain.WishlistRepository = (*WishlistRepositoryPG)(nil)
