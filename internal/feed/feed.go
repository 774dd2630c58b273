// Package feed ranks the active items of public wish lists.
package feed

import (
	"context"
	"sort"
	"strings"

	"wishfund/internal/domain"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Entry is one ranked item together with the wish list it belongs to.
type Entry struct {
	WishlistID    string
	WishlistTitle string
	OwnerID       string
	Category      domain.Category
	Item          domain.WishlistItem
	Progress      int64
}

// Entries flattens active items of public wish lists, keeping the order of
// lists and the item order inside each list.
func Entries(lists []domain.Wishlist) []Entry {
	out := make([]Entry, 0)
	for _, w := range lists {
		if !w.IsPublic {
			continue
		}
		for _, it := range w.Items {
			if it.Status != domain.ItemActive {
				continue
			}
			out = append(out, Entry{
				WishlistID:    w.ID,
				WishlistTitle: w.Title,
				OwnerID:       w.OwnerID,
				Category:      w.Category,
				Item:          it,
				Progress:      domain.Percent(it.CurrentAmount, it.Price),
			})
		}
	}
	return out
}

func limit(entries []Entry, n int) []Entry {
	n = domain.ClampLimit(n, DefaultLimit, MaxLimit)
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}

// Popular ranks by number of donations received.
func Popular(lists []domain.Wishlist, n int) []Entry {
	entries := Entries(lists)
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Item.Donations) > len(entries[j].Item.Donations)
	})
	return limit(entries, n)
}

// Newest ranks by item creation time.
func Newest(lists []domain.Wishlist, n int) []Entry {
	entries := Entries(lists)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Item.CreatedAt.After(entries[j].Item.CreatedAt)
	})
	return limit(entries, n)
}

// ByCategory keeps the lists of one category, then ranks like Newest.
func ByCategory(lists []domain.Wishlist, category domain.Category, n int) []Entry {
	filtered := make([]domain.Wishlist, 0, len(lists))
	for _, w := range lists {
		if w.Category == category {
			filtered = append(filtered, w)
		}
	}
	return Newest(filtered, n)
}

// Search matches query case-insensitively in item names and descriptions and
// ranks by the number of non-overlapping occurrences.
func Search(lists []domain.Wishlist, query string, n int) ([]Entry, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, domain.NewValidationError("q", "is required")
	}

	type hit struct {
		entry Entry
		score int
	}
	hits := make([]hit, 0)
	for _, e := range Entries(lists) {
		score := strings.Count(strings.ToLower(e.Item.Name), q) +
			strings.Count(strings.ToLower(e.Item.Description), q)
		if score > 0 {
			hits = append(hits, hit{entry: e, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]Entry, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.entry)
	}
	return limit(out, n), nil
}

// Service loads public wish lists and ranks them per request.
type Service struct {
	wishlists domain.WishlistRepository
}

func NewService(wishlists domain.WishlistRepository) *Service {
	return &Service{wishlists: wishlists}
}

func (s *Service) Popular(ctx context.Context, n int) ([]Entry, error) {
	lists, err := s.wishlists.ListPublic(ctx, nil)
	if err != nil {
		return nil, err
	}
	return Popular(lists, n), nil
}

func (s *Service) Newest(ctx context.Context, n int) ([]Entry, error) {
	lists, err := s.wishlists.ListPublic(ctx, nil)
	if err != nil {
		return nil, err
	}
	return Newest(lists, n), nil
}

func (s *Service) ByCategory(ctx context.Context, category domain.Category, n int) ([]Entry, error) {
	if !category.Valid() {
		return nil, domain.NewValidationError("category", "unknown category")
	}
	lists, err := s.wishlists.ListPublic(ctx, &category)
	if err != nil {
		return nil, err
	}
	return ByCategory(lists, category, n), nil
}

func (s *Service) Search(ctx context.Context, query string, n int) ([]Entry, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.NewValidationError("q", "is required")
	}
	lists, err := s.wishlists.ListPublic(ctx, nil)
	if err != nil {
		return nil, err
	}
	return Search(lists, query, n)
}
