package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"wishfund/internal/domain"
)

const (
	dashboardTopDonors = 5
	dashboardTopItems  = 5
	dashboardRecent    = 10
)

// ItemTotal is the amount a single item received.
type ItemTotal struct {
	Ref    domain.ItemRef  `json:"item"`
	Name   string          `json:"name"`
	Total  decimal.Decimal `json:"total_amount"`
	Count  int             `json:"count"`
	latest time.Time
}

// Dashboard is the blogger landing view.
type Dashboard struct {
	WishlistCount int               `json:"total_wishlists"`
	ItemCount     int               `json:"total_wishlist_items"`
	Donations     PeriodTotals      `json:"donations"`
	TopDonors     []DonorStanding   `json:"top_donors"`
	TopItems      []ItemTotal       `json:"top_wishlist_items"`
	Recent        []domain.Donation `json:"-"`
}

// ComputeDashboard builds the dashboard from the recipient's wish lists and
// their received donations, newest first.
func ComputeDashboard(wishlists []domain.Wishlist, donations []domain.Donation, now time.Time, loc *time.Location) Dashboard {
	out := Dashboard{
		WishlistCount: len(wishlists),
		Donations:     ComputePeriodTotals(donations, now, loc),
		TopDonors:     DonorLeaderboard(donations).Top(dashboardTopDonors),
		TopItems:      make([]ItemTotal, 0),
	}

	names := make(map[string]string)
	for _, w := range wishlists {
		out.ItemCount += len(w.Items)
		for _, it := range w.Items {
			names[it.ID] = it.Name
		}
	}

	byItem := make(map[string]*ItemTotal)
	for _, d := range donations {
		if d.Item == nil {
			continue
		}
		t, ok := byItem[d.Item.ItemID]
		if !ok {
			t = &ItemTotal{Ref: *d.Item, Name: names[d.Item.ItemID]}
			byItem[d.Item.ItemID] = t
		}
		t.Total = t.Total.Add(d.Amount)
		t.Count++
		if d.CreatedAt.After(t.latest) {
			t.latest = d.CreatedAt
		}
	}
	for _, t := range byItem {
		out.TopItems = append(out.TopItems, *t)
	}
	sort.Slice(out.TopItems, func(i, j int) bool {
		a, b := out.TopItems[i], out.TopItems[j]
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c > 0
		}
		if !a.latest.Equal(b.latest) {
			return a.latest.After(b.latest)
		}
		return a.Ref.ItemID < b.Ref.ItemID
	})
	if len(out.TopItems) > dashboardTopItems {
		out.TopItems = out.TopItems[:dashboardTopItems]
	}

	out.Recent = donations
	if len(out.Recent) > dashboardRecent {
		out.Recent = out.Recent[:dashboardRecent]
	}
	return out
}
