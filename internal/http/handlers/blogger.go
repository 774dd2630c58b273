package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"wishfund/internal/aggregate"
	"wishfund/internal/domain"
	"wishfund/internal/middleware"
)

const donorLookupConcurrency = 8

// donorProfiles loads the users behind the standings in parallel. Deleted
// donors are left out of the map.
func (a *App) donorProfiles(ctx context.Context, standings []aggregate.DonorStanding) (map[string]domain.User, error) {
	var mu sync.Mutex
	users := make(map[string]domain.User, len(standings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(donorLookupConcurrency)
	for _, s := range standings {
		id := s.DonorID
		g.Go(func() error {
			u, err := a.Users.GetByID(gctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			users[id] = *u
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return users, nil
}

func (a *App) BloggerDashboard(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.identity(w, r)
	if !ok {
		return
	}

	var (
		user      *domain.User
		wishlists []domain.Wishlist
		donations []domain.Donation
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		user, err = a.Users.GetByID(gctx, viewer.UserID)
		return err
	})
	g.Go(func() (err error) {
		wishlists, err = a.Wishlists.ListByOwner(gctx, viewer.UserID)
		return err
	})
	g.Go(func() (err error) {
		donations, err = a.Donations.ListForStats(gctx, viewer.UserID, time.Time{})
		return err
	})
	if err := g.Wait(); err != nil {
		a.fail(w, r, err)
		return
	}

	dash := aggregate.ComputeDashboard(wishlists, donations, a.clock(), a.Location)
	users, err := a.donorProfiles(r.Context(), dash.TopDonors)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	top := make([]donorView, 0, len(dash.TopDonors))
	for _, s := range dash.TopDonors {
		top = append(top, newDonorView(s, users, false))
	}

	a.json(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":       user.ID,
			"username": user.Username,
			"avatar":   user.Avatar,
			"role":     user.Role,
			"balance":  user.Balance,
		},
		"stats": map[string]any{
			"total_wishlists":      dash.WishlistCount,
			"total_wishlist_items": dash.ItemCount,
			"donations":            dash.Donations,
		},
		"top_donors":         top,
		"top_wishlist_items": dash.TopItems,
		"recent_donations":   donationViews(dash.Recent, viewer),
	})
}

func (a *App) BloggerChart(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.identity(w, r)
	if !ok {
		return
	}
	period, err := aggregate.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	now := a.clock()
	// One year and a day covers every period window.
	donations, err := a.Donations.ListForStats(r.Context(), viewer.UserID, now.AddDate(-1, 0, -1))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	series, err := aggregate.TimeSeries(donations, period, now, a.Location, middleware.LocaleFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, series)
}

func (a *App) BloggerWishlistStats(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.identity(w, r)
	if !ok {
		return
	}
	lists, err := a.Wishlists.ListByOwner(r.Context(), viewer.UserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	stats := make([]aggregate.WishlistStats, 0, len(lists))
	for _, l := range lists {
		stats = append(stats, aggregate.ComputeWishlistStats(l))
	}
	a.json(w, http.StatusOK, stats)
}

func (a *App) BloggerDonors(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.identity(w, r)
	if !ok {
		return
	}
	donations, err := a.Donations.ListForStats(r.Context(), viewer.UserID, time.Time{})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	board := aggregate.DonorLeaderboard(donations)
	users, err := a.donorProfiles(r.Context(), board.Donors)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	donors := make([]donorView, 0, len(board.Donors))
	for _, s := range board.Donors {
		donors = append(donors, newDonorView(s, users, true))
	}
	a.json(w, http.StatusOK, map[string]any{
		"donors":    donors,
		"anonymous": board.Anonymous,
		"total":     board.Total,
	})
}
