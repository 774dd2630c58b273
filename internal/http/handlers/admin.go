package handlers

import (
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"wishfund/internal/aggregate"
	"wishfund/internal/domain"
)

func (a *App) AdminStats(w http.ResponseWriter, r *http.Request) {
	now := a.clock()
	win := aggregate.WindowsAt(now, a.Location)

	var (
		users     aggregate.UserCounts
		wishlists int
		donations []domain.Donation
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) { users.Total, err = a.Users.Count(ctx); return err })
	g.Go(func() (err error) { users.Today, err = a.Users.CountCreatedSince(ctx, win.Today); return err })
	g.Go(func() (err error) { users.ThisWeek, err = a.Users.CountCreatedSince(ctx, win.ThisWeek); return err })
	g.Go(func() (err error) { users.ThisMonth, err = a.Users.CountCreatedSince(ctx, win.ThisMonth); return err })
	g.Go(func() (err error) { wishlists, err = a.Wishlists.Count(ctx); return err })
	g.Go(func() (err error) { donations, err = a.Donations.ListForStats(ctx, "", time.Time{}); return err })
	if err := g.Wait(); err != nil {
		a.fail(w, r, err)
		return
	}

	a.json(w, http.StatusOK, aggregate.ComputePlatformStats(users, wishlists, donations, now, a.Location))
}
