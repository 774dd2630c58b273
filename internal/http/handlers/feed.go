package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"wishfund/internal/domain"
	"wishfund/internal/feed"
)

func (a *App) FeedPopular(w http.ResponseWriter, r *http.Request) {
	a.feed(w, r, func(limit int) ([]feed.Entry, error) {
		return a.Feed.Popular(r.Context(), limit)
	})
}

func (a *App) FeedNew(w http.ResponseWriter, r *http.Request) {
	a.feed(w, r, func(limit int) ([]feed.Entry, error) {
		return a.Feed.Newest(r.Context(), limit)
	})
}

func (a *App) FeedCategory(w http.ResponseWriter, r *http.Request) {
	category := domain.Category(chi.URLParam(r, "category"))
	a.feed(w, r, func(limit int) ([]feed.Entry, error) {
		return a.Feed.ByCategory(r.Context(), category, limit)
	})
}

func (a *App) FeedSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	a.feed(w, r, func(limit int) ([]feed.Entry, error) {
		return a.Feed.Search(r.Context(), q, limit)
	})
}

func (a *App) feed(w http.ResponseWriter, r *http.Request, load func(limit int) ([]feed.Entry, error)) {
	limit, err := queryLimit(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	entries, err := load(limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": feedViews(entries)})
}
