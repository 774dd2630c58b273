package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"wishfund/internal/domain"
	"wishfund/internal/http/handlers"
	"wishfund/internal/middleware"
)

// Options configure the middleware stack.
type Options struct {
	JWTSecret       string
	AllowedOrigins  []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	Logger          zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/healthz", app.Health)
	r.Get("/readyz", app.Readiness)

	auth := middleware.AuthJWT(opts.JWTSecret)
	optional := middleware.OptionalAuth(opts.JWTSecret)
	limit := middleware.RateLimit(rateLimit(opts.RateLimitPerMin), time.Minute)

	r.Route("/donations", func(r chi.Router) {
		r.With(optional, limit).Post("/", app.DonationsCreate)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Get("/received", app.DonationsReceived)
			r.Get("/sent", app.DonationsSent)
			r.Get("/{id}", app.DonationGet)
			r.With(middleware.RequireRole(domain.UserRoleAdmin)).Put("/{id}/status", app.DonationStatusUpdate)
		})
	})

	r.Route("/feed", func(r chi.Router) {
		r.Use(limit)
		r.Get("/popular", app.FeedPopular)
		r.Get("/new", app.FeedNew)
		r.Get("/category/{category}", app.FeedCategory)
		r.Get("/search", app.FeedSearch)
	})

	r.Route("/wishlists", func(r chi.Router) {
		r.With(optional).Get("/{id}", app.WishlistGet)

		r.Group(func(r chi.Router) {
			r.Use(auth, limit)
			r.Post("/", app.WishlistCreate)
			r.Post("/{id}/items", app.WishlistAddItem)
			r.Put("/{id}/items/{itemId}/status", app.WishlistItemStatus)
		})
	})

	r.With(auth).Get("/profile/balance", app.ProfileBalance)

	r.Route("/blogger", func(r chi.Router) {
		r.Use(auth, middleware.RequireRole(domain.UserRoleBlogger, domain.UserRoleAdmin))
		r.Get("/dashboard", app.BloggerDashboard)
		r.Get("/donations/chart", app.BloggerChart)
		r.Get("/wishlists/stats", app.BloggerWishlistStats)
		r.Get("/donors", app.BloggerDonors)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth, middleware.RequireRole(domain.UserRoleAdmin))
		r.Get("/stats", app.AdminStats)
	})

	return r
}

func rateLimit(perMin int) int {
	if perMin <= 0 {
		return 60
	}
	return perMin
}
