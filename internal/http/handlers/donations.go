package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"wishfund/internal/domain"
	"wishfund/internal/ledger"
	"wishfund/internal/middleware"
)

type donationRequest struct {
	RecipientID   string          `json:"recipient_id"`
	WishlistID    string          `json:"wishlist_id"`
	ItemID        string          `json:"item_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Message       string          `json:"message"`
	PaymentMethod string          `json:"payment_method"`
	PaymentID     string          `json:"payment_id"`
	IsAnonymous   bool            `json:"is_anonymous"`
}

// DonationsCreate records a donation. Anonymous callers are allowed; a replay
// with a known Idempotency-Key answers 200 with the stored donation.
func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if !a.decode(w, r, &req) {
		return
	}

	viewer, _ := middleware.IdentityFromContext(r.Context())
	in := ledger.RecordInput{
		RecipientID:    req.RecipientID,
		WishlistID:     req.WishlistID,
		ItemID:         req.ItemID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Message:        req.Message,
		PaymentMethod:  req.PaymentMethod,
		PaymentID:      req.PaymentID,
		IsAnonymous:    req.IsAnonymous,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if viewer.UserID != "" {
		donor := viewer.UserID
		in.DonorID = &donor
	}

	d, created, err := a.Ledger.RecordDonation(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	a.json(w, status, newDonationView(*d, viewer))
}

func (a *App) DonationsReceived(w http.ResponseWriter, r *http.Request) {
	a.listDonations(w, r, domain.DirectionReceived)
}

func (a *App) DonationsSent(w http.ResponseWriter, r *http.Request) {
	a.listDonations(w, r, domain.DirectionSent)
}

func (a *App) listDonations(w http.ResponseWriter, r *http.Request, dir domain.Direction) {
	viewer, ok := a.identity(w, r)
	if !ok {
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	page, err := a.Ledger.ListDonations(r.Context(), domain.DonationFilter{
		UserID:    viewer.UserID,
		Direction: dir,
		Cursor:    r.URL.Query().Get("cursor"),
		Limit:     limit,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp := map[string]any{"items": donationViews(page.Items, viewer)}
	if page.NextCursor != "" {
		resp["next_cursor"] = page.NextCursor
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) DonationGet(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.identity(w, r)
	if !ok {
		return
	}
	d, err := a.Ledger.GetDonation(r.Context(), chi.URLParam(r, "id"), ledger.Viewer{UserID: viewer.UserID, Role: viewer.Role})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newDonationView(*d, viewer))
}

type donationStatusRequest struct {
	Status string           `json:"status"`
	Fee    *decimal.Decimal `json:"fee"`
}

// DonationStatusUpdate is called by admins or the payment callback bridge.
func (a *App) DonationStatusUpdate(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.identity(w, r)
	if !ok {
		return
	}
	var req donationStatusRequest
	if !a.decode(w, r, &req) {
		return
	}
	d, err := a.Ledger.TransitionStatus(r.Context(), chi.URLParam(r, "id"), domain.DonationStatus(req.Status), req.Fee)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newDonationView(*d, viewer))
}
