package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"wishfund/internal/domain"
	"wishfund/internal/middleware"
	"wishfund/internal/reconcile"
)

type itemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Image       string          `json:"image"`
	Link        string          `json:"link"`
	Priority    string          `json:"priority"`
}

func (req itemRequest) item() domain.WishlistItem {
	return domain.WishlistItem{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    domain.Currency(req.Currency),
		Image:       req.Image,
		Link:        req.Link,
		Priority:    domain.Priority(req.Priority),
	}
}

type wishlistRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	IsPublic    *bool         `json:"is_public"`
	Category    string        `json:"category"`
	Tags        []string      `json:"tags"`
	Items       []itemRequest `json:"items"`
}

func (a *App) WishlistCreate(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.identity(w, r)
	if !ok {
		return
	}
	var req wishlistRequest
	if !a.decode(w, r, &req) {
		return
	}

	list := &domain.Wishlist{
		OwnerID:     viewer.UserID,
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic == nil || *req.IsPublic,
		Category:    domain.Category(req.Category),
		Tags:        req.Tags,
	}
	for _, it := range req.Items {
		list.Items = append(list.Items, it.item())
	}
	if err := list.Normalize(); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Wishlists.Create(r.Context(), list); err != nil {
		a.fail(w, r, err)
		return
	}
	created, err := a.Wishlists.GetByID(r.Context(), list.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, newWishlistView(*created))
}

// WishlistGet serves public lists to anyone and private lists to their owner
// and admins.
func (a *App) WishlistGet(w http.ResponseWriter, r *http.Request) {
	list, err := a.Wishlists.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !list.IsPublic {
		viewer, _ := middleware.IdentityFromContext(r.Context())
		if viewer.UserID != list.OwnerID && viewer.Role != domain.UserRoleAdmin {
			a.fail(w, r, fmt.Errorf("wishlist %s is private: %w", list.ID, domain.ErrForbidden))
			return
		}
	}
	a.json(w, http.StatusOK, newWishlistView(*list))
}

func (a *App) WishlistAddItem(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.identity(w, r)
	if !ok {
		return
	}
	var req itemRequest
	if !a.decode(w, r, &req) {
		return
	}

	list, err := a.Wishlists.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if list.OwnerID != viewer.UserID {
		a.fail(w, r, fmt.Errorf("wishlist %s: %w", list.ID, domain.ErrForbidden))
		return
	}

	it := req.item()
	if err := it.Normalize(); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Wishlists.AddItem(r.Context(), list.ID, &it); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, newItemView(it))
}

type itemStatusRequest struct {
	Status        string `json:"status"`
	PurchaseProof *struct {
		Image       string `json:"image"`
		Description string `json:"description"`
	} `json:"purchase_proof"`
}

func (a *App) WishlistItemStatus(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.identity(w, r)
	if !ok {
		return
	}
	var req itemStatusRequest
	if !a.decode(w, r, &req) {
		return
	}

	var proof *domain.PurchaseProof
	if req.PurchaseProof != nil {
		proof = &domain.PurchaseProof{Image: req.PurchaseProof.Image, Description: req.PurchaseProof.Description}
	}
	ref := domain.ItemRef{WishlistID: chi.URLParam(r, "id"), ItemID: chi.URLParam(r, "itemId")}
	item, err := a.Reconcile.TransitionItem(r.Context(), reconcile.Actor{UserID: viewer.UserID}, ref, domain.ItemStatus(req.Status), proof)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newItemView(*item))
}
