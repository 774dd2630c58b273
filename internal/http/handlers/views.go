package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"wishfund/internal/aggregate"
	"wishfund/internal/domain"
	"wishfund/internal/feed"
	"wishfund/internal/middleware"
)

type donationView struct {
	ID            string          `json:"id"`
	DonorID       *string         `json:"donor_id"`
	RecipientID   string          `json:"recipient_id"`
	Item          *domain.ItemRef `json:"item,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Message       string          `json:"message"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	PaymentID     string          `json:"payment_id,omitempty"`
	Fee           decimal.Decimal `json:"fee"`
	IsAnonymous   bool            `json:"is_anonymous"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// newDonationView hides the donor of an anonymous donation from everyone but
// the donor and admins.
func newDonationView(d domain.Donation, viewer middleware.Identity) donationView {
	v := donationView{
		ID:            d.ID,
		DonorID:       d.DonorID,
		RecipientID:   d.RecipientID,
		Item:          d.Item,
		Amount:        d.Amount,
		Currency:      string(d.Currency),
		Message:       d.Message,
		Status:        string(d.Status),
		PaymentMethod: string(d.PaymentMethod),
		PaymentID:     d.PaymentID,
		Fee:           d.Fee,
		IsAnonymous:   d.IsAnonymous,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.IsAnonymous && viewer.Role != domain.UserRoleAdmin && (d.DonorID == nil || *d.DonorID != viewer.UserID) {
		v.DonorID = nil
	}
	return v
}

func donationViews(ds []domain.Donation, viewer middleware.Identity) []donationView {
	out := make([]donationView, 0, len(ds))
	for _, d := range ds {
		out = append(out, newDonationView(d, viewer))
	}
	return out
}

type snapshotView struct {
	DonationID  string          `json:"donation_id"`
	DonorID     *string         `json:"donor_id"`
	Amount      decimal.Decimal `json:"amount"`
	Message     string          `json:"message"`
	IsAnonymous bool            `json:"is_anonymous"`
	Date        time.Time       `json:"date"`
}

type proofView struct {
	Image       string    `json:"image"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

type itemView struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Image         string          `json:"image,omitempty"`
	Link          string          `json:"link,omitempty"`
	Priority      string          `json:"priority"`
	Status        string          `json:"status"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Progress      int64           `json:"progress"`
	Donations     []snapshotView  `json:"donations"`
	PurchaseProof *proofView      `json:"purchase_proof,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func newItemView(it domain.WishlistItem) itemView {
	v := itemView{
		ID:            it.ID,
		Name:          it.Name,
		Description:   it.Description,
		Price:         it.Price,
		Currency:      string(it.Currency),
		Image:         it.Image,
		Link:          it.Link,
		Priority:      string(it.Priority),
		Status:        string(it.Status),
		CurrentAmount: it.CurrentAmount,
		Progress:      aggregate.ItemProgress(it),
		Donations:     make([]snapshotView, 0, len(it.Donations)),
		CreatedAt:     it.CreatedAt,
	}
	for _, s := range it.Donations {
		sv := snapshotView{
			DonationID:  s.DonationID,
			DonorID:     s.DonorID,
			Amount:      s.Amount,
			Message:     s.Message,
			IsAnonymous: s.IsAnonymous,
			Date:        s.Date,
		}
		if s.IsAnonymous {
			sv.DonorID = nil
		}
		v.Donations = append(v.Donations, sv)
	}
	if it.PurchaseProof != nil {
		v.PurchaseProof = &proofView{
			Image:       it.PurchaseProof.Image,
			Description: it.PurchaseProof.Description,
			Date:        it.PurchaseProof.Date,
		}
	}
	return v
}

type wishlistView struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsPublic    bool       `json:"is_public"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	Items       []itemView `json:"items"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func newWishlistView(w domain.Wishlist) wishlistView {
	v := wishlistView{
		ID:          w.ID,
		OwnerID:     w.OwnerID,
		Title:       w.Title,
		Description: w.Description,
		IsPublic:    w.IsPublic,
		Category:    string(w.Category),
		Tags:        w.Tags,
		Items:       make([]itemView, 0, len(w.Items)),
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	for _, it := range w.Items {
		v.Items = append(v.Items, newItemView(it))
	}
	return v
}

type feedEntryView struct {
	WishlistID    string   `json:"wishlist_id"`
	WishlistTitle string   `json:"wishlist_title"`
	OwnerID       string   `json:"owner_id"`
	Category      string   `json:"category"`
	Item          itemView `json:"item"`
}

func feedViews(entries []feed.Entry) []feedEntryView {
	out := make([]feedEntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, feedEntryView{
			WishlistID:    e.WishlistID,
			WishlistTitle: e.WishlistTitle,
			OwnerID:       e.OwnerID,
			Category:      string(e.Category),
			Item:          newItemView(e.Item),
		})
	}
	return out
}

type donorRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

type donorDonationView struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Message   string          `json:"message"`
	Item      *domain.ItemRef `json:"item,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type donorView struct {
	Donor         donorRef            `json:"donor"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Count         int                 `json:"count"`
	FirstDonation time.Time           `json:"first_donation"`
	LastDonation  time.Time           `json:"last_donation"`
	Donations     []donorDonationView `json:"donations,omitempty"`
}

func newDonorView(s aggregate.DonorStanding, users map[string]domain.User, withDonations bool) donorView {
	ref := donorRef{ID: s.DonorID}
	if u, ok := users[s.DonorID]; ok {
		ref.Username = u.Username
		ref.Avatar = u.Avatar
	}
	v := donorView{
		Donor:         ref,
		TotalAmount:   s.Total,
		Count:         s.Count,
		FirstDonation: s.First,
		LastDonation:  s.Last,
	}
	if withDonations {
		v.Donations = make([]donorDonationView, 0, len(s.Donations))
		for _, d := range s.Donations {
			v.Donations = append(v.Donations, donorDonationView{
				ID: d.ID, Amount: d.Amount, Message: d.Message, Item: d.Item, CreatedAt: d.CreatedAt,
			})
		}
	}
	return v
}
