package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wishfund/internal/adapter/memory"
	"wishfund/internal/domain"
	"wishfund/internal/http/handlers"
	"wishfund/internal/middleware"
)

const secret = "router-test-secret-0123456789abcdef"

type harness struct {
	t       *testing.T
	srv     *httptest.Server
	store   *memory.Store
	blogger *domain.User
	fan     *domain.User
	admin   *domain.User
	list    *domain.Wishlist
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	h := &harness{t: t, store: store}
	h.blogger = &domain.User{Username: "streamer", Role: domain.UserRoleBlogger}
	h.fan = &domain.User{Username: "fan", Role: domain.UserRoleUser}
	h.admin = &domain.User{Username: "root", Role: domain.UserRoleAdmin}
	for _, u := range []*domain.User{h.blogger, h.fan, h.admin} {
		require.NoError(t, store.Users().Create(ctx, u))
	}
	h.list = &domain.Wishlist{
		OwnerID:  h.blogger.ID,
		Title:    "Stream setup",
		IsPublic: true,
		Category: domain.CategoryStreaming,
		Items: []domain.WishlistItem{
			{Name: "Microphone", Description: "USB condenser mic", Price: decimal.NewFromInt(1000), Currency: domain.CurrencyRUB},
			{Name: "Webcam", Price: decimal.NewFromInt(500), Currency: domain.CurrencyRUB},
		},
	}
	require.NoError(t, store.Wishlists().Create(ctx, h.list))

	app := handlers.NewApp(handlers.Deps{
		Users:     store.Users(),
		Wishlists: store.Wishlists(),
		Donations: store.Donations(),
		Tx:        store.TxManager(),
		Logger:    zerolog.Nop(),
	})
	router := NewRouter(app, Options{
		JWTSecret:       secret,
		AllowedOrigins:  []string{"http://localhost:3000"},
		RateLimitPerMin: 1000,
		DefaultLocale:   "ru",
		Logger:          zerolog.Nop(),
	})
	h.srv = httptest.NewServer(router)
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) token(u *domain.User) string {
	tok, err := middleware.SignJWT(secret, middleware.NewClaims(u.ID, u.Role, time.Hour))
	require.NoError(h.t, err)
	return tok
}

func (h *harness) do(method, path string, as *domain.User, body any, headers ...string) (int, map[string]any) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.srv.URL+path, &buf)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+h.token(as))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		var raw json.RawMessage
		require.NoError(h.t, json.NewDecoder(resp.Body).Decode(&raw))
		if len(raw) > 0 && raw[0] == '{' {
			require.NoError(h.t, json.Unmarshal(raw, &out))
		} else {
			out = map[string]any{"list": raw}
		}
	}
	return resp.StatusCode, out
}

func (h *harness) donate(as *domain.User, itemIdx int, amount string, extra map[string]any, headers ...string) (int, map[string]any) {
	body := map[string]any{
		"recipient_id": h.blogger.ID,
		"wishlist_id":  h.list.ID,
		"item_id":      h.list.Items[itemIdx].ID,
		"amount":       amount,
	}
	for k, v := range extra {
		body[k] = v
	}
	return h.do(http.MethodPost, "/donations", as, body, headers...)
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthAndReadiness(t *testing.T) {
	h := newHarness(t)
	code, body := h.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, _ = h.do(http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestCreateDonationFlow(t *testing.T) {
	h := newHarness(t)

	code, body := h.donate(h.fan, 0, "400", map[string]any{"message": "Удачи!"})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "400", body["amount"])
	assert.Equal(t, h.fan.ID, body["donor_id"])
	donationID := body["id"].(string)

	code, body = h.do(http.MethodGet, "/wishlists/"+h.list.ID, nil, nil)
	require.Equal(t, http.StatusOK, code)
	items := body["items"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, "400", first["current_amount"])
	assert.EqualValues(t, 40, first["progress"])

	code, body = h.do(http.MethodGet, "/donations/"+donationID, h.blogger, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, donationID, body["id"])

	code, body = h.do(http.MethodGet, "/donations/"+donationID, h.admin, nil)
	assert.Equal(t, http.StatusOK, code)

	other := &domain.User{Username: "stranger"}
	require.NoError(t, h.store.Users().Create(context.Background(), other))
	code, body = h.do(http.MethodGet, "/donations/"+donationID, other, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", errorCode(body))
}

func TestCreateDonationAnonymousCaller(t *testing.T) {
	h := newHarness(t)
	code, body := h.donate(nil, 1, "100", nil)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, true, body["is_anonymous"])
	assert.Nil(t, body["donor_id"])
}

func TestCreateDonationByItemID(t *testing.T) {
	h := newHarness(t)
	code, body := h.do(http.MethodPost, "/donations", h.fan, map[string]any{
		"recipient_id": h.blogger.ID,
		"item_id":      h.list.Items[0].ID,
		"amount":       "150",
	})
	require.Equal(t, http.StatusCreated, code, body)
	item := body["item"].(map[string]any)
	assert.Equal(t, h.list.ID, item["wishlist_id"])
	assert.Equal(t, h.list.Items[0].ID, item["item_id"])

	loc, err := h.store.Wishlists().LocateItem(context.Background(), h.list.Items[0].ID)
	require.NoError(t, err)
	assert.True(t, loc.Item.CurrentAmount.Equal(decimal.NewFromInt(150)))

	code, body = h.do(http.MethodPost, "/donations", h.fan, map[string]any{
		"recipient_id": h.blogger.ID,
		"wishlist_id":  h.list.ID,
		"amount":       "150",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", errorCode(body))
}

func TestCreateDonationIdempotencyKey(t *testing.T) {
	h := newHarness(t)
	code, first := h.donate(h.fan, 0, "300", nil, "Idempotency-Key", "abc-123")
	require.Equal(t, http.StatusCreated, code)

	code, second := h.donate(h.fan, 0, "300", nil, "Idempotency-Key", "abc-123")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, first["id"], second["id"])

	loc, err := h.store.Wishlists().LocateItem(context.Background(), h.list.Items[0].ID)
	require.NoError(t, err)
	assert.True(t, loc.Item.CurrentAmount.Equal(decimal.NewFromInt(300)))
}

func TestCreateDonationErrors(t *testing.T) {
	h := newHarness(t)

	code, body := h.donate(h.fan, 0, "0", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", errorCode(body))
	fields := body["error"].(map[string]any)["fields"].([]any)
	assert.Equal(t, "amount", fields[0].(map[string]any)["field"])
	assert.Equal(t, "Ошибка валидации", body["error"].(map[string]any)["message"])

	code, body = h.do(http.MethodPost, "/donations", h.fan, map[string]any{
		"recipient_id": "00000000-0000-0000-0000-000000000000", "amount": "10",
	}, "Accept-Language", "en-US")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Not found", body["error"].(map[string]any)["message"])

	code, _ = h.do(http.MethodPost, "/donations", h.fan, map[string]any{"amount": "10", "surprise": true})
	assert.Equal(t, http.StatusBadRequest, code)

	// Fund the webcam fully, then try again.
	code, _ = h.donate(h.fan, 1, "500", nil)
	require.Equal(t, http.StatusCreated, code)
	code, body = h.donate(h.fan, 1, "1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "item_not_active", errorCode(body))
}

func TestConcurrentDonationsFundItemOnce(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	for _, amount := range []string{"400", "600"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, h.srv.URL+"/donations", bytes.NewBufferString(
				`{"recipient_id":"`+h.blogger.ID+`","wishlist_id":"`+h.list.ID+`","item_id":"`+h.list.Items[0].ID+`","amount":"`+amount+`"}`))
			req.Header.Set("Authorization", "Bearer "+h.token(h.fan))
			resp, err := http.DefaultClient.Do(req)
			if assert.NoError(t, err) {
				assert.Equal(t, http.StatusCreated, resp.StatusCode)
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	loc, err := h.store.Wishlists().LocateItem(context.Background(), h.list.Items[0].ID)
	require.NoError(t, err)
	assert.True(t, loc.Item.CurrentAmount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, domain.ItemFunded, loc.Item.Status)
	assert.Len(t, loc.Item.Donations, 2)
}

func TestDonationListingAndStatus(t *testing.T) {
	h := newHarness(t)
	var ids []string
	for i := 0; i < 3; i++ {
		code, body := h.donate(h.fan, 0, "10", nil)
		require.Equal(t, http.StatusCreated, code)
		ids = append(ids, body["id"].(string))
	}

	code, body := h.do(http.MethodGet, "/donations/received?limit=2", h.blogger, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 2)
	cursor := body["next_cursor"].(string)

	code, body = h.do(http.MethodGet, "/donations/received?limit=2&cursor="+cursor, h.blogger, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)
	assert.Nil(t, body["next_cursor"])

	code, body = h.do(http.MethodGet, "/donations/sent", h.fan, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 3)

	code, _ = h.do(http.MethodGet, "/donations/sent", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = h.do(http.MethodPut, "/donations/"+ids[0]+"/status", h.blogger, map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusForbidden, code)

	code, body = h.do(http.MethodPut, "/donations/"+ids[0]+"/status", h.admin, map[string]any{"status": "completed", "fee": "1"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "completed", body["status"])

	code, body = h.do(http.MethodPut, "/donations/"+ids[0]+"/status", h.admin, map[string]any{"status": "refunded"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "illegal_transition", errorCode(body))

	code, body = h.do(http.MethodGet, "/profile/balance", h.blogger, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "9", body["balance"])
}

func TestWishlistLifecycle(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(http.MethodPost, "/wishlists", h.fan, map[string]any{
		"title":     "Birthday",
		"is_public": false,
		"items":     []map[string]any{{"name": "Book", "price": "250"}},
	})
	require.Equal(t, http.StatusCreated, code, body)
	listID := body["id"].(string)
	assert.Equal(t, "other", body["category"])
	item := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "medium", item["priority"])
	assert.Equal(t, "RUB", item["currency"])
	itemID := item["id"].(string)

	code, _ = h.do(http.MethodGet, "/wishlists/"+listID, nil, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = h.do(http.MethodGet, "/wishlists/"+listID, h.fan, nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = h.do(http.MethodPost, "/wishlists", h.fan, map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", errorCode(body))

	code, _ = h.do(http.MethodPost, "/wishlists/"+listID+"/items", h.blogger, map[string]any{"name": "Pen", "price": "5"})
	assert.Equal(t, http.StatusForbidden, code)
	code, body = h.do(http.MethodPost, "/wishlists/"+listID+"/items", h.fan, map[string]any{"name": "Pen", "price": "5"})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "active", body["status"])

	statusPath := "/wishlists/" + listID + "/items/" + itemID + "/status"
	code, body = h.do(http.MethodPut, statusPath, h.fan, map[string]any{"status": "purchased"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "illegal_transition", errorCode(body))

	code, body = h.do(http.MethodPut, statusPath, h.fan, map[string]any{"status": "cancelled"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "cancelled", body["status"])
}

func TestPurchaseFundedItem(t *testing.T) {
	h := newHarness(t)
	code, _ := h.donate(h.fan, 1, "500", nil)
	require.Equal(t, http.StatusCreated, code)

	path := "/wishlists/" + h.list.ID + "/items/" + h.list.Items[1].ID + "/status"
	code, _ = h.do(http.MethodPut, path, h.fan, map[string]any{"status": "purchased", "purchase_proof": map[string]any{"image": "x.png"}})
	assert.Equal(t, http.StatusForbidden, code)

	code, body := h.do(http.MethodPut, path, h.blogger, map[string]any{"status": "purchased"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", errorCode(body))

	code, body = h.do(http.MethodPut, path, h.blogger, map[string]any{
		"status": "purchased", "purchase_proof": map[string]any{"image": "https://cdn.example/receipt.png"},
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "purchased", body["status"])
	assert.NotNil(t, body["purchase_proof"])
}

func TestFeedRoutes(t *testing.T) {
	h := newHarness(t)
	code, _ := h.donate(h.fan, 1, "100", nil)
	require.Equal(t, http.StatusCreated, code)

	code, body := h.do(http.MethodGet, "/feed/popular", nil, nil)
	require.Equal(t, http.StatusOK, code)
	items := body["items"].([]any)
	require.Len(t, items, 2)
	top := items[0].(map[string]any)["item"].(map[string]any)
	assert.Equal(t, "Webcam", top["name"])

	code, body = h.do(http.MethodGet, "/feed/new?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)

	code, body = h.do(http.MethodGet, "/feed/category/streaming", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 2)

	code, _ = h.do(http.MethodGet, "/feed/category/cars", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = h.do(http.MethodGet, "/feed/search?q=MIC", nil, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["items"], 1)

	code, _ = h.do(http.MethodGet, "/feed/search", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(http.MethodGet, "/feed/new?limit=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBloggerRoutes(t *testing.T) {
	h := newHarness(t)
	code, _ := h.donate(h.fan, 0, "300", nil)
	require.Equal(t, http.StatusCreated, code)
	code, _ = h.donate(h.fan, 1, "200", map[string]any{"is_anonymous": true})
	require.Equal(t, http.StatusCreated, code)
	code, _ = h.donate(nil, 1, "50", nil)
	require.Equal(t, http.StatusCreated, code)

	code, _ = h.do(http.MethodGet, "/blogger/dashboard", h.fan, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := h.do(http.MethodGet, "/blogger/dashboard", h.blogger, nil)
	require.Equal(t, http.StatusOK, code, body)
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["total_wishlists"])
	assert.EqualValues(t, 2, stats["total_wishlist_items"])
	total := stats["donations"].(map[string]any)["total"].(map[string]any)
	assert.EqualValues(t, 3, total["count"])
	assert.Equal(t, "550", total["amount"])
	assert.Len(t, body["recent_donations"], 3)
	topDonors := body["top_donors"].([]any)
	require.Len(t, topDonors, 1)
	assert.Equal(t, "fan", topDonors[0].(map[string]any)["donor"].(map[string]any)["username"])

	code, body = h.do(http.MethodGet, "/blogger/donors", h.blogger, nil)
	require.Equal(t, http.StatusOK, code)
	anon := body["anonymous"].(map[string]any)
	assert.EqualValues(t, 2, anon["count"])
	assert.Equal(t, "250", anon["amount"])

	code, body = h.do(http.MethodGet, "/blogger/donations/chart?period=week", h.blogger, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "week", body["period"])
	assert.Len(t, body["data"], 7)

	code, _ = h.do(http.MethodGet, "/blogger/donations/chart?period=decade", h.blogger, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = h.do(http.MethodGet, "/blogger/wishlists/stats", h.blogger, nil)
	require.Equal(t, http.StatusOK, code)
	var stats2 []map[string]any
	require.NoError(t, json.Unmarshal(body["list"].(json.RawMessage), &stats2))
	require.Len(t, stats2, 1)
	assert.EqualValues(t, 37, stats2[0]["completion_percentage"])
}

func TestAdminStats(t *testing.T) {
	h := newHarness(t)
	code, _ := h.donate(h.fan, 0, "100", nil)
	require.Equal(t, http.StatusCreated, code)

	code, _ = h.do(http.MethodGet, "/admin/stats", h.blogger, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := h.do(http.MethodGet, "/admin/stats", h.admin, nil)
	require.Equal(t, http.StatusOK, code)
	users := body["users"].(map[string]any)
	assert.EqualValues(t, 3, users["total"])
	assert.EqualValues(t, 3, users["new_today"])
	assert.EqualValues(t, 1, body["wishlists"])
	today := body["donations"].(map[string]any)["today"].(map[string]any)
	assert.EqualValues(t, 1, today["count"])
}
