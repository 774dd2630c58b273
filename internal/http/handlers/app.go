package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"wishfund/internal/domain"
	"wishfund/internal/feed"
	"wishfund/internal/ledger"
	"wishfund/internal/middleware"
	"wishfund/internal/reconcile"
)

const maxBodyBytes = 1 << 20

// App carries the services every handler needs.
type App struct {
	Ledger    *ledger.Service
	Reconcile *reconcile.Service
	Feed      *feed.Service
	Users     domain.UserRepository
	Wishlists domain.WishlistRepository
	Donations domain.DonationRepository
	Location  *time.Location
	Logger    zerolog.Logger
	// Ready reports whether backing storage answers; nil means always ready.
	Ready func(ctx context.Context) error

	now func() time.Time
}

// Deps are the collaborators NewApp wires together.
type Deps struct {
	Users     domain.UserRepository
	Wishlists domain.WishlistRepository
	Donations domain.DonationRepository
	Tx        domain.TxManager
	Ledger    ledger.Config
	Location  *time.Location
	Logger    zerolog.Logger
	Ready     func(ctx context.Context) error
}

func NewApp(d Deps) *App {
	rec := reconcile.NewService(d.Wishlists, d.Logger)
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &App{
		Ledger:    ledger.NewService(d.Users, d.Wishlists, d.Donations, d.Tx, rec, d.Ledger, d.Logger),
		Reconcile: rec,
		Feed:      feed.NewService(d.Wishlists),
		Users:     d.Users,
		Wishlists: d.Wishlists,
		Donations: d.Donations,
		Location:  loc,
		Logger:    d.Logger,
		Ready:     d.Ready,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (a *App) clock() time.Time {
	if a.now == nil {
		return time.Now().UTC()
	}
	return a.now()
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code string, fields []domain.FieldError) {
	a.json(w, status, map[string]errorBody{"error": {
		Code:    code,
		Message: message(middleware.LocaleFromContext(r.Context()), code),
		Fields:  fields,
	}})
}

// fail maps a domain error onto a status code and the error envelope.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		a.error(w, r, http.StatusBadRequest, "validation_error", ve.Errors)
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, r, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, r, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, r, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, domain.ErrItemNotActive):
		a.error(w, r, http.StatusBadRequest, "item_not_active", nil)
	case errors.Is(err, domain.ErrIllegalTransition):
		a.error(w, r, http.StatusBadRequest, "illegal_transition", nil)
	case errors.Is(err, domain.ErrState):
		a.error(w, r, http.StatusBadRequest, "invalid_state", nil)
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyExists):
		a.error(w, r, http.StatusConflict, "conflict", nil)
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the answer.
		w.WriteHeader(499)
	default:
		a.logger(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		a.error(w, r, http.StatusInternalServerError, "internal", nil)
	}
}

func (a *App) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", []domain.FieldError{{Field: "body", Message: err.Error()}})
		return false
	}
	return true
}

func (a *App) identity(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", nil)
	}
	return id, ok
}

// queryLimit reads ?limit=, returning 0 when it is absent.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError("limit", "must be a non-negative integer")
	}
	return n, nil
}

var messages = map[string]map[string]string{
	"ru": {
		"validation_error":   "Ошибка валидации",
		"bad_request":        "Некорректный запрос",
		"not_found":          "Не найдено",
		"unauthorized":       "Требуется авторизация",
		"forbidden":          "Доступ запрещен",
		"item_not_active":    "Желание больше не принимает донаты",
		"illegal_transition": "Недопустимая смена статуса",
		"invalid_state":      "Недопустимое состояние",
		"conflict":           "Конфликт",
		"internal":           "Ошибка сервера",
	},
	"en": {
		"validation_error":   "Validation failed",
		"bad_request":        "Malformed request",
		"not_found":          "Not found",
		"unauthorized":       "Authorization required",
		"forbidden":          "Access denied",
		"item_not_active":    "The item no longer accepts donations",
		"illegal_transition": "Illegal status transition",
		"invalid_state":      "Invalid state",
		"conflict":           "Conflict",
		"internal":           "Internal server error",
	},
}

func message(locale, code string) string {
	table, ok := messages[locale]
	if !ok {
		table = messages["en"]
	}
	if m, ok := table[code]; ok {
		return m
	}
	return code
}
