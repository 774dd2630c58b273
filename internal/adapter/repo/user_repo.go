package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wishfund/internal/domain"
	"wishfund/internal/infra"
	"wishfund/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	db infra.SQLExecutor
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(db infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{db: db}
}

// Create inserts a user, filling in the id and creation time when unset.
func (r *UserRepositoryPG) Create(ctx context.Context, user *domain.User) error {
	if strings.TrimSpace(user.ID) == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Role == "" {
		user.Role = domain.UserRoleUser
	}
	_, err := r.db.Exec(ctx, sqlinline.QInsertUser,
		user.ID, user.Username, user.Avatar, string(user.Role), user.Balance.String(), user.CreatedAt)
	return mapError(err, domain.ErrUserNotFound, user.ID)
}

// GetByID fetches a user by UUID.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var (
		u             domain.User
		role, balance string
	)
	err := r.db.QueryRow(ctx, sqlinline.QSelectUserByID, id).
		Scan(&u.ID, &u.Username, &u.Avatar, &role, &balance, &u.CreatedAt)
	if err != nil {
		return nil, mapError(err, domain.ErrUserNotFound, id)
	}
	u.Role = domain.UserRole(role)
	if u.Balance, err = domain.ParseAmount(balance); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetRole changes the user's role.
func (r *UserRepositoryPG) SetRole(ctx context.Context, id string, role domain.UserRole) error {
	tag, err := r.db.Exec(ctx, sqlinline.QUpdateUserRole, id, string(role))
	if err != nil {
		return mapError(err, domain.ErrUserNotFound, id)
	}
	if tag.RowsAffected() == 0 {
		return mapError(errNoRows, domain.ErrUserNotFound, id)
	}
	return nil
}

// CreditBalance adds delta to the user's balance in place.
func (r *UserRepositoryPG) CreditBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, sqlinline.QCreditUserBalance, id, delta.String())
	if err != nil {
		return mapError(err, domain.ErrUserNotFound, id)
	}
	if tag.RowsAffected() == 0 {
		return mapError(errNoRows, domain.ErrUserNotFound, id)
	}
	return nil
}

func (r *UserRepositoryPG) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.QueryRow(ctx, sqlinline.QCountUsers).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *UserRepositoryPG) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var n int64
	if err := r.db.QueryRow(ctx, sqlinline.QCountUsersSince, since).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
