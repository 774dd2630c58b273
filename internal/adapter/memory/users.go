package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wishfund/internal/domain"
)

// UserStore implements domain.UserRepository.
type UserStore struct {
	s *Store
}

func (u *UserStore) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = u.s.now()
	}
	if user.Role == "" {
		user.Role = domain.UserRoleUser
	}

	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.users[user.ID]; ok {
		return fmt.Errorf("user %s: %w", user.ID, domain.ErrAlreadyExists)
	}
	for _, existing := range u.s.users {
		if existing.Username == user.Username {
			return fmt.Errorf("username %s: %w", user.Username, domain.ErrAlreadyExists)
		}
	}
	stored := *user
	u.s.users[user.ID] = &stored

	id := user.ID
	onRollback(ctx, func() {
		u.s.mu.Lock()
		delete(u.s.users, id)
		u.s.mu.Unlock()
	})
	return nil
}

func (u *UserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrUserNotFound)
	}
	out := *user
	return &out, nil
}

func (u *UserStore) SetRole(ctx context.Context, id string, role domain.UserRole) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, domain.ErrUserNotFound)
	}
	prev := user.Role
	user.Role = role
	onRollback(ctx, func() {
		u.s.mu.Lock()
		user.Role = prev
		u.s.mu.Unlock()
	})
	return nil
}

func (u *UserStore) CreditBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, domain.ErrUserNotFound)
	}
	user.Balance = user.Balance.Add(delta)
	onRollback(ctx, func() {
		u.s.mu.Lock()
		user.Balance = user.Balance.Sub(delta)
		u.s.mu.Unlock()
	})
	return nil
}

func (u *UserStore) Count(context.Context) (int, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	return len(u.s.users), nil
}

func (u *UserStore) CountCreatedSince(_ context.Context, since time.Time) (int, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	n := 0
	for _, user := range u.s.users {
		if !user.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

var _ domain.UserRepository = (*UserStore)(nil)
