package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserRole enumerates supported roles.
type UserRole string

const (
	UserRoleUser    UserRole = "user"
	UserRoleBlogger UserRole = "blogger"
	UserRoleAdmin   UserRole = "admin"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleUser, UserRoleBlogger, UserRoleAdmin:
		return true
	}
	return false
}

// User is the slice of an account the ledger needs: identity, role and balance.
type User struct {
	ID        string
	Username  string
	Avatar    string
	Role      UserRole
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
