package models

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleGuide    Role = "guide"
	RoleCustomer Role = "customer"
)

// ParseRole falls back to customer for anything unknown.
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleStaff, RoleGuide, RoleCustomer:
		return r
	default:
		return RoleCustomer
	}
}

// Account is a row of the profiles directory. The service reads it, never writes it.
type Account struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"fullname,omitempty"`
	Role     Role      `json:"role"`
}

type AccountDirectory interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	ListAccountsByRole(ctx context.Context, role Role) ([]*Account, error)
}

// Actor is the authenticated caller as seen by the services.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// IsStaff covers both admins and staff members.
func (a *Actor) IsStaff() bool {
	return a != nil && (a.Role == RoleAdmin || a.Role == RoleStaff)
}

// EmailMatches compares case-insensitively, ignoring surrounding space.
func (a *Actor) EmailMatches(email string) bool {
	if a == nil || a.Email == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a.Email), strings.TrimSpace(email))
}
