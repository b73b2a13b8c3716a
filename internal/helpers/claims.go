package helpers

import (
	"github.com/google/uuid"
	"github.com/joshua-takyi/trailbook/internal/models"
)

// EnhancedClaims is the token claims merged with the caller's directory profile.
type EnhancedClaims struct {
	*CustomClaims
	Role     models.Role `json:"role"`
	UserID   string      `json:"id"`
	Email    string      `json:"email,omitempty"`
	Fullname string      `json:"fullname,omitempty"`
}

func (ec *EnhancedClaims) GetSafeRole() models.Role {
	if ec.Role == "" {
		return models.RoleCustomer
	}
	return ec.Role
}

// Actor converts the claims into the caller identity the services work with.
func (ec *EnhancedClaims) Actor() *models.Actor {
	id, _ := uuid.Parse(ec.UserID)
	return &models.Actor{
		UserID: id,
		Email:  ec.Email,
		Role:   ec.GetSafeRole(),
	}
}
