package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Customer struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName   string    `gorm:"size:100;not null" json:"first_name"`
	LastName    string    `gorm:"size:100;not null" json:"last_name"`
	Email       string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone       string    `gorm:"size:40" json:"phone,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	Address     string    `json:"address,omitempty"`
	City        string    `gorm:"size:100" json:"city,omitempty"`
	Country     string    `gorm:"size:100" json:"country,omitempty"`
	PostalCode  string    `gorm:"size:20" json:"postal_code,omitempty"`
	Nationality string    `gorm:"size:100" json:"nationality,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// CustomerInput is the customer block of a booking payload.
type CustomerInput struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"omitempty,max=40"`
	Avatar      string `json:"avatar" validate:"omitempty,url"`
	Address     string `json:"address"`
	City        string `json:"city" validate:"omitempty,max=100"`
	Country     string `json:"country" validate:"omitempty,max=100"`
	PostalCode  string `json:"postal_code" validate:"omitempty,max=20"`
	Nationality string `json:"nationality" validate:"omitempty,max=100"`
}

func (in CustomerInput) ToCustomer() *Customer {
	return &Customer{
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:       in.Phone,
		Avatar:      in.Avatar,
		Address:     in.Address,
		City:        in.City,
		Country:     in.Country,
		PostalCode:  in.PostalCode,
		Nationality: in.Nationality,
	}
}
