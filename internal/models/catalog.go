package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TargetKind string

const (
	TargetDestination TargetKind = "destination"
	TargetGuide       TargetKind = "guide"
)

// Target names the single entity a booking slot or review is attached to.
type Target struct {
	Kind TargetKind
	ID   uuid.UUID
}

func DestinationTarget(id uuid.UUID) Target { return Target{Kind: TargetDestination, ID: id} }

func GuideTarget(id uuid.UUID) Target { return Target{Kind: TargetGuide, ID: id} }

func (t Target) String() string { return fmt.Sprintf("%s:%s", t.Kind, t.ID) }

type Destination struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Country     string    `gorm:"size:100;not null;index" json:"country"`
	Region      string    `gorm:"size:100" json:"region,omitempty"`
	Description string    `json:"description,omitempty"`
	Rating      float64   `gorm:"type:numeric(2,1);not null;default:0" json:"rating"`
	ReviewCount int       `gorm:"not null;default:0" json:"review_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (d *Destination) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

type Guide struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"size:200;not null" json:"name"`
	Email       string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone       string     `gorm:"size:40" json:"phone,omitempty"`
	Languages   StringList `gorm:"type:jsonb" json:"languages,omitempty"`
	Rating      float64    `gorm:"type:numeric(2,1);not null;default:0" json:"rating"`
	ReviewCount int        `gorm:"not null;default:0" json:"review_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (g *Guide) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

type DestinationInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Country     string `json:"country" validate:"required,max=100"`
	Region      string `json:"region" validate:"omitempty,max=100"`
	Description string `json:"description" validate:"omitempty,max=5000"`
}

type GuideInput struct {
	Name      string   `json:"name" validate:"required,max=200"`
	Email     string   `json:"email" validate:"required,email"`
	Phone     string   `json:"phone" validate:"omitempty,max=40"`
	Languages []string `json:"languages" validate:"omitempty,dive,required,max=50"`
}

// Availability answers a single date range query against one target.
type Availability struct {
	Target    Target    `json:"-"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Available bool      `json:"available"`
}
