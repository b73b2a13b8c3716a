package models

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const FlaggedTag = "flagged"

type Review struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title   string    `gorm:"size:200;not null" json:"title"`
	Content string    `gorm:"not null" json:"content"`
	Rating  int       `gorm:"not null;check:rating BETWEEN 1 AND 5" json:"rating"`

	CustomerID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_customer_destination;uniqueIndex:idx_reviews_customer_guide" json:"customer_id"`
	DestinationID *uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_reviews_customer_destination" json:"destination_id,omitempty"`
	GuideID       *uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_reviews_customer_guide" json:"guide_id,omitempty"`

	TripStartDate *time.Time `gorm:"type:date" json:"trip_start_date,omitempty"`
	TripEndDate   *time.Time `gorm:"type:date" json:"trip_end_date,omitempty"`
	TripDuration  int        `json:"trip_duration,omitempty"`
	TripType      string     `gorm:"size:50" json:"trip_type,omitempty"`

	Photos     StringList `gorm:"type:jsonb" json:"photos,omitempty"`
	Highlights StringList `gorm:"type:jsonb" json:"highlights,omitempty"`
	Tags       StringList `gorm:"type:jsonb" json:"tags,omitempty"`

	Verified       bool `gorm:"not null;default:false;index" json:"verified"`
	Featured       bool `gorm:"not null;default:false;index" json:"featured"`
	HelpfulCount   int  `gorm:"not null;default:0" json:"helpful_count"`
	UnhelpfulCount int  `gorm:"not null;default:0" json:"unhelpful_count"`
	ReportCount    int  `gorm:"not null;default:0" json:"report_count"`

	ResponseContent string     `json:"response_content,omitempty"`
	ResponseDate    *time.Time `json:"response_date,omitempty"`
	RespondedBy     *uuid.UUID `gorm:"type:uuid" json:"responded_by,omitempty"`

	Customer    *Customer    `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"customer,omitempty"`
	Destination *Destination `gorm:"foreignKey:DestinationID;constraint:OnDelete:CASCADE" json:"destination,omitempty"`
	Guide       *Guide       `gorm:"foreignKey:GuideID;constraint:OnDelete:CASCADE" json:"guide,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Target returns the destination or guide the review is about.
func (r *Review) Target() Target {
	if r.GuideID != nil {
		return GuideTarget(*r.GuideID)
	}
	if r.DestinationID != nil {
		return DestinationTarget(*r.DestinationID)
	}
	return Target{}
}

func (r *Review) Flagged() bool {
	return slices.Contains(r.Tags, FlaggedTag)
}

func (r *Review) SetFlagged(flagged bool) {
	tags := slices.DeleteFunc(slices.Clone(r.Tags), func(t string) bool { return t == FlaggedTag })
	if flagged {
		tags = append(tags, FlaggedTag)
	}
	r.Tags = StringList(tags)
}

// Sanitize trims free text and dedupes the string lists.
func (r *Review) Sanitize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Content = strings.TrimSpace(r.Content)
	r.TripType = strings.TrimSpace(r.TripType)
	r.Photos = NewStringList(r.Photos)
	r.Highlights = NewStringList(r.Highlights)
	r.Tags = NewStringList(r.Tags)
}

// ReviewHelpful records one user's helpful vote. The primary key rejects double votes.
type ReviewHelpful struct {
	ReviewID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"review_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ReviewHelpful) TableName() string { return "review_helpful" }

type ReviewReport struct {
	ReviewID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"review_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Reason    string    `gorm:"size:500;not null" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (ReviewReport) TableName() string { return "review_reports" }

type ReviewTone string

const (
	TonePositive ReviewTone = "positive"
	ToneAverage  ReviewTone = "average"
	ToneNegative ReviewTone = "negative"
)

func ToneForRating(rating int) ReviewTone {
	switch {
	case rating >= 4:
		return TonePositive
	case rating == 3:
		return ToneAverage
	default:
		return ToneNegative
	}
}

type CreateReviewInput struct {
	Title         string     `json:"title" validate:"required,max=200"`
	Content       string     `json:"content" validate:"required,max=5000"`
	Rating        int        `json:"rating" validate:"required,min=1,max=5"`
	DestinationID *uuid.UUID `json:"destination_id" validate:"required_without=GuideID,excluded_with=GuideID"`
	GuideID       *uuid.UUID `json:"guide_id" validate:"required_without=DestinationID,excluded_with=DestinationID"`
	CustomerID    *uuid.UUID `json:"customer_id"`
	TripStartDate string     `json:"trip_start_date" validate:"omitempty,datetime=2006-01-02"`
	TripEndDate   string     `json:"trip_end_date" validate:"omitempty,datetime=2006-01-02"`
	TripType      string     `json:"trip_type" validate:"omitempty,max=50"`
	Photos        []string   `json:"photos" validate:"omitempty,max=20,dive,url"`
	Highlights    []string   `json:"highlights" validate:"omitempty,max=20,dive,max=200"`
	Tags          []string   `json:"tags" validate:"omitempty,max=20,dive,max=50"`
}

type UpdateReviewInput struct {
	Title         *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Content       *string    `json:"content" validate:"omitempty,min=1,max=5000"`
	Rating        *int       `json:"rating" validate:"omitempty,min=1,max=5"`
	CustomerID    *uuid.UUID `json:"customer_id"`
	TripStartDate *string    `json:"trip_start_date" validate:"omitempty,datetime=2006-01-02"`
	TripEndDate   *string    `json:"trip_end_date" validate:"omitempty,datetime=2006-01-02"`
	TripType      *string    `json:"trip_type" validate:"omitempty,max=50"`
	Photos        []string   `json:"photos" validate:"omitempty,max=20,dive,url"`
	Highlights    []string   `json:"highlights" validate:"omitempty,max=20,dive,max=200"`
	Tags          []string   `json:"tags" validate:"omitempty,max=20,dive,max=50"`

	// staff only
	Verified *bool   `json:"verified"`
	Featured *bool   `json:"featured"`
	Flagged  *bool   `json:"flagged"`
	Response *string `json:"response" validate:"omitempty,max=2000"`
}

func (in UpdateReviewInput) TouchesContent() bool {
	return in.Title != nil || in.Content != nil || in.Rating != nil || in.TripStartDate != nil ||
		in.TripEndDate != nil || in.TripType != nil || in.Photos != nil || in.Highlights != nil || in.Tags != nil
}

func (in UpdateReviewInput) TouchesModeration() bool {
	return in.Verified != nil || in.Featured != nil || in.Flagged != nil || in.Response != nil
}

type ModerationAction string

const (
	ModerationApprove   ModerationAction = "approve"
	ModerationFeature   ModerationAction = "feature"
	ModerationUnfeature ModerationAction = "unfeature"
	ModerationFlag      ModerationAction = "flag"
	ModerationReject    ModerationAction = "reject"
)

type ModerateReviewInput struct {
	Action ModerationAction `json:"action" validate:"required,oneof=approve feature unfeature flag reject"`
}

type RespondReviewInput struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type ReportReviewInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type HelpfulResult struct {
	ReviewID     uuid.UUID `json:"review_id"`
	Helpful      bool      `json:"helpful"`
	HelpfulCount int       `json:"helpful_count"`
}

var ReviewSortColumns = map[string]string{
	"createdAt":    "created_at",
	"rating":       "rating",
	"helpfulCount": "helpful_count",
}

type ReviewFilter struct {
	DestinationID *uuid.UUID
	GuideID       *uuid.UUID
	CustomerID    *uuid.UUID
	MinRating     int
	Verified      *bool
	Featured      *bool
	Flagged       *bool
	SortColumn    string
	SortDesc      bool
	Limit         int
	Offset        int
}

func (f ReviewFilter) Matches(r *Review) bool {
	if f.DestinationID != nil && (r.DestinationID == nil || *r.DestinationID != *f.DestinationID) {
		return false
	}
	if f.GuideID != nil && (r.GuideID == nil || *r.GuideID != *f.GuideID) {
		return false
	}
	if f.CustomerID != nil && r.CustomerID != *f.CustomerID {
		return false
	}
	if f.MinRating > 0 && r.Rating < f.MinRating {
		return false
	}
	if f.Verified != nil && r.Verified != *f.Verified {
		return false
	}
	if f.Featured != nil && r.Featured != *f.Featured {
		return false
	}
	if f.Flagged != nil && r.Flagged() != *f.Flagged {
		return false
	}
	return true
}
