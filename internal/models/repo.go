package models

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"
)

var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type BookingsRepo interface {
	ListBookings(ctx context.Context, filter BookingFilter) ([]*Booking, int64, error)
	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListActiveBookings(ctx context.Context, q ActiveBookingQuery) ([]*Booking, error)
	CreateBooking(ctx context.Context, booking *Booking) error
	UpdateBooking(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	ReplaceBookingChildren(ctx context.Context, id uuid.UUID, children *BookingChildren) error
	DeleteBooking(ctx context.Context, id uuid.UUID) error
	BookingStats(ctx context.Context, year int) (*BookingStats, error)
}

type CustomersRepo interface {
	GetCustomerByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	// UpsertCustomer inserts by email or refreshes the stored contact details.
	UpsertCustomer(ctx context.Context, customer *Customer) (*Customer, error)
}

type CatalogRepo interface {
	CreateDestination(ctx context.Context, d *Destination) error
	GetDestinationByID(ctx context.Context, id uuid.UUID) (*Destination, error)
	ListDestinations(ctx context.Context, offset, limit int) ([]*Destination, int64, error)
	CreateGuide(ctx context.Context, g *Guide) error
	GetGuideByID(ctx context.Context, id uuid.UUID) (*Guide, error)
	ListGuides(ctx context.Context, offset, limit int) ([]*Guide, int64, error)
	// SetRating writes the derived aggregate of a destination or guide.
	SetRating(ctx context.Context, target Target, rating float64, count int) error
}

type ReviewsRepo interface {
	ListReviews(ctx context.Context, filter ReviewFilter) ([]*Review, int64, error)
	GetReviewByID(ctx context.Context, id uuid.UUID) (*Review, error)
	FindReviewByAuthor(ctx context.Context, customerID uuid.UUID, target Target) (*Review, error)
	ListTargetRatings(ctx context.Context, target Target) ([]int, error)
	CreateReview(ctx context.Context, review *Review) error
	UpdateReview(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	DeleteReview(ctx context.Context, id uuid.UUID) error
	AdjustReviewCounter(ctx context.Context, id uuid.UUID, column string, delta int) error

	HelpfulVoteExists(ctx context.Context, reviewID, userID uuid.UUID) (bool, error)
	AddHelpfulVote(ctx context.Context, vote *ReviewHelpful) error
	RemoveHelpfulVote(ctx context.Context, reviewID, userID uuid.UUID) error
	DeleteHelpfulVotes(ctx context.Context, reviewID uuid.UUID) error
	CreateReviewReport(ctx context.Context, report *ReviewReport) error
	DeleteReviewReports(ctx context.Context, reviewID uuid.UUID) error
}

// Store is the relational entity store. RunInTx runs fn in one serializable
// transaction carried by the ctx passed to fn; nested calls join the outer one.
type Store interface {
	BookingsRepo
	CustomersRepo
	CatalogRepo
	ReviewsRepo
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error
}

type SupabaseRepo struct {
	supabaseClient *supabase.Client
}

func SupabaseNewRepo(supabaseClient *supabase.Client) *SupabaseRepo {
	return &SupabaseRepo{
		supabaseClient: supabaseClient,
	}
}

type MongodbRepo struct {
	mongodbClient *mongo.Client
	dbName        string
}

func MongodbNewRepo(mongodbClient *mongo.Client, dbName string) *MongodbRepo {
	if dbName == "" {
		dbName = DefaultMongoDB
	}
	return &MongodbRepo{
		mongodbClient: mongodbClient,
		dbName:        dbName,
	}
}
