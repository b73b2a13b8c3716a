package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/joshua-takyi/trailbook/internal/models"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	To, Subject string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject})
	return nil
}

func (m *recordingMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type fixture struct {
	mem           *models.MemoryRepo
	mailer        *recordingMailer
	notifications *NotificationService
	bookings      *BookingService
	reviews       *ReviewService
	catalog       *CatalogService

	admin *models.Actor
	staff *models.Actor
}

var allFeatures = models.Features{ReviewVotes: true, ReviewReports: true}

func newFixture(t *testing.T, features models.Features) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := models.NewMemoryRepo(features)
	mailer := &recordingMailer{}
	notifications := NewNotificationService(mem, mem, mailer, logger, "http://localhost:3000")

	f := &fixture{
		mem:           mem,
		mailer:        mailer,
		notifications: notifications,
		bookings:      NewBookingService(mem, notifications, logger),
		reviews:       NewReviewService(mem, notifications, features, logger),
		catalog:       NewCatalogService(mem, logger),
	}
	f.admin = f.account("admin@trailbook.test", "Ada Admin", models.RoleAdmin)
	f.staff = f.account("staff@trailbook.test", "Sam Staff", models.RoleStaff)
	return f
}

// account registers a directory entry and returns the matching caller.
func (f *fixture) account(email, name string, role models.Role) *models.Actor {
	acc := f.mem.AddAccount(models.Account{Email: email, FullName: name, Role: role})
	return &models.Actor{UserID: acc.ID, Email: acc.Email, Role: acc.Role}
}

func (f *fixture) customer(email string) *models.Actor {
	return f.account(email, "", models.RoleCustomer)
}

func (f *fixture) destination(t *testing.T, name string) *models.Destination {
	t.Helper()
	d, err := f.catalog.CreateDestination(context.Background(), f.admin, &models.DestinationInput{Name: name, Country: "Ghana"})
	require.NoError(t, err)
	return d
}

func (f *fixture) guide(t *testing.T, name, email string) *models.Guide {
	t.Helper()
	g, err := f.catalog.CreateGuide(context.Background(), f.admin, &models.GuideInput{Name: name, Email: email, Languages: []string{"en"}})
	require.NoError(t, err)
	return g
}

func bookingInput(destinationID uuid.UUID, email, start, end string) *models.CreateBookingInput {
	return &models.CreateBookingInput{
		Customer: &models.CustomerInput{
			FirstName: "Kofi",
			LastName:  "Mensah",
			Email:     email,
		},
		DestinationID: destinationID,
		StartDate:     start,
		EndDate:       end,
		Adults:        1,
		Payment:       models.PaymentInput{TotalAmount: 500},
	}
}

// book creates a booking for the caller, failing the test on error.
func (f *fixture) book(t *testing.T, actor *models.Actor, in *models.CreateBookingInput) *models.Booking {
	t.Helper()
	b, err := f.bookings.Create(context.Background(), actor, in)
	require.NoError(t, err)
	return b
}

func reviewFor(target models.Target, rating int) *models.CreateReviewInput {
	in := &models.CreateReviewInput{
		Title:   "Trip review",
		Content: "We had a good time.",
		Rating:  rating,
	}
	id := target.ID
	if target.Kind == models.TargetGuide {
		in.GuideID = &id
	} else {
		in.DestinationID = &id
	}
	return in
}

func notesFor(mem *models.MemoryRepo, recipient uuid.UUID) []models.Notification {
	var out []models.Notification
	for _, n := range mem.Notifications() {
		if n.RecipientID == recipient.String() {
			out = append(out, n)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
