package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/trailbook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookingRejectsOverlappingDates(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Cape Coast")
	kofi := f.customer("kofi@example.com")

	f.book(t, kofi, bookingInput(d.ID, kofi.Email, "2024-03-01", "2024-03-10"))

	_, err := f.bookings.Create(ctx, kofi, bookingInput(d.ID, kofi.Email, "2024-03-05", "2024-03-08"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConflict))
	var cerr *models.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "dates unavailable for destination", cerr.Message)
	assert.Equal(t, 1, f.mem.BookingCount())
}

func TestCreateBookingOverlapIsInclusiveAndSymmetric(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		conflict   bool
	}{
		{"new inside existing", "2024-03-03", "2024-03-04", true},
		{"new contains existing", "2024-02-20", "2024-03-20", true},
		{"touches first day", "2024-02-25", "2024-03-01", true},
		{"touches last day", "2024-03-10", "2024-03-12", true},
		{"day before", "2024-02-20", "2024-02-29", false},
		{"day after", "2024-03-11", "2024-03-15", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, allFeatures)
			d := f.destination(t, "Kakum")
			kofi := f.customer("kofi@example.com")
			f.book(t, kofi, bookingInput(d.ID, kofi.Email, "2024-03-01", "2024-03-10"))

			_, err := f.bookings.Create(context.Background(), kofi, bookingInput(d.ID, kofi.Email, tc.start, tc.end))
			if tc.conflict {
				assert.ErrorIs(t, err, models.ErrConflict)
				assert.Equal(t, 1, f.mem.BookingCount())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 2, f.mem.BookingCount())
			}
		})
	}
}

func TestCreateBookingIgnoresInactiveBookings(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Mole")
	kofi := f.customer("kofi@example.com")

	first := f.book(t, kofi, bookingInput(d.ID, kofi.Email, "2024-05-01", "2024-05-05"))
	_, err := f.bookings.Update(ctx, kofi, first.ID, &models.UpdateBookingInput{Status: ptr(models.BookingCancelled)})
	require.NoError(t, err)

	_, err = f.bookings.Create(ctx, kofi, bookingInput(d.ID, kofi.Email, "2024-05-02", "2024-05-03"))
	assert.NoError(t, err)

	// staff may record past or cancelled trips over dates that are already held
	for _, status := range []models.BookingStatus{models.BookingCompleted, models.BookingCancelled} {
		in := bookingInput(d.ID, kofi.Email, "2024-05-02", "2024-05-03")
		in.Status = status
		b, err := f.bookings.Create(ctx, f.staff, in)
		require.NoError(t, err, status)
		assert.Equal(t, status, b.Status)
	}

	_, err = f.bookings.Create(ctx, f.staff, bookingInput(d.ID, kofi.Email, "2024-05-03", "2024-05-04"))
	var cerr *models.ConflictError
	assert.True(t, errors.As(err, &cerr), "active bookings still conflict")
}

func TestCreateBookingGuideConflict(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d1 := f.destination(t, "Volta")
	d2 := f.destination(t, "Aburi")
	g := f.guide(t, "Ama", "ama@guides.test")
	kofi := f.customer("kofi@example.com")

	in := bookingInput(d1.ID, kofi.Email, "2024-06-01", "2024-06-04")
	in.GuideID = &g.ID
	f.book(t, kofi, in)

	in = bookingInput(d2.ID, kofi.Email, "2024-06-04", "2024-06-06")
	in.GuideID = &g.ID
	_, err := f.bookings.Create(ctx, kofi, in)
	var cerr *models.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "guide unavailable for these dates", cerr.Message)
}

func TestCreateBookingComputesTravelersAndNumber(t *testing.T) {
	f := newFixture(t, allFeatures)
	d := f.destination(t, "Elmina")
	kofi := f.customer("kofi@example.com")

	in := bookingInput(d.ID, kofi.Email, "2024-03-01", "2024-03-10")
	in.Adults, in.Children, in.Infants = 2, 1, 0
	in.Status = models.BookingConfirmed
	b := f.book(t, kofi, in)

	assert.Equal(t, 3, b.TotalTravelers)
	assert.Equal(t, 9, b.Duration)
	assert.Equal(t, models.BookingPending, b.Status, "customers cannot create confirmed bookings")
	assert.Equal(t, "USD", b.Currency)
	assert.True(t, strings.HasPrefix(b.BookingNumber, "TRV-"))
	assert.Contains(t, b.BookingNumber, "-KM-")
	require.NotNil(t, b.Customer)
	assert.Equal(t, "kofi@example.com", b.Customer.Email)
	require.NotNil(t, b.Destination)
	assert.Equal(t, "Elmina", b.Destination.Name)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Busua")
	kofi := f.customer("kofi@example.com")

	t.Run("end before start", func(t *testing.T) {
		_, err := f.bookings.Create(ctx, kofi, bookingInput(d.ID, kofi.Email, "2024-03-10", "2024-03-01"))
		verr, ok := models.IsValidationError(err)
		require.True(t, ok)
		assert.Contains(t, verr.Fields, "end_date")
	})

	t.Run("no travelers", func(t *testing.T) {
		in := bookingInput(d.ID, kofi.Email, "2024-03-01", "2024-03-02")
		in.Adults = 0
		_, err := f.bookings.Create(ctx, kofi, in)
		verr, ok := models.IsValidationError(err)
		require.True(t, ok)
		assert.Contains(t, verr.Fields, "adults")
	})

	t.Run("missing customer email", func(t *testing.T) {
		in := bookingInput(d.ID, "", "2024-03-01", "2024-03-02")
		_, err := f.bookings.Create(ctx, f.staff, in)
		verr, ok := models.IsValidationError(err)
		require.True(t, ok)
		assert.Contains(t, verr.Fields, "customer.email")
	})

	t.Run("booking for someone else", func(t *testing.T) {
		_, err := f.bookings.Create(ctx, kofi, bookingInput(d.ID, "someone@example.com", "2024-03-01", "2024-03-02"))
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("unknown destination", func(t *testing.T) {
		_, err := f.bookings.Create(ctx, kofi, bookingInput(uuid.New(), kofi.Email, "2024-03-01", "2024-03-02"))
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	assert.Equal(t, 0, f.mem.BookingCount())
}

func TestCreateBookingConcurrentOverlapAdmitsOne(t *testing.T) {
	f := newFixture(t, allFeatures)
	d := f.destination(t, "Ada Foah")

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.bookings.Create(context.Background(), f.staff, bookingInput(d.ID, "group@example.com", "2024-08-01", "2024-08-03"))
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, models.ErrConflict)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.mem.BookingCount())
}

func TestCreateBookingNotifiesAdminsGuideAndCustomer(t *testing.T) {
	f := newFixture(t, allFeatures)
	d := f.destination(t, "Nzulezo")
	guideAcc := f.account("ama@guides.test", "Ama", models.RoleGuide)
	g := f.guide(t, "Ama", guideAcc.Email)
	kofi := f.customer("kofi@example.com")

	in := bookingInput(d.ID, kofi.Email, "2024-07-01", "2024-07-02")
	in.GuideID = &g.ID
	b := f.book(t, kofi, in)

	adminNotes := notesFor(f.mem, f.admin.UserID)
	require.Len(t, adminNotes, 1)
	assert.Equal(t, "New booking received", adminNotes[0].Title)
	assert.Equal(t, b.ID.String(), adminNotes[0].RelatedEntityID)
	assert.Len(t, notesFor(f.mem, guideAcc.UserID), 1)
	assert.Len(t, notesFor(f.mem, kofi.UserID), 1)
	assert.Empty(t, notesFor(f.mem, f.staff.UserID))
	assert.Len(t, f.mailer.Sent(), 3)
}

func TestUpdateBookingRechecksAvailabilityExcludingItself(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Larabanga")
	kofi := f.customer("kofi@example.com")

	first := f.book(t, kofi, bookingInput(d.ID, kofi.Email, "2024-03-01", "2024-03-05"))
	second := f.book(t, kofi, bookingInput(d.ID, kofi.Email, "2024-03-10", "2024-03-12"))

	// shifting within its own window never conflicts with itself
	updated, err := f.bookings.Update(ctx, kofi, first.ID, &models.UpdateBookingInput{EndDate: ptr("2024-03-07")})
	require.NoError(t, err)
	assert.Equal(t, 6, updated.Duration)

	_, err = f.bookings.Update(ctx, kofi, first.ID, &models.UpdateBookingInput{EndDate: ptr("2024-03-10")})
	assert.ErrorIs(t, err, models.ErrConflict)

	reloaded, err := f.bookings.Get(ctx, kofi, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-07", reloaded.EndDate.Format(models.DayLayout))

	// a cancelled booking can move anywhere, reactivating re-checks
	_, err = f.bookings.Update(ctx, kofi, second.ID, &models.UpdateBookingInput{Status: ptr(models.BookingCancelled)})
	require.NoError(t, err)
	_, err = f.bookings.Update(ctx, f.staff, second.ID, &models.UpdateBookingInput{StartDate: ptr("2024-03-02")})
	require.NoError(t, err)
	_, err = f.bookings.Update(ctx, f.staff, second.ID, &models.UpdateBookingInput{Status: ptr(models.BookingPending)})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUpdateBookingRecomputesTravelers(t *testing.T) {
	f := newFixture(t, allFeatures)
	d := f.destination(t, "Wli")
	kofi := f.customer("kofi@example.com")

	in := bookingInput(d.ID, kofi.Email, "2024-04-01", "2024-04-03")
	in.Adults, in.Children = 2, 2
	b := f.book(t, kofi, in)

	updated, err := f.bookings.Update(context.Background(), kofi, b.ID, &models.UpdateBookingInput{Infants: ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.TotalTravelers)
	assert.Equal(t, 2, updated.Adults)
	assert.Equal(t, 1, updated.Infants)
}

func TestUpdateBookingPermissions(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Paga")
	kofi := f.customer("kofi@example.com")
	esi := f.customer("esi@example.com")
	b := f.book(t, kofi, bookingInput(d.ID, kofi.Email, "2024-04-01", "2024-04-03"))

	_, err := f.bookings.Update(ctx, esi, b.ID, &models.UpdateBookingInput{Adults: ptr(3)})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.bookings.Update(ctx, kofi, b.ID, &models.UpdateBookingInput{Status: ptr(models.BookingConfirmed)})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.bookings.Update(ctx, kofi, b.ID, &models.UpdateBookingInput{Payment: &models.PaymentUpdateInput{PaymentStatus: ptr(models.PaymentPaid)}})
	assert.ErrorIs(t, err, models.ErrForbidden)

	yaw := f.guide(t, "Yaw", "yaw@guides.test")
	_, err = f.bookings.Update(ctx, kofi, b.ID, &models.UpdateBookingInput{GuideID: &yaw.ID})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.bookings.Update(ctx, kofi, b.ID, &models.UpdateBookingInput{RemoveGuide: true})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.bookings.Update(ctx, kofi, b.ID, &models.UpdateBookingInput{
		BookingChildren: models.BookingChildren{
			Transactions: []models.PaymentTransaction{{Amount: 500, Status: models.PaymentPaid}},
		},
	})
	assert.ErrorIs(t, err, models.ErrForbidden)

	unchanged, err := f.bookings.Get(ctx, kofi, b.ID)
	require.NoError(t, err)
	assert.Nil(t, unchanged.GuideID)
	assert.Empty(t, unchanged.Transactions)

	confirmed, err := f.bookings.Update(ctx, f.staff, b.ID, &models.UpdateBookingInput{Status: ptr(models.BookingConfirmed)})
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, confirmed.Status)

	_, err = f.bookings.Update(ctx, kofi, b.ID, &models.UpdateBookingInput{Adults: ptr(3)})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.bookings.Update(ctx, f.staff, uuid.New(), &models.UpdateBookingInput{Adults: ptr(3)})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateBookingStatusAndGuideChangeNotify(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Bojo")
	amaAcc := f.account("ama@guides.test", "Ama", models.RoleGuide)
	yawAcc := f.account("yaw@guides.test", "Yaw", models.RoleGuide)
	ama := f.guide(t, "Ama", amaAcc.Email)
	yaw := f.guide(t, "Yaw", yawAcc.Email)
	kofi := f.customer("kofi@example.com")

	in := bookingInput(d.ID, kofi.Email, "2024-09-01", "2024-09-02")
	in.GuideID = &ama.ID
	b := f.book(t, kofi, in)
	before := len(f.mem.Notifications())

	updated, err := f.bookings.Update(ctx, f.staff, b.ID, &models.UpdateBookingInput{
		Status:  ptr(models.BookingConfirmed),
		GuideID: &yaw.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Guide)
	assert.Equal(t, "Yaw", updated.Guide.Name)

	notes := f.mem.Notifications()[before:]
	titles := map[string]int{}
	for _, n := range notes {
		titles[n.Title]++
	}
	assert.Equal(t, 2, titles["Booking status updated"], "admin and customer")
	assert.Equal(t, 1, titles["New booking assignment"])
	assert.Equal(t, 1, titles["Booking reassigned"])
	assert.Len(t, notesFor(f.mem, yawAcc.UserID), 1)
}

func TestUpdateBookingReplacesChildren(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Anomabo")
	kofi := f.customer("kofi@example.com")

	in := bookingInput(d.ID, kofi.Email, "2024-04-01", "2024-04-03")
	in.Notes = []models.Note{{Content: "vegetarian"}, {Content: "late arrival"}}
	in.EmergencyContact = &models.EmergencyContact{Name: "Abena", Phone: "+233200000000"}
	b := f.book(t, kofi, in)
	assert.Equal(t, 3, f.mem.BookingChildCount(b.ID))

	updated, err := f.bookings.Update(ctx, kofi, b.ID, &models.UpdateBookingInput{
		BookingChildren: models.BookingChildren{Notes: []models.Note{}},
	})
	require.NoError(t, err)
	assert.Empty(t, updated.Notes)
	assert.NotNil(t, updated.EmergencyContact, "omitted collections are left untouched")
	assert.Equal(t, 1, f.mem.BookingChildCount(b.ID))
}

func TestDeletePendingBookingCascades(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Keta")
	kofi := f.customer("kofi@example.com")

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	in := bookingInput(d.ID, kofi.Email, "2024-03-01", "2024-03-03")
	in.Accommodations = []models.Accommodation{{Name: "Beach Lodge", CheckIn: day, CheckOut: day.AddDate(0, 0, 2)}}
	in.Transportation = []models.Transportation{{Type: "bus", Origin: "Accra", Destination: "Keta", DepartureTime: day}}
	in.Activities = []models.Activity{{Name: "Lagoon tour", Date: day}}
	in.EquipmentRentals = []models.EquipmentRental{{Item: "Kayak", Quantity: 1}}
	in.Transactions = []models.PaymentTransaction{{Amount: 100}}
	in.Documents = []models.Document{{Name: "Ticket", URL: "https://files.test/ticket.pdf"}}
	in.Notes = []models.Note{{Content: "window seat"}}
	in.EmergencyContact = &models.EmergencyContact{Name: "Abena", Phone: "+233200000000"}
	b := f.book(t, kofi, in)
	require.Equal(t, 8, f.mem.BookingChildCount(b.ID))

	require.NoError(t, f.bookings.Delete(ctx, kofi, b.ID))
	assert.Equal(t, 0, f.mem.BookingCount())
	assert.Equal(t, 0, f.mem.BookingChildCount(b.ID))

	_, err := f.bookings.Get(ctx, kofi, b.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteConfirmedBookingRequiresAdmin(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Axim")
	kofi := f.customer("kofi@example.com")

	in := bookingInput(d.ID, kofi.Email, "2024-03-01", "2024-03-03")
	in.Notes = []models.Note{{Content: "keep me"}}
	b := f.book(t, kofi, in)
	_, err := f.bookings.Update(ctx, f.staff, b.ID, &models.UpdateBookingInput{Status: ptr(models.BookingConfirmed)})
	require.NoError(t, err)

	for _, actor := range []*models.Actor{kofi, f.staff} {
		err = f.bookings.Delete(ctx, actor, b.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)
	}
	assert.Equal(t, 1, f.mem.BookingCount())
	assert.Equal(t, 1, f.mem.BookingChildCount(b.ID))

	require.NoError(t, f.bookings.Delete(ctx, f.admin, b.ID))
	assert.Equal(t, 0, f.mem.BookingCount())
}

func TestListBookingsScopesCustomers(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Tamale")
	kofi := f.customer("kofi@example.com")
	esi := f.customer("esi@example.com")
	stranger := f.customer("nobody@example.com")

	f.book(t, kofi, bookingInput(d.ID, kofi.Email, "2024-01-01", "2024-01-02"))
	f.book(t, kofi, bookingInput(d.ID, kofi.Email, "2024-02-01", "2024-02-02"))
	f.book(t, esi, bookingInput(d.ID, esi.Email, "2024-03-01", "2024-03-02"))

	items, total, _, err := f.bookings.List(ctx, kofi, BookingQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	items, total, _, err = f.bookings.List(ctx, stranger, BookingQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	items, total, page, err := f.bookings.List(ctx, f.staff, BookingQuery{Page: Page{Limit: 2, Sort: "startDate", Order: "asc"}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, "2024-01-01", items[0].StartDate.Format(models.DayLayout))

	items, _, _, err = f.bookings.List(ctx, f.staff, BookingQuery{From: "2024-01-15", To: "2024-02-15"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2024-02-01", items[0].StartDate.Format(models.DayLayout))

	_, _, _, err = f.bookings.List(ctx, f.staff, BookingQuery{Page: Page{Sort: "password"}})
	_, ok := models.IsValidationError(err)
	assert.True(t, ok)
}

func TestGetBookingOwnership(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Kumasi")
	kofi := f.customer("kofi@example.com")
	esi := f.customer("esi@example.com")
	b := f.book(t, kofi, bookingInput(d.ID, kofi.Email, "2024-01-01", "2024-01-02"))

	_, err := f.bookings.Get(ctx, esi, b.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	got, err := f.bookings.Get(ctx, f.staff, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.BookingNumber, got.BookingNumber)
}

func TestBookingStats(t *testing.T) {
	f := newFixture(t, allFeatures)
	ctx := context.Background()
	d := f.destination(t, "Accra")
	kofi := f.customer("kofi@example.com")

	b := f.book(t, kofi, bookingInput(d.ID, kofi.Email, "2024-01-01", "2024-01-02"))
	f.book(t, kofi, bookingInput(d.ID, kofi.Email, "2024-02-01", "2024-02-02"))
	_, err := f.bookings.Update(ctx, f.staff, b.ID, &models.UpdateBookingInput{
		Status:  ptr(models.BookingConfirmed),
		Payment: &models.PaymentUpdateInput{PaymentStatus: ptr(models.PaymentPaid)},
	})
	require.NoError(t, err)

	_, err = f.bookings.Stats(ctx, kofi)
	assert.ErrorIs(t, err, models.ErrForbidden)

	stats, err := f.bookings.Stats(ctx, f.staff)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.ByStatus[models.BookingConfirmed])
	assert.EqualValues(t, 1, stats.ByStatus[models.BookingPending])
	assert.InDelta(t, 500, stats.Revenue, 0.001)
}
