package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/trailbook/internal/models"
)

const maxTxAttempts = 3

type BookingService struct {
	store        models.Store
	availability *AvailabilityChecker
	notifier     *NotificationService
	logger       *slog.Logger
	clock        func() time.Time
}

func NewBookingService(store models.Store, notifier *NotificationService, logger *slog.Logger) *BookingService {
	return &BookingService{
		store:        store,
		availability: NewAvailabilityChecker(store),
		notifier:     notifier,
		logger:       logger,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

// BookingQuery is the filter half of a list call. Dates are YYYY-MM-DD.
type BookingQuery struct {
	CustomerID    *uuid.UUID
	DestinationID *uuid.UUID
	GuideID       *uuid.UUID
	Status        string
	From          string
	To            string
	Page          Page
}

// retryable reports store errors after which the whole transaction may be replayed.
func retryable(err error) bool {
	return errors.Is(err, models.ErrSerialization) || errors.Is(err, models.ErrDuplicateKey)
}

// inTx runs fn in a serializable transaction, replaying it while the store reports a
// retryable failure. fn must convert duplicates it treats as conflicts itself.
func inTx(ctx context.Context, store models.Store, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = store.RunInTx(ctx, fn)
		if !retryable(err) {
			return err
		}
	}
	return err
}

func (bs *BookingService) List(ctx context.Context, actor *models.Actor, q BookingQuery) ([]*models.Booking, int64, Page, error) {
	pg, err := q.Page.resolve(models.BookingSortColumns)
	if err != nil {
		return nil, 0, q.Page, err
	}
	filter := models.BookingFilter{
		CustomerID:    q.CustomerID,
		DestinationID: q.DestinationID,
		GuideID:       q.GuideID,
		SortColumn:    pg.column,
		SortDesc:      pg.desc,
		Limit:         pg.limit,
		Offset:        pg.offset,
	}
	resolved := Page{Limit: pg.limit, Offset: pg.offset}

	verr := models.NewValidationError()
	if q.Status != "" {
		status := models.BookingStatus(q.Status)
		if !validBookingStatus(status) {
			verr.Add("status", "unknown booking status "+q.Status)
		}
		filter.Status = status
	}
	if q.From != "" {
		from, err := models.ParseDay(q.From)
		if err != nil {
			verr.Add("from", "must be a date formatted as "+models.DayLayout)
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := models.ParseDay(q.To)
		if err != nil {
			verr.Add("to", "must be a date formatted as "+models.DayLayout)
		}
		filter.To = &to
	}
	if err := verr.OrNil(); err != nil {
		return nil, 0, resolved, err
	}

	if !actor.IsStaff() {
		customer, err := bs.store.GetCustomerByEmail(ctx, actor.Email)
		if errors.Is(err, models.ErrNotFound) {
			return []*models.Booking{}, 0, resolved, nil
		}
		if err != nil {
			return nil, 0, resolved, fmt.Errorf("failed to resolve caller's customer record: %w", err)
		}
		filter.CustomerID = &customer.ID
	}

	items, total, err := bs.store.ListBookings(ctx, filter)
	if err != nil {
		return nil, 0, resolved, err
	}
	return items, total, resolved, nil
}

func validBookingStatus(s models.BookingStatus) bool {
	switch s {
	case models.BookingPending, models.BookingConfirmed, models.BookingCancelled, models.BookingCompleted, models.BookingInProgress:
		return true
	}
	return false
}

func (bs *BookingService) Get(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Booking, error) {
	b, err := bs.store.GetBookingByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", id, err)
	}
	if !actor.IsStaff() && !ownsBooking(actor, b) {
		return nil, models.NewPermissionError("you can only view your own bookings")
	}
	return b, nil
}

func ownsBooking(actor *models.Actor, b *models.Booking) bool {
	return b.Customer != nil && actor.EmailMatches(b.Customer.Email)
}

func (bs *BookingService) Create(ctx context.Context, actor *models.Actor, in *models.CreateBookingInput) (*models.Booking, error) {
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}

	verr := models.NewValidationError()
	start, err := models.ParseDay(in.StartDate)
	if err != nil {
		verr.Add("start_date", "must be a date formatted as "+models.DayLayout)
	}
	end, err := models.ParseDay(in.EndDate)
	if err != nil {
		verr.Add("end_date", "must be a date formatted as "+models.DayLayout)
	}
	if !verr.HasErrors() && end.Before(start) {
		verr.Add("end_date", "must be on or after start_date")
	}
	total := in.Adults + in.Children + in.Infants
	if total < 1 {
		verr.Add("adults", "at least one traveler is required")
	}
	var balanceDue *time.Time
	if in.Payment.BalanceDueDate != "" {
		d, err := models.ParseDay(in.Payment.BalanceDueDate)
		if err != nil {
			verr.Add("payment.balance_due_date", "must be a date formatted as "+models.DayLayout)
		}
		balanceDue = &d
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" || !actor.IsStaff() {
		status = models.BookingPending
	}
	if !actor.IsStaff() && !actor.EmailMatches(in.Customer.Email) {
		return nil, models.NewPermissionError("customers can only book for their own email address")
	}

	destination, err := bs.store.GetDestinationByID(ctx, in.DestinationID)
	if err != nil {
		return nil, fmt.Errorf("destination %s: %w", in.DestinationID, err)
	}
	var guide *models.Guide
	if in.GuideID != nil {
		if guide, err = bs.store.GetGuideByID(ctx, *in.GuideID); err != nil {
			return nil, fmt.Errorf("guide %s: %w", *in.GuideID, err)
		}
	}

	currency := in.Payment.Currency
	if currency == "" {
		currency = "USD"
	}
	paymentStatus := in.Payment.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = models.PaymentPending
	}

	var created *models.Booking
	for attempt := 1; ; attempt++ {
		now := bs.clock()
		booking := &models.Booking{
			ID:              uuid.New(),
			BookingNumber:   NewBookingNumber(in.Customer.FirstName, in.Customer.LastName, now),
			Status:          status,
			StartDate:       start,
			EndDate:         end,
			Duration:        models.DaysBetween(start, end),
			Adults:          in.Adults,
			Children:        in.Children,
			Infants:         in.Infants,
			TotalTravelers:  total,
			TotalAmount:     in.Payment.TotalAmount,
			Currency:        currency,
			PaymentStatus:   paymentStatus,
			DepositAmount:   in.Payment.DepositAmount,
			DepositPaid:     in.Payment.DepositPaid,
			BalanceDueDate:  balanceDue,
			SpecialRequests: models.NewStringList(in.SpecialRequests),
			DestinationID:   destination.ID,
			GuideID:         in.GuideID,
		}
		children := in.BookingChildren
		children.Attach(booking.ID, currency, now)
		children.Apply(booking)

		err = bs.store.RunInTx(ctx, func(ctx context.Context) error {
			// cancelled and completed bookings hold no dates
			if status.IsActive() {
				if err := bs.availability.ensureAvailable(ctx, models.DestinationTarget(destination.ID), start, end, uuid.Nil); err != nil {
					return err
				}
				if guide != nil {
					if err := bs.availability.ensureAvailable(ctx, models.GuideTarget(guide.ID), start, end, uuid.Nil); err != nil {
						return err
					}
				}
			}
			customer, err := bs.store.UpsertCustomer(ctx, in.Customer.ToCustomer())
			if err != nil {
				return err
			}
			booking.CustomerID = customer.ID
			return bs.store.CreateBooking(ctx, booking)
		})
		if err == nil {
			created = booking
			break
		}
		if !retryable(err) || attempt >= maxTxAttempts {
			return nil, fmt.Errorf("failed to create booking: %w", err)
		}
		bs.logger.Warn("retrying booking creation", "attempt", attempt, "error", err)
	}

	full, err := bs.store.GetBookingByID(ctx, created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload booking %s: %w", created.ID, err)
	}

	bs.logger.Info("booking created",
		"booking_id", full.ID,
		"booking_number", full.BookingNumber,
		"destination_id", full.DestinationID,
		"actor_id", actor.UserID)

	bs.notifyCreated(ctx, full)
	return full, nil
}

func bookingNote(b *models.Booking, typ models.NotificationType, title, description string) models.Notification {
	return models.Notification{
		Title:             title,
		Description:       description,
		Type:              typ,
		RelatedEntityType: "booking",
		RelatedEntityID:   b.ID.String(),
		RelatedEntityName: b.BookingNumber,
		ActionURL:         "/bookings/" + b.ID.String(),
		ActionLabel:       "View booking",
	}
}

func describeBooking(b *models.Booking) string {
	dest := "a destination"
	if b.Destination != nil {
		dest = b.Destination.Name
	}
	return fmt.Sprintf("%s to %s from %s to %s for %d traveler(s)",
		b.BookingNumber, dest, b.StartDate.Format(models.DayLayout), b.EndDate.Format(models.DayLayout), b.TotalTravelers)
}

func (bs *BookingService) notifyCreated(ctx context.Context, b *models.Booking) {
	desc := describeBooking(b)
	if b.Customer != nil {
		desc += " booked by " + b.Customer.FullName()
	}

	notes := fanOut(bookingNote(b, models.NotificationInfo, "New booking received", desc), bs.notifier.AdminRecipients(ctx)...)
	if b.Guide != nil {
		if id, ok := bs.notifier.RecipientByEmail(ctx, b.Guide.Email); ok {
			notes = append(notes, fanOut(bookingNote(b, models.NotificationInfo, "You have been assigned a booking", desc), id)...)
		}
	}
	if b.Customer != nil {
		if id, ok := bs.notifier.RecipientByEmail(ctx, b.Customer.Email); ok {
			notes = append(notes, fanOut(bookingNote(b, models.NotificationSuccess, "Your booking has been received", desc), id)...)
		}
	}
	bs.notifier.Dispatch(ctx, notes...)
}

func (bs *BookingService) Update(ctx context.Context, actor *models.Actor, id uuid.UUID, in *models.UpdateBookingInput) (*models.Booking, error) {
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}

	var before, after *models.Booking
	err := inTx(ctx, bs.store, func(ctx context.Context) error {
		current, err := bs.store.GetBookingByID(ctx, id)
		if err != nil {
			return fmt.Errorf("booking %s: %w", id, err)
		}
		if err := authorizeBookingUpdate(actor, current, in); err != nil {
			return err
		}

		fields, err := bs.mergeBookingUpdate(ctx, current, in)
		if err != nil {
			return err
		}
		if err := bs.store.UpdateBooking(ctx, id, fields); err != nil {
			return err
		}

		children := in.BookingChildren
		currency := current.Currency
		if c, ok := fields["currency"].(string); ok {
			currency = c
		}
		children.Attach(id, currency, bs.clock())
		if err := bs.store.ReplaceBookingChildren(ctx, id, &children); err != nil {
			return err
		}

		before = current
		after, err = bs.store.GetBookingByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	bs.notifyUpdated(ctx, before, after)
	return after, nil
}

// authorizeBookingUpdate lets staff change anything. Owners may edit their own unprotected
// booking and cancel it, but not confirm it, reassign the guide or touch payment.
func authorizeBookingUpdate(actor *models.Actor, b *models.Booking, in *models.UpdateBookingInput) error {
	if actor.IsStaff() {
		return nil
	}
	if !ownsBooking(actor, b) {
		return models.NewPermissionError("you can only update your own bookings")
	}
	if b.Status.IsProtected() {
		return models.NewPermissionError("a %s booking can only be changed by staff", b.Status)
	}
	if in.Status != nil && *in.Status != models.BookingCancelled && *in.Status != b.Status {
		return models.NewPermissionError("customers can only cancel a booking")
	}
	if in.Payment != nil || in.Transactions != nil {
		return models.NewPermissionError("payment details can only be changed by staff")
	}
	if in.GuideID != nil || in.RemoveGuide {
		return models.NewPermissionError("guide assignments can only be changed by staff")
	}
	if in.Customer != nil && !actor.EmailMatches(in.Customer.Email) {
		return models.NewPermissionError("customers can only book for their own email address")
	}
	return nil
}

// mergeBookingUpdate turns the present fields into column updates and re-checks
// availability when the booking would hold different dates or targets.
func (bs *BookingService) mergeBookingUpdate(ctx context.Context, cur *models.Booking, in *models.UpdateBookingInput) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	verr := models.NewValidationError()

	start, end := cur.StartDate, cur.EndDate
	if in.StartDate != nil {
		d, err := models.ParseDay(*in.StartDate)
		if err != nil {
			verr.Add("start_date", "must be a date formatted as "+models.DayLayout)
		}
		start = d
		fields["start_date"] = d
	}
	if in.EndDate != nil {
		d, err := models.ParseDay(*in.EndDate)
		if err != nil {
			verr.Add("end_date", "must be a date formatted as "+models.DayLayout)
		}
		end = d
		fields["end_date"] = d
	}
	datesChanged := in.StartDate != nil || in.EndDate != nil
	if datesChanged {
		if end.Before(start) {
			verr.Add("end_date", "must be on or after start_date")
		}
		fields["duration"] = models.DaysBetween(start, end)
	}

	if in.Adults != nil || in.Children != nil || in.Infants != nil {
		adults, children, infants := cur.Adults, cur.Children, cur.Infants
		if in.Adults != nil {
			adults = *in.Adults
			fields["adults"] = adults
		}
		if in.Children != nil {
			children = *in.Children
			fields["children"] = children
		}
		if in.Infants != nil {
			infants = *in.Infants
			fields["infants"] = infants
		}
		total := adults + children + infants
		if total < 1 {
			verr.Add("adults", "at least one traveler is required")
		}
		fields["total_travelers"] = total
	}

	if p := in.Payment; p != nil {
		if p.TotalAmount != nil {
			fields["total_amount"] = *p.TotalAmount
		}
		if p.Currency != nil {
			fields["currency"] = *p.Currency
		}
		if p.PaymentStatus != nil {
			fields["payment_status"] = *p.PaymentStatus
		}
		if p.DepositAmount != nil {
			fields["deposit_amount"] = *p.DepositAmount
		}
		if p.DepositPaid != nil {
			fields["deposit_paid"] = *p.DepositPaid
		}
		if p.BalanceDueDate != nil {
			d, err := models.ParseDay(*p.BalanceDueDate)
			if err != nil {
				verr.Add("payment.balance_due_date", "must be a date formatted as "+models.DayLayout)
			}
			fields["balance_due_date"] = &d
		}
	}
	if in.SpecialRequests != nil {
		fields["special_requests"] = models.NewStringList(in.SpecialRequests)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	status := cur.Status
	if in.Status != nil {
		status = *in.Status
		fields["status"] = status
	}

	destinationID := cur.DestinationID
	if in.DestinationID != nil && *in.DestinationID != cur.DestinationID {
		if _, err := bs.store.GetDestinationByID(ctx, *in.DestinationID); err != nil {
			return nil, fmt.Errorf("destination %s: %w", *in.DestinationID, err)
		}
		destinationID = *in.DestinationID
		fields["destination_id"] = destinationID
	}

	guideID := cur.GuideID
	guideChanged := false
	switch {
	case in.RemoveGuide && cur.GuideID != nil:
		guideID, guideChanged = nil, true
		fields["guide_id"] = (*uuid.UUID)(nil)
	case in.GuideID != nil && (cur.GuideID == nil || *cur.GuideID != *in.GuideID):
		if _, err := bs.store.GetGuideByID(ctx, *in.GuideID); err != nil {
			return nil, fmt.Errorf("guide %s: %w", *in.GuideID, err)
		}
		id := *in.GuideID
		guideID, guideChanged = &id, true
		fields["guide_id"] = guideID
	}

	reactivated := status.IsActive() && !cur.Status.IsActive()
	if status.IsActive() && (datesChanged || reactivated || destinationID != cur.DestinationID || guideChanged) {
		if err := bs.availability.ensureAvailable(ctx, models.DestinationTarget(destinationID), start, end, cur.ID); err != nil {
			return nil, err
		}
		if guideID != nil {
			if err := bs.availability.ensureAvailable(ctx, models.GuideTarget(*guideID), start, end, cur.ID); err != nil {
				return nil, err
			}
		}
	}

	if in.Customer != nil {
		customer, err := bs.store.UpsertCustomer(ctx, in.Customer.ToCustomer())
		if err != nil {
			return nil, err
		}
		if customer.ID != cur.CustomerID {
			fields["customer_id"] = customer.ID
		}
	}
	return fields, nil
}

func (bs *BookingService) notifyUpdated(ctx context.Context, before, after *models.Booking) {
	var notes []models.Notification

	if before.Status != after.Status {
		typ := models.NotificationInfo
		switch after.Status {
		case models.BookingConfirmed, models.BookingCompleted:
			typ = models.NotificationSuccess
		case models.BookingCancelled:
			typ = models.NotificationWarning
		}
		desc := fmt.Sprintf("Booking %s is now %s", after.BookingNumber, after.Status)
		recipients := bs.notifier.AdminRecipients(ctx)
		if after.Customer != nil {
			if id, ok := bs.notifier.RecipientByEmail(ctx, after.Customer.Email); ok {
				recipients = append(recipients, id)
			}
		}
		notes = append(notes, fanOut(bookingNote(after, typ, "Booking status updated", desc), recipients...)...)
	}

	if !sameGuide(before.GuideID, after.GuideID) {
		if after.Guide != nil {
			if id, ok := bs.notifier.RecipientByEmail(ctx, after.Guide.Email); ok {
				desc := "You have been assigned to booking " + describeBooking(after)
				notes = append(notes, fanOut(bookingNote(after, models.NotificationInfo, "New booking assignment", desc), id)...)
			}
		}
		if before.Guide != nil {
			if id, ok := bs.notifier.RecipientByEmail(ctx, before.Guide.Email); ok {
				desc := fmt.Sprintf("You are no longer assigned to booking %s", after.BookingNumber)
				notes = append(notes, fanOut(bookingNote(after, models.NotificationWarning, "Booking reassigned", desc), id)...)
			}
		}
	}
	bs.notifier.Dispatch(ctx, notes...)
}

func sameGuide(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Delete is open to the owning customer and administrators. Only administrators may
// delete a confirmed or in-progress booking.
func (bs *BookingService) Delete(ctx context.Context, actor *models.Actor, id uuid.UUID) error {
	err := inTx(ctx, bs.store, func(ctx context.Context) error {
		b, err := bs.store.GetBookingByID(ctx, id)
		if err != nil {
			return fmt.Errorf("booking %s: %w", id, err)
		}
		if !actor.IsAdmin() && !ownsBooking(actor, b) {
			return models.NewPermissionError("only the booking owner or an administrator can delete this booking")
		}
		if !actor.IsAdmin() && b.Status.IsProtected() {
			return models.NewPermissionError("a %s booking can only be deleted by an administrator", b.Status)
		}
		return bs.store.DeleteBooking(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	bs.logger.Info("booking deleted", "booking_id", id, "actor_id", actor.UserID)
	return nil
}

func (bs *BookingService) Stats(ctx context.Context, actor *models.Actor) (*models.BookingStats, error) {
	if !actor.IsStaff() {
		return nil, models.NewPermissionError("booking statistics are restricted to staff")
	}
	stats, err := bs.store.BookingStats(ctx, bs.clock().Year())
	if err != nil {
		return nil, fmt.Errorf("failed to compute booking stats: %w", err)
	}
	return stats, nil
}
