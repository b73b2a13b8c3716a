package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/trailbook/internal/models"
)

type activeBookingLister interface {
	ListActiveBookings(ctx context.Context, q models.ActiveBookingQuery) ([]*models.Booking, error)
}

// AvailabilityChecker decides whether a destination or guide is free for a date range.
// Only pending and confirmed bookings hold dates. Bounds are inclusive days.
type AvailabilityChecker struct {
	bookings activeBookingLister
}

func NewAvailabilityChecker(bookings activeBookingLister) *AvailabilityChecker {
	return &AvailabilityChecker{bookings: bookings}
}

func (a *AvailabilityChecker) HasConflict(ctx context.Context, target models.Target, start, end time.Time, excludeBookingID uuid.UUID) (bool, error) {
	start, end = models.TruncateDay(start), models.TruncateDay(end)
	if end.Before(start) {
		return false, fmt.Errorf("end date %s is before start date %s", end.Format(models.DayLayout), start.Format(models.DayLayout))
	}

	existing, err := a.bookings.ListActiveBookings(ctx, models.ActiveBookingQuery{
		Target:    target,
		StartDate: start,
		EndDate:   end,
		ExcludeID: excludeBookingID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check availability for %s: %w", target, err)
	}

	for _, b := range existing {
		if b.ID == excludeBookingID || !b.Status.IsActive() || !b.Occupies(target) {
			continue
		}
		if models.Overlaps(models.TruncateDay(b.StartDate), models.TruncateDay(b.EndDate), start, end) {
			return true, nil
		}
	}
	return false, nil
}

// ensureAvailable turns a conflict into the caller facing error for the target kind.
func (a *AvailabilityChecker) ensureAvailable(ctx context.Context, target models.Target, start, end time.Time, excludeBookingID uuid.UUID) error {
	conflict, err := a.HasConflict(ctx, target, start, end, excludeBookingID)
	if err != nil {
		return err
	}
	if !conflict {
		return nil
	}
	if target.Kind == models.TargetGuide {
		return models.NewConflictError("guide unavailable for these dates")
	}
	return models.NewConflictError("dates unavailable for destination")
}
