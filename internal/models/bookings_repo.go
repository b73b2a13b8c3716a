package models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const monthlyBookingsQuery = `
SELECT date_trunc('month', created_at) AS month, COUNT(*) AS count
FROM bookings
WHERE created_at >= $1 AND created_at < $2
GROUP BY month
ORDER BY month`

func applyBookingFilter(db *gorm.DB, f BookingFilter) *gorm.DB {
	q := db.Model(&Booking{})
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.DestinationID != nil {
		q = q.Where("destination_id = ?", *f.DestinationID)
	}
	if f.GuideID != nil {
		q = q.Where("guide_id = ?", *f.GuideID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	switch {
	case f.From != nil && f.To != nil:
		q = q.Where("((start_date BETWEEN ? AND ?) OR (end_date BETWEEN ? AND ?) OR (start_date <= ? AND end_date >= ?))",
			*f.From, *f.To, *f.From, *f.To, *f.From, *f.To)
	case f.From != nil:
		q = q.Where("end_date >= ?", *f.From)
	case f.To != nil:
		q = q.Where("start_date <= ?", *f.To)
	}
	return q
}

func (pg *PostgresRepo) ListBookings(ctx context.Context, f BookingFilter) ([]*Booking, int64, error) {
	var total int64
	if err := applyBookingFilter(pg.conn(ctx), f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", translateError(err))
	}

	order := clause.OrderByColumn{Column: clause.Column{Name: f.SortColumn}, Desc: f.SortDesc}
	var items []*Booking
	err := applyBookingFilter(pg.conn(ctx), f).
		Preload("Customer").Preload("Destination").Preload("Guide").
		Order(order).
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", translateError(err))
	}
	return items, total, nil
}

func (pg *PostgresRepo) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var b Booking
	err := pg.conn(ctx).Preload(clause.Associations).First(&b, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &b, nil
}

func (pg *PostgresRepo) ListActiveBookings(ctx context.Context, q ActiveBookingQuery) ([]*Booking, error) {
	db := pg.conn(ctx).
		Where("status IN ?", ActiveBookingStatuses).
		Where("start_date <= ? AND end_date >= ?", q.EndDate, q.StartDate)

	switch q.Target.Kind {
	case TargetDestination:
		db = db.Where("destination_id = ?", q.Target.ID)
	case TargetGuide:
		db = db.Where("guide_id = ?", q.Target.ID)
	default:
		return nil, fmt.Errorf("unknown target kind %q", q.Target.Kind)
	}
	if q.ExcludeID != uuid.Nil {
		db = db.Where("id <> ?", q.ExcludeID)
	}

	var out []*Booking
	if err := db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to load active bookings: %w", translateError(err))
	}
	return out, nil
}

func (pg *PostgresRepo) CreateBooking(ctx context.Context, b *Booking) error {
	err := pg.conn(ctx).Omit("Customer", "Destination", "Guide").Create(b).Error
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", translateError(err))
	}
	return nil
}

func (pg *PostgresRepo) UpdateBooking(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := pg.conn(ctx).Model(&Booking{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update booking: %w", translateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func replaceRows[T any](tx *gorm.DB, bookingID uuid.UUID, rows []T) error {
	if rows == nil {
		return nil
	}
	var zero T
	if err := tx.Where("booking_id = ?", bookingID).Delete(&zero).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

func (pg *PostgresRepo) ReplaceBookingChildren(ctx context.Context, id uuid.UUID, c *BookingChildren) error {
	if c == nil || c.IsEmpty() {
		return nil
	}
	tx := pg.conn(ctx)
	err := replaceRows(tx, id, c.Accommodations)
	if err == nil {
		err = replaceRows(tx, id, c.Transportation)
	}
	if err == nil {
		err = replaceRows(tx, id, c.Activities)
	}
	if err == nil {
		err = replaceRows(tx, id, c.EquipmentRentals)
	}
	if err == nil {
		err = replaceRows(tx, id, c.Transactions)
	}
	if err == nil {
		err = replaceRows(tx, id, c.Documents)
	}
	if err == nil {
		err = replaceRows(tx, id, c.Notes)
	}
	if err == nil && c.EmergencyContact != nil {
		err = replaceRows(tx, id, []EmergencyContact{*c.EmergencyContact})
	}
	if err != nil {
		return fmt.Errorf("failed to replace booking children: %w", translateError(err))
	}
	return nil
}

// DeleteBooking removes every child row before the booking itself.
func (pg *PostgresRepo) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	tx := pg.conn(ctx)
	children := []interface{}{
		&Accommodation{}, &Transportation{}, &Activity{}, &EquipmentRental{},
		&PaymentTransaction{}, &EmergencyContact{}, &Document{}, &Note{},
	}
	for _, model := range children {
		if err := tx.Where("booking_id = ?", id).Delete(model).Error; err != nil {
			return fmt.Errorf("failed to delete booking children: %w", translateError(err))
		}
	}

	res := tx.Delete(&Booking{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete booking: %w", translateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (pg *PostgresRepo) BookingStats(ctx context.Context, year int) (*BookingStats, error) {
	db := pg.conn(ctx)
	stats := &BookingStats{ByStatus: make(map[BookingStatus]int64), Year: year, Monthly: []MonthlyCount{}}

	var rows []struct {
		Status BookingStatus
		Count  int64
	}
	if err := db.Model(&Booking{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count bookings by status: %w", translateError(err))
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.Total += r.Count
	}

	err := db.Model(&Booking{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("status IN ? AND payment_status = ?", []BookingStatus{BookingConfirmed, BookingCompleted}, PaymentPaid).
		Scan(&stats.Revenue).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", translateError(err))
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	pgRows, err := pg.pool.Query(ctx, monthlyBookingsQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly bookings: %w", translateError(err))
	}
	defer pgRows.Close()

	for pgRows.Next() {
		var month time.Time
		var count int64
		if err := pgRows.Scan(&month, &count); err != nil {
			return nil, fmt.Errorf("failed to scan monthly bookings: %w", err)
		}
		stats.Monthly = append(stats.Monthly, MonthlyCount{Month: month.UTC().Format("2006-01"), Count: count})
	}
	if err := pgRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read monthly bookings: %w", err)
	}
	return stats, nil
}
