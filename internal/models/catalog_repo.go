package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func (pg *PostgresRepo) GetCustomerByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	var c Customer
	if err := pg.conn(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

func (pg *PostgresRepo) GetCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	var c Customer
	err := pg.conn(ctx).First(&c, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

func (pg *PostgresRepo) UpsertCustomer(ctx context.Context, c *Customer) (*Customer, error) {
	existing, err := pg.GetCustomerByEmail(ctx, c.Email)
	switch {
	case errors.Is(err, ErrNotFound):
		if err := pg.conn(ctx).Create(c).Error; err != nil {
			return nil, fmt.Errorf("failed to insert customer: %w", translateError(err))
		}
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	// struct updates skip zero values, so blanks keep the stored contact details
	update := *c
	update.ID = existing.ID
	update.Email = existing.Email
	if err := pg.conn(ctx).Model(existing).Updates(update).Error; err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", translateError(err))
	}
	return pg.GetCustomerByID(ctx, existing.ID)
}

func (pg *PostgresRepo) CreateDestination(ctx context.Context, d *Destination) error {
	if err := pg.conn(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("failed to insert destination: %w", translateError(err))
	}
	return nil
}

func (pg *PostgresRepo) GetDestinationByID(ctx context.Context, id uuid.UUID) (*Destination, error) {
	var d Destination
	if err := pg.conn(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &d, nil
}

func (pg *PostgresRepo) ListDestinations(ctx context.Context, offset, limit int) ([]*Destination, int64, error) {
	var total int64
	if err := pg.conn(ctx).Model(&Destination{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count destinations: %w", translateError(err))
	}
	var items []*Destination
	err := pg.conn(ctx).Order("name ASC").Limit(limit).Offset(offset).Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list destinations: %w", translateError(err))
	}
	return items, total, nil
}

func (pg *PostgresRepo) CreateGuide(ctx context.Context, g *Guide) error {
	if err := pg.conn(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("failed to insert guide: %w", translateError(err))
	}
	return nil
}

func (pg *PostgresRepo) GetGuideByID(ctx context.Context, id uuid.UUID) (*Guide, error) {
	var g Guide
	if err := pg.conn(ctx).First(&g, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &g, nil
}

func (pg *PostgresRepo) ListGuides(ctx context.Context, offset, limit int) ([]*Guide, int64, error) {
	var total int64
	if err := pg.conn(ctx).Model(&Guide{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count guides: %w", translateError(err))
	}
	var items []*Guide
	err := pg.conn(ctx).Order("name ASC").Limit(limit).Offset(offset).Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list guides: %w", translateError(err))
	}
	return items, total, nil
}

func (pg *PostgresRepo) SetRating(ctx context.Context, target Target, rating float64, count int) error {
	var model interface{}
	switch target.Kind {
	case TargetDestination:
		model = &Destination{}
	case TargetGuide:
		model = &Guide{}
	default:
		return fmt.Errorf("unknown target kind %q", target.Kind)
	}

	res := pg.conn(ctx).Model(model).Where("id = ?", target.ID).
		Updates(map[string]interface{}{"rating": rating, "review_count": count})
	if res.Error != nil {
		return fmt.Errorf("failed to set rating: %w", translateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
