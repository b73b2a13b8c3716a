package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/joshua-takyi/trailbook/internal/models"
)

// CatalogService manages destinations and guides. Ratings are never written here.
type CatalogService struct {
	store        models.Store
	availability *AvailabilityChecker
	logger       *slog.Logger
}

func NewCatalogService(store models.Store, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:        store,
		availability: NewAvailabilityChecker(store),
		logger:       logger,
	}
}

func (cs *CatalogService) CreateDestination(ctx context.Context, actor *models.Actor, in *models.DestinationInput) (*models.Destination, error) {
	if !actor.IsStaff() {
		return nil, models.NewPermissionError("only staff can manage destinations")
	}
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}
	d := &models.Destination{
		Name:        strings.TrimSpace(in.Name),
		Country:     strings.TrimSpace(in.Country),
		Region:      strings.TrimSpace(in.Region),
		Description: strings.TrimSpace(in.Description),
	}
	if err := cs.store.CreateDestination(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create destination: %w", err)
	}
	cs.logger.Info("destination created", "destination_id", d.ID, "actor_id", actor.UserID)
	return d, nil
}

func (cs *CatalogService) GetDestination(ctx context.Context, id uuid.UUID) (*models.Destination, error) {
	d, err := cs.store.GetDestinationByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("destination %s: %w", id, err)
	}
	return d, nil
}

func (cs *CatalogService) ListDestinations(ctx context.Context, p Page) ([]*models.Destination, int64, Page, error) {
	pg, err := p.resolve(nil)
	if err != nil {
		return nil, 0, p, err
	}
	items, total, err := cs.store.ListDestinations(ctx, pg.offset, pg.limit)
	return items, total, Page{Limit: pg.limit, Offset: pg.offset}, err
}

func (cs *CatalogService) CreateGuide(ctx context.Context, actor *models.Actor, in *models.GuideInput) (*models.Guide, error) {
	if !actor.IsStaff() {
		return nil, models.NewPermissionError("only staff can manage guides")
	}
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}
	g := &models.Guide{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		Languages: models.NewStringList(in.Languages),
	}
	if err := cs.store.CreateGuide(ctx, g); err != nil {
		if errors.Is(err, models.ErrDuplicateKey) {
			return nil, models.NewConflictError("a guide with email %s already exists", g.Email)
		}
		return nil, fmt.Errorf("failed to create guide: %w", err)
	}
	cs.logger.Info("guide created", "guide_id", g.ID, "actor_id", actor.UserID)
	return g, nil
}

func (cs *CatalogService) GetGuide(ctx context.Context, id uuid.UUID) (*models.Guide, error) {
	g, err := cs.store.GetGuideByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("guide %s: %w", id, err)
	}
	return g, nil
}

func (cs *CatalogService) ListGuides(ctx context.Context, p Page) ([]*models.Guide, int64, Page, error) {
	pg, err := p.resolve(nil)
	if err != nil {
		return nil, 0, p, err
	}
	items, total, err := cs.store.ListGuides(ctx, pg.offset, pg.limit)
	return items, total, Page{Limit: pg.limit, Offset: pg.offset}, err
}

// Availability reports whether target is free for the inclusive day range [start, end].
func (cs *CatalogService) Availability(ctx context.Context, target models.Target, start, end string) (*models.Availability, error) {
	verr := models.NewValidationError()
	from, err := models.ParseDay(start)
	if err != nil {
		verr.Add("start_date", "must be a date formatted as "+models.DayLayout)
	}
	to, err := models.ParseDay(end)
	if err != nil {
		verr.Add("end_date", "must be a date formatted as "+models.DayLayout)
	}
	if !verr.HasErrors() && to.Before(from) {
		verr.Add("end_date", "must be on or after start_date")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	switch target.Kind {
	case models.TargetDestination:
		_, err = cs.GetDestination(ctx, target.ID)
	case models.TargetGuide:
		_, err = cs.GetGuide(ctx, target.ID)
	}
	if err != nil {
		return nil, err
	}

	conflict, err := cs.availability.HasConflict(ctx, target, from, to, uuid.Nil)
	if err != nil {
		return nil, err
	}
	return &models.Availability{Target: target, StartDate: from, EndDate: to, Available: !conflict}, nil
}
