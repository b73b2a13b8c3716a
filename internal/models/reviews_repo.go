package models

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const flaggedTagJSON = `["flagged"]`

// review counters that AdjustReviewCounter may touch
var reviewCounters = map[string]bool{
	"helpful_count":   true,
	"unhelpful_count": true,
	"report_count":    true,
}

func targetColumn(t Target) (string, error) {
	switch t.Kind {
	case TargetDestination:
		return "destination_id", nil
	case TargetGuide:
		return "guide_id", nil
	}
	return "", fmt.Errorf("unknown target kind %q", t.Kind)
}

func applyReviewFilter(db *gorm.DB, f ReviewFilter) *gorm.DB {
	q := db.Model(&Review{})
	if f.DestinationID != nil {
		q = q.Where("destination_id = ?", *f.DestinationID)
	}
	if f.GuideID != nil {
		q = q.Where("guide_id = ?", *f.GuideID)
	}
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.MinRating > 0 {
		q = q.Where("rating >= ?", f.MinRating)
	}
	if f.Verified != nil {
		q = q.Where("verified = ?", *f.Verified)
	}
	if f.Featured != nil {
		q = q.Where("featured = ?", *f.Featured)
	}
	if f.Flagged != nil {
		if *f.Flagged {
			q = q.Where("tags @> ?::jsonb", flaggedTagJSON)
		} else {
			q = q.Where("(tags IS NULL OR NOT (tags @> ?::jsonb))", flaggedTagJSON)
		}
	}
	return q
}

func (pg *PostgresRepo) ListReviews(ctx context.Context, f ReviewFilter) ([]*Review, int64, error) {
	var total int64
	if err := applyReviewFilter(pg.conn(ctx), f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", translateError(err))
	}

	var items []*Review
	err := applyReviewFilter(pg.conn(ctx), f).
		Preload("Customer").
		Order(clause.OrderByColumn{Column: clause.Column{Name: f.SortColumn}, Desc: f.SortDesc}).
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", translateError(err))
	}
	return items, total, nil
}

func (pg *PostgresRepo) GetReviewByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	var r Review
	err := pg.conn(ctx).Preload(clause.Associations).First(&r, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &r, nil
}

func (pg *PostgresRepo) FindReviewByAuthor(ctx context.Context, customerID uuid.UUID, target Target) (*Review, error) {
	col, err := targetColumn(target)
	if err != nil {
		return nil, err
	}
	var r Review
	err = pg.conn(ctx).Where("customer_id = ?", customerID).Where(col+" = ?", target.ID).First(&r).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &r, nil
}

func (pg *PostgresRepo) ListTargetRatings(ctx context.Context, target Target) ([]int, error) {
	col, err := targetColumn(target)
	if err != nil {
		return nil, err
	}
	var ratings []int
	if err := pg.conn(ctx).Model(&Review{}).Where(col+" = ?", target.ID).Pluck("rating", &ratings).Error; err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", translateError(err))
	}
	return ratings, nil
}

func (pg *PostgresRepo) CreateReview(ctx context.Context, r *Review) error {
	if err := pg.conn(ctx).Omit("Customer", "Destination", "Guide").Create(r).Error; err != nil {
		return fmt.Errorf("failed to insert review: %w", translateError(err))
	}
	return nil
}

func (pg *PostgresRepo) UpdateReview(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := pg.conn(ctx).Model(&Review{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update review: %w", translateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (pg *PostgresRepo) DeleteReview(ctx context.Context, id uuid.UUID) error {
	res := pg.conn(ctx).Delete(&Review{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete review: %w", translateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (pg *PostgresRepo) AdjustReviewCounter(ctx context.Context, id uuid.UUID, column string, delta int) error {
	if !reviewCounters[column] {
		return fmt.Errorf("unknown review counter %q", column)
	}
	res := pg.conn(ctx).Model(&Review{}).Where("id = ?", id).
		UpdateColumn(column, gorm.Expr("GREATEST("+column+" + ?, 0)", delta))
	if res.Error != nil {
		return fmt.Errorf("failed to adjust %s: %w", column, translateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (pg *PostgresRepo) HelpfulVoteExists(ctx context.Context, reviewID, userID uuid.UUID) (bool, error) {
	var n int64
	err := pg.conn(ctx).Model(&ReviewHelpful{}).
		Where("review_id = ? AND user_id = ?", reviewID, userID).
		Count(&n).Error
	if err != nil {
		return false, translateError(err)
	}
	return n > 0, nil
}

func (pg *PostgresRepo) AddHelpfulVote(ctx context.Context, vote *ReviewHelpful) error {
	return translateError(pg.conn(ctx).Create(vote).Error)
}

func (pg *PostgresRepo) RemoveHelpfulVote(ctx context.Context, reviewID, userID uuid.UUID) error {
	err := pg.conn(ctx).Where("review_id = ? AND user_id = ?", reviewID, userID).Delete(&ReviewHelpful{}).Error
	return translateError(err)
}

// DeleteHelpfulVotes runs under a savepoint so a missing table leaves the outer transaction usable.
func (pg *PostgresRepo) DeleteHelpfulVotes(ctx context.Context, reviewID uuid.UUID) error {
	return pg.savepoint(ctx, func(tx *gorm.DB) error {
		return tx.Where("review_id = ?", reviewID).Delete(&ReviewHelpful{}).Error
	})
}

func (pg *PostgresRepo) CreateReviewReport(ctx context.Context, report *ReviewReport) error {
	return pg.savepoint(ctx, func(tx *gorm.DB) error {
		return tx.Create(report).Error
	})
}

func (pg *PostgresRepo) DeleteReviewReports(ctx context.Context, reviewID uuid.UUID) error {
	return pg.savepoint(ctx, func(tx *gorm.DB) error {
		return tx.Where("review_id = ?", reviewID).Delete(&ReviewReport{}).Error
	})
}
