package services

import (
	"context"
	"fmt"
	"math"

	"github.com/joshua-takyi/trailbook/internal/models"
)

type ratingStore interface {
	ListTargetRatings(ctx context.Context, target models.Target) ([]int, error)
	SetRating(ctx context.Context, target models.Target, rating float64, count int) error
}

// AverageRating is the mean of every rating rounded to one decimal, 0 when there are none.
func AverageRating(ratings []int) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	mean := float64(sum) / float64(len(ratings))
	return math.Round(mean*10) / 10, len(ratings)
}

// RecomputeRating rewrites the aggregate of target from all of its current reviews,
// verified or not. Run it inside the transaction that changed the reviews.
func RecomputeRating(ctx context.Context, store ratingStore, target models.Target) error {
	ratings, err := store.ListTargetRatings(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to load ratings for %s: %w", target, err)
	}
	rating, count := AverageRating(ratings)
	if err := store.SetRating(ctx, target, rating, count); err != nil {
		return fmt.Errorf("failed to store rating for %s: %w", target, err)
	}
	return nil
}
