package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/trailbook/internal/models"
	"github.com/joshua-takyi/trailbook/internal/services"
)

func ListReviews(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}

		q := newQueryParams(c)
		query := services.ReviewQuery{
			DestinationID: q.uuidParam("destination_id"),
			GuideID:       q.uuidParam("guide_id"),
			CustomerID:    q.uuidParam("customer_id"),
			MinRating:     q.intParam("min_rating", 0),
			Verified:      q.boolParam("verified"),
			Featured:      q.boolParam("featured"),
			Flagged:       q.boolParam("flagged"),
			Page:          q.page(),
		}
		if !q.done() {
			return
		}

		reviews, total, page, err := rs.List(c.Request.Context(), actor, query)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(reviews, page.Offset, page.Limit, int(total)))
	}
}

func GetReview(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		review, err := rs.Get(c.Request.Context(), actor, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(review, ""))
	}
}

func CreateReview(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}
		var in models.CreateReviewInput
		if !bindJSON(c, &in) {
			return
		}

		review, err := rs.Create(c.Request.Context(), actor, &in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(review, "Review created successfully"))
	}
}

func UpdateReview(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var in models.UpdateReviewInput
		if !bindJSON(c, &in) {
			return
		}

		review, err := rs.Update(c.Request.Context(), actor, id, &in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(review, "Review updated successfully"))
	}
}

func DeleteReview(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		if err := rs.Delete(c.Request.Context(), actor, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Review deleted successfully"))
	}
}

func MarkReviewHelpful(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		result, err := rs.MarkHelpful(c.Request.Context(), actor, id)
		if err != nil {
			respondError(c, err)
			return
		}
		msg := "Marked as helpful"
		if !result.Helpful {
			msg = "Helpful mark removed"
		}
		c.JSON(http.StatusOK, models.SuccessResponse(result, msg))
	}
}

func ReportReview(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var in models.ReportReviewInput
		if !bindJSON(c, &in) {
			return
		}

		if err := rs.Report(c.Request.Context(), actor, id, &in); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(nil, "Review reported"))
	}
}

func ModerateReview(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var in models.ModerateReviewInput
		if !bindJSON(c, &in) {
			return
		}

		review, err := rs.Moderate(c.Request.Context(), actor, id, &in)
		if err != nil {
			respondError(c, err)
			return
		}
		if review == nil {
			c.JSON(http.StatusOK, models.SuccessResponse(nil, "Review rejected and removed"))
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(review, "Review moderated"))
	}
}

func RespondToReview(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var in models.RespondReviewInput
		if !bindJSON(c, &in) {
			return
		}

		review, err := rs.Respond(c.Request.Context(), actor, id, &in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(review, "Response saved"))
	}
}
