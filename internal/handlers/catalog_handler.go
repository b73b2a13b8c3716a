package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/trailbook/internal/models"
	"github.com/joshua-takyi/trailbook/internal/services"
)

func ListDestinations(cs *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := newQueryParams(c)
		p := q.page()
		if !q.done() {
			return
		}
		p.Sort, p.Order = "", ""

		items, total, page, err := cs.ListDestinations(c.Request.Context(), p)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(items, page.Offset, page.Limit, int(total)))
	}
}

func GetDestination(cs *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		d, err := cs.GetDestination(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(d, ""))
	}
}

func CreateDestination(cs *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}
		var in models.DestinationInput
		if !bindJSON(c, &in) {
			return
		}

		d, err := cs.CreateDestination(c.Request.Context(), actor, &in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(d, "Destination created successfully"))
	}
}

func ListGuides(cs *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := newQueryParams(c)
		p := q.page()
		if !q.done() {
			return
		}
		p.Sort, p.Order = "", ""

		items, total, page, err := cs.ListGuides(c.Request.Context(), p)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(items, page.Offset, page.Limit, int(total)))
	}
}

func GetGuide(cs *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		g, err := cs.GetGuide(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(g, ""))
	}
}

func CreateGuide(cs *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}
		var in models.GuideInput
		if !bindJSON(c, &in) {
			return
		}

		g, err := cs.CreateGuide(c.Request.Context(), actor, &in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(g, "Guide created successfully"))
	}
}

// CheckAvailability answers ?start_date=&end_date= for the destination or guide in the path.
func CheckAvailability(cs *services.CatalogService, kind models.TargetKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		target := models.Target{Kind: kind, ID: id}

		availability, err := cs.Availability(c.Request.Context(), target, c.Query("start_date"), c.Query("end_date"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(availabilityView{
			Kind:         kind,
			ID:           id,
			Availability: availability,
		}, ""))
	}
}

type availabilityView struct {
	Kind models.TargetKind `json:"target_type"`
	ID   uuid.UUID         `json:"target_id"`
	*models.Availability
}
