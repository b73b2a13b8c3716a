package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/trailbook/internal/models"
	"github.com/joshua-takyi/trailbook/internal/services"
)

type notificationList struct {
	Items       []*models.Notification `json:"items"`
	UnreadCount int64                  `json:"unread_count"`
}

func ListNotifications(ns *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}

		q := newQueryParams(c)
		p := q.page()
		unread := q.boolParam("unread")
		if !q.done() {
			return
		}
		p.Sort, p.Order = "", ""

		result, page, err := ns.List(c.Request.Context(), actor, unread != nil && *unread, p)
		if err != nil {
			respondError(c, err)
			return
		}
		body := notificationList{Items: result.Items, UnreadCount: result.UnreadCount}
		c.JSON(http.StatusOK, models.PaginatedResponse(body, page.Offset, page.Limit, int(result.Total)))
	}
}

func MarkNotificationRead(ns *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			return
		}
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("id is required"))
			return
		}

		if err := ns.MarkRead(c.Request.Context(), actor, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Notification marked as read"))
	}
}
