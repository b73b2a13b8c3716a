package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/trailbook/internal/middleware"
	"github.com/joshua-takyi/trailbook/internal/models"
	"github.com/joshua-takyi/trailbook/internal/services"
)

// actorFromContext reads the caller set by AuthMiddleware and answers 401 when missing.
func actorFromContext(c *gin.Context) (*models.Actor, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized"))
		return nil, false
	}
	actor := claims.Actor()
	if actor.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("invalid user ID in token"))
		return nil, false
	}
	return actor, true
}

// respondError maps service errors onto status codes. Anything unexpected is handed to
// the ErrorHandler middleware, which logs it and answers with a generic 500.
func respondError(c *gin.Context, err error) {
	if verr, ok := models.IsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, models.FieldErrorResponse("validation failed", verr.Fields))
		return
	}

	var cerr *models.ConflictError
	var perr *models.PermissionError

	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse("resource not found"))
	case errors.As(err, &perr):
		c.JSON(http.StatusForbidden, models.ErrorResponse(perr.Message))
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse("forbidden"))
	case errors.As(err, &cerr):
		c.JSON(http.StatusConflict, models.ErrorResponse(cerr.Message))
	case errors.Is(err, models.ErrConflict), errors.Is(err, models.ErrSerialization):
		c.JSON(http.StatusConflict, models.ErrorResponse("the request conflicts with a concurrent change, try again"))
	case errors.Is(err, models.ErrFeatureDisabled):
		c.JSON(http.StatusNotFound, models.ErrorResponse("this feature is not enabled"))
	default:
		_ = c.Error(err)
	}
}

// bindJSON decodes the body and answers 400 on malformed input. Validation happens in the services.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request body: "+err.Error()))
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := strings.Trim(strings.TrimSpace(c.Param(name)), "\"'")
	if raw == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(name+" is required"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid "+name+" format"))
		return uuid.Nil, false
	}
	return id, true
}

// queryParams accumulates query-string parse failures into one field error response.
type queryParams struct {
	c    *gin.Context
	verr *models.ValidationError
}

func newQueryParams(c *gin.Context) *queryParams {
	return &queryParams{c: c, verr: models.NewValidationError()}
}

func (q *queryParams) intParam(name string, def int) int {
	raw := q.c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		q.verr.Add(name, "must be a non-negative integer")
		return def
	}
	return n
}

func (q *queryParams) uuidParam(name string) *uuid.UUID {
	raw := q.c.Query(name)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		q.verr.Add(name, "must be a valid uuid")
		return nil
	}
	return &id
}

func (q *queryParams) boolParam(name string) *bool {
	raw := q.c.Query(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.verr.Add(name, "must be true or false")
		return nil
	}
	return &b
}

func (q *queryParams) page() services.Page {
	return services.Page{
		Limit:  q.intParam("limit", services.DefaultPageLimit),
		Offset: q.intParam("offset", 0),
		Sort:   q.c.Query("sort"),
		Order:  q.c.Query("order"),
	}
}

// done answers 400 with the collected field errors, if any.
func (q *queryParams) done() bool {
	if q.verr.HasErrors() {
		q.c.JSON(http.StatusBadRequest, models.FieldErrorResponse("invalid query parameters", q.verr.Fields))
		return false
	}
	return true
}
