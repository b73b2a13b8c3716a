package services

import (
	"strings"

	"github.com/joshua-takyi/trailbook/internal/models"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is the raw paging and sorting input of a list call.
type Page struct {
	Limit  int
	Offset int
	Sort   string
	Order  string
}

type resolvedPage struct {
	limit  int
	offset int
	column string
	desc   bool
}

// resolve clamps the limit, whitelists the sort field and defaults to newest first.
func (p Page) resolve(columns map[string]string) (resolvedPage, error) {
	out := resolvedPage{limit: p.Limit, offset: p.Offset, column: "created_at", desc: true}
	if out.limit <= 0 {
		out.limit = DefaultPageLimit
	}
	if out.limit > MaxPageLimit {
		out.limit = MaxPageLimit
	}
	if out.offset < 0 {
		out.offset = 0
	}

	verr := models.NewValidationError()
	if p.Sort != "" {
		col, ok := columns[p.Sort]
		if !ok {
			verr.Add("sort", "unsupported sort field "+p.Sort)
		}
		out.column = col
	}
	switch strings.ToLower(p.Order) {
	case "":
	case "asc":
		out.desc = false
	case "desc":
		out.desc = true
	default:
		verr.Add("order", "must be asc or desc")
	}
	return out, verr.OrNil()
}
