package api

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// Pagination defaults
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// parsePagination reads limit and page. Missing or invalid values fall back
// to the defaults and limit is capped at MaxLimit.
func parsePagination(ctx echo.Context) (limit, page int) {
	limit, err := strconv.Atoi(ctx.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = DefaultLimit
	} else if limit > MaxLimit {
		limit = MaxLimit
	}
	page, err = strconv.Atoi(ctx.QueryParam("page"))
	if err != nil || page <= 0 {
		page = 1
	}
	return limit, page
}

// queryBool reports whether a query parameter is set to a true value.
func queryBool(ctx echo.Context, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(ctx.QueryParam(name)))
	return err == nil && v
}
