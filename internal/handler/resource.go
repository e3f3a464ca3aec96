package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/school-api/internal/query"
)

// listResponse is the envelope every list endpoint returns.  Page and
// Limit echo the resolved values, not the raw query string.
type listResponse[T any] struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
	Data       []T   `json:"data"`
}

func newListResponse[T any](data []T, total int64, opts query.Options) listResponse[T] {
	if data == nil {
		data = []T{}
	}
	return listResponse[T]{
		Total:      total,
		Page:       opts.Page,
		Limit:      opts.Limit,
		TotalPages: opts.TotalPages(total),
		Data:       data,
	}
}

// parseID reads the :id path parameter.
func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
