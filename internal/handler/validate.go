package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo.Validator.  Field
// names in messages use the JSON tag.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate returns a 400 HTTPError describing the first failing field.
func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	fe := fields[0]
	switch fe.Tag() {
	case "required":
		return echo.NewHTTPError(http.StatusBadRequest, fe.Field()+" is required")
	case "email":
		return echo.NewHTTPError(http.StatusBadRequest, fe.Field()+" must be a valid email address")
	default:
		return echo.NewHTTPError(http.StatusBadRequest, fe.Field()+" is invalid")
	}
}

// bind decodes the body into dst, lets dst normalise itself, then
// validates it.
func bind(c echo.Context, dst normalizer) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	dst.normalize()
	return c.Validate(dst)
}

// normalizer is implemented by request bodies that trim their fields
// before validation.
type normalizer interface {
	normalize()
}
