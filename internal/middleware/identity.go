package middleware

// identity.go stores the authenticated subject on both the echo context and
// the request's context.Context, so handlers and anything they call can
// read it without depending on echo.

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/school-api/internal/utils"
)

const identityKey = "identity"

type identityCtxKey struct{}

func setIdentity(c echo.Context, sub utils.Subject) {
	c.Set(identityKey, sub)
	c.SetRequest(c.Request().WithContext(ContextWithIdentity(c.Request().Context(), sub)))
}

// ContextWithIdentity returns a copy of ctx carrying sub.
func ContextWithIdentity(ctx context.Context, sub utils.Subject) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, sub)
}

// IdentityFromContext returns the subject attached by the gateway.
func IdentityFromContext(ctx context.Context) (utils.Subject, bool) {
	sub, ok := ctx.Value(identityCtxKey{}).(utils.Subject)
	return sub, ok
}

// IdentityFrom returns the subject for the current request, if any.
func IdentityFrom(c echo.Context) (utils.Subject, bool) {
	sub, ok := c.Get(identityKey).(utils.Subject)
	return sub, ok
}

// userID identifies the caller for rate limiting; "anon" when the request
// has not passed the gateway.
func userID(c echo.Context) string {
	if sub, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(sub.UserID, 10)
	}
	return "anon"
}
