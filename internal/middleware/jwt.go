package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/school-api/internal/utils"
)

// Verifier is the part of the token service the gateway depends on.
type Verifier interface {
	Verify(raw string) (utils.Subject, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and attaches the token's subject to the request.  Handlers read it back
// with IdentityFrom.  Every failure is a 401; the gateway performs no
// role or permission checks.
func JWTAuth(tokens Verifier, log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, problem := extractBearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if problem != "" {
				return unauthenticated(c, problem)
			}

			sub, err := tokens.Verify(raw)
			if err != nil {
				log.WithFields(logrus.Fields{"path": c.Path(), "error": err}).Debug("bearer token rejected")
				if errors.Is(err, utils.ErrExpiredToken) {
					return unauthenticated(c, "token expired")
				}
				return unauthenticated(c, "invalid token")
			}

			setIdentity(c, sub)
			return next(c)
		}
	}
}

// extractBearerToken pulls the token out of an Authorization header value.
// The scheme is matched case-insensitively.  On failure the second value
// describes the problem.
func extractBearerToken(header string) (string, string) {
	if strings.TrimSpace(header) == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(strings.TrimLeft(header, " "), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "empty bearer token"
	}
	return token, ""
}

func unauthenticated(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"message": msg})
}
