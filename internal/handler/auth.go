package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/school-api/internal/middleware"
	"github.com/iliyamo/school-api/internal/model"
	"github.com/iliyamo/school-api/internal/queue"
	"github.com/iliyamo/school-api/internal/repository"
	"github.com/iliyamo/school-api/internal/service"
	"github.com/iliyamo/school-api/internal/utils"
)

// errInvalidCredentials is returned for an unknown email and a wrong
// password alike.
var errInvalidCredentials = echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Users      *repository.UserRepo
	Tokens     *utils.TokenService
	BcryptCost int
	Events     service.Publisher
	Log        logrus.FieldLogger

	// dummyHash is compared against when the email is unknown so both
	// login failures cost one bcrypt comparison.
	dummyHash string
}

func NewAuthHandler(users *repository.UserRepo, tokens *utils.TokenService, cost int, events service.Publisher, log logrus.FieldLogger) *AuthHandler {
	if users == nil || tokens == nil {
		panic("nil dependency passed to NewAuthHandler")
	}
	if events == nil {
		events = service.Nop{}
	}
	dummy, err := utils.HashPassword("school-api:no-such-user", cost)
	if err != nil {
		panic("hashing dummy password: " + err.Error())
	}
	return &AuthHandler{Users: users, Tokens: tokens, BcryptCost: cost, Events: events, Log: log, dummyHash: dummy}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *registerReq) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = repository.NormalizeEmail(r.Email)
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *loginReq) normalize() { r.Email = repository.NormalizeEmail(r.Email) }

type tokenResp struct {
	Token string `json:"token"`
}


// Register creates an account and returns it without the password hash.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}

	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("password must be at most %d bytes", utils.MaxPasswordBytes))
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "hashing password failed").SetInternal(err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u := model.User{Name: req.Name, Email: req.Email, PasswordHash: hash}
	if err := h.Users.Create(ctx, &u); err != nil {
		return repoError("create user", err)
	}

	publish(c, h.Events, queue.NewEvent(queue.EntityUser, queue.EntityCreated, u.ID, 0))
	return c.JSON(http.StatusCreated, u)
}

// Login verifies credentials and issues an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			utils.VerifyPassword(h.dummyHash, req.Password)
			h.Log.WithField("reason", "unknown email").Debug("login rejected")
			return errInvalidCredentials
		}
		return repoError("load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		h.Log.WithFields(logrus.Fields{"reason": "wrong password", "user_id": u.ID}).Debug("login rejected")
		return errInvalidCredentials
	}

	tok, err := h.Tokens.Issue(u.ID, u.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "issuing token failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, tokenResp{Token: tok.Token})
}

// ListUsers returns every account projected to {id, name, email}.
func (h *AuthHandler) ListUsers(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return repoError("list users", err)
	}
	return c.JSON(http.StatusOK, users)
}

// Me returns the account behind the bearer token as {id, name, email}.
func (h *AuthHandler) Me(c echo.Context) error {
	sub, ok := middleware.IdentityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, sub.UserID)
	if err != nil {
		return repoError("load user", err)
	}
	return c.JSON(http.StatusOK, u)
}

// dbContext bounds repository calls made on behalf of a request.
func dbContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// publish emits ev without failing the request; the publisher logs its own
// errors.
func publish(c echo.Context, events service.Publisher, ev queue.Event) {
	reqCtx := c.Request().Context()
	if sub, ok := middleware.IdentityFromContext(reqCtx); ok && ev.ActorID == 0 {
		ev.ActorID = sub.UserID
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), 2*time.Second)
	defer cancel()
	_ = events.Publish(ctx, ev)
}
