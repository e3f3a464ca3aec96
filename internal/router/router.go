package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/school-api/internal/config"
	"github.com/iliyamo/school-api/internal/handler"
	"github.com/iliyamo/school-api/internal/middleware"
)

// New returns an Echo instance with the validator, error handler and the
// middleware every route shares.
func New(log logrus.FieldLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	return e
}

// RegisterRoutes registers routes that never require authentication.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterAuth registers the credential endpoints.  Register and login are
// rate limited; listing users and /auth/me sit behind the gateway.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, gate, limiter echo.MiddlewareFunc) {
	g := e.Group("/auth")
	g.POST("/register", a.Register, limiter)
	g.POST("/login", a.Login, limiter)

	g.GET("/users", a.ListUsers, gate)
	g.GET("/me", a.Me, gate)
}

// Resources groups the CRUD handlers.
type Resources struct {
	Students *handler.StudentHandler
	Courses  *handler.CourseHandler
	Teachers *handler.TeacherHandler
}

// crud is the handler set a resource exposes.
type crud interface {
	List(echo.Context) error
	Get(echo.Context) error
	Create(echo.Context) error
	Update(echo.Context) error
	Delete(echo.Context) error
}

// RegisterResources mounts /students, /courses and /teachers.  A resource
// named in policy has every route behind the gateway; the rest are open.
func RegisterResources(e *echo.Echo, r Resources, policy config.Policy, gate echo.MiddlewareFunc) {
	mount(e, "/"+config.ResourceStudents, r.Students, policy.Protects(config.ResourceStudents), gate)
	mount(e, "/"+config.ResourceCourses, r.Courses, policy.Protects(config.ResourceCourses), gate)
	mount(e, "/"+config.ResourceTeachers, r.Teachers, policy.Protects(config.ResourceTeachers), gate)
}

func mount(e *echo.Echo, prefix string, h crud, protected bool, gate echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if protected {
		mw = append(mw, gate)
	}
	g := e.Group(prefix, mw...)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
