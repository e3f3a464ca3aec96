package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/school-api/internal/config"
	"github.com/iliyamo/school-api/internal/database"
	"github.com/iliyamo/school-api/internal/handler"
	"github.com/iliyamo/school-api/internal/logger"
	"github.com/iliyamo/school-api/internal/middleware"
	"github.com/iliyamo/school-api/internal/queue"
	"github.com/iliyamo/school-api/internal/repository"
	"github.com/iliyamo/school-api/internal/router"
	"github.com/iliyamo/school-api/internal/utils"
)

// recorder captures published events.
type recorder struct{ events []queue.Event }

func (r *recorder) Publish(_ context.Context, ev queue.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type testApp struct {
	e      *echo.Echo
	db     *sql.DB
	tokens *utils.TokenService
	events *recorder
}

// newApp wires the full HTTP stack over a fresh SQLite database.  protected
// lists the resources behind the gateway, mirroring PROTECTED_RESOURCES.
func newApp(t *testing.T, protected ...string) *testApp {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "school.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, "sqlite"))

	policy, err := config.ParsePolicy(protected)
	require.NoError(t, err)

	log := logger.Discard()
	tokens := utils.NewTokenService("test-secret", time.Hour)
	events := &recorder{}

	e := router.New(log)
	gate := middleware.JWTAuth(tokens, log)
	limiter := middleware.NewTokenBucket(config.RateLimitConfig{}, nil, log)

	router.RegisterRoutes(e, handler.Health(db))
	router.RegisterAuth(e, handler.NewAuthHandler(repository.NewUserRepo(db), tokens, bcrypt.MinCost, events, log), gate, limiter)
	router.RegisterResources(e, router.Resources{
		Students: handler.NewStudentHandler(repository.NewStudentRepo(db), events),
		Courses:  handler.NewCourseHandler(repository.NewCourseRepo(db), events),
		Teachers: handler.NewTeacherHandler(repository.NewTeacherRepo(db), events),
	}, policy, gate)

	return &testApp{e: e, db: db, tokens: tokens, events: events}
}

// do sends a request; body may be nil, a string (sent verbatim) or a value
// marshalled to JSON.
func (a *testApp) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// token registers a user and logs in, returning the bearer token.
func (a *testApp) token(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/register", map[string]string{"name": "U", "email": email, "password": "pw"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = a.do(t, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": "pw"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[map[string]string](t, rec)["token"]
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["message"]
}
