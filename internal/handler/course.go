package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/school-api/internal/model"
	"github.com/iliyamo/school-api/internal/query"
	"github.com/iliyamo/school-api/internal/queue"
	"github.com/iliyamo/school-api/internal/repository"
	"github.com/iliyamo/school-api/internal/service"
)

// CourseHandler serves /courses.
type CourseHandler struct {
	Repo   *repository.CourseRepo
	Events service.Publisher
}

func NewCourseHandler(repo *repository.CourseRepo, events service.Publisher) *CourseHandler {
	if events == nil {
		events = service.Nop{}
	}
	return &CourseHandler{Repo: repo, Events: events}
}

type courseReq struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	TeacherID   *uint64 `json:"teacherId"`
}

func (r *courseReq) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *courseReq) model(id uint64) *model.Course {
	return &model.Course{ID: id, Title: r.Title, Description: r.Description, TeacherID: r.TeacherID}
}

// List handles GET /courses?limit=&page=&sort=&populate=.
func (h *CourseHandler) List(c echo.Context) error {
	opts := query.Build(c.QueryParams(), repository.CourseRelations)
	ctx, cancel := dbContext(c)
	defer cancel()

	list, total, err := h.Repo.List(ctx, opts)
	if err != nil {
		return repoError("list courses", err)
	}
	return c.JSON(http.StatusOK, newListResponse(list, total, opts))
}

// Get handles GET /courses/:id?populate=student,teacher.
func (h *CourseHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	co, err := h.Repo.GetByID(ctx, id, query.Build(c.QueryParams(), repository.CourseRelations))
	if err != nil {
		return repoError("get course", err)
	}
	return c.JSON(http.StatusOK, co)
}

// Create handles POST /courses.
func (h *CourseHandler) Create(c echo.Context) error {
	var req courseReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	co := req.model(0)
	if err := h.Repo.Create(ctx, co); err != nil {
		return repoError("create course", err)
	}
	publish(c, h.Events, queue.NewEvent(queue.EntityCourse, queue.EntityCreated, co.ID, 0))
	return c.JSON(http.StatusCreated, co)
}

// Update handles PUT /courses/:id.  A null or absent teacherId unassigns
// the course.
func (h *CourseHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req courseReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	co, err := h.Repo.Update(ctx, req.model(id))
	if err != nil {
		return repoError("update course", err)
	}
	publish(c, h.Events, queue.NewEvent(queue.EntityCourse, queue.EntityUpdated, id, 0))
	return c.JSON(http.StatusOK, co)
}

// Delete handles DELETE /courses/:id.
func (h *CourseHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Repo.Delete(ctx, id); err != nil {
		return repoError("delete course", err)
	}
	publish(c, h.Events, queue.NewEvent(queue.EntityCourse, queue.EntityDeleted, id, 0))
	return c.NoContent(http.StatusNoContent)
}
