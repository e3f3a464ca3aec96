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

// TeacherHandler serves /teachers.
type TeacherHandler struct {
	Repo   *repository.TeacherRepo
	Events service.Publisher
}

func NewTeacherHandler(repo *repository.TeacherRepo, events service.Publisher) *TeacherHandler {
	if events == nil {
		events = service.Nop{}
	}
	return &TeacherHandler{Repo: repo, Events: events}
}

type teacherReq struct {
	Name       string `json:"name" validate:"required"`
	Department string `json:"department"`
}

func (r *teacherReq) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Department = strings.TrimSpace(r.Department)
}

func (r *teacherReq) model(id uint64) *model.Teacher {
	return &model.Teacher{ID: id, Name: r.Name, Department: r.Department}
}

// List handles GET /teachers?limit=&page=&sort=&populate=.
func (h *TeacherHandler) List(c echo.Context) error {
	opts := query.Build(c.QueryParams(), repository.TeacherRelations)
	ctx, cancel := dbContext(c)
	defer cancel()

	list, total, err := h.Repo.List(ctx, opts)
	if err != nil {
		return repoError("list teachers", err)
	}
	return c.JSON(http.StatusOK, newListResponse(list, total, opts))
}

// Get handles GET /teachers/:id?populate=course.
func (h *TeacherHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	t, err := h.Repo.GetByID(ctx, id, query.Build(c.QueryParams(), repository.TeacherRelations))
	if err != nil {
		return repoError("get teacher", err)
	}
	return c.JSON(http.StatusOK, t)
}

// Create handles POST /teachers.
func (h *TeacherHandler) Create(c echo.Context) error {
	var req teacherReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	t := req.model(0)
	if err := h.Repo.Create(ctx, t); err != nil {
		return repoError("create teacher", err)
	}
	publish(c, h.Events, queue.NewEvent(queue.EntityTeacher, queue.EntityCreated, t.ID, 0))
	return c.JSON(http.StatusCreated, t)
}

// Update handles PUT /teachers/:id.  The body replaces name and department.
func (h *TeacherHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req teacherReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	t, err := h.Repo.Update(ctx, req.model(id))
	if err != nil {
		return repoError("update teacher", err)
	}
	publish(c, h.Events, queue.NewEvent(queue.EntityTeacher, queue.EntityUpdated, id, 0))
	return c.JSON(http.StatusOK, t)
}

// Delete handles DELETE /teachers/:id.
func (h *TeacherHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Repo.Delete(ctx, id); err != nil {
		return repoError("delete teacher", err)
	}
	publish(c, h.Events, queue.NewEvent(queue.EntityTeacher, queue.EntityDeleted, id, 0))
	return c.NoContent(http.StatusNoContent)
}
