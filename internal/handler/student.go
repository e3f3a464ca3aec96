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

// StudentHandler serves /students.
type StudentHandler struct {
	Repo   *repository.StudentRepo
	Events service.Publisher
}

func NewStudentHandler(repo *repository.StudentRepo, events service.Publisher) *StudentHandler {
	if events == nil {
		events = service.Nop{}
	}
	return &StudentHandler{Repo: repo, Events: events}
}

type studentReq struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	CourseID *uint64 `json:"courseId"`
}

func (r *studentReq) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

func (r *studentReq) model(id uint64) *model.Student {
	return &model.Student{ID: id, Name: r.Name, Email: r.Email, CourseID: r.CourseID}
}

// List handles GET /students?limit=&page=&sort=&populate=.
func (h *StudentHandler) List(c echo.Context) error {
	opts := query.Build(c.QueryParams(), repository.StudentRelations)
	ctx, cancel := dbContext(c)
	defer cancel()

	list, total, err := h.Repo.List(ctx, opts)
	if err != nil {
		return repoError("list students", err)
	}
	return c.JSON(http.StatusOK, newListResponse(list, total, opts))
}

// Get handles GET /students/:id?populate=course.
func (h *StudentHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	s, err := h.Repo.GetByID(ctx, id, query.Build(c.QueryParams(), repository.StudentRelations))
	if err != nil {
		return repoError("get student", err)
	}
	return c.JSON(http.StatusOK, s)
}

// Create handles POST /students.
func (h *StudentHandler) Create(c echo.Context) error {
	var req studentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	s := req.model(0)
	if err := h.Repo.Create(ctx, s); err != nil {
		return repoError("create student", err)
	}
	publish(c, h.Events, queue.NewEvent(queue.EntityStudent, queue.EntityCreated, s.ID, 0))
	return c.JSON(http.StatusCreated, s)
}

// Update handles PUT /students/:id.  The body replaces every mutable field.
func (h *StudentHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req studentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	s, err := h.Repo.Update(ctx, req.model(id))
	if err != nil {
		return repoError("update student", err)
	}
	publish(c, h.Events, queue.NewEvent(queue.EntityStudent, queue.EntityUpdated, id, 0))
	return c.JSON(http.StatusOK, s)
}

// Delete handles DELETE /students/:id.
func (h *StudentHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Repo.Delete(ctx, id); err != nil {
		return repoError("delete student", err)
	}
	publish(c, h.Events, queue.NewEvent(queue.EntityStudent, queue.EntityDeleted, id, 0))
	return c.NoContent(http.StatusNoContent)
}
