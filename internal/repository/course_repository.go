package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/school-api/internal/model"
	"github.com/iliyamo/school-api/internal/query"
)

const courseColumns = "id, title, description, teacher_id, created_at, updated_at"

// CourseRepo encapsulates all database queries related to courses.
type CourseRepo struct {
	db  *sql.DB
	now clock
}

func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{db: db} }

// Create inserts c and fills its ID and timestamps.  A TeacherID that
// names no teacher yields ErrReferenceNotFound.
func (r *CourseRepo) Create(ctx context.Context, c *model.Course) error {
	if err := ensureExists(ctx, r.db, "teachers", "teacher", c.TeacherID); err != nil {
		return err
	}
	ts := r.now.stamp()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO courses (title, description, teacher_id, created_at, updated_at) VALUES (?,?,?,?,?)",
		c.Title, c.Description, idArg(c.TeacherID), dbTime(ts), dbTime(ts))
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("teacher: %w", ErrReferenceNotFound)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	c.CreatedAt, c.UpdatedAt = ts, ts
	return nil
}

// GetByID fetches one course and the relations named in opts.
func (r *CourseRepo) GetByID(ctx context.Context, id uint64, opts query.Options) (*model.Course, error) {
	list, err := selectCourses(ctx, r.db, " WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrCourseNotFound
	}
	if err := r.include(ctx, list, opts); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List returns one page of courses and the total row count.
func (r *CourseRepo) List(ctx context.Context, opts query.Options) ([]model.Course, int64, error) {
	total, err := count(ctx, r.db, "courses")
	if err != nil {
		return nil, 0, err
	}
	list, err := selectCourses(ctx, r.db, orderBy(opts.Order)+" LIMIT ? OFFSET ?", opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	if err := r.include(ctx, list, opts); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Update overwrites the mutable fields of course c.ID and returns the
// stored row.
func (r *CourseRepo) Update(ctx context.Context, c *model.Course) (*model.Course, error) {
	if err := ensureExists(ctx, r.db, "teachers", "teacher", c.TeacherID); err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE courses SET title = ?, description = ?, teacher_id = ?, updated_at = ? WHERE id = ?",
		c.Title, c.Description, idArg(c.TeacherID), dbTime(r.now.stamp()), c.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("teacher: %w", ErrReferenceNotFound)
		}
		return nil, err
	}
	if err := affectedOrNotFound(res, ErrCourseNotFound); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, c.ID, query.Options{})
}

// Delete removes a course.  Students enrolled in it keep their rows with
// course_id cleared.
func (r *CourseRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM courses WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, ErrCourseNotFound)
}

func (r *CourseRepo) include(ctx context.Context, list []model.Course, opts query.Options) error {
	if opts.Has("teacher") {
		if err := attachCourseTeachers(ctx, r.db, list); err != nil {
			return err
		}
	}
	if opts.Has("student") {
		if err := attachCourseStudents(ctx, r.db, list); err != nil {
			return err
		}
	}
	return nil
}

func selectCourses(ctx context.Context, db *sql.DB, tail string, args ...any) ([]model.Course, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+courseColumns+" FROM courses"+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.Course{}
	for rows.Next() {
		var (
			c       model.Course
			teacher sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &teacher, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.TeacherID = nullableID(teacher)
		list = append(list, c)
	}
	return list, rows.Err()
}

func attachCourseTeachers(ctx context.Context, db *sql.DB, list []model.Course) error {
	refs := make([]*uint64, len(list))
	for i := range list {
		refs[i] = list[i].TeacherID
	}
	ids := distinctIDs(refs)
	if len(ids) == 0 {
		return nil
	}
	in, args := inClause(ids)
	teachers, err := selectTeachers(ctx, db, " WHERE id IN "+in, args...)
	if err != nil {
		return err
	}
	byID := make(map[uint64]model.Teacher, len(teachers))
	for _, t := range teachers {
		byID[t.ID] = t
	}
	for i := range list {
		if list[i].TeacherID == nil {
			continue
		}
		if t, ok := byID[*list[i].TeacherID]; ok {
			list[i].Teacher = &t
		}
	}
	return nil
}

// attachCourseStudents fills Students for every course, leaving an empty
// non-nil slice on courses nobody is enrolled in.
func attachCourseStudents(ctx context.Context, db *sql.DB, list []model.Course) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]uint64, len(list))
	index := make(map[uint64]int, len(list))
	for i := range list {
		ids[i] = list[i].ID
		index[list[i].ID] = i
		list[i].Students = []model.Student{}
	}
	in, args := inClause(ids)
	students, err := selectStudents(ctx, db, " WHERE course_id IN "+in+" ORDER BY id", args...)
	if err != nil {
		return err
	}
	for _, s := range students {
		i := index[*s.CourseID]
		list[i].Students = append(list[i].Students, s)
	}
	return nil
}
