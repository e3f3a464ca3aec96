package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/school-api/internal/model"
	"github.com/iliyamo/school-api/internal/query"
)

const studentColumns = "id, name, email, course_id, created_at, updated_at"

// StudentRepo encapsulates all database queries related to students.
type StudentRepo struct {
	db  *sql.DB
	now clock
}

func NewStudentRepo(db *sql.DB) *StudentRepo { return &StudentRepo{db: db} }

// Create inserts s and fills its ID and timestamps.  A CourseID that names
// no course yields ErrReferenceNotFound.
func (r *StudentRepo) Create(ctx context.Context, s *model.Student) error {
	if err := ensureExists(ctx, r.db, "courses", "course", s.CourseID); err != nil {
		return err
	}
	ts := r.now.stamp()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO students (name, email, course_id, created_at, updated_at) VALUES (?,?,?,?,?)",
		s.Name, s.Email, idArg(s.CourseID), dbTime(ts), dbTime(ts))
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("course: %w", ErrReferenceNotFound)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.CreatedAt, s.UpdatedAt = ts, ts
	return nil
}

// GetByID fetches one student and the relations named in opts.
func (r *StudentRepo) GetByID(ctx context.Context, id uint64, opts query.Options) (*model.Student, error) {
	list, err := selectStudents(ctx, r.db, " WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrStudentNotFound
	}
	if err := r.include(ctx, list, opts); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List returns one page of students and the total row count.
func (r *StudentRepo) List(ctx context.Context, opts query.Options) ([]model.Student, int64, error) {
	total, err := count(ctx, r.db, "students")
	if err != nil {
		return nil, 0, err
	}
	list, err := selectStudents(ctx, r.db, orderBy(opts.Order)+" LIMIT ? OFFSET ?", opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	if err := r.include(ctx, list, opts); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Update overwrites the mutable fields of student s.ID and returns the
// stored row.
func (r *StudentRepo) Update(ctx context.Context, s *model.Student) (*model.Student, error) {
	if err := ensureExists(ctx, r.db, "courses", "course", s.CourseID); err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE students SET name = ?, email = ?, course_id = ?, updated_at = ? WHERE id = ?",
		s.Name, s.Email, idArg(s.CourseID), dbTime(r.now.stamp()), s.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("course: %w", ErrReferenceNotFound)
		}
		return nil, err
	}
	if err := affectedOrNotFound(res, ErrStudentNotFound); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, s.ID, query.Options{})
}

// Delete removes a student.
func (r *StudentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, ErrStudentNotFound)
}

func (r *StudentRepo) include(ctx context.Context, list []model.Student, opts query.Options) error {
	if opts.Has("course") {
		return attachStudentCourses(ctx, r.db, list)
	}
	return nil
}

// selectStudents runs SELECT over students with the given tail (WHERE,
// ORDER BY, LIMIT) appended.
func selectStudents(ctx context.Context, db *sql.DB, tail string, args ...any) ([]model.Student, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+studentColumns+" FROM students"+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.Student{}
	for rows.Next() {
		var (
			s      model.Student
			course sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &course, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.CourseID = nullableID(course)
		list = append(list, s)
	}
	return list, rows.Err()
}

// attachStudentCourses loads every referenced course in one query.
func attachStudentCourses(ctx context.Context, db *sql.DB, list []model.Student) error {
	refs := make([]*uint64, len(list))
	for i := range list {
		refs[i] = list[i].CourseID
	}
	ids := distinctIDs(refs)
	if len(ids) == 0 {
		return nil
	}
	in, args := inClause(ids)
	courses, err := selectCourses(ctx, db, " WHERE id IN "+in, args...)
	if err != nil {
		return err
	}
	byID := make(map[uint64]model.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}
	for i := range list {
		if list[i].CourseID == nil {
			continue
		}
		if c, ok := byID[*list[i].CourseID]; ok {
			list[i].Course = &c
		}
	}
	return nil
}
