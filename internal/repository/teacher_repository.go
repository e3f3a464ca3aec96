package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/school-api/internal/model"
	"github.com/iliyamo/school-api/internal/query"
)

const teacherColumns = "id, name, department, created_at, updated_at"

// TeacherRepo encapsulates all database queries related to teachers.
type TeacherRepo struct {
	db  *sql.DB
	now clock
}

func NewTeacherRepo(db *sql.DB) *TeacherRepo { return &TeacherRepo{db: db} }

// Create inserts t and fills its ID and timestamps.
func (r *TeacherRepo) Create(ctx context.Context, t *model.Teacher) error {
	ts := r.now.stamp()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO teachers (name, department, created_at, updated_at) VALUES (?,?,?,?)",
		t.Name, t.Department, dbTime(ts), dbTime(ts))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.CreatedAt, t.UpdatedAt = ts, ts
	return nil
}

// GetByID fetches one teacher and, when requested, the courses they teach.
func (r *TeacherRepo) GetByID(ctx context.Context, id uint64, opts query.Options) (*model.Teacher, error) {
	list, err := selectTeachers(ctx, r.db, " WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrTeacherNotFound
	}
	if err := r.include(ctx, list, opts); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List returns one page of teachers and the total row count.
func (r *TeacherRepo) List(ctx context.Context, opts query.Options) ([]model.Teacher, int64, error) {
	total, err := count(ctx, r.db, "teachers")
	if err != nil {
		return nil, 0, err
	}
	list, err := selectTeachers(ctx, r.db, orderBy(opts.Order)+" LIMIT ? OFFSET ?", opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	if err := r.include(ctx, list, opts); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Update overwrites name and department of teacher t.ID and returns the
// stored row.
func (r *TeacherRepo) Update(ctx context.Context, t *model.Teacher) (*model.Teacher, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE teachers SET name = ?, department = ?, updated_at = ? WHERE id = ?",
		t.Name, t.Department, dbTime(r.now.stamp()), t.ID)
	if err != nil {
		return nil, err
	}
	if err := affectedOrNotFound(res, ErrTeacherNotFound); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, t.ID, query.Options{})
}

// Delete removes a teacher.  Their courses remain, unassigned.
func (r *TeacherRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM teachers WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, ErrTeacherNotFound)
}

func (r *TeacherRepo) include(ctx context.Context, list []model.Teacher, opts query.Options) error {
	if !opts.Has("course") || len(list) == 0 {
		return nil
	}
	ids := make([]uint64, len(list))
	index := make(map[uint64]int, len(list))
	for i := range list {
		ids[i] = list[i].ID
		index[list[i].ID] = i
		list[i].Courses = []model.Course{}
	}
	in, args := inClause(ids)
	courses, err := selectCourses(ctx, r.db, " WHERE teacher_id IN "+in+" ORDER BY id", args...)
	if err != nil {
		return err
	}
	for _, c := range courses {
		i := index[*c.TeacherID]
		list[i].Courses = append(list[i].Courses, c)
	}
	return nil
}

func selectTeachers(ctx context.Context, db *sql.DB, tail string, args ...any) ([]model.Teacher, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+teacherColumns+" FROM teachers"+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.Teacher{}
	for rows.Next() {
		var t model.Teacher
		if err := rows.Scan(&t.ID, &t.Name, &t.Department, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
