package repository

import (
	"context"
	"database/sql"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/school-api/internal/database"
	"github.com/iliyamo/school-api/internal/model"
	"github.com/iliyamo/school-api/internal/query"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "school.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, "sqlite"))
	return db
}

// ticker returns a clock that advances one second per call.
func ticker() clock {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func ptr(v uint64) *uint64 { return &v }

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(openTestDB(t))

	u := &model.User{Name: "Ada", Email: "  Ada@Example.com ", PasswordHash: "$2a$10$hash"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)

	dup := &model.User{Name: "Other", Email: "ADA@example.com", PasswordHash: "x"}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrEmailExists)

	got, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)
	_, err = repo.GetByID(ctx, u.ID+100)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].PasswordHash)
	assert.Equal(t, "Ada", users[0].Name)
}

func TestUserRepo_UniqueIndexIsAuthority(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewUserRepo(db)
	require.NoError(t, repo.Create(ctx, &model.User{Name: "A", Email: "a@example.com", PasswordHash: "x"}))

	// bypass the pre-insert lookup the way a concurrent registration would
	_, err := db.Exec("INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES (?,?,?,?,?)",
		"B", "a@example.com", "y", dbTime(time.Now()), dbTime(time.Now()))
	require.Error(t, err)
	assert.True(t, isDuplicateKey(err))
}

func TestStudentRepo_ListPagingAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepo(openTestDB(t))
	repo.now = ticker()

	for _, name := range []string{"s1", "s2", "s3", "s4", "s5"} {
		require.NoError(t, repo.Create(ctx, &model.Student{Name: name, Email: name + "@example.com"}))
	}

	opts := query.Build(url.Values{"limit": {"2"}, "page": {"2"}}, StudentRelations)
	list, total, err := repo.List(ctx, opts)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, list, 2)
	assert.Equal(t, "s3", list[0].Name)
	assert.Equal(t, "s4", list[1].Name)

	opts = query.Build(url.Values{"sort": {"DESC"}, "limit": {"3"}}, StudentRelations)
	list, _, err = repo.List(ctx, opts)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"s5", "s4", "s3"}, []string{list[0].Name, list[1].Name, list[2].Name})
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))

	opts = query.Build(url.Values{"limit": {"99999999999999999999"}}, StudentRelations)
	list, _, err = repo.List(ctx, opts)
	require.NoError(t, err)
	assert.Len(t, list, 5)

	opts = query.Build(url.Values{"page": {"9"}}, StudentRelations)
	list, total, err = repo.List(ctx, opts)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestStudentRepo_TiesBreakOnID(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepo(openTestDB(t))
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &model.Student{Name: name, Email: name + "@example.com"}))
	}
	list, _, err := repo.List(ctx, query.Build(url.Values{"sort": {"desc"}}, StudentRelations))
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].Name)
	assert.Equal(t, "a", list[2].Name)
}

func TestStudentRepo_CRUDAndCourseRelation(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	students := NewStudentRepo(db)
	courses := NewCourseRepo(db)

	err := students.Create(ctx, &model.Student{Name: "x", Email: "x@example.com", CourseID: ptr(99)})
	assert.ErrorIs(t, err, ErrReferenceNotFound)

	c := &model.Course{Title: "Algebra", Description: "Linear"}
	require.NoError(t, courses.Create(ctx, c))

	s := &model.Student{Name: "Bea", Email: "bea@example.com", CourseID: &c.ID}
	require.NoError(t, students.Create(ctx, s))

	got, err := students.GetByID(ctx, s.ID, query.Options{})
	require.NoError(t, err)
	assert.Nil(t, got.Course)
	assert.Equal(t, c.ID, *got.CourseID)

	got, err = students.GetByID(ctx, s.ID, query.Build(url.Values{"populate": {"course"}}, StudentRelations))
	require.NoError(t, err)
	require.NotNil(t, got.Course)
	assert.Equal(t, "Algebra", got.Course.Title)

	updated, err := students.Update(ctx, &model.Student{ID: s.ID, Name: "Bea B", Email: "bea@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Bea B", updated.Name)
	assert.Nil(t, updated.CourseID)
	assert.Equal(t, s.CreatedAt, updated.CreatedAt)

	_, err = students.Update(ctx, &model.Student{ID: 404, Name: "n", Email: "n@example.com"})
	assert.ErrorIs(t, err, ErrStudentNotFound)

	require.NoError(t, students.Delete(ctx, s.ID))
	assert.ErrorIs(t, students.Delete(ctx, s.ID), ErrStudentNotFound)
	_, err = students.GetByID(ctx, s.ID, query.Options{})
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestCourseRepo_Relations(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	teachers := NewTeacherRepo(db)
	courses := NewCourseRepo(db)
	students := NewStudentRepo(db)

	tch := &model.Teacher{Name: "Grace", Department: "CS"}
	require.NoError(t, teachers.Create(ctx, tch))

	err := courses.Create(ctx, &model.Course{Title: "x", TeacherID: ptr(777)})
	assert.ErrorIs(t, err, ErrReferenceNotFound)

	withStudents := &model.Course{Title: "Compilers", TeacherID: &tch.ID}
	empty := &model.Course{Title: "Empty"}
	require.NoError(t, courses.Create(ctx, withStudents))
	require.NoError(t, courses.Create(ctx, empty))
	for _, name := range []string{"p", "q"} {
		require.NoError(t, students.Create(ctx, &model.Student{Name: name, Email: name + "@example.com", CourseID: &withStudents.ID}))
	}

	got, err := courses.GetByID(ctx, withStudents.ID, query.Build(url.Values{"populate": {"teacher"}}, CourseRelations))
	require.NoError(t, err)
	require.NotNil(t, got.Teacher)
	assert.Equal(t, "Grace", got.Teacher.Name)
	assert.Nil(t, got.Students)

	list, total, err := courses.List(ctx, query.Build(url.Values{"populate": {"all"}}, CourseRelations))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 2)
	assert.Len(t, list[0].Students, 2)
	assert.NotNil(t, list[1].Students)
	assert.Empty(t, list[1].Students)
	assert.Nil(t, list[1].Teacher)

	// deleting a course keeps its students with the reference cleared
	require.NoError(t, courses.Delete(ctx, withStudents.ID))
	left, _, err := students.List(ctx, query.Build(nil, StudentRelations))
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Nil(t, left[0].CourseID)
}

func TestTeacherRepo(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	teachers := NewTeacherRepo(db)
	courses := NewCourseRepo(db)

	tch := &model.Teacher{Name: "Alan", Department: "Math"}
	require.NoError(t, teachers.Create(ctx, tch))
	require.NoError(t, courses.Create(ctx, &model.Course{Title: "Logic", TeacherID: &tch.ID}))

	got, err := teachers.GetByID(ctx, tch.ID, query.Build(url.Values{"populate": {"course"}}, TeacherRelations))
	require.NoError(t, err)
	require.Len(t, got.Courses, 1)
	assert.Equal(t, "Logic", got.Courses[0].Title)

	upd, err := teachers.Update(ctx, &model.Teacher{ID: tch.ID, Name: "Alan T", Department: "Math"})
	require.NoError(t, err)
	assert.Equal(t, "Alan T", upd.Name)

	// unchanged values still count as a match
	_, err = teachers.Update(ctx, &model.Teacher{ID: tch.ID, Name: "Alan T", Department: "Math"})
	require.NoError(t, err)

	_, err = teachers.GetByID(ctx, 999, query.Options{})
	assert.ErrorIs(t, err, ErrTeacherNotFound)

	require.NoError(t, teachers.Delete(ctx, tch.ID))
	list, _, err := courses.List(ctx, query.Build(nil, CourseRelations))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].TeacherID)
}

func TestOrderByAndInClause(t *testing.T) {
	assert.Equal(t, " ORDER BY created_at ASC, id ASC", orderBy(query.Order{Key: query.OrderKey}))
	assert.Equal(t, " ORDER BY created_at DESC, id DESC", orderBy(query.Order{Key: "anything", Desc: true}))

	in, args := inClause([]uint64{3, 1, 2})
	assert.Equal(t, "(?,?,?)", in)
	assert.Equal(t, []any{uint64(3), uint64(1), uint64(2)}, args)

	assert.Equal(t, []uint64{2, 5}, distinctIDs([]*uint64{ptr(2), nil, ptr(5), ptr(2)}))
}
