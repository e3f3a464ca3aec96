package model

import "time"

// Student corresponds to a row in the `students` table.  CourseID is an
// optional reference; Course is only filled when the caller asked for the
// relation to be included.
type Student struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CourseID  *uint64   `json:"courseId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Course *Course `json:"course,omitempty"`
}

// Course corresponds to a row in the `courses` table.  A course
// optionally references its teacher and has many students.
type Course struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TeacherID   *uint64   `json:"teacherId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Teacher *Teacher `json:"teacher,omitempty"`
	// Students stays nil unless included; an included relation with no
	// rows serializes as [].
	Students []Student `json:"students,omitzero"`
}

// Teacher corresponds to a row in the `teachers` table and has many courses.
type Teacher struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	Courses []Course `json:"courses,omitzero"`
}
