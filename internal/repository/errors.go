// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// looking at driver-specific errors.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is wrapped by every per-entity "not found" error, so callers
// can test either the specific or the general condition with errors.Is.
var ErrNotFound = errors.New("not found")

var (
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrStudentNotFound = fmt.Errorf("student %w", ErrNotFound)
	ErrCourseNotFound  = fmt.Errorf("course %w", ErrNotFound)
	ErrTeacherNotFound = fmt.Errorf("teacher %w", ErrNotFound)
)

// ErrEmailExists is returned when a user with the same email is already
// stored.  The unique index on users.email is the authority; the
// pre-insert lookup only saves a round trip in the common case.
var ErrEmailExists = errors.New("email already exists")

// ErrReferenceNotFound is returned when a foreign key points at a row
// that does not exist.
var ErrReferenceNotFound = errors.New("referenced record does not exist")

// MySQL server error numbers.
const (
	mysqlDuplicateEntry   = 1062
	mysqlNoReferencedRow  = 1452
	mysqlNoReferencedRow2 = 1216
)

// isDuplicateKey reports a unique-constraint violation from either driver.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports a failed foreign-key check from either driver.
func isForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlNoReferencedRow || me.Number == mysqlNoReferencedRow2
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
