package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/school-api/internal/query"
)

// Relation names each entity can eager-load.  Handlers pass these to
// query.Build.
var (
	StudentRelations = query.Relations{"course"}
	CourseRelations  = query.Relations{"student", "teacher"}
	TeacherRelations = query.Relations{"course"}
)

// dbTimeLayout is fixed width so that text comparison on SQLite orders the
// same way DATETIME(6) does on MySQL.
const dbTimeLayout = "2006-01-02 15:04:05.000000"

// clock supplies row timestamps.  Times are UTC at microsecond precision,
// the finest MySQL DATETIME(6) keeps.
type clock func() time.Time

func (c clock) stamp() time.Time {
	if c == nil {
		return time.Now().UTC().Truncate(time.Microsecond)
	}
	return c().UTC().Truncate(time.Microsecond)
}

func dbTime(t time.Time) string { return t.UTC().Format(dbTimeLayout) }

// sortColumns maps sortable API keys to columns.  Only whitelisted
// identifiers ever reach the SQL text.
var sortColumns = map[string]string{
	query.OrderKey: "created_at",
}

// orderBy renders ORDER BY for the descriptor.  id breaks ties in the same
// direction so pages are stable when timestamps collide.
func orderBy(o query.Order) string {
	col, ok := sortColumns[o.Key]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir)
}

// inClause returns "(?,?,?)" and the matching args.
func inClause(ids []uint64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + ")", args
}

// distinctIDs collects the non-nil ids, preserving first-seen order.
func distinctIDs(ptrs []*uint64) []uint64 {
	seen := make(map[uint64]bool, len(ptrs))
	var out []uint64
	for _, p := range ptrs {
		if p == nil || seen[*p] {
			continue
		}
		seen[*p] = true
		out = append(out, *p)
	}
	return out
}

// count returns the number of rows in table.
func count(ctx context.Context, db *sql.DB, table string) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ensureExists returns ErrReferenceNotFound when the optional reference id
// does not name a row in table.
func ensureExists(ctx context.Context, db *sql.DB, table, entity string, id *uint64) error {
	if id == nil {
		return nil
	}
	var one int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", *id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", entity, *id, ErrReferenceNotFound)
	}
	return err
}

// affectedOrNotFound turns a zero-row UPDATE/DELETE into notFound.
func affectedOrNotFound(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// nullableID converts a scanned nullable foreign key.
func nullableID(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	id := uint64(n.Int64)
	return &id
}

// idArg is the driver argument for an optional foreign key.
func idArg(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}
