// Package query turns list/get query-string parameters (limit, page, sort,
// populate) into a repository query descriptor.  It performs no I/O and
// knows nothing about particular entities: each caller passes the set of
// relations its entity can include.
package query

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 10
	DefaultPage  = 1

	// OrderKey is the only sortable field.
	OrderKey = "createdAt"

	// RelationAll expands to every relation valid for the entity.
	RelationAll = "all"
)

// Relations is the set of relation names an entity can eager-load, in the
// order they should be reported.
type Relations []string

// Order is a single-key sort.
type Order struct {
	Key  string
	Desc bool
}

// Options is the resolved descriptor handed to repositories.  Page and
// Limit are the post-default, post-floor values that list responses echo.
type Options struct {
	Limit    int
	Page     int
	Offset   int
	Order    Order
	Includes []string
}

// Build resolves raw query parameters against the entity's valid relations.
func Build(raw url.Values, valid Relations) Options {
	limit := atLeastOne(parseInt(raw.Get("limit"), DefaultLimit))
	page := atLeastOne(parseInt(raw.Get("page"), DefaultPage))

	return Options{
		Limit:    limit,
		Page:     page,
		Offset:   offset(page, limit),
		Order:    Order{Key: OrderKey, Desc: strings.EqualFold(strings.TrimSpace(raw.Get("sort")), "desc")},
		Includes: includes(raw.Get("populate"), valid),
	}
}

// Has reports whether the relation was requested.
func (o Options) Has(relation string) bool {
	for _, r := range o.Includes {
		if r == relation {
			return true
		}
	}
	return false
}

// TotalPages is ceil(total / limit).
func (o Options) TotalPages(total int64) int64 {
	if total <= 0 || o.Limit <= 0 {
		return 0
	}
	l := int64(o.Limit)
	pages := total / l
	if total%l != 0 {
		pages++
	}
	return pages
}

// parseInt returns def for anything that is not an integer.  Integers too
// large for int saturate, so an oversized limit or page stays oversized.
func parseInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if errors.Is(err, strconv.ErrRange) {
		return n
	}
	if err != nil {
		return def
	}
	return n
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func offset(page, limit int) int {
	// absurd page numbers would overflow the multiplication
	if page-1 > math.MaxInt/limit {
		return math.MaxInt - math.MaxInt%limit
	}
	return (page - 1) * limit
}

// includes parses a comma-separated populate value.  Unknown names are
// dropped; "all" selects every valid relation.
func includes(populate string, valid Relations) []string {
	if strings.TrimSpace(populate) == "" {
		return nil
	}
	requested := map[string]bool{}
	for _, p := range strings.Split(populate, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			requested[p] = true
		}
	}

	var out []string
	for _, r := range valid {
		if requested[RelationAll] || requested[strings.ToLower(r)] {
			out = append(out, r)
		}
	}
	return out
}
