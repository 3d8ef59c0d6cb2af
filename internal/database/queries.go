package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// clause accumulates the FROM and WHERE parts shared by search and
// selection queries.
type clause struct {
	from  string
	where []string
	args  []any
}

const privacyExclusion = "NOT EXISTS (SELECT 1 FROM privacy_resources p WHERE p.resource_id = r.id)"

// baseClause returns the join for a scope without privacy or filter conditions.
func baseClause(scope Scope) clause {
	switch scope {
	case ScopeFavorites:
		return clause{from: "resources r JOIN favorites f ON f.resource_id = r.id"}
	case ScopePrivacy:
		return clause{from: "resources r JOIN privacy_resources p ON p.resource_id = r.id"}
	case ScopeHistory:
		return clause{
			from:  "resources r",
			where: []string{"EXISTS (SELECT 1 FROM history h WHERE h.resource_id = r.id)"},
		}
	case ScopeResources, "":
		return clause{from: "resources r"}
	default:
		return clause{
			from:  "resources r",
			where: []string{"r.resource_name = ?"},
			args:  []any{string(scope)},
		}
	}
}

// newClause builds the scope join plus privacy exclusion and filters.
func newClause(scope Scope, f Filters) clause {
	c := baseClause(scope)
	if scope.excludesPrivacy() {
		c = c.and(privacyExclusion)
	}

	var kw []string
	var kwArgs []any
	for _, k := range f.Keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		pattern := "%" + escapeLike(k) + "%"
		kw = append(kw, `(r.file_path LIKE ? ESCAPE '\' OR r.title LIKE ? ESCAPE '\' OR r.description LIKE ? ESCAPE '\')`)
		kwArgs = append(kwArgs, pattern, pattern, pattern)
	}
	if len(kw) > 0 {
		c = c.and("("+strings.Join(kw, " OR ")+")", kwArgs...)
	}

	var qs []any
	for _, q := range f.Qualities {
		if q = strings.TrimSpace(q); q != "" {
			qs = append(qs, q)
		}
	}
	if len(qs) > 0 {
		c = c.and("r.quality IN ("+placeholders(len(qs))+")", qs...)
	}

	switch f.Orientation {
	case OrientationLandscape:
		c = c.and("r.is_landscape = 1")
	case OrientationPortrait:
		c = c.and("r.is_landscape = 0")
	}

	return c
}

// and returns a copy of c with one more condition.
func (c clause) and(cond string, args ...any) clause {
	out := clause{
		from:  c.from,
		where: make([]string, 0, len(c.where)+1),
		args:  make([]any, 0, len(c.args)+len(args)),
	}
	out.where = append(append(out.where, c.where...), cond)
	out.args = append(append(out.args, c.args...), args...)
	return out
}

func (c clause) excluding(ids []int64) clause {
	if len(ids) == 0 {
		return c
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return c.and("r.id NOT IN ("+placeholders(len(ids))+")", args...)
}

func (c clause) sql() string {
	s := " FROM " + c.from
	if len(c.where) > 0 {
		s += " WHERE " + strings.Join(c.where, " AND ")
	}
	return s
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var sortColumns = map[string]string{
	"id":         "r.id",
	"created_at": "r.created_at",
	"updated_at": "r.updated_at",
	"mtime_ms":   "r.mtime_ms",
	"atime_ms":   "r.atime_ms",
	"ctime_ms":   "r.ctime_ms",
	"file_size":  "r.file_size",
	"file_name":  "r.file_name",
	"file_path":  "r.file_path",
	"width":      "r.width",
	"height":     "r.height",
}

// ValidSortField reports whether field can be used as an ordering key.
func ValidSortField(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

// Order is the sequential-mode ordering. The favorites scope always orders
// by the time a resource was favorited.
type Order struct {
	Field string
	Desc  bool
}

func (o Order) key(scope Scope) string {
	if scope == ScopeFavorites {
		return "f.created_at"
	}
	if col, ok := sortColumns[o.Field]; ok {
		return col
	}
	return "r.created_at"
}

// orderBy sorts by key in the configured direction with id ascending as tiebreak.
func (o Order) orderBy(scope Scope) string {
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	return " ORDER BY " + o.key(scope) + " " + dir + ", r.id ASC"
}

// Search returns one page of the scope matching filters plus the total.
func (d *Database) Search(ctx context.Context, scope Scope, f Filters, p Page) (result *SearchResult, err error) {
	start := time.Now()
	defer func() { recordQuery("search", start, err) }()

	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}

	c := newClause(scope, f)

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result = &SearchResult{List: []Resource{}}
	if err = d.db.QueryRowContext(ctx, "SELECT COUNT(*)"+c.sql(), c.args...).Scan(&result.Total); err != nil {
		return nil, err
	}
	if result.Total == 0 {
		return result, nil
	}

	args := append(append([]any{}, c.args...), p.PageSize, (p.Page-1)*p.PageSize)
	rows, err := d.db.QueryContext(ctx,
		"SELECT "+resourceColumns+c.sql()+searchOrder(scope, p)+" LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, err
	}
	list, err := collectResources(rows)
	if err != nil {
		return nil, err
	}
	if list != nil {
		result.List = list
	}
	return result, nil
}

func searchOrder(scope Scope, p Page) string {
	if p.SortField != "" {
		return Order{Field: p.SortField, Desc: p.SortDesc}.orderBy(scope)
	}
	switch scope {
	case ScopeFavorites:
		return " ORDER BY f.created_at DESC, r.id ASC"
	case ScopeHistory:
		return " ORDER BY (SELECT MAX(h.id) FROM history h WHERE h.resource_id = r.id) DESC"
	default:
		return " ORDER BY r.created_at DESC, r.id DESC"
	}
}

// CountCandidates counts selectable resources, leaving out exclude.
func (d *Database) CountCandidates(ctx context.Context, scope Scope, f Filters, exclude []int64) (n int, err error) {
	start := time.Now()
	defer func() { recordQuery("count_candidates", start, err) }()

	c := newClause(scope, f).excluding(exclude)

	d.mu.RLock()
	defer d.mu.RUnlock()

	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*)"+c.sql(), c.args...).Scan(&n)
	return n, err
}

// RandomCandidate returns the candidate at offset in id order. Callers pick
// the offset uniformly from [0, CountCandidates).
func (d *Database) RandomCandidate(ctx context.Context, scope Scope, f Filters, exclude []int64, offset int) (Resource, error) {
	c := newClause(scope, f).excluding(exclude)
	args := append(append([]any{}, c.args...), offset)
	return d.queryOne(ctx, "random_candidate",
		"SELECT "+resourceColumns+c.sql()+" ORDER BY r.id ASC LIMIT 1 OFFSET ?", args)
}

// SortKeyOf returns the ordering key of resource id within the scope, or
// ok false when the resource is not part of it.
func (d *Database) SortKeyOf(ctx context.Context, scope Scope, o Order, id int64) (key any, ok bool, err error) {
	start := time.Now()
	defer func() { recordQuery("sort_key", start, err) }()

	c := baseClause(scope).and("r.id = ?", id)

	d.mu.RLock()
	defer d.mu.RUnlock()

	err = d.db.QueryRowContext(ctx, "SELECT "+o.key(scope)+c.sql(), c.args...).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	// Text keys may come back as bytes, which SQLite would bind as a BLOB.
	if b, isBytes := key.([]byte); isBytes {
		key = string(b)
	}
	return key, true, nil
}

// NextInOrder returns the first candidate strictly after (key, afterID)
// under o, leaving out exclude.
func (d *Database) NextInOrder(ctx context.Context, scope Scope, f Filters, exclude []int64, o Order, key any, afterID int64) (Resource, error) {
	k := o.key(scope)
	cmp := ">"
	if o.Desc {
		cmp = "<"
	}
	c := newClause(scope, f).excluding(exclude).
		and("("+k+" "+cmp+" ? OR ("+k+" = ? AND r.id > ?))", key, key, afterID)
	return d.queryOne(ctx, "next_in_order",
		"SELECT "+resourceColumns+c.sql()+o.orderBy(scope)+" LIMIT 1", c.args)
}

// FirstInOrder returns the first candidate under o, leaving out exclude.
func (d *Database) FirstInOrder(ctx context.Context, scope Scope, f Filters, exclude []int64, o Order) (Resource, error) {
	c := newClause(scope, f).excluding(exclude)
	return d.queryOne(ctx, "first_in_order",
		"SELECT "+resourceColumns+c.sql()+o.orderBy(scope)+" LIMIT 1", c.args)
}

func (d *Database) queryOne(ctx context.Context, operation, query string, args []any) (r Resource, err error) {
	start := time.Now()
	defer func() { recordQuery(operation, start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	r, err = scanResource(d.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Resource{}, ErrNotFound
	}
	return r, err
}

// CalculateStats counts catalog contents for the metrics collector.
func (d *Database) CalculateStats(ctx context.Context) (s Stats, err error) {
	start := time.Now()
	defer func() { recordQuery("calculate_stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	err = d.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM resources WHERE file_type = 'image'),
			(SELECT COUNT(*) FROM resources WHERE file_type = 'video'),
			(SELECT COUNT(*) FROM favorites),
			(SELECT COUNT(*) FROM privacy_resources),
			(SELECT COUNT(*) FROM resources WHERE `+unscoredWhere+`),
			(SELECT COUNT(*) FROM history)`).
		Scan(&s.TotalImages, &s.TotalVideos, &s.TotalFavorites, &s.TotalPrivacy, &s.TotalUnscored, &s.TotalHistory)
	return s, err
}
