package query

import (
	"reflect"
	"strconv"
	"strings"
)

// SortField is one ORDER BY term. Field is a view name resolved through the
// ProjectionMap; Descending selects DESC.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields parses a comma-separated sort expression such as
// "name,-created_at". A leading "-" marks a descending field. Empty input yields nil.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		name, desc := strings.CutPrefix(part, "-")
		if name == "" {
			continue
		}
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// Builder assembles SELECT statements over a ProjectionMap. Filter values are
// bound as numbered placeholders in the order their conditions are added.
type Builder struct {
	projection  *ProjectionMap
	where       []string
	args        []any
	sort        []SortField
	defaultSort []SortField
}

// NewBuilder creates a Builder ordered by defaultSort unless OrderByFields overrides it.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection:  projection,
		defaultSort: defaultSort,
	}
}

func (b *Builder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// WhereEquals adds "field = value". Nil values, including typed nil pointers, add nothing.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	b.where = append(b.where, b.projection.Column(field)+" = "+b.bind(value))
	return b
}

// WhereContains adds a case-insensitive substring match. Nil or empty values add nothing.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	b.where = append(b.where, b.projection.Column(field)+" ILIKE "+b.bind("%"+*value+"%"))
	return b
}

// WhereSearch matches search as a substring of any of fields.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	pattern := "%" + *search + "%"
	terms := make([]string, len(fields))
	for i, f := range fields {
		terms[i] = b.projection.Column(f) + " ILIKE " + b.bind(pattern)
	}

	b.where = append(b.where, "("+strings.Join(terms, " OR ")+")")
	return b
}

// WhereNull adds "field IS NULL".
func (b *Builder) WhereNull(field string) *Builder {
	b.where = append(b.where, b.projection.Column(field)+" IS NULL")
	return b
}

// WhereNotNull adds "field IS NOT NULL".
func (b *Builder) WhereNotNull(field string) *Builder {
	b.where = append(b.where, b.projection.Column(field)+" IS NOT NULL")
	return b
}

// OrderByFields replaces the default ordering. Fields the projection does not
// map are ignored, so client sort input never reaches the SQL text unmapped.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = fields
	return b
}

// Build returns the SELECT statement and its arguments.
func (b *Builder) Build() (string, []any) {
	return b.selectSQL() + b.orderBy(), b.args
}

// BuildCount returns a COUNT(*) over the same conditions.
func (b *Builder) BuildCount() (string, []any) {
	return "SELECT COUNT(*) FROM " + b.projection.From() + b.whereSQL(), b.args
}

// BuildPage returns the ordered SELECT limited to one 1-based page.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	offset := (page - 1) * pageSize
	sql := b.selectSQL() + b.orderBy() +
		" LIMIT " + strconv.Itoa(pageSize) +
		" OFFSET " + strconv.Itoa(offset)
	return sql, b.args
}

// BuildSingle selects one row by its id field. Conditions already added are ignored.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	sql := "SELECT " + b.projection.Columns() +
		" FROM " + b.projection.From() +
		" WHERE " + b.projection.Column(idField) + " = $1"
	return sql, []any{id}
}

func (b *Builder) selectSQL() string {
	return "SELECT " + b.projection.Columns() + " FROM " + b.projection.From() + b.whereSQL()
}

func (b *Builder) whereSQL() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

func (b *Builder) orderBy() string {
	terms := b.sortTerms(b.sort)
	if len(terms) == 0 {
		terms = b.sortTerms(b.defaultSort)
	}
	if len(terms) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func (b *Builder) sortTerms(fields []SortField) []string {
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := b.projection.Lookup(f.Field)
		if !ok {
			continue
		}
		if f.Descending {
			col += " DESC"
		} else {
			col += " ASC"
		}
		terms = append(terms, col)
	}
	return terms
}

func isNil(value any) bool {
	if value == nil {
		return true
	}

	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
