package database

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// identifierPattern matches column or table names, optionally qualified
// with a table name ("users" or "users.id").
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Param is one field/value pair. Used both for values to write and for
// equality conditions.
type Param struct {
	Field string
	Value any
}

// P builds a Param.
func P(field string, value any) Param {
	return Param{Field: field, Value: value}
}

// Params is an ordered list of field/value pairs.
//
// Order matters: generated placeholders and bound arguments follow the
// slice order exactly.
type Params []Param

// Fields returns the field names in order.
func (ps Params) Fields() []string {
	fields := make([]string, len(ps))
	for i, p := range ps {
		fields[i] = p.Field
	}
	return fields
}

// Values returns the values in order.
func (ps Params) Values() []any {
	values := make([]any, len(ps))
	for i, p := range ps {
		values[i] = p.Value
	}
	return values
}

// Query describes a read against a single table.
type Query struct {
	// Table to read from. Required.
	Table string

	// Where holds equality conditions joined with AND. Empty means no WHERE clause.
	Where Params

	// Fields to select. Empty means "*".
	Fields []string

	// Sort holds ORDER BY entries, each a column optionally followed by ASC or DESC.
	Sort []string

	// Limit caps the number of rows. Zero means no limit.
	Limit int
}

// Statement is generated SQL with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// BuildSelect generates:
//
//	SELECT <fields> FROM <table> [WHERE f1 = ? AND f2 = ?] [ORDER BY ...] [LIMIT n]
func BuildSelect(q Query) (Statement, error) {
	if err := validateIdentifier(q.Table); err != nil {
		return Statement{}, err
	}
	if q.Limit < 0 {
		return Statement{}, ErrInvalidLimit
	}

	fields := q.Fields
	if len(fields) == 0 {
		fields = []string{"*"}
	}
	for _, f := range fields {
		if err := validateField(f); err != nil {
			return Statement{}, err
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(fields, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(q.Table)

	var args []any
	if len(q.Where) > 0 {
		where, whereArgs, err := buildConditions(q.Where)
		if err != nil {
			return Statement{}, err
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
		args = whereArgs
	}

	if len(q.Sort) > 0 {
		for _, s := range q.Sort {
			if err := validateSort(s); err != nil {
				return Statement{}, err
			}
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(q.Sort, ", "))
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.Limit))
	}

	return Statement{SQL: sb.String(), Args: args}, nil
}

// BuildInsert generates:
//
//	INSERT INTO <table> (k1,k2) VALUES (?,?)
func BuildInsert(table string, values Params) (Statement, error) {
	if err := validateIdentifier(table); err != nil {
		return Statement{}, err
	}
	if len(values) == 0 {
		return Statement{}, ErrNoValues
	}

	fields := values.Fields()
	for _, f := range fields {
		if err := validateIdentifier(f); err != nil {
			return Statement{}, err
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	sql := "INSERT INTO " + table +
		" (" + strings.Join(fields, ",") + ")" +
		" VALUES (" + placeholders + ")"

	return Statement{SQL: sql, Args: values.Values()}, nil
}

// BuildUpdate generates:
//
//	UPDATE <table> SET k1 = ?, k2 = ? [WHERE f1 = ? AND f2 = ?]
//
// SET values are bound before WHERE values.
func BuildUpdate(table string, values, where Params) (Statement, error) {
	if err := validateIdentifier(table); err != nil {
		return Statement{}, err
	}
	if len(values) == 0 {
		return Statement{}, ErrNoValues
	}

	assignments := make([]string, len(values))
	for i, p := range values {
		if err := validateIdentifier(p.Field); err != nil {
			return Statement{}, err
		}
		assignments[i] = p.Field + " = ?"
	}

	sql := "UPDATE " + table + " SET " + strings.Join(assignments, ", ")
	args := values.Values()

	if len(where) > 0 {
		cond, condArgs, err := buildConditions(where)
		if err != nil {
			return Statement{}, err
		}
		sql += " WHERE " + cond
		args = append(args, condArgs...)
	}

	return Statement{SQL: sql, Args: args}, nil
}

// BuildDelete generates:
//
//	DELETE FROM <table> WHERE f1 = ? AND f2 = ?
//
// At least one condition is required.
func BuildDelete(table string, where Params) (Statement, error) {
	if err := validateIdentifier(table); err != nil {
		return Statement{}, err
	}
	if len(where) == 0 {
		return Statement{}, ErrNoConditions
	}

	cond, args, err := buildConditions(where)
	if err != nil {
		return Statement{}, err
	}

	return Statement{SQL: "DELETE FROM " + table + " WHERE " + cond, Args: args}, nil
}

// buildConditions renders "f1 = ? AND f2 = ?" and the matching arguments.
func buildConditions(where Params) (string, []any, error) {
	conds := make([]string, len(where))
	for i, p := range where {
		if err := validateIdentifier(p.Field); err != nil {
			return "", nil, err
		}
		conds[i] = p.Field + " = ?"
	}
	return strings.Join(conds, " AND "), where.Values(), nil
}

func validateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// validateField accepts an identifier, "*", or "table.*".
func validateField(name string) error {
	if name == "*" {
		return nil
	}
	if table, ok := strings.CutSuffix(name, ".*"); ok {
		return validateIdentifier(table)
	}
	return validateIdentifier(name)
}

// validateSort accepts "column", "column ASC", or "column DESC".
func validateSort(entry string) error {
	parts := strings.Fields(entry)
	switch len(parts) {
	case 1:
		return validateIdentifier(parts[0])
	case 2:
		dir := strings.ToUpper(parts[1])
		if dir != "ASC" && dir != "DESC" {
			return fmt.Errorf("%w: sort direction %q", ErrInvalidIdentifier, parts[1])
		}
		return validateIdentifier(parts[0])
	default:
		return fmt.Errorf("%w: sort %q", ErrInvalidIdentifier, entry)
	}
}
