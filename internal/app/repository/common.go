package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	apperrors "video-conversion/internal/app/errors"
)

// CommonDB implements Store on top of database/sql for every supported dialect.
type CommonDB struct {
	db           *sql.DB
	driverName   string
	placeholders PlaceholderFunc
	isDuplicate  DuplicateFunc
}

// PlaceholderFunc generates parameter placeholders for different SQL dialects
type PlaceholderFunc func(n int) string

// DuplicateFunc reports whether a driver error is a unique-constraint violation.
type DuplicateFunc func(err error) bool

var _ Store = (*CommonDB)(nil)

// NewCommonDB creates a new CommonDB instance
func NewCommonDB(db *sql.DB, driverName string, isDuplicate DuplicateFunc) *CommonDB {
	var placeholders PlaceholderFunc

	switch driverName {
	case "postgres":
		placeholders = func(n int) string { return fmt.Sprintf("$%d", n) }
	default:
		placeholders = func(n int) string { return "?" }
	}
	if isDuplicate == nil {
		isDuplicate = func(error) bool { return false }
	}

	return &CommonDB{
		db:           db,
		driverName:   driverName,
		placeholders: placeholders,
		isDuplicate:  isDuplicate,
	}
}

// rebind rewrites '?' markers into the dialect's placeholders.
func (c *CommonDB) rebind(query string) string {
	if c.driverName != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(c.placeholders(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// markers returns "?, ?, ..." for n parameters.
func markers(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// classify maps driver errors onto the package sentinels.
func (c *CommonDB) classify(err error, sentinel *apperrors.Error) error {
	if err == nil {
		return nil
	}
	if c.isDuplicate(err) {
		return apperrors.Mark(err, apperrors.ErrDuplicateKey)
	}
	return apperrors.Mark(err, sentinel)
}

// Migrate creates tables and indexes when missing.
func (c *CommonDB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements(c.driverName) {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (c *CommonDB) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// DB returns the underlying database connection
func (c *CommonDB) DB() *sql.DB {
	return c.db
}

// DriverName returns the dialect in use.
func (c *CommonDB) DriverName() string {
	return c.driverName
}

func unixOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func timeOrNil(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}
