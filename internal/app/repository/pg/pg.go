package pg

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"video-conversion/internal/app/repository"
)

const (
	DriverName = "postgres"

	uniqueViolation pq.ErrorCode = "23505"
)

// Open connects to postgres using a lib/pq connection string.
func Open(dsn string) (*repository.CommonDB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return repository.NewCommonDB(db, DriverName, IsUniqueViolation), nil
}

// IsUniqueViolation reports whether err is a postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
