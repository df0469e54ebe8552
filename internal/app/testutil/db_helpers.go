package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"video-conversion/internal/app/repository"
	"video-conversion/internal/app/repository/pg"
	"video-conversion/internal/app/repository/sqlite"
)

// SetupTestDB returns a migrated record store that is closed when the test ends.
// POSTGRES_TEST_URL selects a PostgreSQL database; otherwise a temporary sqlite file
// is used.
func SetupTestDB(t *testing.T) *repository.CommonDB {
	t.Helper()

	var (
		db  *repository.CommonDB
		err error
	)
	if pgURL := os.Getenv("POSTGRES_TEST_URL"); pgURL != "" {
		db, err = pg.Open(pgURL)
		if err != nil {
			t.Fatalf("Failed to connect to PostgreSQL test database: %v", err)
		}
		t.Cleanup(func() { truncateAll(db) })
	} else {
		db, err = sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("Failed to create SQLite test database: %v", err)
		}
	}

	if err := db.Migrate(context.Background()); err != nil {
		db.Close()
		t.Fatalf("Failed to create test tables: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func truncateAll(db *repository.CommonDB) {
	for _, table := range []string{"conversion_logs", "conversion_messages", "conversion_subtitles", "conversions"} {
		db.DB().Exec("DELETE FROM " + table)
	}
}
