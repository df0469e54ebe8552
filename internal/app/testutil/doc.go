// Package testutil provides shared helpers for the conversion service tests.
//
// It contains three groups of helpers:
//
// 1. Database helpers (db_helpers.go):
//   - SetupTestDB: a migrated record store with automatic cleanup, sqlite by
//     default or PostgreSQL when POSTGRES_TEST_URL is set
//
// 2. Channel and host mocks (mock_channels.go):
//   - MockStatusStore, MockQueue and MockUnhider built on testify/mock
//
// 3. Fixtures (fixtures.go):
//   - job constructors, probe metadata and source files in a content-addressed root
//
// # Usage Examples
//
//	func TestSomething(t *testing.T) {
//		db := testutil.SetupTestDB(t)
//		job := testutil.NewJob("abc123", model.StatusAccepted, time.Now())
//		require.NoError(t, db.CreateJob(context.Background(), job))
//	}
package testutil
