package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if err := s1.PutCredential(ctx, createTestCredential("c1", "CA DMV", "2024-01-01T00:00:00Z")); err != nil {
		t.Fatalf("PutCredential() failed: %v", err)
	}
	s1.Close()

	// Records survive a restart
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	_, found, err := s2.GetCredential(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCredential() failed: %v", err)
	}
	if !found {
		t.Error("credential written before restart was not found")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Open multiple times
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	// Verify schema is intact
	tables := []string{"credentials", "proofs", "settings"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Fatal("expected error for invalid path, got nil")
	}
	if !IsUnavailable(err) {
		t.Errorf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestOpenInMemory_Isolated(t *testing.T) {
	ctx := context.Background()

	s1, err := OpenInMemory()
	require.NoError(t, err)
	defer s1.Close()

	s2, err := OpenInMemory()
	require.NoError(t, err)
	defer s2.Close()

	require.NoError(t, s1.PutCredential(ctx, createTestCredential("c1", "CA DMV", "2024-01-01T00:00:00Z")))

	creds, err := s2.ListCredentials(ctx)
	require.NoError(t, err)
	assert.Empty(t, creds, "in-memory stores must not share data")

	creds, err = s1.ListCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, credentialIDs(creds))
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	s := createTestStore(t)

	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}

func TestClosedStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.ListCredentials(ctx)
	assert.True(t, IsUnavailable(err), "list: %v", err)

	err = s.PutCredential(ctx, createTestCredential("c1", "CA DMV", "2024-01-01T00:00:00Z"))
	assert.True(t, IsUnavailable(err), "put: %v", err)

	_, _, err = s.GetProof(ctx, "p1")
	assert.True(t, IsUnavailable(err), "get proof: %v", err)

	err = s.SetSetting(ctx, mustSetting(t, "k", 1))
	assert.True(t, IsUnavailable(err), "set setting: %v", err)

	_, err = s.Counts(ctx)
	assert.True(t, IsUnavailable(err), "counts: %v", err)
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_Synchronous(t *testing.T) {
	s := createTestStore(t)
	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestPragma_ForeignKeys(t *testing.T) {
	s := createTestStore(t)
	// ON = 1
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

// Schema table tests

func TestSchema_Tables(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		table   string
		columns []string
	}{
		{"credentials", []string{"seq", "id", "issued_at", "issuer_name", "body"}},
		{"proofs", []string{"seq", "id", "credential_id", "verifier_id", "timestamp", "body"}},
		{"settings", []string{"seq", "key", "value"}},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			columns := getTableColumns(t, s.db, tt.table)
			for _, col := range tt.columns {
				if !contains(columns, col) {
					t.Errorf("%s table missing column %q", tt.table, col)
				}
			}
		})
	}
}

func TestSchema_Indexes(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		table   string
		indexes []string
	}{
		{"credentials", []string{"idx_credentials_issued_at", "idx_credentials_issuer_name"}},
		{"proofs", []string{"idx_proofs_credential_id", "idx_proofs_verifier_id", "idx_proofs_timestamp"}},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			indexes := getTableIndexes(t, s.db, tt.table)
			for _, idx := range tt.indexes {
				if !contains(indexes, idx) {
					t.Errorf("%s table missing index %q", tt.table, idx)
				}
			}
		})
	}
}

func TestSchema_IssuerLookupUsesIndex(t *testing.T) {
	s := createTestStore(t)

	rows, err := s.db.Query("EXPLAIN QUERY PLAN SELECT body FROM credentials WHERE issuer_name = ?", "x")
	require.NoError(t, err)
	defer rows.Close()

	var plan []string
	for rows.Next() {
		var id, parent, notused int
		var detail string
		require.NoError(t, rows.Scan(&id, &parent, &notused, &detail))
		plan = append(plan, detail)
	}
	require.NoError(t, rows.Err())
	assert.Contains(t, plan[0], "idx_credentials_issuer_name")
}

// Migration tests

func TestMigrations_SetsLatestVersion(t *testing.T) {
	s := createTestStore(t)

	version, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, latestSchemaVersion(), version)
}

func TestMigrations_AdditiveUpgradePreservesRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.PutCredential(ctx, createTestCredential("c1", "CA DMV", "2024-01-01T00:00:00Z")))
	require.NoError(t, s1.PutProof(ctx, createTestProof("p1", "c1", "v1", "2024-02-01T00:00:00Z")))
	require.NoError(t, s1.SetSetting(ctx, mustSetting(t, "theme", "dark")))
	require.NoError(t, s1.Close())

	// A later build adds a column and an index.
	saved := migrations
	t.Cleanup(func() { migrations = saved })
	migrations = append(append([]migration{}, saved...), migration{
		version: 2,
		name:    "credential type column",
		apply: execSQL(`
			ALTER TABLE credentials ADD COLUMN credential_type TEXT;
			CREATE INDEX IF NOT EXISTS idx_credentials_type ON credentials(credential_type);
		`),
	})

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	version, err := s2.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.Contains(t, getTableColumns(t, s2.db, "credentials"), "credential_type")

	c, found, err := s2.GetCredential(ctx, "c1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, createTestCredential("c1", "CA DMV", "2024-01-01T00:00:00Z"), c)

	_, found, err = s2.GetProof(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = s2.GetSetting(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestMigrations_RefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaTooNew))
}

func TestCounts(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.PutCredential(ctx, createTestCredential("c1", "CA DMV", "2024-01-01T00:00:00Z")))
	require.NoError(t, s.PutCredential(ctx, createTestCredential("c2", "CA DMV", "2024-01-02T00:00:00Z")))
	require.NoError(t, s.PutProof(ctx, createTestProof("p1", "c1", "v1", "2024-02-01T00:00:00Z")))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Credentials: 2, Proofs: 1, Settings: 0}, counts)
}

// Helper functions

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
