package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objgraph/internal/dbadapter"
	"github.com/roach88/objgraph/internal/testutil"
)

// createTestStore opens a fresh database in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Driver() != SQLiteDriver {
		t.Errorf("Driver() = %q, want %q", s.Driver(), SQLiteDriver)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	pragmas := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
		"foreign_keys": "1",
	}
	for name, want := range pragmas {
		if err := s.verifyPragma(name, want); err != nil {
			t.Error(err)
		}
	}
}

func TestOpenDriver_UnknownDriver(t *testing.T) {
	_, err := OpenDriver("nope", "")
	require.Error(t, err)
}

func TestCreateSchema(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	resolver := testutil.GalleryResolver()

	require.NoError(t, s.CreateSchema(ctx, dbadapter.NewSQLiteAdapter(), resolver.DbEntities()))

	for _, e := range resolver.DbEntities() {
		var name string
		err := s.DB().QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", e.Name,
		).Scan(&name)
		require.NoError(t, err, "table %s", e.Name)
	}

	// a second run fails as a whole
	require.Error(t, s.CreateSchema(ctx, dbadapter.NewSQLiteAdapter(), resolver.DbEntities()))
}

func TestInTx(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	_, err := s.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)

	count := func() int {
		var n int
		require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n))
		return n
	}

	t.Run("commits", func(t *testing.T) {
		err := s.InTx(ctx, func(tx *Tx) error {
			_, err := tx.Exec(ctx, "INSERT INTO t (name) VALUES (?)", "a")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		errStop := errors.New("stop")
		err := s.InTx(ctx, func(tx *Tx) error {
			if _, err := tx.Exec(ctx, "INSERT INTO t (name) VALUES (?)", "b"); err != nil {
				return err
			}
			return errStop
		})
		require.ErrorIs(t, err, errStop)
		assert.Equal(t, 1, count())
	})

	t.Run("querier", func(t *testing.T) {
		err := s.InTx(ctx, func(tx *Tx) error {
			q := tx.Querier(nil)
			n, err := q.ExecContext(ctx, "UPDATE t SET name = ? WHERE name = ?", "c", "a")
			if err != nil {
				return err
			}
			assert.Equal(t, int64(1), n)

			var name string
			if err := q.QueryRowContext(ctx, "SELECT name FROM t WHERE id = ?", 1).Scan(&name); err != nil {
				return err
			}
			assert.Equal(t, "c", name)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestTablePKGenerator_OverTx(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	gen := &dbadapter.TablePKGenerator{CacheSize: 2}
	for _, stmt := range gen.SchemaStatements() {
		_, err := s.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	attr := testutil.GalleryResolver().DbEntity("artist").Attribute("id")

	var got []any
	err := s.InTx(ctx, func(tx *Tx) error {
		for range 3 {
			v, err := gen.GeneratePK(ctx, tx.Querier(nil), attr)
			if err != nil {
				return err
			}
			got = append(got, v)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, got)
}
