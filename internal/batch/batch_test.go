package batch_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objgraph/internal/batch"
	"github.com/roach88/objgraph/internal/dbadapter"
	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/schema"
	"github.com/roach88/objgraph/internal/testutil"
)

func table(t *testing.T, name string) *schema.DbEntity {
	t.Helper()
	e := testutil.GalleryResolver().DbEntity(name)
	require.NotNil(t, e, "table %s", name)
	return e
}

func attrs(e *schema.DbEntity, names ...string) []*schema.DbAttribute {
	out := make([]*schema.DbAttribute, 0, len(names))
	for _, n := range names {
		out = append(out, e.Attribute(n))
	}
	return out
}

func statement(t *testing.T, q batch.Query, adapter dbadapter.DbAdapter) (string, batch.Builder) {
	t.Helper()
	b, err := batch.NewBuilder(q, adapter)
	require.NoError(t, err)
	sql, err := b.CreateSQLString()
	require.NoError(t, err)
	return sql, b
}

func TestInsert_GeneratedKeyColumn(t *testing.T) {
	artist := table(t, "artist")
	q := batch.NewInsertBatchQuery(artist)
	q.AddRow(map[string]any{"id": 7, "name": "Monet", "age": 86}, object.NewTemporaryID("Artist"))

	tests := []struct {
		name    string
		adapter dbadapter.DbAdapter
		sql     string
		args    []any
	}{
		{
			name:    "database generates keys",
			adapter: dbadapter.NewSQLiteAdapter(),
			sql:     "INSERT INTO artist (name, age, date_of_birth) VALUES (?, ?, ?)",
			args:    []any{"Monet", 86, nil},
		},
		{
			name:    "keys assigned before insert",
			adapter: &dbadapter.GenericAdapter{},
			sql:     "INSERT INTO artist (id, name, age, date_of_birth) VALUES (?, ?, ?, ?)",
			args:    []any{7, "Monet", 86, nil},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, b := statement(t, q, tt.adapter)
			assert.Equal(t, tt.sql, sql)

			args, err := batch.RowArgs(b, 0)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.args, args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInsert_NonGeneratedKeyAlwaysWritten(t *testing.T) {
	info := table(t, "painting_info")
	q := batch.NewInsertBatchQuery(info)
	q.AddRow(map[string]any{"painting_id": 3, "review": "fine"}, nil)

	sql, _ := statement(t, q, dbadapter.NewSQLiteAdapter())
	assert.Equal(t, "INSERT INTO painting_info (painting_id, review) VALUES (?, ?)", sql)
}

func TestInsert_QuotedIdentifiers(t *testing.T) {
	pg := dbadapter.NewPostgresAdapter()
	pg.QuoteIdentifiers = true

	sql, _ := statement(t, batch.NewInsertBatchQuery(table(t, "gallery")), pg)
	assert.Equal(t, `INSERT INTO "gallery" ("id", "name") VALUES (?, ?)`, sql)
}

func TestDelete_NullQualifier(t *testing.T) {
	artist := table(t, "artist")
	qualifiers := attrs(artist, "id", "name")
	q := batch.NewDeleteBatchQuery(artist, qualifiers, []string{"name"})
	require.NoError(t, q.AddRow(map[string]any{"id": 5}, nil))
	require.NoError(t, q.AddRow(map[string]any{"id": 6, "name": nil}, nil))

	sql, b := statement(t, q, dbadapter.NewSQLiteAdapter())
	assert.Equal(t, "DELETE FROM artist WHERE id = ? AND name IS NULL", sql)

	args, err := batch.RowArgs(b, 1)
	require.NoError(t, err)
	assert.Equal(t, []any{6}, args)
}

func TestDelete_RejectsOtherNullPattern(t *testing.T) {
	artist := table(t, "artist")
	q := batch.NewDeleteBatchQuery(artist, attrs(artist, "id", "name"), nil)

	err := q.AddRow(map[string]any{"id": 5, "name": nil}, nil)
	assert.True(t, errors.Is(err, batch.ErrNullPatternMismatch), "%v", err)
	assert.Empty(t, q.Rows())
}

func TestUpdate(t *testing.T) {
	artist := table(t, "artist")
	q := batch.NewUpdateBatchQuery(artist,
		attrs(artist, "id", "age"),
		attrs(artist, "name", "age"),
		[]string{"age"},
	)
	require.NoError(t, q.AddRow(
		map[string]any{"id": 7},
		map[string]any{"name": "Manet", "age": 51},
		object.NewSingleObjectID("Artist", "id", 7),
	))

	sql, b := statement(t, q, dbadapter.NewSQLiteAdapter())
	assert.Equal(t, "UPDATE artist SET name = ?, age = ? WHERE id = ? AND age IS NULL", sql)

	var binder dbadapter.Binder
	require.NoError(t, b.BindParameters(&binder, 0))
	assert.Equal(t, []any{"Manet", 51, 7}, binder.Args())

	// binding again replaces the previous row
	require.NoError(t, b.BindParameters(&binder, 0))
	assert.Len(t, binder.Args(), 3)
}

func TestBuilderErrors(t *testing.T) {
	artist := table(t, "artist")

	_, err := batch.NewBuilder(nil, dbadapter.NewSQLiteAdapter())
	assert.Error(t, err)

	b, err := batch.NewBuilder(batch.NewUpdateBatchQuery(artist, attrs(artist, "id"), nil, nil), dbadapter.NewSQLiteAdapter())
	require.NoError(t, err)
	_, err = b.CreateSQLString()
	assert.Error(t, err)

	b, err = batch.NewBuilder(batch.NewDeleteBatchQuery(artist, nil, nil), dbadapter.NewSQLiteAdapter())
	require.NoError(t, err)
	_, err = b.CreateSQLString()
	assert.Error(t, err)

	_, err = batch.RowArgs(b, 3)
	assert.True(t, errors.Is(err, batch.ErrRowOutOfRange), "%v", err)
}

func TestNullQualifierNames(t *testing.T) {
	artist := table(t, "artist")
	got := batch.NullQualifierNames(attrs(artist, "name", "id", "age"), map[string]any{"id": 1, "age": nil})
	assert.Equal(t, []string{"age", "name"}, got)
}

func TestUpdatedSnapshot(t *testing.T) {
	tests := []struct {
		name      string
		committed map[string]any
		current   map[string]any
		want      map[string]any
	}{
		{
			name:    "no committed snapshot",
			current: map[string]any{"name": "A", "age": 3},
			want:    map[string]any{"name": "A", "age": 3},
		},
		{
			name:      "changed columns only",
			committed: map[string]any{"name": "A", "age": 3},
			current:   map[string]any{"name": "B", "age": 3},
			want:      map[string]any{"name": "B"},
		},
		{
			name:      "removed column becomes null",
			committed: map[string]any{"name": "A", "age": 3},
			current:   map[string]any{"name": "A"},
			want:      map[string]any{"age": nil},
		},
		{
			name:      "null stays null",
			committed: map[string]any{"name": "A", "age": nil},
			current:   map[string]any{"name": "A"},
			want:      map[string]any{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := batch.UpdatedSnapshot(tt.committed, tt.current)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
