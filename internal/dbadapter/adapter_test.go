package dbadapter_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objgraph/internal/dbadapter"
	"github.com/roach88/objgraph/internal/schema"
	"github.com/roach88/objgraph/internal/testutil"
)

func TestLikeEscapeClause(t *testing.T) {
	assert.Equal(t, " {escape '!'}", (&dbadapter.GenericAdapter{}).LikeEscapeClause('!'))
	assert.Equal(t, " ESCAPE '!'", dbadapter.NewSQLiteAdapter().LikeEscapeClause('!'))
	assert.Equal(t, " ESCAPE '!'", dbadapter.NewPostgresAdapter().LikeEscapeClause('!'))
}

func TestLimitClause(t *testing.T) {
	generic := &dbadapter.GenericAdapter{}
	assert.Equal(t, "", generic.LimitClause(0, 0))
	assert.Equal(t, " LIMIT 10", generic.LimitClause(10, 0))
	assert.Equal(t, " LIMIT 10 OFFSET 20", generic.LimitClause(10, 20))
	assert.Equal(t, " OFFSET 20", dbadapter.NewPostgresAdapter().LimitClause(0, 20))
	assert.Equal(t, " LIMIT -1 OFFSET 20", dbadapter.NewSQLiteAdapter().LimitClause(0, 20))
	assert.Equal(t, " LIMIT 5 OFFSET 20", dbadapter.NewSQLiteAdapter().LimitClause(5, 20))
}

func TestQuoting(t *testing.T) {
	e := schema.NewDbEntity("artist")
	e.Schema = "public"

	generic := &dbadapter.GenericAdapter{}
	assert.Equal(t, "public.artist", generic.QuoteTable(e))
	generic.QuoteIdentifiers = true
	assert.Equal(t, `"public"."artist"`, generic.QuoteTable(e))
	assert.Equal(t, `"a""b"`, generic.QuoteIdentifier(`a"b`))

	pg := dbadapter.NewPostgresAdapter()
	pg.QuoteIdentifiers = true
	assert.Equal(t, `"public"."artist"`, pg.QuoteTable(e))
}

func TestPostgresRebind(t *testing.T) {
	pg := dbadapter.NewPostgresAdapter()
	assert.Equal(t,
		`SELECT t0.id FROM artist t0 WHERE t0.name = $1 AND t0.note <> '?' AND t0.age IN ($2, $3)`,
		pg.Rebind(`SELECT t0.id FROM artist t0 WHERE t0.name = ? AND t0.note <> '?' AND t0.age IN (?, ?)`))

	sqlite := dbadapter.NewSQLiteAdapter()
	assert.Equal(t, "a = ?", sqlite.Rebind("a = ?"))
}

func TestBindAll(t *testing.T) {
	params := []dbadapter.ParameterBinding{
		{Value: "Foo", Type: schema.TypeVarchar},
		{Value: 12.346, Type: schema.TypeDecimal, Scale: 2},
		{Value: true, Type: schema.TypeBoolean},
		{Value: "42", Type: schema.TypeInteger},
		{Value: nil, Type: schema.TypeInteger},
		{Value: sql.NullString{String: "x", Valid: true}, Type: schema.TypeVarchar},
	}

	args, err := dbadapter.BindAll(dbadapter.NewSQLiteAdapter(), params)
	require.NoError(t, err)
	assert.Equal(t, []any{"Foo", "12.35", int64(1), int64(42), nil, "x"}, args)

	args, err = dbadapter.BindAll(&dbadapter.GenericAdapter{}, params[2:3])
	require.NoError(t, err)
	assert.Equal(t, []any{true}, args)

	_, err = dbadapter.BindAll(dbadapter.NewSQLiteAdapter(), []dbadapter.ParameterBinding{{Value: "x", Type: schema.TypeInteger}})
	assert.Error(t, err)
}

func TestPostgresBindsArrays(t *testing.T) {
	var b dbadapter.Binder
	pg := dbadapter.NewPostgresAdapter()
	require.NoError(t, pg.BindParameter(&b, []int64{1, 2}, 1, schema.TypeInteger, 0))
	require.NoError(t, pg.BindParameter(&b, []byte("raw"), 2, schema.TypeBlob, 0))
	assert.Equal(t, pq.Array([]int64{1, 2}), b.Args()[0])
	assert.Equal(t, []byte("raw"), b.Args()[1])
}

func TestBinder_Positions(t *testing.T) {
	var b dbadapter.Binder
	b.Bind(2, "b")
	b.Bind(1, "a")
	assert.Equal(t, []any{"a", "b"}, b.Args())
	b.Reset()
	assert.Empty(t, b.Args())
}

func TestNewBinding(t *testing.T) {
	attr := testutil.GalleryResolver().DbEntity("painting").Attribute("price")
	b := dbadapter.NewBinding(1.5, attr)
	assert.Equal(t, schema.TypeDecimal, b.Type)
	assert.Equal(t, 2, b.Scale)
	assert.Equal(t, "price:1.5", b.String())
	assert.Equal(t, "3", dbadapter.NewBinding(3, nil).String())
}

func TestSQLiteSchemaStatements(t *testing.T) {
	resolver := testutil.GalleryResolver()
	ddl := dbadapter.NewSQLiteAdapter().SchemaStatements(resolver.DbEntities())

	require.Len(t, ddl, len(resolver.DbEntities()))
	assert.Contains(t, ddl, "CREATE TABLE artist (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER, date_of_birth DATE)")
	assert.Contains(t, ddl, "CREATE TABLE painting_info (painting_id INTEGER NOT NULL, review TEXT, "+
		"PRIMARY KEY (painting_id), FOREIGN KEY (painting_id) REFERENCES painting (id))")
	assert.Contains(t, ddl, "CREATE TABLE compound_pk (key1 INTEGER NOT NULL, key2 TEXT NOT NULL, name TEXT, PRIMARY KEY (key1, key2))")
	assert.Contains(t, ddl, "CREATE TABLE compound_fk (id INTEGER PRIMARY KEY, name TEXT, f_key1 INTEGER, f_key2 TEXT, "+
		"FOREIGN KEY (f_key1, f_key2) REFERENCES compound_pk (key1, key2))")
}

func TestPostgresSchemaStatements(t *testing.T) {
	resolver := testutil.GalleryResolver()
	ddl := dbadapter.NewPostgresAdapter().SchemaStatements(resolver.DbEntities())

	assert.Contains(t, ddl, "CREATE TABLE painting (id INTEGER NOT NULL, title VARCHAR(254) NOT NULL, price DECIMAL(10, 2), "+
		"artist_id INTEGER, gallery_id INTEGER, PRIMARY KEY (id), "+
		"FOREIGN KEY (artist_id) REFERENCES artist (id), FOREIGN KEY (gallery_id) REFERENCES gallery (id))")
	assert.Contains(t, ddl, "CREATE SEQUENCE pk_painting START 200")
	assert.NotContains(t, ddl, "CREATE SEQUENCE pk_painting_info START 200", "key propagated from painting")
}

func TestGenericSchemaStatementsIncludeKeyTable(t *testing.T) {
	ddl := (&dbadapter.GenericAdapter{}).SchemaStatements(testutil.GalleryResolver().DbEntities())
	assert.Contains(t, ddl[len(ddl)-1], "CREATE TABLE "+dbadapter.AutoPKTable)
}

type fakeRow struct {
	value int64
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.value
	return nil
}

type fakeQuerier struct {
	next    map[string]int64
	queries []string
}

func (q *fakeQuerier) QueryRowContext(_ context.Context, query string, args ...any) dbadapter.RowScanner {
	q.queries = append(q.queries, query)
	if len(args) == 0 {
		return fakeRow{value: 200}
	}
	v, ok := q.next[args[0].(string)]
	if !ok {
		return fakeRow{err: sql.ErrNoRows}
	}
	return fakeRow{value: v}
}

func (q *fakeQuerier) ExecContext(_ context.Context, query string, args ...any) (int64, error) {
	q.queries = append(q.queries, query)
	switch len(args) {
	case 2:
		q.next[args[0].(string)] = args[1].(int64)
	case 3:
		q.next[args[1].(string)] = args[0].(int64)
	}
	return 1, nil
}

func TestTablePKGenerator(t *testing.T) {
	attr := testutil.GalleryResolver().DbEntity("artist").Attribute("id")
	q := &fakeQuerier{next: map[string]int64{}}
	g := &dbadapter.TablePKGenerator{CacheSize: 2}
	ctx := context.Background()

	var got []any
	for range 5 {
		v, err := g.GeneratePK(ctx, q, attr)
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4), int64(5)}, got)
	assert.Equal(t, int64(7), q.next["artist"])

	name := testutil.GalleryResolver().DbEntity("artist").Attribute("name")
	_, err := g.GeneratePK(ctx, q, name)
	assert.Error(t, err)
}

func TestSequencePKGenerator(t *testing.T) {
	attr := testutil.GalleryResolver().DbEntity("artist").Attribute("id")
	q := &fakeQuerier{}
	v, err := (&dbadapter.SequencePKGenerator{}).GeneratePK(context.Background(), q, attr)
	require.NoError(t, err)
	assert.Equal(t, int64(200), v)
	assert.Equal(t, []string{"SELECT nextval('pk_artist')"}, q.queries)
}
