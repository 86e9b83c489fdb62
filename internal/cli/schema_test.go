package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objgraph/internal/store"
)

func TestSchemaDDL(t *testing.T) {
	p := newProject(t, "")

	out, _, err := execute(t, "--config", p.config, "schema", "ddl")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE artist (")
	assert.Contains(t, out, "CREATE TABLE painting (")
	assert.Contains(t, out, ";\n")

	_, statErr := os.Stat(p.db)
	assert.True(t, os.IsNotExist(statErr), "ddl must not touch the database")
}

func TestSchemaDDL_JSON(t *testing.T) {
	p := newProject(t, "")

	out, _, err := execute(t, "--format", "json", "--config", p.config, "schema", "ddl")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   SchemaResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "sqlite", resp.Data.Adapter)
	assert.False(t, resp.Data.Applied)
	assert.NotEmpty(t, resp.Data.Statements)
}

func TestSchemaCreate(t *testing.T) {
	p := newProject(t, "")

	out, _, err := execute(t, "--config", p.config, "schema", "create")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Schema created")

	st, err := store.Open(p.db)
	require.NoError(t, err)
	defer st.Close()

	var count int
	err = st.DB().QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('artist', 'painting')").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSchemaCreate_Twice(t *testing.T) {
	p := newProject(t, "")

	_, _, err := execute(t, "--config", p.config, "schema", "create")
	require.NoError(t, err)

	out, _, err := execute(t, "--config", p.config, "schema", "create")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_DATABASE]")
}

func TestSchema_BadSchema(t *testing.T) {
	p := newProject(t, "")
	require.NoError(t, os.WriteFile(filepath.Join(p.dir, "schema.cue"), []byte("db_entities: {"), 0644))

	out, _, err := execute(t, "--config", p.config, "schema", "ddl")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E_SCHEMA]")
}
