package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const artistByName = `entity: Artist
qualifier: { op: "=", path: name, value: Monet }
`

func TestTranslate_Text(t *testing.T) {
	p := newProject(t, "")
	q := p.writeQuery(t, "artist.yaml", artistByName)

	out, _, err := execute(t, "--config", p.config, "translate", q)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "SELECT "), lines[0])
	assert.Contains(t, lines[0], "FROM artist t0 WHERE t0.name = ?")
	assert.Equal(t, "$1 name:Monet", lines[1])
}

func TestTranslate_JSON(t *testing.T) {
	p := newProject(t, "")
	q := p.writeQuery(t, "paintings.yaml", `entity: Painting
qualifier: { op: "=", path: artist.name, value: Monet }
orderings: [{ path: title }]
`)

	out, _, err := execute(t, "--format", "json", "--config", p.config, "translate", q)
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   TranslateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, resp.Data.SQL, "JOIN artist t1")
	assert.Contains(t, resp.Data.SQL, "ORDER BY t0.title")
	require.Len(t, resp.Data.Params, 1)
	assert.Equal(t, "Monet", resp.Data.Params[0].Value)
	assert.Equal(t, "name", resp.Data.Params[0].Column)
}

func TestTranslate_NoTableAliases(t *testing.T) {
	p := newProject(t, "translator:\n  table_aliases: false\n")

	t.Run("single table", func(t *testing.T) {
		q := p.writeQuery(t, "artist.yaml", artistByName)

		out, _, err := execute(t, "--config", p.config, "translate", q)
		require.NoError(t, err)
		assert.NotContains(t, out, "t0")
		assert.Contains(t, out, "FROM artist WHERE name = ?")
	})

	t.Run("joined tables", func(t *testing.T) {
		q := p.writeQuery(t, "paintings.yaml", `entity: Painting
qualifier: { op: "=", path: artist.name, value: Monet }
`)

		out, _, err := execute(t, "--config", p.config, "translate", q)
		require.NoError(t, err)
		assert.NotContains(t, out, "t0")
		assert.Contains(t, out, "SELECT painting.id, painting.title, painting.artist_id FROM painting")
		assert.Contains(t, out, "JOIN artist ON (painting.artist_id = artist.id)")
		assert.Contains(t, out, "WHERE artist.name = ?")
	})
}

func TestTranslate_Errors(t *testing.T) {
	p := newProject(t, "")

	tests := []struct {
		name     string
		query    string
		wantCode string
		wantExit int
	}{
		{"unknown entity", "entity: Sculpture\n", "E_TRANSLATE", ExitFailure},
		{"bad path", "entity: Artist\nqualifier: { op: \"=\", path: nationality, value: French }\n", "E_TRANSLATE", ExitFailure},
		{"malformed query", "entity: [\n", "E_QUERY", ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := p.writeQuery(t, "q.yaml", tt.query)

			out, _, err := execute(t, "--format", "json", "--config", p.config, "translate", q)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestTranslate_MissingQuery(t *testing.T) {
	p := newProject(t, "")

	out, _, err := execute(t, "--config", p.config, "translate", filepath.Join(p.dir, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E_NOT_FOUND]")
}

func TestTranslate_MissingArgs(t *testing.T) {
	_, _, err := execute(t, "translate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
