package exp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "and with null",
			yaml: `
op: and
args:
  - {op: "=", path: name, value: Foo}
  - {op: "=", path: age, value: null}
`,
			want: `(name = "Foo") and (age = null)`,
		},
		{
			name: "db path in",
			yaml: `{op: in, db_path: ARTIST_ID, values: [1, 2]}`,
			want: `db:ARTIST_ID in (1, 2)`,
		},
		{
			name: "empty in folds",
			yaml: `{op: in, path: id, values: []}`,
			want: `false`,
		},
		{
			name: "empty not in folds",
			yaml: `{op: not in, path: id}`,
			want: `true`,
		},
		{
			name: "between",
			yaml: `{op: between, path: price, values: [1, 9]}`,
			want: `price between 1 and 9`,
		},
		{
			name: "like escape",
			yaml: `{op: like, path: name, value: "a!%", escape: "!"}`,
			want: `name like "a!%" escape '!'`,
		},
		{
			name: "not",
			yaml: `{op: not, args: [{op: ">", path: age, value: 3}]}`,
			want: `not (age > 3)`,
		},
		{
			name: "constants",
			yaml: `{op: or, args: [{op: "true"}, {op: "false"}]}`,
			want: `true or false`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ParseSpec([]byte(tt.yaml))
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.String())
			assert.NoError(t, e.Validate())
		})
	}
}

func TestParseSpec_MatchAll(t *testing.T) {
	e, err := ParseSpec([]byte(`{op: match_all, path: "paintings|title", values: [A, B]}`))
	require.NoError(t, err)
	assert.Len(t, e.CollectAliases(), 2)
}

func TestParseSpec_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown op", `{op: frobnicate, path: a}`},
		{"no path", `{op: "=", value: 1}`},
		{"both paths", `{op: "=", path: a, db_path: A, value: 1}`},
		{"empty and", `{op: and}`},
		{"not arity", `{op: not, args: [{op: "true"}, {op: "true"}]}`},
		{"between arity", `{op: between, path: a, values: [1]}`},
		{"escape on equals", `{op: "=", path: a, value: x, escape: "!"}`},
		{"long escape", `{op: like, path: a, value: x, escape: "!!"}`},
		{"match_all db", `{op: match_all, db_path: A, values: [1]}`},
		{"nested error", `{op: and, args: [{op: nope, path: a}]}`},
		{"bad yaml", `op: [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpec([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSpec), err.Error())
		})
	}
}
