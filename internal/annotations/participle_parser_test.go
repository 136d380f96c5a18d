package annotations

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nemerrors "github.com/toyz/nem/internal/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, decorators []*Decorator)
	}{
		{
			name:  "bare decorator",
			input: "@Json",
			check: func(t *testing.T, d []*Decorator) {
				require.Len(t, d, 1)
				assert.Equal(t, "Json", d[0].Name)
				assert.Empty(t, d[0].Args)
			},
		},
		{
			name:  "empty parentheses",
			input: "@Raw()",
			check: func(t *testing.T, d []*Decorator) {
				require.Len(t, d, 1)
				assert.Empty(t, d[0].Args)
			},
		},
		{
			name:  "several decorators across lines",
			input: "@Get(\"/:id\")\n@OnUndefined(404)\n@Param('id', type=int, required=true)",
			check: func(t *testing.T, d []*Decorator) {
				require.Len(t, d, 3)
				assert.Equal(t, "/:id", *d[0].Args[0].Value.String)
				assert.Equal(t, int64(404), *d[1].Args[0].Value.Int)

				args := d[2].Args
				require.Len(t, args, 3)
				assert.Equal(t, "id", args[0].Value.Interface())
				assert.Equal(t, "type", args[1].Key)
				assert.Equal(t, "int", args[1].Value.Interface())
				assert.Equal(t, "required", args[2].Key)
				assert.Equal(t, true, args[2].Value.Interface())
				assert.Equal(t, 3, d[2].Pos.Line)
			},
		},
		{
			name:  "floats and negative numbers",
			input: "@X(1.337, -2)",
			check: func(t *testing.T, d []*Decorator) {
				assert.Equal(t, 1.337, d[0].Args[0].Value.Interface())
				assert.Equal(t, int64(-2), d[0].Args[1].Value.Interface())
			},
		},
		{
			name:  "escaped quotes",
			input: `@Header("X-Quote", 'it\'s "fine"')`,
			check: func(t *testing.T, d []*Decorator) {
				assert.Equal(t, `it's "fine"`, d[0].Args[1].Value.Interface())
			},
		},
		{
			name:  "comments and trailing comma",
			input: "// show one user\n@Get(\"/\",)",
			check: func(t *testing.T, d []*Decorator) {
				require.Len(t, d, 1)
				assert.Len(t, d[0].Args, 1)
			},
		},
		{
			name:  "empty source",
			input: "  ",
			check: func(t *testing.T, d []*Decorator) {
				assert.Empty(t, d)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse("UserController.Show", tt.input)
			require.NoError(t, err)
			tt.check(t, d)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		column int
	}{
		{name: "missing at sign", input: "Get(\"/\")", column: 1},
		{name: "unclosed arguments", input: "@Get(\"/\""},
		{name: "missing name", input: "@ (1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("UserController.Show", tt.input)
			require.Error(t, err)

			var nerr *nemerrors.BaseError
			require.True(t, errors.As(err, &nerr))
			assert.Equal(t, nemerrors.SyntaxErrorCode, nerr.ErrorCode())
			assert.Equal(t, "UserController.Show", nerr.Location().Source)
			assert.Equal(t, 1, nerr.Location().Line)
			if tt.column > 0 {
				assert.Equal(t, tt.column, nerr.Location().Column)
			}
		})
	}
}
