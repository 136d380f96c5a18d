package annotations

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nemerrors "github.com/toyz/nem/internal/errors"
)

func resolveOne(t *testing.T, src string) (*Annotation, error) {
	t.Helper()
	d, err := Parse("Owner.Method", src)
	require.NoError(t, err)
	require.Len(t, d, 1)
	return DefaultRegistry().Resolve("Owner.Method", d[0])
}

func TestDefaultRegistry(t *testing.T) {
	assert.Same(t, DefaultRegistry(), DefaultRegistry())

	names := DefaultRegistry().Names()
	for _, name := range []string{"Get", "All", "Param", "Body", "OnUndefined", "SSE", "Redirect"} {
		assert.Contains(t, names, name)
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Schema{Name: "Cache", Parameters: map[string]ParameterSpec{}}))

	err := r.Register(Schema{Name: "Cache"})
	assert.ErrorContains(t, err, "already registered")

	err = r.Register(Schema{Name: "Bad", Positional: []string{"ttl"}})
	assert.ErrorContains(t, err, "has no spec")

	err = r.Register(Schema{Name: "Worse", Parameters: map[string]ParameterSpec{
		"ttl": {Type: IntType, DefaultValue: "soon"},
	}})
	assert.ErrorContains(t, err, "default value")
}

func TestResolve(t *testing.T) {
	t.Run("route default path", func(t *testing.T) {
		a, err := resolveOne(t, "@Get")
		require.NoError(t, err)
		assert.Equal(t, "/", a.GetString("path"))
	})

	t.Run("named binding with options", func(t *testing.T) {
		a, err := resolveOne(t, `@Param("id", type=float, required=true)`)
		require.NoError(t, err)
		assert.Equal(t, "id", a.GetString("name"))
		assert.Equal(t, "float", a.GetString("type"))
		assert.True(t, a.GetBool("required"))
	})

	t.Run("status or message", func(t *testing.T) {
		a, err := resolveOne(t, "@OnUndefined(404)")
		require.NoError(t, err)
		assert.Equal(t, 404, a.Get("status"))

		a, err = resolveOne(t, `@OnNull("nothing here")`)
		require.NoError(t, err)
		assert.Equal(t, "nothing here", a.Get("status"))
	})

	t.Run("int widens to float", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Schema{
			Name:       "Ratio",
			Positional: []string{"v"},
			Parameters: map[string]ParameterSpec{"v": {Type: FloatType}},
		}))
		d, err := Parse("x", "@Ratio(2)")
		require.NoError(t, err)
		a, err := r.Resolve("x", d[0])
		require.NoError(t, err)
		assert.Equal(t, 2.0, a.GetFloat("v"))
	})

	t.Run("sse default retry", func(t *testing.T) {
		a, err := resolveOne(t, "@SSE")
		require.NoError(t, err)
		assert.Equal(t, 0, a.GetInt("retry", -1))
	})
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
		column  int
	}{
		{"unknown decorator", "@Cached(10)", "unknown decorator @Cached", 1},
		{"missing required", "@StatusCode", "requires parameter code", 1},
		{"wrong type", `@StatusCode("ok")`, "expected integer", 13},
		{"out of range", "@Redirect(\"/a\", 200)", "between 300 and 308", 17},
		{"too many positional", `@Get("/a", "/b")`, "at most 1 positional", 12},
		{"unknown key", `@Get(route="/a")`, "no parameter route", 6},
		{"duplicate", `@Param("id", name="other")`, "given twice", 14},
		{"relative path", `@Get("users")`, "must start with '/'", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveOne(t, tt.input)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.message)

			var nerr *nemerrors.BaseError
			require.True(t, errors.As(err, &nerr))
			assert.Equal(t, nemerrors.AnnotationErrorCode, nerr.ErrorCode())
			assert.Equal(t, tt.column, nerr.Location().Column)
		})
	}
}
