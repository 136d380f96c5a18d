package nem

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireHTTPError(t *testing.T, err error, code int, message string) {
	t.Helper()
	require.Error(t, err)
	he := AsHTTPError(err)
	assert.Equal(t, code, he.Code)
	assert.Equal(t, message, he.Message)
}

func TestResolveParam(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name     string
		binding  *Binding
		setup    func(r *fakeRequest)
		expected any
		errMsg   string
	}{
		{
			name:    "missing required path param",
			binding: Param("id"),
			errMsg:  `Param "id" required`,
		},
		{
			name:     "path param as string",
			binding:  Param("id"),
			setup:    func(r *fakeRequest) { r.params["id"] = "foobar" },
			expected: "foobar",
		},
		{
			name:     "path param as number",
			binding:  Param("id", As("number")),
			setup:    func(r *fakeRequest) { r.params["id"] = "1.337" },
			expected: 1.337,
		},
		{
			name:    "path param not a number",
			binding: Param("id", As("float")),
			setup:   func(r *fakeRequest) { r.params["id"] = "foobar" },
			errMsg:  `Param "id" invalid, float expected`,
		},
		{
			name:    "query param not an integer",
			binding: QueryParam("page", As("int")),
			setup:   func(r *fakeRequest) { r.query.Set("page", "1.5") },
			errMsg:  `QueryParam "page" invalid, integer expected`,
		},
		{
			name:    "header param not a boolean",
			binding: HeaderParam("X-Debug", As("bool")),
			setup:   func(r *fakeRequest) { r.headers.Set("X-Debug", "maybe") },
			errMsg:  `HeaderParam "X-Debug" invalid, boolean expected`,
		},
		{
			name:     "header param as uuid",
			binding:  HeaderParam("X-Request-Id", As("uuid")),
			setup:    func(r *fakeRequest) { r.headers.Set("X-Request-Id", id.String()) },
			expected: id,
		},
		{
			name:    "missing optional query param stays nil",
			binding: QueryParam("page", As("int")),
		},
		{
			name:    "required query param",
			binding: QueryParam("page", Required()),
			errMsg:  `QueryParam "page" required`,
		},
		{
			name:    "optional path param",
			binding: Param("id", Optional()),
		},
		{
			name:     "body param from json",
			binding:  BodyParam("count", As("int")),
			setup:    func(r *fakeRequest) { r.body = []byte(`{"count": 3}`) },
			expected: 3,
		},
		{
			name:    "body param from form",
			binding: BodyParam("name"),
			setup: func(r *fakeRequest) {
				r.headers.Set("Content-Type", "application/x-www-form-urlencoded")
				r.body = []byte("name=worf&rank=commander")
			},
			expected: "worf",
		},
		{
			name:    "validator rejects",
			binding: QueryParam("name", ValidateWith(func(v any, _ *Binding, _ Request) bool { return v == "ok" })),
			setup:   func(r *fakeRequest) { r.query.Set("name", "nope") },
			errMsg:  `QueryParam "name" invalid`,
		},
		{
			name: "custom parser",
			binding: QueryParam("tags", ParseWith(func(v any, _ *Binding, _ Request) (any, error) {
				return []string{v.(string)}, nil
			})),
			setup:    func(r *fakeRequest) { r.query.Set("tags", "a") },
			expected: []string{"a"},
		},
		{
			name:    "session param without session",
			binding: SessionParam("user"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newFakeRequest(http.MethodGet, "/")
			if tt.setup != nil {
				tt.setup(req)
			}
			value, err := ResolveParam(tt.binding, req)
			if tt.errMsg != "" {
				requireHTTPError(t, err, http.StatusBadRequest, tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value)
		})
	}
}

func TestResolveParamsKeepsOrder(t *testing.T) {
	req := newFakeRequest(http.MethodGet, "/users/7")
	req.params["id"] = "7"
	req.query.Set("q", "search")
	req.headers.Set("Accept", "text/html")
	res := newFakeResponse()
	req.Set(ResponseKey, res)

	bindings := []*Binding{
		Param("id", As("int")),
		QueryParam("q"),
		HeaderParam("Accept"),
		Req(),
		Res(),
		Params(),
	}

	args, err := ResolveParams(context.Background(), bindings, req)
	require.NoError(t, err)
	require.Len(t, args, len(bindings))
	assert.Equal(t, 7, args[0])
	assert.Equal(t, "search", args[1])
	assert.Equal(t, "text/html", args[2])
	assert.Same(t, req, args[3])
	assert.Same(t, res, args[4])
	assert.Equal(t, map[string]string{"id": "7"}, args[5])
}

func TestResolveParamsFirstError(t *testing.T) {
	req := newFakeRequest(http.MethodGet, "/")
	_, err := ResolveParams(context.Background(), []*Binding{QueryParam("q"), Param("id")}, req)
	requireHTTPError(t, err, http.StatusBadRequest, `Param "id" required`)
}

func TestResolveParamsSkipsCancelledRequests(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := newFakeRequest(http.MethodGet, "/")
	req.query.Set("q", "search")
	_, err := ResolveParams(ctx, []*Binding{QueryParam("q")}, req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBodyAsValidates(t *testing.T) {
	type payload struct {
		Name string `json:"name" validate:"required"`
		Age  int    `json:"age" validate:"gte=0"`
	}

	req := newFakeRequest(http.MethodPost, "/")
	req.body = []byte(`{"name": "Worf", "age": 40}`)
	value, err := ResolveParam(BodyAs[payload](), req)
	require.NoError(t, err)
	assert.Equal(t, &payload{Name: "Worf", Age: 40}, value)

	req = newFakeRequest(http.MethodPost, "/")
	req.body = []byte(`{"age": 40}`)
	_, err = ResolveParam(BodyAs[payload](), req)
	requireHTTPError(t, err, http.StatusBadRequest, `Body invalid, field "Name" failed on "required"`)
}

func TestErrBinding(t *testing.T) {
	req := newFakeRequest(http.MethodGet, "/")
	value, err := ResolveParam(Err(), req)
	require.NoError(t, err)
	assert.Nil(t, value)

	boom := ErrForbidden()
	req.Set(ErrorKey, boom)
	value, err = ResolveParam(Err(), req)
	require.NoError(t, err)
	assert.Same(t, boom, value)

	assert.True(t, HasErrorBinding([]*Binding{Param("id"), Err()}))
	assert.False(t, HasErrorBinding([]*Binding{Param("id")}))
}

func TestParsedBodyIsCached(t *testing.T) {
	req := newFakeRequest(http.MethodPost, "/")
	req.headers.Set("Content-Type", "application/json")
	req.body = []byte(`{"a": 1}`)

	first, err := ParsedBody(req)
	require.NoError(t, err)
	req.body = []byte(`{"a": 2}`)
	second, err := ParsedBody(req)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	req = newFakeRequest(http.MethodPost, "/")
	req.headers.Set("Content-Type", "application/json")
	req.body = []byte(`{`)
	_, err = ParsedBody(req)
	requireHTTPError(t, err, http.StatusBadRequest, "Body invalid, JSON expected")
}
