package nem

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hookContext(result any, scope *Scope) (*HookContext, *fakeResponse) {
	res := newFakeResponse()
	return &HookContext{
		Context:  context.Background(),
		Request:  newFakeRequest(http.MethodGet, "/"),
		Response: res,
		Scope:    scope,
		Result:   result,
	}, res
}

func TestEndDirectives(t *testing.T) {
	tests := []struct {
		name      string
		directive EndHook
		result    any
		body      string
		errMsg    string
	}{
		{name: "raw string", directive: Raw(), result: "foobar", body: "foobar"},
		{name: "raw bytes", directive: Raw(), result: []byte("bytes"), body: "bytes"},
		{name: "raw reader", directive: Raw(), result: strings.NewReader("reader"), body: "reader"},
		{name: "raw nil", directive: Raw(), result: nil, body: ""},
		{name: "raw object", directive: Raw(), result: map[string]any{}, errMsg: `Invalid return type. Expected "[]byte" or "string", "object" given`},
		{name: "raw number", directive: Raw(), result: 42, errMsg: `Invalid return type. Expected "[]byte" or "string", "number" given`},
		{name: "text", directive: Text(), result: "hello", body: "hello"},
		{name: "text bool", directive: Text(), result: true, errMsg: `Invalid return type. Expected "string", "boolean" given`},
		{name: "json", directive: Json(), result: map[string]int{"a": 1}, body: "{\"a\":1}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc, res := hookContext(tt.result, nil)
			err := tt.directive.End(hc)
			if tt.errMsg != "" {
				require.EqualError(t, err, tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.body, res.body.String())
		})
	}
}

func TestBeforeDirectives(t *testing.T) {
	hc, res := hookContext(nil, nil)
	require.NoError(t, applyBefore([]Directive{
		StatusCode(http.StatusAccepted),
		ContentType("application/xml"),
		Header("X-Foo", "bar"),
		Locals(map[string]any{"title": "Home"}),
	}, hc))

	assert.Equal(t, http.StatusAccepted, res.status)
	assert.Equal(t, "application/xml", res.header.Get("Content-Type"))
	assert.Equal(t, "bar", res.header.Get("X-Foo"))
	assert.Equal(t, "Home", res.locals["title"])
}

func TestAfterDirectives(t *testing.T) {
	var nilMap map[string]any
	custom := ErrForbidden("nope")

	tests := []struct {
		name       string
		directives []Directive
		result     any
		status     int
		err        error
	}{
		{name: "undefined with status", directives: []Directive{OnUndefined(404)}, result: nil, status: http.StatusNotFound},
		{name: "undefined with error", directives: []Directive{OnUndefined(custom)}, result: nil, err: custom},
		{name: "defined", directives: []Directive{OnUndefined(404)}, result: "x"},
		{name: "typed nil is not undefined", directives: []Directive{OnUndefined(404)}, result: nilMap},
		{name: "null", directives: []Directive{OnNull(410)}, result: nilMap, status: http.StatusGone},
		{name: "nil is not null", directives: []Directive{OnNull(410)}, result: nil},
		{name: "bad status argument", directives: []Directive{OnNull("gone")}, result: nilMap, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc, _ := hookContext(tt.result, nil)
			err := applyAfter(tt.directives, hc)
			switch {
			case tt.err != nil:
				assert.ErrorIs(t, err, tt.err)
			case tt.status != 0:
				require.Error(t, err)
				assert.Equal(t, tt.status, AsHTTPError(err).Code)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyEndRunsFirstOnly(t *testing.T) {
	hc, res := hookContext("first", nil)
	require.NoError(t, applyEnd([]Directive{StatusCode(201), Text(), Json()}, hc))
	assert.Equal(t, "first", res.body.String())

	assert.ErrorIs(t, applyEnd([]Directive{StatusCode(201)}, hc), ErrMissingEnd)
	assert.ErrorIs(t, missingEnd{}.End(hc), ErrMissingEnd)
}

func TestRedirect(t *testing.T) {
	assert.Equal(t, http.StatusMovedPermanently, Redirect("/a").Status)
	assert.Equal(t, http.StatusSeeOther, Redirect("/a", http.StatusSeeOther).Status)

	hc, res := hookContext(nil, nil)
	require.NoError(t, Redirect("/b", http.StatusFound).End(hc))
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/b", res.header.Get("Location"))
}

func TestViewNameResolution(t *testing.T) {
	root := NewScope("root", nil, ProvideMulti(BasePaths, "/admin"))
	scope := NewScope("controller", root,
		ProvideMulti(BasePaths, "/admin"),
		ProvideMulti(BasePaths, "/users/"),
		ViewPrefixProvider("pages/"),
	)

	name, err := View("index").resolveName(scope)
	require.NoError(t, err)
	assert.Equal(t, "admin/users/pages/index", name)

	name, err = View("index").resolveName(NewScope("bare", nil))
	require.NoError(t, err)
	assert.Equal(t, "index", name)

	hc, res := hookContext(map[string]any{"user": "worf"}, scope)
	hc.Response.Locals()["title"] = "Users"
	require.NoError(t, View("show").End(hc))
	assert.Equal(t, "admin/users/pages/show", res.body.String())
}

func TestViewData(t *testing.T) {
	locals := map[string]any{"title": "Home", "user": "anonymous"}

	data := viewData(locals, map[string]any{"user": "worf"})
	assert.Equal(t, map[string]any{"title": "Home", "user": "worf"}, data)

	assert.Equal(t, locals, viewData(locals, nil))

	type page struct{ Title string }
	assert.Equal(t, page{Title: "x"}, viewData(locals, page{Title: "x"}))
}

func TestStatusOrError(t *testing.T) {
	boom := errors.New("boom")
	assert.Same(t, boom, statusOrError(boom))
	assert.Equal(t, http.StatusTeapot, AsHTTPError(statusOrError(http.StatusTeapot)).Code)
}
