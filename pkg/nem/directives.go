package nem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"reflect"
	"strings"
)

// Directive shapes the response of a route. A directive implements any of
// BeforeHook, AfterHook and EndHook; embed DirectiveBase to declare one.
type Directive interface {
	isDirective()
}

// DirectiveBase marks a type as a Directive
type DirectiveBase struct{}

func (DirectiveBase) isDirective() {}

// HookContext is what directive hooks receive
type HookContext struct {
	Context    context.Context
	Request    Request
	Response   Response
	Scope      *Scope
	Controller *ControllerContext
	// Result is the handler's value; unset during Before
	Result any
}

// BeforeHook runs before parameters are resolved
type BeforeHook interface {
	Directive
	Before(hc *HookContext) error
}

// AfterHook runs after the handler returned, given its value
type AfterHook interface {
	Directive
	After(hc *HookContext) error
}

// EndHook writes the response. Only the first End of a route runs.
type EndHook interface {
	Directive
	End(hc *HookContext) error
}

// ErrMissingEnd is raised when no directive of a route implements End and
// the scope provides no default end handler
var ErrMissingEnd = errors.New("Missing end annotation")

type missingEnd struct{ DirectiveBase }

func (missingEnd) End(*HookContext) error { return ErrMissingEnd }

// ContentTypeDirective sets the Content-Type header before the handler runs
type ContentTypeDirective struct {
	DirectiveBase
	Type string
}

// ContentType sets the response content type
func ContentType(contentType string) *ContentTypeDirective {
	return &ContentTypeDirective{Type: contentType}
}

func (d *ContentTypeDirective) Before(hc *HookContext) error {
	hc.Response.ContentType(d.Type)
	return nil
}

// StatusCodeDirective sets the response status before the handler runs
type StatusCodeDirective struct {
	DirectiveBase
	Code int
}

// StatusCode sets the response status code
func StatusCode(code int) *StatusCodeDirective {
	return &StatusCodeDirective{Code: code}
}

func (d *StatusCodeDirective) Before(hc *HookContext) error {
	hc.Response.Status(d.Code)
	return nil
}

// HeaderDirective sets a response header before the handler runs
type HeaderDirective struct {
	DirectiveBase
	Name  string
	Value string
}

// Header sets a response header
func Header(name, value string) *HeaderDirective {
	return &HeaderDirective{Name: name, Value: value}
}

func (d *HeaderDirective) Before(hc *HookContext) error {
	hc.Response.Header().Set(d.Name, d.Value)
	return nil
}

// LocalsDirective merges values into the response locals
type LocalsDirective struct {
	DirectiveBase
	Values map[string]any
}

// Locals merges values into the response locals seen by views
func Locals(values map[string]any) *LocalsDirective {
	return &LocalsDirective{Values: values}
}

func (d *LocalsDirective) Before(hc *HookContext) error {
	locals := hc.Response.Locals()
	for k, v := range d.Values {
		locals[k] = v
	}
	return nil
}

// RedirectDirective ends the request with a redirect
type RedirectDirective struct {
	DirectiveBase
	URL    string
	Status int
}

// Redirect redirects to url. The status defaults to 301.
func Redirect(url string, status ...int) *RedirectDirective {
	d := &RedirectDirective{URL: url, Status: http.StatusMovedPermanently}
	if len(status) > 0 && status[0] != 0 {
		d.Status = status[0]
	}
	return d
}

func (d *RedirectDirective) End(hc *HookContext) error {
	return hc.Response.Redirect(d.Status, d.URL)
}

// ViewDirective renders a template with the handler's value
type ViewDirective struct {
	DirectiveBase
	Name string
}

// View renders the named template. The name is prefixed with the scope's
// ViewPrefix and the accumulated BasePaths.
func View(name string) *ViewDirective {
	return &ViewDirective{Name: name}
}

func (d *ViewDirective) End(hc *HookContext) error {
	name, err := d.resolveName(hc.Scope)
	if err != nil {
		return err
	}
	return hc.Response.Render(name, viewData(hc.Response.Locals(), hc.Result))
}

func (d *ViewDirective) resolveName(scope *Scope) (string, error) {
	if scope == nil {
		return d.Name, nil
	}
	prefix, err := ResolveOr(scope, ViewPrefix, "")
	if err != nil {
		return "", err
	}
	bases, err := scope.GetAll(BasePaths)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(bases)+1)
	for _, b := range bases {
		if s, ok := b.(string); ok {
			parts = append(parts, s)
		}
	}
	parts = append(parts, prefix+d.Name)
	return strings.TrimPrefix(path.Join(parts...), "/"), nil
}

func viewData(locals map[string]any, result any) any {
	values, ok := result.(map[string]any)
	if !ok && result != nil {
		return result
	}
	data := make(map[string]any, len(locals)+len(values))
	for k, v := range locals {
		data[k] = v
	}
	for k, v := range values {
		data[k] = v
	}
	return data
}

// JSONDirective serializes the handler's value as JSON
type JSONDirective struct {
	DirectiveBase
}

// Json writes the handler's value as application/json
func Json() *JSONDirective {
	return &JSONDirective{}
}

func (d *JSONDirective) End(hc *HookContext) error {
	hc.Response.ContentType("application/json")
	return hc.Response.JSON(hc.Result)
}

// RawDirective writes the handler's value unmodified
type RawDirective struct {
	DirectiveBase
}

// Raw writes the literal bytes the handler returned
func Raw() *RawDirective {
	return &RawDirective{}
}

func (d *RawDirective) End(hc *HookContext) error {
	switch v := hc.Result.(type) {
	case nil:
		return hc.Response.Send(nil)
	case []byte:
		return hc.Response.Send(v)
	case string:
		return hc.Response.Send([]byte(v))
	case io.Reader:
		b, err := io.ReadAll(v)
		if err != nil {
			return err
		}
		return hc.Response.Send(b)
	default:
		return fmt.Errorf("Invalid return type. Expected \"[]byte\" or \"string\", %q given", kindName(v))
	}
}

// TextDirective writes a string result as text/plain
type TextDirective struct {
	DirectiveBase
}

// Text writes the handler's string value
func Text() *TextDirective {
	return &TextDirective{}
}

func (d *TextDirective) End(hc *HookContext) error {
	s, ok := hc.Result.(string)
	if !ok {
		return fmt.Errorf("Invalid return type. Expected \"string\", %q given", kindName(hc.Result))
	}
	if hc.Response.Header().Get("Content-Type") == "" {
		hc.Response.ContentType("text/plain; charset=utf-8")
	}
	return hc.Response.Send([]byte(s))
}

// OnUndefinedDirective fails the request when the handler returned no value
type OnUndefinedDirective struct {
	DirectiveBase
	StatusOrError any
}

// OnUndefined fails with the given status code or error when the handler
// returns no value
func OnUndefined(statusOrError any) *OnUndefinedDirective {
	return &OnUndefinedDirective{StatusOrError: statusOrError}
}

func (d *OnUndefinedDirective) After(hc *HookContext) error {
	if IsUndefined(hc.Result) {
		return statusOrError(d.StatusOrError)
	}
	return nil
}

// OnNullDirective fails the request when the handler returned a nil pointer,
// map, slice, channel or func
type OnNullDirective struct {
	DirectiveBase
	StatusOrError any
}

// OnNull fails with the given status code or error when the handler returns
// a typed nil
func OnNull(statusOrError any) *OnNullDirective {
	return &OnNullDirective{StatusOrError: statusOrError}
}

func (d *OnNullDirective) After(hc *HookContext) error {
	if IsNull(hc.Result) {
		return statusOrError(d.StatusOrError)
	}
	return nil
}

func statusOrError(v any) error {
	switch s := v.(type) {
	case error:
		return s
	case int:
		return NewHTTPError(s)
	default:
		return ErrInternalServerError(fmt.Sprintf("invalid status or error %v", v))
	}
}

// kindName names the kind of v the way error messages report it
func kindName(v any) string {
	if v == nil {
		return "undefined"
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Func:
		return "function"
	default:
		return "object"
	}
}
