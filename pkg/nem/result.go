package nem

import (
	"errors"
	"reflect"
)

// ErrInvalidResultArgs is returned by NewResult for arguments that do not
// form a (directives, value) pair
var ErrInvalidResultArgs = errors.New("Invalid arguments")

// Result is the envelope a handler's return value is coerced into: the
// value plus directives applied on top of the method's own.
type Result struct {
	args  []Directive
	value any
}

// NewResult builds an envelope.
//
//	NewResult(directives, value) // directives must all be directives
//	NewResult(directives)        // directives with no value
//	NewResult(value)             // a value with no directives
func NewResult(args ...any) (*Result, error) {
	switch len(args) {
	case 0:
		return &Result{}, nil
	case 1:
		if ds, ok := directiveList(args[0]); ok {
			return &Result{args: ds}, nil
		}
		return &Result{value: args[0]}, nil
	case 2:
		ds, ok := directiveList(args[0])
		if !ok {
			return nil, ErrInvalidResultArgs
		}
		return &Result{args: ds, value: args[1]}, nil
	default:
		return nil, ErrInvalidResultArgs
	}
}

// With builds an envelope from a value and directives
func With(value any, directives ...Directive) *Result {
	if directives == nil {
		directives = []Directive{}
	}
	return &Result{args: directives, value: value}
}

// Ensure returns x if it already is an envelope, otherwise wraps it with
// no directives
func Ensure(x any) *Result {
	if r, ok := x.(*Result); ok && r != nil {
		return r
	}
	return &Result{args: []Directive{}, value: x}
}

// Args returns the envelope directives
func (r *Result) Args() []Directive {
	if r.args == nil {
		return []Directive{}
	}
	return r.args
}

// Value returns the wrapped value
func (r *Result) Value() any {
	return r.value
}

// directiveList reports whether v is a list holding only directives. A
// []Directive is returned as is.
func directiveList(v any) ([]Directive, bool) {
	switch list := v.(type) {
	case []Directive:
		return list, true
	case []any:
		out := make([]Directive, 0, len(list))
		for _, item := range list {
			d, ok := item.(Directive)
			if !ok {
				return nil, false
			}
			out = append(out, d)
		}
		return out, true
	}
	return nil, false
}

// IsUndefined reports a missing value: no return value, or a nil interface
func IsUndefined(v any) bool {
	return v == nil
}

// IsNull reports a typed nil: a nil pointer, map, slice, channel or func
func IsNull(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
