package nem

import (
	"fmt"
	"reflect"
	"runtime"

	nemerrors "github.com/toyz/nem/internal/errors"
)

// Middleware is implemented by class-based middleware resolved from a scope
type Middleware interface {
	Use(req Request, res Response, next Next) error
}

// Placement selects where a Use annotation runs relative to the route handler
type Placement int

const (
	Before Placement = iota
	After
)

func (p Placement) String() string {
	if p == After {
		return "after"
	}
	return "before"
}

// MiddlewareRef names a middleware: a function, an error handler, an
// instance, a type resolved from the scope at compile time, or a group.
type MiddlewareRef struct {
	name     string
	fn       HandlerFunc
	errFn    ErrorHandlerFunc
	instance Middleware
	typ      reflect.Type
	group    []MiddlewareRef
}

// Func references a middleware function
func Func(h HandlerFunc) MiddlewareRef {
	return MiddlewareRef{name: funcName(h), fn: h}
}

// ErrorFunc references an error-consuming middleware function
func ErrorFunc(h ErrorHandlerFunc) MiddlewareRef {
	return MiddlewareRef{name: funcName(h), errFn: h}
}

// Instance references a middleware value
func Instance(m Middleware) MiddlewareRef {
	return MiddlewareRef{name: fmt.Sprintf("%T", m), instance: m}
}

// Ref references class-based middleware T. The instance is taken from the
// scope, or constructed in it when nothing provides T.
func Ref[T any]() MiddlewareRef {
	t := TypeOf[T]()
	return MiddlewareRef{name: t.String(), typ: t}
}

// Group bundles middleware run in order
func Group(refs ...MiddlewareRef) MiddlewareRef {
	return MiddlewareRef{name: "group", group: refs}
}

// Name returns a printable name of the reference
func (r MiddlewareRef) Name() string {
	return r.name
}

// links turns the reference into chain links, resolving class-based
// middleware in scope
func (r MiddlewareRef) links(scope *Scope) ([]Link, error) {
	switch {
	case r.group != nil:
		var out []Link
		for _, ref := range r.group {
			ls, err := ref.links(scope)
			if err != nil {
				return nil, err
			}
			out = append(out, ls...)
		}
		return out, nil
	case r.fn != nil:
		return []Link{handlerLink(r.name, r.fn)}, nil
	case r.errFn != nil:
		return []Link{recoverLink(r.name, r.errFn)}, nil
	case r.instance != nil:
		return []Link{handlerLink(r.name, r.instance.Use)}, nil
	case r.typ != nil:
		var (
			v   any
			err error
		)
		if scope.Has(r.typ) {
			v, err = scope.Get(r.typ)
		} else {
			v, err = scope.Construct(r.typ)
		}
		if err != nil {
			return nil, err
		}
		m, ok := v.(Middleware)
		if !ok {
			return nil, nemerrors.InvalidMiddleware(scope.Name(), v)
		}
		return []Link{handlerLink(r.name, m.Use)}, nil
	}
	return nil, nemerrors.InvalidMiddleware(scope.Name(), r)
}

// toLinks converts a value registered under MiddlewareBefore/After or in a
// module's middleware list into chain links
func toLinks(v any, scope *Scope) ([]Link, error) {
	switch m := v.(type) {
	case MiddlewareRef:
		return m.links(scope)
	case HandlerFunc:
		return []Link{handlerLink(funcName(m), m)}, nil
	case func(Request, Response, Next) error:
		return []Link{handlerLink(funcName(m), m)}, nil
	case ErrorHandlerFunc:
		return []Link{recoverLink(funcName(m), m)}, nil
	case func(error, Request, Response, Next) error:
		return []Link{recoverLink(funcName(m), m)}, nil
	case Middleware:
		return []Link{handlerLink(fmt.Sprintf("%T", m), m.Use)}, nil
	}
	return nil, nemerrors.InvalidMiddleware(scope.Name(), v)
}

// UseAnnotation attaches middleware to a single route method
type UseAnnotation struct {
	Middleware MiddlewareRef
	Placement  Placement
}

// Use attaches middleware to a route method, before the handler unless
// After is given
func Use(ref MiddlewareRef, placement ...Placement) *UseAnnotation {
	u := &UseAnnotation{Middleware: ref, Placement: Before}
	if len(placement) > 0 {
		u.Placement = placement[0]
	}
	return u
}

// MiddlewareProvider registers middleware for every route of the scope's
// controllers. Class-based references are constructed by the scope.
func MiddlewareProvider(ref MiddlewareRef, placement ...Placement) Provider {
	token := MiddlewareBefore
	if len(placement) > 0 && placement[0] == After {
		token = MiddlewareAfter
	}
	if ref.typ != nil {
		return Provider{Token: token, Type: ref.typ, Multi: true}
	}
	return ProvideMulti(token, ref)
}

// ViewDirectory adds a template directory
func ViewDirectory(dir string) Provider {
	return ProvideMulti(Views, dir)
}

// ViewPrefixProvider sets the prefix the View directive adds to template names
func ViewPrefixProvider(prefix string) Provider {
	return ProvideValue(ViewPrefix, prefix)
}

func funcName(fn any) string {
	if fn == nil {
		return "<nil>"
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Sprintf("%T", fn)
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return fmt.Sprintf("%T", fn)
}
