package nem

import (
	"net/http"
	"reflect"
)

// ControllerOptions configures a controller type
type ControllerOptions struct {
	// Providers are added to the controller scope
	Providers []Provider

	// New builds the controller instance; without it the scope constructs
	// the type, filling `inject` tagged fields
	New func(s *Scope) (any, error)
}

// ControllerAnnotation marks a type as a controller
type ControllerAnnotation struct {
	ControllerOptions
}

// Controller registers T as a controller in the default store
func Controller[T any](opts ...ControllerOptions) reflect.Type {
	t := TypeOf[T]()
	DefaultStore.Controller(t, opts...)
	return t
}

// JSONController registers T as a controller whose routes write JSON unless
// a route directive ends the response another way
func JSONController[T any](opts ...ControllerOptions) reflect.Type {
	t := TypeOf[T]()
	DefaultStore.JSONController(t, opts...)
	return t
}

// Controller registers t as a controller
func (s *Store) Controller(t reflect.Type, opts ...ControllerOptions) {
	var o ControllerOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	s.AttachClass(t, &ControllerAnnotation{ControllerOptions: o})
}

// JSONController registers t as a controller with Json as default end handler
func (s *Store) JSONController(t reflect.Type, opts ...ControllerOptions) {
	var o ControllerOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Providers = append([]Provider{ProvideValue(DefaultEndHandler, Json())}, o.Providers...)
	s.AttachClass(t, &ControllerAnnotation{ControllerOptions: o})
}

// Route declares one verb and path a method serves
type Route struct {
	Verb string
	Path string
}

// Get routes GET requests to the method
func Get(path string) *Route { return &Route{Verb: http.MethodGet, Path: path} }

// Post routes POST requests to the method
func Post(path string) *Route { return &Route{Verb: http.MethodPost, Path: path} }

// Put routes PUT requests to the method
func Put(path string) *Route { return &Route{Verb: http.MethodPut, Path: path} }

// Delete routes DELETE requests to the method
func Delete(path string) *Route { return &Route{Verb: http.MethodDelete, Path: path} }

// Patch routes PATCH requests to the method
func Patch(path string) *Route { return &Route{Verb: http.MethodPatch, Path: path} }

// Options routes OPTIONS requests to the method
func Options(path string) *Route { return &Route{Verb: http.MethodOptions, Path: path} }

// Head routes HEAD requests to the method
func Head(path string) *Route { return &Route{Verb: http.MethodHead, Path: path} }

// All routes every method to the method
func All(path string) *Route { return &Route{Verb: MethodAll, Path: path} }

// Method declares the annotations of a method of T in the default store:
// routes, directives, Use annotations and, in argument order, bindings.
//
//	nem.Method[UserController]("Show",
//		nem.Get("/:id"),
//		nem.OnUndefined(404),
//		nem.Param("id", nem.As("int")),
//	)
func Method[T any](name string, annotations ...any) {
	DefaultStore.Declare(TypeOf[T](), name, annotations...)
}

// Declare attaches annotations to a method of t. Method annotations keep
// the given order; each *Binding takes the next argument position.
func (s *Store) Declare(t reflect.Type, method string, annotations ...any) {
	var methodLevel []any
	index := 0
	for _, a := range annotations {
		if b, ok := a.(*Binding); ok {
			s.AttachParam(t, method, index, b)
			index++
			continue
		}
		methodLevel = append(methodLevel, a)
	}
	for i := len(methodLevel) - 1; i >= 0; i-- {
		s.AttachMethod(t, method, methodLevel[i])
	}
	if len(methodLevel) == 0 && index == 0 {
		s.mu.Lock()
		s.entry(t).touch(method)
		s.mu.Unlock()
	}
}
