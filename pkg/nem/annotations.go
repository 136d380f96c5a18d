package nem

import (
	"reflect"
	"sync"
)

// Store keeps class, method and parameter annotations per concrete type.
// Pointer types are normalized to their element type, so *UserController
// and UserController share one entry.
type Store struct {
	mu    sync.RWMutex
	types map[reflect.Type]*typeAnnotations
}

type typeAnnotations struct {
	class   []any
	methods map[string][]any
	order   []string
	params  map[string][][]any
}

// NewStore creates an empty annotation store
func NewStore() *Store {
	return &Store{types: make(map[reflect.Type]*typeAnnotations)}
}

// DefaultStore backs the package-level registration helpers
var DefaultStore = NewStore()

// TypeOf returns the normalized type key for T
func TypeOf[T any]() reflect.Type {
	return normalizeType(reflect.TypeOf((*T)(nil)).Elem())
}

func normalizeType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func (s *Store) entry(t reflect.Type) *typeAnnotations {
	t = normalizeType(t)
	ta, ok := s.types[t]
	if !ok {
		ta = &typeAnnotations{
			methods: make(map[string][]any),
			params:  make(map[string][][]any),
		}
		s.types[t] = ta
	}
	return ta
}

func (ta *typeAnnotations) touch(method string) {
	if _, ok := ta.methods[method]; ok {
		return
	}
	ta.methods[method] = nil
	ta.order = append(ta.order, method)
}

// AttachClass appends a class-level annotation
func (s *Store) AttachClass(t reflect.Type, annotation any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ta := s.entry(t)
	ta.class = append(ta.class, annotation)
}

// AttachMethod places annotation before the ones already attached to the
// method. Stacked decorators apply bottom-up, so attaching a stack in
// application order yields the source order on query.
func (s *Store) AttachMethod(t reflect.Type, method string, annotation any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ta := s.entry(t)
	ta.touch(method)
	ta.methods[method] = append([]any{annotation}, ta.methods[method]...)
}

// AttachParam attaches an annotation to the parameter at index. An empty
// method name targets the constructor.
func (s *Store) AttachParam(t reflect.Type, method string, index int, annotation any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ta := s.entry(t)
	if method != "" {
		ta.touch(method)
	}
	params := ta.params[method]
	for len(params) <= index {
		params = append(params, nil)
	}
	params[index] = append(params[index], annotation)
	ta.params[method] = params
}

// Class returns the class-level annotations in attachment order
func (s *Store) Class(t reflect.Type) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ta, ok := s.types[normalizeType(t)]
	if !ok {
		return nil
	}
	return append([]any(nil), ta.class...)
}

// Method returns the annotations of one method
func (s *Store) Method(t reflect.Type, method string) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ta, ok := s.types[normalizeType(t)]
	if !ok {
		return nil
	}
	return append([]any(nil), ta.methods[method]...)
}

// Methods returns the annotated method names in the order they were first seen
func (s *Store) Methods(t reflect.Type) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ta, ok := s.types[normalizeType(t)]
	if !ok {
		return nil
	}
	return append([]string(nil), ta.order...)
}

// Params returns the parameter annotations of a method, indexed by position.
// Positions without annotations hold a nil slice.
func (s *Store) Params(t reflect.Type, method string) [][]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ta, ok := s.types[normalizeType(t)]
	if !ok {
		return nil
	}
	params := ta.params[method]
	out := make([][]any, len(params))
	for i, p := range params {
		out[i] = append([]any(nil), p...)
	}
	return out
}

// classOf returns the class annotations of t assignable to A
func classOf[A any](s *Store, t reflect.Type) []A {
	var out []A
	for _, a := range s.Class(t) {
		if v, ok := a.(A); ok {
			out = append(out, v)
		}
	}
	return out
}
