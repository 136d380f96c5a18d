package annotations

import (
	"fmt"
	"sort"
	"sync"

	nemerrors "github.com/toyz/nem/internal/errors"
)

// Registry keeps decorator schemas by name
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]Schema
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]Schema)}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the registry holding the builtin schemas
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		for _, s := range BuiltinSchemas() {
			if err := defaultRegistry.Register(s); err != nil {
				panic(err)
			}
		}
	})
	return defaultRegistry
}

// Register adds a schema
func (r *Registry) Register(schema Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if schema.Name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}
	if _, exists := r.schemas[schema.Name]; exists {
		return fmt.Errorf("decorator @%s is already registered", schema.Name)
	}
	for _, name := range schema.Positional {
		if _, ok := schema.Parameters[name]; !ok {
			return fmt.Errorf("positional parameter %s of @%s has no spec", name, schema.Name)
		}
	}
	for name, spec := range schema.Parameters {
		if spec.DefaultValue == nil {
			continue
		}
		if _, err := convert(spec.DefaultValue, spec.Type); err != nil {
			return fmt.Errorf("default value of %s in @%s: %w", name, schema.Name, err)
		}
	}
	r.schemas[schema.Name] = schema
	return nil
}

// Schema returns the schema registered under name
func (r *Registry) Schema(name string) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}

// Names returns the registered decorator names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve checks d against its schema and returns its typed parameters
func (r *Registry) Resolve(owner string, d *Decorator) (*Annotation, error) {
	loc := nemerrors.SourceLocation{Source: owner, Line: d.Pos.Line, Column: d.Pos.Column}
	schema, ok := r.Schema(d.Name)
	if !ok {
		return nil, nemerrors.Newf(nemerrors.AnnotationErrorCode, "unknown decorator @%s", d.Name).
			WithLocation(loc).
			WithSuggestion(fmt.Sprintf("known decorators: %v", r.Names()))
	}

	a := &Annotation{Name: d.Name, Parameters: make(map[string]any), Location: loc}
	position := 0
	for _, arg := range d.Args {
		argLoc := nemerrors.SourceLocation{Source: owner, Line: arg.Pos.Line, Column: arg.Pos.Column}
		name := arg.Key
		if name == "" {
			if position >= len(schema.Positional) {
				return nil, nemerrors.Newf(nemerrors.AnnotationErrorCode,
					"@%s takes at most %d positional arguments", d.Name, len(schema.Positional)).WithLocation(argLoc)
			}
			name = schema.Positional[position]
			position++
		}
		spec, ok := schema.Parameters[name]
		if !ok {
			return nil, nemerrors.Newf(nemerrors.AnnotationErrorCode, "@%s has no parameter %s", d.Name, name).WithLocation(argLoc)
		}
		if _, dup := a.Parameters[name]; dup {
			return nil, nemerrors.Newf(nemerrors.AnnotationErrorCode, "parameter %s of @%s given twice", name, d.Name).WithLocation(argLoc)
		}
		value, err := convert(arg.Value.Interface(), spec.Type)
		if err != nil {
			return nil, nemerrors.Wrapf(nemerrors.AnnotationErrorCode, err, "parameter %s of @%s", name, d.Name).WithLocation(argLoc)
		}
		if spec.Validator != nil {
			if err := spec.Validator(value); err != nil {
				return nil, nemerrors.Wrapf(nemerrors.AnnotationErrorCode, err, "parameter %s of @%s", name, d.Name).WithLocation(argLoc)
			}
		}
		a.Parameters[name] = value
	}

	for name, spec := range schema.Parameters {
		if _, ok := a.Parameters[name]; ok {
			continue
		}
		if spec.Required {
			return nil, nemerrors.Newf(nemerrors.AnnotationErrorCode, "@%s requires parameter %s", d.Name, name).WithLocation(loc)
		}
		if spec.DefaultValue != nil {
			a.Parameters[name], _ = convert(spec.DefaultValue, spec.Type)
		}
	}
	return a, nil
}

func convert(v any, t ParameterType) (any, error) {
	switch t {
	case StringType:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case IntType:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		}
	case FloatType:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		case int:
			return float64(n), nil
		}
	case BoolType:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case AnyType:
		switch n := v.(type) {
		case string:
			return n, nil
		case int64:
			return int(n), nil
		case int:
			return n, nil
		}
	}
	return nil, fmt.Errorf("expected %s, got %T", t, v)
}
