package annotations

import (
	"fmt"

	nemerrors "github.com/toyz/nem/internal/errors"
)

// ParameterType represents the type of a decorator parameter
type ParameterType int

const (
	StringType ParameterType = iota
	IntType
	FloatType
	BoolType
	// AnyType accepts a string or an integer, as OnUndefined(404) and
	// OnUndefined("missing") do
	AnyType
)

// String returns the string representation of the parameter type
func (p ParameterType) String() string {
	switch p {
	case StringType:
		return "string"
	case IntType:
		return "integer"
	case FloatType:
		return "float"
	case BoolType:
		return "boolean"
	case AnyType:
		return "any"
	default:
		return "unknown"
	}
}

// ParameterSpec defines one parameter of a decorator
type ParameterSpec struct {
	Type         ParameterType
	Required     bool
	DefaultValue any
	Description  string
	Validator    func(any) error
}

// Schema defines the parameters a decorator accepts. Positional lists the
// parameter names positional arguments fill, in order.
type Schema struct {
	Name        string
	Description string
	Positional  []string
	Parameters  map[string]ParameterSpec
	Examples    []string
}

// Annotation is a decorator resolved against its schema
type Annotation struct {
	Name       string
	Parameters map[string]any
	Location   nemerrors.SourceLocation
}

// Has reports whether the parameter was given or defaulted
func (a *Annotation) Has(name string) bool {
	_, ok := a.Parameters[name]
	return ok
}

// GetString returns a string parameter value with optional default
func (a *Annotation) GetString(name string, defaultValue ...string) string {
	if v, ok := a.Parameters[name].(string); ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

// GetInt returns an integer parameter value with optional default
func (a *Annotation) GetInt(name string, defaultValue ...int) int {
	if v, ok := a.Parameters[name].(int); ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return 0
}

// GetFloat returns a float parameter value with optional default
func (a *Annotation) GetFloat(name string, defaultValue ...float64) float64 {
	if v, ok := a.Parameters[name].(float64); ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return 0
}

// GetBool returns a boolean parameter value with optional default
func (a *Annotation) GetBool(name string, defaultValue ...bool) bool {
	if v, ok := a.Parameters[name].(bool); ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return false
}

// Get returns the raw parameter value
func (a *Annotation) Get(name string) any {
	return a.Parameters[name]
}

func (a *Annotation) String() string {
	return fmt.Sprintf("@%s%v", a.Name, a.Parameters)
}
