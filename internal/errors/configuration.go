package errors

import "fmt"

// ConfigurationError is raised while compiling modules and controllers.
// Any of these stops bootstrap.
type ConfigurationError struct {
	*BaseError
	TypeName string
	Method   string
	Index    int
}

// MissingAnnotation reports a type without its controller or module annotation
func MissingAnnotation(kind, typeName string) *ConfigurationError {
	return &ConfigurationError{
		BaseError: New(AnnotationErrorCode, fmt.Sprintf("Class %q has no %s annotation", typeName, kind)).
			WithContext("kind", kind).
			WithSuggestion(fmt.Sprintf("register %s with nem.%s before bootstrapping", typeName, suggestRegistrar(kind))),
		TypeName: typeName,
		Index:    -1,
	}
}

// DuplicateAnnotation reports a type registered twice as controller or module
func DuplicateAnnotation(kind, typeName string, count int) *ConfigurationError {
	return &ConfigurationError{
		BaseError: Newf(AnnotationErrorCode, "Class %q has %d %s annotations, expected exactly one", typeName, count, kind).
			WithContext("kind", kind),
		TypeName: typeName,
		Index:    -1,
	}
}

// MissingParamBinding reports a method parameter without a binding annotation
func MissingParamBinding(typeName, method string, index int) *ConfigurationError {
	return &ConfigurationError{
		BaseError: Newf(BindingErrorCode, "Missing param annotation for param %d of method %s:%s", index, typeName, method).
			WithSuggestion("every method parameter after an optional context.Context needs exactly one binding"),
		TypeName: typeName,
		Method:   method,
		Index:    index,
	}
}

// TooManyParamBindings reports a method parameter carrying more than one binding
func TooManyParamBindings(typeName, method string, index int) *ConfigurationError {
	return &ConfigurationError{
		BaseError: Newf(BindingErrorCode, "Too many param annotations for param %d of method %s:%s", index, typeName, method),
		TypeName:  typeName,
		Method:    method,
		Index:     index,
	}
}

// UnknownMethod reports annotations attached to a method the type does not have
func UnknownMethod(typeName, method string) *ConfigurationError {
	return &ConfigurationError{
		BaseError: Newf(AnnotationErrorCode, "Method %s:%s is annotated but does not exist", typeName, method).
			WithSuggestion("annotated methods must be exported and defined on the pointer receiver or the value"),
		TypeName: typeName,
		Method:   method,
		Index:    -1,
	}
}

// InvalidImport reports an import declaration that cannot name a module
func InvalidImport(owner string, value interface{}) *ConfigurationError {
	return &ConfigurationError{
		BaseError: Newf(ImportErrorCode, "Invalid module import %T in %s", value, owner),
		TypeName:  owner,
		Index:     -1,
	}
}

// InvalidMiddleware reports a middleware reference that cannot be turned into a handler
func InvalidMiddleware(owner string, value interface{}) *ConfigurationError {
	return &ConfigurationError{
		BaseError: Newf(ConfigurationErrorCode, "Invalid middleware %T in %s", value, owner).
			WithSuggestion("use nem.Func, nem.ErrorFunc, nem.Ref or a value implementing nem.Middleware"),
		TypeName: owner,
		Index:    -1,
	}
}

// NoProvider reports a token that no scope in the chain provides
func NoProvider(token, scope string) *BaseError {
	return Newf(DependencyErrorCode, "No provider for %s in scope %q", token, scope).
		WithContext("token", token).
		WithContext("scope", scope)
}

// ConstructionFailed wraps an error returned while building a provider value
func ConstructionFailed(token string, cause error) *BaseError {
	return Wrapf(DependencyErrorCode, cause, "failed to construct %s", token).
		WithContext("token", token)
}

func suggestRegistrar(kind string) string {
	switch kind {
	case "module":
		return "Module"
	case "middleware":
		return "Middleware"
	default:
		return "Controller"
	}
}
