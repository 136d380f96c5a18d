package nem

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ParamKind names a binding kind in error messages
type ParamKind string

const (
	KindQueryParam   ParamKind = "QueryParam"
	KindQueryParams  ParamKind = "QueryParams"
	KindParam        ParamKind = "Param"
	KindParams       ParamKind = "Params"
	KindBodyParam    ParamKind = "BodyParam"
	KindBody         ParamKind = "Body"
	KindHeaderParam  ParamKind = "HeaderParam"
	KindHeaders      ParamKind = "Headers"
	KindSessionParam ParamKind = "SessionParam"
	KindSession      ParamKind = "Session"
	KindSessionID    ParamKind = "SessionId"
	KindReq          ParamKind = "Req"
	KindRes          ParamKind = "Res"
	KindErr          ParamKind = "Err"
)

// Binding declares where one method argument comes from
type Binding struct {
	Kind     ParamKind
	Name     string
	Type     string
	Required bool

	Resolver  func(b *Binding, req Request) (any, error)
	Parser    func(value any, b *Binding, req Request) (any, error)
	Validator func(value any, b *Binding, req Request) bool
}

// BindingOption customizes a binding
type BindingOption func(*Binding)

// Required fails the request with 400 when the value is missing
func Required() BindingOption {
	return func(b *Binding) { b.Required = true }
}

// Optional lets the value be missing
func Optional() BindingOption {
	return func(b *Binding) { b.Required = false }
}

// As sets the semantic type the value is coerced to ("int", "float",
// "bool", "uuid", "string" or an alias)
func As(typeName string) BindingOption {
	return func(b *Binding) {
		b.Type = typeName
		if b.Parser == nil {
			b.Parser = ParseByType
		}
	}
}

// ParseWith replaces the parser
func ParseWith(fn func(value any, b *Binding, req Request) (any, error)) BindingOption {
	return func(b *Binding) { b.Parser = fn }
}

// ValidateWith sets a validator; returning false fails with 400
func ValidateWith(fn func(value any, b *Binding, req Request) bool) BindingOption {
	return func(b *Binding) { b.Validator = fn }
}

func named(kind ParamKind, name string, required bool, resolver func(*Binding, Request) (any, error), opts []BindingOption) *Binding {
	b := &Binding{
		Kind:     kind,
		Name:     name,
		Type:     "string",
		Required: required,
		Resolver: resolver,
		Parser:   ParseByType,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func whole(kind ParamKind, resolver func(*Binding, Request) (any, error), opts []BindingOption) *Binding {
	b := &Binding{Kind: kind, Resolver: resolver}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// QueryParam binds a query string value. Optional by default.
func QueryParam(name string, opts ...BindingOption) *Binding {
	return named(KindQueryParam, name, false, func(b *Binding, req Request) (any, error) {
		if v, ok := req.Query(b.Name); ok {
			return v, nil
		}
		return nil, nil
	}, opts)
}

// QueryParams binds all query values as url.Values
func QueryParams(opts ...BindingOption) *Binding {
	return whole(KindQueryParams, func(_ *Binding, req Request) (any, error) {
		return req.QueryParams(), nil
	}, opts)
}

// Param binds a path parameter. Required by default.
func Param(name string, opts ...BindingOption) *Binding {
	return named(KindParam, name, true, func(b *Binding, req Request) (any, error) {
		if v, ok := req.Param(b.Name); ok {
			return v, nil
		}
		return nil, nil
	}, opts)
}

// Params binds all path parameters as map[string]string
func Params(opts ...BindingOption) *Binding {
	return whole(KindParams, func(_ *Binding, req Request) (any, error) {
		return req.Params(), nil
	}, opts)
}

// BodyParam binds a field of the parsed body. Optional by default.
func BodyParam(name string, opts ...BindingOption) *Binding {
	return named(KindBodyParam, name, false, func(b *Binding, req Request) (any, error) {
		body, err := ParsedBody(req)
		if err != nil {
			return nil, err
		}
		fields, ok := body.(map[string]any)
		if !ok {
			return nil, nil
		}
		return fields[b.Name], nil
	}, opts)
}

// Body binds the parsed body: a map for JSON objects and forms
func Body(opts ...BindingOption) *Binding {
	return whole(KindBody, func(_ *Binding, req Request) (any, error) {
		return ParsedBody(req)
	}, opts)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// BodyAs binds the body into a new T using the transport binder and
// validates it with `validate:"..."` struct tags
func BodyAs[T any](opts ...BindingOption) *Binding {
	b := whole(KindBody, func(_ *Binding, req Request) (any, error) {
		v := new(T)
		if err := req.Bind(v); err != nil {
			return nil, ErrBadRequest(`Body "" invalid`, err)
		}
		return v, nil
	}, nil)
	b.Required = true
	b.Type = TypeOf[T]().String()
	b.Parser = func(value any, b *Binding, _ Request) (any, error) {
		if err := structValidator().Struct(value); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return nil, ErrBadRequest(fmt.Sprintf("%s invalid, field %q failed on %q", b.Kind, verrs[0].Field(), verrs[0].Tag()), err)
			}
			return nil, ErrBadRequest(fmt.Sprintf("%s invalid", b.Kind), err)
		}
		return value, nil
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HeaderParam binds a request header. Optional by default.
func HeaderParam(name string, opts ...BindingOption) *Binding {
	return named(KindHeaderParam, name, false, func(b *Binding, req Request) (any, error) {
		if v, ok := req.Header(b.Name); ok {
			return v, nil
		}
		return nil, nil
	}, opts)
}

// Headers binds all request headers as http.Header
func Headers(opts ...BindingOption) *Binding {
	return whole(KindHeaders, func(_ *Binding, req Request) (any, error) {
		return req.Headers(), nil
	}, opts)
}

// SessionParam binds a session value. Optional by default.
func SessionParam(name string, opts ...BindingOption) *Binding {
	return named(KindSessionParam, name, false, func(b *Binding, req Request) (any, error) {
		sess, ok := SessionOf(req)
		if !ok {
			return nil, nil
		}
		v, _ := sess.Get(b.Name)
		return v, nil
	}, opts)
}

// Session binds the session attached by session middleware
func Session(opts ...BindingOption) *Binding {
	return whole(KindSession, func(_ *Binding, req Request) (any, error) {
		if sess, ok := SessionOf(req); ok {
			return sess, nil
		}
		return nil, nil
	}, opts)
}

// SessionId binds the session identifier
func SessionId(opts ...BindingOption) *Binding {
	return whole(KindSessionID, func(_ *Binding, req Request) (any, error) {
		if sess, ok := SessionOf(req); ok {
			return sess.ID(), nil
		}
		return nil, nil
	}, opts)
}

// Req binds the Request
func Req() *Binding {
	return whole(KindReq, func(_ *Binding, req Request) (any, error) {
		return req, nil
	}, nil)
}

// Res binds the Response
func Res() *Binding {
	return whole(KindRes, func(_ *Binding, req Request) (any, error) {
		return ResponseOf(req), nil
	}, nil)
}

// Err binds the error raised earlier in the chain. A method with an Err
// binding also runs when a preceding middleware failed.
func Err() *Binding {
	return whole(KindErr, func(_ *Binding, req Request) (any, error) {
		err, _ := req.Get(ErrorKey).(error)
		return err, nil
	}, nil)
}

// ParseByType coerces value to the binding's semantic type. nil values are
// returned untouched.
func ParseByType(value any, b *Binding, _ Request) (any, error) {
	if value == nil || IsNull(value) {
		return value, nil
	}
	typeName := ResolveTypeAlias(b.Type)
	parser, ok := BuiltinParsers[typeName]
	if !ok {
		return value, nil
	}
	parsed, err := parser(value)
	if err != nil {
		return nil, ErrBadRequest(fmt.Sprintf("%s %q invalid, %s expected", b.Kind, b.Name, expectations[typeName]), err)
	}
	return parsed, nil
}
