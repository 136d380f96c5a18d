package nem

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	nemerrors "github.com/toyz/nem/internal/errors"
)

// Provider declares how a scope produces the value of a token. Exactly one
// of Value, Factory or Type is used, checked in the order Factory, Type,
// Value. Multi providers accumulate into an ordered list.
type Provider struct {
	Token   any
	Value   any
	Factory func(s *Scope) (any, error)
	Type    reflect.Type
	Multi   bool
}

// ProvideValue binds a fixed value
func ProvideValue(token, value any) Provider {
	return Provider{Token: token, Value: value}
}

// ProvideFactory binds the result of fn, called once on first lookup
func ProvideFactory(token any, fn func(s *Scope) (any, error)) Provider {
	return Provider{Token: token, Factory: fn}
}

// ProvideMulti adds value to the multi-value token
func ProvideMulti(token, value any) Provider {
	return Provider{Token: token, Value: value, Multi: true}
}

// Provide binds T to an instance constructed by the scope
func Provide[T any]() Provider {
	t := TypeOf[T]()
	return Provider{Token: t, Type: t}
}

// ProvideAs binds token to an instance of T constructed by the scope
func ProvideAs[T any](token any) Provider {
	return Provider{Token: token, Type: TypeOf[T]()}
}

type binding struct {
	provider Provider
	owner    *scopeNode

	mu    sync.Mutex
	done  bool
	value any
}

type scopeNode struct {
	name   string
	parent *scopeNode
	single map[any]*binding
	multi  map[any][]*binding
}

// Scope is a node of the injection tree. Lookups walk towards the root;
// the nearest scope binding a token wins. Scopes are read-only once built.
type Scope struct {
	*scopeNode
	path []*binding
}

// NewScope creates a scope below parent (nil for a root) with the given
// providers. A later single-value provider for the same token replaces an
// earlier one.
func NewScope(name string, parent *Scope, providers ...Provider) *Scope {
	node := &scopeNode{
		name:   name,
		single: make(map[any]*binding),
		multi:  make(map[any][]*binding),
	}
	if parent != nil {
		node.parent = parent.scopeNode
	}
	for _, p := range providers {
		key := tokenKey(p.Token)
		b := &binding{provider: p, owner: node}
		if p.Multi {
			node.multi[key] = append(node.multi[key], b)
			continue
		}
		node.single[key] = b
	}
	return &Scope{scopeNode: node}
}

// Name returns the scope name
func (s *Scope) Name() string {
	return s.name
}

// Parent returns the parent scope, or nil for a root
func (s *Scope) Parent() *Scope {
	if s.parent == nil {
		return nil
	}
	return &Scope{scopeNode: s.parent}
}

// Has reports whether the scope or one of its ancestors binds token
func (s *Scope) Has(token any) bool {
	token = tokenKey(token)
	for n := s.scopeNode; n != nil; n = n.parent {
		if _, ok := n.single[token]; ok {
			return true
		}
		if _, ok := n.multi[token]; ok {
			return true
		}
	}
	return false
}

// Get resolves token. Multi-value tokens resolve to a []any holding the
// list of the nearest scope that has one.
func (s *Scope) Get(token any) (any, error) {
	token = tokenKey(token)
	for n := s.scopeNode; n != nil; n = n.parent {
		if b, ok := n.single[token]; ok {
			return b.get(s.path)
		}
		if bs, ok := n.multi[token]; ok {
			return resolveAll(bs, s.path)
		}
	}
	return nil, nemerrors.NoProvider(tokenName(token), s.name)
}

// GetOr resolves token, falling back to def when nothing provides it.
// Construction errors are still returned.
func (s *Scope) GetOr(token, def any) (any, error) {
	if !s.Has(token) {
		return def, nil
	}
	return s.Get(token)
}

// GetAll resolves a multi-value token, returning an empty list when no
// scope provides it. A single-value binding is returned as a one element list.
func (s *Scope) GetAll(token any) ([]any, error) {
	v, err := s.GetOr(token, []any{})
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		return list, nil
	}
	return []any{v}, nil
}

// Resolve resolves token and asserts the result to T
func Resolve[T any](s *Scope, token any) (T, error) {
	var zero T
	v, err := s.Get(token)
	if err != nil {
		return zero, err
	}
	return assertTo[T](token, v)
}

// ResolveOr resolves token, falling back to def when nothing provides it
func ResolveOr[T any](s *Scope, token any, def T) (T, error) {
	if !s.Has(token) {
		return def, nil
	}
	return Resolve[T](s, token)
}

func assertTo[T any](token, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s resolved to %T, not %s", tokenName(token), v, reflect.TypeOf((*T)(nil)).Elem())
	}
	return t, nil
}

// CopyMulti re-materializes the values parent holds for tokens as local
// multi providers, keeping their order.
func CopyMulti(tokens []*Token, parent *Scope) ([]Provider, error) {
	if parent == nil {
		return nil, nil
	}
	var providers []Provider
	for _, token := range tokens {
		values, err := parent.GetAll(token)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			providers = append(providers, ProvideMulti(token, v))
		}
	}
	return providers, nil
}

// Construct builds a new *T-shaped instance of t inside the scope, filling
// exported fields tagged `inject:"..."`. The tag names a token created with
// NewToken; an empty name injects by field type. ",optional" leaves the
// field zero when nothing provides it. A *Scope field receives the scope.
func (s *Scope) Construct(t reflect.Type) (any, error) {
	t = normalizeType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot construct %v: only struct types can be built by a scope", t)
	}
	ptr := reflect.New(t)
	elem := ptr.Elem()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup("inject")
		if !ok {
			continue
		}
		if !field.IsExported() {
			return nil, fmt.Errorf("cannot inject unexported field %s.%s", t.Name(), field.Name)
		}
		if field.Type == reflect.TypeOf(s) {
			elem.Field(i).Set(reflect.ValueOf(&Scope{scopeNode: s.scopeNode}))
			continue
		}
		name, optional := parseInjectTag(tag)
		var token any = normalizeType(field.Type)
		if field.Type.Kind() == reflect.Interface {
			token = field.Type
		}
		if name != "" {
			named, found := LookupToken(name)
			if !found {
				return nil, fmt.Errorf("field %s.%s injects unknown token %q", t.Name(), field.Name, name)
			}
			token = named
		}
		if optional && !s.Has(token) {
			continue
		}
		v, err := s.Get(token)
		if err != nil {
			return nil, err
		}
		if err := assign(elem.Field(i), v); err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.Name(), field.Name, err)
		}
	}
	return ptr.Interface(), nil
}

func parseInjectTag(tag string) (name string, optional bool) {
	parts := strings.Split(tag, ",")
	name = strings.TrimSpace(parts[0])
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "optional" {
			optional = true
		}
	}
	return name, optional
}

// assign stores v in dst, adapting between T and *T where needed
func assign(dst reflect.Value, v any) error {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(dst.Type()):
		dst.Set(rv)
	case rv.Kind() == reflect.Pointer && rv.Elem().Type().AssignableTo(dst.Type()):
		dst.Set(rv.Elem())
	case dst.Kind() == reflect.Slice && rv.Kind() == reflect.Slice:
		out := reflect.MakeSlice(dst.Type(), 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item := reflect.New(dst.Type().Elem()).Elem()
			if err := assign(item, rv.Index(i).Interface()); err != nil {
				return err
			}
			out = reflect.Append(out, item)
		}
		dst.Set(out)
	default:
		return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
	}
	return nil
}

func (b *binding) get(path []*binding) (any, error) {
	for _, p := range path {
		if p == b {
			return nil, nemerrors.Newf(nemerrors.DependencyErrorCode, "circular dependency on %s", tokenName(b.provider.Token))
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return b.value, nil
	}

	view := &Scope{scopeNode: b.owner, path: append(path[:len(path):len(path)], b)}
	p := b.provider
	var (
		value any
		err   error
	)
	switch {
	case p.Factory != nil:
		value, err = p.Factory(view)
	case p.Type != nil:
		value, err = view.Construct(p.Type)
	default:
		value = p.Value
	}
	if err != nil {
		return nil, nemerrors.ConstructionFailed(tokenName(p.Token), err)
	}
	b.value, b.done = value, true
	return value, nil
}

func resolveAll(bs []*binding, path []*binding) ([]any, error) {
	out := make([]any, 0, len(bs))
	for _, b := range bs {
		v, err := b.get(path)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// tokenKey normalizes pointer types so *T and T name the same binding
func tokenKey(token any) any {
	if t, ok := token.(reflect.Type); ok && t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		return t.Elem()
	}
	return token
}

func tokenName(token any) string {
	switch t := token.(type) {
	case *Token:
		return t.String()
	case reflect.Type:
		return t.String()
	case string:
		return t
	default:
		return fmt.Sprintf("%v", token)
	}
}
