package nem

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	nemerrors "github.com/toyz/nem/internal/errors"
)

const tracerName = "github.com/toyz/nem"

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// ControllerContext is a compiled controller
type ControllerContext struct {
	Type       reflect.Type
	Annotation *ControllerAnnotation
	Scope      *Scope
	Instance   any
	Router     *Router
	Methods    []*MethodContext
}

// MethodContext is a compiled route method
type MethodContext struct {
	Name       string
	Routes     []*Route
	Directives []Directive
	Uses       []*UseAnnotation
	Bindings   []*Binding

	fn       reflect.Value
	wantsCtx bool
	args     []reflect.Type
}

// ControllerCompiler turns annotated controller types into routes
type ControllerCompiler struct {
	store  *Store
	parent *Scope
	logger *slog.Logger
	tracer trace.Tracer
}

// NewControllerCompiler creates a compiler building controller scopes below parent
func NewControllerCompiler(store *Store, parent *Scope, logger *slog.Logger) *ControllerCompiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControllerCompiler{
		store:  store,
		parent: parent,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Compile builds the controller scope and instance, then registers one
// route per route annotation on router
func (c *ControllerCompiler) Compile(t reflect.Type, router *Router, extra ...Provider) (*ControllerContext, error) {
	t = normalizeType(t)
	c.logger.Debug("create router from controller", "controller", t.String(), "path", router.Prefix())

	ann, err := c.controllerAnnotation(t)
	if err != nil {
		return nil, err
	}

	copied, err := CopyMulti(MultiTokensFromParent, c.parent)
	if err != nil {
		return nil, err
	}
	providers := append(copied, extra...)
	providers = append(providers, ann.Providers...)
	if ann.New != nil {
		providers = append(providers, ProvideFactory(t, ann.New))
	} else {
		providers = append(providers, Provider{Token: t, Type: t})
	}

	cc := &ControllerContext{
		Type:       t,
		Annotation: ann,
		Scope:      NewScope("Controller("+t.Name()+")", c.parent, providers...),
		Router:     router,
	}
	if cc.Instance, err = cc.Scope.Get(t); err != nil {
		return nil, err
	}

	for _, name := range c.store.Methods(t) {
		m, err := c.compileMethod(cc, name)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		links, err := c.handlerChain(cc, m)
		if err != nil {
			return nil, err
		}
		for _, route := range m.Routes {
			router.register(route.Verb, route.Path, links, RouteInfo{
				Controller: t.Name(),
				Handler:    name,
			})
		}
		cc.Methods = append(cc.Methods, m)
	}
	return cc, nil
}

func (c *ControllerCompiler) controllerAnnotation(t reflect.Type) (*ControllerAnnotation, error) {
	anns := classOf[*ControllerAnnotation](c.store, t)
	switch len(anns) {
	case 0:
		return nil, nemerrors.MissingAnnotation("controller", t.Name())
	case 1:
		return anns[0], nil
	default:
		return nil, nemerrors.DuplicateAnnotation("controller", t.Name(), len(anns))
	}
}

// compileMethod sorts the annotations of a method. Methods without routes
// return nil.
func (c *ControllerCompiler) compileMethod(cc *ControllerContext, name string) (*MethodContext, error) {
	m := &MethodContext{Name: name}
	for _, a := range c.store.Method(cc.Type, name) {
		switch v := a.(type) {
		case *Route:
			m.Routes = append(m.Routes, v)
		case *UseAnnotation:
			m.Uses = append(m.Uses, v)
		case Directive:
			m.Directives = append(m.Directives, v)
		}
	}
	if len(m.Routes) == 0 {
		return nil, nil
	}

	m.fn = reflect.ValueOf(cc.Instance).MethodByName(name)
	if !m.fn.IsValid() {
		return nil, nemerrors.UnknownMethod(cc.Type.Name(), name)
	}
	ft := m.fn.Type()
	first := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		m.wantsCtx = true
		first = 1
	}
	for i := first; i < ft.NumIn(); i++ {
		m.args = append(m.args, ft.In(i))
	}
	if ft.NumOut() > 2 || ft.NumOut() == 2 && ft.Out(1) != errorType {
		return nil, &nemerrors.ConfigurationError{
			BaseError: nemerrors.Newf(nemerrors.AnnotationErrorCode,
				"Method %s:%s must return at most a value and an error", cc.Type.Name(), name),
			TypeName: cc.Type.Name(),
			Method:   name,
			Index:    -1,
		}
	}

	bindings, err := c.bindings(cc.Type, name, len(m.args))
	if err != nil {
		return nil, err
	}
	m.Bindings = bindings
	return m, nil
}

// bindings checks that every argument position carries exactly one binding
func (c *ControllerCompiler) bindings(t reflect.Type, method string, arity int) ([]*Binding, error) {
	params := c.store.Params(t, method)
	n := arity
	if len(params) > n {
		n = len(params)
	}
	out := make([]*Binding, 0, arity)
	for i := 0; i < n; i++ {
		var found []*Binding
		if i < len(params) {
			for _, a := range params[i] {
				if b, ok := a.(*Binding); ok {
					found = append(found, b)
				}
			}
		}
		switch {
		case i >= arity && len(found) > 0:
			return nil, nemerrors.TooManyParamBindings(t.Name(), method, i)
		case i >= arity:
			continue
		case len(found) == 0:
			return nil, nemerrors.MissingParamBinding(t.Name(), method, i)
		case len(found) > 1:
			return nil, nemerrors.TooManyParamBindings(t.Name(), method, i)
		}
		out = append(out, found[0])
	}
	return out, nil
}

// handlerChain assembles: scope stamp, global before, method before,
// error entry (with an Err binding), handler, method after, global after
func (c *ControllerCompiler) handlerChain(cc *ControllerContext, m *MethodContext) ([]Link, error) {
	scope := cc.Scope
	links := []Link{handlerLink("nem.stamp", func(req Request, res Response, next Next) error {
		req.Set(ScopeKey, scope)
		req.Set(ResponseKey, res)
		return next()
	})}

	global := func(token *Token) ([]Link, error) {
		values, err := scope.GetAll(token)
		if err != nil {
			return nil, err
		}
		var out []Link
		for _, v := range values {
			ls, err := toLinks(v, scope)
			if err != nil {
				return nil, err
			}
			out = append(out, ls...)
		}
		return out, nil
	}
	uses := func(placement Placement) ([]Link, error) {
		var out []Link
		for _, u := range m.Uses {
			if u.Placement != placement {
				continue
			}
			ls, err := u.Middleware.links(scope)
			if err != nil {
				return nil, err
			}
			out = append(out, ls...)
		}
		return out, nil
	}

	before, err := global(MiddlewareBefore)
	if err != nil {
		return nil, err
	}
	methodBefore, err := uses(Before)
	if err != nil {
		return nil, err
	}
	methodAfter, err := uses(After)
	if err != nil {
		return nil, err
	}
	after, err := global(MiddlewareAfter)
	if err != nil {
		return nil, err
	}

	main := c.mainHandler(cc, m)
	name := cc.Type.Name() + "." + m.Name

	links = append(links, before...)
	links = append(links, methodBefore...)
	entry := handlerLink(name, main)
	if HasErrorBinding(m.Bindings) {
		// a pending error re-enters main through the same link, so the
		// chain continues after it exactly once
		entry.Recover = func(err error, req Request, res Response, next Next) error {
			req.Set(ErrorKey, err)
			return main(req, res, next)
		}
	}
	links = append(links, entry)
	links = append(links, methodAfter...)
	links = append(links, after...)
	return links, nil
}

// mainHandler runs the directive protocol around the method call. On
// success the chain continues so that after middleware runs.
func (c *ControllerCompiler) mainHandler(cc *ControllerContext, m *MethodContext) HandlerFunc {
	return func(req Request, res Response, next Next) error {
		if err := c.handle(cc, m, req, res); err != nil {
			return err
		}
		return next()
	}
}

func (c *ControllerCompiler) handle(cc *ControllerContext, m *MethodContext, req Request, res Response) (err error) {
	spanCtx, span := c.tracer.Start(req.Context(), cc.Type.Name()+"."+m.Name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method()),
			attribute.String("url.path", req.Path()),
		))
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic in %s.%s: %v", cc.Type.Name(), m.Name, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx := withRequest(spanCtx, req, res, cc.Scope)
	hc := &HookContext{Context: ctx, Request: req, Response: res, Scope: cc.Scope, Controller: cc}

	if err := applyBefore(m.Directives, hc); err != nil {
		return err
	}

	args, err := ResolveParams(ctx, m.Bindings, req)
	if err != nil {
		return err
	}

	value, err := m.call(ctx, args)
	if err != nil {
		return err
	}

	result := Ensure(value)
	if err := applyBefore(result.Args(), hc); err != nil {
		return err
	}

	directives := make([]Directive, 0, len(m.Directives)+len(result.Args())+1)
	directives = append(directives, m.Directives...)
	directives = append(directives, result.Args()...)

	hc.Result = result.Value()
	if err := applyAfter(directives, hc); err != nil {
		return err
	}

	fallback, err := cc.Scope.GetOr(DefaultEndHandler, nil)
	if err != nil {
		return err
	}
	end, ok := fallback.(Directive)
	if !ok {
		end = missingEnd{}
	}
	return applyEnd(append(directives, end), hc)
}

func (m *MethodContext) call(ctx context.Context, args []any) (any, error) {
	in := make([]reflect.Value, 0, len(args)+1)
	if m.wantsCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, a := range args {
		v, err := argValue(a, m.args[i])
		if err != nil {
			return nil, fmt.Errorf("param %d of method %s: %w", i, m.Name, err)
		}
		in = append(in, v)
	}

	out := m.fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errorType {
			err, _ := out[0].Interface().(error)
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		err, _ := out[1].Interface().(error)
		if err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}
}

// argValue adapts a resolved value to the declared argument type
func argValue(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(a)
	switch {
	case rv.Type().AssignableTo(t):
		return rv, nil
	case rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Type().AssignableTo(t):
		return rv.Elem(), nil
	case t.Kind() == reflect.Pointer && rv.Type().AssignableTo(t.Elem()):
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(rv)
		return ptr, nil
	case isNumeric(rv.Kind()) && isNumeric(t.Kind()),
		rv.Kind() == reflect.String && t.Kind() == reflect.String:
		return rv.Convert(t), nil
	case IsNull(a):
		return reflect.Zero(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s value as %s", rv.Type(), t)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func applyBefore(ds []Directive, hc *HookContext) error {
	for _, d := range ds {
		if h, ok := d.(BeforeHook); ok {
			if err := h.Before(hc); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyAfter(ds []Directive, hc *HookContext) error {
	for _, d := range ds {
		if h, ok := d.(AfterHook); ok {
			if err := h.After(hc); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyEnd runs the first End hook only
func applyEnd(ds []Directive, hc *HookContext) error {
	for _, d := range ds {
		if h, ok := d.(EndHook); ok {
			return h.End(hc)
		}
	}
	return ErrMissingEnd
}
