package nem

import (
	"log/slog"
	"reflect"

	nemerrors "github.com/toyz/nem/internal/errors"
)

// ModuleContext is a compiled module
type ModuleContext struct {
	Type        reflect.Type
	Annotation  *ModuleAnnotation
	Scope       *Scope
	Instance    any
	Router      *Router
	Imports     []*ModuleContext
	Controllers []*ControllerContext
}

// ModuleCompiler mounts a module tree onto a router
type ModuleCompiler struct {
	store  *Store
	logger *slog.Logger
}

// NewModuleCompiler creates a module compiler reading annotations from store
func NewModuleCompiler(store *Store, logger *slog.Logger) *ModuleCompiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModuleCompiler{store: store, logger: logger}
}

// Compile builds the scope of module t below parent and mounts its imports,
// middleware, raw routers and controllers on router, in that order. The
// module itself is instantiated last.
func (c *ModuleCompiler) Compile(t reflect.Type, parent *Scope, router *Router, extra ...Provider) (*ModuleContext, error) {
	t = normalizeType(t)
	c.logger.Debug("create router from module", "module", t.String(), "path", router.Prefix())

	ann, err := moduleAnnotation(c.store, t)
	if err != nil {
		return nil, err
	}

	copied, err := CopyMulti(MultiTokensFromParent, parent)
	if err != nil {
		return nil, err
	}
	providers := append(copied, extra...)
	providers = append(providers, ann.ModuleProviders...)
	providers = append(providers, ProvideValue(RouterToken, router))
	if ann.New != nil {
		providers = append(providers, ProvideFactory(t, ann.New))
	} else {
		providers = append(providers, Provider{Token: t, Type: t})
	}

	mc := &ModuleContext{
		Type:       t,
		Annotation: ann,
		Scope:      NewScope("Module("+t.Name()+")", parent, providers...),
		Router:     router,
	}

	for _, imp := range ann.Imports {
		child, err := c.compileImport(mc, imp)
		if err != nil {
			return nil, err
		}
		mc.Imports = append(mc.Imports, child)
	}

	for _, ref := range ann.Middlewares {
		links, err := ref.links(mc.Scope)
		if err != nil {
			return nil, err
		}
		router.use(links...)
	}

	for _, mount := range ann.Routers {
		if mount.Mount == nil {
			continue
		}
		c.logger.Debug("mount router", "module", t.String(), "path", mount.Path)
		mount.Mount(router.Group(mount.Path))
	}

	controllers := NewControllerCompiler(c.store, mc.Scope, c.logger)
	for _, mount := range ann.Controllers {
		cc, err := controllers.Compile(mount.Type, router.Group(mount.Path), ProvideMulti(BasePaths, mount.Path))
		if err != nil {
			return nil, err
		}
		mc.Controllers = append(mc.Controllers, cc)
	}

	if err := addViewDirectories(mc.Scope); err != nil {
		return nil, err
	}

	if mc.Instance, err = mc.Scope.Get(t); err != nil {
		return nil, err
	}
	return mc, nil
}

func (c *ModuleCompiler) compileImport(mc *ModuleContext, imp ModuleImport) (*ModuleContext, error) {
	mod, err := importedModule(mc.Type, imp.Module)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("handle import", "module", mod.Module.String(), "path", imp.Path)

	if imp.Path == "" {
		return c.Compile(mod.Module, mc.Scope, mc.Router, mod.Providers...)
	}
	extra := append(append([]Provider(nil), mod.Providers...), ProvideMulti(BasePaths, imp.Path))
	return c.Compile(mod.Module, mc.Scope, mc.Router.Group(imp.Path), extra...)
}

// importedModule normalizes an import declaration. Values that are neither
// a type nor a ModuleWithProviders are taken as their own dynamic type.
func importedModule(owner reflect.Type, v any) (ModuleWithProviders, error) {
	switch m := v.(type) {
	case nil:
		return ModuleWithProviders{}, nemerrors.InvalidImport(owner.Name(), v)
	case reflect.Type:
		return ModuleWithProviders{Module: normalizeType(m)}, nil
	case ModuleWithProviders:
		if m.Module == nil {
			return ModuleWithProviders{}, nemerrors.InvalidImport(owner.Name(), v)
		}
		m.Module = normalizeType(m.Module)
		return m, nil
	case *ModuleWithProviders:
		if m == nil {
			return ModuleWithProviders{}, nemerrors.InvalidImport(owner.Name(), v)
		}
		return importedModule(owner, *m)
	}
	return ModuleWithProviders{Module: normalizeType(reflect.TypeOf(v))}, nil
}

func moduleAnnotation(store *Store, t reflect.Type) (*ModuleAnnotation, error) {
	anns := classOf[*ModuleAnnotation](store, t)
	switch len(anns) {
	case 0:
		return nil, nemerrors.MissingAnnotation("module", t.Name())
	case 1:
		return anns[0], nil
	default:
		return nil, nemerrors.DuplicateAnnotation("module", t.Name(), len(anns))
	}
}

// CollectRootProviders walks the import tree depth-first and returns the
// root providers of every module, imports ahead of the importing module
func CollectRootProviders(store *Store, t reflect.Type) ([]Provider, error) {
	t = normalizeType(t)
	ann, err := moduleAnnotation(store, t)
	if err != nil {
		return nil, err
	}
	var out []Provider
	for _, imp := range ann.Imports {
		mod, err := importedModule(t, imp.Module)
		if err != nil {
			return nil, err
		}
		nested, err := CollectRootProviders(store, mod.Module)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return append(out, ann.Providers...), nil
}

type directoryAdder interface {
	AddDirectory(dir string)
}

// addViewDirectories hands template directories visible in scope to the
// view engine
func addViewDirectories(scope *Scope) error {
	engine, err := scope.GetOr(ViewEngineToken, nil)
	if err != nil {
		return err
	}
	adder, ok := engine.(directoryAdder)
	if !ok {
		return nil
	}
	dirs, err := scope.GetAll(Views)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if dir, ok := d.(string); ok {
			adder.AddDirectory(dir)
		}
	}
	return nil
}
