package nem

import (
	"reflect"
)

// ModuleOptions declares what a module mounts and provides
type ModuleOptions struct {
	// Imports are nested modules, mounted at a path or onto the module's own router
	Imports []ModuleImport

	// Providers are registered in the root scope, visible to the whole tree
	Providers []Provider

	// ModuleProviders are registered in the module scope
	ModuleProviders []Provider

	// Middlewares run for every request reaching the module's router
	Middlewares []MiddlewareRef

	// Routers are raw sub-routers
	Routers []RouterMount

	// Controllers are compiled and mounted at their path
	Controllers []ControllerMount

	// New builds the module instance once everything is mounted
	New func(s *Scope) (any, error)
}

// ModuleAnnotation marks a type as a module
type ModuleAnnotation struct {
	ModuleOptions
}

// ModuleImport is a nested module declaration. Module holds a module type
// (reflect.Type) or a ModuleWithProviders.
type ModuleImport struct {
	Path   string
	Module any
}

// ModuleWithProviders pairs a module type with providers added to the
// scope of that import only
type ModuleWithProviders struct {
	Module    reflect.Type
	Providers []Provider
}

// RouterMount mounts raw routes at Path
type RouterMount struct {
	Path  string
	Mount func(r *Router)
}

// ControllerMount mounts a controller type at Path
type ControllerMount struct {
	Path string
	Type reflect.Type
}

// Module registers T as a module in the default store
func Module[T any](opts ModuleOptions) reflect.Type {
	t := TypeOf[T]()
	DefaultStore.Module(t, opts)
	return t
}

// Module registers t as a module
func (s *Store) Module(t reflect.Type, opts ModuleOptions) {
	s.AttachClass(t, &ModuleAnnotation{ModuleOptions: opts})
}

// Import mounts module onto the importing module's router, sharing its
// path and middleware
func Import(module any) ModuleImport {
	return ModuleImport{Module: module}
}

// ImportAt mounts module on an isolated sub-router at path
func ImportAt(path string, module any) ModuleImport {
	return ModuleImport{Path: path, Module: module}
}

// WithProviders imports T with extra providers in its scope
//
//	nem.ImportAt("/star-wars", nem.WithProviders[RestModule](
//		nem.ProvideValue(Data, starWars),
//	))
func WithProviders[T any](providers ...Provider) ModuleWithProviders {
	return ModuleWithProviders{Module: TypeOf[T](), Providers: providers}
}

// Mount declares a controller mount
func Mount[T any](path string) ControllerMount {
	return ControllerMount{Path: path, Type: TypeOf[T]()}
}
