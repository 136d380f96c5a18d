package nem

import (
	"net/http"
	"sort"
	"strings"
	"sync"
)

// MethodAll registers a route for every standard HTTP method
const MethodAll = "ALL"

var allMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodPatch,
	http.MethodOptions,
	http.MethodHead,
}

// RouteInfo contains metadata about a registered route
type RouteInfo struct {
	// Method is the HTTP method (GET, POST, ...)
	Method string

	// Path is the full path including every mount prefix
	Path string

	// Controller is the controller type owning the route, empty for raw routes
	Controller string

	// Handler is the controller method or handler function name
	Handler string

	// Middlewares names the chain entries ahead of the handler
	Middlewares []string
}

type routeTable struct {
	mu        sync.RWMutex
	transport Transport
	routes    []RouteInfo
	onError   func(err error, req Request, res Response) error
}

func (t *routeTable) add(info RouteInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes = append(t.routes, info)
}

func (t *routeTable) all() []RouteInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := append([]RouteInfo(nil), t.routes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (t *routeTable) setOnError(fn func(err error, req Request, res Response) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onError = fn
}

func (t *routeTable) fail(err error, req Request, res Response) error {
	t.mu.RLock()
	onError := t.onError
	t.mu.RUnlock()
	if onError == nil {
		return err
	}
	return onError(err, req, res)
}

// Router mounts handler chains on the transport under a path prefix.
// Middleware added with Use applies to routes registered afterwards on the
// router and its groups, matching the order requests walk a mounted router.
type Router struct {
	prefix string
	parent *Router
	mark   int
	links  []Link
	table  *routeTable
}

func newRouter(table *routeTable) *Router {
	return &Router{prefix: "/", table: table}
}

// Use appends middleware to the router
func (r *Router) Use(handlers ...HandlerFunc) {
	for _, h := range handlers {
		r.links = append(r.links, handlerLink(funcName(h), h))
	}
}

// UseError appends error-consuming middleware to the router
func (r *Router) UseError(handlers ...ErrorHandlerFunc) {
	for _, h := range handlers {
		r.links = append(r.links, recoverLink(funcName(h), h))
	}
}

func (r *Router) use(links ...Link) {
	r.links = append(r.links, links...)
}

// Group creates a sub-router mounted at prefix
func (r *Router) Group(prefix string) *Router {
	return &Router{
		prefix: prefix,
		parent: r,
		mark:   len(r.links),
		table:  r.table,
	}
}

// Prefix returns the full mount path of the router
func (r *Router) Prefix() string {
	var parts []string
	for n := r; n != nil; n = n.parent {
		parts = append([]string{n.prefix}, parts...)
	}
	return JoinPaths(parts...)
}

// Routes returns every route registered on the application
func (r *Router) Routes() []RouteInfo {
	return r.table.all()
}

// Handle registers a chain of handlers for method and path
func (r *Router) Handle(method, path string, handlers ...HandlerFunc) {
	links := make([]Link, len(handlers))
	names := make([]string, len(handlers))
	for i, h := range handlers {
		names[i] = funcName(h)
		links[i] = handlerLink(names[i], h)
	}
	handler := ""
	if len(names) > 0 {
		handler = names[len(names)-1]
	}
	r.register(method, path, links, RouteInfo{Handler: handler})
}

// Get registers a GET route
func (r *Router) Get(path string, handlers ...HandlerFunc) {
	r.Handle(http.MethodGet, path, handlers...)
}

// Post registers a POST route
func (r *Router) Post(path string, handlers ...HandlerFunc) {
	r.Handle(http.MethodPost, path, handlers...)
}

// Put registers a PUT route
func (r *Router) Put(path string, handlers ...HandlerFunc) {
	r.Handle(http.MethodPut, path, handlers...)
}

// Delete registers a DELETE route
func (r *Router) Delete(path string, handlers ...HandlerFunc) {
	r.Handle(http.MethodDelete, path, handlers...)
}

// Patch registers a PATCH route
func (r *Router) Patch(path string, handlers ...HandlerFunc) {
	r.Handle(http.MethodPatch, path, handlers...)
}

// register mounts route behind the middleware registered so far on this
// router and, up to each group's creation, on its ancestors
func (r *Router) register(method, path string, route []Link, info RouteInfo) {
	full := JoinPaths(r.Prefix(), path)

	c := append(r.middlewareSnapshot(), route...)
	info.Path = full
	for _, l := range c[:len(c)-len(route)] {
		info.Middlewares = append(info.Middlewares, l.Name)
	}

	dispatch := r.dispatcher(full, c)
	methods := []string{strings.ToUpper(method)}
	if methods[0] == MethodAll {
		methods = allMethods
	}
	for _, m := range methods {
		r.table.transport.Handle(m, full, dispatch)
		info.Method = m
		r.table.add(info)
	}
}

func (r *Router) middlewareSnapshot() chain {
	var segments [][]Link
	limit := len(r.links)
	for n := r; n != nil; n = n.parent {
		segments = append(segments, n.links[:limit])
		limit = n.mark
	}
	var out chain
	for i := len(segments) - 1; i >= 0; i-- {
		out = append(out, segments[i]...)
	}
	return out
}

func (r *Router) dispatcher(route string, c chain) TransportHandler {
	table := r.table
	return func(req Request, res Response) error {
		req.Set(RouteKey, route)
		if err := c.run(req, res); err != nil {
			return table.fail(err, req, res)
		}
		return nil
	}
}
