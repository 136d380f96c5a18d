package nem

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// DefaultShutdownTimeout bounds the graceful shutdown performed by Run
const DefaultShutdownTimeout = 30 * time.Second

// BootstrapOptions configures the bootstrap scope
type BootstrapOptions struct {
	// Providers are registered in the bootstrap scope, e.g. ViewDirectory
	Providers []Provider

	// Store holds the annotations; DefaultStore when nil
	Store *Store

	// Logger is used by the compilers and the application; slog.Default() when nil
	Logger *slog.Logger

	// Env is the environment name. "production" hides error causes.
	Env string
}

// MountListener runs before or after the root module is mounted. Register
// listeners with ProvideMulti(BeforeMount, ...) or ProvideMulti(AfterMount, ...).
type MountListener func(app *App) error

// Nem bootstraps modules onto a transport
type Nem struct {
	store  *Store
	logger *slog.Logger
	scope  *Scope
}

// New creates the bootstrap scope
func New(opts ...BootstrapOptions) *Nem {
	var o BootstrapOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Store == nil {
		o.Store = DefaultStore
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	providers := []Provider{
		ProvideValue(Env, o.Env),
		ProvideValue(LoggerToken, o.Logger),
		ProvideFactory(ErrorHandler, func(s *Scope) (any, error) {
			env, err := ResolveOr(s, Env, "")
			if err != nil {
				return nil, err
			}
			return DefaultErrorHandler(env == "production"), nil
		}),
		ProvideFactory(ViewEngineToken, func(s *Scope) (any, error) {
			dirs, err := s.GetAll(Views)
			if err != nil {
				return nil, err
			}
			views, err := NewHTMLViews(DefaultViewCacheSize)
			if err != nil {
				return nil, err
			}
			for _, d := range dirs {
				if dir, ok := d.(string); ok {
					views.AddDirectory(dir)
				}
			}
			return views, nil
		}),
		ProvideMulti(BeforeMount, MountListener(installRenderer)),
		ProvideMulti(AfterMount, MountListener(installErrorHandler)),
	}
	providers = append(providers, o.Providers...)

	return &Nem{
		store:  o.Store,
		logger: o.Logger,
		scope:  NewScope("Bootstrap", nil, providers...),
	}
}

// Scope returns the bootstrap scope
func (n *Nem) Scope() *Scope {
	return n.scope
}

// Bootstrap compiles the module tree of root onto transport
func (n *Nem) Bootstrap(root reflect.Type, transport Transport) (*App, error) {
	rootProviders, err := CollectRootProviders(n.store, root)
	if err != nil {
		return nil, err
	}
	copied, err := CopyMulti(append([]*Token{BeforeMount, AfterMount}, MultiTokensFromParent...), n.scope)
	if err != nil {
		return nil, err
	}
	providers := append(copied, ProvideValue(TransportToken, transport))
	providers = append(providers, rootProviders...)

	table := &routeTable{transport: transport}
	app := &App{
		transport: transport,
		scope:     NewScope("Root", n.scope, providers...),
		router:    newRouter(table),
		table:     table,
		logger:    n.logger,
	}

	if err := app.runListeners(BeforeMount); err != nil {
		return nil, err
	}

	n.logger.Debug("bootstrap", "module", root.String(), "transport", transport.Name())
	app.module, err = NewModuleCompiler(n.store, n.logger).Compile(root, app.scope, app.router)
	if err != nil {
		return nil, err
	}

	if err := app.runListeners(AfterMount); err != nil {
		return nil, err
	}
	return app, nil
}

// App is a bootstrapped application
type App struct {
	transport Transport
	scope     *Scope
	router    *Router
	table     *routeTable
	module    *ModuleContext
	logger    *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	done     chan error
}

// Scope returns the root scope, holding the transport and root providers
func (a *App) Scope() *Scope {
	return a.scope
}

// Module returns the compiled root module
func (a *App) Module() *ModuleContext {
	return a.module
}

// Transport returns the transport the application is mounted on
func (a *App) Transport() Transport {
	return a.transport
}

// Routes returns the route table sorted by path
func (a *App) Routes() []RouteInfo {
	return a.table.all()
}

// ServeHTTP serves a request without a listener
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.transport.ServeHTTP(w, r)
}

// Listen binds host:port and serves in the background. Bind errors are
// returned; serve errors are reported by Wait.
func (a *App) Listen(port int, host ...string) error {
	h := ""
	if len(host) > 0 {
		h = host[0]
	}
	l, err := net.Listen("tcp", net.JoinHostPort(h, strconv.Itoa(port)))
	if err != nil {
		return err
	}

	a.mu.Lock()
	if a.listener != nil {
		a.mu.Unlock()
		l.Close()
		return fmt.Errorf("application already listening on %s", a.listener.Addr())
	}
	a.listener = l
	a.done = make(chan error, 1)
	done := a.done
	a.mu.Unlock()

	a.logger.Info("listening", "addr", l.Addr().String(), "transport", a.transport.Name())
	go func() {
		err := a.transport.Serve(l)
		if stderrors.Is(err, http.ErrServerClosed) || stderrors.Is(err, net.ErrClosed) {
			err = nil
		}
		done <- err
	}()
	return nil
}

// Addr returns the bound address, nil before Listen
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Wait blocks until the server stops
func (a *App) Wait() error {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done == nil {
		return nil
	}
	return <-done
}

// Shutdown stops the server gracefully
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")
	return a.transport.Shutdown(ctx)
}

// Run listens and blocks until SIGINT or SIGTERM, then shuts down
func (a *App) Run(port int, host ...string) error {
	if err := a.Listen(port, host...); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	serveErr := make(chan error, 1)
	go func() { serveErr <- a.Wait() }()

	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info("server shutdown complete")
	return nil
}

func (a *App) runListeners(token *Token) error {
	listeners, err := a.scope.GetAll(token)
	if err != nil {
		return err
	}
	for _, l := range listeners {
		var fn MountListener
		switch v := l.(type) {
		case MountListener:
			fn = v
		case func(*App) error:
			fn = v
		default:
			return fmt.Errorf("%s listener has type %T, want nem.MountListener", token, l)
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

func installRenderer(app *App) error {
	engine, err := app.scope.GetOr(ViewEngineToken, nil)
	if err != nil {
		return err
	}
	if v, ok := engine.(ViewEngine); ok {
		app.transport.SetRenderer(v)
	}
	return nil
}

func installErrorHandler(app *App) error {
	v, err := app.scope.GetOr(ErrorHandler, nil)
	if err != nil {
		return err
	}
	var handler ErrorHandlerFunc
	switch h := v.(type) {
	case nil:
		return nil
	case ErrorHandlerFunc:
		handler = h
	case func(error, Request, Response, Next) error:
		handler = h
	default:
		return fmt.Errorf("error handler has type %T, want nem.ErrorHandlerFunc", v)
	}

	logger := app.logger
	app.transport.SetErrorHandler(handler)
	app.table.setOnError(func(err error, req Request, res Response) error {
		if status := errorStatus(err); status >= http.StatusInternalServerError {
			logger.Error("request failed", "method", req.Method(), "path", req.Path(), "status", status, "error", err)
		}
		return handler(err, req, res, func() error { return nil })
	})
	return nil
}
