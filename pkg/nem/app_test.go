package nem_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/toyz/nem/pkg/nem"
	"github.com/toyz/nem/pkg/nem/adapters"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bootstrap(t *testing.T, store *nem.Store, root reflect.Type, opts ...nem.BootstrapOptions) *nem.App {
	t.Helper()
	app, err := bootstrapErr(store, root, opts...)
	require.NoError(t, err)
	return app
}

func bootstrapErr(store *nem.Store, root reflect.Type, opts ...nem.BootstrapOptions) (*nem.App, error) {
	var o nem.BootstrapOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Store = store
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
	return nem.New(o).Bootstrap(root, adapters.NewEchoAdapter(echo.New()))
}

func do(app http.Handler, method, path string, body ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if len(body) > 0 {
		r = strings.NewReader(body[0])
	}
	req := httptest.NewRequest(method, path, r)
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

// mountOne declares a root module mounting controller c at path
func mountOne(store *nem.Store, root reflect.Type, path string, c reflect.Type) {
	store.Module(root, nem.ModuleOptions{
		Controllers: []nem.ControllerMount{{Path: path, Type: c}},
	})
}
