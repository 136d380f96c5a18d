package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/nem/pkg/nem"
	"github.com/toyz/nem/pkg/nem/adapters"
	"github.com/toyz/nem/pkg/nem/metrics"
)

func instrumented(m *metrics.Metrics, route string, h nem.HandlerFunc) http.Handler {
	mw := m.Middleware()
	tr := adapters.NewEchoAdapter(echo.New())
	tr.SetErrorHandler(nem.DefaultErrorHandler(true))
	tr.Handle(http.MethodGet, route, func(req nem.Request, res nem.Response) error {
		req.Set(nem.RouteKey, route)
		return mw(req, res, func() error { return h(req, res, nil) })
	})
	return tr
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m, err := metrics.New(metrics.Options{Namespace: "test", Registry: prometheus.NewRegistry()})
	require.NoError(t, err)

	h := instrumented(m, "/users/:id", func(req nem.Request, res nem.Response, _ nem.Next) error {
		if id, _ := req.Param("id"); id == "0" {
			return nem.ErrNotFound()
		}
		return res.Send([]byte("ok"))
	})

	for _, path := range []string{"/users/1", "/users/2", "/users/0"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	series, err := testutil.GatherAndCount(m.Registry(), "test_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)

	families, err := m.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "test_http_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			assert.Equal(t, "GET", labels["method"])
			assert.Equal(t, "/users/:id", labels["route"])
			counts[labels["status"]] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"200": 2, "404": 1}, counts)
}

func TestHandlerExposesTextFormat(t *testing.T) {
	m, err := metrics.New(metrics.Options{})
	require.NoError(t, err)

	h := instrumented(m, "/ping", func(_ nem.Request, res nem.Response, _ nem.Next) error {
		return res.Send([]byte("pong"))
	})
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	tr := adapters.NewEchoAdapter(echo.New())
	handler := m.Handler()
	tr.Handle(http.MethodGet, "/metrics", func(req nem.Request, res nem.Response) error {
		return handler(req, res, nil)
	})

	rec := httptest.NewRecorder()
	tr.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), `nem_http_requests_total{method="GET",route="/ping",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNewRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.New(metrics.Options{Registry: reg})
	require.NoError(t, err)

	_, err = metrics.New(metrics.Options{Registry: reg})
	assert.Error(t, err)
}
