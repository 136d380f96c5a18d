package adapters_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/nem/pkg/nem"
	"github.com/toyz/nem/pkg/nem/adapters"
)

type factory struct {
	name string
	new  func() nem.Transport
}

func transports() []factory {
	gin.SetMode(gin.TestMode)
	return []factory{
		{name: "Echo", new: func() nem.Transport { return adapters.NewEchoAdapter(echo.New()) }},
		{name: "Gin", new: func() nem.Transport { return adapters.NewGinAdapter(gin.New()) }},
		{name: "Fiber", new: func() nem.Transport { return adapters.NewFiberAdapter() }},
	}
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type stubViews struct{}

func (stubViews) Render(w io.Writer, name string, data any) error {
	_, err := fmt.Fprintf(w, "%s:%v", name, data)
	return err
}

func TestTransportConformance(t *testing.T) {
	for _, f := range transports() {
		t.Run(f.name, func(t *testing.T) {
			tr := f.new()
			assert.Equal(t, f.name, tr.Name())

			tr.SetErrorHandler(nem.DefaultErrorHandler(true))
			tr.SetRenderer(stubViews{})

			tr.Handle(http.MethodGet, "/users/:id", func(req nem.Request, res nem.Response) error {
				id, _ := req.Param("id")
				q, _ := req.Query("q")
				_, missing := req.Query("missing")
				res.Status(http.StatusCreated)
				res.Header().Set("X-Id", id)
				return res.Send([]byte(fmt.Sprintf("%s:%s:%v:%v", id, q, missing, req.Params())))
			})
			tr.Handle(http.MethodGet, "/files/*path", func(req nem.Request, res nem.Response) error {
				p, _ := req.Param("path")
				return res.Send([]byte(p))
			})
			tr.Handle(http.MethodPost, "/echo", func(req nem.Request, res nem.Response) error {
				raw, err := req.Body()
				if err != nil {
					return err
				}
				var v struct {
					Name string `json:"name"`
				}
				if err := req.Bind(&v); err != nil {
					return err
				}
				again, _ := req.Body()
				req.Set("name", v.Name)
				return res.JSON(map[string]any{
					"raw":     string(raw),
					"same":    string(raw) == string(again),
					"name":    req.Get("name"),
					"header":  req.Headers().Get("X-Trace"),
					"method":  req.Method(),
					"path":    req.Path(),
					"written": res.Written(),
				})
			})
			tr.Handle(http.MethodGet, "/fail", func(nem.Request, nem.Response) error {
				return nem.ErrForbidden("Go away")
			})
			tr.Handle(http.MethodGet, "/page", func(_ nem.Request, res nem.Response) error {
				return res.Render("page", "data")
			})
			tr.Handle(http.MethodGet, "/moved", func(_ nem.Request, res nem.Response) error {
				return res.Redirect(http.StatusFound, "/new")
			})
			tr.Handle(http.MethodGet, "/cookie", func(req nem.Request, res nem.Response) error {
				c, err := req.Cookie("in")
				if err != nil {
					return err
				}
				res.SetCookie(&http.Cookie{Name: "out", Value: c.Value + "!", Path: "/"})
				return res.Send(nil)
			})

			rec := serve(tr, httptest.NewRequest(http.MethodGet, "/users/7?q=search", nil))
			assert.Equal(t, http.StatusCreated, rec.Code)
			assert.Equal(t, "7", rec.Header().Get("X-Id"))
			assert.Equal(t, "7:search:false:map[id:7]", rec.Body.String())

			rec = serve(tr, httptest.NewRequest(http.MethodGet, "/files/a/b.txt", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "a/b.txt", rec.Body.String())

			req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"name":"worf"}`))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Trace", "abc")
			rec = serve(tr, req)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{
				"raw": "{\"name\":\"worf\"}",
				"same": true,
				"name": "worf",
				"header": "abc",
				"method": "POST",
				"path": "/echo",
				"written": false
			}`, rec.Body.String())

			rec = serve(tr, httptest.NewRequest(http.MethodGet, "/fail", nil))
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, "Go away", rec.Body.String())

			rec = serve(tr, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
			assert.Equal(t, http.StatusNotFound, rec.Code)

			rec = serve(tr, httptest.NewRequest(http.MethodGet, "/page", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "page:data", rec.Body.String())

			rec = serve(tr, httptest.NewRequest(http.MethodGet, "/moved", nil))
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/new", rec.Header().Get("Location"))

			req = httptest.NewRequest(http.MethodGet, "/cookie", nil)
			req.AddCookie(&http.Cookie{Name: "in", Value: "hi"})
			rec = serve(tr, req)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Set-Cookie"), "out=hi!")
		})
	}
}

func TestTransportServeAndShutdown(t *testing.T) {
	for _, f := range transports() {
		t.Run(f.name, func(t *testing.T) {
			tr := f.new()
			tr.Handle(http.MethodGet, "/ping", func(_ nem.Request, res nem.Response) error {
				return res.Send([]byte("pong"))
			})

			l, err := net.Listen("tcp", "127.0.0.1:0")
			require.NoError(t, err)

			done := make(chan error, 1)
			go func() { done <- tr.Serve(l) }()

			var resp *http.Response
			require.Eventually(t, func() bool {
				resp, err = http.Get("http://" + l.Addr().String() + "/ping")
				return err == nil
			}, 5*time.Second, 20*time.Millisecond)
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			require.NoError(t, err)
			assert.Equal(t, "pong", string(body))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			require.NoError(t, tr.Shutdown(ctx))

			select {
			case err := <-done:
				if err != nil {
					assert.ErrorIs(t, err, http.ErrServerClosed)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("server did not stop")
			}
		})
	}
}
