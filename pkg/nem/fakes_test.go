package nem

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
)

type fakeRequest struct {
	method  string
	path    string
	params  map[string]string
	query   url.Values
	headers http.Header
	body    []byte

	mu     sync.Mutex
	values map[string]any
}

func newFakeRequest(method, path string) *fakeRequest {
	return &fakeRequest{
		method:  method,
		path:    path,
		params:  map[string]string{},
		query:   url.Values{},
		headers: http.Header{},
		values:  map[string]any{},
	}
}

func (r *fakeRequest) Context() context.Context { return context.Background() }
func (r *fakeRequest) Method() string           { return r.method }
func (r *fakeRequest) Path() string             { return r.path }

func (r *fakeRequest) Param(name string) (string, bool) {
	v, ok := r.params[name]
	return v, ok
}

func (r *fakeRequest) Params() map[string]string { return r.params }

func (r *fakeRequest) Query(name string) (string, bool) {
	if !r.query.Has(name) {
		return "", false
	}
	return r.query.Get(name), true
}

func (r *fakeRequest) QueryParams() url.Values { return r.query }

func (r *fakeRequest) Header(name string) (string, bool) {
	if _, ok := r.headers[http.CanonicalHeaderKey(name)]; !ok {
		return "", false
	}
	return r.headers.Get(name), true
}

func (r *fakeRequest) Headers() http.Header     { return r.headers }
func (r *fakeRequest) Body() ([]byte, error)    { return r.body, nil }
func (r *fakeRequest) Bind(v any) error         { return json.Unmarshal(r.body, v) }
func (r *fakeRequest) Cookie(string) (*http.Cookie, error) { return nil, http.ErrNoCookie }

func (r *fakeRequest) Get(key string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[key]
}

func (r *fakeRequest) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
}

type fakeResponse struct {
	status  int
	header  http.Header
	body    bytes.Buffer
	written bool
	locals  map[string]any
}

func newFakeResponse() *fakeResponse {
	return &fakeResponse{status: http.StatusOK, header: http.Header{}, locals: map[string]any{}}
}

func (r *fakeResponse) Status(code int)                 { r.status = code }
func (r *fakeResponse) StatusCode() int                 { return r.status }
func (r *fakeResponse) Header() http.Header             { return r.header }
func (r *fakeResponse) ContentType(contentType string)  { r.header.Set("Content-Type", contentType) }
func (r *fakeResponse) Locals() map[string]any          { return r.locals }
func (r *fakeResponse) SetCookie(c *http.Cookie)        { r.header.Add("Set-Cookie", c.String()) }
func (r *fakeResponse) Written() bool                   { return r.written }

func (r *fakeResponse) Redirect(code int, url string) error {
	r.status = code
	r.header.Set("Location", url)
	r.written = true
	return nil
}

func (r *fakeResponse) JSON(v any) error {
	r.written = true
	return json.NewEncoder(&r.body).Encode(v)
}

func (r *fakeResponse) Send(b []byte) error {
	r.written = true
	_, err := r.body.Write(b)
	return err
}

func (r *fakeResponse) Render(name string, data any) error {
	r.written = true
	_, err := io.WriteString(&r.body, name)
	return err
}

func (r *fakeResponse) Stream(fn func(w io.Writer, flush func()) error) error {
	r.written = true
	return fn(&r.body, func() {})
}
