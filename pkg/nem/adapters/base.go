package adapters

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/toyz/nem/pkg/nem"
)

// sideChannel holds request values set by nem. Parameters are resolved
// concurrently, so access is locked. Keys not set here fall back to the
// framework's own context store.
type sideChannel struct {
	mu       sync.RWMutex
	values   map[string]any
	fallback func(key string) any
}

func (s *sideChannel) Get(key string) any {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	if ok {
		return v
	}
	if s.fallback != nil {
		return s.fallback(key)
	}
	return nil
}

func (s *sideChannel) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[key] = value
}

// requestBody reads a net/http body once and rewinds it for binders
type requestBody struct {
	once sync.Once
	mu   sync.Mutex
	data []byte
	err  error
}

func (b *requestBody) read(r *http.Request) ([]byte, error) {
	b.once.Do(func() {
		if r.Body == nil || r.Body == http.NoBody {
			return
		}
		b.data, b.err = io.ReadAll(r.Body)
		r.Body.Close()
	})
	return b.data, b.err
}

// bind runs decode against a fresh copy of the body
func (b *requestBody) bind(r *http.Request, decode func() error) error {
	data, err := b.read(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return decode()
}

// responseState is the part of nem.Response every adapter shares
type responseState struct {
	status int
	locals map[string]any
}

func (s *responseState) Status(code int) {
	s.status = code
}

func (s *responseState) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

func (s *responseState) Locals() map[string]any {
	if s.locals == nil {
		s.locals = make(map[string]any)
	}
	return s.locals
}

func firstValue(values url.Values, name string) (string, bool) {
	vs, ok := values[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func headerValue(h http.Header, name string) (string, bool) {
	vs := h.Values(name)
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// wildcardName returns path with its catch-all segment rewritten by format,
// followed by the segment's name ("*" when unnamed, "" without a catch-all)
func wildcardName(path string, format func(name string) string) (string, string) {
	name := ""
	formatted := nem.RoutePath(path).Format(func(n string) string {
		name = n
		if name == "" {
			name = "*"
		}
		return format(name)
	})
	return formatted, name
}

func noop() error { return nil }

// asHTTPError maps a framework error carrying a status into a nem error
func asHTTPError(code int, message any, cause error) *nem.HTTPError {
	return nem.NewHTTPError(code, message, cause)
}

// renderTo renders name into a buffer so that render errors can still be
// reported with a status
func renderTo(engine nem.ViewEngine, name string, data any) ([]byte, error) {
	if engine == nil {
		return nil, nem.ErrInternalServerError("No view engine registered")
	}
	var buf bytes.Buffer
	if err := engine.Render(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
