// Package session provides cookie identified sessions kept in memory.
//
//	nem.Module[App](nem.ModuleOptions{
//		Middlewares: []nem.MiddlewareRef{session.Ref(session.Options{})},
//	})
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/toyz/nem/pkg/nem"
)

const (
	// DefaultCookieName is the cookie carrying the session id
	DefaultCookieName = "nem.sid"
	// DefaultSize is the number of sessions a MemoryStore keeps
	DefaultSize = 4096
)

// Session is a set of values shared by the requests of one client
type Session struct {
	id      string
	created time.Time

	mu     sync.RWMutex
	values map[string]any
}

// New creates an empty session with a random id
func New() *Session {
	return &Session{
		id:      uuid.NewString(),
		created: time.Now(),
		values:  make(map[string]any),
	}
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// Created returns when the session was started
func (s *Session) Created() time.Time {
	return s.created
}

// Get returns the value stored under key
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes key
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Store keeps sessions by id
type Store interface {
	Load(id string) (*Session, bool)
	Save(s *Session)
	Remove(id string)
}

// MemoryStore keeps the most recently used sessions in memory
type MemoryStore struct {
	cache *lru.Cache[string, *Session]
}

// NewMemoryStore creates a store holding up to size sessions
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, *Session](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: cache}, nil
}

func (m *MemoryStore) Load(id string) (*Session, bool) { return m.cache.Get(id) }
func (m *MemoryStore) Save(s *Session)                { m.cache.Add(s.id, s) }
func (m *MemoryStore) Remove(id string)               { m.cache.Remove(id) }

// Len returns the number of stored sessions
func (m *MemoryStore) Len() int { return m.cache.Len() }

// Options configures the session middleware
type Options struct {
	// Store defaults to a MemoryStore of DefaultSize
	Store Store

	// CookieName defaults to DefaultCookieName
	CookieName string

	// Path defaults to "/"
	Path string

	// MaxAge of the cookie; zero makes it a browser session cookie
	MaxAge time.Duration

	Secure   bool
	SameSite http.SameSite
}

// Middleware loads the session named by the request cookie, or starts one,
// and attaches it to the request for the Session bindings
func Middleware(opts Options) (nem.HandlerFunc, error) {
	if opts.Store == nil {
		store, err := NewMemoryStore(DefaultSize)
		if err != nil {
			return nil, err
		}
		opts.Store = store
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.SameSite == 0 {
		opts.SameSite = http.SameSiteLaxMode
	}

	return func(req nem.Request, res nem.Response, next nem.Next) error {
		var sess *Session
		if c, err := req.Cookie(opts.CookieName); err == nil {
			sess, _ = opts.Store.Load(c.Value)
		}
		if sess == nil {
			sess = New()
			opts.Store.Save(sess)
			res.SetCookie(&http.Cookie{
				Name:     opts.CookieName,
				Value:    sess.id,
				Path:     opts.Path,
				MaxAge:   int(opts.MaxAge / time.Second),
				Secure:   opts.Secure,
				HttpOnly: true,
				SameSite: opts.SameSite,
			})
		}
		req.Set(nem.SessionKey, sess)
		return next()
	}, nil
}

// Ref returns the middleware as a module middleware reference. It panics
// when the store cannot be created.
func Ref(opts Options) nem.MiddlewareRef {
	mw, err := Middleware(opts)
	if err != nil {
		panic(err)
	}
	return nem.Func(mw)
}

var _ nem.SessionData = (*Session)(nil)
