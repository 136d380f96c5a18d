package nem

import (
	"fmt"
	"sync"
)

// Token identifies a scope binding that has no natural Go type to key it
type Token struct {
	name string
}

var (
	tokensMu     sync.RWMutex
	tokensByName = map[string]*Token{}
)

// NewToken creates a token. The name is also what `inject:"..."` struct
// tags refer to; creating two tokens with the same name panics.
func NewToken(name string) *Token {
	tokensMu.Lock()
	defer tokensMu.Unlock()
	if _, exists := tokensByName[name]; exists {
		panic(fmt.Sprintf("nem: token %q already exists", name))
	}
	t := &Token{name: name}
	tokensByName[name] = t
	return t
}

// LookupToken returns the token created under name
func LookupToken(name string) (*Token, bool) {
	tokensMu.RLock()
	defer tokensMu.RUnlock()
	t, ok := tokensByName[name]
	return t, ok
}

func (t *Token) String() string {
	return "Token(" + t.name + ")"
}

var (
	// BasePaths accumulates the mount paths of the enclosing modules and controller
	BasePaths = NewToken("BasePaths")
	// Views accumulates template directories
	Views = NewToken("Views")
	// ViewPrefix is prepended to template names by the View directive
	ViewPrefix = NewToken("ViewPrefix")
	// MiddlewareBefore accumulates middleware run before every route of a controller
	MiddlewareBefore = NewToken("MiddlewareBefore")
	// MiddlewareAfter accumulates middleware run after every route of a controller
	MiddlewareAfter = NewToken("MiddlewareAfter")
	// DefaultEndHandler is the directive used when no route directive implements End
	DefaultEndHandler = NewToken("DefaultEndHandler")
	// ErrorHandler is the final error handler installed on the transport
	ErrorHandler = NewToken("ErrorHandler")
	// ViewEngineToken resolves the ViewEngine used for rendering
	ViewEngineToken = NewToken("ViewEngine")
	// RouterToken resolves the router of the module being compiled
	RouterToken = NewToken("Router")
	// TransportToken resolves the Transport the application is mounted on
	TransportToken = NewToken("Transport")
	// LoggerToken resolves the *slog.Logger
	LoggerToken = NewToken("Logger")
	// Env resolves the application environment name, e.g. "production"
	Env = NewToken("Env")
	// BeforeMount accumulates listeners run before the root module is compiled
	BeforeMount = NewToken("BeforeMount")
	// AfterMount accumulates listeners run after the root module is compiled
	AfterMount = NewToken("AfterMount")
)

// MultiTokensFromParent lists the multi-value tokens re-materialized in every
// child scope, so values registered in ancestors stay visible and each child
// extends its own copy.
var MultiTokensFromParent = []*Token{
	BasePaths,
	Views,
	MiddlewareBefore,
	MiddlewareAfter,
}
