package nem

import "context"

type requestCtxKey struct{}

type requestState struct {
	req   Request
	res   Response
	scope *Scope
}

// withRequest derives the per-request context the main handler runs in
func withRequest(ctx context.Context, req Request, res Response, scope *Scope) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, &requestState{req: req, res: res, scope: scope})
}

// RequestFrom returns the request a handler context belongs to
func RequestFrom(ctx context.Context) (Request, bool) {
	st, ok := ctx.Value(requestCtxKey{}).(*requestState)
	if !ok {
		return nil, false
	}
	return st.req, true
}

// ResponseFrom returns the response a handler context writes to
func ResponseFrom(ctx context.Context) (Response, bool) {
	st, ok := ctx.Value(requestCtxKey{}).(*requestState)
	if !ok {
		return nil, false
	}
	return st.res, true
}

// ScopeFrom returns the controller scope a handler context runs in
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	st, ok := ctx.Value(requestCtxKey{}).(*requestState)
	if !ok {
		return nil, false
	}
	return st.scope, true
}
