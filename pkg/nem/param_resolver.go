package nem

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ResolveParam produces the argument value of one binding: resolve, check
// required, parse, validate.
func ResolveParam(b *Binding, req Request) (any, error) {
	if b.Resolver == nil {
		return nil, fmt.Errorf("%s %q has no resolver", b.Kind, b.Name)
	}
	value, err := b.Resolver(b, req)
	if err != nil {
		return nil, err
	}

	if b.Required && (value == nil || IsNull(value)) {
		return nil, ErrBadRequest(fmt.Sprintf("%s %q required", b.Kind, b.Name))
	}

	if b.Parser != nil {
		if value, err = b.Parser(value, b, req); err != nil {
			return nil, err
		}
	}

	if b.Validator != nil && !b.Validator(value, b, req) {
		return nil, ErrBadRequest(fmt.Sprintf("%s %q invalid", b.Kind, b.Name))
	}

	return value, nil
}

// ResolveParams resolves all bindings concurrently. The result keeps the
// declared order; the first failure is returned and bindings not yet
// started are skipped.
func ResolveParams(ctx context.Context, bindings []*Binding, req Request) ([]any, error) {
	args := make([]any, len(bindings))
	if len(bindings) == 0 {
		return args, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range bindings {
		g.Go(func() error {
			// a sibling already failed or the request is gone
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := ResolveParam(b, req)
			if err != nil {
				return err
			}
			args[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return args, nil
}

// HasErrorBinding reports whether any binding receives the chain error
func HasErrorBinding(bindings []*Binding) bool {
	for _, b := range bindings {
		if b.Kind == KindErr {
			return true
		}
	}
	return false
}
