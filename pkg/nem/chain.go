package nem

// Next continues with the following handler of the chain. Its return value
// is the error the rest of the chain ended with.
type Next func() error

// HandlerFunc is one step of a route's handler chain
type HandlerFunc func(req Request, res Response, next Next) error

// ErrorHandlerFunc consumes an error raised earlier in the chain
type ErrorHandlerFunc func(err error, req Request, res Response, next Next) error

// Link is a chain entry. Handle runs while no error is pending and Recover
// while one is; a link missing the matching field is skipped. A link may
// carry both.
type Link struct {
	Name    string
	Handle  HandlerFunc
	Recover ErrorHandlerFunc
}

type chain []Link

// run walks the chain. A handler returning an error without having called
// next hands the error to the next Recover entry; once next was called the
// error is returned as-is, since the rest of the chain already saw it.
// The error left when the chain is exhausted is returned.
func (c chain) run(req Request, res Response) error {
	return c.step(0, nil, req, res)
}

func (c chain) step(i int, pending error, req Request, res Response) error {
	for ; i < len(c); i++ {
		l := c[i]
		if pending != nil && l.Recover == nil || pending == nil && l.Handle == nil {
			continue
		}

		called := false
		idx := i
		next := func() error {
			called = true
			return c.step(idx+1, nil, req, res)
		}

		var err error
		if pending != nil {
			err = l.Recover(pending, req, res, next)
		} else {
			err = l.Handle(req, res, next)
		}
		if err != nil && !called {
			return c.step(idx+1, err, req, res)
		}
		return err
	}
	return pending
}

func handlerLink(name string, h HandlerFunc) Link {
	return Link{Name: name, Handle: h}
}

func recoverLink(name string, h ErrorHandlerFunc) Link {
	return Link{Name: name, Recover: h}
}

// Compose folds handlers into one handler running them in order
func Compose(handlers ...HandlerFunc) HandlerFunc {
	links := make(chain, len(handlers))
	for i, h := range handlers {
		links[i] = handlerLink("", h)
	}
	return func(req Request, res Response, next Next) error {
		outer := append(links[:len(links):len(links)], handlerLink("next", func(Request, Response, Next) error {
			return next()
		}))
		return outer.run(req, res)
	}
}
