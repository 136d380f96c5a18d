package nem

import (
	"fmt"
	"reflect"
	"time"

	"github.com/toyz/nem/internal/annotations"
	nemerrors "github.com/toyz/nem/internal/errors"
)

// Annotate declares the annotations of a method of T from decorator source
// in the default store. It is the textual form of Method:
//
//	nem.Annotate[UserController]("Show", `
//		@Get("/:id")
//		@OnUndefined(404)
//		@Param("id", type=int, required=true)
//	`)
func Annotate[T any](method, source string) error {
	return DefaultStore.Annotate(TypeOf[T](), method, source)
}

// MustAnnotate is like Annotate but panics on error
func MustAnnotate[T any](method, source string) {
	if err := Annotate[T](method, source); err != nil {
		panic(err)
	}
}

// Annotate parses source and declares the decorators on a method of t
func (s *Store) Annotate(t reflect.Type, method, source string) error {
	t = normalizeType(t)
	if _, ok := reflect.PointerTo(t).MethodByName(method); !ok {
		return nemerrors.UnknownMethod(t.Name(), method)
	}

	owner := t.Name() + "." + method
	decorators, err := annotations.Parse(owner, source)
	if err != nil {
		return err
	}

	// every decorator is checked so that one call reports all mistakes
	registry := annotations.DefaultRegistry()
	values := make([]any, 0, len(decorators))
	var errs nemerrors.MultipleErrors
	for _, d := range decorators {
		a, err := registry.Resolve(owner, d)
		if err != nil {
			errs.Add(asNemError(err))
			continue
		}
		v, err := decoratorValue(a)
		if err != nil {
			errs.Add(nemerrors.Wrap(nemerrors.AnnotationErrorCode, err.Error(), err).WithLocation(a.Location))
			continue
		}
		values = append(values, v)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}
	s.Declare(t, method, values...)
	return nil
}

func asNemError(err error) nemerrors.NemError {
	if ne, ok := err.(nemerrors.NemError); ok {
		return ne
	}
	return nemerrors.Wrap(nemerrors.AnnotationErrorCode, err.Error(), err)
}

func decoratorValue(a *annotations.Annotation) (any, error) {
	switch a.Name {
	case "Get":
		return Get(a.GetString("path")), nil
	case "Post":
		return Post(a.GetString("path")), nil
	case "Put":
		return Put(a.GetString("path")), nil
	case "Delete":
		return Delete(a.GetString("path")), nil
	case "Patch":
		return Patch(a.GetString("path")), nil
	case "Options":
		return Options(a.GetString("path")), nil
	case "Head":
		return Head(a.GetString("path")), nil
	case "All":
		return All(a.GetString("path")), nil

	case "ContentType":
		return ContentType(a.GetString("type")), nil
	case "StatusCode":
		return StatusCode(a.GetInt("code")), nil
	case "Header":
		return Header(a.GetString("name"), a.GetString("value")), nil
	case "Redirect":
		return Redirect(a.GetString("url"), a.GetInt("status")), nil
	case "View":
		return View(a.GetString("name")), nil
	case "Json":
		return Json(), nil
	case "Raw":
		return Raw(), nil
	case "Text":
		return Text(), nil
	case "OnUndefined":
		return OnUndefined(a.Get("status")), nil
	case "OnNull":
		return OnNull(a.Get("status")), nil
	case "SSE":
		return SSE(time.Duration(a.GetInt("retry")) * time.Millisecond), nil

	case "Param":
		return Param(a.GetString("name"), bindingOptions(a)...), nil
	case "QueryParam":
		return QueryParam(a.GetString("name"), bindingOptions(a)...), nil
	case "BodyParam":
		return BodyParam(a.GetString("name"), bindingOptions(a)...), nil
	case "HeaderParam":
		return HeaderParam(a.GetString("name"), bindingOptions(a)...), nil
	case "SessionParam":
		return SessionParam(a.GetString("name"), bindingOptions(a)...), nil
	case "Params":
		return Params(bindingOptions(a)...), nil
	case "QueryParams":
		return QueryParams(bindingOptions(a)...), nil
	case "Body":
		return Body(bindingOptions(a)...), nil
	case "Headers":
		return Headers(bindingOptions(a)...), nil
	case "Session":
		return Session(bindingOptions(a)...), nil
	case "SessionId":
		return SessionId(bindingOptions(a)...), nil
	case "Req":
		return Req(), nil
	case "Res":
		return Res(), nil
	case "Err":
		return Err(), nil
	}
	return nil, fmt.Errorf("decorator @%s has no nem equivalent", a.Name)
}

func bindingOptions(a *annotations.Annotation) []BindingOption {
	var opts []BindingOption
	if a.Has("type") {
		opts = append(opts, As(a.GetString("type")))
	}
	if a.Has("required") {
		if a.GetBool("required") {
			opts = append(opts, Required())
		} else {
			opts = append(opts, Optional())
		}
	}
	return opts
}
