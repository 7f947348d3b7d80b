package registry

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strings"

	"github.com/roach88/stepwise/internal/fixture"
	"github.com/roach88/stepwise/internal/pattern"
	"github.com/roach88/stepwise/internal/step"
)

var closureName = regexp.MustCompile(`(^|\.)func\d+($|\.)`)

// DefineInferred registers fn with a pattern derived from its function name,
// so addItemToBasket becomes "Add item to basket". fn must be a named
// function or method value with a step.Func or step.AsyncFunc signature.
func (r *Registry) DefineInferred(kw step.Keyword, fn any, fixtures ...fixture.Requirement) error {
	var h step.Handler
	switch f := fn.(type) {
	case step.Func:
		h = step.Sync(f)
	case func(context.Context, *step.Context) error:
		h = step.Sync(f)
	case step.AsyncFunc:
		h = step.Async(f)
	case func(context.Context, *step.Context) <-chan error:
		h = step.Async(f)
	default:
		return fmt.Errorf("infer step from %T: not a step function", fn)
	}

	name, err := FuncName(fn)
	if err != nil {
		return err
	}
	p, err := pattern.Compile(pattern.Infer(name))
	if err != nil {
		return fmt.Errorf("infer step from %s: %w", name, err)
	}

	_, err = r.Register(Descriptor{
		Keyword:  kw,
		Pattern:  p,
		Fixtures: fixtures,
		Handler:  h,
		Location: callerLocation(2),
		Name:     name,
	})
	return err
}

// FuncName returns the unqualified name of a named function or method value.
// Anonymous functions are rejected since their names carry no meaning.
func FuncName(fn any) (string, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "", fmt.Errorf("infer step name: %T is not a function", fn)
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return "", fmt.Errorf("infer step name: no symbol for %T", fn)
	}

	full := rf.Name()
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	name := strings.TrimSuffix(full, "-fm")
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if closureName.MatchString(name) {
		return "", fmt.Errorf("infer step name: %s is an anonymous function", rf.Name())
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name, nil
}
