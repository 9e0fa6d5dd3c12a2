package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Safe wraps a function that returns an error, catching any panics and
// returning them as an error.
func Safe(fn func() error) func() error {
	return func() error {
		return try(fn)
	}
}

// SafeContext is Safe for functions that take a context, the shape expected
// by conc's ContextPool.Go.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return try(func() error { return fn(ctx) })
	}
}

// Do runs fn and returns a recovered panic as an error. Callers that only
// need to log the failure use it directly.
func Do(fn func()) error {
	return try(func() error {
		fn()
		return nil
	})
}

func try(fn func() error) error {
	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() {
		err = fn()
	})
	if err != nil {
		return err
	}
	return catcher.Recovered().AsError()
}
