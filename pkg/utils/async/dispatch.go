package async

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// ErrPanic is wrapped by the error returned for a handler that panicked
var ErrPanic = errors.New("panic in async handler")

// Dispatch executes handlers concurrently and waits for all of them
//
// Parameters:
//   - ctx: Context passed to every handler (cancellation is shared)
//   - handlers: Functions to execute
//
// Behavior:
//   - Executes each handler in its own goroutine
//   - Recovers from panics, logs them with the stack and reports them as errors
//   - Never stops early: a failing handler does not cancel the others
//   - Returns errors.Join of every handler error, nil when all succeed
func Dispatch(ctx context.Context, handlers ...func(ctx context.Context) error) error {
	errs := make([]error, len(handlers))

	var wg sync.WaitGroup
	for i, handler := range handlers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = run(ctx, handler)
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

func run(ctx context.Context, handler func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			ctxlog.From(ctx).Error("panic in async handler",
				"recover", r,
				"stack", string(stack))
			err = goerr.Wrap(ErrPanic, "handler panicked", goerr.V("recover", r))
		}
	}()

	return handler(ctx)
}
