// Package engine defines the contract every embedded JavaScript runtime
// implements, and the hosts that decide how live engines are shared
// between goroutines.
//
// An Engine evaluates script sources into one global scope and calls named
// global functions with JSON-like arguments (nil, bool, float64, string,
// []any and map[string]any). Engines are never safe for concurrent use on
// their own; a Host wraps a Factory with a sharing policy.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Common errors for engine operations.
var (
	// ErrNoFunction is returned when the called name is not a global function.
	ErrNoFunction = errors.New("global is not a function")
	// ErrNotString is returned when a call completes with a non-string value.
	ErrNotString = errors.New("js returned a non-string value")
	// ErrEncode is returned when an argument cannot be converted into a js value.
	ErrEncode = errors.New("cannot convert argument to js value")
	// ErrClosed is returned by calls on a closed engine or host.
	ErrClosed = errors.New("engine closed")
)

// Source is one script text evaluated into an engine.
type Source struct {
	// Name identifies the script in stack traces and errors.
	Name string
	// Code is the script text.
	Code string
}

// Engine is one live JavaScript runtime.
//
// Contract:
//   - Eval runs code in the shared global scope; later sources see globals
//     defined by earlier ones.
//   - Call invokes a global function and returns its string result. Script
//     exceptions are reported as *ScriptError.
//   - Close releases the runtime. It is called exactly once.
type Engine interface {
	Name() string
	Eval(src Source) error
	Call(fn string, args ...any) (string, error)
	Close() error
}

// Factory creates an engine with its sources already evaluated.
type Factory func() (Engine, error)

// Load evaluates sources in order into e. On the first failure e is closed
// and an *InitError naming the failed source is returned.
func Load[E Engine](e E, sources []Source) (E, error) {
	for _, src := range sources {
		if err := e.Eval(src); err != nil {
			_ = e.Close()
			var zero E
			return zero, &InitError{Source: src.Name, Err: err}
		}
	}
	return e, nil
}

// InitError reports a failure while bringing up an engine.
type InitError struct {
	// Source is the name of the script that failed, empty when the runtime
	// itself could not be created.
	Source string
	Err    error
}

func (e *InitError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("engine init: %v", e.Err)
	}
	return fmt.Sprintf("engine init: evaluating %s: %v", e.Source, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Logger is the logging surface hosts write to. *slog.Logger satisfies it.
type Logger interface {
	Log(ctx context.Context, level slog.Level, msg string, args ...any)
	LogAttrs(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr)
}
