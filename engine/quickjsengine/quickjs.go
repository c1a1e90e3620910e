//go:build cgo

// Package quickjsengine runs scripts on the QuickJS C library through
// github.com/lithdew/quickjs.
//
// A QuickJS runtime checks its stack limit against the OS thread that created
// it, so an Engine must be created, called and closed on one locked OS thread
// (see engine.NewPinned). Its heap lives outside the Go heap and is released
// exactly once by Close.
package quickjsengine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lithdew/quickjs"

	"github.com/joetifa2003/katex/engine"
)

// Name identifies this backend.
const Name = "quickjs"

// argsGlobal carries the JSON-encoded argument list into the call expression.
const argsGlobal = "__katexArgs"

// Engine is a QuickJS runtime and context with its scripts loaded.
type Engine struct {
	rt  quickjs.Runtime
	ctx *quickjs.Context
}

// Open creates a runtime on the calling thread and evaluates sources into it
// in order.
func Open(sources ...engine.Source) (*Engine, error) {
	rt := quickjs.NewRuntime()
	return engine.Load(&Engine{rt: rt, ctx: rt.NewContext()}, sources)
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Eval(src engine.Source) error {
	if e.ctx == nil {
		return engine.ErrClosed
	}
	val, err := e.ctx.Eval(src.Code)
	if err != nil {
		return convertError(err)
	}
	val.Free()
	return nil
}

// Call hands args over as one boxed JSON string and applies fn to the parsed
// list.
func (e *Engine) Call(fn string, args ...any) (string, error) {
	if e.ctx == nil {
		return "", engine.ErrClosed
	}
	if !engine.ValidIdent(fn) {
		return "", fmt.Errorf("%w: %q is not an identifier", engine.ErrNoFunction, fn)
	}
	if args == nil {
		args = []any{}
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("%w: %v", engine.ErrEncode, err)
	}

	// the context owns its global object and frees it with itself
	e.ctx.Globals().Set(argsGlobal, e.ctx.String(string(payload)))

	val, err := e.ctx.Eval(fmt.Sprintf(
		"typeof %[1]s === 'function' ? %[1]s.apply(null, JSON.parse(%[2]s)) : undefined", fn, argsGlobal,
	))
	if err != nil {
		return "", convertError(err)
	}
	defer val.Free()

	if val.IsUndefined() {
		return "", fmt.Errorf("%w: %s", engine.ErrNoFunction, fn)
	}
	if !val.IsString() {
		return "", fmt.Errorf("%w: %s returned %s", engine.ErrNotString, fn, val.String())
	}
	return val.String(), nil
}

// Close frees the context and runtime. It must run on the creating thread.
func (e *Engine) Close() error {
	if e.ctx == nil {
		return nil
	}
	e.ctx.Free()
	e.rt.Free()
	e.ctx = nil
	return nil
}

func convertError(err error) error {
	var qerr *quickjs.Error
	if !errors.As(err, &qerr) {
		return err
	}
	scriptErr := engine.ParseScriptError(qerr.Cause)
	if qerr.Stack != "" {
		scriptErr.Stack = qerr.Stack
	}
	return scriptErr
}
