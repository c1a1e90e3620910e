// Package qjsengine runs scripts on github.com/fastschema/qjs, QuickJS
// compiled to WebAssembly and executed by wazero. No cgo is involved.
//
// A runtime must not be used by two goroutines at once. Arguments cross the
// boundary as JSON literals spliced into a call expression, and exceptions
// come back as text.
package qjsengine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fastschema/qjs"

	"github.com/joetifa2003/katex/engine"
)

// Name identifies this backend.
const Name = "qjs"

// Engine is a qjs runtime with its scripts loaded.
type Engine struct {
	rt  *qjs.Runtime
	ctx *qjs.Context
}

// Open starts a runtime and evaluates sources into it in order.
func Open(sources ...engine.Source) (*Engine, error) {
	rt, err := qjs.New()
	if err != nil {
		return nil, &engine.InitError{Err: err}
	}
	return engine.Load(&Engine{rt: rt, ctx: rt.Context()}, sources)
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Eval(src engine.Source) error {
	if e.rt == nil {
		return engine.ErrClosed
	}
	val, err := e.ctx.Eval(src.Name, qjs.Code(src.Code))
	if err != nil {
		return engine.ParseScriptError(err.Error())
	}
	val.Free()
	return nil
}

// Call encodes args as JSON and evaluates fn(args...) in the global scope.
func (e *Engine) Call(fn string, args ...any) (string, error) {
	if e.rt == nil {
		return "", engine.ErrClosed
	}
	if !engine.ValidIdent(fn) {
		return "", fmt.Errorf("%w: %q is not an identifier", engine.ErrNoFunction, fn)
	}

	literals := make([]string, len(args))
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("%w: argument %d: %v", engine.ErrEncode, i, err)
		}
		literals[i] = string(b)
	}

	code := fmt.Sprintf("typeof %[1]s === 'function' ? %[1]s(%[2]s) : undefined", fn, strings.Join(literals, ", "))
	val, err := e.ctx.Eval("call.js", qjs.Code(code))
	if err != nil {
		return "", engine.ParseScriptError(err.Error())
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

// Close shuts the wasm module down and frees its memory.
func (e *Engine) Close() error {
	if e.rt == nil {
		return nil
	}
	e.rt.Close()
	e.rt, e.ctx = nil, nil
	return nil
}
