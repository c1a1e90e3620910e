//go:build js && wasm

// Package wasmjs evaluates scripts in the JavaScript environment hosting a
// GOOS=js GOARCH=wasm program. There is one global scope per process and the
// host runs one call at a time, so the Engine needs no locking and Close
// has nothing to release.
package wasmjs

import (
	"fmt"
	"syscall/js"

	"github.com/joetifa2003/katex/engine"
)

// Name identifies this backend.
const Name = "wasm-js"

// Engine evaluates into the host's global object.
type Engine struct {
	global js.Value
}

// Open evaluates sources into the host's global scope in order.
func Open(sources ...engine.Source) (*Engine, error) {
	return engine.Load(&Engine{global: js.Global()}, sources)
}

func (e *Engine) Name() string { return Name }

// Eval runs code through indirect eval, which always targets the global scope.
func (e *Engine) Eval(src engine.Source) (err error) {
	defer recoverThrown(&err)
	e.global.Call("eval", src.Code)
	return nil
}

func (e *Engine) Call(fn string, args ...any) (result string, err error) {
	f := e.global.Get(fn)
	if f.Type() != js.TypeFunction {
		return "", fmt.Errorf("%w: %s", engine.ErrNoFunction, fn)
	}

	values := make([]any, len(args))
	for i, arg := range args {
		v, err := toValue(arg)
		if err != nil {
			return "", fmt.Errorf("argument %d: %w", i, err)
		}
		values[i] = v
	}

	defer recoverThrown(&err)
	res := f.Invoke(values...)
	if res.Type() != js.TypeString {
		return "", fmt.Errorf("%w: %s returned %s", engine.ErrNotString, fn, res.Type())
	}
	return res.String(), nil
}

func (e *Engine) Close() error { return nil }

// toValue checks the argument tree up front so js.ValueOf cannot panic on it.
func toValue(v any) (js.Value, error) {
	switch v := v.(type) {
	case nil:
		return js.Null(), nil
	case bool, string, float64, int:
		return js.ValueOf(v), nil
	case []any:
		arr := js.Global().Get("Array").New(len(v))
		for i, item := range v {
			iv, err := toValue(item)
			if err != nil {
				return js.Value{}, err
			}
			arr.SetIndex(i, iv)
		}
		return arr, nil
	case map[string]any:
		obj := js.Global().Get("Object").New()
		for k, item := range v {
			iv, err := toValue(item)
			if err != nil {
				return js.Value{}, err
			}
			obj.Set(k, iv)
		}
		return obj, nil
	default:
		return js.Value{}, fmt.Errorf("%w: unsupported type %T", engine.ErrEncode, v)
	}
}

// recoverThrown converts a value thrown by script code, which syscall/js
// raises as a js.Error panic, into a *engine.ScriptError.
func recoverThrown(err *error) {
	r := recover()
	if r == nil {
		return
	}
	jsErr, ok := r.(js.Error)
	if !ok {
		panic(r)
	}

	thrown := jsErr.Value
	scriptErr := &engine.ScriptError{}
	if thrown.Type() == js.TypeObject {
		if name := thrown.Get("name"); name.Type() == js.TypeString {
			scriptErr.Name = name.String()
		}
		if msg := thrown.Get("message"); msg.Type() == js.TypeString {
			scriptErr.Message = msg.String()
		}
		if stack := thrown.Get("stack"); stack.Type() == js.TypeString {
			scriptErr.Stack = stack.String()
		}
	}
	if scriptErr.Message == "" {
		scriptErr.Message = jsErr.Error()
	}
	*err = scriptErr
}
