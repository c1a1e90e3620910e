// Package gojaengine runs scripts on github.com/dop251/goja, a JavaScript
// interpreter written in Go. A goja runtime is not goroutine-safe but is not
// bound to any thread either, so one engine can be shared behind a lock.
package gojaengine

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dop251/goja"

	"github.com/joetifa2003/katex/engine"
)

// Name identifies this backend.
const Name = "goja"

// Engine is a goja runtime with its scripts loaded.
type Engine struct {
	vm     *goja.Runtime
	closed bool
}

// Open creates a runtime and evaluates sources into it in order.
func Open(sources ...engine.Source) (*Engine, error) {
	return engine.Load(&Engine{vm: goja.New()}, sources)
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Eval(src engine.Source) error {
	if e.closed {
		return engine.ErrClosed
	}
	_, err := e.vm.RunScript(src.Name, src.Code)
	if err != nil {
		return e.convertError(err)
	}
	return nil
}

// Call converts args into native script values and calls the global fn.
func (e *Engine) Call(fn string, args ...any) (result string, err error) {
	if e.closed {
		return "", engine.ErrClosed
	}

	callable, ok := goja.AssertFunction(e.vm.Get(fn))
	if !ok {
		return "", fmt.Errorf("%w: %s", engine.ErrNoFunction, fn)
	}

	values := make([]goja.Value, len(args))
	for i, arg := range args {
		v, err := e.toValue(arg)
		if err != nil {
			return "", fmt.Errorf("argument %d: %w", i, err)
		}
		values[i] = v
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("goja panic calling %s: %v", fn, r)
		}
	}()

	res, err := callable(goja.Undefined(), values...)
	if err != nil {
		return "", e.convertError(err)
	}

	s, ok := res.Export().(string)
	if !ok {
		return "", fmt.Errorf("%w: %s returned %s", engine.ErrNotString, fn, res.String())
	}
	return s, nil
}

// Close drops the runtime. goja memory is garbage collected by Go, so this
// only makes later calls fail.
func (e *Engine) Close() error {
	e.closed = true
	e.vm = nil
	return nil
}

func (e *Engine) toValue(v any) (goja.Value, error) {
	switch v := v.(type) {
	case nil:
		return goja.Null(), nil
	case bool, string, float64, int, int64:
		return e.vm.ToValue(v), nil
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			iv, err := e.toValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = iv
		}
		return e.vm.NewArray(items...), nil
	case map[string]any:
		obj := e.vm.NewObject()
		for _, k := range slices.Sorted(maps.Keys(v)) {
			iv, err := e.toValue(v[k])
			if err != nil {
				return nil, err
			}
			if err := obj.Set(k, iv); err != nil {
				return nil, fmt.Errorf("%w: key %q: %v", engine.ErrEncode, k, err)
			}
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", engine.ErrEncode, v)
	}
}

// convertError turns a thrown value into a *engine.ScriptError, reading
// name and message off the exception object.
func (e *Engine) convertError(err error) error {
	ex, ok := err.(*goja.Exception)
	if !ok {
		return err
	}

	scriptErr := &engine.ScriptError{Stack: ex.String()}

	val := ex.Value()
	if obj, ok := val.(*goja.Object); ok {
		if name := obj.Get("name"); name != nil && !goja.IsUndefined(name) {
			scriptErr.Name = name.String()
		}
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
			scriptErr.Message = msg.String()
			return scriptErr
		}
	}

	if val != nil {
		scriptErr.Message = val.String()
	} else {
		scriptErr.Message = ex.Error()
	}
	return scriptErr
}
