//go:build katex_quickjs && cgo && !katex_qjs && !(js && wasm)

package katex

import (
	"github.com/joetifa2003/katex/engine"
	"github.com/joetifa2003/katex/engine/quickjsengine"
)

// Backend names the js engine linked into this build.
const Backend = quickjsengine.Name

// A QuickJS runtime must stay on the OS thread that created it.
func newHost(sources []engine.Source, options ...engine.HostOption) engine.Host {
	return engine.NewPinned(func() (engine.Engine, error) {
		e, err := quickjsengine.Open(sources...)
		if err != nil {
			return nil, err
		}
		return e, nil
	}, append(options, engine.WithName(Backend))...)
}
