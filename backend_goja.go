//go:build !katex_qjs && !(katex_quickjs && cgo) && !(js && wasm)

package katex

import (
	"github.com/joetifa2003/katex/engine"
	"github.com/joetifa2003/katex/engine/gojaengine"
)

// Backend names the js engine linked into this build.
const Backend = gojaengine.Name

// goja values can be used from any goroutine, one call at a time, so a single
// engine serves the whole process.
func newHost(sources []engine.Source, options ...engine.HostOption) engine.Host {
	return engine.NewLocked(func() (engine.Engine, error) {
		e, err := gojaengine.Open(sources...)
		if err != nil {
			return nil, err
		}
		return e, nil
	}, append(options, engine.WithName(Backend))...)
}
