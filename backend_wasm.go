//go:build js && wasm

package katex

import (
	"github.com/joetifa2003/katex/engine"
	"github.com/joetifa2003/katex/engine/wasmjs"
)

// Backend names the js engine linked into this build.
const Backend = wasmjs.Name

func newHost(sources []engine.Source, options ...engine.HostOption) engine.Host {
	return engine.NewDirect(func() (engine.Engine, error) {
		e, err := wasmjs.Open(sources...)
		if err != nil {
			return nil, err
		}
		return e, nil
	}, append(options, engine.WithName(Backend))...)
}
