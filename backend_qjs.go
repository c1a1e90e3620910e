//go:build katex_qjs && !(js && wasm)

package katex

import (
	"github.com/joetifa2003/katex/engine"
	"github.com/joetifa2003/katex/engine/qjsengine"
)

// Backend names the js engine linked into this build.
const Backend = qjsengine.Name

func newHost(sources []engine.Source, options ...engine.HostOption) engine.Host {
	return engine.NewPooled(func() (engine.Engine, error) {
		e, err := qjsengine.Open(sources...)
		if err != nil {
			return nil, err
		}
		return e, nil
	}, append(options, engine.WithName(Backend))...)
}
