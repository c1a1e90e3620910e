package katex

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	pathpkg "path"

	"github.com/joetifa2003/katex/engine"
)

// The KaTeX distribution is vendored into assets/ rather than committed:
//
//	assets/katex.min.js
//	assets/contrib/mhchem.min.js
//
//go:generate sh -c "curl -fsSL https://cdn.jsdelivr.net/npm/katex@0.16.22/dist/katex.min.js -o assets/katex.min.js && mkdir -p assets/contrib && curl -fsSL https://cdn.jsdelivr.net/npm/katex@0.16.22/dist/contrib/mhchem.min.js -o assets/contrib/mhchem.min.js"
//go:embed assets
var assets embed.FS

const (
	katexAsset  = "assets/katex.min.js"
	mhchemAsset = "assets/contrib/mhchem.min.js"
)

// entryPoint is the global function every render calls.
const entryPoint = "__katexRender"

// bootstrap runs after the payload scripts. It fails initialization when
// KaTeX did not define itself, and defines the entry point, which turns
// trust and strict rule objects into the predicate functions KaTeX accepts.
const bootstrap = `
if (typeof katex === "undefined" || typeof katex.renderToString !== "function") {
	throw new Error("katex.renderToString is not defined by the loaded scripts");
}
var ` + entryPoint + ` = (function () {
	function has(list, item) {
		return !list || list.length === 0 || list.indexOf(item) >= 0;
	}
	function trustFunction(rules) {
		return function (context) {
			if (!has(rules.commands, context.command)) {
				return false;
			}
			if (!context.protocol) {
				return !!rules.commands && rules.commands.length > 0;
			}
			return has(rules.protocols, String(context.protocol).toLowerCase());
		};
	}
	function strictFunction(rules) {
		return function (errorCode) {
			var codes = rules.codes || {};
			return Object.prototype.hasOwnProperty.call(codes, errorCode) ? codes[errorCode] : rules["default"];
		};
	}
	return function (input, options, displayMode) {
		var opts = {};
		for (var key in options) {
			if (Object.prototype.hasOwnProperty.call(options, key)) {
				opts[key] = options[key];
			}
		}
		opts.displayMode = !!displayMode;
		if (opts.trust && typeof opts.trust === "object") {
			opts.trust = trustFunction(opts.trust);
		}
		if (opts.strict && typeof opts.strict === "object") {
			opts.strict = strictFunction(opts.strict);
		}
		return katex.renderToString(input, opts);
	};
})();
`

func bootstrapSource() engine.Source {
	return engine.Source{Name: "katex-bootstrap.js", Code: bootstrap}
}

func embeddedKatex() (engine.Source, error) {
	return readSource(assets, katexAsset)
}

// embeddedMhchem reports false when the extension was not vendored.
func embeddedMhchem() (engine.Source, bool, error) {
	src, err := readSource(assets, mhchemAsset)
	if errors.Is(err, fs.ErrNotExist) {
		return engine.Source{}, false, nil
	}
	if err != nil {
		return engine.Source{}, false, err
	}
	return src, true, nil
}

func readSource(fsys fs.FS, path string) (engine.Source, error) {
	code, err := fs.ReadFile(fsys, path)
	if err != nil {
		return engine.Source{}, &Error{
			Kind:    KindEngineInit,
			Message: fmt.Sprintf("reading %s", path),
			Err:     err,
		}
	}
	return engine.Source{Name: pathpkg.Base(path), Code: string(code)}, nil
}
