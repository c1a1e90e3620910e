// Package enginetest holds the conformance suite every engine backend runs
// and a KaTeX-shaped fixture payload for tests that cannot ship the real
// script.
package enginetest

import (
	_ "embed"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joetifa2003/katex/engine"
)

//go:embed testdata/katex.js
var fixtureKatex string

//go:embed testdata/mhchem.js
var fixtureMhchem string

// KatexScript returns the fixture stand-in for katex.min.js.
func KatexScript() engine.Source {
	return engine.Source{Name: "katex.js", Code: fixtureKatex}
}

// MhchemScript returns the fixture stand-in for the mhchem extension. It
// needs KatexScript evaluated first.
func MhchemScript() engine.Source {
	return engine.Source{Name: "mhchem.js", Code: fixtureMhchem}
}

// Open creates an engine from sources.
type Open func(sources ...engine.Source) (engine.Engine, error)

const probe = `
function echo(input, options, flag) {
	return JSON.stringify({ input: input, options: options, flag: flag });
}
function number() { return 42; }
function fail() {
	var e = new Error("it broke");
	e.name = "ParseError";
	throw e;
}
function failPlain() { throw new TypeError("not callable"); }
var counter = 0;
function bump() { counter++; return String(counter); }
`

// pin keeps a subtest on one OS thread; thread-bound engines must be created,
// called and closed on the same thread.
func pin(t *testing.T) {
	runtime.LockOSThread()
	t.Cleanup(runtime.UnlockOSThread)
}

// Run exercises the engine contract against open.
func Run(t *testing.T, open Open) {
	t.Helper()

	t.Run("sources share one global scope", func(t *testing.T) {
		pin(t)
		e, err := open(
			engine.Source{Name: "a.js", Code: `var base = "from a";`},
			engine.Source{Name: "b.js", Code: `function both() { return base + ", from b"; }`},
		)
		require.NoError(t, err)
		defer e.Close()

		got, err := e.Call("both")
		require.NoError(t, err)
		assert.Equal(t, "from a, from b", got)
	})

	t.Run("failed source discards engine", func(t *testing.T) {
		pin(t)
		e, err := open(
			engine.Source{Name: "ok.js", Code: `var ok = true;`},
			engine.Source{Name: "broken.js", Code: `function (`},
		)
		assert.Nil(t, e)

		var initErr *engine.InitError
		require.ErrorAs(t, err, &initErr)
		assert.Equal(t, "broken.js", initErr.Source)
	})

	t.Run("throwing source fails init", func(t *testing.T) {
		pin(t)
		_, err := open(engine.Source{Name: "throws.js", Code: `throw new Error("no katex");`})

		var initErr *engine.InitError
		require.ErrorAs(t, err, &initErr)
		assert.Contains(t, initErr.Error(), "no katex")
	})

	t.Run("arguments keep their shape", func(t *testing.T) {
		pin(t)
		e, err := open(engine.Source{Name: "probe.js", Code: probe})
		require.NoError(t, err)
		defer e.Close()

		got, err := e.Call("echo",
			"x^2 ∈ ℝ",
			map[string]any{
				"displayMode": true,
				"maxExpand":   float64(1000),
				"errorColor":  "#cc0000",
				"macros":      map[string]any{`\RR`: `\mathbb{R}`},
				"trust":       map[string]any{"commands": []any{`\url`}},
				"nothing":     nil,
			},
			false,
		)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"input": "x^2 ∈ ℝ",
			"options": {
				"displayMode": true,
				"maxExpand": 1000,
				"errorColor": "#cc0000",
				"macros": {"\\RR": "\\mathbb{R}"},
				"trust": {"commands": ["\\url"]},
				"nothing": null
			},
			"flag": false
		}`, got)
	})

	t.Run("script exception", func(t *testing.T) {
		pin(t)
		e, err := open(engine.Source{Name: "probe.js", Code: probe})
		require.NoError(t, err)
		defer e.Close()

		_, err = e.Call("fail")
		var scriptErr *engine.ScriptError
		require.ErrorAs(t, err, &scriptErr)
		assert.Equal(t, "ParseError", scriptErr.Name)
		assert.Equal(t, "it broke", scriptErr.Message)

		_, err = e.Call("failPlain")
		require.ErrorAs(t, err, &scriptErr)
		assert.Equal(t, "TypeError", scriptErr.Name)
		assert.Equal(t, "not callable", scriptErr.Message)

		// the engine stays usable after a throw
		got, err := e.Call("echo", "ok", map[string]any{}, true)
		require.NoError(t, err)
		assert.Contains(t, got, `"ok"`)
	})

	t.Run("missing function", func(t *testing.T) {
		pin(t)
		e, err := open(engine.Source{Name: "probe.js", Code: probe})
		require.NoError(t, err)
		defer e.Close()

		_, err = e.Call("doesNotExist", "x")
		assert.Error(t, err)
	})

	t.Run("non-string result", func(t *testing.T) {
		pin(t)
		e, err := open(engine.Source{Name: "probe.js", Code: probe})
		require.NoError(t, err)
		defer e.Close()

		_, err = e.Call("number")
		assert.ErrorIs(t, err, engine.ErrNotString)
	})

	t.Run("state persists across calls", func(t *testing.T) {
		pin(t)
		e, err := open(engine.Source{Name: "probe.js", Code: probe})
		require.NoError(t, err)
		defer e.Close()

		for _, want := range []string{"1", "2", "3"} {
			got, err := e.Call("bump")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("fixture payload", func(t *testing.T) {
		pin(t)
		e, err := open(KatexScript(), MhchemScript())
		require.NoError(t, err)
		defer e.Close()

		e2, err := open(engine.Source{Name: "render.js", Code: `
			function render(input, options) { return katex.renderToString(input, options); }
		`})
		require.NoError(t, err)
		defer e2.Close()

		_, err = e2.Call("render", "x", map[string]any{})
		assert.Error(t, err, "engines must not share globals")

		require.NoError(t, e.Eval(engine.Source{Name: "render.js", Code: `
			function render(input, options) { return katex.renderToString(input, options); }
		`}))

		got, err := e.Call("render", `\ce{H2O}`, map[string]any{"displayMode": true})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, `<span class="katex-display">`), got)
		assert.Contains(t, got, "mathrm")

		_, err = e.Call("render", `\frac{1`, map[string]any{})
		var scriptErr *engine.ScriptError
		require.ErrorAs(t, err, &scriptErr)
		assert.Equal(t, "ParseError", scriptErr.Name)
		assert.Contains(t, scriptErr.Message, "KaTeX parse error")
	})
}
